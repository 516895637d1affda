package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

const defaultTimeout = 10 * time.Second

// Client pings uptime monitors after a scheduled job succeeds.
type Client struct {
	http   *resty.Client
	logger *logger.Logger
}

func New(logger *logger.Logger) *Client {
	return &Client{
		http:   resty.New().SetTimeout(defaultTimeout),
		logger: logger,
	}
}

// CallUptimeWebhook makes a GET request to webhookURL. An empty URL is a no-op.
func (c *Client) CallUptimeWebhook(ctx context.Context, webhookURL string) error {
	if webhookURL == "" {
		return nil
	}

	resp, err := c.http.R().SetContext(ctx).Get(webhookURL)
	if err != nil {
		c.logger.Error("[webhook][CallUptimeWebhook] request failed", map[string]string{
			"error": err.Error(),
		})
		return err
	}
	if resp.IsError() {
		c.logger.Error("[webhook][CallUptimeWebhook] unexpected status", map[string]string{
			"status_code": resp.Status(),
		})
		return fmt.Errorf("uptime webhook: status %d", resp.StatusCode())
	}

	c.logger.Debug("[webhook][CallUptimeWebhook] pinged", map[string]string{
		"status_code": resp.Status(),
	})
	return nil
}
