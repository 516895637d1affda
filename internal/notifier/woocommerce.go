package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

const DefaultWooCommerceAction = "MNEE_payment_confirm"

type wooCommerceRequest struct {
	OrderKey      string `json:"order_key"`
	TransactionID string `json:"transaction_id"`
	APIKey        string `json:"api_key"`
}

type wooCommerceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type WooCommerce struct {
	client *resty.Client
	action string
	logger *logger.Logger
}

func NewWooCommerce(timeout time.Duration, action string, logger *logger.Logger) *WooCommerce {
	if action == "" {
		action = DefaultWooCommerceAction
	}
	return &WooCommerce{
		client: resty.New().SetTimeout(timeout),
		action: action,
		logger: logger,
	}
}

func (w *WooCommerce) Name() string {
	return "woocommerce"
}

// NotifyPayment posts the payment confirmation to the merchant site's admin-ajax endpoint.
func (w *WooCommerce) NotifyPayment(ctx context.Context, notice PaymentNotice) error {
	if notice.Order == nil || notice.Order.OrderConfirmation == nil || *notice.Order.OrderConfirmation == "" {
		return errors.New("woocommerce: order has no order key")
	}
	if notice.Merchant == nil || notice.Merchant.WooCommerceSiteURL == nil || *notice.Merchant.WooCommerceSiteURL == "" {
		return errors.New("woocommerce: merchant has no site url")
	}

	orderKey := *notice.Order.OrderConfirmation
	url := fmt.Sprintf("%s/wp-admin/admin-ajax.php", strings.TrimRight(*notice.Merchant.WooCommerceSiteURL, "/"))

	var result wooCommerceResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", notice.Merchant.APIKey).
		SetQueryParam("action", w.action).
		SetBody(wooCommerceRequest{
			OrderKey:      orderKey,
			TransactionID: notice.TxHash,
			APIKey:        notice.Merchant.APIKey,
		}).
		SetResult(&result).
		ForceContentType("application/json").
		Post(url)
	if err != nil {
		return errors.Wrap(err, "woocommerce: request failed")
	}
	if resp.IsError() {
		return errors.Errorf("woocommerce: status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	if !result.Success {
		return errors.Errorf("woocommerce: site rejected payment confirmation: %s", string(resp.Body()))
	}

	w.logger.Info("[WooCommerce][NotifyPayment] payment confirmed", map[string]string{
		"orderId":  notice.Order.ID,
		"orderKey": orderKey,
		"txHash":   notice.TxHash,
	})
	return nil
}
