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

const DefaultShopifyAPIVersion = "2024-01"

const orderMarkAsPaidMutation = `mutation orderMarkAsPaid($input: OrderMarkAsPaidInput!) {
  orderMarkAsPaid(input: $input) {
    userErrors {
      field
      message
    }
    order {
      id
      displayFinancialStatus
    }
  }
}`

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type shopifyUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type shopifyResponse struct {
	Data struct {
		OrderMarkAsPaid *struct {
			UserErrors []shopifyUserError `json:"userErrors"`
			Order      *struct {
				ID                     string `json:"id"`
				DisplayFinancialStatus string `json:"displayFinancialStatus"`
			} `json:"order"`
		} `json:"orderMarkAsPaid"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type Shopify struct {
	client     *resty.Client
	apiVersion string
	logger     *logger.Logger

	// endpoint builds the admin GraphQL URL for a shop domain
	endpoint func(shopDomain, apiVersion string) string
}

func NewShopify(timeout time.Duration, apiVersion string, logger *logger.Logger) *Shopify {
	if apiVersion == "" {
		apiVersion = DefaultShopifyAPIVersion
	}
	return &Shopify{
		client:     resty.New().SetTimeout(timeout),
		apiVersion: apiVersion,
		logger:     logger,
		endpoint:   shopifyAdminEndpoint,
	}
}

func shopifyAdminEndpoint(shopDomain, apiVersion string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, apiVersion)
}

func (s *Shopify) Name() string {
	return "shopify"
}

// NotifyPayment runs the orderMarkAsPaid mutation against the shop's Admin API.
func (s *Shopify) NotifyPayment(ctx context.Context, notice PaymentNotice) error {
	if notice.Order == nil || notice.Order.AdminGraphqlApiID == nil || *notice.Order.AdminGraphqlApiID == "" {
		return errors.New("shopify: order has no admin graphql id")
	}
	m := notice.Merchant
	if m == nil || m.ShopifyShopDomain == nil || *m.ShopifyShopDomain == "" || m.ShopifyAccessToken == nil || *m.ShopifyAccessToken == "" {
		return errors.New("shopify: merchant has no shop credentials")
	}

	gid := *notice.Order.AdminGraphqlApiID
	var result shopifyResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Access-Token", *m.ShopifyAccessToken).
		SetBody(graphqlRequest{
			Query:     orderMarkAsPaidMutation,
			Variables: map[string]interface{}{"input": map[string]string{"id": gid}},
		}).
		SetResult(&result).
		ForceContentType("application/json").
		Post(s.endpoint(*m.ShopifyShopDomain, s.apiVersion))
	if err != nil {
		return errors.Wrap(err, "shopify: request failed")
	}
	if resp.IsError() {
		return errors.Errorf("shopify: status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	if len(result.Errors) > 0 {
		return errors.Errorf("shopify: graphql error: %s", result.Errors[0].Message)
	}
	if result.Data.OrderMarkAsPaid == nil {
		return errors.New("shopify: empty orderMarkAsPaid payload")
	}
	if userErrs := result.Data.OrderMarkAsPaid.UserErrors; len(userErrs) > 0 {
		return errors.Errorf("shopify: %s (%s)", userErrs[0].Message, strings.Join(userErrs[0].Field, "."))
	}

	s.logger.Info("[Shopify][NotifyPayment] order marked as paid", map[string]string{
		"orderId": notice.Order.ID,
		"gid":     gid,
		"txHash":  notice.TxHash,
	})
	return nil
}
