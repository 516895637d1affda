package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusRefunded OrderStatus = "REFUNDED"
	OrderStatusExpired  OrderStatus = "EXPIRED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

type OrderType string

const (
	OrderTypeDirect      OrderType = "DIRECT"
	OrderTypeShopify     OrderType = "SHOPIFY"
	OrderTypeWooCommerce OrderType = "WOOCOMMERCE"
)

// Order is a merchant order awaiting (or having received) an on-chain payment.
// TransferHash, TransferLogIndex, CustomerWallet and PaidAt are written once, on the PENDING to PAID
// transition. One transaction may pay several orders, one per Transfer log.
type Order struct {
	ID                string          `json:"id" gorm:"column:id;type:varchar(64);primaryKey"`
	Status            OrderStatus     `json:"status" gorm:"column:status;type:varchar(20);not null;default:'PENDING';index:idx_orders_match,priority:2"`
	MerchantWallet    string          `json:"merchant_wallet" gorm:"column:merchant_wallet;type:varchar(42);not null;index:idx_orders_match,priority:1"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"column:total_amount;type:numeric(36,18);not null"`
	Type              OrderType       `json:"type" gorm:"column:type;type:varchar(20);not null;default:'DIRECT'"`
	OrderConfirmation *string         `json:"order_confirmation,omitempty" gorm:"column:order_confirmation;type:varchar(255)"`
	AdminGraphqlApiID *string         `json:"admin_graphql_api_id,omitempty" gorm:"column:admin_graphql_api_id;type:varchar(255)"`
	TransferHash      *string         `json:"transfer_hash,omitempty" gorm:"column:transfer_hash;type:varchar(66);uniqueIndex:idx_orders_transfer,priority:1"`
	TransferLogIndex  *uint           `json:"transfer_log_index,omitempty" gorm:"column:transfer_log_index;uniqueIndex:idx_orders_transfer,priority:2"`
	CustomerWallet    *string         `json:"customer_wallet,omitempty" gorm:"column:customer_wallet;type:varchar(42)"`
	PaidAt            *time.Time      `json:"paid_at,omitempty" gorm:"column:paid_at"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty" gorm:"column:expires_at"`
	CreatedAt         time.Time       `json:"created_at" gorm:"column:created_at;index:idx_orders_match,priority:3"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.MerchantWallet = strings.ToLower(o.MerchantWallet)
	return nil
}

func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}
