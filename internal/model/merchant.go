package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Merchant struct {
	ID                 uint      `json:"id" gorm:"column:id;primaryKey"`
	WalletAddress      string    `json:"wallet_address" gorm:"column:wallet_address;type:varchar(42);not null;uniqueIndex"`
	APIKey             string    `json:"-" gorm:"column:api_key;type:varchar(255)"`
	WooCommerceSiteURL *string   `json:"woocommerce_site_url,omitempty" gorm:"column:woocommerce_site_url;type:varchar(255)"`
	ShopifyShopDomain  *string   `json:"shopify_shop_domain,omitempty" gorm:"column:shopify_shop_domain;type:varchar(255)"`
	ShopifyAccessToken *string   `json:"-" gorm:"column:shopify_access_token;type:varchar(255)"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Merchant) TableName() string {
	return "merchants"
}

func (m *Merchant) BeforeSave(tx *gorm.DB) error {
	m.WalletAddress = strings.ToLower(m.WalletAddress)
	return nil
}
