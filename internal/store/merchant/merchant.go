package merchant

import (
	"strings"

	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type store struct {
}

func New() IStore {
	return &store{}
}

func (s *store) GetByWallet(tx *gorm.DB, wallet string) (*model.Merchant, error) {
	var merchant model.Merchant
	err := tx.Where("wallet_address = ?", strings.ToLower(wallet)).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}
