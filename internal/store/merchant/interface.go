package merchant

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type IStore interface {
	GetByWallet(tx *gorm.DB, wallet string) (*model.Merchant, error)
}
