package store

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DoInTx runs fn in a transaction. A returned error or a panic rolls it back;
// the panic is re-raised after the rollback.
func DoInTx(db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(fmt.Sprintf("transaction rolled back: %v", r))
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	return errors.Wrap(tx.Commit().Error, "commit transaction")
}
