package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/db"
)

var _202501010005_wallets_and_transactions = &gormigrate.Migration{
	ID: "202501010005_wallets_and_transactions",
	Migrate: func(tx *gorm.DB) error {
		return tx.AutoMigrate(&db.UserConfig{}, &db.Wallet{}, &db.Transaction{})
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(&db.Transaction{}, &db.Wallet{}, &db.UserConfig{})
	},
}
