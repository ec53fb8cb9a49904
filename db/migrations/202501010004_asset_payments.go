package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/db"
)

var assetPaymentColumns = []string{
	"Comment",
	"IsAssetPayment",
	"AssetID",
	"AssetAmount",
	"QuotedRate",
	"QuotedAt",
}

var _202501010004_asset_payments = &gormigrate.Migration{
	ID: "202501010004_asset_payments",
	Migrate: func(tx *gorm.DB) error {
		return addColumns(tx, &db.SwitchPayment{}, assetPaymentColumns...)
	},
	Rollback: func(tx *gorm.DB) error {
		return dropColumns(tx, &db.SwitchPayment{}, assetPaymentColumns...)
	},
}
