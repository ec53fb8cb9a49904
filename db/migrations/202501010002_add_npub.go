package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/db"
)

var _202501010002_add_npub = &gormigrate.Migration{
	ID: "202501010002_add_npub",
	Migrate: func(tx *gorm.DB) error {
		return addColumns(tx, &db.Switch{}, "Npub")
	},
	Rollback: func(tx *gorm.DB) error {
		return dropColumns(tx, &db.Switch{}, "Npub")
	},
}
