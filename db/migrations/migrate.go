package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(gormDB *gorm.DB) error {
	m := gormigrate.New(gormDB, gormigrate.DefaultOptions, []*gormigrate.Migration{
		_202501010001_initial,
		_202501010002_add_npub,
		_202501010003_switch_access_flags,
		_202501010004_asset_payments,
		_202501010005_wallets_and_transactions,
	})

	return m.Migrate()
}

func addColumns(tx *gorm.DB, model interface{}, fields ...string) error {
	for _, field := range fields {
		if tx.Migrator().HasColumn(model, field) {
			continue
		}
		if err := tx.Migrator().AddColumn(model, field); err != nil {
			return err
		}
	}
	return nil
}

func dropColumns(tx *gorm.DB, model interface{}, fields ...string) error {
	for _, field := range fields {
		if !tx.Migrator().HasColumn(model, field) {
			continue
		}
		if err := tx.Migrator().DropColumn(model, field); err != nil {
			return err
		}
	}
	return nil
}
