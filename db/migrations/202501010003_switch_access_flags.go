package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

type accessFlagsSwitch struct {
	Password   *string
	Disabled   bool `gorm:"not null;default:false"`
	Disposable bool `gorm:"not null;default:true"`
}

func (accessFlagsSwitch) TableName() string { return "switches" }

var _202501010003_switch_access_flags = &gormigrate.Migration{
	ID: "202501010003_switch_access_flags",
	Migrate: func(tx *gorm.DB) error {
		return addColumns(tx, &accessFlagsSwitch{}, "Password", "Disabled", "Disposable")
	},
	Rollback: func(tx *gorm.DB) error {
		return dropColumns(tx, &accessFlagsSwitch{}, "Password", "Disabled", "Disposable")
	},
}
