package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// table shapes as they were first shipped; later migrations add columns
type initialSwitch struct {
	ID        string `gorm:"primaryKey"`
	Key       string `gorm:"not null"`
	Title     string `gorm:"not null"`
	Wallet    string `gorm:"index;not null"`
	Currency  string `gorm:"not null"`
	Switches  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (initialSwitch) TableName() string { return "switches" }

type initialSwitchPayment struct {
	ID          string `gorm:"primaryKey"`
	SwitchID    string `gorm:"index;not null"`
	PaymentHash string `gorm:"index"`
	Payload     string `gorm:"not null"`
	Pin         int
	AmountMsat  uint64 `gorm:"column:amount_msat"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (initialSwitchPayment) TableName() string { return "switch_payments" }

var _202501010001_initial = &gormigrate.Migration{
	ID: "202501010001_initial",
	Migrate: func(tx *gorm.DB) error {
		return tx.Migrator().CreateTable(&initialSwitch{}, &initialSwitchPayment{})
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(&initialSwitchPayment{}, &initialSwitch{})
	},
}
