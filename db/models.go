package db

import (
	"time"

	"gorm.io/datatypes"
)

type UserConfig struct {
	ID        uint
	Key       string `gorm:"unique;not null"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Wallet struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index;not null"`
	Name       string
	AdminKey   string `gorm:"unique;not null"`
	InvoiceKey string `gorm:"unique;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type PinConfig struct {
	Pin              int      `json:"pin"`
	Amount           float64  `json:"amount"`
	Duration         int      `json:"duration"`
	Comment          bool     `json:"comment"`
	Variable         bool     `json:"variable"`
	Label            *string  `json:"label,omitempty"`
	AcceptsAssets    bool     `json:"accepts_assets"`
	AcceptedAssetIDs []string `json:"accepted_asset_ids"`
	AssetAmount      float64  `json:"asset_amount"`
}

type Switch struct {
	ID         string `gorm:"primaryKey"`
	Key        string `gorm:"not null"`
	Title      string `gorm:"not null"`
	Wallet     string `gorm:"index;not null"`
	Currency   string `gorm:"not null"`
	Switches   datatypes.JSONSlice[PinConfig]
	Password   *string
	Disabled   bool
	Disposable bool
	Npub       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SwitchPayment struct {
	ID             string `gorm:"primaryKey"`
	SwitchID       string `gorm:"index;not null"`
	Pin            int
	AmountMsat     uint64 `gorm:"column:amount_msat"`
	PaymentHash    string `gorm:"index"`
	Payload        string
	Comment        *string
	IsAssetPayment bool
	AssetID        *string
	AssetAmount    *uint64
	QuotedRate     *float64
	QuotedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Transaction struct {
	ID              uint
	WalletID        string `gorm:"index"`
	Type            string
	State           string
	AmountMsat      uint64 `gorm:"column:amount_msat"`
	PaymentRequest  string
	PaymentHash     string `gorm:"uniqueIndex"`
	Description     string
	DescriptionHash string
	Preimage        *string
	CheckingID      string
	CreatedAt       time.Time
	ExpiresAt       *time.Time
	UpdatedAt       time.Time
	SettledAt       *time.Time
	Metadata        datatypes.JSON
}
