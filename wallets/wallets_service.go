package wallets

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/db/queries"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/utils"
)

type KeyType string

const (
	KeyTypeAdmin   KeyType = "admin"
	KeyTypeInvoice KeyType = "invoice"
)

const defaultWalletName = "Bitcoin Switch"

var ErrWalletNotFound = errors.New("wallet not found")

type WalletsService interface {
	GetWallet(ctx context.Context, id string) (*db.Wallet, error)
	GetWalletByKey(ctx context.Context, key string) (*db.Wallet, KeyType, error)
	ListUserWalletIDs(ctx context.Context, userID string) ([]string, error)
	CreateWallet(ctx context.Context, userID string, name string) (*db.Wallet, error)
	EnsureDefaultWallet(ctx context.Context) (*db.Wallet, bool, error)
	GetBalance(ctx context.Context, walletID string) int64
}

type walletsService struct {
	db *gorm.DB
}

func NewWalletsService(db *gorm.DB) *walletsService {
	return &walletsService{db: db}
}

func (svc *walletsService) GetWallet(ctx context.Context, id string) (*db.Wallet, error) {
	var wallet db.Wallet
	result := svc.db.WithContext(ctx).Limit(1).Find(&wallet, &db.Wallet{ID: id})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrWalletNotFound
	}
	return &wallet, nil
}

// GetWalletByKey resolves an API key to its wallet and reports which of the
// wallet's keys it is.
func (svc *walletsService) GetWalletByKey(ctx context.Context, key string) (*db.Wallet, KeyType, error) {
	if key == "" {
		return nil, "", ErrWalletNotFound
	}

	var wallet db.Wallet
	result := svc.db.WithContext(ctx).
		Where("admin_key = ? OR invoice_key = ?", key, key).
		Limit(1).
		Find(&wallet)
	if result.Error != nil {
		return nil, "", result.Error
	}
	if result.RowsAffected == 0 {
		return nil, "", ErrWalletNotFound
	}

	if wallet.AdminKey == key {
		return &wallet, KeyTypeAdmin, nil
	}
	return &wallet, KeyTypeInvoice, nil
}

func (svc *walletsService) ListUserWalletIDs(ctx context.Context, userID string) ([]string, error) {
	walletIDs := []string{}
	err := svc.db.WithContext(ctx).
		Model(&db.Wallet{}).
		Where(&db.Wallet{UserID: userID}).
		Order("id").
		Pluck("id", &walletIDs).Error
	if err != nil {
		return nil, err
	}
	return walletIDs, nil
}

func (svc *walletsService) CreateWallet(ctx context.Context, userID string, name string) (*db.Wallet, error) {
	wallet := db.Wallet{
		ID:         utils.NewShortID(),
		UserID:     userID,
		Name:       name,
		AdminKey:   utils.NewApiKey(),
		InvoiceKey: utils.NewApiKey(),
	}
	if err := svc.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return &wallet, nil
}

// EnsureDefaultWallet creates a wallet for a fresh user when none exists yet.
// The boolean reports whether it was created by this call.
func (svc *walletsService) EnsureDefaultWallet(ctx context.Context) (*db.Wallet, bool, error) {
	var wallet db.Wallet
	result := svc.db.WithContext(ctx).Order("created_at").Limit(1).Find(&wallet)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return &wallet, false, nil
	}

	created, err := svc.CreateWallet(ctx, utils.NewShortID(), defaultWalletName)
	if err != nil {
		return nil, false, err
	}

	logger.Logger.Info().
		Str("wallet_id", created.ID).
		Str("admin_key", created.AdminKey).
		Str("invoice_key", created.InvoiceKey).
		Msg("Created default wallet")

	return created, true, nil
}

func (svc *walletsService) GetBalance(ctx context.Context, walletID string) int64 {
	return queries.GetWalletBalance(svc.db.WithContext(ctx), walletID)
}
