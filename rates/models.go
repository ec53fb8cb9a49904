package rates

import (
	"context"
	"time"

	"github.com/flokiorg/bitcoinswitch/db"
)

type FiatService interface {
	GetBtcRate(ctx context.Context, currency string) (float64, error)
	FiatAmountToSats(ctx context.Context, amount float64, currency string) (uint64, error)
	GetCurrencies(ctx context.Context) ([]string, error)
}

type RateService interface {
	GetCurrentRate(ctx context.Context, assetID string, walletID string, userID string, quantity uint64) (float64, bool)
	IsRateWithinTolerance(quotedRate float64, currentRate float64, tolerance *float64) bool
	IsRateExpired(quotedAt *time.Time) bool
	CalculateAssetAmountWithRFQ(ctx context.Context, pin db.PinConfig, amountMsat uint64, assetID string, wallet *db.Wallet) (assetAmount uint64, rate float64)
}

// WalletLookup resolves the wallet whose admin key authenticates calls to the
// taproot assets service.
type WalletLookup interface {
	GetWallet(ctx context.Context, id string) (*db.Wallet, error)
}

// response of RATES_URL, coinbase exchange-rates format
type exchangeRatesResponse struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}

type assetRateResponse struct {
	RatePerUnit float64 `json:"rate_per_unit"`
	Error       string  `json:"error,omitempty"`
}
