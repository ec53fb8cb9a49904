package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/logger"
)

type rateService struct {
	cfg        config.Config
	wallets    WalletLookup
	httpClient *http.Client
	now        func() time.Time
}

func NewRateService(cfg config.Config, wallets WalletLookup) *rateService {
	return &rateService{
		cfg:        cfg,
		wallets:    wallets,
		httpClient: &http.Client{Timeout: cfg.GetEnv().HttpTimeout()},
		now:        time.Now,
	}
}

// GetCurrentRate asks the taproot assets service for the price of one unit of
// assetID in sats, quoted for quantity units. Failures are logged and reported
// as (0, false).
func (svc *rateService) GetCurrentRate(ctx context.Context, assetID string, walletID string, userID string, quantity uint64) (float64, bool) {
	baseUrl := strings.TrimSuffix(svc.cfg.GetEnv().TaprootAssetsUrl, "/")
	if baseUrl == "" {
		logger.Logger.Debug().Str("asset_id", assetID).Msg("No taproot assets service configured, skipping rate lookup")
		return 0, false
	}

	wallet, err := svc.wallets.GetWallet(ctx, walletID)
	if err != nil || wallet == nil {
		logger.Logger.Error().Err(err).Str("wallet_id", walletID).Msg("Wallet not found for rate lookup")
		return 0, false
	}

	if quantity == 0 {
		quantity = 1
	}

	rateUrl := fmt.Sprintf("%s/taproot_assets/api/v1/taproot/rate/%s?amount=%d", baseUrl, url.PathEscape(assetID), quantity)
	req, err := http.NewRequestWithContext(ctx, "GET", rateUrl, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Str("asset_id", assetID).Msg("Error creating request to rate endpoint")
		return 0, false
	}
	setDefaultRequestHeaders(req)
	req.Header.Set("X-Api-Key", wallet.AdminKey)

	res, err := svc.httpClient.Do(req)
	if err != nil {
		logger.Logger.Error().Err(err).Str("asset_id", assetID).Msg("Failed to fetch asset rate")
		return 0, false
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		logger.Logger.Error().Err(err).Str("asset_id", assetID).Msg("Failed to read response body")
		return 0, false
	}

	if res.StatusCode != http.StatusOK {
		logger.Logger.Error().
			Str("asset_id", assetID).
			Int("status_code", res.StatusCode).
			Str("body", string(body)).
			Msg("Rate endpoint returned non-success code")
		return 0, false
	}

	var response assetRateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		logger.Logger.Error().Err(err).Str("body", string(body)).Msg("Failed to decode rate response")
		return 0, false
	}

	if response.RatePerUnit <= 0 {
		logger.Logger.Warn().Str("asset_id", assetID).Str("error", response.Error).Msg("No rate returned from rate endpoint")
		return 0, false
	}

	logger.Logger.Debug().
		Str("asset_id", assetID).
		Uint64("quantity", quantity).
		Float64("rate_per_unit", response.RatePerUnit).
		Str("user_id", userID).
		Msg("Got asset rate")

	return response.RatePerUnit, true
}

// IsRateWithinTolerance reports whether current deviates from quoted by at most
// tolerance (a fraction, 0.05 = 5%). A nil tolerance uses the configured one.
func (svc *rateService) IsRateWithinTolerance(quotedRate float64, currentRate float64, tolerance *float64) bool {
	if quotedRate <= 0 {
		return false
	}

	allowed := svc.cfg.GetEnv().RateTolerance
	if tolerance != nil {
		allowed = *tolerance
	}

	deviation := math.Abs(currentRate-quotedRate) / quotedRate
	withinTolerance := deviation <= allowed

	logger.Logger.Debug().
		Float64("quoted", quotedRate).
		Float64("current", currentRate).
		Float64("deviation", deviation).
		Float64("tolerance", allowed).
		Bool("within_tolerance", withinTolerance).
		Msg("Rate tolerance check")

	return withinTolerance
}

// IsRateExpired reports whether a quote taken at quotedAt is older than the
// configured validity. A missing timestamp counts as expired.
func (svc *rateService) IsRateExpired(quotedAt *time.Time) bool {
	if quotedAt == nil || quotedAt.IsZero() {
		return true
	}

	age := svc.now().UTC().Sub(quotedAt.UTC())
	return age > svc.cfg.GetEnv().RateValidity()
}

// CalculateAssetAmountWithRFQ sizes an asset payment for amountMsat. With a
// positive live rate the amount is floor(sats / rate), at least 1; otherwise the
// pin's static asset amount is used.
func (svc *rateService) CalculateAssetAmountWithRFQ(ctx context.Context, pin db.PinConfig, amountMsat uint64, assetID string, wallet *db.Wallet) (uint64, float64) {
	staticAmount := uint64(math.Max(pin.AssetAmount, 0))
	if wallet == nil {
		return staticAmount, 0
	}

	sats := float64(amountMsat) / 1000
	quantity := uint64(math.Max(pin.AssetAmount, 1))

	rate, ok := svc.GetCurrentRate(ctx, assetID, wallet.ID, wallet.UserID, quantity)
	if !ok || rate <= 0 {
		logger.Logger.Info().
			Str("asset_id", assetID).
			Uint64("asset_amount", staticAmount).
			Msg("Using static asset amount")
		return staticAmount, 0
	}

	assetAmount := uint64(math.Max(1, math.Floor(sats/rate)))
	logger.Logger.Info().
		Str("asset_id", assetID).
		Float64("sats", sats).
		Float64("rate", rate).
		Uint64("asset_amount", assetAmount).
		Msg("Calculated asset amount from RFQ rate")

	return assetAmount, rate
}
