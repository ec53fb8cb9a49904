package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/tests/mocks"
)

type stubWallets struct {
	wallet *db.Wallet
}

func (s *stubWallets) GetWallet(ctx context.Context, id string) (*db.Wallet, error) {
	if s.wallet == nil || s.wallet.ID != id {
		return nil, errors.New("wallet not found")
	}
	return s.wallet, nil
}

var testWallet = &db.Wallet{ID: "wallet-1", UserID: "user-1", AdminKey: "admin-key", InvoiceKey: "invoice-key"}

func newTestRateService(t *testing.T, taprootUrl string) *rateService {
	env := config.NewDefaultAppConfig()
	env.TaprootAssetsUrl = taprootUrl
	env.HttpTimeoutSeconds = 1

	cfg := mocks.NewMockConfig(t)
	cfg.On("GetEnv").Return(env).Maybe()

	return NewRateService(cfg, &stubWallets{wallet: testWallet})
}

func TestIsRateWithinTolerance(t *testing.T) {
	svc := newTestRateService(t, "")

	assert.True(t, svc.IsRateWithinTolerance(100, 104, nil))
	assert.True(t, svc.IsRateWithinTolerance(100, 95, nil))
	assert.False(t, svc.IsRateWithinTolerance(100, 106, nil))
	assert.False(t, svc.IsRateWithinTolerance(0, 100, nil))
	assert.False(t, svc.IsRateWithinTolerance(-1, 100, nil))

	tight := 0.01
	assert.False(t, svc.IsRateWithinTolerance(100, 102, &tight))
	loose := 0.5
	assert.True(t, svc.IsRateWithinTolerance(100, 140, &loose))
}

func TestIsRateExpired(t *testing.T) {
	svc := newTestRateService(t, "")
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	assert.True(t, svc.IsRateExpired(nil))

	fresh := now.Add(-4 * time.Minute)
	assert.False(t, svc.IsRateExpired(&fresh))

	stale := now.Add(-6 * time.Minute)
	assert.True(t, svc.IsRateExpired(&stale))

	// same instant expressed in another zone
	berlin := time.FixedZone("CET", 3600)
	freshLocal := fresh.In(berlin)
	assert.False(t, svc.IsRateExpired(&freshLocal))
}

func TestGetCurrentRate(t *testing.T) {
	var requestedPath, requestedAmount, apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		requestedAmount = r.URL.Query().Get("amount")
		apiKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rate_per_unit": 250.5}`))
	}))
	defer server.Close()

	svc := newTestRateService(t, server.URL)

	rate, ok := svc.GetCurrentRate(context.Background(), "asset-1", "wallet-1", "user-1", 10)
	require.True(t, ok)
	assert.Equal(t, 250.5, rate)
	assert.Equal(t, "/taproot_assets/api/v1/taproot/rate/asset-1", requestedPath)
	assert.Equal(t, "10", requestedAmount)
	assert.Equal(t, "admin-key", apiKey)
}

func TestGetCurrentRate_Failures(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		rate, ok := newTestRateService(t, server.URL).GetCurrentRate(context.Background(), "asset-1", "wallet-1", "user-1", 1)
		assert.False(t, ok)
		assert.Zero(t, rate)
	})

	t.Run("missing rate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error": "no peer"}`))
		}))
		defer server.Close()

		_, ok := newTestRateService(t, server.URL).GetCurrentRate(context.Background(), "asset-1", "wallet-1", "user-1", 1)
		assert.False(t, ok)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		var called atomic.Bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called.Store(true)
		}))
		defer server.Close()

		_, ok := newTestRateService(t, server.URL).GetCurrentRate(context.Background(), "asset-1", "nope", "user-1", 1)
		assert.False(t, ok)
		assert.False(t, called.Load())
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, ok := newTestRateService(t, server.URL).GetCurrentRate(context.Background(), "asset-1", "wallet-1", "user-1", 1)
		assert.False(t, ok)
	})

	t.Run("not configured", func(t *testing.T) {
		_, ok := newTestRateService(t, "").GetCurrentRate(context.Background(), "asset-1", "wallet-1", "user-1", 1)
		assert.False(t, ok)
	})
}

func TestCalculateAssetAmountWithRFQ(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rate_per_unit": 30}`))
	}))
	defer server.Close()

	svc := newTestRateService(t, server.URL)
	pin := db.PinConfig{Pin: 5, AssetAmount: 7}

	amount, rate := svc.CalculateAssetAmountWithRFQ(context.Background(), pin, 100_000, "asset-1", testWallet)
	assert.Equal(t, uint64(3), amount)
	assert.Equal(t, float64(30), rate)

	// never below one unit
	amount, _ = svc.CalculateAssetAmountWithRFQ(context.Background(), pin, 1_000, "asset-1", testWallet)
	assert.Equal(t, uint64(1), amount)
}

func TestCalculateAssetAmountWithRFQ_FallsBackToStaticAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := newTestRateService(t, server.URL)
	pin := db.PinConfig{Pin: 5, AssetAmount: 7}

	amount, rate := svc.CalculateAssetAmountWithRFQ(context.Background(), pin, 100_000, "asset-1", testWallet)
	assert.Equal(t, uint64(7), amount)
	assert.Zero(t, rate)
}
