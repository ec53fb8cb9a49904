package taproot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaprootServer(t *testing.T, extensions string, invoiceHandler http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/extensions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(extensions))
	})
	if invoiceHandler != nil {
		mux.HandleFunc("/taproot_assets/api/v1/taproot/invoice", invoiceHandler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestIsAvailable_ActiveExtension(t *testing.T) {
	server := newTaprootServer(t, `[{"id":"tpos","active":true},{"id":"taproot_assets","active":true}]`, nil)
	integration := NewLiveIntegration(server.URL, time.Second)

	available, taprootErr := integration.IsAvailable(context.Background())
	assert.True(t, available)
	assert.Nil(t, taprootErr)
}

func TestIsAvailable_InactiveExtension(t *testing.T) {
	server := newTaprootServer(t, `[{"id":"tpos","active":true},{"id":"taproot_assets","active":false}]`, nil)
	integration := NewLiveIntegration(server.URL, time.Second)

	available, taprootErr := integration.IsAvailable(context.Background())
	assert.False(t, available)
	require.NotNil(t, taprootErr)
	assert.Equal(t, ErrCodeNotAvailable, taprootErr.Code)
	assert.Equal(t, []string{"tpos", "taproot_assets"}, taprootErr.Details["installed_extensions"])
}

func TestIsAvailable_Unreachable(t *testing.T) {
	server := newTaprootServer(t, `[]`, nil)
	server.Close()
	integration := NewLiveIntegration(server.URL, time.Second)

	available, taprootErr := integration.IsAvailable(context.Background())
	assert.False(t, available)
	require.NotNil(t, taprootErr)
	assert.Equal(t, ErrCodeCheckFailed, taprootErr.Code)
}

func TestCreateRFQInvoice_Validation(t *testing.T) {
	integration := NewLiveIntegration("http://127.0.0.1:1", time.Second)

	_, taprootErr := integration.CreateRFQInvoice(context.Background(), &RFQInvoiceRequest{Amount: 10})
	require.NotNil(t, taprootErr)
	assert.Equal(t, ErrCodeInvalidAssetID, taprootErr.Code)

	_, taprootErr = integration.CreateRFQInvoice(context.Background(), &RFQInvoiceRequest{AssetID: "abcd"})
	require.NotNil(t, taprootErr)
	assert.Equal(t, ErrCodeInvalidAmount, taprootErr.Code)
}

func TestCreateRFQInvoice_Success(t *testing.T) {
	var received invoiceRequest
	var apiKey string
	server := newTaprootServer(t, `[{"id":"taproot_assets","active":true}]`, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		apiKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payment_hash":"hash123","payment_request":"lnbc1rfq","checking_id":""}`))
	})
	integration := NewLiveIntegration(server.URL+"/", time.Second)

	expiry := uint64(3600)
	invoice, taprootErr := integration.CreateRFQInvoice(context.Background(), &RFQInvoiceRequest{
		AssetID:     "asset1",
		Amount:      25,
		Description: "switch",
		WalletID:    "wallet1",
		AdminKey:    "adminkey",
		Expiry:      &expiry,
		Extra:       map[string]interface{}{"tag": "Switch"},
	})
	require.Nil(t, taprootErr)
	require.NotNil(t, invoice)

	assert.Equal(t, "adminkey", apiKey)
	assert.Equal(t, "asset1", received.AssetID)
	assert.Equal(t, uint64(25), received.Amount)
	assert.Equal(t, uint64(3600), *received.Expiry)
	assert.Equal(t, "Switch", received.Extra["tag"])

	assert.Equal(t, "hash123", invoice.PaymentHash)
	assert.Equal(t, "lnbc1rfq", invoice.PaymentRequest)
	assert.Equal(t, "hash123", invoice.CheckingID)
	assert.True(t, invoice.IsRFQ)
}

func TestCreateRFQInvoice_ServiceError(t *testing.T) {
	server := newTaprootServer(t, `[{"id":"taproot_assets","active":true}]`, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route to peer", http.StatusBadRequest)
	})
	integration := NewLiveIntegration(server.URL, time.Second)

	invoice, taprootErr := integration.CreateRFQInvoice(context.Background(), &RFQInvoiceRequest{
		AssetID:  "asset1",
		Amount:   25,
		WalletID: "wallet1",
	})
	assert.Nil(t, invoice)
	require.NotNil(t, taprootErr)
	assert.Equal(t, ErrCodeRFQFailed, taprootErr.Code)
	assert.Equal(t, "asset1", taprootErr.Details["asset_id"])
	assert.Equal(t, "RFQ_CREATION_FAILED: Failed to create RFQ invoice", taprootErr.Error())
}

func TestUnavailableIntegration(t *testing.T) {
	integration := NewUnavailableIntegration()

	available, taprootErr := integration.IsAvailable(context.Background())
	assert.False(t, available)
	assert.Equal(t, ErrCodeNotAvailable, taprootErr.Code)

	invoice, taprootErr := integration.CreateRFQInvoice(context.Background(), &RFQInvoiceRequest{AssetID: "a", Amount: 1})
	assert.Nil(t, invoice)
	assert.Equal(t, ErrCodeNotAvailable, taprootErr.Code)
}
