package taproot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/pkg/version"
)

type liveIntegration struct {
	baseUrl    string
	httpClient *http.Client
}

func NewLiveIntegration(baseUrl string, timeout time.Duration) Integration {
	return &liveIntegration{
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (i *liveIntegration) IsAvailable(ctx context.Context) (bool, *Error) {
	req, err := http.NewRequestWithContext(ctx, "GET", i.baseUrl+"/api/v1/extensions", nil)
	if err != nil {
		return false, checkFailedError(err)
	}
	setDefaultRequestHeaders(req)

	res, err := i.httpClient.Do(req)
	if err != nil {
		taprootErr := checkFailedError(err)
		logger.Logger.Warn().Err(taprootErr).Msg("Taproot availability check failed")
		return false, taprootErr
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		taprootErr := checkFailedError(fmt.Errorf("extensions endpoint returned status %d", res.StatusCode))
		logger.Logger.Warn().Err(taprootErr).Msg("Taproot availability check failed")
		return false, taprootErr
	}

	var extensions []extension
	if err := json.NewDecoder(res.Body).Decode(&extensions); err != nil {
		return false, checkFailedError(err)
	}

	installed := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext.ID == constants.TAPROOT_EXTENSION_ID && ext.Active {
			return true, nil
		}
		installed = append(installed, ext.ID)
	}
	return false, notAvailableError(installed)
}

func (i *liveIntegration) CreateRFQInvoice(ctx context.Context, req *RFQInvoiceRequest) (*RFQInvoice, *Error) {
	if req.AssetID == "" {
		return nil, &Error{Code: ErrCodeInvalidAssetID, Message: "Asset ID is required"}
	}
	if req.Amount == 0 {
		return nil, &Error{
			Code:    ErrCodeInvalidAmount,
			Message: "Amount must be greater than 0",
			Details: map[string]interface{}{"amount": req.Amount},
		}
	}

	if available, taprootErr := i.IsAvailable(ctx); !available {
		return nil, taprootErr
	}

	payload, err := json.Marshal(&invoiceRequest{
		AssetID:     req.AssetID,
		Amount:      req.Amount,
		Description: req.Description,
		Expiry:      req.Expiry,
		PeerPubkey:  req.PeerPubkey,
		Extra:       req.Extra,
	})
	if err != nil {
		return nil, rfqFailedError(err, req)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", i.baseUrl+"/taproot_assets/api/v1/taproot/invoice", bytes.NewReader(payload))
	if err != nil {
		return nil, rfqFailedError(err, req)
	}
	setDefaultRequestHeaders(httpReq)
	httpReq.Header.Set("X-Api-Key", req.AdminKey)

	res, err := i.httpClient.Do(httpReq)
	if err != nil {
		return nil, rfqFailedError(err, req)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, rfqFailedError(err, req)
	}

	if res.StatusCode >= 300 {
		return nil, rfqFailedError(fmt.Errorf("invoice endpoint returned status %d: %s", res.StatusCode, string(body)), req)
	}

	var response invoiceResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, rfqFailedError(err, req)
	}
	if response.PaymentRequest == "" || response.PaymentHash == "" {
		return nil, rfqFailedError(fmt.Errorf("incomplete invoice response: %s", string(body)), req)
	}

	checkingID := response.CheckingID
	if checkingID == "" {
		checkingID = response.PaymentHash
	}

	logger.Logger.Info().
		Str("asset_id", req.AssetID).
		Uint64("amount", req.Amount).
		Str("payment_hash", response.PaymentHash).
		Msg("Created RFQ invoice")

	return &RFQInvoice{
		PaymentHash:    response.PaymentHash,
		PaymentRequest: response.PaymentRequest,
		CheckingID:     checkingID,
		IsRFQ:          true,
	}, nil
}

func checkFailedError(err error) *Error {
	return &Error{
		Code:    ErrCodeCheckFailed,
		Message: "Failed to check taproot availability",
		Details: map[string]interface{}{"error": err.Error()},
	}
}

func rfqFailedError(err error, req *RFQInvoiceRequest) *Error {
	taprootErr := &Error{
		Code:    ErrCodeRFQFailed,
		Message: "Failed to create RFQ invoice",
		Details: map[string]interface{}{
			"error":     err.Error(),
			"asset_id":  req.AssetID,
			"amount":    req.Amount,
			"wallet_id": req.WalletID,
		},
	}
	logger.Logger.Error().Err(taprootErr).Interface("details", taprootErr.Details).Msg("RFQ invoice creation failed")
	return taprootErr
}

func setDefaultRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "bitcoinswitch/"+version.Tag)
	req.Header.Set("Content-Type", "application/json")
}
