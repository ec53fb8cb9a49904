package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/metrics"
	"github.com/flokiorg/bitcoinswitch/switches"
	"github.com/flokiorg/bitcoinswitch/taproot"
	"github.com/flokiorg/bitcoinswitch/transactions"
)

const (
	lnurlPayTag          = "payRequest"
	successActionMessage = "message"
)

// LnurlParams answers the first LNURL-pay step for a pin and opens a pending
// payment for it.
func (api *api) LnurlParams(ctx context.Context, switchID string, req *LnurlParamsRequest) (*LnurlPayResponse, error) {
	sw, err := api.switchesService.GetSwitch(ctx, switchID)
	if err != nil {
		if switches.IsNotFound(err) {
			return nil, notFound("bitcoinswitch %s not found on this server", switchID)
		}
		return nil, internal(err, "Failed to get switch")
	}
	if sw.Disabled {
		return nil, badRequest("Switch is disabled")
	}

	pinNumber, err := strconv.Atoi(req.Pin)
	if err != nil {
		return nil, badRequest("Invalid pin")
	}
	pin, ok := switches.FindPin(sw, pinNumber)
	if !ok {
		return nil, notFound("Pin not found")
	}
	if !extraParamsMatch(pin, req) {
		return nil, badRequest("Extra params wrong")
	}
	if !sw.Disposable && !api.broadcaster.HasSubscribers(sw.ID) {
		return nil, badRequest("Switch is not connected")
	}

	priceMsat, err := switches.PriceMsat(ctx, api.fiatService, sw.Currency, pin.Amount)
	if err != nil {
		logger.Logger.Error().Err(err).Str("switch_id", sw.ID).Msg("Failed to price pin")
		return nil, upstream(err, "Could not price this switch")
	}

	metadata, err := lnurlMetadata(sw)
	if err != nil {
		return nil, internal(err, "Failed to encode metadata")
	}

	payment, err := api.switchesService.CreatePayment(ctx, &switches.CreatePaymentRequest{
		SwitchID:    sw.ID,
		Pin:         pin.Pin,
		AmountMsat:  priceMsat,
		PaymentHash: constants.PAYMENT_HASH_NOT_YET_SET,
		Payload:     strconv.Itoa(pin.Duration),
	})
	if err != nil {
		return nil, internal(err, "Could not create payment.")
	}

	callback := fmt.Sprintf("%s/bitcoinswitch/api/v1/lnurl/cb/%s", api.baseUrl(), payment.ID)
	if pin.AcceptsAssets && len(pin.AcceptedAssetIDs) > 0 && api.taprootAvailable(ctx) {
		query := url.Values{}
		query.Set("asset_ids", strings.Join(pin.AcceptedAssetIDs, ","))
		callback = callback + "?" + query.Encode()
	}

	response := &LnurlPayResponse{
		Tag:         lnurlPayTag,
		Callback:    callback,
		MinSendable: priceMsat,
		MaxSendable: priceMsat,
		Metadata:    metadata,
	}
	if pin.Variable {
		response.MaxSendable = priceMsat * constants.VARIABLE_PRICE_MAX_MULTIPLIER
	}
	if pin.Comment || switches.HasPassword(sw) {
		response.CommentAllowed = api.cfg.GetEnv().MaxCommentLength
	}
	return response, nil
}

// LnurlCallback answers the second LNURL-pay step with an invoice for the
// pending payment.
func (api *api) LnurlCallback(ctx context.Context, paymentID string, req *LnurlCallbackRequest) (*LnurlCallbackResponse, error) {
	payment, err := api.switchesService.GetPayment(ctx, paymentID)
	if err != nil {
		if switches.IsNotFound(err) {
			return nil, notFound("bitcoinswitchpayment not found.")
		}
		return nil, internal(err, "Failed to get payment")
	}
	sw, err := api.switchesService.GetSwitch(ctx, payment.SwitchID)
	if err != nil {
		if switches.IsNotFound(err) {
			if err := api.switchesService.DeletePayment(ctx, payment.ID); err != nil {
				logger.Logger.Error().Err(err).Str("payment_id", payment.ID).Msg("Failed to delete orphaned payment")
			}
			return nil, notFound("bitcoinswitch not found.")
		}
		return nil, internal(err, "Failed to get switch")
	}
	if sw.Disabled {
		return nil, badRequest("Switch is disabled")
	}
	pin, ok := switches.FindPin(sw, payment.Pin)
	if !ok {
		return nil, notFound("Pin not found")
	}
	if payment.PaymentHash == constants.PAYMENT_HASH_PAID {
		return nil, badRequest("Payment already paid")
	}

	if req.Amount == "" {
		return nil, badRequest("No amount")
	}
	amountMsat, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amountMsat == 0 {
		return nil, badRequest("No amount")
	}
	maxSendable := payment.AmountMsat
	if pin.Variable {
		maxSendable = payment.AmountMsat * constants.VARIABLE_PRICE_MAX_MULTIPLIER
	}
	if amountMsat < payment.AmountMsat || amountMsat > maxSendable {
		return nil, badRequest("Amount %d is out of range [%d, %d]", amountMsat, payment.AmountMsat, maxSendable)
	}
	maxCommentLength := api.cfg.GetEnv().MaxCommentLength
	if len(req.Comment) > maxCommentLength {
		return nil, badRequest("Comment is too long (max %d characters)", maxCommentLength)
	}

	metadata, err := lnurlMetadata(sw)
	if err != nil {
		return nil, internal(err, "Failed to encode metadata")
	}
	extra := map[string]interface{}{
		"tag":      constants.SWITCH_INVOICE_TAG,
		"id":       payment.ID,
		"pin":      payment.Pin,
		"amount":   amountMsat,
		"comment":  req.Comment,
		"variable": pin.Variable,
	}
	description := fmt.Sprintf("%s (%s ms)", sw.Title, payment.Payload)

	var paymentRequest string
	if req.AssetID != "" && pin.AcceptsAssets && slices.Contains(pin.AcceptedAssetIDs, req.AssetID) {
		paymentRequest, err = api.createAssetInvoice(ctx, sw, pin, payment, req.AssetID, amountMsat, description, extra)
		if err != nil {
			logger.Logger.Warn().Err(err).
				Str("payment_id", payment.ID).
				Str("asset_id", req.AssetID).
				Msg("Asset invoice failed, falling back to lightning")
			paymentRequest = ""
		}
	}

	if paymentRequest == "" {
		lnClient := api.svc.GetLNClient()
		if lnClient == nil {
			return nil, upstream(nil, "Lightning backend is not available")
		}
		descriptionHash := sha256.Sum256([]byte(metadata))
		transaction, err := api.transactionsService.MakeInvoice(ctx, amountMsat, description, hex.EncodeToString(descriptionHash[:]), 0, extra, lnClient, sw.Wallet)
		if err != nil {
			return nil, upstream(err, "Failed to create invoice")
		}
		metrics.IncInvoicesCreated("lightning")
		paymentRequest = transaction.PaymentRequest
		payment.PaymentHash = transaction.PaymentHash
	}

	if req.Comment != "" {
		comment := req.Comment
		payment.Comment = &comment
	}
	if _, err := api.switchesService.UpdatePayment(ctx, payment); err != nil {
		return nil, internal(err, "Failed to update payment")
	}

	message := fmt.Sprintf("%d sats sent", amountMsat/1000)
	if !switches.PasswordMatches(sw, req.Comment) {
		message = message + ", incorrect password, switch will not be triggered"
	}

	return &LnurlCallbackResponse{
		Pr:     paymentRequest,
		Routes: []interface{}{},
		SuccessAction: &SuccessAction{
			Tag:     successActionMessage,
			Message: message,
		},
	}, nil
}

// createAssetInvoice requests an RFQ invoice for the asset and records it so
// it settles like a lightning invoice. payment is updated in place.
func (api *api) createAssetInvoice(ctx context.Context, sw *switches.Switch, pin *switches.PinConfig, payment *switches.SwitchPayment, assetID string, amountMsat uint64, description string, extra map[string]interface{}) (string, error) {
	if !api.taprootAvailable(ctx) {
		return "", fmt.Errorf("taproot assets not available")
	}
	wallet, err := api.walletsService.GetWallet(ctx, sw.Wallet)
	if err != nil {
		return "", fmt.Errorf("failed to get wallet %s: %w", sw.Wallet, err)
	}

	assetAmount, rate := api.rateService.CalculateAssetAmountWithRFQ(ctx, *pin, amountMsat, assetID, wallet)
	if assetAmount == 0 {
		return "", fmt.Errorf("no asset amount for %s", assetID)
	}

	expiry := uint64(api.cfg.GetEnv().TaprootPaymentExpiry)
	invoice, taprootErr := api.taproot.CreateRFQInvoice(ctx, &taproot.RFQInvoiceRequest{
		AssetID:     assetID,
		Amount:      assetAmount,
		Description: description,
		WalletID:    wallet.ID,
		UserID:      wallet.UserID,
		AdminKey:    wallet.AdminKey,
		Extra:       extra,
		Expiry:      &expiry,
	})
	if taprootErr != nil {
		return "", taprootErr
	}

	_, err = api.transactionsService.RecordInvoice(ctx, &transactions.ExternalInvoice{
		WalletID:       wallet.ID,
		AmountMsat:     amountMsat,
		PaymentRequest: invoice.PaymentRequest,
		PaymentHash:    invoice.PaymentHash,
		CheckingID:     invoice.CheckingID,
		Description:    description,
		Expiry:         expiry,
		Metadata:       extra,
	})
	if err != nil {
		return "", fmt.Errorf("failed to record asset invoice: %w", err)
	}
	metrics.IncInvoicesCreated("asset")

	now := time.Now()
	payment.PaymentHash = invoice.PaymentHash
	payment.IsAssetPayment = true
	payment.AssetID = &assetID
	payment.AssetAmount = &assetAmount
	payment.QuotedAt = &now
	if rate > 0 {
		payment.QuotedRate = &rate
	}

	logger.Logger.Info().
		Str("payment_id", payment.ID).
		Str("asset_id", assetID).
		Uint64("asset_amount", assetAmount).
		Msg("Created asset invoice")
	return invoice.PaymentRequest, nil
}

func (api *api) taprootAvailable(ctx context.Context) bool {
	available, taprootErr := api.taproot.IsAvailable(ctx)
	if taprootErr != nil {
		logger.Logger.Debug().Str("code", taprootErr.Code).Msg(taprootErr.Message)
	}
	return available
}

func (api *api) baseUrl() string {
	return api.cfg.GetEnv().GetBaseUrl()
}

func (api *api) lnurlParamsUrl(switchID string, pin int) string {
	return fmt.Sprintf("%s/bitcoinswitch/api/v1/lnurl/%s?pin=%d", api.baseUrl(), switchID, pin)
}

func lnurlMetadata(sw *switches.Switch) (string, error) {
	metadata, err := json.Marshal([][]string{{"text/plain", sw.Title}})
	if err != nil {
		return "", err
	}
	return string(metadata), nil
}

// extraParamsMatch checks the optional query params of the first step against
// the pin, so a tampered LNURL cannot change what is paid for.
func extraParamsMatch(pin *switches.PinConfig, req *LnurlParamsRequest) bool {
	if req.Amount != "" {
		amount, err := strconv.ParseFloat(req.Amount, 64)
		if err != nil || amount != pin.Amount {
			return false
		}
	}
	if req.Duration != "" {
		duration, err := strconv.Atoi(req.Duration)
		if err != nil || duration != pin.Duration {
			return false
		}
	}
	if req.Variable != "" {
		variable, err := strconv.ParseBool(req.Variable)
		if err != nil || variable != pin.Variable {
			return false
		}
	}
	if req.Comment != "" {
		comment, err := strconv.ParseBool(req.Comment)
		if err != nil || comment != pin.Comment {
			return false
		}
	}
	return true
}
