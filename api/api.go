package api

import (
	"context"
	"slices"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/metrics"
	"github.com/flokiorg/bitcoinswitch/rates"
	"github.com/flokiorg/bitcoinswitch/relay"
	"github.com/flokiorg/bitcoinswitch/service"
	"github.com/flokiorg/bitcoinswitch/switches"
	"github.com/flokiorg/bitcoinswitch/taproot"
	"github.com/flokiorg/bitcoinswitch/transactions"
	"github.com/flokiorg/bitcoinswitch/utils"
	"github.com/flokiorg/bitcoinswitch/wallets"
)

type api struct {
	svc                 service.Service
	cfg                 config.Config
	switchesService     switches.SwitchesService
	walletsService      wallets.WalletsService
	transactionsService transactions.TransactionsService
	fiatService         rates.FiatService
	rateService         rates.RateService
	taproot             taproot.Integration
	broadcaster         relay.Broadcaster
}

func NewAPI(svc service.Service) *api {
	return &api{
		svc:                 svc,
		cfg:                 svc.GetConfig(),
		switchesService:     svc.GetSwitchesService(),
		walletsService:      svc.GetWalletsService(),
		transactionsService: svc.GetTransactionsService(),
		fiatService:         svc.GetFiatService(),
		rateService:         svc.GetRateService(),
		taproot:             svc.GetTaprootIntegration(),
		broadcaster:         svc.GetBroadcaster(),
	}
}

func (api *api) CreateSwitch(ctx context.Context, wallet *db.Wallet, req *CreateSwitchRequest) (*Switch, error) {
	if req.Wallet == "" {
		req.Wallet = wallet.ID
	}
	if err := api.validateSwitchRequest(ctx, wallet, req); err != nil {
		return nil, err
	}

	sw, err := api.switchesService.CreateSwitch(ctx, &switches.CreateSwitchRequest{
		Title:      strings.TrimSpace(req.Title),
		Wallet:     req.Wallet,
		Currency:   req.Currency,
		Switches:   req.Switches,
		Password:   emptyToNil(req.Password),
		Disabled:   req.Disabled,
		Disposable: req.Disposable,
		Npub:       emptyToNil(req.Npub),
	})
	if err != nil {
		return nil, internal(err, "Failed to create switch")
	}
	return toApiSwitch(sw), nil
}

func (api *api) UpdateSwitch(ctx context.Context, wallet *db.Wallet, id string, req *CreateSwitchRequest) (*Switch, error) {
	sw, err := api.getOwnedSwitch(ctx, wallet, id)
	if err != nil {
		return nil, err
	}
	if req.Wallet == "" {
		req.Wallet = sw.Wallet
	}
	if err := api.validateSwitchRequest(ctx, wallet, req); err != nil {
		return nil, err
	}

	disposable := true
	if req.Disposable != nil {
		disposable = *req.Disposable
	}
	sw.Title = strings.TrimSpace(req.Title)
	sw.Wallet = req.Wallet
	sw.Currency = req.Currency
	sw.Switches = req.Switches
	sw.Password = emptyToNil(req.Password)
	sw.Disabled = req.Disabled
	sw.Disposable = disposable
	sw.Npub = emptyToNil(req.Npub)

	updated, err := api.switchesService.UpdateSwitch(ctx, sw)
	if err != nil {
		if switches.IsNotFound(err) {
			return nil, notFound("Bitcoinswitch does not exist.")
		}
		return nil, internal(err, "Failed to update switch")
	}
	return toApiSwitch(updated), nil
}

func (api *api) GetSwitch(ctx context.Context, wallet *db.Wallet, id string) (*Switch, error) {
	sw, err := api.getOwnedSwitch(ctx, wallet, id)
	if err != nil {
		return nil, err
	}
	return toApiSwitch(sw), nil
}

// ListSwitches returns the switches of every wallet of the key's user.
func (api *api) ListSwitches(ctx context.Context, wallet *db.Wallet) ([]Switch, error) {
	walletIDs, err := api.walletsService.ListUserWalletIDs(ctx, wallet.UserID)
	if err != nil {
		return nil, internal(err, "Failed to list wallets")
	}
	if len(walletIDs) == 0 {
		return nil, forbidden("User does not exist")
	}

	list, err := api.switchesService.ListSwitches(ctx, walletIDs)
	if err != nil {
		return nil, internal(err, "Failed to list switches")
	}

	apiSwitches := make([]Switch, 0, len(list))
	for i := range list {
		apiSwitches = append(apiSwitches, *toApiSwitch(&list[i]))
	}
	return apiSwitches, nil
}

func (api *api) DeleteSwitch(ctx context.Context, wallet *db.Wallet, id string) error {
	if _, err := api.getOwnedSwitch(ctx, wallet, id); err != nil {
		return err
	}
	if err := api.switchesService.DeleteSwitch(ctx, id); err != nil {
		if switches.IsNotFound(err) {
			return notFound("Bitcoinswitch does not exist.")
		}
		return internal(err, "Failed to delete switch")
	}
	return nil
}

// TriggerSwitch fires a pin without a payment.
func (api *api) TriggerSwitch(ctx context.Context, wallet *db.Wallet, id string, pin int) (string, error) {
	sw, err := api.switchesService.GetSwitch(ctx, id)
	if err != nil {
		if switches.IsNotFound(err) {
			return "", notFound("Bitcoinswitch does not exist.")
		}
		return "", internal(err, "Failed to get switch")
	}
	pinConfig, ok := switches.FindPin(sw, pin)
	if !ok {
		return "", notFound("Switch with this pin does not exist.")
	}
	if sw.Wallet != wallet.ID {
		return "", forbidden("You do not have permission to trigger this switch.")
	}

	payload := switches.BuildPayload(pin, pinConfig.Duration, "")
	api.broadcaster.Broadcast(sw.ID, payload)
	metrics.IncPayloadsDelivered("trigger")
	logger.Logger.Info().Str("switch_id", sw.ID).Str("payload", payload).Msg("Switch triggered manually")
	return payload, nil
}

func (api *api) ListPayments(ctx context.Context, wallet *db.Wallet) ([]SwitchPayment, error) {
	list, err := api.ListSwitches(ctx, wallet)
	if err != nil {
		return nil, err
	}
	switchIDs := make([]string, 0, len(list))
	for _, sw := range list {
		switchIDs = append(switchIDs, sw.ID)
	}

	payments, err := api.switchesService.ListPayments(ctx, switchIDs)
	if err != nil {
		return nil, internal(err, "Failed to list payments")
	}

	apiPayments := make([]SwitchPayment, 0, len(payments))
	for _, payment := range payments {
		apiPayments = append(apiPayments, SwitchPayment{
			ID:             payment.ID,
			SwitchID:       payment.SwitchID,
			Pin:            payment.Pin,
			AmountMsat:     payment.AmountMsat,
			PaymentHash:    payment.PaymentHash,
			Comment:        payment.Comment,
			IsAssetPayment: payment.IsAssetPayment,
			AssetID:        payment.AssetID,
			AssetAmount:    payment.AssetAmount,
			QuotedRate:     payment.QuotedRate,
			QuotedAt:       payment.QuotedAt,
			CreatedAt:      payment.CreatedAt,
			UpdatedAt:      payment.UpdatedAt,
		})
	}
	return apiPayments, nil
}

func (api *api) GetPublicSwitch(ctx context.Context, id string) (*PublicSwitch, error) {
	sw, err := api.switchesService.GetSwitch(ctx, id)
	if err != nil {
		if switches.IsNotFound(err) {
			return nil, notFound("Bitcoinswitch does not exist.")
		}
		return nil, internal(err, "Failed to get switch")
	}

	pins := make([]PublicPin, 0, len(sw.Switches))
	for _, pin := range sw.Switches {
		lnurl, err := utils.EncodeLNURL(api.lnurlParamsUrl(sw.ID, pin.Pin))
		if err != nil {
			return nil, internal(err, "Failed to encode lnurl")
		}
		pins = append(pins, PublicPin{
			Pin:           pin.Pin,
			Amount:        pin.Amount,
			Duration:      pin.Duration,
			Comment:       pin.Comment,
			Variable:      pin.Variable,
			Label:         pin.Label,
			AcceptsAssets: pin.AcceptsAssets,
			AcceptedAsset: pin.AcceptedAssetIDs,
			Lnurl:         lnurl,
		})
	}

	return &PublicSwitch{
		ID:          sw.ID,
		Title:       sw.Title,
		Currency:    sw.Currency,
		Disabled:    sw.Disabled,
		HasPassword: switches.HasPassword(sw),
		Connected:   api.broadcaster.HasSubscribers(sw.ID),
		Switches:    pins,
	}, nil
}

// GetPinQRCode renders the LNURL of one pin as a PNG for printing next to the device.
func (api *api) GetPinQRCode(ctx context.Context, id string, pin int) ([]byte, error) {
	sw, err := api.switchesService.GetSwitch(ctx, id)
	if err != nil {
		if switches.IsNotFound(err) {
			return nil, notFound("Bitcoinswitch does not exist.")
		}
		return nil, internal(err, "Failed to get switch")
	}
	if _, ok := switches.FindPin(sw, pin); !ok {
		return nil, notFound("Switch with this pin does not exist.")
	}

	lnurl, err := utils.EncodeLNURL(api.lnurlParamsUrl(sw.ID, pin))
	if err != nil {
		return nil, internal(err, "Failed to encode lnurl")
	}
	png, err := qrcode.Encode("lightning:"+lnurl, qrcode.Medium, constants.QR_CODE_SIZE)
	if err != nil {
		return nil, internal(err, "Failed to render qr code")
	}
	return png, nil
}

func (api *api) GetWalletInfo(ctx context.Context, wallet *db.Wallet) (*WalletInfoResponse, error) {
	return &WalletInfoResponse{
		ID:          wallet.ID,
		Name:        wallet.Name,
		BalanceMsat: api.walletsService.GetBalance(ctx, wallet.ID),
	}, nil
}

func (api *api) ListTransactions(ctx context.Context, wallet *db.Wallet) ([]Transaction, error) {
	dbTransactions, err := api.transactionsService.ListTransactions(ctx, wallet.ID)
	if err != nil {
		return nil, internal(err, "Failed to list transactions")
	}

	apiTransactions := make([]Transaction, 0, len(dbTransactions))
	for _, transaction := range dbTransactions {
		apiTransactions = append(apiTransactions, Transaction{
			PaymentHash:    transaction.PaymentHash,
			PaymentRequest: transaction.PaymentRequest,
			AmountMsat:     transaction.AmountMsat,
			State:          transaction.State,
			Description:    transaction.Description,
			CreatedAt:      transaction.CreatedAt,
			ExpiresAt:      transaction.ExpiresAt,
			SettledAt:      transaction.SettledAt,
		})
	}
	return apiTransactions, nil
}

func (api *api) GetCurrencies(ctx context.Context) ([]string, error) {
	currencies, err := api.fiatService.GetCurrencies(ctx)
	if err != nil {
		return nil, upstream(err, "Failed to fetch currencies")
	}
	return append([]string{constants.SAT_CURRENCY}, currencies...), nil
}

func (api *api) getOwnedSwitch(ctx context.Context, wallet *db.Wallet, id string) (*switches.Switch, error) {
	sw, err := api.switchesService.GetSwitch(ctx, id)
	if err != nil {
		if switches.IsNotFound(err) {
			return nil, notFound("Bitcoinswitch does not exist.")
		}
		return nil, internal(err, "Failed to get switch")
	}
	if sw.Wallet != wallet.ID {
		return nil, forbidden("You do not have permission to access this bitcoinswitch.")
	}
	return sw, nil
}

func (api *api) validateSwitchRequest(ctx context.Context, wallet *db.Wallet, req *CreateSwitchRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return badRequest("Title is required")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return badRequest("Currency is required")
	}
	if req.Switches == nil {
		req.Switches = []PinConfig{}
	}
	for _, pin := range req.Switches {
		if pin.Amount <= 0 {
			return badRequest("Pin %d: amount must be greater than zero", pin.Pin)
		}
		if pin.Duration < 0 {
			return badRequest("Pin %d: duration must not be negative", pin.Pin)
		}
	}
	if req.Npub != nil && *req.Npub != "" {
		if _, err := switches.PublicKeyHex(*req.Npub); err != nil {
			return badRequest("Invalid npub: %v", err)
		}
	}

	if req.Wallet != wallet.ID {
		walletIDs, err := api.walletsService.ListUserWalletIDs(ctx, wallet.UserID)
		if err != nil {
			return internal(err, "Failed to list wallets")
		}
		if !slices.Contains(walletIDs, req.Wallet) {
			return forbidden("You do not have permission to use this wallet.")
		}
	}
	return nil
}

func toApiSwitch(sw *switches.Switch) *Switch {
	pins := []PinConfig(sw.Switches)
	if pins == nil {
		pins = []PinConfig{}
	}
	return &Switch{
		ID:         sw.ID,
		Key:        sw.Key,
		Title:      sw.Title,
		Wallet:     sw.Wallet,
		Currency:   sw.Currency,
		Switches:   pins,
		Password:   sw.Password,
		Disabled:   sw.Disabled,
		Disposable: sw.Disposable,
		Npub:       sw.Npub,
		CreatedAt:  sw.CreatedAt,
		UpdatedAt:  sw.UpdatedAt,
	}
}

func emptyToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return value
}
