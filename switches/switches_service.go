package switches

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/utils"
)

type SwitchesService interface {
	CreateSwitch(ctx context.Context, req *CreateSwitchRequest) (*Switch, error)
	UpdateSwitch(ctx context.Context, sw *Switch) (*Switch, error)
	GetSwitch(ctx context.Context, id string) (*Switch, error)
	ListSwitches(ctx context.Context, walletIDs []string) ([]Switch, error)
	DeleteSwitch(ctx context.Context, id string) error
	GetSwitchByNpub(ctx context.Context, publicKey string) (*Switch, error)
	ListPublicKeys(ctx context.Context) ([]string, error)

	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*SwitchPayment, error)
	UpdatePayment(ctx context.Context, payment *SwitchPayment) (*SwitchPayment, error)
	GetPayment(ctx context.Context, id string) (*SwitchPayment, error)
	GetPaymentByHash(ctx context.Context, paymentHash string) (*SwitchPayment, error)
	ListPayments(ctx context.Context, switchIDs []string) ([]SwitchPayment, error)
	DeletePayment(ctx context.Context, id string) error
}

type switchesService struct {
	db             *gorm.DB
	eventPublisher events.EventPublisher
}

func NewSwitchesService(db *gorm.DB, eventPublisher events.EventPublisher) *switchesService {
	return &switchesService{
		db:             db,
		eventPublisher: eventPublisher,
	}
}

func (svc *switchesService) CreateSwitch(ctx context.Context, req *CreateSwitchRequest) (*Switch, error) {
	disposable := true
	if req.Disposable != nil {
		disposable = *req.Disposable
	}

	sw := db.Switch{
		ID:         utils.NewShortID(),
		Key:        utils.NewShortID(),
		Title:      req.Title,
		Wallet:     req.Wallet,
		Currency:   req.Currency,
		Switches:   req.Switches,
		Password:   req.Password,
		Disabled:   req.Disabled,
		Disposable: disposable,
		Npub:       req.Npub,
	}
	if sw.Switches == nil {
		sw.Switches = []PinConfig{}
	}

	err := svc.db.WithContext(ctx).Create(&sw).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("wallet_id", req.Wallet).Msg("Failed to create switch")
		return nil, fmt.Errorf("failed to create switch: %w", err)
	}

	logger.Logger.Info().Str("switch_id", sw.ID).Str("wallet_id", sw.Wallet).Msg("Created switch")
	svc.publishSwitchEvent(constants.EVENT_SWITCH_CREATED, sw.ID)
	return &sw, nil
}

// UpdateSwitch replaces every field of the stored switch.
func (svc *switchesService) UpdateSwitch(ctx context.Context, sw *Switch) (*Switch, error) {
	if _, err := svc.GetSwitch(ctx, sw.ID); err != nil {
		return nil, err
	}

	sw.UpdatedAt = time.Now()
	if sw.Switches == nil {
		sw.Switches = []PinConfig{}
	}
	err := svc.db.WithContext(ctx).Model(sw).Select("*").Omit("created_at").Updates(sw).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("switch_id", sw.ID).Msg("Failed to update switch")
		return nil, fmt.Errorf("failed to update switch: %w", err)
	}

	svc.publishSwitchEvent(constants.EVENT_SWITCH_UPDATED, sw.ID)
	return svc.GetSwitch(ctx, sw.ID)
}

func (svc *switchesService) GetSwitch(ctx context.Context, id string) (*Switch, error) {
	var sw db.Switch
	result := svc.db.WithContext(ctx).Limit(1).Find(&sw, &db.Switch{ID: id})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "switch", ID: id}
	}
	return &sw, nil
}

func (svc *switchesService) ListSwitches(ctx context.Context, walletIDs []string) ([]Switch, error) {
	switches := []Switch{}
	if len(walletIDs) == 0 {
		return switches, nil
	}
	err := svc.db.WithContext(ctx).
		Where("wallet IN ?", walletIDs).
		Order("id").
		Find(&switches).Error
	if err != nil {
		return nil, err
	}
	return switches, nil
}

// DeleteSwitch removes the switch only; its payments are kept and cleaned up
// when they are next read.
func (svc *switchesService) DeleteSwitch(ctx context.Context, id string) error {
	result := svc.db.WithContext(ctx).Delete(&db.Switch{}, "id = ?", id)
	if result.Error != nil {
		logger.Logger.Error().Err(result.Error).Str("switch_id", id).Msg("Failed to delete switch")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "switch", ID: id}
	}

	logger.Logger.Info().Str("switch_id", id).Msg("Deleted switch")
	svc.publishSwitchEvent(constants.EVENT_SWITCH_DELETED, id)
	return nil
}

// GetSwitchByNpub finds the switch registered for a nostr public key given as
// npub or hex.
func (svc *switchesService) GetSwitchByNpub(ctx context.Context, publicKey string) (*Switch, error) {
	wanted, err := PublicKeyHex(publicKey)
	if err != nil {
		return nil, err
	}

	switches := []Switch{}
	err = svc.db.WithContext(ctx).Where("npub IS NOT NULL AND npub <> ''").Order("id").Find(&switches).Error
	if err != nil {
		return nil, err
	}
	for i := range switches {
		key, err := PublicKeyHex(*switches[i].Npub)
		if err != nil {
			continue
		}
		if key == wanted {
			return &switches[i], nil
		}
	}
	return nil, &NotFoundError{Entity: "switch with public key", ID: publicKey}
}

// ListPublicKeys returns the hex public keys of all switches that accept zaps.
// Invalid keys are skipped.
func (svc *switchesService) ListPublicKeys(ctx context.Context) ([]string, error) {
	npubs := []string{}
	err := svc.db.WithContext(ctx).
		Model(&db.Switch{}).
		Where("npub IS NOT NULL AND npub <> ''").
		Order("id").
		Pluck("npub", &npubs).Error
	if err != nil {
		return nil, err
	}

	keys := []string{}
	seen := map[string]bool{}
	for _, npub := range npubs {
		key, err := PublicKeyHex(npub)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("npub", npub).Msg("Skipping invalid switch public key")
			continue
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (svc *switchesService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*SwitchPayment, error) {
	paymentHash := req.PaymentHash
	if paymentHash == "" {
		paymentHash = constants.PAYMENT_HASH_NOT_YET_SET
	}

	payment := db.SwitchPayment{
		ID:             utils.NewShortID(),
		SwitchID:       req.SwitchID,
		Pin:            req.Pin,
		AmountMsat:     req.AmountMsat,
		PaymentHash:    paymentHash,
		Payload:        req.Payload,
		Comment:        req.Comment,
		IsAssetPayment: req.IsAssetPayment,
		AssetID:        req.AssetID,
		AssetAmount:    req.AssetAmount,
		QuotedRate:     req.QuotedRate,
	}
	if req.QuotedRate != nil {
		now := time.Now().UTC()
		payment.QuotedAt = &now
	}

	err := svc.db.WithContext(ctx).Create(&payment).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("switch_id", req.SwitchID).Msg("Failed to create switch payment")
		return nil, fmt.Errorf("failed to create switch payment: %w", err)
	}
	return &payment, nil
}

func (svc *switchesService) UpdatePayment(ctx context.Context, payment *SwitchPayment) (*SwitchPayment, error) {
	payment.UpdatedAt = time.Now()
	result := svc.db.WithContext(ctx).Model(payment).Select("*").Omit("created_at").Updates(payment)
	if result.Error != nil {
		logger.Logger.Error().Err(result.Error).Str("payment_id", payment.ID).Msg("Failed to update switch payment")
		return nil, fmt.Errorf("failed to update switch payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "switch payment", ID: payment.ID}
	}
	return payment, nil
}

func (svc *switchesService) GetPayment(ctx context.Context, id string) (*SwitchPayment, error) {
	var payment db.SwitchPayment
	result := svc.db.WithContext(ctx).Limit(1).Find(&payment, &db.SwitchPayment{ID: id})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "switch payment", ID: id}
	}
	return &payment, nil
}

func (svc *switchesService) GetPaymentByHash(ctx context.Context, paymentHash string) (*SwitchPayment, error) {
	var payment db.SwitchPayment
	result := svc.db.WithContext(ctx).Limit(1).Find(&payment, &db.SwitchPayment{PaymentHash: paymentHash})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "switch payment with hash", ID: paymentHash}
	}
	return &payment, nil
}

func (svc *switchesService) ListPayments(ctx context.Context, switchIDs []string) ([]SwitchPayment, error) {
	payments := []SwitchPayment{}
	if len(switchIDs) == 0 {
		return payments, nil
	}
	err := svc.db.WithContext(ctx).
		Where("switch_id IN ?", switchIDs).
		Order("id").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (svc *switchesService) DeletePayment(ctx context.Context, id string) error {
	err := svc.db.WithContext(ctx).Delete(&db.SwitchPayment{}, "id = ?", id).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("payment_id", id).Msg("Failed to delete switch payment")
		return err
	}
	return nil
}

func (svc *switchesService) publishSwitchEvent(event string, switchID string) {
	if svc.eventPublisher == nil {
		return
	}
	svc.eventPublisher.Publish(&events.Event{
		Event:      event,
		Properties: &events.SwitchEventProperties{SwitchID: switchID},
	})
}
