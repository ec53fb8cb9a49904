package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/lnclient"
	"github.com/flokiorg/bitcoinswitch/logger"
)

type transactionsService struct {
	db             *gorm.DB
	eventPublisher events.EventPublisher
}

type TransactionsService interface {
	events.EventSubscriber
	MakeInvoice(ctx context.Context, amount uint64, description string, descriptionHash string, expiry uint64, metadata map[string]interface{}, lnClient lnclient.LNClient, walletID string) (*Transaction, error)
	RecordInvoice(ctx context.Context, invoice *ExternalInvoice) (*Transaction, error)
	LookupTransaction(ctx context.Context, paymentHash string) (*Transaction, error)
	ListTransactions(ctx context.Context, walletID string) ([]Transaction, error)
	MarkTransactionSettled(ctx context.Context, paymentHash string, preimage string, amountMsat uint64) (*Transaction, error)
}

type Transaction = db.Transaction

// ExternalInvoice is an invoice created outside the lightning client, e.g. an
// RFQ invoice of the taproot assets service, that should settle like our own.
type ExternalInvoice struct {
	WalletID       string
	AmountMsat     uint64
	PaymentRequest string
	PaymentHash    string
	CheckingID     string
	Description    string
	Expiry         uint64
	Metadata       map[string]interface{}
}

type notFoundError struct {
	paymentHash string
}

func NewNotFoundError(paymentHash string) error {
	return &notFoundError{paymentHash: paymentHash}
}

func (err *notFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found", err.paymentHash)
}

func IsNotFound(err error) bool {
	var notFound *notFoundError
	return errors.As(err, &notFound)
}

func NewTransactionsService(db *gorm.DB, eventPublisher events.EventPublisher) *transactionsService {
	return &transactionsService{
		db:             db,
		eventPublisher: eventPublisher,
	}
}

func encodeMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to serialize metadata")
		return nil, err
	}
	if len(metadataBytes) > constants.INVOICE_METADATA_MAX_LENGTH {
		return nil, fmt.Errorf("encoded invoice metadata provided is too large. Limit: %d Received: %d", constants.INVOICE_METADATA_MAX_LENGTH, len(metadataBytes))
	}
	return metadataBytes, nil
}

func (svc *transactionsService) MakeInvoice(ctx context.Context, amount uint64, description string, descriptionHash string, expiry uint64, metadata map[string]interface{}, lnClient lnclient.LNClient, walletID string) (*Transaction, error) {
	logger.Logger.Debug().
		Str("wallet_id", walletID).
		Uint64("amount", amount).
		Str("description", description).
		Str("description_hash", descriptionHash).
		Uint64("expiry", expiry).
		Interface("metadata", metadata).
		Msg("Making invoice")

	metadataBytes, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	lnClientTransaction, err := lnClient.MakeInvoice(ctx, int64(amount), description, descriptionHash, int64(expiry))
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create transaction")
		return nil, err
	}

	var expiresAt *time.Time
	if lnClientTransaction.ExpiresAt != nil {
		expiresAtValue := time.Unix(*lnClientTransaction.ExpiresAt, 0)
		expiresAt = &expiresAtValue
	}

	dbTransaction := db.Transaction{
		WalletID:        walletID,
		Type:            constants.TRANSACTION_TYPE_INCOMING,
		State:           constants.TRANSACTION_STATE_PENDING,
		AmountMsat:      uint64(lnClientTransaction.Amount),
		Description:     description,
		DescriptionHash: descriptionHash,
		PaymentRequest:  lnClientTransaction.Invoice,
		PaymentHash:     lnClientTransaction.PaymentHash,
		CheckingID:      lnClientTransaction.PaymentHash,
		ExpiresAt:       expiresAt,
		Metadata:        datatypes.JSON(metadataBytes),
	}
	err = svc.db.WithContext(ctx).Create(&dbTransaction).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create DB transaction")
		return nil, err
	}
	return &dbTransaction, nil
}

func (svc *transactionsService) RecordInvoice(ctx context.Context, invoice *ExternalInvoice) (*Transaction, error) {
	metadataBytes, err := encodeMetadata(invoice.Metadata)
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if invoice.Expiry > 0 {
		expiresAtValue := time.Now().Add(time.Duration(invoice.Expiry) * time.Second)
		expiresAt = &expiresAtValue
	}

	checkingID := invoice.CheckingID
	if checkingID == "" {
		checkingID = invoice.PaymentHash
	}

	dbTransaction := db.Transaction{
		WalletID:       invoice.WalletID,
		Type:           constants.TRANSACTION_TYPE_INCOMING,
		State:          constants.TRANSACTION_STATE_PENDING,
		AmountMsat:     invoice.AmountMsat,
		Description:    invoice.Description,
		PaymentRequest: invoice.PaymentRequest,
		PaymentHash:    invoice.PaymentHash,
		CheckingID:     checkingID,
		ExpiresAt:      expiresAt,
		Metadata:       datatypes.JSON(metadataBytes),
	}
	err = svc.db.WithContext(ctx).Create(&dbTransaction).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("payment_hash", invoice.PaymentHash).Msg("Failed to record external invoice")
		return nil, err
	}
	return &dbTransaction, nil
}

func (svc *transactionsService) LookupTransaction(ctx context.Context, paymentHash string) (*Transaction, error) {
	var dbTransaction db.Transaction
	result := svc.db.WithContext(ctx).Limit(1).Find(&dbTransaction, &db.Transaction{
		PaymentHash: paymentHash,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, NewNotFoundError(paymentHash)
	}
	return &dbTransaction, nil
}

func (svc *transactionsService) ListTransactions(ctx context.Context, walletID string) ([]Transaction, error) {
	transactions := []Transaction{}
	err := svc.db.WithContext(ctx).
		Where(&db.Transaction{WalletID: walletID}).
		Order("created_at desc").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (svc *transactionsService) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	switch event.Event {
	case constants.EVENT_LNCLIENT_PAYMENT_RECEIVED:
		lnClientTransaction, ok := event.Properties.(*lnclient.Transaction)
		if !ok {
			logger.Logger.Error().Interface("event", event).Msg("Failed to cast event")
			return
		}

		_, err := svc.MarkTransactionSettled(ctx, lnClientTransaction.PaymentHash, lnClientTransaction.Preimage, uint64(lnClientTransaction.Amount))
		if err != nil {
			if IsNotFound(err) {
				logger.Logger.Debug().Str("payment_hash", lnClientTransaction.PaymentHash).Msg("Ignoring payment for unknown invoice")
				return
			}
			logger.Logger.Error().Err(err).
				Str("payment_hash", lnClientTransaction.PaymentHash).
				Msg("Failed to settle transaction")
		}
	}
}

// MarkTransactionSettled settles the pending incoming transaction with the
// given hash and publishes invoice_paid. Settling twice is a no-op.
func (svc *transactionsService) MarkTransactionSettled(ctx context.Context, paymentHash string, preimage string, amountMsat uint64) (*Transaction, error) {
	var dbTransaction db.Transaction
	alreadySettled := false

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() == "postgres" {
			// in sqlite transactions are serializable by default
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		result := query.Limit(1).Find(&dbTransaction, &db.Transaction{
			Type:        constants.TRANSACTION_TYPE_INCOMING,
			PaymentHash: paymentHash,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError(paymentHash)
		}

		if dbTransaction.State == constants.TRANSACTION_STATE_SETTLED {
			alreadySettled = true
			return nil
		}

		if amountMsat == 0 {
			amountMsat = dbTransaction.AmountMsat
		}

		now := time.Now()
		updates := map[string]interface{}{
			"State":      constants.TRANSACTION_STATE_SETTLED,
			"AmountMsat": amountMsat,
			"SettledAt":  &now,
		}
		if preimage != "" {
			updates["Preimage"] = &preimage
		}
		err := tx.Model(&dbTransaction).Updates(updates).Error
		if err != nil {
			logger.Logger.Error().Err(err).
				Str("payment_hash", paymentHash).
				Msg("Failed to update DB transaction")
			return err
		}
		dbTransaction.State = constants.TRANSACTION_STATE_SETTLED
		dbTransaction.AmountMsat = amountMsat
		dbTransaction.SettledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadySettled {
		logger.Logger.Debug().Str("payment_hash", paymentHash).Msg("payment already marked as received")
		return &dbTransaction, nil
	}

	logger.Logger.Info().
		Str("payment_hash", paymentHash).
		Str("wallet_id", dbTransaction.WalletID).
		Uint64("amount_msat", dbTransaction.AmountMsat).
		Msg("Marked transaction as settled")

	extra := map[string]interface{}{}
	if len(dbTransaction.Metadata) > 0 {
		if err := json.Unmarshal(dbTransaction.Metadata, &extra); err != nil {
			logger.Logger.Error().Err(err).Str("payment_hash", paymentHash).Msg("Failed to deserialize transaction metadata")
		}
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_INVOICE_PAID,
		Properties: &events.InvoicePaidEventProperties{
			WalletID:    dbTransaction.WalletID,
			PaymentHash: dbTransaction.PaymentHash,
			AmountMsat:  dbTransaction.AmountMsat,
			Extra:       extra,
		},
	})

	return &dbTransaction, nil
}
