package transactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/tests"
	"github.com/flokiorg/bitcoinswitch/tests/db"
	"github.com/flokiorg/bitcoinswitch/tests/mocks"
)

type testEventSubscriber struct {
	eventChan chan *events.Event
}

func (s *testEventSubscriber) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	s.eventChan <- event
}

func setupTransactionsService(t *testing.T) (*transactionsService, chan *events.Event) {
	gormDB, err := db.NewDB(t)
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB(gormDB) })

	eventPublisher := events.NewEventPublisher()
	receivedEvents := make(chan *events.Event, 10)
	eventPublisher.RegisterSubscriber(&testEventSubscriber{eventChan: receivedEvents})

	return NewTransactionsService(gormDB, eventPublisher), receivedEvents
}

func waitForEvent(t *testing.T, eventChan chan *events.Event) *events.Event {
	select {
	case event := <-eventChan:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMakeInvoice_StoresPendingTransaction(t *testing.T) {
	ctx := context.TODO()
	svc, _ := setupTransactionsService(t)

	lnClient := mocks.NewMockLNClient(t)
	lnClient.EXPECT().
		MakeInvoice(mock.Anything, int64(100_000), "", "abcd", int64(0)).
		Return(tests.MockLNClientTransaction, nil)

	transaction, err := svc.MakeInvoice(ctx, 100_000, "", "abcd", 0, map[string]interface{}{
		"tag": constants.SWITCH_INVOICE_TAG,
		"id":  "payment-1",
	}, lnClient, "wallet-1")
	require.NoError(t, err)

	assert.Equal(t, constants.TRANSACTION_STATE_PENDING, transaction.State)
	assert.Equal(t, tests.MockPaymentHash, transaction.PaymentHash)
	assert.Equal(t, tests.MockInvoice, transaction.PaymentRequest)
	assert.Equal(t, "wallet-1", transaction.WalletID)

	found, err := svc.LookupTransaction(ctx, tests.MockPaymentHash)
	require.NoError(t, err)
	assert.Equal(t, transaction.ID, found.ID)
	assert.JSONEq(t, `{"tag":"Switch","id":"payment-1"}`, string(found.Metadata))
}

func TestMakeInvoice_LNClientError(t *testing.T) {
	svc, _ := setupTransactionsService(t)

	lnClient := mocks.NewMockLNClient(t)
	lnClient.EXPECT().
		MakeInvoice(mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("node offline"))

	_, err := svc.MakeInvoice(context.TODO(), 1000, "", "", 0, nil, lnClient, "wallet-1")
	assert.EqualError(t, err, "node offline")
}

func TestLookupTransaction_NotFound(t *testing.T) {
	svc, _ := setupTransactionsService(t)

	_, err := svc.LookupTransaction(context.TODO(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestConsumeEvent_SettlesAndPublishesInvoicePaid(t *testing.T) {
	ctx := context.TODO()
	svc, receivedEvents := setupTransactionsService(t)

	_, err := svc.RecordInvoice(ctx, &ExternalInvoice{
		WalletID:       "wallet-1",
		AmountMsat:     100_000,
		PaymentRequest: tests.MockInvoice,
		PaymentHash:    tests.MockPaymentHash,
		Metadata: map[string]interface{}{
			"tag": constants.SWITCH_INVOICE_TAG,
			"id":  "payment-1",
		},
	})
	require.NoError(t, err)

	svc.ConsumeEvent(ctx, &events.Event{
		Event:      constants.EVENT_LNCLIENT_PAYMENT_RECEIVED,
		Properties: tests.MockLNClientTransaction,
	}, map[string]interface{}{})

	event := waitForEvent(t, receivedEvents)
	assert.Equal(t, constants.EVENT_INVOICE_PAID, event.Event)
	properties, ok := event.Properties.(*events.InvoicePaidEventProperties)
	require.True(t, ok)
	assert.Equal(t, "wallet-1", properties.WalletID)
	assert.Equal(t, uint64(100_000), properties.AmountMsat)
	assert.Equal(t, "payment-1", properties.Extra["id"])
	assert.Equal(t, constants.SWITCH_INVOICE_TAG, properties.Extra["tag"])

	settled, err := svc.LookupTransaction(ctx, tests.MockPaymentHash)
	require.NoError(t, err)
	assert.Equal(t, constants.TRANSACTION_STATE_SETTLED, settled.State)
	require.NotNil(t, settled.Preimage)
	assert.Equal(t, tests.MockPreimage, *settled.Preimage)
	assert.NotNil(t, settled.SettledAt)
}

func TestMarkTransactionSettled_Idempotent(t *testing.T) {
	ctx := context.TODO()
	svc, receivedEvents := setupTransactionsService(t)

	_, err := svc.RecordInvoice(ctx, &ExternalInvoice{
		WalletID:    "wallet-1",
		AmountMsat:  5000,
		PaymentHash: tests.MockPaymentHash,
	})
	require.NoError(t, err)

	_, err = svc.MarkTransactionSettled(ctx, tests.MockPaymentHash, tests.MockPreimage, 0)
	require.NoError(t, err)
	_, err = svc.MarkTransactionSettled(ctx, tests.MockPaymentHash, tests.MockPreimage, 0)
	require.NoError(t, err)

	event := waitForEvent(t, receivedEvents)
	assert.Equal(t, constants.EVENT_INVOICE_PAID, event.Event)
	select {
	case extra := <-receivedEvents:
		t.Fatalf("unexpected second event %s", extra.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConsumeEvent_UnknownInvoiceIgnored(t *testing.T) {
	svc, receivedEvents := setupTransactionsService(t)

	svc.ConsumeEvent(context.TODO(), &events.Event{
		Event:      constants.EVENT_LNCLIENT_PAYMENT_RECEIVED,
		Properties: tests.MockLNClientTransaction,
	}, map[string]interface{}{})

	select {
	case event := <-receivedEvents:
		t.Fatalf("unexpected event %s", event.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListTransactions(t *testing.T) {
	ctx := context.TODO()
	svc, _ := setupTransactionsService(t)

	for _, hash := range []string{"hash-1", "hash-2"} {
		_, err := svc.RecordInvoice(ctx, &ExternalInvoice{WalletID: "wallet-1", PaymentHash: hash, AmountMsat: 1000})
		require.NoError(t, err)
	}
	_, err := svc.RecordInvoice(ctx, &ExternalInvoice{WalletID: "wallet-2", PaymentHash: "hash-3", AmountMsat: 1000})
	require.NoError(t, err)

	transactions, err := svc.ListTransactions(ctx, "wallet-1")
	require.NoError(t, err)
	assert.Len(t, transactions, 2)
}
