package zaps

import (
	"context"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/switches"
	"github.com/flokiorg/bitcoinswitch/tests"
	"github.com/flokiorg/bitcoinswitch/tests/db"
	"github.com/flokiorg/bitcoinswitch/tests/mocks"
)

var (
	testSecretKey    = nostr.GeneratePrivateKey()
	testPublicKey, _ = nostr.GetPublicKey(testSecretKey)
)

func setupZapListener(t *testing.T) (*Listener, switches.SwitchesService, *mocks.MockBroadcaster) {
	gormDB, err := db.NewDB(t)
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB(gormDB) })

	switchesService := switches.NewSwitchesService(gormDB, events.NewEventPublisher())
	broadcaster := mocks.NewMockBroadcaster(t)
	listener := NewListener(switchesService, nil, broadcaster, tests.NewMockSimplePool(), []string{"wss://relay.example"})
	return listener, switchesService, broadcaster
}

func createZapSwitch(t *testing.T, svc switches.SwitchesService, pin switches.PinConfig) *switches.Switch {
	npub, err := nip19.EncodePublicKey(testPublicKey)
	require.NoError(t, err)

	sw, err := svc.CreateSwitch(context.TODO(), &switches.CreateSwitchRequest{
		Title:    "Zap me",
		Wallet:   "wallet-1",
		Currency: constants.SAT_CURRENCY,
		Switches: []switches.PinConfig{pin},
		Npub:     &npub,
	})
	require.NoError(t, err)
	return sw
}

// zapReceipt builds a receipt for recipient signed with the test switch key.
func zapReceipt(t *testing.T, recipient string) *nostr.Event {
	return signedZapReceipt(t, testSecretKey, nostr.Tags{
		{"p", recipient},
		{"bolt11", tests.MockInvoice},
	})
}

func signedZapReceipt(t *testing.T, secretKey string, tags nostr.Tags) *nostr.Event {
	event := &nostr.Event{
		Kind:      constants.ZAP_RECEIPT_KIND,
		CreatedAt: nostr.Timestamp(1_700_000_000),
		Tags:      tags,
	}
	require.NoError(t, event.Sign(secretKey))
	return event
}

func TestHandleZap_FixedPin(t *testing.T) {
	listener, svc, broadcaster := setupZapListener(t)
	sw := createZapSwitch(t, svc, switches.PinConfig{Pin: 4, Amount: 100, Duration: 5000})

	broadcaster.On("Broadcast", sw.ID, "4-5000").Once()

	payload, err := listener.HandleZap(context.TODO(), zapReceipt(t, testPublicKey))
	require.NoError(t, err)
	assert.Equal(t, "4-5000", payload)
}

func TestHandleZap_VariablePin(t *testing.T) {
	listener, svc, broadcaster := setupZapListener(t)
	// the invoice pays 250000 sats, twice the price
	sw := createZapSwitch(t, svc, switches.PinConfig{Pin: 2, Amount: 125_000, Duration: 1000, Variable: true})

	broadcaster.On("Broadcast", sw.ID, "2-2000").Once()

	payload, err := listener.HandleZap(context.TODO(), zapReceipt(t, testPublicKey))
	require.NoError(t, err)
	assert.Equal(t, "2-2000", payload)
}

func TestHandleZap_Underpaid(t *testing.T) {
	listener, svc, broadcaster := setupZapListener(t)
	createZapSwitch(t, svc, switches.PinConfig{Pin: 4, Amount: 500_000, Duration: 5000})

	payload, err := listener.HandleZap(context.TODO(), zapReceipt(t, testPublicKey))
	require.NoError(t, err)
	assert.Empty(t, payload)
	broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestHandleZap_DuplicateReceipt(t *testing.T) {
	listener, svc, broadcaster := setupZapListener(t)
	sw := createZapSwitch(t, svc, switches.PinConfig{Pin: 4, Amount: 100, Duration: 5000})

	broadcaster.On("Broadcast", sw.ID, "4-5000").Once()

	receipt := zapReceipt(t, testPublicKey)
	_, err := listener.HandleZap(context.TODO(), receipt)
	require.NoError(t, err)
	payload, err := listener.HandleZap(context.TODO(), receipt)
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestHandleZap_UnknownRecipient(t *testing.T) {
	listener, _, broadcaster := setupZapListener(t)

	_, err := listener.HandleZap(context.TODO(), zapReceipt(t, testPublicKey))
	assert.ErrorIs(t, err, errUnmatchedReceipt)
	broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestHandleZap_MissingBolt11(t *testing.T) {
	listener, svc, _ := setupZapListener(t)
	createZapSwitch(t, svc, switches.PinConfig{Pin: 4, Amount: 100, Duration: 5000})

	event := signedZapReceipt(t, testSecretKey, nostr.Tags{{"p", testPublicKey}})

	_, err := listener.HandleZap(context.TODO(), event)
	assert.Error(t, err)
}

func TestHandleZap_ReceiptFromOtherKeyIgnored(t *testing.T) {
	listener, svc, broadcaster := setupZapListener(t)
	createZapSwitch(t, svc, switches.PinConfig{Pin: 4, Amount: 100, Duration: 5000})

	otherKey := nostr.GeneratePrivateKey()
	receipt := signedZapReceipt(t, otherKey, nostr.Tags{
		{"p", testPublicKey},
		{"bolt11", tests.MockInvoice},
	})

	payload, err := listener.HandleZap(context.TODO(), receipt)
	assert.ErrorIs(t, err, errInvalidReceipt)
	assert.Empty(t, payload)
	broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestHandleZap_TamperedReceiptIgnored(t *testing.T) {
	listener, svc, broadcaster := setupZapListener(t)
	createZapSwitch(t, svc, switches.PinConfig{Pin: 4, Amount: 100, Duration: 5000})

	// claimed author without a matching signature
	receipt := zapReceipt(t, testPublicKey)
	receipt.Tags = append(receipt.Tags, nostr.Tag{"amount", "1"})

	_, err := listener.HandleZap(context.TODO(), receipt)
	assert.ErrorIs(t, err, errInvalidReceipt)

	unsigned := &nostr.Event{
		Kind:   constants.ZAP_RECEIPT_KIND,
		PubKey: testPublicKey,
		Tags:   nostr.Tags{{"p", testPublicKey}, {"bolt11", tests.MockInvoice}},
	}
	unsigned.ID = unsigned.GetID()
	_, err = listener.HandleZap(context.TODO(), unsigned)
	assert.ErrorIs(t, err, errInvalidReceipt)
	broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestListener_SubscribesAndResubscribes(t *testing.T) {
	gormDB, err := db.NewDB(t)
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB(gormDB) })

	switchesService := switches.NewSwitchesService(gormDB, nil)
	broadcaster := mocks.NewMockBroadcaster(t)
	pool := tests.NewMockSimplePool()
	listener := NewListener(switchesService, nil, broadcaster, pool, []string{"wss://relay.example"})

	sw := createZapSwitch(t, switchesService, switches.PinConfig{Pin: 4, Amount: 100, Duration: 5000})

	done := make(chan struct{})
	broadcaster.On("Broadcast", sw.ID, "4-5000").Once().Run(func(args mock.Arguments) { close(done) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener.Start(ctx)

	require.Eventually(t, func() bool { return pool.SubscriptionCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	filter := pool.LastFilter()
	assert.Equal(t, []int{constants.ZAP_RECEIPT_KIND}, filter.Kinds)
	assert.Equal(t, []string{testPublicKey}, filter.Tags["p"])

	require.True(t, pool.Emit(zapReceipt(t, testPublicKey)))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
	}

	listener.ConsumeEvent(ctx, &events.Event{
		Event:      constants.EVENT_SWITCH_UPDATED,
		Properties: &events.SwitchEventProperties{SwitchID: sw.ID},
	}, nil)
	assert.Eventually(t, func() bool { return pool.SubscriptionCount() == 2 }, 2*time.Second, 10*time.Millisecond)
}
