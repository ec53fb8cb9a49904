package zaps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/events"
	decodepay "github.com/flokiorg/bitcoinswitch/lndecodepay"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/metrics"
	"github.com/flokiorg/bitcoinswitch/rates"
	"github.com/flokiorg/bitcoinswitch/relay"
	"github.com/flokiorg/bitcoinswitch/switches"
)

const (
	resubscribeDelay = 3 * time.Second
	maxSeenEvents    = 10_000
)

var (
	errUnmatchedReceipt = errors.New("zap receipt does not match a switch")
	errInvalidReceipt   = errors.New("zap receipt is not signed by the switch key")
)

// Listener fires switches on NIP-57 zap receipts addressed to their public
// key.
type Listener struct {
	switchesService switches.SwitchesService
	fiatService     rates.FiatService
	broadcaster     relay.Broadcaster
	pool            SimplePool
	relayUrls       []string
	resubscribe     chan struct{}
	since           nostr.Timestamp

	seenMtx sync.Mutex
	seen    map[string]struct{}
}

func NewListener(switchesService switches.SwitchesService, fiatService rates.FiatService, broadcaster relay.Broadcaster, pool SimplePool, relayUrls []string) *Listener {
	return &Listener{
		switchesService: switchesService,
		fiatService:     fiatService,
		broadcaster:     broadcaster,
		pool:            pool,
		relayUrls:       relayUrls,
		resubscribe:     make(chan struct{}, 1),
		since:           nostr.Now(),
		seen:            map[string]struct{}{},
	}
}

// ConsumeEvent refreshes the subscription whenever the set of switches changes.
func (l *Listener) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	switch event.Event {
	case constants.EVENT_SWITCH_CREATED, constants.EVENT_SWITCH_UPDATED, constants.EVENT_SWITCH_DELETED:
		select {
		case l.resubscribe <- struct{}{}:
		default:
		}
	}
}

func (l *Listener) Start(ctx context.Context) {
	go func() {
		logger.Logger.Info().Strs("relays", l.relayUrls).Msg("Zap listener started")
		for {
			err := l.subscribe(ctx)
			if ctx.Err() != nil {
				logger.Logger.Info().Msg("Zap listener stopped")
				return
			}
			if err != nil {
				logger.Logger.Error().Err(err).Msg("Zap subscription ended, resubscribing")
				select {
				case <-ctx.Done():
					return
				case <-time.After(resubscribeDelay):
				}
			}
		}
	}()
}

// subscribe runs one subscription for the current switch keys. It returns nil
// when the keys changed and an error when the relays closed the subscription.
func (l *Listener) subscribe(ctx context.Context) error {
	keys, err := l.switchesService.ListPublicKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list switch public keys: %w", err)
	}

	if len(keys) == 0 {
		logger.Logger.Debug().Msg("No switch accepts zaps, waiting for changes")
		select {
		case <-ctx.Done():
		case <-l.resubscribe:
		}
		return nil
	}

	subCtx, cancelSubscription := context.WithCancel(ctx)
	defer cancelSubscription()

	filter := nostr.Filter{
		Kinds: []int{constants.ZAP_RECEIPT_KIND},
		Tags:  nostr.TagMap{"p": keys},
		Since: &l.since,
	}
	logger.Logger.Info().Int("keys", len(keys)).Msg("Subscribing to zap receipts")
	eventsChannel := l.pool.SubscribeMany(subCtx, l.relayUrls, filter)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.resubscribe:
			return nil
		case relayEvent, ok := <-eventsChannel:
			if !ok {
				return errors.New("subscription exited abnormally")
			}
			if relayEvent.Event == nil {
				continue
			}
			_, err := l.HandleZap(ctx, relayEvent.Event)
			switch {
			case err == nil, errors.Is(err, errUnmatchedReceipt):
			case errors.Is(err, errInvalidReceipt):
				logger.Logger.Warn().Err(err).Str("event_id", relayEvent.Event.ID).Msg("Ignoring zap receipt")
			default:
				logger.Logger.Error().Err(err).Str("event_id", relayEvent.Event.ID).Msg("Failed to handle zap receipt")
			}
		}
	}
}

// HandleZap fires the first pin of the switch a zap receipt is addressed to
// and returns the payload sent. The receipt must be signed by the switch key.
func (l *Listener) HandleZap(ctx context.Context, event *nostr.Event) (string, error) {
	if event.Kind != constants.ZAP_RECEIPT_KIND {
		return "", errUnmatchedReceipt
	}
	var sw *switches.Switch
	for _, tag := range event.Tags {
		if len(tag) < 2 || tag[0] != "p" {
			continue
		}
		found, err := l.switchesService.GetSwitchByNpub(ctx, tag[1])
		if err != nil {
			if switches.IsNotFound(err) {
				continue
			}
			return "", err
		}
		sw = found
		break
	}
	if sw == nil {
		return "", errUnmatchedReceipt
	}
	if err := verifyReceipt(event, sw); err != nil {
		metrics.IncPayloadsDropped("zap_invalid")
		return "", err
	}
	if !l.markSeen(event.ID) {
		return "", nil
	}
	if sw.Disabled {
		logger.Logger.Info().Str("switch_id", sw.ID).Msg("Ignoring zap for disabled switch")
		return "", nil
	}
	if len(sw.Switches) == 0 {
		return "", fmt.Errorf("switch %s has no pins", sw.ID)
	}
	pin := sw.Switches[0]

	bolt11Tag := event.Tags.GetFirst([]string{"bolt11", ""})
	if bolt11Tag == nil || len(*bolt11Tag) < 2 {
		return "", fmt.Errorf("zap receipt %s has no bolt11 tag", event.ID)
	}
	invoice, err := decodepay.Decodepay((*bolt11Tag)[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode zap invoice: %w", err)
	}
	paidMsat := uint64(invoice.MSat)

	priceMsat, err := switches.PriceMsat(ctx, l.fiatService, sw.Currency, pin.Amount)
	if err != nil {
		return "", err
	}

	duration := pin.Duration
	if pin.Variable {
		duration = switches.VariableDuration(pin.Duration, priceMsat, paidMsat)
	} else if paidMsat < priceMsat {
		logger.Logger.Info().
			Str("switch_id", sw.ID).
			Uint64("paid_msat", paidMsat).
			Uint64("price_msat", priceMsat).
			Msg("Zap below pin price, ignoring")
		metrics.IncPayloadsDropped("zap_underpaid")
		return "", nil
	}

	payload := switches.BuildPayload(pin.Pin, duration, "")
	l.broadcaster.Broadcast(sw.ID, payload)
	metrics.IncPayloadsDelivered("zap")

	logger.Logger.Info().
		Str("switch_id", sw.ID).
		Str("event_id", event.ID).
		Str("payload", payload).
		Msg("Switch fired by zap")
	return payload, nil
}

// verifyReceipt accepts only receipts authored and signed by the key the
// switch was registered with.
func verifyReceipt(event *nostr.Event, sw *switches.Switch) error {
	if sw.Npub == nil {
		return errInvalidReceipt
	}
	key, err := switches.PublicKeyHex(*sw.Npub)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidReceipt, err)
	}
	if event.PubKey != key {
		return fmt.Errorf("%w: author %s", errInvalidReceipt, event.PubKey)
	}
	if event.GetID() != event.ID {
		return fmt.Errorf("%w: id mismatch", errInvalidReceipt)
	}
	ok, err := event.CheckSignature()
	if err != nil || !ok {
		return fmt.Errorf("%w: bad signature", errInvalidReceipt)
	}
	return nil
}

// markSeen reports whether the event is new. Relays deliver the same receipt
// more than once across resubscriptions.
func (l *Listener) markSeen(eventID string) bool {
	l.seenMtx.Lock()
	defer l.seenMtx.Unlock()
	if _, ok := l.seen[eventID]; ok {
		return false
	}
	if len(l.seen) >= maxSeenEvents {
		l.seen = map[string]struct{}{}
	}
	l.seen[eventID] = struct{}{}
	return true
}
