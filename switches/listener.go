package switches

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/metrics"
	"github.com/flokiorg/bitcoinswitch/rates"
	"github.com/flokiorg/bitcoinswitch/relay"
)

// Listener settles switch payments when their invoice is paid and sends the
// pin instruction to the switch devices. Paid invoices are queued and handled
// one at a time.
type Listener struct {
	switchesService SwitchesService
	rateService     rates.RateService
	broadcaster     relay.Broadcaster
	queue           *events.EventQueue
}

func NewListener(switchesService SwitchesService, rateService rates.RateService, broadcaster relay.Broadcaster, queueSize int) *Listener {
	return &Listener{
		switchesService: switchesService,
		rateService:     rateService,
		broadcaster:     broadcaster,
		queue:           events.NewEventQueue(queueSize),
	}
}

func (l *Listener) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	if event.Event != constants.EVENT_INVOICE_PAID {
		return
	}
	properties, ok := event.Properties.(*events.InvoicePaidEventProperties)
	if !ok {
		logger.Logger.Error().Interface("event", event).Msg("Failed to cast event")
		return
	}
	if extraString(properties.Extra, "tag") != constants.SWITCH_INVOICE_TAG {
		return
	}

	if err := l.queue.Enqueue(event); err != nil {
		reason := "queue_full"
		if errors.Is(err, events.ErrQueueClosed) {
			reason = "shutdown"
		}
		logger.Logger.Error().Err(err).
			Str("payment_hash", properties.PaymentHash).
			Msg("Switch listener dropped paid invoice")
		metrics.IncPayloadsDropped(reason)
		return
	}
	metrics.SetListenerQueueLength(l.queue.Len())
}

// Start drains the queue until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) {
	go func() {
		logger.Logger.Info().Msg("Switch listener started")
		for {
			event, err := l.queue.NextEvent(ctx)
			if err != nil {
				logger.Logger.Info().Err(err).Msg("Switch listener stopped")
				return
			}
			metrics.SetListenerQueueLength(l.queue.Len())

			properties := event.Properties.(*events.InvoicePaidEventProperties)
			if _, err := l.Settle(ctx, properties); err != nil {
				logger.Logger.Error().Err(err).
					Str("payment_hash", properties.PaymentHash).
					Msg("Failed to settle switch payment")
			}
		}
	}()
}

// Stop closes the queue. Paid invoices still queued are not delivered.
func (l *Listener) Stop() {
	l.queue.Close()
	pending := l.queue.GetAndClearPendingEvents()
	if len(pending) > 0 {
		logger.Logger.Warn().Int("count", len(pending)).Msg("Switch listener stopped with paid invoices pending")
		for range pending {
			metrics.IncPayloadsDropped("shutdown")
		}
	}
	metrics.SetListenerQueueLength(0)
}

// Settle marks the switch payment of a paid invoice as paid and broadcasts its
// payload. It returns the delivered payload, or "" when nothing was sent.
// Settling an already paid payment is a no-op.
func (l *Listener) Settle(ctx context.Context, properties *events.InvoicePaidEventProperties) (string, error) {
	paymentID := extraString(properties.Extra, "id")
	payment, err := l.switchesService.GetPayment(ctx, paymentID)
	if err != nil {
		if IsNotFound(err) {
			logger.Logger.Warn().Str("payment_id", paymentID).Msg("No switch payment for paid invoice")
			return "", nil
		}
		return "", err
	}
	if payment.PaymentHash == constants.PAYMENT_HASH_PAID {
		logger.Logger.Debug().Str("payment_id", payment.ID).Msg("Switch payment already settled")
		return "", nil
	}

	payment.PaymentHash = constants.PAYMENT_HASH_PAID
	if _, err := l.switchesService.UpdatePayment(ctx, payment); err != nil {
		return "", fmt.Errorf("failed to mark switch payment as paid: %w", err)
	}
	kind := "lightning"
	if payment.IsAssetPayment {
		kind = "asset"
	}
	metrics.IncPaymentsSettled(kind)

	sw, err := l.switchesService.GetSwitch(ctx, payment.SwitchID)
	if err != nil {
		if IsNotFound(err) {
			logger.Logger.Warn().Str("switch_id", payment.SwitchID).Msg("Switch of paid payment no longer exists")
			metrics.IncPayloadsDropped("switch_deleted")
			return "", nil
		}
		return "", err
	}

	if payment.IsAssetPayment {
		l.checkQuote(ctx, sw, payment)
	}

	duration, err := strconv.Atoi(payment.Payload)
	if err != nil {
		pinConfig, ok := FindPin(sw, payment.Pin)
		if !ok {
			metrics.IncPayloadsDropped("pin_removed")
			return "", fmt.Errorf("pin %d of switch %s has no duration", payment.Pin, sw.ID)
		}
		duration = pinConfig.Duration
	}

	if extraBool(properties.Extra, "variable") {
		paidMsat := extraUint(properties.Extra, "amount")
		if paidMsat == 0 {
			paidMsat = properties.AmountMsat
		}
		duration = VariableDuration(duration, payment.AmountMsat, paidMsat)
	}

	comment := extraString(properties.Extra, "comment")
	if comment == "" && payment.Comment != nil {
		comment = *payment.Comment
	}

	if HasPassword(sw) {
		if !PasswordMatches(sw, comment) {
			logger.Logger.Warn().
				Str("switch_id", sw.ID).
				Str("payment_id", payment.ID).
				Msg("Incorrect switch password, payload not sent")
			metrics.IncPayloadsDropped("wrong_password")
			return "", nil
		}
		comment = ""
	}

	payload := BuildPayload(payment.Pin, duration, comment)
	l.broadcaster.Broadcast(sw.ID, payload)
	metrics.IncPayloadsDelivered("invoice")

	logger.Logger.Info().
		Str("switch_id", sw.ID).
		Str("payment_id", payment.ID).
		Str("payload", payload).
		Msg("Switch payment settled")
	return payload, nil
}

// checkQuote logs when the rate an asset payment was quoted at has expired or
// drifted too far. The payment is delivered either way.
func (l *Listener) checkQuote(ctx context.Context, sw *Switch, payment *SwitchPayment) {
	if l.rateService == nil || payment.AssetID == nil || payment.QuotedRate == nil {
		return
	}
	if l.rateService.IsRateExpired(payment.QuotedAt) {
		logger.Logger.Warn().
			Str("payment_id", payment.ID).
			Str("asset_id", *payment.AssetID).
			Msg("Asset payment settled after its quote expired")
	}

	quantity := uint64(1)
	if payment.AssetAmount != nil && *payment.AssetAmount > 0 {
		quantity = *payment.AssetAmount
	}
	currentRate, ok := l.rateService.GetCurrentRate(ctx, *payment.AssetID, sw.Wallet, "", quantity)
	if !ok {
		return
	}
	if !l.rateService.IsRateWithinTolerance(*payment.QuotedRate, currentRate, nil) {
		logger.Logger.Warn().
			Str("payment_id", payment.ID).
			Str("asset_id", *payment.AssetID).
			Float64("quoted_rate", *payment.QuotedRate).
			Float64("current_rate", currentRate).
			Msg("Asset rate moved beyond tolerance since quote")
	}
}

var errMissingExtra = errors.New("missing extra value")

func extraString(extra map[string]interface{}, key string) string {
	value, ok := extra[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func extraBool(extra map[string]interface{}, key string) bool {
	switch v := extra[key].(type) {
	case bool:
		return v
	case string:
		parsed, _ := strconv.ParseBool(v)
		return parsed
	default:
		return false
	}
}

// extraUint reads a number that may have gone through a JSON round trip.
func extraUint(extra map[string]interface{}, key string) uint64 {
	value, err := extraNumber(extra, key)
	if err != nil || value < 0 {
		return 0
	}
	return uint64(value)
}

func extraNumber(extra map[string]interface{}, key string) (float64, error) {
	switch v := extra[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, errMissingExtra
	}
}
