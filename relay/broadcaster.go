package relay

import (
	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/logger"
)

// Broadcaster delivers pin payloads to the devices of a switch. Delivery is
// fire-and-forget.
type Broadcaster interface {
	Broadcast(switchID string, payload string)
	HasSubscribers(switchID string) bool
}

type broadcaster struct {
	hub       *Hub
	publisher Publisher
}

// NewBroadcaster fans payloads out to the websocket hub and, when publisher is
// not nil, to the MQTT topic of the switch.
func NewBroadcaster(hub *Hub, publisher Publisher) Broadcaster {
	return &broadcaster{
		hub:       hub,
		publisher: publisher,
	}
}

func (b *broadcaster) Broadcast(switchID string, payload string) {
	sent := b.hub.Broadcast(switchID, payload)
	logger.Logger.Info().
		Str("switch_id", switchID).
		Str("payload", payload).
		Int("devices", sent).
		Msg("Sent payload to switch devices")

	if b.publisher == nil {
		return
	}
	topic := Topic(switchID)
	if err := b.publisher.Publish(topic, []byte(payload)); err != nil {
		logger.Logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish payload to MQTT")
	}
}

// HasSubscribers reports whether a payload can reach a device. MQTT gives no
// presence, so with a broker configured every switch counts as reachable.
func (b *broadcaster) HasSubscribers(switchID string) bool {
	if b.publisher != nil {
		return true
	}
	return b.hub.HasSubscribers(switchID)
}

func Topic(switchID string) string {
	return constants.MQTT_TOPIC_PREFIX + "/" + switchID
}
