package events

import "context"

type EventSubscriber interface {
	ConsumeEvent(ctx context.Context, event *Event, globalProperties map[string]interface{})
}

type EventPublisher interface {
	RegisterSubscriber(eventListener EventSubscriber)
	RemoveSubscriber(eventListener EventSubscriber)
	Publish(event *Event)
	PublishSync(event *Event)
	SetGlobalProperty(key string, value interface{})
}

type Event struct {
	Event      string      `json:"event"`
	Properties interface{} `json:"properties,omitempty"`
}

// InvoicePaidEventProperties is published once an incoming invoice settles.
// Extra holds the metadata the invoice was created with.
type InvoicePaidEventProperties struct {
	WalletID    string                 `json:"wallet_id"`
	PaymentHash string                 `json:"payment_hash"`
	AmountMsat  uint64                 `json:"amount_msat"`
	Extra       map[string]interface{} `json:"extra"`
}

type SwitchEventProperties struct {
	SwitchID string `json:"switch_id"`
}
