package zaps

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// SimplePool is the part of nostr.SimplePool the listener subscribes through.
type SimplePool interface {
	SubscribeMany(ctx context.Context, urls []string, filter nostr.Filter, opts ...nostr.SubscriptionOption) chan nostr.RelayEvent
}
