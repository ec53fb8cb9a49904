package tests

import (
	"context"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/flokiorg/bitcoinswitch/logger"
)

type mockSimplePool struct {
	mu            sync.Mutex
	Filters       []nostr.Filter
	subscriptions []chan nostr.RelayEvent
}

func NewMockSimplePool() *mockSimplePool {
	return &mockSimplePool{}
}

// SubscribeMany records the filter and returns a channel fed by Emit. The
// channel is closed when ctx is done.
func (pool *mockSimplePool) SubscribeMany(ctx context.Context, urls []string, filter nostr.Filter, opts ...nostr.SubscriptionOption) chan nostr.RelayEvent {
	logger.Logger.Info().Interface("filter", filter).Msg("Mock subscribing")

	channel := make(chan nostr.RelayEvent)
	pool.mu.Lock()
	pool.Filters = append(pool.Filters, filter)
	pool.subscriptions = append(pool.subscriptions, channel)
	pool.mu.Unlock()

	go func() {
		<-ctx.Done()
		pool.mu.Lock()
		defer pool.mu.Unlock()
		for i, subscription := range pool.subscriptions {
			if subscription == channel {
				pool.subscriptions = append(pool.subscriptions[:i], pool.subscriptions[i+1:]...)
				break
			}
		}
		close(channel)
	}()
	return channel
}

// Emit delivers event to the most recent subscription and reports whether
// there was one.
func (pool *mockSimplePool) Emit(event *nostr.Event) bool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if len(pool.subscriptions) == 0 {
		return false
	}
	select {
	case pool.subscriptions[len(pool.subscriptions)-1] <- nostr.RelayEvent{Event: event}:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func (pool *mockSimplePool) SubscriptionCount() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return len(pool.Filters)
}

func (pool *mockSimplePool) LastFilter() nostr.Filter {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if len(pool.Filters) == 0 {
		return nostr.Filter{}
	}
	return pool.Filters[len(pool.Filters)-1]
}
