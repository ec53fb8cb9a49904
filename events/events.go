package events

import (
	"context"
	"slices"
	"sync"

	"github.com/flokiorg/bitcoinswitch/logger"
)

type eventPublisher struct {
	listeners           []EventSubscriber
	subscriberMtx       sync.RWMutex
	globalProperties    map[string]interface{}
	globalPropertiesMtx sync.RWMutex
}

func NewEventPublisher() *eventPublisher {
	return &eventPublisher{
		listeners:        []EventSubscriber{},
		globalProperties: map[string]interface{}{},
	}
}

func (ep *eventPublisher) RegisterSubscriber(listener EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()
	ep.listeners = append(ep.listeners, listener)
}

func (ep *eventPublisher) RemoveSubscriber(listenerToRemove EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()

	ep.listeners = slices.DeleteFunc(ep.listeners, func(listener EventSubscriber) bool {
		return listener == listenerToRemove
	})
}

// Publish delivers the event to every subscriber on its own goroutine.
func (ep *eventPublisher) Publish(event *Event) {
	ep.publish(event, false)
}

// PublishSync returns once every subscriber has consumed the event.
func (ep *eventPublisher) PublishSync(event *Event) {
	ep.publish(event, true)
}

func (ep *eventPublisher) publish(event *Event, wait bool) {
	ep.subscriberMtx.RLock()
	listeners := slices.Clone(ep.listeners)
	ep.subscriberMtx.RUnlock()

	globalProperties := ep.copyGlobalProperties()

	logger.Logger.Debug().Str("event", event.Event).Int("subscribers", len(listeners)).Msg("Publishing event")

	var wg sync.WaitGroup
	for _, listener := range listeners {
		wg.Add(1)
		go func(listener EventSubscriber) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Logger.Error().Interface("recover", r).Str("event", event.Event).Msg("Event subscriber panicked")
				}
			}()
			listener.ConsumeEvent(context.Background(), event, globalProperties)
		}(listener)
	}
	if wait {
		wg.Wait()
	}
}

func (ep *eventPublisher) SetGlobalProperty(key string, value interface{}) {
	ep.globalPropertiesMtx.Lock()
	defer ep.globalPropertiesMtx.Unlock()
	ep.globalProperties[key] = value
}

func (ep *eventPublisher) copyGlobalProperties() map[string]interface{} {
	ep.globalPropertiesMtx.RLock()
	defer ep.globalPropertiesMtx.RUnlock()

	properties := make(map[string]interface{}, len(ep.globalProperties))
	for k, v := range ep.globalProperties {
		properties[k] = v
	}
	return properties
}
