package main

import (
	"sync"

	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/gsm"
)

// eventBus fans session events out to subscribers without ever blocking
// the engine goroutines that publish them.
type eventBus struct {
	log *zap.Logger

	mu   sync.RWMutex
	pool map[chan gsm.Event]struct{}
}

func newEventBus(log *zap.Logger) *eventBus {
	return &eventBus{log: log, pool: make(map[chan gsm.Event]struct{})}
}

// Publish delivers e to every subscriber. Subscribers with a full buffer
// lose the event.
func (b *eventBus) Publish(e gsm.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.pool {
		select {
		case ch <- e:
		default:
			b.log.Warn("subscriber full, dropping event",
				zap.String("kind", string(e.Kind)))
		}
	}
}

// Subscribe creates a new subscription channel. The returned cancel
// function unsubscribes and closes the channel.
func (b *eventBus) Subscribe(buffer int) (<-chan gsm.Event, func()) {
	if buffer <= 0 {
		buffer = 100
	}
	ch := make(chan gsm.Event, buffer)

	b.mu.Lock()
	b.pool[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.pool[ch]; ok {
			delete(b.pool, ch)
			close(ch)
		}
	}
}
