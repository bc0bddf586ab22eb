package main

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/gsm"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := newEventBus(zap.NewNop())
	first, cancelFirst := bus.Subscribe(4)
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe(4)
	defer cancelSecond()

	bus.Publish(gsm.Event{Kind: gsm.EventLifecycle, Detail: "start", Time: time.Now()})

	for _, ch := range []<-chan gsm.Event{first, second} {
		select {
		case e := <-ch:
			if e.Kind != gsm.EventLifecycle || e.Detail != "start" {
				t.Errorf("unexpected event: %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatal("event never delivered")
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := newEventBus(zap.NewNop())
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(gsm.Event{Kind: gsm.EventCommand, Detail: "AT"})
	bus.Publish(gsm.Event{Kind: gsm.EventCommand, Detail: "ATH"})

	if got := len(ch); got != 1 {
		t.Errorf("expected one buffered event, got %d", got)
	}
	if e := <-ch; e.Detail != "AT" {
		t.Errorf("expected the first event kept, got %q", e.Detail)
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := newEventBus(zap.NewNop())
	ch, cancel := bus.Subscribe(1)

	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected the channel closed after cancel")
	}

	// Publishing after cancel must not panic, and cancel is idempotent.
	bus.Publish(gsm.Event{Kind: gsm.EventURC, Detail: "RING"})
	cancel()
}
