package gsm

import "time"

// EventKind labels engine notifications delivered through the configured
// notify hook.
type EventKind string

const (
	// EventLifecycle marks start, stop, resume and restart of the session.
	EventLifecycle EventKind = "lifecycle"
	// EventState marks a channel bring-up state transition.
	EventState EventKind = "state"
	// EventCommand marks a command written to the modem.
	EventCommand EventKind = "command"
	// EventIdentity marks a captured identity field.
	EventIdentity EventKind = "identity"
	// EventCarrier marks carrier activation and deactivation.
	EventCarrier EventKind = "carrier"
	// EventError marks a failed bring-up step about to be retried.
	EventError EventKind = "error"
	// EventURC marks a modem line no handler claimed.
	EventURC EventKind = "urc"
)

// Event is one engine notification.
type Event struct {
	Kind   EventKind `json:"kind"`
	Detail string    `json:"detail"`
	Time   time.Time `json:"time"`
}

// emit hands an event to the notify hook, when one is configured. The
// hook runs on engine goroutines and must not block.
func (s *Session) emit(kind EventKind, detail string) {
	if s.cfg.Notify == nil {
		return
	}
	s.cfg.Notify(Event{Kind: kind, Detail: detail, Time: time.Now()})
}
