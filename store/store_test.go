package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"i4.energy/across/gsm_ppp/gsm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("unexpected error from Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("unexpected error from Migrate: %v", err)
	}
	return s
}

func TestInsertAndRecentEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	kinds := []gsm.EventKind{gsm.EventLifecycle, gsm.EventCommand, gsm.EventCarrier}
	for i, kind := range kinds {
		e := gsm.Event{Kind: kind, Detail: "d", Time: base.Add(time.Duration(i) * time.Second)}
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("unexpected error from InsertEvent: %v", err)
		}
	}

	got, err := s.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error from RecentEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Newest first.
	if got[0].Kind != "carrier" || got[2].Kind != "lifecycle" {
		t.Errorf("unexpected order: %q, %q, %q", got[0].Kind, got[1].Kind, got[2].Kind)
	}
	for _, r := range got {
		if r.ID == "" {
			t.Error("expected a generated event id")
		}
		if r.Detail != "d" {
			t.Errorf("expected detail d, got %q", r.Detail)
		}
	}
}

func TestRecentEventsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := gsm.Event{Kind: gsm.EventURC, Detail: "line", Time: time.Now()}
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("unexpected error from InsertEvent: %v", err)
		}
	}

	got, err := s.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error from RecentEvents: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 events, got %d", len(got))
	}

	// A non-positive limit falls back to the default.
	got, err = s.RecentEvents(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error from RecentEvents: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("expected all 5 events, got %d", len(got))
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(); err != nil {
		t.Errorf("unexpected error from second Migrate: %v", err)
	}
}
