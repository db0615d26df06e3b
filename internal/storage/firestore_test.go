package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/esotraders/exchange-bot/internal/models"
)

func TestEventID_Stable(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := eventID(KindAdded, "u1", "Coizado", at)
	b := eventID(KindAdded, "u1", "Coizado", at)
	if a != b {
		t.Errorf("eventID not stable: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected hex sha256, got %d chars", len(a))
	}

	tests := []struct {
		name string
		id   string
	}{
		{"kind", eventID(KindRemoved, "u1", "Coizado", at)},
		{"user", eventID(KindAdded, "u2", "Coizado", at)},
		{"trader", eventID(KindAdded, "u1", "Mara", at)},
		{"time", eventID(KindAdded, "u1", "Coizado", at.Add(time.Nanosecond))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == a {
				t.Errorf("Changing %s should change the id", tt.name)
			}
		})
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	ctx := context.Background()
	if err := c.RecordAdded(ctx, "u1", models.Listing{Trader: "Coizado"}); err != nil {
		t.Errorf("RecordAdded on nil client = %v", err)
	}
	if err := c.RecordRemoved(ctx, "u1", "Coizado", 1); err != nil {
		t.Errorf("RecordRemoved on nil client = %v", err)
	}
	events, err := c.Recent(ctx, 5)
	if err != nil || events != nil {
		t.Errorf("Recent on nil client = %v, %v", events, err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client = %v", err)
	}
}

func TestEvent_Describe(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := models.Listing{Trader: "Coizado", Item: "Crowns", Quantity: 1, Gold: 2, TimeInfo: "now"}

	added := Event{Kind: KindAdded, Trader: "Coizado", Listing: &l, OccurredAt: at}
	if got := added.Describe(); !strings.HasPrefix(got, "2025-06-01 12:00 UTC added: @Exchange @Broker Coizado/") {
		t.Errorf("Describe() = %q", got)
	}

	removed := Event{Kind: KindRemoved, Trader: "Coizado", Removed: 2, OccurredAt: at}
	if got := removed.Describe(); got != "2025-06-01 12:00 UTC removed 2 listing(s) for Coizado" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestErrEventExists(t *testing.T) {
	if ErrEventExists.Error() != "listing event already exists" {
		t.Errorf("ErrEventExists message = %q", ErrEventExists.Error())
	}
}
