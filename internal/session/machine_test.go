package session

import (
	"errors"
	"testing"
	"time"

	"github.com/esotraders/exchange-bot/internal/models"
	"github.com/esotraders/exchange-bot/internal/validator"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMachine() (*Machine, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMachine(validator.New(), 15*time.Minute)
	m.now = clock.Now
	return m, clock
}

func TestMachine_FullFlow(t *testing.T) {
	m, _ := newTestMachine()

	out := m.Start("u1")
	if out.Step != AwaitingTrader || out.Prompt == "" {
		t.Fatalf("Start() = %+v, want trader prompt", out)
	}

	inputs := []struct {
		text string
		next Step
	}{
		{"Coizado", AwaitingCrowns},
		{"16000", AwaitingGold},
		{"16800000", AwaitingTime},
		{"12PM - 8PM EST", AwaitingDays},
		{"0", Complete},
	}

	var last Outcome
	for _, in := range inputs {
		var err error
		last, err = m.Advance("u1", in.text)
		if err != nil {
			t.Fatalf("Advance(%q) returned error: %v", in.text, err)
		}
		if last.Retry {
			t.Fatalf("Advance(%q) asked to retry: %s", in.text, last.Prompt)
		}
		if last.Step != in.next {
			t.Fatalf("Advance(%q) step = %s, want %s", in.text, last.Step, in.next)
		}
	}

	if last.Listing == nil {
		t.Fatal("Expected a listing on completion")
	}
	want := models.Listing{
		Trader:   "Coizado",
		Item:     models.DefaultItem,
		Quantity: 16000,
		Gold:     16800000,
		TimeInfo: "12PM - 8PM EST",
		DaysLeft: 0,
	}
	if *last.Listing != want {
		t.Errorf("Listing = %+v, want %+v", *last.Listing, want)
	}
	if m.Active("u1") || m.Len() != 0 {
		t.Error("Session should be removed after completion")
	}
}

func TestMachine_InvalidNumberKeepsState(t *testing.T) {
	m, _ := newTestMachine()
	m.Start("u1")
	if _, err := m.Advance("u1", "Coizado"); err != nil {
		t.Fatal(err)
	}
	before, _ := m.Draft("u1")

	out, err := m.Advance("u1", "abc")
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if !out.Retry || out.Step != AwaitingCrowns || out.Listing != nil {
		t.Errorf("Expected retry on crowns, got %+v", out)
	}

	after, ok := m.Draft("u1")
	if !ok {
		t.Fatal("Session disappeared after invalid input")
	}
	if after.Step != before.Step || after.Crowns != before.Crowns || after.Trader != "Coizado" {
		t.Errorf("Draft changed: before %+v, after %+v", before, after)
	}
}

func TestMachine_RejectsNonPositiveAndNegativeDays(t *testing.T) {
	m, _ := newTestMachine()
	m.Start("u1")
	steps := []string{"Coizado", "16,000", "16_800_000", "all day"}
	for _, s := range steps {
		if out, err := m.Advance("u1", s); err != nil || out.Retry {
			t.Fatalf("Advance(%q) = %+v, %v", s, out, err)
		}
	}
	out, err := m.Advance("u1", "-2")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Retry || out.Step != AwaitingDays {
		t.Errorf("Expected retry on negative days, got %+v", out)
	}
	out, err = m.Advance("u1", "3")
	if err != nil || out.Listing == nil {
		t.Fatalf("Expected completion, got %+v, %v", out, err)
	}
	if out.Listing.Quantity != 16000 || out.Listing.Gold != 16800000 || out.Listing.DaysLeft != 3 {
		t.Errorf("Unexpected listing %+v", *out.Listing)
	}
}

func TestMachine_ZeroCrownsRejected(t *testing.T) {
	m, _ := newTestMachine()
	m.Start("u1")
	m.Advance("u1", "Coizado")
	out, _ := m.Advance("u1", "0")
	if !out.Retry {
		t.Error("Expected zero crowns to be rejected")
	}
}

func TestMachine_EmptyTraderRejected(t *testing.T) {
	m, _ := newTestMachine()
	m.Start("u1")
	out, err := m.Advance("u1", "   ")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Retry || out.Step != AwaitingTrader {
		t.Errorf("Expected retry on empty trader, got %+v", out)
	}
}

func TestMachine_AdvanceWithoutSession(t *testing.T) {
	m, _ := newTestMachine()
	if _, err := m.Advance("nobody", "hello"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
}

func TestMachine_SessionsAreIndependent(t *testing.T) {
	m, _ := newTestMachine()
	m.Start("u1")
	m.Start("u2")
	m.Advance("u1", "Alice")
	m.Advance("u2", "Bob")
	m.Advance("u2", "5")

	d1, _ := m.Draft("u1")
	d2, _ := m.Draft("u2")
	if d1.Step != AwaitingCrowns || d1.Trader != "Alice" {
		t.Errorf("u1 draft = %+v", d1)
	}
	if d2.Step != AwaitingGold || d2.Trader != "Bob" || d2.Crowns != 5 {
		t.Errorf("u2 draft = %+v", d2)
	}
}

func TestMachine_ExpiryAndSweep(t *testing.T) {
	m, clock := newTestMachine()
	m.Start("u1")
	m.Start("u2")

	clock.Advance(10 * time.Minute)
	m.Advance("u2", "Bob") // refreshes u2

	clock.Advance(6 * time.Minute)
	if m.Active("u1") {
		t.Error("u1 should have expired")
	}
	if !m.Active("u2") {
		t.Error("u2 should still be active")
	}
	if _, err := m.Advance("u1", "late"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession for expired session, got %v", err)
	}

	if removed := m.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if m.Len() != 1 {
		t.Errorf("Expected 1 session left, got %d", m.Len())
	}
}

func TestMachine_CancelAndRestart(t *testing.T) {
	m, _ := newTestMachine()
	m.Start("u1")
	m.Advance("u1", "Coizado")

	m.Start("u1")
	d, _ := m.Draft("u1")
	if d.Step != AwaitingTrader || d.Trader != "" {
		t.Errorf("Start should reset the draft, got %+v", d)
	}

	if !m.Cancel("u1") {
		t.Error("Cancel should report an open session")
	}
	if m.Cancel("u1") {
		t.Error("Second Cancel should report nothing to cancel")
	}
}

func TestStep_String(t *testing.T) {
	if AwaitingGold.String() != "AWAITING_GOLD" || Complete.String() != "COMPLETE" {
		t.Errorf("Unexpected step names %s, %s", AwaitingGold, Complete)
	}
}
