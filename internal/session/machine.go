// Package session collects listing fields from users, either one chat
// message at a time (Machine) or from a single form submission followed by a
// timezone choice (FormDriver). Both keep per-user state in maps keyed by the
// user's platform id and expire entries that are abandoned.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/esotraders/exchange-bot/internal/models"
	"github.com/esotraders/exchange-bot/internal/util"
)

// ErrNoSession is returned when a user without an open session sends input.
var ErrNoSession = errors.New("no listing session in progress")

// Validator checks listing values before a listing is built.
type Validator interface {
	ValidateStruct(s interface{}) error
	ValidateVar(field interface{}, tag string) error
}

// Field rules for free-text input. They mirror the models.Listing struct tags
// minus "trimmed", since input is trimmed before it is checked. 0x7C is "|",
// which the validator would otherwise read as "or".
const (
	traderTag   = "required,excludes=0x7C,max=64"
	itemTag     = "excludes=0x7C,max=32"
	daysTag     = "excludes=0x7C,max=64"
	timeInfoTag = "required,excludes=0x7C,max=100"
)

// Step is the field a session is waiting for.
type Step int

const (
	AwaitingTrader Step = iota
	AwaitingCrowns
	AwaitingGold
	AwaitingTime
	AwaitingDays
	Complete
)

func (s Step) String() string {
	switch s {
	case AwaitingTrader:
		return "AWAITING_TRADER"
	case AwaitingCrowns:
		return "AWAITING_CROWNS"
	case AwaitingGold:
		return "AWAITING_GOLD"
	case AwaitingTime:
		return "AWAITING_TIME"
	case AwaitingDays:
		return "AWAITING_DAYS"
	case Complete:
		return "COMPLETE"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Prompt is the question asked while waiting on s.
func (s Step) Prompt() string {
	switch s {
	case AwaitingTrader:
		return "Enter the trader name:"
	case AwaitingCrowns:
		return "How many crowns are you trading?"
	case AwaitingGold:
		return "How much gold in total?"
	case AwaitingTime:
		return "When are you available? (e.g. 12PM - 8PM EST)"
	case AwaitingDays:
		return "How many days left? (0 for a standard listing)"
	}
	return ""
}

// Draft is the partially filled field set of one session.
type Draft struct {
	Trader   string
	Crowns   int
	Gold     int64
	TimeInfo string
	DaysLeft int
	Step     Step

	expires time.Time
}

// Outcome describes what happened to a session after an input.
type Outcome struct {
	// Step is the step the session now waits on, or Complete.
	Step Step
	// Prompt is the next question, or a correction when Retry is set.
	Prompt string
	// Retry is set when the input was rejected and the step did not change.
	Retry bool
	// Listing is set once the session completes.
	Listing *models.Listing
}

// Machine is the sequential free-text driver.
type Machine struct {
	mu        sync.Mutex
	sessions  map[string]*Draft
	ttl       time.Duration
	validator Validator
	now       func() time.Time
}

// NewMachine returns a Machine whose sessions expire ttl after the last input.
func NewMachine(v Validator, ttl time.Duration) *Machine {
	return &Machine{
		sessions:  make(map[string]*Draft),
		ttl:       ttl,
		validator: v,
		now:       time.Now,
	}
}

// Start opens a fresh session for userID, discarding any previous one.
func (m *Machine) Start(userID string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = &Draft{Step: AwaitingTrader, expires: m.now().Add(m.ttl)}
	return Outcome{Step: AwaitingTrader, Prompt: AwaitingTrader.Prompt()}
}

// Active reports whether userID has an unexpired session.
func (m *Machine) Active(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(userID)
	return ok
}

// Cancel drops the session of userID and reports whether one was open.
func (m *Machine) Cancel(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(userID)
	delete(m.sessions, userID)
	return ok
}

// Advance interprets input as the value of the step the session waits on.
// Invalid input leaves the draft untouched and asks again.
func (m *Machine) Advance(userID, input string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.lookup(userID)
	if !ok {
		return Outcome{}, ErrNoSession
	}
	input = strings.TrimSpace(input)

	if msg := m.apply(d, input); msg != "" {
		d.expires = m.now().Add(m.ttl)
		return Outcome{Step: d.Step, Prompt: msg, Retry: true}, nil
	}

	d.Step++
	if d.Step != Complete {
		d.expires = m.now().Add(m.ttl)
		return Outcome{Step: d.Step, Prompt: d.Step.Prompt()}, nil
	}

	delete(m.sessions, userID)
	l := models.Listing{
		Trader:   d.Trader,
		Item:     models.DefaultItem,
		Quantity: d.Crowns,
		Gold:     d.Gold,
		TimeInfo: d.TimeInfo,
		DaysLeft: d.DaysLeft,
	}
	if err := m.validator.ValidateStruct(l); err != nil {
		return Outcome{}, fmt.Errorf("build listing: %w", err)
	}
	return Outcome{Step: Complete, Listing: &l}, nil
}

// apply stores input into the draft field for its current step. It returns a
// correction message when the input is rejected.
func (m *Machine) apply(d *Draft, input string) string {
	switch d.Step {
	case AwaitingTrader:
		if err := m.validator.ValidateVar(input, traderTag); err != nil {
			return "Please enter a trader name (up to 64 characters, no `|`)."
		}
		d.Trader = input
	case AwaitingCrowns:
		n, err := util.ParsePositive(input)
		if err != nil {
			return "Please enter the number of crowns as a whole number greater than 0."
		}
		d.Crowns = n
	case AwaitingGold:
		n, err := util.ParsePositive(input)
		if err != nil {
			return "Please enter the gold amount as a whole number greater than 0."
		}
		d.Gold = int64(n)
	case AwaitingTime:
		if err := m.validator.ValidateVar(input, timeInfoTag); err != nil {
			return "Please describe when you are available (up to 100 characters, no `|`)."
		}
		d.TimeInfo = input
	case AwaitingDays:
		n, err := util.ParseNonNegative(input)
		if err != nil {
			return "Please enter days left as a whole number (0 for a standard listing)."
		}
		d.DaysLeft = n
	}
	return ""
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Machine) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, d := range m.sessions {
		if !now.Before(d.expires) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions held, expired or not.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Draft returns a copy of the session of userID.
func (m *Machine) Draft(userID string) (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.lookup(userID)
	if !ok {
		return Draft{}, false
	}
	return *d, true
}

func (m *Machine) lookup(userID string) (*Draft, bool) {
	d, ok := m.sessions[userID]
	if !ok || !m.now().Before(d.expires) {
		return nil, false
	}
	return d, true
}
