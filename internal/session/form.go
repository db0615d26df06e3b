package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/esotraders/exchange-bot/internal/models"
	"github.com/esotraders/exchange-bot/internal/util"
)

var (
	// ErrNoPendingForm is returned when a timezone is chosen without a prior valid submission.
	ErrNoPendingForm = errors.New("no submitted listing form is waiting for a timezone")
	// ErrUnknownTimeZone is returned for a timezone outside models.TimeZones.
	ErrUnknownTimeZone = errors.New("unknown timezone")
)

// Form field names. The Discord adapter uses them as text input ids.
const (
	FieldBuyer         = "buyer"
	FieldRate          = "rate"
	FieldQuantity      = "quantity"
	FieldItem          = "item"
	FieldDaysLeft      = "days_left"
	FieldAvailableDays = "available_days"
	FieldAvailableTime = "available_time"
)

// FormSubmission is the raw text of one structured form.
type FormSubmission struct {
	Buyer         string
	Rate          string
	Quantity      string
	Item          string
	DaysLeft      string
	AvailableDays string
	AvailableTime string
}

// FieldErrors maps a form field name to the reason it was rejected.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e[name])
	}
	return "invalid form fields: " + strings.Join(parts, "; ")
}

type pendingForm struct {
	listing models.Listing
	expires time.Time
}

type rejectedForm struct {
	submission FormSubmission
	errs       FieldErrors
	expires    time.Time
}

// FormDriver is the single-shot structured-form driver. A valid submission is
// parked per user until the timezone is chosen; a rejected one is kept so the
// form can be reopened with the user's values.
type FormDriver struct {
	mu        sync.Mutex
	pending   map[string]*pendingForm
	rejected  map[string]*rejectedForm
	ttl       time.Duration
	validator Validator
	now       func() time.Time
}

// NewFormDriver returns a FormDriver whose parked forms expire after ttl.
func NewFormDriver(v Validator, ttl time.Duration) *FormDriver {
	return &FormDriver{
		pending:   make(map[string]*pendingForm),
		rejected:  make(map[string]*rejectedForm),
		ttl:       ttl,
		validator: v,
		now:       time.Now,
	}
}

// Submit validates every field of sub. On failure it returns FieldErrors and
// remembers the submission for Rejected; on success the parsed fields wait
// for Choose.
func (f *FormDriver) Submit(userID string, sub FormSubmission) error {
	l, errs := f.parse(sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	expires := f.now().Add(f.ttl)
	if len(errs) > 0 {
		delete(f.pending, userID)
		f.rejected[userID] = &rejectedForm{submission: sub, errs: errs, expires: expires}
		return errs
	}
	delete(f.rejected, userID)
	f.pending[userID] = &pendingForm{listing: l, expires: expires}
	return nil
}

// Rejected returns the last rejected submission of userID and why it failed.
func (f *FormDriver) Rejected(userID string) (FormSubmission, FieldErrors, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rejected[userID]
	if !ok || !f.now().Before(r.expires) {
		return FormSubmission{}, nil, false
	}
	return r.submission, r.errs, true
}

// Pending reports whether userID has a submission waiting for a timezone.
func (f *FormDriver) Pending(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[userID]
	return ok && f.now().Before(p.expires)
}

// Choose completes the pending form of userID with timezone and returns the
// listing. The pending form is consumed on success only.
func (f *FormDriver) Choose(userID, timezone string) (models.Listing, error) {
	if _, ok := models.LookupTimeZone(timezone); !ok {
		return models.Listing{}, fmt.Errorf("%w: %q", ErrUnknownTimeZone, timezone)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[userID]
	if !ok || !f.now().Before(p.expires) {
		delete(f.pending, userID)
		return models.Listing{}, ErrNoPendingForm
	}

	l := p.listing
	l.TimeZone = timezone
	if err := f.validator.ValidateStruct(l); err != nil {
		return models.Listing{}, fmt.Errorf("build listing: %w", err)
	}
	delete(f.pending, userID)
	return l, nil
}

const itemMessage = "enter an item of up to 32 characters without `|`"

// CheckItem validates an item name on its own. The Discord form has no item
// input, so the adapter checks the item before the form is shown.
func (f *FormDriver) CheckItem(item string) error {
	if err := f.validator.ValidateVar(strings.TrimSpace(item), itemTag); err != nil {
		return FieldErrors{FieldItem: itemMessage}
	}
	return nil
}

// Sweep drops expired pending and rejected forms and returns how many were removed.
func (f *FormDriver) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	removed := 0
	for id, p := range f.pending {
		if !now.Before(p.expires) {
			delete(f.pending, id)
			removed++
		}
	}
	for id, r := range f.rejected {
		if !now.Before(r.expires) {
			delete(f.rejected, id)
			removed++
		}
	}
	return removed
}

func (f *FormDriver) parse(sub FormSubmission) (models.Listing, FieldErrors) {
	errs := FieldErrors{}

	buyer := strings.TrimSpace(sub.Buyer)
	if err := f.validator.ValidateVar(buyer, traderTag); err != nil {
		errs[FieldBuyer] = "enter a name of up to 64 characters without `|`"
	}

	item := strings.TrimSpace(sub.Item)
	if item == "" {
		item = models.DefaultItem
	}
	if err := f.CheckItem(item); err != nil {
		errs[FieldItem] = itemMessage
	}

	quantity, err := util.ParsePositive(sub.Quantity)
	if err != nil {
		errs[FieldQuantity] = "enter a whole number greater than 0"
	}

	rate, err := models.ParseRate(strings.ReplaceAll(sub.Rate, ",", ""))
	if err != nil || rate == 0 {
		errs[FieldRate] = "enter the gold per unit as a number greater than 0"
	} else if _, bad := errs[FieldQuantity]; !bad {
		switch {
		case !models.TotalFits(quantity, rate):
			errs[FieldRate] = "rate is too large for this quantity"
		case models.Total(quantity, rate) <= 0:
			errs[FieldRate] = "rate is too small for this quantity"
		}
	}

	daysLeft := 0
	if s := strings.TrimSpace(sub.DaysLeft); s != "" {
		daysLeft, err = util.ParseNonNegative(s)
		if err != nil {
			errs[FieldDaysLeft] = "enter a whole number, 0 for a standard listing"
		}
	}

	days := strings.TrimSpace(sub.AvailableDays)
	if err := f.validator.ValidateVar(days, daysTag); err != nil {
		errs[FieldAvailableDays] = "enter up to 64 characters without `|`"
	}

	timeInfo := strings.TrimSpace(sub.AvailableTime)
	if err := f.validator.ValidateVar(timeInfo, timeInfoTag); err != nil {
		errs[FieldAvailableTime] = "enter when you are available, up to 100 characters without `|`"
	}

	if len(errs) > 0 {
		return models.Listing{}, errs
	}
	return models.Listing{
		Trader:   buyer,
		Item:     item,
		Quantity: quantity,
		Rate:     rate,
		Gold:     models.Total(quantity, rate),
		Days:     days,
		TimeInfo: timeInfo,
		DaysLeft: daysLeft,
	}, nil
}
