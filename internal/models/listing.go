package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultItem is the currency traded when a listing names none.
const DefaultItem = "Crowns"

// LineDelimiter separates fields in the canonical copy/paste line.
const LineDelimiter = "|"

// lineFieldCount is the number of fields Line writes and ParseLine expects.
const lineFieldCount = 9

var (
	// ErrFieldCount is returned when a canonical line does not carry exactly nine fields.
	ErrFieldCount = errors.New("listing line must have exactly 9 fields")
	// ErrInconsistentTotal is returned when a quoted rate does not produce the stated gold total.
	ErrInconsistentTotal = errors.New("gold total does not match quantity × rate")
)

// Listing is one exchange offer. It is built only from validated input and
// never mutated once stored.
type Listing struct {
	Trader   string  `firestore:"trader" validate:"required,trimmed,excludes=0x7C,max=64"`
	Item     string  `firestore:"item" validate:"required,trimmed,excludes=0x7C,max=32"`
	Quantity int     `firestore:"quantity" validate:"gt=0"`
	Rate     float64 `firestore:"rate" validate:"gte=0"`
	Gold     int64   `firestore:"gold" validate:"gt=0"`
	Days     string  `firestore:"days,omitempty" validate:"trimmed,excludes=0x7C,max=64"`
	TimeInfo string  `firestore:"timeInfo" validate:"required,trimmed,excludes=0x7C,max=100"`
	TimeZone string  `firestore:"timeZone,omitempty" validate:"trimmed,excludes=0x7C,max=16"`
	DaysLeft int     `firestore:"daysLeft" validate:"gte=0"`
}

// Total is the gold owed for quantity units at rate gold each, rounded to
// the nearest whole coin.
func Total(quantity int, rate float64) int64 {
	return int64(math.Round(float64(quantity) * rate))
}

// TotalFits reports whether Total(quantity, rate) is representable as int64.
// Callers must check it before trusting Total with user-supplied rates.
func TotalFits(quantity int, rate float64) bool {
	p := math.Round(float64(quantity) * rate)
	return p >= math.MinInt64 && p < 1<<63
}

// Priority reports whether the listing is time-limited.
func (l Listing) Priority() bool {
	return l.DaysLeft > 0
}

// Consistent reports whether Gold agrees with a quoted Rate. Listings without
// a rate are always consistent.
func (l Listing) Consistent() bool {
	return l.Rate == 0 || (TotalFits(l.Quantity, l.Rate) && l.Gold == Total(l.Quantity, l.Rate))
}

// Availability renders the availability part of the human-readable line.
func (l Listing) Availability() string {
	if l.Days == "" && l.TimeZone == "" {
		return "All " + l.TimeInfo
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Days, l.TimeInfo, l.TimeZone} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (l Listing) String() string {
	gold := fmt.Sprintf("%d Gold", l.Gold)
	if l.Rate > 0 {
		gold += " @ " + formatRate(l.Rate) + " each"
	}
	return fmt.Sprintf("@Exchange @Broker %s/ %d %s/ %s/ (%s) (%d Days Left)",
		l.Trader, l.Quantity, l.Item, gold, l.Availability(), l.DaysLeft)
}

// Line renders the canonical copy/paste form accepted by ParseLine.
func (l Listing) Line() string {
	fields := []string{
		l.Trader,
		l.Item,
		strconv.Itoa(l.Quantity),
		formatRate(l.Rate),
		strconv.FormatInt(l.Gold, 10),
		l.Days,
		l.TimeInfo,
		l.TimeZone,
		strconv.Itoa(l.DaysLeft),
	}
	return strings.Join(fields, " "+LineDelimiter+" ")
}

// ParseLine rebuilds a listing from its canonical line. Field constraints
// beyond number syntax are left to the validator.
func ParseLine(s string) (Listing, error) {
	fields := strings.Split(strings.TrimSpace(s), LineDelimiter)
	if len(fields) != lineFieldCount {
		return Listing{}, fmt.Errorf("%w: got %d", ErrFieldCount, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	quantity, err := strconv.Atoi(fields[2])
	if err != nil {
		return Listing{}, fmt.Errorf("invalid quantity %q: %w", fields[2], err)
	}
	rate, err := ParseRate(fields[3])
	if err != nil {
		return Listing{}, err
	}
	gold, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Listing{}, fmt.Errorf("invalid gold %q: %w", fields[4], err)
	}
	daysLeft, err := strconv.Atoi(fields[8])
	if err != nil {
		return Listing{}, fmt.Errorf("invalid days left %q: %w", fields[8], err)
	}

	l := Listing{
		Trader:   fields[0],
		Item:     fields[1],
		Quantity: quantity,
		Rate:     rate,
		Gold:     gold,
		Days:     fields[5],
		TimeInfo: fields[6],
		TimeZone: fields[7],
		DaysLeft: daysLeft,
	}
	if !l.Consistent() {
		return Listing{}, fmt.Errorf("%w: %d × %s != %d", ErrInconsistentTotal, quantity, fields[3], gold)
	}
	return l, nil
}

// ParseRate parses a per-unit gold rate. NaN, infinities and negatives are rejected.
func ParseRate(s string) (float64, error) {
	rate, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0, fmt.Errorf("invalid rate %q: must be a finite non-negative number", s)
	}
	return rate, nil
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}
