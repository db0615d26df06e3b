package models

import (
	"errors"
	"strings"
	"testing"
)

func TestListing_String(t *testing.T) {
	l := Listing{
		Trader:   "Coizado",
		Item:     DefaultItem,
		Quantity: 16000,
		Gold:     16800000,
		TimeInfo: "12PM - 8PM EST",
	}
	want := "@Exchange @Broker Coizado/ 16000 Crowns/ 16800000 Gold/ (All 12PM - 8PM EST) (0 Days Left)"
	if got := l.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestListing_StringWithRateAndZone(t *testing.T) {
	l := Listing{
		Trader:   "Coizado",
		Item:     DefaultItem,
		Quantity: 16000,
		Rate:     1050,
		Gold:     16800000,
		Days:     "Mon-Fri",
		TimeInfo: "12PM - 8PM",
		TimeZone: "EST",
		DaysLeft: 3,
	}
	want := "@Exchange @Broker Coizado/ 16000 Crowns/ 16800000 Gold @ 1050 each/ (Mon-Fri 12PM - 8PM EST) (3 Days Left)"
	if got := l.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !l.Priority() {
		t.Error("Expected listing with days left to be priority")
	}
}

func TestListing_LineRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		listing Listing
	}{
		{
			name: "sequential listing without rate",
			listing: Listing{
				Trader: "Coizado", Item: DefaultItem, Quantity: 16000, Gold: 16800000,
				TimeInfo: "12PM - 8PM EST",
			},
		},
		{
			name: "form listing with fractional rate",
			listing: Listing{
				Trader: "Mara", Item: "Crowns", Quantity: 3, Rate: 1049.5, Gold: Total(3, 1049.5),
				Days: "Weekends", TimeInfo: "after 6PM", TimeZone: "CET", DaysLeft: 2,
			},
		},
		{
			name: "empty optional fields",
			listing: Listing{
				Trader: "x", Item: "Gems", Quantity: 4, Rate: 0.5, Gold: 2,
				TimeInfo: "any",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.listing.Line())
			if err != nil {
				t.Fatalf("ParseLine(%q) returned error: %v", tt.listing.Line(), err)
			}
			if got != tt.listing {
				t.Errorf("Round trip mismatch.\n got: %+v\nwant: %+v", got, tt.listing)
			}
		})
	}
}

func TestParseLine_FieldCount(t *testing.T) {
	tests := []string{
		"",
		"Coizado | Crowns | 16000",
		"a | b | 1 | 0 | 2 | c | d | e | 0 | extra",
	}
	for _, line := range tests {
		if _, err := ParseLine(line); !errors.Is(err, ErrFieldCount) {
			t.Errorf("ParseLine(%q) error = %v, want ErrFieldCount", line, err)
		}
	}
}

func TestParseLine_InvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"quantity", "a | Crowns | many | 0 | 5 |  | t |  | 0", "quantity"},
		{"rate", "a | Crowns | 1 | cheap | 5 |  | t |  | 0", "rate"},
		{"gold", "a | Crowns | 1 | 0 | lots |  | t |  | 0", "gold"},
		{"days left", "a | Crowns | 1 | 0 | 5 |  | t |  | soon", "days left"},
		{"negative rate", "a | Crowns | 1 | -2 | 5 |  | t |  | 0", "rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Error %q does not mention %q", err, tt.field)
			}
		})
	}
}

func TestParseLine_InconsistentTotal(t *testing.T) {
	_, err := ParseLine("a | Crowns | 10 | 2 | 21 |  | t |  | 0")
	if !errors.Is(err, ErrInconsistentTotal) {
		t.Errorf("Expected ErrInconsistentTotal, got %v", err)
	}
}

func TestTotal(t *testing.T) {
	if got := Total(16000, 1050); got != 16800000 {
		t.Errorf("Total(16000, 1050) = %d, want 16800000", got)
	}
	if got := Total(3, 0.5); got != 2 {
		t.Errorf("Total(3, 0.5) = %d, want 2", got)
	}
}

func TestTotalFits(t *testing.T) {
	tests := []struct {
		quantity int
		rate     float64
		want     bool
	}{
		{16000, 1050, true},
		{1, 9e18, true},
		{1, 1e19, false},
		{16000, 1e16, false},
	}
	for _, tt := range tests {
		if got := TotalFits(tt.quantity, tt.rate); got != tt.want {
			t.Errorf("TotalFits(%d, %g) = %v, want %v", tt.quantity, tt.rate, got, tt.want)
		}
	}
}

func TestParseLine_RateOverflow(t *testing.T) {
	_, err := ParseLine("a | Crowns | 10 | 1e19 | 9223372036854775807 |  | t |  | 0")
	if !errors.Is(err, ErrInconsistentTotal) {
		t.Errorf("Expected ErrInconsistentTotal, got %v", err)
	}
}

func TestLookupTimeZone(t *testing.T) {
	if len(TimeZones) > 25 {
		t.Fatalf("TimeZones has %d entries, select menus allow 25", len(TimeZones))
	}
	if _, ok := LookupTimeZone("EST"); !ok {
		t.Error("Expected EST to be selectable")
	}
	if _, ok := LookupTimeZone("Mars"); ok {
		t.Error("Expected Mars to be rejected")
	}
}
