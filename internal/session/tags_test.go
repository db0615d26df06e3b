package session

import (
	"testing"

	"github.com/esotraders/exchange-bot/internal/validator"
)

// Every rule must parse: a malformed tag panics inside the validator.
func TestFieldTags(t *testing.T) {
	v := validator.New()
	tests := []struct {
		name  string
		tag   string
		valid string
	}{
		{"trader", traderTag, "Coizado"},
		{"item", itemTag, "Crowns"},
		{"days", daysTag, "Mon-Fri"},
		{"time", timeInfoTag, "12PM - 8PM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("tag %q panicked: %v", tt.tag, r)
				}
			}()
			if err := v.ValidateVar(tt.valid, tt.tag); err != nil {
				t.Errorf("ValidateVar(%q) = %v", tt.valid, err)
			}
			if err := v.ValidateVar("a|b", tt.tag); err == nil {
				t.Errorf("ValidateVar(%q) should reject the delimiter", "a|b")
			}
		})
	}
}
