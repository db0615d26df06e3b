package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var digitGroupSeparators = regexp.MustCompile(`[,_]`)

// ParseWholeNumber parses a base-10 integer typed by a user. Digit group
// separators ("16,000" or "16_000") are accepted.
func ParseWholeNumber(s string) (int64, error) {
	cleaned := digitGroupSeparators.ReplaceAllString(strings.TrimSpace(s), "")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return n, nil
}

// ParsePositive parses a whole number that must be greater than zero and fit in an int.
func ParsePositive(s string) (int, error) {
	n, err := ParseWholeNumber(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > int64(maxInt) {
		return 0, fmt.Errorf("%q must be greater than 0", s)
	}
	return int(n), nil
}

// ParseNonNegative parses a whole number that may be zero.
func ParseNonNegative(s string) (int, error) {
	n, err := ParseWholeNumber(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(maxInt) {
		return 0, fmt.Errorf("%q must be 0 or more", s)
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)
