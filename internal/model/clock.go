package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DayLayout   = "2006-01-02"
	clockLayout = "15:04:05"
)

// ParseDay parses a YYYY-MM-DD date as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDay renders t as YYYY-MM-DD.
func FormatDay(t time.Time) string { return t.UTC().Format(DayLayout) }

// TruncateDay drops the time of day, keeping the calendar date of t.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock accepts HH:MM or HH:MM:SS and returns the stored HH:MM:SS form.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", clockLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clockLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time %q, want HH:MM", s)
}

// ShortClock renders a stored HH:MM:SS value as HH:MM.
func ShortClock(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// FormatCents renders an amount in cents as a decimal string, e.g. 1250 -> "12.50".
func FormatCents(c uint32) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

// ParseCents parses a decimal amount such as "12.5" or "14" into cents.
func ParseCents(s string) (uint32, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if (whole == "" && frac == "") || len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseUint(frac, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := w*100 + f
	if cents > math.MaxUint32 {
		return 0, fmt.Errorf("amount %q exceeds %s", s, FormatCents(math.MaxUint32))
	}
	return uint32(cents), nil
}

// MulCents returns price * n, or false when the product does not fit in
// uint32 cents.
func MulCents(price uint32, n int) (uint32, bool) {
	if n < 0 {
		return 0, false
	}
	total := uint64(price) * uint64(n)
	if total > math.MaxUint32 {
		return 0, false
	}
	return uint32(total), true
}
