// Package slotkey derives the canonical keys used to index a provider's booked slots.
//
// A slot date key is "D_M_YYYY" with unpadded day and month (month 1-12). The same
// key is used to read a provider's booked-slot index and to write a booking request,
// so every caller must go through Derive.
package slotkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout renders slot start times the way they are stored in the booked-slot index ("10:00 AM").
const TimeLayout = "03:04 PM"

// ErrInvalidKey is returned by Parse for malformed, out-of-range or padded keys.
var ErrInvalidKey = errors.New("invalid slot date key")

// Derive returns the slot date key for t's own calendar date. No location conversion is applied.
func Derive(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// FormatTime renders t as a slot display time.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Parse is the inverse of Derive. The returned time is midnight of that date in loc.
// Padded or otherwise non-canonical keys are rejected so that parsed keys always
// round-trip through Derive.
func Parse(key string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if month > 12 || year < 1000 || year > 9999 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 31_2_2025 into March; reject it.
	if Derive(t) != key {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return t, nil
}

// ParseTime validates a display time string and returns its hour and minute.
func ParseTime(s string) (hour, minute int, err error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil || FormatTime(t) != s {
		return 0, 0, fmt.Errorf("invalid slot time %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
