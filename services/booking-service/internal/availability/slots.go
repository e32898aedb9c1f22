package availability

import (
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slotkey"
)

const (
	OpenHour  = 10
	CloseHour = 21
	SlotStep  = 30 * time.Minute
)

// TimeSlot is one offerable appointment start.
type TimeSlot struct {
	Start time.Time `json:"start"`
	Time  string    `json:"time"`
}

// ForDay returns the available slots of day in chronological order, 30 minutes apart,
// within [10:00, 21:00) of that calendar day and never before now. Times listed in
// booked under the day's key are skipped. An empty result means the day offers nothing.
//
// All times are interpreted in day's location; no conversion is applied.
func ForDay(day time.Time, booked model.BookedSlots, now time.Time) []TimeSlot {
	y, m, d := day.Date()
	closing := time.Date(y, m, d, CloseHour, 0, 0, 0, day.Location())

	var slots []TimeSlot
	for t := openingCursor(day, now); t.Before(closing); t = t.Add(SlotStep) {
		if t.Before(now) {
			continue
		}
		formatted := slotkey.FormatTime(t)
		if booked.IsBooked(slotkey.Derive(t), formatted) {
			continue
		}
		slots = append(slots, TimeSlot{Start: t, Time: formatted})
	}
	return slots
}

// openingCursor applies the lead-time policy for today: the next hour once past
// 10 o'clock, and :30 when past the half hour. Hour and minute are rounded
// independently, so the cursor can land before now; ForDay filters those out.
// Other days open at 10:00.
func openingCursor(day, now time.Time) time.Time {
	y, m, d := day.Date()
	if !SameDay(day, now) {
		return time.Date(y, m, d, OpenHour, 0, 0, 0, day.Location())
	}

	hour := OpenHour
	if now.Hour() > OpenHour {
		hour = now.Hour() + 1
	}
	minute := 0
	if now.Minute() > 30 {
		minute = 30
	}
	// hour 24 normalizes into the next day, which is past closing.
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

// SameDay compares the calendar fields of a and b as they are, without converting locations.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
