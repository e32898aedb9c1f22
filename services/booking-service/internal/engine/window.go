package engine

import (
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slotkey"
)

const DaysPerWeek = 7

// DayGroup is one calendar day of a window that has at least one available slot.
// It carries its own date, so a group's position in Window.Days says nothing about
// which weekday it is.
type DayGroup struct {
	Date  time.Time               `json:"date"`
	Key   string                  `json:"key"`
	Slots []availability.TimeSlot `json:"slots"`
}

// Window is the set of offerable days for one week page.
type Window struct {
	Offset int        `json:"offset"`
	Start  time.Time  `json:"start"`
	Days   []DayGroup `json:"days"`
}

func (w Window) Empty() bool { return len(w.Days) == 0 }

// BuildWindow computes the week page starting today+offset*7 days. Days without
// available slots are left out. provider is only read.
func BuildWindow(provider model.Provider, offset int, now time.Time) Window {
	start := now.AddDate(0, 0, offset*DaysPerWeek)
	w := Window{Offset: offset, Start: start}
	for i := 0; i < DaysPerWeek; i++ {
		day := start.AddDate(0, 0, i)
		slots := availability.ForDay(day, provider.SlotsBooked, now)
		if len(slots) == 0 {
			continue
		}
		w.Days = append(w.Days, DayGroup{
			Date:  time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()),
			Key:   slotkey.Derive(day),
			Slots: slots,
		})
	}
	return w
}

// indexOf returns the position of the group with the given slot date key, or -1.
func (w Window) indexOf(key string) int {
	for i, g := range w.Days {
		if g.Key == key {
			return i
		}
	}
	return -1
}
