// Package revenue summarises appointments over a range of slot dates.
package revenue

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slotkey"
)

const DateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("invalid date range")

type Report struct {
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	Appointments []model.Appointment `json:"appointments"`
	Total        int64               `json:"total"`
	Counted      int                 `json:"counted"`
}

// ParseRange reads start and end as YYYY-MM-DD in loc. end is widened to the last
// second of its day.
func ParseRange(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	s, err := time.ParseInLocation(DateLayout, start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	e, err := time.ParseInLocation(DateLayout, end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	e = time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, loc)
	if e.Before(s) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return s, e, nil
}

// Build keeps the appointments whose slot date falls within [start, end] and sums
// the amount of those that are completed or paid. Appointments with an unreadable
// slot date are left out.
func Build(appts []model.Appointment, start, end time.Time) Report {
	r := Report{Start: start, End: end, Appointments: []model.Appointment{}}
	for _, a := range appts {
		day, err := slotkey.Parse(a.SlotDate, start.Location())
		if err != nil || day.Before(start) || day.After(end) {
			continue
		}
		r.Appointments = append(r.Appointments, a)
		if a.Completed || a.Payment {
			r.Total += a.Amount
			r.Counted++
		}
	}
	return r
}
