package model

// BookedSlots maps a slot date key ("D_M_YYYY") to the display times already taken on that day.
type BookedSlots map[string][]string

// IsBooked reports whether slotTime is taken on the day identified by key. A nil
// index means nothing is booked.
func (b BookedSlots) IsBooked(key, slotTime string) bool {
	for _, t := range b[key] {
		if t == slotTime {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can add a booking without touching the original.
func (b BookedSlots) Clone() BookedSlots {
	out := make(BookedSlots, len(b))
	for k, v := range b {
		out[k] = append([]string(nil), v...)
	}
	return out
}

type Provider struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	Image       string      `json:"image,omitempty"`
	Speciality  string      `json:"speciality"`
	Degree      string      `json:"degree,omitempty"`
	Experience  string      `json:"experience,omitempty"`
	About       string      `json:"about,omitempty"`
	Fees        int64       `json:"fees"`
	Available   bool        `json:"available"`
	Address     Address     `json:"address"`
	SlotsBooked BookedSlots `json:"slots_booked"`
}

type Address struct {
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
}
