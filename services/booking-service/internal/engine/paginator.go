package engine

// MaxWeekOffset is the last page of the 52-week booking horizon (the current week is page 0).
const MaxWeekOffset = 51

// Paginator holds the week offset, always within [0, MaxWeekOffset].
type Paginator struct {
	offset int
}

func (p *Paginator) Offset() int { return p.offset }

func (p *Paginator) AtStart() bool { return p.offset == 0 }

func (p *Paginator) AtEnd() bool { return p.offset >= MaxWeekOffset }

// Advance moves one week forward and reports whether the offset changed.
func (p *Paginator) Advance() bool {
	if p.offset >= MaxWeekOffset {
		return false
	}
	p.offset++
	return true
}

// Retreat moves one week back and reports whether the offset changed.
func (p *Paginator) Retreat() bool {
	if p.offset <= 0 {
		return false
	}
	p.offset--
	return true
}

// Jump sets the offset directly. Out-of-range values are ignored.
func (p *Paginator) Jump(offset int) bool {
	if offset < 0 || offset > MaxWeekOffset || offset == p.offset {
		return false
	}
	p.offset = offset
	return true
}
