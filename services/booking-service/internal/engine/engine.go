package engine

import (
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
)

// Selection is the user's pick within the current window: a day group by index and
// optionally a time inside it. The zero value is the initial state.
type Selection struct {
	GroupIndex int
	Slot       availability.TimeSlot
}

func (s Selection) HasTime() bool { return s.Slot.Time != "" }

// Snapshot is a value copy of everything a submission needs, taken at one instant.
type Snapshot struct {
	ProviderID string
	Group      DayGroup
	HasGroup   bool
	Selection  Selection
}

// Complete reports whether the snapshot names a day that has slots and a chosen time.
func (s Snapshot) Complete() bool {
	return s.HasGroup && len(s.Group.Slots) > 0 && s.Selection.HasTime()
}

// Engine owns the week page, the computed window and the selection for one viewer.
// It is not safe for concurrent use; callers that submit in the background should
// pass a Snapshot rather than the Engine.
type Engine struct {
	clock    func() time.Time
	provider *model.Provider
	pager    Paginator
	window   Window
	sel      Selection
}

// New returns an engine reading "now" from clock, or time.Now when clock is nil.
func New(clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{clock: clock}
}

// SetProvider replaces the provider and recomputes the window. The selection follows
// its day by key, since dropped days shift group indices. It is reset when that day is
// gone or the provider changed, and a chosen time that is no longer offered is cleared.
func (e *Engine) SetProvider(p model.Provider) {
	var prevID, prevKey string
	if e.provider != nil {
		prevID = e.provider.ID
	}
	if g, ok := e.SelectedGroup(); ok {
		prevKey = g.Key
	}

	e.provider = &p
	e.Regenerate()

	if prevID != p.ID || prevKey == "" {
		e.sel = Selection{}
		return
	}
	index := e.window.indexOf(prevKey)
	if index < 0 {
		e.sel = Selection{}
		return
	}
	e.sel.GroupIndex = index
	if e.sel.HasTime() && !e.groupHasTime(index, e.sel.Slot.Time) {
		e.sel.Slot = availability.TimeSlot{}
	}
}

// Regenerate rebuilds the window for the current provider and offset, sampling the clock once.
// Without a provider the window is empty.
func (e *Engine) Regenerate() {
	if e.provider == nil {
		e.window = Window{Offset: e.pager.Offset()}
		return
	}
	e.window = BuildWindow(*e.provider, e.pager.Offset(), e.clock())
}

func (e *Engine) Advance() bool {
	if !e.pager.Advance() {
		return false
	}
	e.weekChanged()
	return true
}

func (e *Engine) Retreat() bool {
	if !e.pager.Retreat() {
		return false
	}
	e.weekChanged()
	return true
}

// JumpTo moves straight to a week page; invalid offsets are ignored.
func (e *Engine) JumpTo(offset int) bool {
	if !e.pager.Jump(offset) {
		return false
	}
	e.weekChanged()
	return true
}

func (e *Engine) weekChanged() {
	e.sel = Selection{}
	e.Regenerate()
}

// SelectGroup picks a day group by its index in the current window. Out-of-range
// indices are ignored. Changing the group clears the chosen time.
func (e *Engine) SelectGroup(index int) bool {
	if index < 0 || index >= len(e.window.Days) {
		return false
	}
	if index != e.sel.GroupIndex {
		e.sel = Selection{GroupIndex: index}
	}
	return true
}

// SelectTime picks a time from the selected group. Times not offered there are ignored.
func (e *Engine) SelectTime(formatted string) bool {
	if e.sel.GroupIndex >= len(e.window.Days) {
		return false
	}
	for _, s := range e.window.Days[e.sel.GroupIndex].Slots {
		if s.Time == formatted {
			e.sel.Slot = s
			return true
		}
	}
	return false
}

func (e *Engine) groupHasTime(index int, formatted string) bool {
	for _, s := range e.window.Days[index].Slots {
		if s.Time == formatted {
			return true
		}
	}
	return false
}

func (e *Engine) Window() Window { return e.window }

func (e *Engine) Selection() Selection { return e.sel }

func (e *Engine) Offset() int { return e.pager.Offset() }

func (e *Engine) AtStart() bool { return e.pager.AtStart() }

func (e *Engine) AtEnd() bool { return e.pager.AtEnd() }

// SelectedGroup returns the selected day group, or false when the window is empty.
func (e *Engine) SelectedGroup() (DayGroup, bool) {
	if e.sel.GroupIndex >= len(e.window.Days) {
		return DayGroup{}, false
	}
	return e.window.Days[e.sel.GroupIndex], true
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{Selection: e.sel}
	if e.provider != nil {
		snap.ProviderID = e.provider.ID
	}
	snap.Group, snap.HasGroup = e.SelectedGroup()
	return snap
}
