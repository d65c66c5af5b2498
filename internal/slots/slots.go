// Package slots implements the slot availability query of the booking workflow.
package slots

import (
	"sort"

	"barberbook/internal/model"
)

// Normalize returns the slots ordered by time of day with duplicate times
// collapsed into one entry. A duplicate is booked if any of its copies is.
// Entries whose time is not HH:mm are dropped.
func Normalize(in []model.TimeSlot) []model.TimeSlot {
	type entry struct {
		slot    model.TimeSlot
		minutes int
	}
	byTime := make(map[string]*entry, len(in))
	order := make([]*entry, 0, len(in))
	for _, s := range in {
		h, m, err := model.ParseClock(s.Time)
		if err != nil {
			continue
		}
		if e, ok := byTime[s.Time]; ok {
			e.slot.IsBooked = e.slot.IsBooked || s.IsBooked
			continue
		}
		e := &entry{slot: s, minutes: h*60 + m}
		byTime[s.Time] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].minutes < order[j].minutes
	})

	out := make([]model.TimeSlot, len(order))
	for i, e := range order {
		out[i] = e.slot
	}
	return out
}

// Available returns only the free slots.
func Available(in []model.TimeSlot) []model.TimeSlot {
	var out []model.TimeSlot
	for _, s := range in {
		if !s.IsBooked {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the slot with the given time.
func Find(in []model.TimeSlot, t string) (model.TimeSlot, bool) {
	for _, s := range in {
		if s.Time == t {
			return s, true
		}
	}
	return model.TimeSlot{}, false
}
