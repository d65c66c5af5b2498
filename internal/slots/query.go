package slots

import (
	"context"
	"fmt"
	"sync"

	"barberbook/internal/metrics"
	"barberbook/internal/model"
	"barberbook/internal/notify"

	"github.com/rs/zerolog"
)

// Fetcher retrieves the slot list of one barber on one date.
type Fetcher interface {
	FreeSlots(ctx context.Context, barberID, date, serviceID string) ([]model.TimeSlot, error)
}

// Key identifies a slot list: exactly one barber on one calendar date,
// optionally narrowed by service.
type Key struct {
	BarberID  string
	Date      string // yyyy-MM-dd
	ServiceID string
}

// Complete reports whether the key has the mandatory barber and date.
func (k Key) Complete() bool {
	return k.BarberID != "" && k.Date != ""
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.BarberID, k.Date, k.ServiceID)
}

// State describes what the query currently holds.
type State string

const (
	StateIdle       State = "idle" // cleared, e.g. while manual mode is on
	StateNeedBarber State = "need_barber"
	StateNeedDate   State = "need_date"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateEmpty      State = "empty"
	StateFailed     State = "failed"
)

// Hint is the text a front end shows instead of a slot list.
func (s State) Hint() string {
	switch s {
	case StateNeedBarber:
		return "Select a barber to see available times."
	case StateNeedDate:
		return "Select a date to see available times."
	case StateLoading:
		return "Loading available times..."
	case StateEmpty:
		return "No times available on this date."
	case StateFailed:
		return "Could not load available times."
	}
	return ""
}

// Snapshot is a consistent copy of the query result.
type Snapshot struct {
	Key   Key
	State State
	Slots []model.TimeSlot
	Err   error
}

// Selectable reports whether t is a free slot of this snapshot.
func (s Snapshot) Selectable(t string) bool {
	if s.State != StateReady {
		return false
	}
	slot, ok := Find(s.Slots, t)
	return ok && !slot.IsBooked
}

// Ticket authorises one fetch for the key that was current when it was issued.
type Ticket struct {
	key Key
	gen uint64
}

// Key returns the key the ticket was issued for.
func (t Ticket) Key() Key { return t.key }

// Query holds the slot list for the currently selected key. A fetch result is
// applied only if its key is still the selected one; anything else is dropped.
type Query struct {
	fetcher Fetcher
	bus     *notify.Bus
	source  string
	logger  *zerolog.Logger

	mu     sync.Mutex
	key    Key
	hasKey bool
	gen    uint64
	state  State
	slots  []model.TimeSlot
	err    error
	cancel context.CancelFunc
}

// NewQuery creates a query. source tags the notices it publishes.
func NewQuery(fetcher Fetcher, bus *notify.Bus, source string, logger *zerolog.Logger) *Query {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Query{
		fetcher: fetcher,
		bus:     bus,
		source:  source,
		logger:  logger,
		state:   StateNeedBarber,
	}
}

// Select makes key the current key. It returns a ticket and true when a fetch
// is needed; an unchanged or incomplete key needs none.
func (q *Query) Select(key Key) (Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.hasKey && key == q.key && q.state != StateIdle {
		return Ticket{}, false
	}
	q.reset()
	q.key = key
	q.hasKey = true

	switch {
	case key.BarberID == "":
		q.state = StateNeedBarber
		return Ticket{}, false
	case key.Date == "":
		q.state = StateNeedDate
		return Ticket{}, false
	}
	q.state = StateLoading
	return Ticket{key: key, gen: q.gen}, true
}

// Fetch performs the request for t and applies the result if t is still current.
func (q *Query) Fetch(ctx context.Context, t Ticket) Snapshot {
	q.mu.Lock()
	if t.gen != q.gen || !t.key.Complete() {
		snap := q.snapshotLocked()
		q.mu.Unlock()
		return snap
	}
	fctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.mu.Unlock()
	defer cancel()

	fetched, err := q.fetcher.FreeSlots(fctx, t.key.BarberID, t.key.Date, t.key.ServiceID)

	q.mu.Lock()
	if t.gen != q.gen {
		snap := q.snapshotLocked()
		q.mu.Unlock()
		metrics.IncSlotFetch("stale")
		q.logger.Debug().Str("key", t.key.String()).Msg("discarded stale slot response")
		return snap
	}
	q.cancel = nil

	var notice *notify.Notice
	if err != nil {
		q.state = StateFailed
		q.err = err
		q.slots = nil
		metrics.IncSlotFetch("failed")
		q.logger.Error().Err(err).Str("key", t.key.String()).Msg("slot fetch failed")
		notice = &notify.Notice{
			Topic:   notify.TopicSlots,
			Source:  q.source,
			Level:   notify.LevelError,
			Message: "Could not load available times. Please try again.",
		}
	} else {
		q.slots = Normalize(fetched)
		if len(q.slots) == 0 {
			q.state = StateEmpty
			metrics.IncSlotFetch("empty")
		} else {
			q.state = StateReady
			metrics.IncSlotFetch("ok")
		}
	}
	snap := q.snapshotLocked()
	q.mu.Unlock()

	if notice != nil {
		q.bus.Publish(*notice)
	}
	return snap
}

// Update selects key and fetches when needed.
func (q *Query) Update(ctx context.Context, key Key) Snapshot {
	t, ok := q.Select(key)
	if !ok {
		return q.Snapshot()
	}
	return q.Fetch(ctx, t)
}

// Refresh refetches the current key. It is the explicit retry after a failure.
func (q *Query) Refresh(ctx context.Context) Snapshot {
	q.mu.Lock()
	if !q.hasKey || !q.key.Complete() || q.state == StateIdle {
		snap := q.snapshotLocked()
		q.mu.Unlock()
		return snap
	}
	key := q.key
	q.reset()
	q.key = key
	q.state = StateLoading
	t := Ticket{key: key, gen: q.gen}
	q.mu.Unlock()
	return q.Fetch(ctx, t)
}

// Clear drops the key and the slot list. In-flight results are discarded.
func (q *Query) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reset()
	q.key = Key{}
	q.hasKey = false
	q.state = StateIdle
}

// Snapshot returns the current result.
func (q *Query) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Query) reset() {
	q.gen++
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.slots = nil
	q.err = nil
}

func (q *Query) snapshotLocked() Snapshot {
	out := Snapshot{Key: q.key, State: q.state, Err: q.err}
	if len(q.slots) > 0 {
		out.Slots = append([]model.TimeSlot(nil), q.slots...)
	}
	return out
}
