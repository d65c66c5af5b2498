package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"barberbook/internal/model"
	"barberbook/internal/notify"
	"barberbook/internal/slots"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind is the front end a wizard serves.
type Kind string

const (
	// KindStorefront is the customer flow: one step per screen.
	KindStorefront Kind = "storefront"
	// KindAdmin is the staff form: every field on one screen plus manual mode.
	KindAdmin Kind = "admin"
)

// Wizard is one booking session. It is safe for concurrent use; slot fetches
// run outside its lock.
type Wizard struct {
	id    string
	kind  Kind
	fsm   *FSM
	query *slots.Query

	mu         sync.Mutex
	step       Step
	draft      Draft
	submitting bool
	updatedAt  time.Time
}

// NewWizard starts an empty wizard.
func NewWizard(kind Kind, fetcher slots.Fetcher, bus *notify.Bus, logger *zerolog.Logger) *Wizard {
	id := uuid.NewString()
	step := StepService
	if kind == KindAdmin {
		step = StepForm
	}
	return &Wizard{
		id:        id,
		kind:      kind,
		fsm:       NewFSM(),
		query:     slots.NewQuery(fetcher, bus, id, logger),
		step:      step,
		draft:     ScheduledDraft{},
		updatedAt: time.Now(),
	}
}

// ID identifies the wizard in notices and journal entries.
func (w *Wizard) ID() string { return w.id }

// Kind returns the front end the wizard serves.
func (w *Wizard) Kind() Kind { return w.kind }

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Manual reports whether manual mode is on.
func (w *Wizard) Manual() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Mode() == ModeManual
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Slots returns the current availability query result.
func (w *Wizard) Slots() slots.Snapshot {
	return w.query.Snapshot()
}

// IsExpired reports whether the wizard has been idle longer than timeout.
func (w *Wizard) IsExpired(timeout time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.submitting && time.Since(w.updatedAt) > timeout
}

// SelectService sets the service. A different service drops the barber and the
// time; the storefront always drops barber, date and time and moves to barber
// selection.
func (w *Wizard) SelectService(ctx context.Context, serviceID string) error {
	serviceID = strings.TrimSpace(serviceID)
	return w.change(ctx, func() error {
		if w.kind == KindStorefront && !w.fsm.CanTransition(w.step, StepBarber) {
			return fmt.Errorf("%w: service at %s", ErrStepNotAllowed, w.step)
		}
		sel := w.draft.Base()
		if sel.ServiceID != serviceID {
			sel.BarberID = ""
			w.clearTime()
		}
		sel.ServiceID = serviceID
		if w.kind == KindStorefront {
			sel.BarberID = ""
			sel.Date = ""
			w.clearTime()
			w.step = StepBarber
		}
		w.draft = w.draft.withBase(sel)
		return nil
	})
}

// SelectBarber sets the barber, drops the chosen time and refetches slots.
// The storefront moves on to date selection; the admin form stays put.
func (w *Wizard) SelectBarber(ctx context.Context, barberID string) error {
	barberID = strings.TrimSpace(barberID)
	return w.change(ctx, func() error {
		if w.kind == KindStorefront {
			if w.draft.Base().ServiceID == "" || !w.fsm.CanTransition(w.step, StepDateTime) {
				return fmt.Errorf("%w: barber at %s", ErrStepNotAllowed, w.step)
			}
			w.step = StepDateTime
		}
		sel := w.draft.Base()
		sel.BarberID = barberID
		w.draft = w.draft.withBase(sel)
		w.clearTime()
		return nil
	})
}

// SelectDate sets the calendar day (yyyy-MM-dd), drops the chosen time and
// refetches slots.
func (w *Wizard) SelectDate(ctx context.Context, date string) error {
	date = strings.TrimSpace(date)
	if _, err := model.ParseDate(date); err != nil {
		return err
	}
	return w.change(ctx, func() error {
		if w.kind == KindStorefront {
			if w.draft.Base().BarberID == "" || !w.fsm.CanTransition(w.step, StepDateTime) {
				return fmt.Errorf("%w: date at %s", ErrStepNotAllowed, w.step)
			}
			w.step = StepDateTime
		}
		sel := w.draft.Base()
		sel.Date = date
		w.draft = w.draft.withBase(sel)
		w.clearTime()
		return nil
	})
}

// SelectSlot chooses a time from the current slot list. A booked or unknown
// time returns ErrSlotUnavailable and leaves the selection as it was.
func (w *Wizard) SelectSlot(t string) error {
	t = strings.TrimSpace(t)
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step.Terminal() {
		return ErrFinished
	}
	d, ok := w.draft.(ScheduledDraft)
	if !ok {
		return ErrManualMode
	}
	if w.kind == KindStorefront && w.step != StepDateTime {
		return fmt.Errorf("%w: slot at %s", ErrStepNotAllowed, w.step)
	}
	snap := w.query.Snapshot()
	if snap.Key != w.keyLocked() || !snap.Selectable(t) {
		return ErrSlotUnavailable
	}
	d.Slot = t
	w.draft = d
	if w.kind == KindStorefront {
		w.step = StepConfirm
	}
	w.updatedAt = time.Now()
	return nil
}

// SetCustomer sets who the booking is for. The phone is kept as typed and
// reduced to digits on submission.
func (w *Wizard) SetCustomer(name, phone string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrFinished
	}
	sel := w.draft.Base()
	sel.Customer = model.Customer{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}
	w.draft = w.draft.withBase(sel)
	w.updatedAt = time.Now()
	return nil
}

// SetManualMode switches between the scheduled and the manual variant. Turning
// it on drops the slot list and the chosen slot; turning it off starts again
// with an empty slot selection and refetches.
func (w *Wizard) SetManualMode(ctx context.Context, on bool) error {
	if w.kind != KindAdmin {
		return ErrAdminOnly
	}
	return w.change(ctx, func() error {
		sel := w.draft.Base()
		switch {
		case on && w.draft.Mode() != ModeManual:
			w.draft = ManualDraft{Selection: sel}
		case !on && w.draft.Mode() != ModeScheduled:
			w.draft = ScheduledDraft{Selection: sel}
		}
		return nil
	})
}

// SetManualTime sets the free-text HH:mm of a manual draft.
func (w *Wizard) SetManualTime(clock string) error {
	return w.updateManual(func(d *ManualDraft) error {
		d.Time = strings.TrimSpace(clock)
		return nil
	})
}

// SetManualStatus sets the status of a manual draft.
func (w *Wizard) SetManualStatus(raw string) error {
	status, err := model.ParseBookingStatus(raw)
	if err != nil {
		return err
	}
	return w.updateManual(func(d *ManualDraft) error {
		d.Status = status
		return nil
	})
}

// Back returns the storefront to the previous step. The selection is kept.
func (w *Wizard) Back() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kind == KindStorefront && !w.step.Terminal() && !w.submitting {
		w.step = previous(w.step)
		w.updatedAt = time.Now()
	}
	return w.step
}

// SlotTaken drops the chosen time after the backend refused it, returns the
// storefront to date and time selection and reloads the slot list.
func (w *Wizard) SlotTaken(ctx context.Context) slots.Snapshot {
	w.mu.Lock()
	if w.step.Terminal() || w.submitting {
		w.mu.Unlock()
		return w.query.Snapshot()
	}
	w.clearTime()
	if w.kind == KindStorefront && w.step == StepConfirm {
		w.step = StepDateTime
	}
	w.updatedAt = time.Now()
	w.mu.Unlock()
	return w.query.Refresh(ctx)
}

// Cancel discards the draft and ends the wizard.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return
	}
	w.finishLocked(StepCanceled)
}

// Refresh refetches the slot list for the current selection.
func (w *Wizard) Refresh(ctx context.Context) slots.Snapshot {
	return w.query.Refresh(ctx)
}

// change applies fn under the lock and then brings the slot query in line
// with the new selection. The fetch itself runs unlocked.
func (w *Wizard) change(ctx context.Context, fn func() error) error {
	w.mu.Lock()
	if w.step.Terminal() {
		w.mu.Unlock()
		return ErrFinished
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if err := fn(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.updatedAt = time.Now()

	var (
		ticket slots.Ticket
		fetch  bool
	)
	if w.draft.Mode() == ModeManual {
		w.query.Clear()
	} else {
		ticket, fetch = w.query.Select(w.keyLocked())
	}
	w.mu.Unlock()

	if fetch {
		w.query.Fetch(ctx, ticket)
	}
	return nil
}

func (w *Wizard) updateManual(fn func(*ManualDraft) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrFinished
	}
	d, ok := w.draft.(ManualDraft)
	if !ok {
		return ErrNotManual
	}
	if err := fn(&d); err != nil {
		return err
	}
	w.draft = d
	w.updatedAt = time.Now()
	return nil
}

func (w *Wizard) clearTime() {
	if d, ok := w.draft.(ScheduledDraft); ok {
		d.Slot = ""
		w.draft = d
	}
}

func (w *Wizard) keyLocked() slots.Key {
	sel := w.draft.Base()
	return slots.Key{BarberID: sel.BarberID, Date: sel.Date, ServiceID: sel.ServiceID}
}

// beginSubmit marks the wizard as submitting and returns the draft to send.
func (w *Wizard) beginSubmit() (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return nil, ErrFinished
	}
	if w.submitting {
		return nil, ErrSubmitInFlight
	}
	if w.kind == KindStorefront && w.step != StepConfirm {
		return nil, fmt.Errorf("%w: submit at %s", ErrStepNotAllowed, w.step)
	}
	w.submitting = true
	return w.draft, nil
}

// endSubmit clears the in-flight flag. On success the draft is discarded.
func (w *Wizard) endSubmit(success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	w.updatedAt = time.Now()
	if success {
		w.finishLocked(StepComplete)
	}
}

func (w *Wizard) finishLocked(step Step) {
	w.step = step
	w.draft = ScheduledDraft{}
	w.query.Clear()
}
