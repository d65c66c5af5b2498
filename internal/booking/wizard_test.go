package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"barberbook/internal/model"
	"barberbook/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves fixed slot lists per barber and counts calls.
type stubFetcher struct {
	mu    sync.Mutex
	lists map[string][]model.TimeSlot
	calls []slots.Key
}

func (f *stubFetcher) FreeSlots(_ context.Context, barberID, date, serviceID string) ([]model.TimeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slots.Key{BarberID: barberID, Date: date, ServiceID: serviceID})
	return f.lists[barberID], nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{lists: map[string][]model.TimeSlot{
		"B1": {{Time: "10:00"}, {Time: "10:30", IsBooked: true}},
		"B2": {{Time: "14:00"}, {Time: "15:00"}},
	}}
}

func scheduled(t *testing.T, w *Wizard) ScheduledDraft {
	t.Helper()
	d, ok := w.Draft().(ScheduledDraft)
	require.True(t, ok, "expected scheduled draft, got %T", w.Draft())
	return d
}

func TestWizard_ChangingBarberClearsTime(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(KindAdmin, newStubFetcher(), nil, nil)

	require.NoError(t, w.SelectService(ctx, "haircut"))
	require.NoError(t, w.SelectBarber(ctx, "B1"))
	require.NoError(t, w.SelectDate(ctx, "2025-03-10"))
	require.NoError(t, w.SelectSlot("10:00"))
	assert.Equal(t, "10:00", scheduled(t, w).Slot)

	require.NoError(t, w.SelectBarber(ctx, "B2"))
	assert.Empty(t, scheduled(t, w).Slot)
	assert.Equal(t, StepForm, w.Step(), "admin form does not advance")
	assert.Equal(t, "B2", w.Slots().Key.BarberID)
}

func TestWizard_ChangingDateClearsTime(t *testing.T) {
	ctx := context.Background()
	f := newStubFetcher()
	w := NewWizard(KindAdmin, f, nil, nil)

	require.NoError(t, w.SelectBarber(ctx, "B1"))
	require.NoError(t, w.SelectDate(ctx, "2025-03-10"))
	require.NoError(t, w.SelectSlot("10:00"))

	require.NoError(t, w.SelectDate(ctx, "2025-03-11"))
	assert.Empty(t, scheduled(t, w).Slot)
	assert.Equal(t, 2, f.callCount())
}

func TestWizard_BookedSlotNotSelectable(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(KindAdmin, newStubFetcher(), nil, nil)

	require.NoError(t, w.SelectService(ctx, "haircut"))
	require.NoError(t, w.SelectBarber(ctx, "B1"))
	require.NoError(t, w.SelectDate(ctx, "2025-03-10"))

	require.NoError(t, w.SelectSlot("10:00"))
	assert.ErrorIs(t, w.SelectSlot("10:30"), ErrSlotUnavailable)
	assert.Equal(t, "10:00", scheduled(t, w).Slot)

	assert.ErrorIs(t, w.SelectSlot("18:00"), ErrSlotUnavailable)
}

func TestWizard_SlotRequiresLoadedList(t *testing.T) {
	w := NewWizard(KindAdmin, newStubFetcher(), nil, nil)
	require.NoError(t, w.SelectBarber(context.Background(), "B1"))

	assert.Equal(t, slots.StateNeedDate, w.Slots().State)
	assert.ErrorIs(t, w.SelectSlot("10:00"), ErrSlotUnavailable)
}

func TestWizard_StorefrontSteps(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(KindStorefront, newStubFetcher(), nil, nil)
	assert.Equal(t, StepService, w.Step())

	assert.ErrorIs(t, w.SelectBarber(ctx, "B1"), ErrStepNotAllowed)

	require.NoError(t, w.SelectService(ctx, "haircut"))
	assert.Equal(t, StepBarber, w.Step())
	assert.Equal(t, slots.StateNeedBarber, w.Slots().State)

	require.NoError(t, w.SelectBarber(ctx, "B1"))
	assert.Equal(t, StepDateTime, w.Step())
	assert.Equal(t, slots.StateNeedDate, w.Slots().State)

	require.NoError(t, w.SelectDate(ctx, "2025-03-10"))
	require.NoError(t, w.SelectSlot("10:00"))
	assert.Equal(t, StepConfirm, w.Step())

	assert.Equal(t, StepDateTime, w.Back())
	assert.Equal(t, "10:00", scheduled(t, w).Slot, "back keeps the selection")
}

func TestWizard_StorefrontServiceChangeClearsSelection(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(KindStorefront, newStubFetcher(), nil, nil)

	require.NoError(t, w.SelectService(ctx, "haircut"))
	require.NoError(t, w.SelectBarber(ctx, "B1"))
	require.NoError(t, w.SelectDate(ctx, "2025-03-10"))
	require.NoError(t, w.SelectSlot("10:00"))

	require.NoError(t, w.SelectService(ctx, "beard"))
	d := scheduled(t, w)
	assert.Equal(t, "beard", d.ServiceID)
	assert.Empty(t, d.BarberID)
	assert.Empty(t, d.Date)
	assert.Empty(t, d.Slot)
	assert.Equal(t, StepBarber, w.Step())
}

func TestWizard_StorefrontSameServiceClearsBarber(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(KindStorefront, newStubFetcher(), nil, nil)

	require.NoError(t, w.SelectService(ctx, "haircut"))
	require.NoError(t, w.SelectBarber(ctx, "B1"))
	assert.Equal(t, StepBarber, w.Back())
	assert.Equal(t, StepService, w.Back())

	require.NoError(t, w.SelectService(ctx, "haircut"))
	assert.Equal(t, StepBarber, w.Step())
	assert.Empty(t, scheduled(t, w).BarberID)

	assert.ErrorIs(t, w.SelectDate(ctx, "2025-03-10"), ErrStepNotAllowed)
	assert.Equal(t, StepBarber, w.Step())
}

func TestWizard_SlotTaken(t *testing.T) {
	ctx := context.Background()
	f := newStubFetcher()
	w := NewWizard(KindStorefront, f, nil, nil)

	require.NoError(t, w.SelectService(ctx, "haircut"))
	require.NoError(t, w.SelectBarber(ctx, "B1"))
	require.NoError(t, w.SelectDate(ctx, "2025-03-10"))
	require.NoError(t, w.SetCustomer("Joe", "48999998888"))
	require.NoError(t, w.SelectSlot("10:00"))
	calls := f.callCount()

	f.mu.Lock()
	f.lists["B1"] = []model.TimeSlot{{Time: "10:00", IsBooked: true}, {Time: "11:00"}}
	f.mu.Unlock()

	snap := w.SlotTaken(ctx)
	assert.Equal(t, StepDateTime, w.Step())
	assert.Empty(t, scheduled(t, w).Slot)
	assert.Equal(t, "Joe", w.Draft().Base().Customer.Name)
	assert.Equal(t, calls+1, f.callCount())
	assert.False(t, snap.Selectable("10:00"))
	assert.True(t, snap.Selectable("11:00"))
}

func TestWizard_ManualToggle(t *testing.T) {
	ctx := context.Background()
	f := newStubFetcher()
	w := NewWizard(KindAdmin, f, nil, nil)

	require.NoError(t, w.SelectService(ctx, "haircut"))
	require.NoError(t, w.SelectBarber(ctx, "B1"))
	require.NoError(t, w.SelectDate(ctx, "2025-03-10"))
	require.NoError(t, w.SelectSlot("10:00"))

	require.NoError(t, w.SetManualMode(ctx, true))
	assert.True(t, w.Manual())
	assert.Equal(t, slots.StateIdle, w.Slots().State)
	assert.Empty(t, w.Slots().Slots)
	assert.ErrorIs(t, w.SelectSlot("10:00"), ErrManualMode)
	require.NoError(t, w.SetManualTime("09:00"))
	require.NoError(t, w.SetManualStatus("completed"))

	// Turning it on twice changes nothing.
	require.NoError(t, w.SetManualMode(ctx, true))
	assert.Equal(t, "09:00", w.Draft().(ManualDraft).Time)

	require.NoError(t, w.SetManualMode(ctx, false))
	d := scheduled(t, w)
	assert.Empty(t, d.Slot)
	assert.Equal(t, "B1", d.BarberID)
	assert.Equal(t, slots.StateReady, w.Slots().State)
	assert.Equal(t, 2, f.callCount())
	assert.ErrorIs(t, w.SetManualTime("09:00"), ErrNotManual)
}

func TestWizard_ManualModeAdminOnly(t *testing.T) {
	w := NewWizard(KindStorefront, newStubFetcher(), nil, nil)
	assert.ErrorIs(t, w.SetManualMode(context.Background(), true), ErrAdminOnly)
}

func TestWizard_ManualStatusValidated(t *testing.T) {
	w := NewWizard(KindAdmin, newStubFetcher(), nil, nil)
	require.NoError(t, w.SetManualMode(context.Background(), true))

	assert.Error(t, w.SetManualStatus("pending"))
	require.NoError(t, w.SetManualStatus("Booked"))
	assert.Equal(t, model.StatusBooked, w.Draft().(ManualDraft).Status)
}

func TestWizard_Cancel(t *testing.T) {
	ctx := context.Background()
	w := NewWizard(KindStorefront, newStubFetcher(), nil, nil)
	require.NoError(t, w.SelectService(ctx, "haircut"))

	w.Cancel()
	assert.Equal(t, StepCanceled, w.Step())
	assert.Empty(t, w.Draft().Base().ServiceID)
	assert.ErrorIs(t, w.SelectService(ctx, "beard"), ErrFinished)
	assert.ErrorIs(t, w.SetCustomer("Joe", "1"), ErrFinished)
}

func TestWizard_InvalidDate(t *testing.T) {
	w := NewWizard(KindAdmin, newStubFetcher(), nil, nil)
	assert.Error(t, w.SelectDate(context.Background(), "10/03/2025"))
}

func TestSessionStore(t *testing.T) {
	f := newStubFetcher()
	store := NewSessionStore(time.Minute, func() *Wizard {
		return NewWizard(KindStorefront, f, nil, nil)
	})

	assert.Nil(t, store.Get(42))

	w := store.GetOrCreate(42)
	require.NotNil(t, w)
	assert.Same(t, w, store.GetOrCreate(42))

	owner, ok := store.Owner(w.ID())
	assert.True(t, ok)
	assert.Equal(t, int64(42), owner)

	w.Cancel()
	fresh := store.GetOrCreate(42)
	assert.NotSame(t, w, fresh, "finished wizard is replaced")

	reset := store.Reset(42)
	assert.NotSame(t, fresh, reset)
	assert.Equal(t, StepCanceled, fresh.Step())

	store.Delete(42)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_Cleanup(t *testing.T) {
	f := newStubFetcher()
	store := NewSessionStore(time.Millisecond, func() *Wizard {
		return NewWizard(KindStorefront, f, nil, nil)
	})
	store.GetOrCreate(1)
	store.GetOrCreate(2)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, store.Cleanup())
	assert.Equal(t, 0, store.Len())
}
