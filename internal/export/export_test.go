package export

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"barberbook/internal/booking"
	"barberbook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeAttempts struct {
	from, to time.Time
	items    []booking.Attempt
}

func (f *fakeAttempts) List(_ context.Context, from, to time.Time) ([]booking.Attempt, error) {
	f.from, f.to = from, to
	return f.items, nil
}

type fakeBookings struct {
	items []model.Booking
	err   error
}

func (f *fakeBookings) ListBookings(_ context.Context, _, _ string) ([]model.Booking, error) {
	return f.items, f.err
}

func TestExporter_Write(t *testing.T) {
	attempts := &fakeAttempts{items: []booking.Attempt{
		{ID: "a1", WizardID: "w1", Mode: booking.ModeManual, Outcome: booking.OutcomeSucceeded,
			BookingID: "bk-1", CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		{ID: "a2", WizardID: "w2", Mode: booking.ModeScheduled, Outcome: booking.OutcomeRejected,
			Message: "Horário já reservado", CreatedAt: time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)},
	}}
	bookings := &fakeBookings{items: []model.Booking{
		{ID: "bk-1", Service: "haircut", Barber: "B1", Time: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
			Customer: model.Customer{Name: "Joe", Phone: "48999998888"}, Status: model.StatusCompleted},
	}}
	catalog := model.Catalog{
		Services: []model.Service{{ID: "haircut", Name: "Haircut"}},
		Barbers:  []model.Barber{{ID: "B1", Name: "Bruno"}},
	}
	loc := time.FixedZone("BRT", -3*60*60)

	var buf bytes.Buffer
	e := NewExporter(attempts, bookings, loc, nil)
	require.NoError(t, e.Write(context.Background(), &buf, Range{From: "2025-01-01", To: "2025-01-31"}, catalog))

	assert.True(t, attempts.from.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, loc)))
	assert.True(t, attempts.to.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, loc)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Submissions", "Bookings"}, f.GetSheetList())

	rows, err := f.GetRows("Submissions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, submissionColumns, rows[0])
	assert.Equal(t, "2025-01-01 09:00:00", rows[1][0])
	assert.Equal(t, "Horário já reservado", rows[2][3])

	rows, err = f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"bk-1", "2025-01-01 09:00", "Haircut", "Bruno", "Joe", "48999998888", "completed"}, rows[1])
}

func TestExporter_JournalOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	e := NewExporter(&fakeAttempts{}, nil, time.UTC, nil)
	require.NoError(t, e.WriteFile(context.Background(), path, Range{From: "2025-01-01", To: "2025-01-01"}, model.Catalog{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Submissions"}, f.GetSheetList())
}

func TestExporter_Errors(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	e := NewExporter(&fakeAttempts{}, nil, time.UTC, nil)
	assert.Error(t, e.Write(ctx, &buf, Range{From: "2025-02-01", To: "2025-01-01"}, model.Catalog{}))
	assert.Error(t, e.Write(ctx, &buf, Range{From: "01/01/2025", To: "2025-01-01"}, model.Catalog{}))

	e = NewExporter(&fakeAttempts{}, &fakeBookings{err: errors.New("http 500")}, time.UTC, nil)
	err := e.Write(ctx, &buf, Range{From: "2025-01-01", To: "2025-01-31"}, model.Catalog{})
	assert.ErrorContains(t, err, "load bookings")
}
