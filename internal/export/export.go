package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"barberbook/internal/booking"
	"barberbook/internal/model"

	"github.com/rs/zerolog"
)

// AttemptSource lists journaled submission attempts.
type AttemptSource interface {
	List(ctx context.Context, from, to time.Time) ([]booking.Attempt, error)
}

// BookingSource lists backend bookings between two calendar days.
type BookingSource interface {
	ListBookings(ctx context.Context, from, to string) ([]model.Booking, error)
}

// Exporter builds the operator report workbook.
type Exporter struct {
	attempts AttemptSource
	bookings BookingSource
	location *time.Location
	logger   *zerolog.Logger
}

// NewExporter creates an exporter. bookings may be nil, in which case only the
// journal sheet is written.
func NewExporter(attempts AttemptSource, bookings BookingSource, loc *time.Location, logger *zerolog.Logger) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{attempts: attempts, bookings: bookings, location: loc, logger: logger}
}

// Range is a span of calendar days, both inclusive, in yyyy-MM-dd.
type Range struct {
	From string
	To   string
}

func (r Range) bounds(loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(model.DateLayout, r.From, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", r.From)
	}
	to, err := time.ParseInLocation(model.DateLayout, r.To, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", r.To)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("range ends before it starts: %s..%s", r.From, r.To)
	}
	return from, to.AddDate(0, 0, 1), nil
}

var (
	submissionColumns = []string{"Created", "Outcome", "Mode", "Message", "Booking ID", "Wizard", "Payload"}
	bookingColumns    = []string{"Booking ID", "Time", "Service", "Barber", "Customer", "Phone", "Status"}
)

// Write renders the workbook for r to out.
func (e *Exporter) Write(ctx context.Context, out io.Writer, r Range, catalog model.Catalog) error {
	from, to, err := r.bounds(e.location)
	if err != nil {
		return err
	}

	attempts, err := e.attempts.List(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}

	wb := newWorkbook()
	defer wb.close()

	if err := wb.addSheet("Submissions"); err != nil {
		return err
	}
	if err := wb.writeHeader(submissionColumns); err != nil {
		return err
	}
	for _, a := range attempts {
		row := []any{
			a.CreatedAt.In(e.location).Format("2006-01-02 15:04:05"),
			a.Outcome,
			string(a.Mode),
			a.Message,
			a.BookingID,
			a.WizardID,
			string(a.Payload),
		}
		if err := wb.writeRow(row); err != nil {
			return err
		}
	}

	if e.bookings != nil {
		bookings, err := e.bookings.ListBookings(ctx, r.From, r.To)
		if err != nil {
			return fmt.Errorf("load bookings: %w", err)
		}
		if err := wb.addSheet("Bookings"); err != nil {
			return err
		}
		if err := wb.writeHeader(bookingColumns); err != nil {
			return err
		}
		for _, b := range bookings {
			service, barber := b.Service, b.Barber
			if s, ok := catalog.Service(b.Service); ok {
				service = s.Name
			}
			if br, ok := catalog.Barber(b.Barber); ok {
				barber = br.Name
			}
			row := []any{
				b.ID,
				b.Time.In(e.location).Format("2006-01-02 15:04"),
				service,
				barber,
				b.Customer.Name,
				b.Customer.Phone,
				string(b.Status),
			}
			if err := wb.writeRow(row); err != nil {
				return err
			}
		}
	}

	e.logger.Info().
		Str("from", r.From).
		Str("to", r.To).
		Int("submissions", len(attempts)).
		Msg("export written")
	return wb.save(out)
}

// WriteFile renders the workbook for r to path.
func (e *Exporter) WriteFile(ctx context.Context, path string, r Range, catalog model.Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := e.Write(ctx, f, r, catalog); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
