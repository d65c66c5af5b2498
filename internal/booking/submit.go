package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"barberbook/internal/barberapi"
	"barberbook/internal/metrics"
	"barberbook/internal/model"
	"barberbook/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrSubmitInFlight is returned while an earlier submit of the same wizard is pending.
	ErrSubmitInFlight = errors.New("booking: submission already in progress")
	// ErrTransient wraps network failures and server errors. The draft is kept.
	ErrTransient = errors.New("booking: could not reach the booking service")
)

// RejectedError is a backend refusal. Message is the backend text, unmodified.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return "booking rejected: " + e.Message
}

// Conflict reports a slot race or overlapping entry.
func (e *RejectedError) Conflict() bool {
	return e.StatusCode == http.StatusConflict
}

// Backend is the booking service the submitter posts to.
type Backend interface {
	CreateBooking(ctx context.Context, req barberapi.BookingRequest) (*model.Booking, error)
	CreateManualBooking(ctx context.Context, req barberapi.ManualBookingRequest) (*model.Booking, error)
}

// Outcome of a submission attempt.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Attempt is one submission as it went out, kept for the journal.
type Attempt struct {
	ID        string
	WizardID  string
	Mode      Mode
	Payload   []byte
	Outcome   string
	Message   string
	BookingID string
	CreatedAt time.Time
}

// Recorder stores submission attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// SubmitterConfig controls instant construction.
type SubmitterConfig struct {
	Location *time.Location
	// LegacyManualInstant builds manual instants the historical way, see LegacyManualInstant.
	LegacyManualInstant bool
}

// Submitter validates drafts and posts them to the backend.
type Submitter struct {
	backend  Backend
	recorder Recorder
	bus      *notify.Bus
	validate *validator.Validate
	cfg      SubmitterConfig
	logger   *zerolog.Logger
}

// NewSubmitter creates a submitter. recorder and bus may be nil.
func NewSubmitter(backend Backend, recorder Recorder, bus *notify.Bus, cfg SubmitterConfig, logger *zerolog.Logger) *Submitter {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Submitter{
		backend:  backend,
		recorder: recorder,
		bus:      bus,
		validate: NewValidator(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Submit sends the wizard's draft. Exactly one request is made per call; a
// concurrent call on the same wizard gets ErrSubmitInFlight. Validation errors
// are returned as ValidationErrors before any request. A backend refusal comes
// back as *RejectedError and anything else wraps ErrTransient; in both cases the
// draft is kept. On success the wizard completes and the draft is discarded.
func (s *Submitter) Submit(ctx context.Context, w *Wizard) (*model.Booking, error) {
	draft, err := w.beginSubmit()
	if err != nil {
		return nil, err
	}
	success := false
	defer func() { w.endSubmit(success) }()

	logger := s.loggerFor(ctx).With().Str("wizard", w.ID()).Str("mode", string(draft.Mode())).Logger()

	if err := Validate(s.validate, draft); err != nil {
		metrics.IncSubmission(string(draft.Mode()), "invalid")
		return nil, err
	}
	if d, ok := draft.(ScheduledDraft); ok && !w.Slots().Selectable(d.Slot) {
		metrics.IncSubmission(string(draft.Mode()), "invalid")
		return nil, ValidationErrors{{Field: "time", Message: "the selected time is no longer available"}}
	}

	var (
		bk      *model.Booking
		payload any
	)
	switch d := draft.(type) {
	case ScheduledDraft:
		req, err := s.scheduledRequest(d)
		if err != nil {
			return nil, err
		}
		payload = req
		bk, err = s.send(ctx, func(ctx context.Context) (*model.Booking, error) {
			return s.backend.CreateBooking(ctx, req)
		})
		if err != nil {
			return nil, s.fail(ctx, &logger, w, draft, payload, err)
		}
	case ManualDraft:
		req, err := s.manualRequest(d)
		if err != nil {
			return nil, err
		}
		payload = req
		bk, err = s.send(ctx, func(ctx context.Context) (*model.Booking, error) {
			return s.backend.CreateManualBooking(ctx, req)
		})
		if err != nil {
			return nil, s.fail(ctx, &logger, w, draft, payload, err)
		}
	default:
		return nil, fmt.Errorf("booking: unknown draft %T", draft)
	}

	success = true
	metrics.IncSubmission(string(draft.Mode()), OutcomeSucceeded)
	s.record(ctx, &logger, w, draft, payload, OutcomeSucceeded, "", bk.ID)
	logger.Info().Str("booking_id", bk.ID).Msg("booking created")
	s.bus.Publish(notify.Notice{
		Topic:   notify.TopicBooking,
		Source:  w.ID(),
		Level:   notify.LevelSuccess,
		Message: "Booking confirmed.",
	})
	return bk, nil
}

// Instant returns the instant a draft will be submitted with.
func (s *Submitter) Instant(d Draft) (time.Time, error) {
	switch d := d.(type) {
	case ScheduledDraft:
		return WallClockInstant(d.Date, d.Slot, s.cfg.Location)
	case ManualDraft:
		if s.cfg.LegacyManualInstant {
			return LegacyManualInstant(d.Date, d.Time, s.cfg.Location)
		}
		return WallClockInstant(d.Date, d.Time, s.cfg.Location)
	}
	return time.Time{}, fmt.Errorf("booking: unknown draft %T", d)
}

func (s *Submitter) scheduledRequest(d ScheduledDraft) (barberapi.BookingRequest, error) {
	at, err := s.Instant(d)
	if err != nil {
		return barberapi.BookingRequest{}, err
	}
	req := barberapi.BookingRequest{
		Service: d.ServiceID,
		Barber:  d.BarberID,
		Time:    FormatInstant(at),
		Customer: barberapi.CustomerPayload{
			Name:  d.Customer.Name,
			Phone: model.DigitsOnly(d.Customer.Phone),
		},
	}
	if err := s.validate.Struct(req); err != nil {
		return barberapi.BookingRequest{}, fmt.Errorf("build booking request: %w", err)
	}
	return req, nil
}

func (s *Submitter) manualRequest(d ManualDraft) (barberapi.ManualBookingRequest, error) {
	at, err := s.Instant(d)
	if err != nil {
		return barberapi.ManualBookingRequest{}, err
	}
	req := barberapi.ManualBookingRequest{
		BookingRequest: barberapi.BookingRequest{
			Service: d.ServiceID,
			Barber:  d.BarberID,
			Time:    FormatInstant(at),
			Customer: barberapi.CustomerPayload{
				Name:  d.Customer.Name,
				Phone: model.DigitsOnly(d.Customer.Phone),
			},
		},
		Status: d.Status,
	}
	if err := s.validate.Struct(req); err != nil {
		return barberapi.ManualBookingRequest{}, fmt.Errorf("build manual booking request: %w", err)
	}
	return req, nil
}

func (s *Submitter) send(ctx context.Context, call func(context.Context) (*model.Booking, error)) (*model.Booking, error) {
	bk, err := call(ctx)
	if err == nil && bk == nil {
		bk = &model.Booking{}
	}
	return bk, err
}

// fail classifies a backend error, publishes the matching notice and journals it.
func (s *Submitter) fail(ctx context.Context, logger *zerolog.Logger, w *Wizard, d Draft, payload any, err error) error {
	var apiErr *barberapi.APIError
	if errors.As(err, &apiErr) && apiErr.IsClientError() {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("The booking was refused (HTTP %d).", apiErr.StatusCode)
		}
		metrics.IncSubmission(string(d.Mode()), OutcomeRejected)
		s.record(ctx, logger, w, d, payload, OutcomeRejected, msg, "")
		logger.Warn().Int("status", apiErr.StatusCode).Str("message", msg).Msg("booking rejected")
		s.bus.Publish(notify.Notice{
			Topic:   notify.TopicBooking,
			Source:  w.ID(),
			Level:   notify.LevelError,
			Message: msg,
		})
		return &RejectedError{StatusCode: apiErr.StatusCode, Message: msg}
	}

	metrics.IncSubmission(string(d.Mode()), OutcomeFailed)
	s.record(ctx, logger, w, d, payload, OutcomeFailed, err.Error(), "")
	logger.Error().Err(err).Msg("booking submission failed")
	s.bus.Publish(notify.Notice{
		Topic:   notify.TopicBooking,
		Source:  w.ID(),
		Level:   notify.LevelError,
		Message: "Could not complete the booking. Please try again.",
	})
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func (s *Submitter) record(ctx context.Context, logger *zerolog.Logger, w *Wizard, d Draft, payload any, outcome, message, bookingID string) {
	if s.recorder == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("marshal journal payload")
	}
	a := Attempt{
		ID:        uuid.NewString(),
		WizardID:  w.ID(),
		Mode:      d.Mode(),
		Payload:   body,
		Outcome:   outcome,
		Message:   message,
		BookingID: bookingID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.recorder.Record(ctx, a); err != nil {
		logger.Warn().Err(err).Msg("journal write failed")
	}
}

func (s *Submitter) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.logger
}
