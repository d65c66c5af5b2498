package booking

import (
	"errors"
	"reflect"
	"strings"

	"barberbook/internal/model"

	"github.com/go-playground/validator/v10"
)

// Mode selects the submission path of a draft.
type Mode string

const (
	ModeScheduled Mode = "scheduled"
	ModeManual    Mode = "manual"
)

// Selection holds the fields both draft variants share.
type Selection struct {
	ServiceID string         `field:"service" validate:"required"`
	BarberID  string         `field:"barber" validate:"required"`
	Date      string         `field:"date" validate:"required,day"`
	Customer  model.Customer `field:"customer"`
}

// Draft is a booking in progress. It is either a ScheduledDraft or a ManualDraft.
type Draft interface {
	Mode() Mode
	Base() Selection
	withBase(Selection) Draft
}

// ScheduledDraft books a free slot returned by the availability query.
type ScheduledDraft struct {
	Selection
	Slot string `field:"time" validate:"required"`
}

func (d ScheduledDraft) Mode() Mode      { return ModeScheduled }
func (d ScheduledDraft) Base() Selection { return d.Selection }

func (d ScheduledDraft) withBase(s Selection) Draft {
	d.Selection = s
	return d
}

// ManualDraft records an operator booking with a free-text time and explicit status.
type ManualDraft struct {
	Selection
	Time   string              `field:"time" validate:"required,clock"`
	Status model.BookingStatus `field:"status" validate:"required,status"`
}

func (d ManualDraft) Mode() Mode      { return ModeManual }
func (d ManualDraft) Base() Selection { return d.Selection }

func (d ManualDraft) withBase(s Selection) Draft {
	d.Selection = s
	return d
}

// ValidationError reports one missing or malformed draft field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors lists every problem found in a draft.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "invalid booking: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the errors.
func (v ValidationErrors) Has(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

var fieldMessages = map[string]string{
	"service":        "select a service",
	"barber":         "select a barber",
	"date":           "select a date",
	"time":           "select a time",
	"status":         "select a status",
	"customer.name":  "enter the customer name",
	"customer.phone": "enter the customer phone number",
}

// NewValidator returns a validator that understands draft and payload tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("day", func(fl validator.FieldLevel) bool {
		_, err := model.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, err := model.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return model.BookingStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return model.DigitsOnly(fl.Field().String()) != ""
	})
	return v
}

type customerRules struct {
	Name  string `field:"name" validate:"required"`
	Phone string `field:"phone" validate:"required,phone"`
}

// Validate checks that d carries every field its mode requires. No network call
// is involved; the result is nil or ValidationErrors.
func Validate(v *validator.Validate, d Draft) error {
	if d == nil {
		return ValidationErrors{{Field: "service", Message: fieldMessages["service"]}}
	}
	d = trimmed(d)

	var out ValidationErrors
	collect := func(err error, prefix string) {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return
		}
		for _, fe := range verrs {
			field := prefix + fe.Field()
			msg, ok := fieldMessages[field]
			switch {
			case fe.Tag() == "day":
				msg = "date must be yyyy-MM-dd"
			case fe.Tag() == "clock":
				msg = "time must be HH:mm"
			case fe.Tag() == "status":
				msg = "status must be completed, booked or canceled"
			case !ok:
				msg = "is required"
			}
			out = append(out, ValidationError{Field: field, Message: msg})
		}
	}

	collect(v.Struct(d), "")
	c := d.Base().Customer
	collect(v.Struct(customerRules{Name: c.Name, Phone: c.Phone}), "customer.")

	if len(out) == 0 {
		return nil
	}
	return out
}

func trimmed(d Draft) Draft {
	s := d.Base()
	s.Customer.Name = strings.TrimSpace(s.Customer.Name)
	s.ServiceID = strings.TrimSpace(s.ServiceID)
	s.BarberID = strings.TrimSpace(s.BarberID)
	s.Date = strings.TrimSpace(s.Date)
	return d.withBase(s)
}
