// Package booking implements the booking wizard: the draft, its step machine
// and the submission to the backend.
package booking

import "errors"

// Step is the current screen of a wizard.
type Step string

const (
	StepService  Step = "service"
	StepBarber   Step = "barber"
	StepDateTime Step = "datetime"
	StepConfirm  Step = "confirm"
	StepForm     Step = "form" // admin single-screen form
	StepComplete Step = "complete"
	StepCanceled Step = "canceled"
)

// Terminal reports whether the wizard is finished.
func (s Step) Terminal() bool {
	return s == StepComplete || s == StepCanceled
}

var (
	// ErrFinished is returned for any change to a completed or canceled wizard.
	ErrFinished = errors.New("booking: wizard already finished")
	// ErrStepNotAllowed is returned when an action does not fit the current step.
	ErrStepNotAllowed = errors.New("booking: action not allowed at this step")
	// ErrAdminOnly is returned when a storefront wizard tries a manual-mode action.
	ErrAdminOnly = errors.New("booking: manual mode is only available to staff")
	// ErrManualMode is returned for slot actions while manual mode is on.
	ErrManualMode = errors.New("booking: slots are disabled in manual mode")
	// ErrNotManual is returned for manual-only fields while manual mode is off.
	ErrNotManual = errors.New("booking: manual mode is off")
	// ErrSlotUnavailable is returned when the chosen time is booked or unknown.
	ErrSlotUnavailable = errors.New("booking: time is not available")
)

// FSM holds the allowed step transitions.
type FSM struct {
	transitions map[Step][]Step
}

// NewFSM creates the storefront and admin transition table.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[Step][]Step{
			StepService:  {StepBarber, StepCanceled},
			StepBarber:   {StepDateTime, StepService, StepBarber, StepCanceled},
			StepDateTime: {StepConfirm, StepBarber, StepDateTime, StepCanceled},
			StepConfirm:  {StepComplete, StepDateTime, StepBarber, StepCanceled},
			StepForm:     {StepComplete, StepCanceled},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to Step) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// previous is the step Back returns to.
func previous(s Step) Step {
	switch s {
	case StepBarber:
		return StepService
	case StepDateTime:
		return StepBarber
	case StepConfirm:
		return StepDateTime
	}
	return s
}

// StepPrompts are shown by the front ends when a step is entered.
var StepPrompts = map[Step]string{
	StepService:  "Choose a service:",
	StepBarber:   "Choose a barber:",
	StepDateTime: "Choose a date and a time:",
	StepConfirm:  "Check the booking details.",
	StepForm:     "New booking",
	StepComplete: "✅ Booking confirmed!",
	StepCanceled: "❌ Booking canceled.",
}
