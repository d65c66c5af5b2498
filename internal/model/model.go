// Package model holds the barbershop reference data and booking types shared by
// the API client, the booking workflow and the front ends.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-day format used on the wire (yyyy-MM-dd).
	DateLayout = "2006-01-02"
	// ClockLayout is the time-of-day format used on the wire (HH:mm).
	ClockLayout = "15:04"
)

// Service is a bookable service offered by the tenant.
type Service struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Duration      int     `json:"duration"` // minutes
	IsPlanService bool    `json:"isPlanService"`
	PlanRef       string  `json:"plan,omitempty"`
}

// WorkingDay is one availability window of a barber.
type WorkingDay struct {
	Day   string `json:"day"` // weekday name, e.g. "monday"
	Start string `json:"start"`
	End   string `json:"end"`
}

// BreakWindow is a daily pause in a barber's agenda.
type BreakWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Barber is a staff member customers can book with.
type Barber struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Image        string       `json:"image,omitempty"`
	Availability []WorkingDay `json:"availability,omitempty"`
	Break        *BreakWindow `json:"break,omitempty"`
}

// WorksOn reports whether the barber has an availability window on the weekday.
// A barber without any configured window is treated as always available.
func (b Barber) WorksOn(day time.Weekday) bool {
	if len(b.Availability) == 0 {
		return true
	}
	name := strings.ToLower(day.String())
	for _, w := range b.Availability {
		if strings.ToLower(strings.TrimSpace(w.Day)) == name {
			return true
		}
	}
	return false
}

// TimeSlot is one bookable time-of-day for a barber on a date.
type TimeSlot struct {
	Time     string `json:"time"`
	IsBooked bool   `json:"isBooked"`
}

// Customer identifies the person the booking is for.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// BookingStatus is the status an operator may set on a manual booking.
type BookingStatus string

const (
	StatusCompleted BookingStatus = "completed"
	StatusBooked    BookingStatus = "booked"
	StatusCanceled  BookingStatus = "canceled"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusBooked, StatusCanceled:
		return true
	}
	return false
}

// ParseBookingStatus parses a status, case-insensitively.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return s, nil
}

// Booking is a booking as returned by the backend.
type Booking struct {
	ID       string        `json:"id"`
	Service  string        `json:"service"`
	Barber   string        `json:"barber"`
	Time     time.Time     `json:"time"`
	Customer Customer      `json:"customer"`
	Status   BookingStatus `json:"status,omitempty"`
}

// ParseClock parses an HH:mm time of day.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:mm", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// ParseDate parses a yyyy-MM-dd calendar day as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-MM-dd", s)
	}
	return d, nil
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
