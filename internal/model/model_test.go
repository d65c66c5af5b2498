package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"09:00", 9, 0, true},
		{"23:59", 23, 59, true},
		{" 10:30 ", 10, 30, true},
		{"9:00", 0, 0, false},
		{"24:00", 0, 0, false},
		{"10:60", 0, 0, false},
		{"", 0, 0, false},
		{"ab:cd", 0, 0, false},
		{"+9:00", 0, 0, false},
		{"-0:30", 0, 0, false},
		{"+1:+5", 0, 0, false},
		{"09:-5", 0, 0, false},
	}

	for _, tt := range tests {
		h, m, err := ParseClock(tt.in)
		if !tt.ok {
			assert.Error(t, err, "input: %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input: %q", tt.in)
		assert.Equal(t, tt.hour, h)
		assert.Equal(t, tt.minute, m)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/03/2025")
	assert.Error(t, err)
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "48999998888", DigitsOnly("(48) 99999-8888"))
	assert.Equal(t, "5548999998888", DigitsOnly("+55 48 99999 8888"))
	assert.Equal(t, "", DigitsOnly("abc"))
}

func TestBookingStatus(t *testing.T) {
	s, err := ParseBookingStatus("Completed")
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseBookingStatus("pending")
	assert.Error(t, err)
	assert.False(t, BookingStatus("").Valid())
}

func TestBarber_WorksOn(t *testing.T) {
	free := Barber{ID: "b1"}
	assert.True(t, free.WorksOn(time.Sunday))

	b := Barber{
		ID: "b2",
		Availability: []WorkingDay{
			{Day: "Monday", Start: "09:00", End: "18:00"},
			{Day: "saturday", Start: "09:00", End: "13:00"},
		},
	}
	assert.True(t, b.WorksOn(time.Monday))
	assert.True(t, b.WorksOn(time.Saturday))
	assert.False(t, b.WorksOn(time.Sunday))
}

func TestCatalog(t *testing.T) {
	c := Catalog{
		Services: []Service{
			{ID: "cut", Name: "Haircut", Price: 40},
			{ID: "club", Name: "Club cut", IsPlanService: true, PlanRef: "plan-1"},
		},
		Barbers: []Barber{{ID: "B1", Name: "Bruno"}},
	}

	s, ok := c.Service("cut")
	assert.True(t, ok)
	assert.Equal(t, "Haircut", s.Name)
	_, ok = c.Service("missing")
	assert.False(t, ok)

	b, ok := c.Barber("B1")
	assert.True(t, ok)
	assert.Equal(t, "Bruno", b.Name)

	assert.Len(t, c.RegularServices(), 1)
	assert.Equal(t, "club", c.PlanServices()[0].ID)
}
