package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

// mockCounter counts overlap against a fixed set of intervals.
type mockCounter struct {
	booked [][2]time.Time
	err    error
}

func (m *mockCounter) CountOverlapping(_ context.Context, _ int64, start, end time.Time) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	count := 0
	for _, b := range m.booked {
		if b[0].Before(end) && b[1].After(start) {
			count++
		}
	}
	return count, nil
}

var testDate = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, 9, 14, hour, min, 0, 0, time.UTC)
}

func testResource(capacity int, open, close string) models.Resource {
	return models.Resource{ID: 1, ServiceID: 1, Name: "Room A", Capacity: capacity, OpenTime: open, CloseTime: close, Active: true}
}

func testService(durationMin, stepMin int) models.Service {
	return models.Service{ID: 1, Name: "Consultation", DurationMin: durationMin, StepMin: stepMin, Active: true}
}

func newCalculator(counter OverlapCounter) *Calculator {
	logger := zerolog.Nop()
	return New(counter, time.UTC, &logger)
}

func TestEnumerateSlots_ExcludesBookedInterval(t *testing.T) {
	// open=10:00 close=12:00 duration=30 step=15 capacity=1, one paid
	// booking 10:30-11:00. Every grid candidate overlapping it drops out:
	// 10:15, 10:30 and 10:45 all collide, the first free start is 11:00.
	counter := &mockCounter{booked: [][2]time.Time{{at(10, 30), at(11, 0)}}}
	calc := newCalculator(counter)

	slots, err := calc.EnumerateSlots(context.Background(), testResource(1, "10:00", "12:00"), testService(30, 15), testDate)
	require.NoError(t, err)

	want := []Slot{
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(11, 0), End: at(11, 30)},
		{Start: at(11, 15), End: at(11, 45)},
		{Start: at(11, 30), End: at(12, 0)},
	}
	assert.Equal(t, want, slots)

	for _, s := range slots {
		assert.False(t, s.Start.Before(at(10, 0)))
		assert.False(t, s.End.After(at(12, 0)))
	}
}

func TestEnumerateSlots_StepEqualsDuration(t *testing.T) {
	counter := &mockCounter{booked: [][2]time.Time{{at(10, 30), at(11, 0)}}}
	calc := newCalculator(counter)

	slots, err := calc.EnumerateSlots(context.Background(), testResource(1, "10:00", "12:00"), testService(30, 30), testDate)
	require.NoError(t, err)

	want := []Slot{
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(11, 0), End: at(11, 30)},
		{Start: at(11, 30), End: at(12, 0)},
	}
	assert.Equal(t, want, slots)
}

func TestEnumerateSlots_CapacityTwo(t *testing.T) {
	// One booking does not block a capacity-2 resource.
	counter := &mockCounter{booked: [][2]time.Time{{at(10, 0), at(10, 30)}}}
	calc := newCalculator(counter)

	slots, err := calc.EnumerateSlots(context.Background(), testResource(2, "10:00", "11:00"), testService(30, 30), testDate)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestEnumerateSlots_FullyBooked(t *testing.T) {
	counter := &mockCounter{booked: [][2]time.Time{{at(10, 0), at(12, 0)}}}
	calc := newCalculator(counter)

	slots, err := calc.EnumerateSlots(context.Background(), testResource(1, "10:00", "12:00"), testService(30, 15), testDate)
	require.NoError(t, err)
	assert.Empty(t, slots, "no slots is a valid result, not an error")
}

func TestEnumerateSlots_ConfigErrorsDegrade(t *testing.T) {
	calc := newCalculator(&mockCounter{})

	tests := []struct {
		name     string
		resource models.Resource
		service  models.Service
	}{
		{"zero duration", testResource(1, "10:00", "12:00"), testService(0, 15)},
		{"negative duration", testResource(1, "10:00", "12:00"), testService(-30, 15)},
		{"zero step", testResource(1, "10:00", "12:00"), testService(30, 0)},
		{"close equals open", testResource(1, "10:00", "10:00"), testService(30, 15)},
		{"overnight window", testResource(1, "22:00", "06:00"), testService(30, 15)},
		{"garbage open time", testResource(1, "later", "12:00"), testService(30, 15)},
		{"out of range close", testResource(1, "10:00", "25:00"), testService(30, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := calc.EnumerateSlots(context.Background(), tt.resource, tt.service, testDate)
			assert.NoError(t, err)
			assert.Empty(t, slots)
		})
	}
}

func TestEnumerateSlots_LedgerErrorPropagates(t *testing.T) {
	calc := newCalculator(&mockCounter{err: errors.New("disk gone")})

	_, err := calc.EnumerateSlots(context.Background(), testResource(1, "10:00", "12:00"), testService(30, 15), testDate)
	assert.Error(t, err)
}

func TestEnumerateSlots_UsesConfiguredLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)
	logger := zerolog.Nop()
	calc := New(&mockCounter{}, loc, &logger)

	slots, err := calc.EnumerateSlots(context.Background(), testResource(1, "10:00", "11:00"), testService(30, 30), testDate)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, loc, slots[0].Start.Location())
	assert.Equal(t, 10, slots[0].Start.Hour())
}
