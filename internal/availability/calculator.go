// Package availability enumerates bookable time slots for a resource.
package availability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

// Slot is one candidate interval [Start, End) on the step grid.
type Slot struct {
	Start time.Time
	End   time.Time
}

// OverlapCounter reports how many live bookings overlap an interval on a
// resource. The booking ledger implements it.
type OverlapCounter interface {
	CountOverlapping(ctx context.Context, resourceID int64, start, end time.Time) (int, error)
}

// Calculator builds the list of open slots for a resource on a date.
// It has no side effects; every call re-reads the ledger.
type Calculator struct {
	counter OverlapCounter
	loc     *time.Location
	logger  *zerolog.Logger
}

func New(counter OverlapCounter, loc *time.Location, logger *zerolog.Logger) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{counter: counter, loc: loc, logger: logger}
}

// EnumerateSlots walks the step grid from the resource's opening time and
// keeps every candidate with spare capacity, in chronological order. A
// malformed catalog entry (non-positive duration or step, close not after
// open) degrades to "no slots" and an operator log line instead of failing
// the user's request.
func (c *Calculator) EnumerateSlots(ctx context.Context, res models.Resource, svc models.Service, date time.Time) ([]Slot, error) {
	if svc.DurationMin <= 0 || svc.StepMin <= 0 {
		c.logger.Warn().Int64("service_id", svc.ID).
			Int("duration_min", svc.DurationMin).Int("step_min", svc.StepMin).
			Msg("service has non-positive duration or step; no slots")
		return nil, nil
	}

	open, err := parseTimeOnDate(date, res.OpenTime, c.loc)
	if err != nil {
		c.logger.Warn().Err(err).Int64("resource_id", res.ID).Msg("bad open time; no slots")
		return nil, nil
	}
	close, err := parseTimeOnDate(date, res.CloseTime, c.loc)
	if err != nil {
		c.logger.Warn().Err(err).Int64("resource_id", res.ID).Msg("bad close time; no slots")
		return nil, nil
	}

	// Overnight windows are not supported.
	if !close.After(open) {
		c.logger.Warn().Int64("resource_id", res.ID).
			Str("open", res.OpenTime).Str("close", res.CloseTime).
			Msg("close time not after open time; no slots")
		return nil, nil
	}

	duration := time.Duration(svc.DurationMin) * time.Minute
	step := time.Duration(svc.StepMin) * time.Minute

	var slots []Slot
	for cursor := open; !cursor.Add(duration).After(close); cursor = cursor.Add(step) {
		start := cursor
		end := cursor.Add(duration)

		count, err := c.counter.CountOverlapping(ctx, res.ID, start, end)
		if err != nil {
			return nil, fmt.Errorf("count overlapping: %w", err)
		}
		if count < res.Capacity {
			slots = append(slots, Slot{Start: start, End: end})
		}
	}
	return slots, nil
}

func parseTimeOnDate(date time.Time, timeStr string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %s", timeStr)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}
