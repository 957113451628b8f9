package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
)

var (
	ErrNoSlotAvailable = errors.New("no slot available within the search horizon")
)

// Availability derives free and busy slots from current store contents.
// It holds no state of its own: every call re-reads the store, so results
// are only as stale as one round trip.
type Availability struct {
	repo Repository
	cfg  config.Config
}

func NewAvailability(repo Repository, cfg config.Config) *Availability {
	return &Availability{
		repo: repo,
		cfg:  cfg,
	}
}

// BusySlots returns the occupied HH:MM times for a day, deduplicated and
// ascending. When both doctorID and roomID are given a slot is busy if
// either resource is taken. Cancelled and denied appointments never occupy.
func (a *Availability) BusySlots(ctx context.Context, day string, doctorID, roomID, excludeAppointmentID *uuid.UUID) ([]string, error) {
	rows, err := a.repo.AppointmentTimes(ctx, OccupancyQuery{
		Day:                  day,
		DoctorID:             doctorID,
		RoomID:               roomID,
		ExcludeAppointmentID: excludeAppointmentID,
	})
	if err != nil {
		return nil, fmt.Errorf("load appointment times: %w", err)
	}

	occupied := make(map[string]struct{})
	for _, row := range rows {
		if Occupies(row.Status) {
			occupied[row.Time] = struct{}{}
		}
	}

	busy := make([]string, 0, len(occupied))
	for t := range occupied {
		busy = append(busy, t)
	}
	sort.Strings(busy)

	return busy, nil
}

// IsSlotAvailable reports whether (day, timeOfDay) is free for the given
// doctor and/or room.
func (a *Availability) IsSlotAvailable(ctx context.Context, day, timeOfDay string, doctorID, roomID, excludeAppointmentID *uuid.UUID) (bool, error) {
	busy, err := a.BusySlots(ctx, day, doctorID, roomID, excludeAppointmentID)
	if err != nil {
		return false, err
	}

	for _, t := range busy {
		if t == timeOfDay {
			return false, nil
		}
	}
	return true, nil
}

// AvailableSlots enumerates the free times of the business-hours window for
// a (doctor, room, day), stepping by stepMinutes. Both window endpoints are
// candidates; when the step does not divide the window the enumeration just
// stops at the last instant not past the end. A non-positive stepMinutes
// falls back to the configured default.
func (a *Availability) AvailableSlots(ctx context.Context, doctorID, roomID uuid.UUID, day string, stepMinutes int, excludeAppointmentID *uuid.UUID) ([]string, error) {
	if stepMinutes <= 0 {
		stepMinutes = a.cfg.SlotStepMinutes
	}

	t, err := ParseDayTime(day, a.cfg.DayStart)
	if err != nil {
		return nil, fmt.Errorf("invalid day %q: %w", day, err)
	}
	end, err := ParseDayTime(day, a.cfg.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid day %q: %w", day, err)
	}

	busyList, err := a.BusySlots(ctx, day, &doctorID, &roomID, excludeAppointmentID)
	if err != nil {
		return nil, err
	}
	busy := make(map[string]struct{}, len(busyList))
	for _, b := range busyList {
		busy[b] = struct{}{}
	}

	var free []string
	step := time.Duration(stepMinutes) * time.Minute
	for !t.After(end) {
		hhmm := t.Format(TimeLayout)
		if _, taken := busy[hhmm]; !taken {
			free = append(free, hhmm)
		}
		t = t.Add(step)
	}

	return free, nil
}

// SuggestNextSlot searches forward from (day, timeOfDay) for the first free
// slot, stepping by stepMinutes and rolling over to the next day's window
// start whenever a candidate passes the window end. The search is bounded to
// the configured horizon; exhausting it, or an unparseable start, yields
// ErrNoSlotAvailable.
func (a *Availability) SuggestNextSlot(ctx context.Context, day, timeOfDay string, doctorID, roomID uuid.UUID, stepMinutes int) (string, string, error) {
	if stepMinutes <= 0 {
		stepMinutes = a.cfg.SlotStepMinutes
	}

	candidate, err := ParseDayTime(day, timeOfDay)
	if err != nil {
		return "", "", ErrNoSlotAvailable
	}

	dayStart, err := time.Parse(TimeLayout, a.cfg.DayStart)
	if err != nil {
		return "", "", fmt.Errorf("invalid window start %q: %w", a.cfg.DayStart, err)
	}
	dayEnd, err := time.Parse(TimeLayout, a.cfg.DayEnd)
	if err != nil {
		return "", "", fmt.Errorf("invalid window end %q: %w", a.cfg.DayEnd, err)
	}
	endMinute := dayEnd.Hour()*60 + dayEnd.Minute()

	step := time.Duration(stepMinutes) * time.Minute
	attempts := a.cfg.SuggestHorizonDays * 24 * 60 / stepMinutes

	for i := 0; i < attempts; i++ {
		d := candidate.Format(DateLayout)
		hhmm := candidate.Format(TimeLayout)

		free, err := a.IsSlotAvailable(ctx, d, hhmm, &doctorID, &roomID, nil)
		if err != nil {
			return "", "", err
		}
		if free {
			return d, hhmm, nil
		}

		candidate = candidate.Add(step)
		if candidate.Hour()*60+candidate.Minute() > endMinute {
			next := candidate.AddDate(0, 0, 1)
			candidate = time.Date(next.Year(), next.Month(), next.Day(),
				dayStart.Hour(), dayStart.Minute(), 0, 0, next.Location())
		}
	}

	return "", "", ErrNoSlotAvailable
}
