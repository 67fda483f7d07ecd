// Package models holds the attendance domain types. A ShiftRecord is the
// unit of truth for one employee's attendance on one calendar day; its status
// is derived from which timestamps are present, never stored.
package models

import (
	"time"

	"shiftgate/internal/geofence"
)

// Day is a civil date (YYYY-MM-DD) in the business time zone. Together with
// the employee id it is the identity key of a ShiftRecord.
type Day string

// DayOf returns the civil date of t in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	return Day(t.In(loc).Format("2006-01-02"))
}

// ShiftStatus is the derived state of a shift.
type ShiftStatus string

const (
	StatusNotStarted ShiftStatus = "not_started"
	StatusWorking    ShiftStatus = "working"
	StatusOnBreak    ShiftStatus = "on_break"
	StatusCompleted  ShiftStatus = "completed"
)

// TransitionKind names a state-machine transition.
type TransitionKind string

const (
	TransitionClockIn    TransitionKind = "clock_in"
	TransitionBreakStart TransitionKind = "break_start"
	TransitionBreakEnd   TransitionKind = "break_end"
	TransitionClockOut   TransitionKind = "clock_out"
)

// ShiftRecord is one employee's attendance record for one day. At most one
// exists per (EmployeeID, RecordDate); stores enforce this with upsert
// semantics on the identity key, never a surrogate id.
type ShiftRecord struct {
	EmployeeID string `json:"employee_id"`
	RecordDate Day    `json:"record_date"`

	ClockIn                   *time.Time       `json:"clock_in,omitempty"`
	ClockInLocation           *geofence.Sample `json:"clock_in_location,omitempty"`
	LocationVerifiedAtClockIn bool             `json:"location_verified_at_clock_in"`

	// BreakStart/BreakEnd hold the latest break cycle; minutes accumulate
	// across cycles and are never reset mid-day.
	BreakStart        *time.Time `json:"break_start,omitempty"`
	BreakEnd          *time.Time `json:"break_end,omitempty"`
	TotalBreakMinutes float64    `json:"total_break_minutes"`

	ClockOut         *time.Time       `json:"clock_out,omitempty"`
	ClockOutLocation *geofence.Sample `json:"clock_out_location,omitempty"`

	// TotalHours is wall time from clock-in to clock-out minus break
	// minutes, in hours to two decimals. Set only once the shift completes.
	TotalHours float64 `json:"total_hours"`
}

// Status derives the shift state from the presence of the timestamps.
func (r *ShiftRecord) Status() ShiftStatus {
	switch {
	case r == nil || r.ClockIn == nil:
		return StatusNotStarted
	case r.ClockOut != nil:
		return StatusCompleted
	case r.BreakStart != nil && r.BreakEnd == nil:
		return StatusOnBreak
	default:
		return StatusWorking
	}
}

// Clone returns a deep-enough copy so stores can hand out records without
// aliasing their internal state.
func (r *ShiftRecord) Clone() *ShiftRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.ClockIn = copyTime(r.ClockIn)
	cp.BreakStart = copyTime(r.BreakStart)
	cp.BreakEnd = copyTime(r.BreakEnd)
	cp.ClockOut = copyTime(r.ClockOut)
	cp.ClockInLocation = copySample(r.ClockInLocation)
	cp.ClockOutLocation = copySample(r.ClockOutLocation)
	return &cp
}

// ShiftUpdate is a partial update applied by identity key. Nil fields are
// left untouched. ClearBreakEnd opens a new break cycle: it nulls BreakEnd
// while BreakStart is being replaced.
type ShiftUpdate struct {
	BreakStart        *time.Time
	BreakEnd          *time.Time
	ClearBreakEnd     bool
	TotalBreakMinutes *float64
	ClockOut          *time.Time
	ClockOutLocation  *geofence.Sample
	TotalHours        *float64
}

// Apply merges the update into the record.
func (u ShiftUpdate) Apply(r *ShiftRecord) {
	if u.BreakStart != nil {
		r.BreakStart = copyTime(u.BreakStart)
	}
	if u.ClearBreakEnd {
		r.BreakEnd = nil
	} else if u.BreakEnd != nil {
		r.BreakEnd = copyTime(u.BreakEnd)
	}
	if u.TotalBreakMinutes != nil {
		r.TotalBreakMinutes = *u.TotalBreakMinutes
	}
	if u.ClockOut != nil {
		r.ClockOut = copyTime(u.ClockOut)
	}
	if u.ClockOutLocation != nil {
		r.ClockOutLocation = copySample(u.ClockOutLocation)
	}
	if u.TotalHours != nil {
		r.TotalHours = *u.TotalHours
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func copySample(s *geofence.Sample) *geofence.Sample {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
