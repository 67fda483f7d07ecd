// Package postgres is the ShiftRecordStore over pgx. A unique key on
// (employee_id, record_date) makes upserts enforce the at-most-one-record
// invariant at the database, not just in process.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftgate/internal/attendance/models"
	"shiftgate/internal/geofence"
	dErrors "shiftgate/pkg/errors"
)

// Schema is the DDL for the shift records table. Applied by the operator or
// test setup.
const Schema = `
CREATE TABLE IF NOT EXISTS shift_records (
	employee_id         TEXT NOT NULL,
	record_date         DATE NOT NULL,
	clock_in            TIMESTAMPTZ,
	clock_in_location   JSONB,
	location_verified   BOOLEAN NOT NULL DEFAULT FALSE,
	break_start         TIMESTAMPTZ,
	break_end           TIMESTAMPTZ,
	total_break_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
	clock_out           TIMESTAMPTZ,
	clock_out_location  JSONB,
	total_hours         DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (employee_id, record_date)
);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindByEmployeeAndDate(ctx context.Context, employeeID string, day models.Day) (*models.ShiftRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT employee_id, record_date, clock_in, clock_in_location, location_verified,
		       break_start, break_end, total_break_minutes,
		       clock_out, clock_out_location, total_hours
		FROM shift_records
		WHERE employee_id = $1 AND record_date = $2`,
		employeeID, string(day),
	)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find shift record: %w", err)
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, rec *models.ShiftRecord) error {
	clockInLoc, err := marshalSample(rec.ClockInLocation)
	if err != nil {
		return err
	}
	clockOutLoc, err := marshalSample(rec.ClockOutLocation)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO shift_records (
			employee_id, record_date, clock_in, clock_in_location, location_verified,
			break_start, break_end, total_break_minutes,
			clock_out, clock_out_location, total_hours
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (employee_id, record_date) DO UPDATE SET
			clock_in            = EXCLUDED.clock_in,
			clock_in_location   = EXCLUDED.clock_in_location,
			location_verified   = EXCLUDED.location_verified,
			break_start         = EXCLUDED.break_start,
			break_end           = EXCLUDED.break_end,
			total_break_minutes = EXCLUDED.total_break_minutes,
			clock_out           = EXCLUDED.clock_out,
			clock_out_location  = EXCLUDED.clock_out_location,
			total_hours         = EXCLUDED.total_hours`,
		rec.EmployeeID, string(rec.RecordDate), rec.ClockIn, clockInLoc, rec.LocationVerifiedAtClockIn,
		rec.BreakStart, rec.BreakEnd, rec.TotalBreakMinutes,
		rec.ClockOut, clockOutLoc, rec.TotalHours,
	)
	if err != nil {
		return fmt.Errorf("upsert shift record: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, employeeID string, day models.Day, upd models.ShiftUpdate) (*models.ShiftRecord, error) {
	sets := make([]string, 0, 6)
	args := []any{employeeID, string(day)}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.BreakStart != nil {
		add("break_start", *upd.BreakStart)
	}
	if upd.ClearBreakEnd {
		sets = append(sets, "break_end = NULL")
	} else if upd.BreakEnd != nil {
		add("break_end", *upd.BreakEnd)
	}
	if upd.TotalBreakMinutes != nil {
		add("total_break_minutes", *upd.TotalBreakMinutes)
	}
	if upd.ClockOut != nil {
		add("clock_out", *upd.ClockOut)
	}
	if upd.ClockOutLocation != nil {
		loc, err := marshalSample(upd.ClockOutLocation)
		if err != nil {
			return nil, err
		}
		add("clock_out_location", loc)
	}
	if upd.TotalHours != nil {
		add("total_hours", *upd.TotalHours)
	}
	if len(sets) == 0 {
		return s.FindByEmployeeAndDate(ctx, employeeID, day)
	}

	query := fmt.Sprintf(`
		UPDATE shift_records SET %s
		WHERE employee_id = $1 AND record_date = $2
		RETURNING employee_id, record_date, clock_in, clock_in_location, location_verified,
		          break_start, break_end, total_break_minutes,
		          clock_out, clock_out_location, total_hours`,
		strings.Join(sets, ", "),
	)

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "shift record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update shift record: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ShiftRecord, error) {
	var (
		rec         models.ShiftRecord
		recordDate  time.Time
		clockInLoc  []byte
		clockOutLoc []byte
	)
	err := row.Scan(
		&rec.EmployeeID, &recordDate, &rec.ClockIn, &clockInLoc, &rec.LocationVerifiedAtClockIn,
		&rec.BreakStart, &rec.BreakEnd, &rec.TotalBreakMinutes,
		&rec.ClockOut, &clockOutLoc, &rec.TotalHours,
	)
	if err != nil {
		return nil, err
	}
	rec.RecordDate = models.Day(recordDate.Format("2006-01-02"))
	if rec.ClockInLocation, err = unmarshalSample(clockInLoc); err != nil {
		return nil, err
	}
	if rec.ClockOutLocation, err = unmarshalSample(clockOutLoc); err != nil {
		return nil, err
	}
	return &rec, nil
}

func marshalSample(s *geofence.Sample) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal location sample: %w", err)
	}
	return b, nil
}

func unmarshalSample(b []byte) (*geofence.Sample, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var s geofence.Sample
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal location sample: %w", err)
	}
	return &s, nil
}
