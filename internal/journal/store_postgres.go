package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"shiftgate/internal/attendance/models"
)

// PostgresStore appends journal events to an append-only table over
// database/sql with the pq driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the journal table. Applied by the operator or test
// setup; the store never migrates on its own.
const Schema = `
CREATE TABLE IF NOT EXISTS attendance_journal (
	id          UUID PRIMARY KEY,
	employee_id TEXT NOT NULL,
	kind        TEXT NOT NULL,
	at          TIMESTAMPTZ NOT NULL,
	location    JSONB,
	verified    BOOLEAN NOT NULL DEFAULT FALSE,
	device      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS attendance_journal_employee_at
	ON attendance_journal (employee_id, at DESC);
`

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	var location []byte
	if e.Location != nil {
		var err error
		location, err = json.Marshal(e.Location)
		if err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_journal (id, employee_id, kind, at, location, verified, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.EmployeeID, string(e.Kind), e.At, location, e.Verified, e.Device,
	)
	if err != nil {
		return fmt.Errorf("insert journal event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, kind, at, location, verified, device
		FROM attendance_journal
		WHERE employee_id = $1
		ORDER BY at DESC
		LIMIT $2`,
		employeeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			kind     string
			location []byte
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &kind, &e.At, &location, &e.Verified, &e.Device); err != nil {
			return nil, fmt.Errorf("scan journal event: %w", err)
		}
		e.Kind = models.TransitionKind(kind)
		if len(location) > 0 {
			if err := json.Unmarshal(location, &e.Location); err != nil {
				return nil, fmt.Errorf("unmarshal location: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
