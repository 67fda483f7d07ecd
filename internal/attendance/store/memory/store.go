// Package memory is the in-process ShiftRecordStore. The identity key is
// (employee id, record date); upserting the same key can never produce a
// second record.
package memory

import (
	"context"
	"sync"

	"shiftgate/internal/attendance/models"
	dErrors "shiftgate/pkg/errors"
)

type recordKey struct {
	employeeID string
	day        models.Day
}

type Store struct {
	mu      sync.RWMutex
	records map[recordKey]*models.ShiftRecord
}

func New() *Store {
	return &Store{records: make(map[recordKey]*models.ShiftRecord)}
}

func (s *Store) FindByEmployeeAndDate(_ context.Context, employeeID string, day models.Day) (*models.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[recordKey{employeeID, day}].Clone(), nil
}

func (s *Store) Upsert(_ context.Context, rec *models.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{rec.EmployeeID, rec.RecordDate}] = rec.Clone()
	return nil
}

func (s *Store) Update(_ context.Context, employeeID string, day models.Day, upd models.ShiftUpdate) (*models.ShiftRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey{employeeID, day}]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "shift record not found")
	}
	upd.Apply(rec)
	return rec.Clone(), nil
}

// Len reports the number of stored records; test helper for the
// at-most-one-record invariant.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
