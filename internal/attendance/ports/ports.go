// Package ports defines the interfaces the attendance state machine depends
// on. Interfaces live here when more than one package consumes them.
package ports

import (
	"context"

	"shiftgate/internal/attendance/models"
	"shiftgate/internal/geofence"
)

// ShiftRecordStore is the source of truth for shift state. Identity is
// (employee id, record date); Upsert enforces at-most-one-record per key so
// duplicate clock-ins cannot mint competing rows.
type ShiftRecordStore interface {
	// FindByEmployeeAndDate returns nil, nil when no record exists.
	FindByEmployeeAndDate(ctx context.Context, employeeID string, day models.Day) (*models.ShiftRecord, error)

	// Upsert creates or replaces the record for its identity key.
	Upsert(ctx context.Context, rec *models.ShiftRecord) error

	// Update applies a partial update by identity key and returns the
	// updated record.
	Update(ctx context.Context, employeeID string, day models.Day, upd models.ShiftUpdate) (*models.ShiftRecord, error)
}

// ConfigProvider supplies the business geofence configuration.
type ConfigProvider interface {
	Load(ctx context.Context) (geofence.Config, error)
}

// StatusSource answers "where does this employee stand right now". Backed by
// the live monitor when one is active, or a one-shot provider read otherwise.
type StatusSource interface {
	// Current returns a usable verification status, blocking for a fresh
	// position check (bounded by the request timeout) when no live monitor
	// covers the employee. Gates clock-in.
	Current(ctx context.Context, employeeID string) (geofence.Status, *geofence.Sample)

	// Cached returns the latest known status without blocking. Used to
	// attach a best-effort location to transitions that do not re-check.
	Cached(employeeID string) (geofence.Status, *geofence.Sample)
}
