//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"shiftgate/internal/attendance/models"
	"shiftgate/internal/geofence"
	dErrors "shiftgate/pkg/errors"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("shiftgate"),
		tcpostgres.WithUsername("shiftgate"),
		tcpostgres.WithPassword("shiftgate"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, Schema)
	require.NoError(t, err)

	return New(pool)
}

func TestStoreRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	in := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	sample := &geofence.Sample{
		Coordinate: geofence.Coordinate{Lat: -12.0464, Lng: -77.0428},
		CapturedAt: in,
	}

	t.Run("find missing returns nil", func(t *testing.T) {
		rec, err := store.FindByEmployeeAndDate(ctx, "emp-1", "2025-03-10")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("upsert and read back", func(t *testing.T) {
		err := store.Upsert(ctx, &models.ShiftRecord{
			EmployeeID:                "emp-1",
			RecordDate:                "2025-03-10",
			ClockIn:                   &in,
			ClockInLocation:           sample,
			LocationVerifiedAtClockIn: true,
		})
		require.NoError(t, err)

		rec, err := store.FindByEmployeeAndDate(ctx, "emp-1", "2025-03-10")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, models.StatusWorking, rec.Status())
		assert.True(t, rec.LocationVerifiedAtClockIn)
		require.NotNil(t, rec.ClockInLocation)
		assert.InDelta(t, -12.0464, rec.ClockInLocation.Lat, 1e-9)
	})

	t.Run("concurrent upserts keep one row", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Upsert(ctx, &models.ShiftRecord{
					EmployeeID: "emp-1", RecordDate: "2025-03-10", ClockIn: &in,
				})
			}()
		}
		wg.Wait()

		var count int
		err := store.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM shift_records WHERE employee_id = $1 AND record_date = $2`,
			"emp-1", "2025-03-10").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("partial update with break cycle", func(t *testing.T) {
		breakStart := in.Add(4 * time.Hour)
		rec, err := store.Update(ctx, "emp-1", "2025-03-10", models.ShiftUpdate{
			BreakStart: &breakStart, ClearBreakEnd: true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusOnBreak, rec.Status())

		breakEnd := breakStart.Add(30 * time.Minute)
		minutes := 30.0
		rec, err = store.Update(ctx, "emp-1", "2025-03-10", models.ShiftUpdate{
			BreakEnd: &breakEnd, TotalBreakMinutes: &minutes,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusWorking, rec.Status())
		assert.Equal(t, 30.0, rec.TotalBreakMinutes)
	})

	t.Run("complete the shift", func(t *testing.T) {
		out := in.Add(9 * time.Hour)
		hours := 8.5
		rec, err := store.Update(ctx, "emp-1", "2025-03-10", models.ShiftUpdate{
			ClockOut: &out, TotalHours: &hours, ClockOutLocation: sample,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, rec.Status())
		assert.Equal(t, 8.5, rec.TotalHours)
		require.NotNil(t, rec.ClockOutLocation)
	})

	t.Run("update missing record", func(t *testing.T) {
		now := time.Now()
		_, err := store.Update(ctx, "emp-9", "2025-03-10", models.ShiftUpdate{ClockOut: &now})
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}
