package journal

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftgate/internal/attendance/models"
)

func TestWorkerPersistsEmittedEvents(t *testing.T) {
	logger := slog.Default()
	store := NewMemoryStore()
	sink := NewSink(16, logger)
	worker := NewWorker(store, sink, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	sink.Emit(Event{EmployeeID: "emp-1", Kind: models.TransitionClockIn, At: time.Now()})
	sink.Emit(Event{EmployeeID: "emp-1", Kind: models.TransitionClockOut, At: time.Now()})

	require.Eventually(t, func() bool {
		events, err := store.ListByEmployee(ctx, "emp-1", 0)
		return err == nil && len(events) == 2
	}, 2*time.Second, 5*time.Millisecond)

	events, err := store.ListByEmployee(ctx, "emp-1", 0)
	require.NoError(t, err)
	assert.Equal(t, models.TransitionClockIn, events[0].Kind)
	assert.NotEqual(t, events[0].ID, events[1].ID, "emit assigns fresh ids")
}

func TestSinkDropsOnOverflowWithoutBlocking(t *testing.T) {
	sink := NewSink(1, slog.Default())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			sink.Emit(Event{EmployeeID: "emp-1", Kind: models.TransitionClockIn})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full buffer")
	}
}

func TestMemoryStoreLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Event{EmployeeID: "emp-1", Kind: models.TransitionClockIn}))
	}

	events, err := store.ListByEmployee(ctx, "emp-1", 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
