package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
)

func TestSetCapacityBlock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))

	tests := []struct {
		name  string
		actor model.Actor
		slot  int64
		count int
		want  error
	}{
		{"student", studentActor(1), mondaySlot, 1, ErrAdminOnly},
		{"negative", admin, mondaySlot, -1, ErrInvalidBlock},
		{"above capacity", admin, mondaySlot, 6, ErrInvalidBlock},
		{"unknown slot", admin, 99, 1, ErrSlotNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.availability.SetCapacityBlock(ctx, tt.actor, tt.slot, tt.count)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, env.events.Events)

	require.NoError(t, env.availability.SetCapacityBlock(ctx, admin, mondaySlot, 5))
	assert.Equal(t, 5, env.db.slots[mondaySlot].Blocked)

	require.Len(t, env.events.Events, 1)
	assert.Equal(t, events.SlotBlockChanged, env.events.Events[0].Type)
	assert.Equal(t, 5, env.events.Events[0].Blocked)
}

func TestAvailabilityCountsFixedSeats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)
	env.addStudent(2, 8)
	date := day(2026, 3, 9)

	// временная отмена освобождает место на дату, но не постоянное место
	cancelled := ordinaryOn(1, mondaySlot, date)
	cancelled.MarkCancelled(model.CancelTemporary, at(2026, 3, 4, 9, 0))
	env.seed(t, cancelled)
	env.seed(t, oneOffOn(2, mondaySlot, date, model.BookingKindDropIn))

	av, err := env.availability.GetAvailability(ctx, mondaySlot, date)
	require.NoError(t, err)
	assert.Equal(t, 1, av.Reserved)
	assert.Equal(t, 4, av.Available)
	assert.Equal(t, 1, av.FixedOccupied)
	assert.Equal(t, 4, av.FixedAvailable)
	assert.Empty(t, av.ClosedKind)

	_, err = env.availability.GetAvailability(ctx, 99, date)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}
