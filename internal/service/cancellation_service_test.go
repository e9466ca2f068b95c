package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/reconcile"
)

func TestCancelCutoffAndAuthorization(t *testing.T) {
	ctx := context.Background()
	// понедельник 16:30, занятие в 18:00
	env := newTestEnv(t, at(2026, 3, 9, 16, 30))
	env.addStudent(1, 8)
	env.addStudent(2, 8)
	b := env.seed(t, ordinaryOn(1, mondaySlot, day(2026, 3, 9)))

	_, err := env.cancellation.Cancel(ctx, studentActor(2), b.ID, model.CancelTemporary)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.cancellation.Cancel(ctx, studentActor(1), b.ID, model.CancelTemporary)
	assert.ErrorIs(t, err, ErrCancelCutoff)

	_, err = env.cancellation.Cancel(ctx, studentActor(1), b.ID, "forever")
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = env.cancellation.Cancel(ctx, studentActor(1), 999, model.CancelTemporary)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	res, err := env.cancellation.Cancel(ctx, admin, b.ID, model.CancelTemporary)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionMarkCancelled, res.Action)

	stored := env.stored(b.ID)
	assert.Equal(t, model.BookingStateCancelled, stored.State)
	assert.True(t, stored.TemporaryCancellation)
	assert.NotNil(t, stored.CancelledAt)

	_, err = env.cancellation.Cancel(ctx, admin, b.ID, model.CancelTemporary)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelPermanentReleasesFixedSlot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)

	created, err := env.booking.Book(ctx, admin, BookRequest{SlotID: mondaySlot, StudentID: 1, Date: day(2026, 3, 9), Kind: model.BookingKindOrdinary})
	require.NoError(t, err)

	_, err = env.cancellation.Cancel(ctx, studentActor(1), created.Booking.ID, model.CancelPermanent)
	require.NoError(t, err)

	stored := env.stored(created.Booking.ID)
	assert.True(t, stored.PermanentCancellation)
	assert.False(t, stored.TemporaryCancellation)

	fs := env.db.fixed[[2]int64{1, mondaySlot}]
	require.NotNil(t, fs)
	assert.False(t, fs.IsActive)
	assert.Equal(t, model.FixedSlotReasonPermanent, fs.DeactivationReason)

	// постоянное место освобождено
	av, err := env.availability.GetAvailability(ctx, mondaySlot, day(2026, 3, 9))
	require.NoError(t, err)
	assert.Equal(t, 0, av.FixedOccupied)

	// повторная запись возвращает место с увеличенным счётчиком
	_, err = env.booking.Book(ctx, admin, BookRequest{SlotID: mondaySlot, StudentID: 1, Date: day(2026, 3, 16), Kind: model.BookingKindOrdinary})
	require.NoError(t, err)

	fs = env.db.fixed[[2]int64{1, mondaySlot}]
	assert.True(t, fs.IsActive)
	assert.Equal(t, 1, fs.Reactivations)
	assert.Equal(t, model.FixedSlotReasonRebooked, fs.ActivationReason)
}

func TestCancelTemporaryThenPermanent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)
	env.seedFixed(t, 1, mondaySlot)
	b := env.seed(t, ordinaryOn(1, mondaySlot, day(2026, 3, 9)))

	_, err := env.cancellation.Cancel(ctx, studentActor(1), b.ID, model.CancelTemporary)
	require.NoError(t, err)
	assert.True(t, env.db.fixed[[2]int64{1, mondaySlot}].IsActive)

	// ученик передумал и отказывается от места с той же даты
	res, err := env.cancellation.Cancel(ctx, studentActor(1), b.ID, model.CancelPermanent)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionMarkCancelled, res.Action)

	stored := env.stored(b.ID)
	assert.Equal(t, model.BookingStateCancelled, stored.State)
	assert.True(t, stored.PermanentCancellation)
	assert.False(t, stored.TemporaryCancellation)

	fs := env.db.fixed[[2]int64{1, mondaySlot}]
	require.NotNil(t, fs)
	assert.False(t, fs.IsActive)
	assert.Equal(t, model.FixedSlotReasonPermanent, fs.DeactivationReason)

	_, err = env.cancellation.Cancel(ctx, studentActor(1), b.ID, model.CancelPermanent)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelOneOffDeletes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)

	rec := env.seed(t, oneOffOn(1, wednesdaySlot, day(2026, 3, 11), model.BookingKindRecovery))
	drop := env.seed(t, oneOffOn(1, mondaySlot, day(2026, 3, 9), model.BookingKindDropIn))

	for _, b := range []*model.Booking{rec, drop} {
		res, err := env.cancellation.Cancel(ctx, studentActor(1), b.ID, model.CancelTemporary)
		require.NoError(t, err)
		assert.Equal(t, reconcile.ActionDelete, res.Action)
		assert.Nil(t, env.stored(b.ID))
	}

	assert.Equal(t, []events.Type{events.BookingDeleted, events.BookingDeleted}, env.events.Types())
}

func TestCancelOnClosedCellMarksClosed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)
	b := env.seed(t, ordinaryOn(1, mondaySlot, day(2026, 3, 9)))

	// закрытие записано в обход пересчёта, как при гонке с отменой
	hour, minute := 18, 0
	require.NoError(t, memClosures{env.db}.Create(ctx, &model.Closure{
		Date:   day(2026, 3, 9),
		Kind:   model.ClosureTime,
		Hour:   &hour,
		Minute: &minute,
	}))

	res, err := env.cancellation.Cancel(ctx, studentActor(1), b.ID, model.CancelTemporary)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionMarkClosed, res.Action)

	stored := env.stored(b.ID)
	assert.Equal(t, model.BookingStateClosed, stored.State)
	assert.True(t, stored.ClosedByStudio)
	assert.False(t, stored.TemporaryCancellation)
}

func TestCancelByDate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)
	b := env.seed(t, ordinaryOn(1, mondaySlot, day(2026, 3, 9)))

	_, err := env.cancellation.CancelByDate(ctx, studentActor(1), mondaySlot, 1, day(2026, 3, 9), model.CancelTemporary)
	assert.ErrorIs(t, err, ErrAdminOnly)

	_, err = env.cancellation.CancelByDate(ctx, admin, mondaySlot, 1, day(2026, 3, 2), model.CancelTemporary)
	assert.ErrorIs(t, err, ErrTurnElapsed)

	_, err = env.cancellation.CancelByDate(ctx, admin, mondaySlot, 1, day(2026, 3, 16), model.CancelTemporary)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	res, err := env.cancellation.CancelByDate(ctx, admin, mondaySlot, 1, day(2026, 3, 9), model.CancelTemporary)
	require.NoError(t, err)
	assert.Equal(t, b.ID, res.Booking.ID)
	assert.True(t, env.stored(b.ID).IsTemporarilyCancelled())
}
