package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

func TestWeeklyGenerationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)
	env.addStudent(2, 8)
	env.addStudent(3, 8)
	env.seedFixed(t, 1, mondaySlot)
	env.seedFixed(t, 2, mondaySlot)
	env.seedFixed(t, 3, saturdaySlot)

	week := env.generation.NextWeekStart()
	assert.True(t, week.Equal(day(2026, 3, 9)))

	first, err := env.generation.WeeklyAutoGeneration(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 0, first.Failed)

	second, err := env.generation.WeeklyAutoGeneration(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Skipped)

	reserved, err := env.bookingsS.CountReserved(ctx, mondaySlot, week)
	require.NoError(t, err)
	assert.Equal(t, 2, reserved)

	// субботние слоты не генерируются
	saturday, err := env.bookingsS.ListByStudent(ctx, 3, week, env.clock.AddDays(week, 6))
	require.NoError(t, err)
	assert.Empty(t, saturday)
}

func TestWeeklyGenerationRespectsCancellationsAndClosures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addStudent(1, 8)
	env.addStudent(2, 8)
	env.addStudent(3, 8)
	env.seedFixed(t, 1, mondaySlot)
	env.seedFixed(t, 2, wednesdaySlot)
	env.seedFixed(t, 3, wednesdaySlot)
	week := day(2026, 3, 9)

	cancelled := ordinaryOn(1, mondaySlot, week)
	cancelled.MarkCancelled(model.CancelTemporary, at(2026, 3, 4, 9, 0))
	env.seed(t, cancelled)

	reserved := env.seed(t, ordinaryOn(2, wednesdaySlot, day(2026, 3, 11)))

	// закрытие записано без пересчёта: генерация сама переводит записи в "закрыто"
	require.NoError(t, memClosures{env.db}.Create(ctx, &model.Closure{Date: day(2026, 3, 11), Kind: model.ClosureFullDay}))

	summary, err := env.generation.WeeklyAutoGeneration(ctx, week)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)  // ученик 1 отменил дату
	assert.Equal(t, 1, summary.Upgraded) // запись ученика 2 закрыта
	assert.Equal(t, 1, summary.Closed)   // ученику 3 создана запись "закрыто"
	assert.Equal(t, 0, summary.Created)

	assert.True(t, env.stored(cancelled.ID).IsTemporarilyCancelled())
	assert.Equal(t, model.BookingStateClosed, env.stored(reserved.ID).State)

	b, err := env.bookingsS.GetForCell(ctx, 3, wednesdaySlot, day(2026, 3, 11))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.ClosedByStudio)
	assert.True(t, b.IsOrdinary)
}

func TestWeeklyGenerationCapacity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, at(2026, 3, 5, 10, 0))
	env.addSlot(5, time.Monday, 19, 0, 1)
	env.addStudent(1, 8)
	env.addStudent(2, 8)
	env.seedFixed(t, 1, 5)
	env.seedFixed(t, 2, 5)

	inactive := env.addStudent(3, 8)
	env.seedFixed(t, 3, 5)
	inactive.IsActive = false

	summary, err := env.generation.WeeklyAutoGeneration(ctx, day(2026, 3, 9))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.NoCapacity)
}

func TestWeeklyGenerationSkipsElapsedSessions(t *testing.T) {
	ctx := context.Background()
	// среда 12:00: понедельничные занятия прошли, вечернее в среду ещё впереди
	env := newTestEnv(t, at(2026, 3, 4, 12, 0))
	env.addStudent(1, 8)
	env.addStudent(2, 8)
	env.seedFixed(t, 1, mondaySlot)
	env.seedFixed(t, 2, morningSlot)
	env.seedFixed(t, 1, wednesdaySlot)

	summary, err := env.generation.WeeklyAutoGeneration(ctx, day(2026, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Elapsed)

	b, err := env.bookingsS.GetForCell(ctx, 1, mondaySlot, day(2026, 3, 2))
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = env.bookingsS.GetForCell(ctx, 1, wednesdaySlot, day(2026, 3, 4))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, model.BookingStateReserved, b.State)
}
