package service

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/cycle"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/notifier"
	"go.uber.org/zap"
)

const (
	// bookingCutoff - запись отработки/разового не позже чем за час до начала (кроме админа)
	bookingCutoff = time.Hour
	// cancelCutoff - отмена учеником не позже чем за два часа до начала
	cancelCutoff = 2 * time.Hour

	userDateLayout = "02.01.2006"
)

// historyLoader загружает историю ученика для движка циклов одним запросом
type historyLoader struct {
	bookings BookingStore
	fixed    FixedSlotStore
	clock    *clock.Clock
}

// around загружает историю до ref+AnchorLookaheadDays с самой первой записи:
// расширение назад должно видеть всю серию, иначе старт цикла зависит от окна
func (l *historyLoader) around(ctx context.Context, st *model.Student, ref time.Time) (*cycle.History, error) {
	return l.load(ctx, st, time.Time{}, l.clock.AddDays(ref, cycle.AnchorLookaheadDays))
}

func (l *historyLoader) load(ctx context.Context, st *model.Student, from, to time.Time) (*cycle.History, error) {
	bookings, err := l.bookings.ListByStudent(ctx, st.ID, from, to)
	if err != nil {
		return nil, err
	}

	weekdays, err := l.fixed.ActiveWeekdays(ctx, st.ID)
	if err != nil {
		return nil, err
	}

	return cycle.NewHistory(bookings, weekdays, st.PlanQuota), nil
}

// publish отправляет события; ошибки брокера только логируются
func publish(ctx context.Context, p events.Publisher, logger *zap.Logger, evs ...events.Event) {
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			logger.Warn("Failed to publish event",
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

// deliver отправляет сообщение ученику. Ошибка доставки не прерывает операцию.
func deliver(ctx context.Context, sender notifier.Sender, logger *zap.Logger, st *model.Student, msg notifier.Message) bool {
	err := sender.Send(ctx, st, msg)
	switch {
	case err == nil:
		return true
	case errors.Is(err, notifier.ErrNoRecipient):
		logger.Debug("Student has no contact for notification",
			zap.Int64("student_id", st.ID),
			zap.String("template", string(msg.Template)),
		)
	default:
		logger.Warn("Failed to deliver notification",
			zap.Int64("student_id", st.ID),
			zap.String("template", string(msg.Template)),
			zap.Error(err),
		)
	}
	return false
}

func studentName(st *model.Student) string {
	if st.FirstName != "" {
		return st.FirstName
	}
	return st.LastName
}
