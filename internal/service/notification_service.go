package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/cycle"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/notifier"
	"go.uber.org/zap"
)

// paymentLeadDays - оплата, внесённая за неделю до старта цикла, засчитывается циклу
const paymentLeadDays = 7

// NotifySummary - итог прохода уведомлений
type NotifySummary struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// NotificationService отправляет уведомления об окончании абонемента.
// Каждое уведомление отправляется один раз на ключ (ученик, вид, цикл[, неделя]).
type NotificationService struct {
	students StudentStore
	store    NotificationStore
	history  *historyLoader
	engine   *cycle.Engine
	sender   notifier.Sender
	clock    *clock.Clock
	logger   *zap.Logger
}

func NewNotificationService(
	students StudentStore,
	store NotificationStore,
	bookings BookingStore,
	fixed FixedSlotStore,
	engine *cycle.Engine,
	sender notifier.Sender,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		students: students,
		store:    store,
		history:  &historyLoader{bookings: bookings, fixed: fixed, clock: engine.Clock()},
		engine:   engine,
		sender:   sender,
		clock:    engine.Clock(),
		logger:   logger,
	}
}

// RunAll проверяет всех активных учеников с абонементом
func (s *NotificationService) RunAll(ctx context.Context) (*NotifySummary, error) {
	return s.forEachStudent(ctx, "quota", s.Evaluate)
}

// WeeklyReminder повторяет напоминание о неоплаченном цикле раз в неделю
func (s *NotificationService) WeeklyReminder(ctx context.Context) (*NotifySummary, error) {
	week := s.clock.WeekStart(s.clock.Today())
	return s.forEachStudent(ctx, "weekly_reminder", func(ctx context.Context, st *model.Student) (int, error) {
		h, cur, err := s.currentCycle(ctx, st)
		if err != nil || cur == nil {
			return 0, err
		}

		unpaid, err := s.unpaid(ctx, st, h, cur)
		if err != nil || !unpaid {
			return 0, err
		}

		return s.notifyOnce(ctx, st, model.NotificationUnpaidReminder, cur, week, notifier.TemplateUnpaidReminder)
	})
}

func (s *NotificationService) forEachStudent(ctx context.Context, job string, fn func(context.Context, *model.Student) (int, error)) (*NotifySummary, error) {
	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}

	summary := &NotifySummary{}
	for _, st := range students {
		if st.PlanQuota <= 0 {
			continue
		}
		summary.Checked++

		sent, err := fn(ctx, st)
		if err != nil {
			summary.Failed++
			s.logger.Warn("Failed to evaluate notifications",
				zap.String("job", job),
				zap.Int64("student_id", st.ID),
				zap.Error(err),
			)
			continue
		}
		summary.Sent += sent
	}

	s.logger.Info("Notification pass completed",
		zap.String("job", job),
		zap.Int("checked", summary.Checked),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// Evaluate проверяет текущий цикл ученика: осталось одно занятие или
// прошлый цикл исчерпан, а новый начался и не оплачен
func (s *NotificationService) Evaluate(ctx context.Context, st *model.Student) (int, error) {
	h, cur, err := s.currentCycle(ctx, st)
	if err != nil || cur == nil {
		return 0, err
	}

	total := 0
	if !cur.Completed && cur.Consumed == cur.Quota-1 {
		sent, err := s.notifyOnce(ctx, st, model.NotificationQuotaAlmostUsed, cur, model.NoWeek, notifier.TemplateQuotaAlmostUsed)
		if err != nil {
			return total, err
		}
		total += sent
	}

	unpaid, err := s.unpaid(ctx, st, h, cur)
	if err != nil {
		return total, err
	}
	if unpaid {
		sent, err := s.notifyOnce(ctx, st, model.NotificationQuotaExhausted, cur, model.NoWeek, notifier.TemplateQuotaExhausted)
		if err != nil {
			return total, err
		}
		total += sent
	}

	return total, nil
}

func (s *NotificationService) currentCycle(ctx context.Context, st *model.Student) (*cycle.History, *cycle.Cycle, error) {
	today := s.clock.Today()
	h, err := s.history.around(ctx, st, today)
	if err != nil {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	return h, s.engine.At(h, today), nil
}

// unpaid: предыдущий цикл исчерпан, текущий фактически начался и не оплачен
func (s *NotificationService) unpaid(ctx context.Context, st *model.Student, h *cycle.History, cur *cycle.Cycle) (bool, error) {
	prev := s.engine.Previous(h, cur)
	if prev == nil || !prev.Completed {
		return false, nil
	}
	if !s.started(h, cur) {
		return false, nil
	}

	paid, err := s.store.HasPayment(ctx, st.ID, s.clock.AddDays(cur.Start, -paymentLeadDays), cur.WindowEnd)
	if err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	return !paid, nil
}

// started - занятие, с которого начинается цикл, уже прошло
func (s *NotificationService) started(h *cycle.History, c *cycle.Cycle) bool {
	for _, b := range h.Bookings {
		if !b.AnchorsCycle() || !clock.SameDay(s.clock.Day(b.TurnDate), c.Start) {
			continue
		}
		if s.clock.HasElapsed(b.TurnDate, b.StartHour, b.StartMinute) {
			return true
		}
	}
	return false
}

func (s *NotificationService) notifyOnce(ctx context.Context, st *model.Student, kind model.NotificationKind, c *cycle.Cycle, week time.Time, tpl notifier.Template) (int, error) {
	rec := &model.NotificationRecord{
		StudentID:  st.ID,
		Kind:       kind,
		CycleStart: c.Start,
		CycleEnd:   c.WindowEnd,
		WeekStart:  week,
	}

	exists, err := s.store.Exists(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("check notification: %w", err)
	}
	if exists {
		return 0, nil
	}

	ok := deliver(ctx, s.sender, s.logger, st, notifier.Message{
		Template: tpl,
		Data: notifier.Data{
			Name:       studentName(st),
			CycleStart: c.Start.Format(userDateLayout),
			CycleEnd:   c.WindowEnd.Format(userDateLayout),
		},
	})
	if !ok {
		return 0, nil
	}

	if _, err := s.store.Create(ctx, rec); err != nil {
		return 1, fmt.Errorf("record notification: %w", err)
	}

	s.logger.Info("Notification sent",
		zap.Int64("student_id", st.ID),
		zap.String("kind", string(kind)),
		zap.Time("cycle_start", c.Start),
	)
	return 1, nil
}
