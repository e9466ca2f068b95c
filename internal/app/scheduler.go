package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/config"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweep      *service.SweepService
	notify     *service.NotificationService
	generation *service.GenerationService
	clock      *clock.Clock
	cfg        *config.Config
	logger     *zap.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewScheduler(
	sweep *service.SweepService,
	notify *service.NotificationService,
	generation *service.GenerationService,
	clk *clock.Clock,
	cfg *config.Config,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		sweep:      sweep,
		notify:     notify,
		generation: generation,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start запускает фоновые задачи. Каждая задача выполняется сразу и затем по таймеру.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.cfg.SweepInterval),
		zap.Duration("notify_interval", s.cfg.NotifyInterval),
		zap.Duration("generation_interval", s.cfg.GenerationInterval),
		zap.Stringer("generation_weekday", time.Weekday(s.cfg.GenerationWeekday)),
	)

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)

	s.group.Go(func() error { return s.loop(ctx, "sweep", s.cfg.SweepInterval, s.runSweep) })
	s.group.Go(func() error { return s.loop(ctx, "notify", s.cfg.NotifyInterval, s.runNotify) })
	s.group.Go(func() error { return s.loop(ctx, "generation", s.cfg.GenerationInterval, s.runGeneration) })
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping background scheduler")
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.group.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, task func(context.Context)) error {
	task(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			task(ctx)
		case <-ctx.Done():
			s.logger.Info("Background task stopped", zap.String("task", name))
			return nil
		}
	}
}

// runSweep закрывает прошедшие отработки и разовые занятия
func (s *Scheduler) runSweep(ctx context.Context) {
	if _, err := s.sweep.Run(ctx); err != nil {
		s.logger.Error("Failed to sweep elapsed bookings", zap.Error(err))
	}
}

// runNotify проверяет абонементы, а по понедельникам ещё и шлёт напоминания об оплате
func (s *Scheduler) runNotify(ctx context.Context) {
	if _, err := s.notify.RunAll(ctx); err != nil {
		s.logger.Error("Failed to run quota notifications", zap.Error(err))
	}

	if s.clock.Today().Weekday() != time.Monday {
		return
	}
	if _, err := s.notify.WeeklyReminder(ctx); err != nil {
		s.logger.Error("Failed to run weekly reminders", zap.Error(err))
	}
}

// runGeneration создаёт записи постоянных мест. Текущая неделя догоняется на
// каждом запуске (если день генерации был пропущен), следующая - начиная с дня генерации.
// Повторные запуски ничего не меняют.
func (s *Scheduler) runGeneration(ctx context.Context) {
	for _, week := range s.generationWeeks() {
		if _, err := s.generation.WeeklyAutoGeneration(ctx, week); err != nil {
			s.logger.Error("Failed to generate weekly bookings",
				zap.Time("week_start", week),
				zap.Error(err),
			)
		}
	}
}

// generationWeeks возвращает понедельники недель, которые нужно сгенерировать сейчас
func (s *Scheduler) generationWeeks() []time.Time {
	today := s.clock.Today()
	weeks := []time.Time{s.clock.WeekStart(today)}
	if generationDue(today.Weekday(), time.Weekday(s.cfg.GenerationWeekday)) {
		weeks = append(weeks, s.generation.NextWeekStart())
	}
	return weeks
}

// generationDue - наступил ли день генерации в текущей неделе (неделя с понедельника)
func generationDue(today, from time.Weekday) bool {
	return mondayIndex(today) >= mondayIndex(from)
}

func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
