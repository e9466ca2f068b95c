package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/cycle"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"go.uber.org/zap"
)

// CycleSummary - текущий цикл для панели ученика
type CycleSummary struct {
	cycle.Stats
	Remaining   int `json:"remaining"`
	WeeklyUsed  int `json:"weekly_used"`
	WeeklyQuota int `json:"weekly_quota"`
}

// ReportService строит отчёты по циклам абонемента
type ReportService struct {
	students StudentStore
	history  *historyLoader
	engine   *cycle.Engine
	clock    *clock.Clock
	logger   *zap.Logger
}

func NewReportService(
	students StudentStore,
	bookings BookingStore,
	fixed FixedSlotStore,
	engine *cycle.Engine,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		students: students,
		history:  &historyLoader{bookings: bookings, fixed: fixed, clock: engine.Clock()},
		engine:   engine,
		clock:    engine.Clock(),
		logger:   logger,
	}
}

func (s *ReportService) student(ctx context.Context, actor model.Actor, studentID int64) (*model.Student, error) {
	if !actor.CanActFor(studentID) {
		return nil, ErrForbidden
	}
	st, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

// CycleReport возвращает статистику всех циклов ученика по порядку
func (s *ReportService) CycleReport(ctx context.Context, actor model.Actor, studentID int64) ([]cycle.Stats, error) {
	st, err := s.student(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	h, err := s.history.load(ctx, st, time.Time{}, s.clock.AddDays(today, cycle.AnchorLookaheadDays))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	report := s.engine.Report(h, today)
	s.logger.Debug("Cycle report built",
		zap.Int64("student_id", studentID),
		zap.Int("cycles", len(report)),
	)
	return report, nil
}

// CurrentCycle возвращает сводку по циклу, содержащему сегодняшний день, или nil
func (s *ReportService) CurrentCycle(ctx context.Context, actor model.Actor, studentID int64) (*CycleSummary, error) {
	st, err := s.student(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	h, err := s.history.around(ctx, st, today)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	c := s.engine.At(h, today)
	if c == nil {
		return nil, nil
	}

	return &CycleSummary{
		Stats:       s.engine.Stats(h, c),
		Remaining:   c.Remaining(),
		WeeklyUsed:  s.engine.WeeklyOrdinary(h, today),
		WeeklyQuota: st.WeeklyQuota(),
	}, nil
}
