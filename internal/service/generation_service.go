package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/reconcile"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"go.uber.org/zap"
)

// GenerationSummary - итог недельной генерации
type GenerationSummary struct {
	WeekStart  time.Time `json:"week_start"`
	Created    int       `json:"created"`     // новые обычные записи
	Closed     int       `json:"closed"`      // новые записи "закрыто студией"
	Upgraded   int       `json:"upgraded"`    // существующие записи переведены в "закрыто"
	Skipped    int       `json:"skipped"`     // запись уже есть или ученик отменил дату
	NoCapacity int       `json:"no_capacity"` // нет мест
	Elapsed    int       `json:"elapsed"`     // занятие уже началось, запись не создаётся
	Failed     int       `json:"failed"`
}

// GenerationService создаёт записи постоянных мест на неделю вперёд
type GenerationService struct {
	tx        TxRunner
	bookings  BookingStore
	slots     SlotStore
	fixed     *FixedSlotService
	closures  *ClosureService
	publisher events.Publisher
	clock     *clock.Clock
	logger    *zap.Logger
}

func NewGenerationService(
	tx TxRunner,
	bookings BookingStore,
	slots SlotStore,
	fixed *FixedSlotService,
	closures *ClosureService,
	publisher events.Publisher,
	clk *clock.Clock,
	logger *zap.Logger,
) *GenerationService {
	return &GenerationService{
		tx:        tx,
		bookings:  bookings,
		slots:     slots,
		fixed:     fixed,
		closures:  closures,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// WeeklyAutoGeneration создаёт записи на пн-пт недели, начинающейся в weekStart.
// Повторный запуск за ту же неделю ничего не меняет. Уже начавшиеся занятия
// пропускаются. Ошибка по одной ячейке логируется и не прерывает генерацию.
func (s *GenerationService) WeeklyAutoGeneration(ctx context.Context, weekStart time.Time) (*GenerationSummary, error) {
	monday := s.clock.WeekStart(s.clock.Day(weekStart))
	summary := &GenerationSummary{WeekStart: monday}

	slots, err := s.slots.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}

	s.logger.Info("Starting weekly generation",
		zap.Time("week_start", monday),
		zap.Int("slots", len(slots)),
	)

	for _, slot := range slots {
		if slot.Weekday < time.Monday || slot.Weekday > time.Friday {
			continue
		}
		date := s.clock.AddDays(monday, int(slot.Weekday-time.Monday))

		studentIDs, err := s.fixed.ListActiveStudentsForSlot(ctx, slot.ID)
		if err != nil {
			summary.Failed++
			s.logger.Error("Failed to list fixed slot students",
				zap.Int64("slot_id", slot.ID),
				zap.Error(err),
			)
			continue
		}
		if len(studentIDs) == 0 {
			continue
		}
		if s.clock.HasElapsed(date, slot.StartHour, slot.StartMinute) {
			summary.Elapsed += len(studentIDs)
			continue
		}

		_, closed, err := s.closures.IsClosed(ctx, date, slot.StartHour, slot.StartMinute)
		if err != nil {
			summary.Failed++
			s.logger.Error("Failed to check closures",
				zap.Int64("slot_id", slot.ID),
				zap.Time("date", date),
				zap.Error(err),
			)
			continue
		}

		for _, studentID := range studentIDs {
			if err := s.generateCell(ctx, slot, studentID, date, closed, summary); err != nil {
				summary.Failed++
				s.logger.Warn("Failed to generate booking",
					zap.Int64("slot_id", slot.ID),
					zap.Int64("student_id", studentID),
					zap.Time("date", date),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("Weekly generation completed",
		zap.Time("week_start", monday),
		zap.Int("created", summary.Created),
		zap.Int("closed", summary.Closed),
		zap.Int("upgraded", summary.Upgraded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("no_capacity", summary.NoCapacity),
		zap.Int("elapsed", summary.Elapsed),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

// generateCell применяет решение для одной ячейки в своей транзакции
func (s *GenerationService) generateCell(ctx context.Context, slot *model.TimeSlot, studentID int64, date time.Time, closed bool, summary *GenerationSummary) error {
	var ev *events.Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.bookings.GetForCell(ctx, studentID, slot.ID, date)
		if err != nil {
			return fmt.Errorf("get booking for cell: %w", err)
		}

		now := s.clock.Now()
		d := reconcile.Decide(existing, closed, reconcile.IntentGenerate)
		switch d.Action {
		case reconcile.ActionNone:
			summary.Skipped++
			return nil

		case reconcile.ActionMarkClosed:
			typ, err := applyDecision(ctx, s.bookings, d, existing, "", now)
			if err != nil {
				return err
			}
			summary.Upgraded++
			e := events.ForBooking(typ, existing, now)
			ev = &e
			return nil

		case reconcile.ActionCreateClosed:
			b := newOrdinary(studentID, slot, date)
			b.MarkClosed(now)
			if err := s.create(ctx, b); err != nil {
				return err
			}
			summary.Closed++
			e := events.ForBooking(events.BookingClosed, b, now)
			ev = &e
			return nil

		case reconcile.ActionCreateReserved:
			reserved, err := s.bookings.CountReserved(ctx, slot.ID, date)
			if err != nil {
				return fmt.Errorf("count reserved: %w", err)
			}
			if slot.Availability(reserved).Available <= 0 {
				summary.NoCapacity++
				s.logger.Warn("No capacity for fixed slot",
					zap.Int64("slot_id", slot.ID),
					zap.Int64("student_id", studentID),
					zap.Time("date", date),
				)
				return nil
			}
			b := newOrdinary(studentID, slot, date)
			if err := s.create(ctx, b); err != nil {
				return err
			}
			summary.Created++
			e := events.ForBooking(events.BookingCreated, b, now)
			ev = &e
			return nil
		}

		return fmt.Errorf("unexpected action %s", d.Action)
	})
	if errors.Is(err, errCellTaken) {
		summary.Skipped++
		return nil
	}
	if err != nil {
		return err
	}

	if ev != nil {
		publish(ctx, s.publisher, s.logger, *ev)
	}
	return nil
}

var errCellTaken = errors.New("cell taken concurrently")

func (s *GenerationService) create(ctx context.Context, b *model.Booking) error {
	err := s.bookings.Create(ctx, b)
	if errors.Is(err, repository.ErrDuplicateCell) {
		return errCellTaken
	}
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func newOrdinary(studentID int64, slot *model.TimeSlot, date time.Time) *model.Booking {
	return &model.Booking{
		StudentID:   studentID,
		SlotID:      slot.ID,
		TurnDate:    date,
		State:       model.BookingStateReserved,
		Kind:        model.BookingKindOrdinary,
		IsOrdinary:  true,
		StartHour:   slot.StartHour,
		StartMinute: slot.StartMinute,
	}
}

// NextWeekStart - понедельник следующей недели относительно сегодняшнего дня
func (s *GenerationService) NextWeekStart() time.Time {
	return s.clock.AddDays(s.clock.WeekStart(s.clock.Today()), 7)
}
