package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/cycle"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"go.uber.org/zap"
)

// ReactivationAdvisory - пояснение, когда запрос отработки вернул ученику его же занятие
const ReactivationAdvisory = "Вы вернули своё отменённое занятие: отработка не списана"

// BookRequest - запись ученика на слот в дату
type BookRequest struct {
	SlotID    int64
	StudentID int64
	Date      time.Time
	Kind      model.BookingKind
}

// BookResult - созданная или возвращённая запись
type BookResult struct {
	Booking     *model.Booking
	Reactivated bool
	Advisory    string
}

type BookingService struct {
	tx        TxRunner
	bookings  BookingStore
	slots     SlotStore
	students  StudentStore
	fixed     *FixedSlotService
	closures  *ClosureService
	engine    *cycle.Engine
	history   *historyLoader
	publisher events.Publisher
	clock     *clock.Clock
	logger    *zap.Logger
}

func NewBookingService(
	tx TxRunner,
	bookings BookingStore,
	slots SlotStore,
	students StudentStore,
	fixedStore FixedSlotStore,
	fixed *FixedSlotService,
	closures *ClosureService,
	engine *cycle.Engine,
	publisher events.Publisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:        tx,
		bookings:  bookings,
		slots:     slots,
		students:  students,
		fixed:     fixed,
		closures:  closures,
		engine:    engine,
		history:   &historyLoader{bookings: bookings, fixed: fixedStore, clock: engine.Clock()},
		publisher: publisher,
		clock:     engine.Clock(),
		logger:    logger,
	}
}

// Book записывает ученика. Все проверки и запись выполняются в одной транзакции;
// уникальность (ученик, слот, дата) в хранилище страхует от гонок.
func (s *BookingService) Book(ctx context.Context, actor model.Actor, req BookRequest) (*BookResult, error) {
	if !req.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if req.Date.IsZero() {
		return nil, ErrInvalidDate
	}
	if !actor.CanActFor(req.StudentID) {
		return nil, ErrForbidden
	}

	date := s.clock.Day(req.Date)
	var result *BookResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.book(ctx, actor, req, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	b := result.Booking
	evType := events.BookingCreated
	if result.Reactivated {
		evType = events.BookingReactivated
	}
	publish(ctx, s.publisher, s.logger, events.ForBooking(evType, b, s.clock.Now()))

	s.logger.Info("Booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("student_id", b.StudentID),
		zap.Int64("slot_id", b.SlotID),
		zap.Time("date", date),
		zap.String("kind", string(b.Kind)),
		zap.Bool("reactivated", result.Reactivated),
		zap.Bool("by_admin", actor.IsAdmin),
	)

	return result, nil
}

func (s *BookingService) book(ctx context.Context, actor model.Actor, req BookRequest, date time.Time) (*BookResult, error) {
	slot, err := s.slots.GetByID(ctx, req.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || !slot.IsActive {
		return nil, ErrSlotNotFound
	}
	if date.Weekday() != slot.Weekday {
		return nil, ErrWrongWeekday
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil || !student.IsActive {
		return nil, ErrStudentNotFound
	}

	h, err := s.history.around(ctx, student, date)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	cur := s.engine.At(h, date)

	if !actor.IsAdmin && req.Kind != model.BookingKindDropIn && cur == nil {
		return nil, ErrNoActiveCycle
	}
	if !actor.IsAdmin && slot.Level != student.Level {
		return nil, ErrLevelMismatch
	}

	_, closed, err := s.closures.IsClosed(ctx, date, slot.StartHour, slot.StartMinute)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, ErrSlotClosed
	}

	existing, err := s.bookings.GetForCell(ctx, student.ID, slot.ID, date)
	if err != nil {
		return nil, fmt.Errorf("get booking for cell: %w", err)
	}
	if existing != nil {
		switch {
		case existing.State == model.BookingStateReserved:
			return nil, ErrAlreadyBooked
		case existing.IsTemporarilyCancelled() && req.Kind == model.BookingKindRecovery:
			return s.reactivate(ctx, actor, slot, existing)
		case existing.IsTemporarilyCancelled() && req.Kind == model.BookingKindOrdinary:
			return nil, ErrTemporarilyCancelled
		}
		// устаревшая запись (постоянная отмена и т.п.) уступает место новой
		if err := s.bookings.Delete(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("delete stale booking: %w", err)
		}
		s.logger.Debug("Stale booking removed",
			zap.Int64("booking_id", existing.ID),
			zap.String("state", string(existing.State)),
		)
	}

	if err := s.checkCapacity(ctx, slot, date); err != nil {
		return nil, err
	}

	switch req.Kind {
	case model.BookingKindOrdinary:
		if !actor.IsAdmin {
			if cur.Consumed >= cur.Quota {
				return nil, ErrQuotaExhausted
			}
			if s.engine.WeeklyOrdinary(h, date) >= student.WeeklyQuota() {
				return nil, ErrWeeklyQuota
			}
		}
	case model.BookingKindRecovery:
		if err := s.checkRecovery(actor, h, cur, slot, date); err != nil {
			return nil, err
		}
	case model.BookingKindDropIn:
		if !actor.IsAdmin && s.clock.Until(date, slot.StartHour, slot.StartMinute) < bookingCutoff {
			return nil, ErrBookingCutoff
		}
	}

	b := &model.Booking{
		StudentID:   student.ID,
		SlotID:      slot.ID,
		TurnDate:    date,
		State:       model.BookingStateReserved,
		Kind:        req.Kind,
		IsOrdinary:  req.Kind == model.BookingKindOrdinary,
		StartHour:   slot.StartHour,
		StartMinute: slot.StartMinute,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateCell) {
			return nil, ErrAlreadyBooked
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if b.IsOrdinary {
		if err := s.fixed.Activate(ctx, student.ID, slot.ID); err != nil {
			return nil, err
		}
	}

	return &BookResult{Booking: b}, nil
}

// reactivate возвращает временно отменённое занятие как обычное, в той же строке
func (s *BookingService) reactivate(ctx context.Context, actor model.Actor, slot *model.TimeSlot, b *model.Booking) (*BookResult, error) {
	if !actor.IsAdmin && s.clock.Until(b.TurnDate, slot.StartHour, slot.StartMinute) < bookingCutoff {
		return nil, ErrBookingCutoff
	}
	if err := s.checkCapacity(ctx, slot, b.TurnDate); err != nil {
		return nil, err
	}

	b.Reactivate()
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("reactivate booking: %w", err)
	}
	if err := s.fixed.Activate(ctx, b.StudentID, b.SlotID); err != nil {
		return nil, err
	}

	return &BookResult{
		Booking:     b,
		Reactivated: true,
		Advisory:    ReactivationAdvisory,
	}, nil
}

func (s *BookingService) checkCapacity(ctx context.Context, slot *model.TimeSlot, date time.Time) error {
	reserved, err := s.bookings.CountReserved(ctx, slot.ID, date)
	if err != nil {
		return fmt.Errorf("count reserved: %w", err)
	}
	if slot.Availability(reserved).Available <= 0 {
		return ErrNoCapacity
	}
	return nil
}

// checkRecovery проверяет отработку: цикл не исчерпан, дата в окне,
// занятие не началось, до начала не меньше часа (кроме админа), есть баланс
func (s *BookingService) checkRecovery(actor model.Actor, h *cycle.History, cur *cycle.Cycle, slot *model.TimeSlot, date time.Time) error {
	if cur == nil {
		return ErrNoActiveCycle
	}
	if cur.Completed {
		return ErrCycleCompleted
	}
	if !cur.InWindow(date) {
		return ErrOutsideCycle
	}
	if s.clock.HasElapsed(date, slot.StartHour, slot.StartMinute) {
		return ErrTurnElapsed
	}
	if !actor.IsAdmin && s.clock.Until(date, slot.StartHour, slot.StartMinute) < bookingCutoff {
		return ErrBookingCutoff
	}
	if s.engine.RecoveryBalance(h, cur).Balance <= 0 {
		return ErrNoRecoveryCredits
	}
	return nil
}

// ListStudentBookings возвращает записи ученика в [from, to]
func (s *BookingService) ListStudentBookings(ctx context.Context, actor model.Actor, studentID int64, from, to time.Time) ([]*model.Booking, error) {
	if !actor.CanActFor(studentID) {
		return nil, ErrForbidden
	}
	from, to = s.clock.Day(from), s.clock.Day(to)
	if clock.DaysBetween(from, to) < 0 {
		return nil, ErrInvalidRange
	}

	bookings, err := s.bookings.ListByStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}
	return bookings, nil
}
