package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/reconcile"
	"go.uber.org/zap"
)

// CancelResult - что стало с записью
type CancelResult struct {
	Booking *model.Booking
	Action  reconcile.Action
}

// CancellationService отменяет записи. Отработки и разовые удаляются,
// обычные записи только меняют состояние: закрытие студией важнее отмены.
type CancellationService struct {
	tx        TxRunner
	bookings  BookingStore
	slots     SlotStore
	fixed     *FixedSlotService
	closures  *ClosureService
	publisher events.Publisher
	clock     *clock.Clock
	logger    *zap.Logger
}

func NewCancellationService(
	tx TxRunner,
	bookings BookingStore,
	slots SlotStore,
	fixed *FixedSlotService,
	closures *ClosureService,
	publisher events.Publisher,
	clk *clock.Clock,
	logger *zap.Logger,
) *CancellationService {
	return &CancellationService{
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

func cancelIntent(mode model.CancelMode) reconcile.Intent {
	if mode == model.CancelPermanent {
		return reconcile.IntentCancelPermanent
	}
	return reconcile.IntentCancelTemporary
}

// Cancel отменяет запись по ID. Ученик может отменить только свою запись
// и не позже чем за два часа до начала.
func (s *CancellationService) Cancel(ctx context.Context, actor model.Actor, bookingID int64, mode model.CancelMode) (*CancelResult, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	var (
		result *CancelResult
		evType events.Type
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b == nil {
			return ErrBookingNotFound
		}
		if !actor.CanActFor(b.StudentID) {
			return ErrForbidden
		}
		if !actor.IsAdmin && s.clock.Until(b.TurnDate, b.StartHour, b.StartMinute) < cancelCutoff {
			return ErrCancelCutoff
		}

		_, closed, err := s.closures.IsClosed(ctx, b.TurnDate, b.StartHour, b.StartMinute)
		if err != nil {
			return err
		}

		d := reconcile.Decide(b, closed, cancelIntent(mode))
		if d.Action == reconcile.ActionNone {
			return ErrNotCancellable
		}

		evType, err = applyDecision(ctx, s.bookings, d, b, mode, s.clock.Now())
		if err != nil {
			return err
		}

		if d.Action == reconcile.ActionMarkCancelled && mode == model.CancelPermanent {
			if err := s.fixed.Deactivate(ctx, b.StudentID, b.SlotID, model.FixedSlotReasonPermanent); err != nil {
				return err
			}
		}

		result = &CancelResult{Booking: b, Action: d.Action}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.ForBooking(evType, result.Booking, s.clock.Now()))

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", result.Booking.ID),
		zap.Int64("student_id", result.Booking.StudentID),
		zap.String("mode", string(mode)),
		zap.String("action", result.Action.String()),
		zap.Bool("by_admin", actor.IsAdmin),
	)

	return result, nil
}

// CancelByDate отменяет запись ученика на слот в дату. Только для администратора
// и только пока занятие не началось.
func (s *CancellationService) CancelByDate(ctx context.Context, actor model.Actor, slotID, studentID int64, date time.Time, mode model.CancelMode) (*CancelResult, error) {
	if !actor.IsAdmin {
		return nil, ErrAdminOnly
	}
	if date.IsZero() {
		return nil, ErrInvalidDate
	}
	date = s.clock.Day(date)

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if s.clock.HasElapsed(date, slot.StartHour, slot.StartMinute) {
		return nil, ErrTurnElapsed
	}

	b, err := s.bookings.GetForCell(ctx, studentID, slotID, date)
	if err != nil {
		return nil, fmt.Errorf("get booking for cell: %w", err)
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}

	return s.Cancel(ctx, actor, b.ID, mode)
}
