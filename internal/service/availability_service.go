package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"go.uber.org/zap"
)

// SlotAvailability - места в слоте на конкретную дату
type SlotAvailability struct {
	SlotID int64     `json:"slot_id"`
	Date   time.Time `json:"date"`
	model.Availability
	FixedOccupied  int               `json:"fixed_occupied"`  // постоянные места, включая временно отменённые
	FixedAvailable int               `json:"fixed_available"` // можно ли закрепить ещё одно постоянное место
	ClosedKind     model.ClosureKind `json:"closed_kind,omitempty"`
}

// AvailabilityService считает места и управляет блокировкой мест администратором
type AvailabilityService struct {
	slots     SlotStore
	bookings  BookingStore
	closures  *ClosureService
	publisher events.Publisher
	clock     *clock.Clock
	logger    *zap.Logger
}

func NewAvailabilityService(
	slots SlotStore,
	bookings BookingStore,
	closures *ClosureService,
	publisher events.Publisher,
	clk *clock.Clock,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		slots:     slots,
		bookings:  bookings,
		closures:  closures,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// GetAvailability считает свободные места слота на дату
func (s *AvailabilityService) GetAvailability(ctx context.Context, slotID int64, date time.Time) (*SlotAvailability, error) {
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

	reserved, err := s.bookings.CountReserved(ctx, slot.ID, date)
	if err != nil {
		return nil, fmt.Errorf("count reserved: %w", err)
	}
	fixedOccupied, err := s.bookings.CountFixedOccupied(ctx, slot.ID, date)
	if err != nil {
		return nil, fmt.Errorf("count fixed occupied: %w", err)
	}
	closedKind, _, err := s.closures.IsClosed(ctx, date, slot.StartHour, slot.StartMinute)
	if err != nil {
		return nil, err
	}

	fixed := model.ComputeAvailability(slot.Capacity, slot.Blocked, fixedOccupied)
	return &SlotAvailability{
		SlotID:         slot.ID,
		Date:           date,
		Availability:   slot.Availability(reserved),
		FixedOccupied:  fixedOccupied,
		FixedAvailable: fixed.Available,
		ClosedKind:     closedKind,
	}, nil
}

// SetCapacityBlock задаёт число мест, закрытых администратором.
// Хранится как есть; при расчёте ограничивается свободными местами.
func (s *AvailabilityService) SetCapacityBlock(ctx context.Context, actor model.Actor, slotID int64, count int) error {
	if !actor.IsAdmin {
		return ErrAdminOnly
	}
	if count < 0 {
		return ErrInvalidBlock
	}

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return ErrSlotNotFound
	}
	if count > slot.Capacity {
		return ErrInvalidBlock
	}

	if err := s.slots.UpdateBlocked(ctx, slotID, count); err != nil {
		return fmt.Errorf("update slot block: %w", err)
	}

	s.logger.Info("Slot capacity block changed",
		zap.Int64("slot_id", slotID),
		zap.Int("blocked", count),
		zap.Int("previous", slot.Blocked),
	)
	publish(ctx, s.publisher, s.logger, events.Event{
		Type:       events.SlotBlockChanged,
		SlotID:     slotID,
		Blocked:    count,
		OccurredAt: s.clock.Now(),
	})
	return nil
}
