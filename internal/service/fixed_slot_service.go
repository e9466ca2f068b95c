package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"go.uber.org/zap"
)

// FixedSlotService ведёт постоянные места учеников.
// На пару (ученик, слот) одна строка: повторная активация сохраняет историю.
type FixedSlotService struct {
	store  FixedSlotStore
	clock  *clock.Clock
	logger *zap.Logger
}

func NewFixedSlotService(store FixedSlotStore, clk *clock.Clock, logger *zap.Logger) *FixedSlotService {
	return &FixedSlotService{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// Activate закрепляет слот за учеником
func (s *FixedSlotService) Activate(ctx context.Context, studentID, slotID int64) error {
	fs, err := s.store.Get(ctx, studentID, slotID)
	if err != nil {
		return fmt.Errorf("get fixed slot: %w", err)
	}

	now := s.clock.Now()
	switch {
	case fs == nil:
		fs = &model.FixedSlot{
			StudentID:        studentID,
			SlotID:           slotID,
			IsActive:         true,
			ActivatedAt:      now,
			ActivationReason: model.FixedSlotReasonFirstBooking,
		}
		if err := s.store.Create(ctx, fs); err != nil {
			return fmt.Errorf("create fixed slot: %w", err)
		}
	case fs.IsActive:
		return nil
	default:
		fs.IsActive = true
		fs.ActivatedAt = now
		fs.ActivationReason = model.FixedSlotReasonRebooked
		fs.Reactivations++
		if err := s.store.Update(ctx, fs); err != nil {
			return fmt.Errorf("reactivate fixed slot: %w", err)
		}
	}

	s.logger.Info("Fixed slot activated",
		zap.Int64("student_id", studentID),
		zap.Int64("slot_id", slotID),
		zap.Int("reactivations", fs.Reactivations),
	)
	return nil
}

// Deactivate снимает постоянное место (постоянная отмена обычной записи)
func (s *FixedSlotService) Deactivate(ctx context.Context, studentID, slotID int64, reason string) error {
	fs, err := s.store.Get(ctx, studentID, slotID)
	if err != nil {
		return fmt.Errorf("get fixed slot: %w", err)
	}
	if fs == nil || !fs.IsActive {
		return nil
	}

	now := s.clock.Now()
	fs.IsActive = false
	fs.DeactivatedAt = &now
	fs.DeactivationReason = reason
	if err := s.store.Update(ctx, fs); err != nil {
		return fmt.Errorf("deactivate fixed slot: %w", err)
	}

	s.logger.Info("Fixed slot deactivated",
		zap.Int64("student_id", studentID),
		zap.Int64("slot_id", slotID),
		zap.String("reason", reason),
	)
	return nil
}

// ListActiveStudentsForSlot возвращает активных учеников с постоянным местом в слоте
func (s *FixedSlotService) ListActiveStudentsForSlot(ctx context.Context, slotID int64) ([]int64, error) {
	ids, err := s.store.ListActiveStudentsForSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("list fixed slot students: %w", err)
	}
	return ids, nil
}
