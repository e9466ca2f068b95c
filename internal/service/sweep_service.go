package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"go.uber.org/zap"
)

// SweepService завершает прошедшие отработки и разовые занятия
type SweepService struct {
	bookings  BookingStore
	publisher events.Publisher
	clock     *clock.Clock
	logger    *zap.Logger
}

func NewSweepService(bookings BookingStore, publisher events.Publisher, clk *clock.Clock, logger *zap.Logger) *SweepService {
	return &SweepService{
		bookings:  bookings,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Run переводит начавшиеся активные отработки/разовые в completed.
// Трогает только записи в состоянии reserved, поэтому повторный запуск безопасен.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	candidates, err := s.bookings.ListReservedOneOffs(ctx, s.clock.Today())
	if err != nil {
		return 0, fmt.Errorf("list reserved one-offs: %w", err)
	}

	completed := 0
	for _, b := range candidates {
		if !s.clock.HasElapsed(b.TurnDate, b.StartHour, b.StartMinute) {
			continue
		}

		ok, err := s.bookings.Complete(ctx, b.ID)
		if err != nil {
			s.logger.Warn("Failed to complete booking",
				zap.Int64("booking_id", b.ID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		completed++
		publish(ctx, s.publisher, s.logger, events.ForBooking(events.BookingCompleted, b, s.clock.Now()))
	}

	if completed > 0 {
		s.logger.Info("Elapsed bookings completed",
			zap.Int("completed", completed),
			zap.Int("candidates", len(candidates)),
		)
	}

	return completed, nil
}
