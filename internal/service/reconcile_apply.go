package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/reconcile"
)

// applyDecision выполняет решение по существующей записи ячейки и
// возвращает тип события ("" если ничего не изменилось).
// Создание записей выполняет генератор: ему нужен слот и проверка мест.
func applyDecision(ctx context.Context, bookings BookingStore, d reconcile.Decision, b *model.Booking, mode model.CancelMode, now time.Time) (events.Type, error) {
	switch d.Action {
	case reconcile.ActionNone:
		return "", nil
	case reconcile.ActionMarkClosed:
		b.MarkClosed(now)
		if err := bookings.Update(ctx, b); err != nil {
			return "", fmt.Errorf("close booking: %w", err)
		}
		return events.BookingClosed, nil
	case reconcile.ActionMarkCancelled:
		b.MarkCancelled(mode, now)
		if err := bookings.Update(ctx, b); err != nil {
			return "", fmt.Errorf("cancel booking: %w", err)
		}
		return events.BookingCancelled, nil
	case reconcile.ActionDelete:
		if err := bookings.Delete(ctx, b.ID); err != nil {
			return "", fmt.Errorf("delete booking: %w", err)
		}
		return events.BookingDeleted, nil
	}
	return "", fmt.Errorf("action %s needs a slot", d.Action)
}
