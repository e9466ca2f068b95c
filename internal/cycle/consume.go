package cycle

import (
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

// Consumes - расходует ли запись занятие абонемента.
// Разовые занятия и закрытия студией не расходуют никогда, отмены тоже.
// Активная запись (обычная или отработка) расходует, только когда занятие уже прошло;
// завершённая отработка расходует всегда.
func (e *Engine) Consumes(b *model.Booking) bool {
	switch b.Kind {
	case model.BookingKindDropIn:
		return false
	case model.BookingKindOrdinary, model.BookingKindRecovery:
	default:
		return false
	}

	if b.ClosedByStudio {
		return false
	}

	switch b.State {
	case model.BookingStateCompleted:
		return true
	case model.BookingStateReserved:
		return e.clock.HasElapsed(b.TurnDate, b.StartHour, b.StartMinute)
	case model.BookingStateCancelled, model.BookingStateClosed:
		return false
	}
	return false
}

// WeeklyOrdinary считает обычные записи в неделе (пн-вс), куда попадает day
func (e *Engine) WeeklyOrdinary(h *History, day time.Time) int {
	monday := e.clock.WeekStart(e.clock.Day(day))
	sunday := e.clock.AddDays(monday, 6)

	n := 0
	for _, b := range h.Bookings {
		if b.Kind != model.BookingKindOrdinary || b.ClosedByStudio {
			continue
		}
		if b.State != model.BookingStateReserved && b.State != model.BookingStateCompleted {
			continue
		}
		d := e.clock.Day(b.TurnDate)
		if d.Before(monday) || d.After(sunday) {
			continue
		}
		n++
	}
	return n
}
