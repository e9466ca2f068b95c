package cycle

import (
	"github.com/Freeeeeet/studio_booking/internal/model"
)

// CreditSource - откуда взялась отработка
type CreditSource string

const (
	CreditFromClosure      CreditSource = "closure"
	CreditFromCancellation CreditSource = "cancellation"
)

type cellKey struct {
	slotID int64
	day    string
}

// Credits - баланс отработок в окне цикла
type Credits struct {
	Cells             int `json:"cells"`
	FromClosures      int `json:"from_closures"`
	FromCancellations int `json:"from_cancellations"`
	Used              int `json:"used"`
	Balance           int `json:"balance"`
}

// RecoveryBalance считает отработки в окне [start, window end].
// Ячейка (дата, слот) даёт не больше одной отработки; закрытие студией
// приоритетнее временной отмены учеником той же ячейки.
// Баланс не бывает отрицательным.
func (e *Engine) RecoveryBalance(h *History, c *Cycle) Credits {
	sources := make(map[cellKey]CreditSource)
	used := 0

	for _, b := range h.Bookings {
		day := e.clock.Day(b.TurnDate)
		if !c.InWindow(day) {
			continue
		}

		if b.Kind == model.BookingKindRecovery &&
			(b.State == model.BookingStateReserved || b.State == model.BookingStateCompleted) {
			used++
			continue
		}

		if !b.IsOrdinary {
			continue
		}
		key := cellKey{slotID: b.SlotID, day: day.Format("2006-01-02")}
		switch {
		case b.IsClosed():
			sources[key] = CreditFromClosure
		case b.IsTemporarilyCancelled():
			if _, ok := sources[key]; !ok {
				sources[key] = CreditFromCancellation
			}
		}
	}

	cr := Credits{Cells: len(sources), Used: used}
	for _, src := range sources {
		switch src {
		case CreditFromClosure:
			cr.FromClosures++
		case CreditFromCancellation:
			cr.FromCancellations++
		}
	}

	cr.Balance = cr.Cells - cr.Used
	if cr.Balance < 0 {
		cr.Balance = 0
	}
	return cr
}
