package cycle

import (
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/model"
)

// Stats - статистика одного цикла для отчёта и панели ученика
type Stats struct {
	Cycle
	EffectiveEnd time.Time `json:"effective_end"`
	Attended     int       `json:"attended"`  // прошедшие обычные занятия
	Recovered    int       `json:"recovered"` // прошедшие отработки
	Cancelled    int       `json:"cancelled"` // отмены учеником
	Closed       int       `json:"closed"`    // закрытия студией
	DropIns      int       `json:"drop_ins"`
	Credits      Credits   `json:"credits"`
	ExceedsPlan  bool      `json:"exceeds_plan"` // только для отчёта, запись не блокирует
}

// Stats считает статистику по записям в [start, effective end]
func (e *Engine) Stats(h *History, c *Cycle) Stats {
	st := Stats{
		Cycle:        *c,
		EffectiveEnd: c.EffectiveEnd(),
		Credits:      e.RecoveryBalance(h, c),
		ExceedsPlan:  c.Consumed > c.Quota,
	}

	for _, b := range h.Bookings {
		if !c.Contains(e.clock.Day(b.TurnDate)) {
			continue
		}

		switch b.Kind {
		case model.BookingKindDropIn:
			if b.State == model.BookingStateCompleted ||
				(b.State == model.BookingStateReserved && e.clock.HasElapsed(b.TurnDate, b.StartHour, b.StartMinute)) {
				st.DropIns++
			}
		case model.BookingKindRecovery:
			if e.Consumes(b) {
				st.Recovered++
			}
		case model.BookingKindOrdinary:
			switch {
			case b.IsClosed():
				st.Closed++
			case b.IsSelfCancelled():
				st.Cancelled++
			case e.Consumes(b):
				st.Attended++
			}
		}
	}

	return st
}

// Report строит статистику всех циклов ученика от первой обычной записи до until.
// Циклы без единой записи (перерывы) пропускаются.
func (e *Engine) Report(h *History, until time.Time) []Stats {
	days := e.anchorDays(h)
	if len(days) == 0 {
		return nil
	}
	until = e.clock.Day(until)

	var report []Stats
	ref := days[0]
	for pass := 0; pass < maxPasses && clock.DaysBetween(ref, until) >= 0; pass++ {
		c := e.At(h, ref)
		if c == nil {
			next, ok := nextDayAfter(days, ref)
			if !ok {
				break
			}
			ref = next
			continue
		}

		if e.hasBookings(h, c) {
			report = append(report, e.Stats(h, c))
		}

		end := c.EffectiveEnd()
		nextPattern, okPattern := NextPatternDate(end, h.FixedWeekdays)
		nextBooking, okBooking := nextDayAfter(days, end)
		switch {
		case okPattern && okBooking && clock.DaysBetween(nextPattern, nextBooking) > backExtendDays:
			// долгий перерыв: следующая серия начнётся с реальной записи
			ref = nextBooking
		case okPattern:
			ref = nextPattern
		case okBooking:
			ref = nextBooking
		default:
			return report
		}
	}

	return report
}

func (e *Engine) hasBookings(h *History, c *Cycle) bool {
	for _, b := range h.Bookings {
		if c.Contains(e.clock.Day(b.TurnDate)) {
			return true
		}
	}
	return false
}

func nextDayAfter(days []time.Time, after time.Time) (time.Time, bool) {
	for _, d := range days {
		if clock.DaysBetween(after, d) > 0 {
			return d, true
		}
	}
	return time.Time{}, false
}
