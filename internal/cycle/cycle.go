// Package cycle вычисляет циклы абонемента ученика по истории записей.
//
// Цикл не хранится: он каждый раз выводится из записей. Старт цикла всегда
// привязан к дате реальной обычной записи, окно - 30 календарных дней,
// цикл закрывается досрочно в день занятия, исчерпавшего абонемент.
// Поиск цикла ограничен по числу проходов: на испорченной истории он
// возвращает nil вместо зацикливания.
package cycle

import (
	"sort"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/model"
)

const (
	// WindowDays - длина окна цикла (start .. start+29)
	WindowDays = 30
	// AnchorLookbackDays - насколько старым может быть якорь относительно опорной даты
	AnchorLookbackDays = 240
	// AnchorLookaheadDays - какую историю загружать после опорной даты
	AnchorLookaheadDays = 120

	backExtendDays = 29
	maxPasses      = 60
)

// Cycle - скользящее окно абонемента
type Cycle struct {
	Start     time.Time `json:"start"`
	WindowEnd time.Time `json:"window_end"`
	RealEnd   time.Time `json:"real_end"` // день занятия, исчерпавшего абонемент, иначе WindowEnd
	Quota     int       `json:"quota"`
	Consumed  int       `json:"consumed"`
	Completed bool      `json:"completed"`
}

// EffectiveEnd - фактический конец цикла
func (c *Cycle) EffectiveEnd() time.Time {
	if c.Completed {
		return c.RealEnd
	}
	return c.WindowEnd
}

// Contains проверяет start <= day <= effective end (по календарным дням)
func (c *Cycle) Contains(day time.Time) bool {
	return clock.DaysBetween(c.Start, day) >= 0 && clock.DaysBetween(day, c.EffectiveEnd()) >= 0
}

// InWindow проверяет start <= day <= window end
func (c *Cycle) InWindow(day time.Time) bool {
	return clock.DaysBetween(c.Start, day) >= 0 && clock.DaysBetween(day, c.WindowEnd) >= 0
}

// Remaining - сколько занятий осталось до исчерпания абонемента
func (c *Cycle) Remaining() int {
	if c.Consumed >= c.Quota {
		return 0
	}
	return c.Quota - c.Consumed
}

// History - заранее загруженная история ученика, отсортированная по дате и времени
type History struct {
	Bookings      []*model.Booking
	FixedWeekdays []time.Weekday // дни недели активных постоянных мест
	Quota         int
}

// NewHistory копирует и сортирует записи
func NewHistory(bookings []*model.Booking, fixedWeekdays []time.Weekday, quota int) *History {
	sorted := make([]*model.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bookingBefore(sorted[i], sorted[j])
	})
	return &History{
		Bookings:      sorted,
		FixedWeekdays: fixedWeekdays,
		Quota:         quota,
	}
}

func bookingBefore(a, b *model.Booking) bool {
	if d := clock.DaysBetween(a.TurnDate, b.TurnDate); d != 0 {
		return d > 0
	}
	if a.StartHour != b.StartHour {
		return a.StartHour < b.StartHour
	}
	return a.StartMinute < b.StartMinute
}

// Engine - чистые функции поверх истории; "сейчас" берётся из часов студии
type Engine struct {
	clock *clock.Clock
}

func NewEngine(c *clock.Clock) *Engine {
	return &Engine{clock: c}
}

func (e *Engine) Clock() *clock.Clock {
	return e.clock
}

// anchorDays возвращает дни обычных записей без постоянной отмены, по возрастанию
func (e *Engine) anchorDays(h *History) []time.Time {
	var days []time.Time
	for _, b := range h.Bookings {
		if !b.AnchorsCycle() {
			continue
		}
		d := e.clock.Day(b.TurnDate)
		if n := len(days); n > 0 && clock.SameDay(days[n-1], d) {
			continue
		}
		days = append(days, d)
	}
	return days
}

// Build строит цикл, начинающийся в start
func (e *Engine) Build(h *History, start time.Time) *Cycle {
	start = e.clock.Day(start)
	windowEnd := e.clock.AddDays(start, WindowDays-1)

	var consumed []time.Time
	for _, b := range h.Bookings {
		day := e.clock.Day(b.TurnDate)
		if clock.DaysBetween(start, day) < 0 || clock.DaysBetween(day, windowEnd) < 0 {
			continue
		}
		if e.Consumes(b) {
			consumed = append(consumed, day)
		}
	}

	c := &Cycle{
		Start:     start,
		WindowEnd: windowEnd,
		RealEnd:   windowEnd,
		Quota:     h.Quota,
		Consumed:  len(consumed),
	}

	if h.Quota > 0 && len(consumed) >= h.Quota {
		c.Completed = true
		c.RealEnd = consumed[h.Quota-1]

		// занятия после досрочного конца относятся уже к следующему циклу
		n := 0
		for _, d := range consumed {
			if clock.DaysBetween(d, c.RealEnd) >= 0 {
				n++
			}
		}
		c.Consumed = n
	}

	return c
}

// Chain возвращает последовательность циклов от начала серии до цикла,
// содержащего ref. ok=false, если такой цикл определить нельзя.
func (e *Engine) Chain(h *History, ref time.Time) ([]*Cycle, bool) {
	if h.Quota <= 0 {
		return nil, false
	}
	ref = e.clock.Day(ref)
	days := e.anchorDays(h)

	// 1. Якорь: последняя обычная запись не позже ref и не старше AnchorLookbackDays.
	// Будущие якоря не используются.
	anchorIdx := -1
	for i, d := range days {
		diff := clock.DaysBetween(d, ref)
		if diff < 0 {
			break
		}
		if diff <= AnchorLookbackDays {
			anchorIdx = i
		}
	}
	if anchorIdx < 0 {
		return nil, false
	}

	// 2. Расширение назад: пока в предыдущих 29 днях есть обычная запись
	start := days[anchorIdx]
	extended := false
	for pass := 0; pass < maxPasses; pass++ {
		earlier, found := earliestWithin(days, start, backExtendDays)
		if !found {
			extended = true
			break
		}
		start = earlier
	}
	if !extended {
		return nil, false
	}

	// 3. Проход вперёд по циклам до содержащего ref
	var chain []*Cycle
	cur := e.Build(h, start)
	for pass := 0; pass < maxPasses; pass++ {
		chain = append(chain, cur)
		if cur.Contains(ref) {
			return chain, true
		}
		if clock.DaysBetween(cur.Start, ref) < 0 {
			// ref попал в промежуток между циклами
			return chain, false
		}
		next, ok := NextPatternDate(cur.EffectiveEnd(), h.FixedWeekdays)
		if !ok {
			return chain, false
		}
		cur = e.Build(h, e.clock.Day(next))
	}

	return chain, false
}

// At возвращает цикл, содержащий ref, или nil
func (e *Engine) At(h *History, ref time.Time) *Cycle {
	chain, ok := e.Chain(h, ref)
	if !ok {
		return nil
	}
	return chain[len(chain)-1]
}

// Previous возвращает цикл, закончившийся непосредственно перед cur
func (e *Engine) Previous(h *History, cur *Cycle) *Cycle {
	chain, ok := e.Chain(h, cur.Start)
	if ok && len(chain) >= 2 {
		return chain[len(chain)-2]
	}

	// cur начинает новую серию: берём цикл последней записи до неё
	var last time.Time
	found := false
	for _, d := range e.anchorDays(h) {
		if clock.DaysBetween(d, cur.Start) <= 0 {
			break
		}
		last = d
		found = true
	}
	if !found {
		return nil
	}
	return e.At(h, last)
}

// earliestWithin ищет самый ранний день из days в [from-span, from)
func earliestWithin(days []time.Time, from time.Time, span int) (time.Time, bool) {
	for _, d := range days {
		diff := clock.DaysBetween(d, from)
		if diff > 0 && diff <= span {
			return d, true
		}
	}
	return time.Time{}, false
}

// NextPatternDate возвращает первую дату после after, выпадающую на один
// из дней недели постоянных мест ученика
func NextPatternDate(after time.Time, weekdays []time.Weekday) (time.Time, bool) {
	if len(weekdays) == 0 {
		return time.Time{}, false
	}
	set := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		set[wd] = true
	}
	for i := 1; i <= 7; i++ {
		d := time.Date(after.Year(), after.Month(), after.Day()+i, 0, 0, 0, 0, after.Location())
		if set[d.Weekday()] {
			return d, true
		}
	}
	return time.Time{}, false
}
