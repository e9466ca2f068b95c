package clock

import (
	"time"
)

// ElapsedTolerance сдвигает "сейчас" вперёд при проверке прошедшего занятия,
// чтобы граница не прыгала между соседними вызовами.
const ElapsedTolerance = 60 * time.Second

// Clock даёт гражданское время студии. Все сравнения дат и времени
// (закрытия, дедлайны, прошедшие занятия) идут через него.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New создаёт часы студии для указанной зоны
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// Fixed создаёт часы, у которых "сейчас" всегда равно t (для тестов)
func Fixed(loc *time.Location, t time.Time) *Clock {
	c := New(loc)
	c.now = func() time.Time { return t }
	return c
}

// Set переставляет зафиксированное "сейчас"
func (c *Clock) Set(t time.Time) {
	c.now = func() time.Time { return t }
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today возвращает полночь текущего дня студии
func (c *Clock) Today() time.Time {
	return c.Day(c.Now())
}

// Day приводит t к полуночи того же календарного дня в зоне студии.
// Берутся поля года/месяца/дня как есть: DATE из базы приходит полуночью UTC.
func (c *Clock) Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// At возвращает момент начала занятия в день day
func (c *Clock) At(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, c.loc)
}

// HasElapsed сообщает, началось ли уже занятие day hour:minute
func (c *Clock) HasElapsed(day time.Time, hour, minute int) bool {
	return !c.Now().Add(ElapsedTolerance).Before(c.At(day, hour, minute))
}

// Until возвращает время до начала занятия (отрицательное, если уже началось)
func (c *Clock) Until(day time.Time, hour, minute int) time.Duration {
	return c.At(day, hour, minute).Sub(c.Now())
}

func (c *Clock) AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, c.loc)
}

// DaysBetween считает календарные дни от a до b (b-a), без учёта перехода на летнее время
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// SameDay сравнивает только календарные поля
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// WeekStart возвращает понедельник недели, в которую попадает day
func (c *Clock) WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return c.AddDays(day, -offset)
}
