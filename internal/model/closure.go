package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ClosureKind string

const (
	ClosureFullDay   ClosureKind = "full_day"
	ClosureMorning   ClosureKind = "morning"
	ClosureAfternoon ClosureKind = "afternoon"
	ClosureTime      ClosureKind = "time" // конкретный слот
)

func (k ClosureKind) Valid() bool {
	switch k {
	case ClosureFullDay, ClosureMorning, ClosureAfternoon, ClosureTime:
		return true
	}
	return false
}

// Границы полудней, включительно: утро 07:00-13:59, день 14:00-22:00
const (
	morningFrom   = 7 * 60
	morningTo     = 13*60 + 59
	afternoonFrom = 14 * 60
	afternoonTo   = 22 * 60
)

var (
	ErrClosureKind     = errors.New("unknown closure kind")
	ErrClosureTime     = errors.New("closure time is required for a time closure")
	ErrClosureNoTime   = errors.New("closure time is only allowed for a time closure")
	ErrClosureDate     = errors.New("closure date cannot be zero")
	ErrClosureTimeSpan = errors.New("closure time is out of range")
)

// Closure - отсутствие преподавателя/закрытие студии на дату
type Closure struct {
	ID        int64       `json:"id"`
	GroupID   uuid.UUID   `json:"group_id"` // общий для всех дат одного закрытия
	Date      time.Time   `json:"date"`
	Kind      ClosureKind `json:"kind"`
	Hour      *int        `json:"hour"` // только для ClosureTime
	Minute    *int        `json:"minute"`
	Reason    string      `json:"reason"`
	CreatedAt time.Time   `json:"created_at"`
}

// Validate проверяет заполненность закрытия
func (c *Closure) Validate() error {
	if c.Date.IsZero() {
		return ErrClosureDate
	}
	if !c.Kind.Valid() {
		return ErrClosureKind
	}
	hasTime := c.Hour != nil && c.Minute != nil
	if c.Kind == ClosureTime && !hasTime {
		return ErrClosureTime
	}
	if c.Kind != ClosureTime && (c.Hour != nil || c.Minute != nil) {
		return ErrClosureNoTime
	}
	if hasTime && (*c.Hour < 0 || *c.Hour > 23 || *c.Minute < 0 || *c.Minute > 59) {
		return ErrClosureTimeSpan
	}
	c.Reason = strings.TrimSpace(c.Reason)
	return nil
}

// MatchClosure возвращает вид первого закрытия, попадающего на время hour:minute.
// Порядок проверки: весь день, точное время, затем полудни.
func MatchClosure(closures []*Closure, hour, minute int) (ClosureKind, bool) {
	for _, c := range closures {
		if c.Kind == ClosureFullDay {
			return ClosureFullDay, true
		}
	}
	for _, c := range closures {
		if c.Kind == ClosureTime && c.Hour != nil && c.Minute != nil &&
			*c.Hour == hour && *c.Minute == minute {
			return ClosureTime, true
		}
	}

	m := hour*60 + minute
	for _, c := range closures {
		switch c.Kind {
		case ClosureMorning:
			if m >= morningFrom && m <= morningTo {
				return ClosureMorning, true
			}
		case ClosureAfternoon:
			if m >= afternoonFrom && m <= afternoonTo {
				return ClosureAfternoon, true
			}
		}
	}

	return "", false
}
