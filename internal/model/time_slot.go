package model

import (
	"fmt"
	"time"
)

// TimeSlot - шаблон занятия: день недели, время, уровень, вместимость
type TimeSlot struct {
	ID              int64        `json:"id"`
	Weekday         time.Weekday `json:"weekday"`          // 1 = Monday ... 5 = Friday
	StartHour       int          `json:"start_hour"`       // 0-23
	StartMinute     int          `json:"start_minute"`     // 0-59
	DurationMinutes int          `json:"duration_minutes"` // длительность в минутах
	Level           string       `json:"level"`
	Capacity        int          `json:"capacity"`
	Blocked         int          `json:"blocked"` // места, закрытые администратором
	IsActive        bool         `json:"is_active"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Label возвращает "HH:MM" для сообщений и логов
func (s *TimeSlot) Label() string {
	return fmt.Sprintf("%02d:%02d", s.StartHour, s.StartMinute)
}

// Availability - расчёт мест в конкретную дату
type Availability struct {
	Total     int `json:"total"`
	Reserved  int `json:"reserved"`
	Blocked   int `json:"blocked"` // блокировка после ограничения свободными местами
	Available int `json:"available"`
}

// ComputeAvailability считает свободные места: блокировка не может превышать
// фактически свободные места, доступно не бывает меньше нуля.
func ComputeAvailability(total, blocked, occupied int) Availability {
	free := total - occupied
	if free < 0 {
		free = 0
	}
	if blocked < 0 {
		blocked = 0
	}
	if blocked > free {
		blocked = free
	}

	available := total - occupied - blocked
	if available < 0 {
		available = 0
	}

	return Availability{
		Total:     total,
		Reserved:  occupied,
		Blocked:   blocked,
		Available: available,
	}
}

// Availability считает места по числу активных записей (state = reserved)
func (s *TimeSlot) Availability(reserved int) Availability {
	return ComputeAvailability(s.Capacity, s.Blocked, reserved)
}
