package model

import "time"

// Student - ученик студии с абонементом на PlanQuota занятий за цикл
type Student struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	TelegramChatID int64     `json:"telegram_chat_id"`
	Level          string    `json:"level"`
	PlanQuota      int       `json:"plan_quota"` // занятий в цикле
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasContact - есть хотя бы один канал для уведомлений
func (s *Student) HasContact() bool {
	return s.Phone != "" || s.Email != "" || s.TelegramChatID != 0
}

// WeeklyQuota - сколько обычных занятий можно в неделю: четверть абонемента, минимум одно
func (s *Student) WeeklyQuota() int {
	q := s.PlanQuota / 4
	if q < 1 {
		q = 1
	}
	return q
}

// Actor - кто выполняет операцию
type Actor struct {
	UserID  int64
	IsAdmin bool
}

// CanActFor проверяет, может ли actor менять записи ученика
func (a Actor) CanActFor(studentID int64) bool {
	return a.IsAdmin || a.UserID == studentID
}
