package model

import "time"

type NotificationKind string

const (
	NotificationQuotaAlmostUsed NotificationKind = "quota_almost_used" // осталось одно занятие
	NotificationQuotaExhausted  NotificationKind = "quota_exhausted"   // новый цикл не оплачен
	NotificationUnpaidReminder  NotificationKind = "unpaid_reminder"   // еженедельное напоминание
)

// NoWeek - week_start для отметок без привязки к неделе
var NoWeek = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

// NotificationRecord - отметка об отправленном сообщении для дедупликации
type NotificationRecord struct {
	ID         int64            `json:"id"`
	StudentID  int64            `json:"student_id"`
	Kind       NotificationKind `json:"kind"`
	CycleStart time.Time        `json:"cycle_start"`
	CycleEnd   time.Time        `json:"cycle_end"`
	WeekStart  time.Time        `json:"week_start"`
	SentAt     time.Time        `json:"sent_at"`
}
