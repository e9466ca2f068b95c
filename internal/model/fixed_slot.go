package model

import "time"

// FixedSlot - постоянное еженедельное место ученика в слоте.
// Одна строка на пару (ученик, слот); повторная активация сохраняет историю.
type FixedSlot struct {
	ID                 int64      `json:"id"`
	StudentID          int64      `json:"student_id"`
	SlotID             int64      `json:"slot_id"`
	IsActive           bool       `json:"is_active"`
	ActivatedAt        time.Time  `json:"activated_at"`
	ActivationReason   string     `json:"activation_reason"`
	DeactivatedAt      *time.Time `json:"deactivated_at"`
	DeactivationReason string     `json:"deactivation_reason"`
	Reactivations      int        `json:"reactivations"`
	CreatedAt          time.Time  `json:"created_at"`

	// День недели слота (из JOIN с time_slots)
	Weekday time.Weekday `json:"weekday"`
}

const (
	FixedSlotReasonFirstBooking = "first ordinary booking"
	FixedSlotReasonRebooked     = "booked again"
	FixedSlotReasonPermanent    = "permanent cancellation"
)
