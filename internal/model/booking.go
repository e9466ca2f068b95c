package model

import "time"

type BookingState string

const (
	BookingStateReserved  BookingState = "reserved"  // Место занято
	BookingStateCancelled BookingState = "cancelled" // Отменено учеником
	BookingStateCompleted BookingState = "completed" // Отработка/разовое занятие прошло
	BookingStateClosed    BookingState = "closed"    // Закрыто студией
)

func (s BookingState) Valid() bool {
	switch s {
	case BookingStateReserved, BookingStateCancelled, BookingStateCompleted, BookingStateClosed:
		return true
	}
	return false
}

type BookingKind string

const (
	BookingKindOrdinary BookingKind = "ordinary" // Постоянное место в расписании
	BookingKindRecovery BookingKind = "recovery" // Отработка пропущенного занятия
	BookingKindDropIn   BookingKind = "drop_in"  // Разовое платное занятие вне абонемента
)

func (k BookingKind) Valid() bool {
	switch k {
	case BookingKindOrdinary, BookingKindRecovery, BookingKindDropIn:
		return true
	}
	return false
}

// CancelMode различает временную (только эта дата) и постоянную отмену
type CancelMode string

const (
	CancelTemporary CancelMode = "temporary"
	CancelPermanent CancelMode = "permanent"
)

func (m CancelMode) Valid() bool {
	return m == CancelTemporary || m == CancelPermanent
}

// Booking - отношение одного ученика к одной ячейке (слот + дата).
// На ячейку не больше одной записи: её изменяют, а не дублируют.
type Booking struct {
	ID                    int64        `json:"id"`
	StudentID             int64        `json:"student_id"`
	SlotID                int64        `json:"slot_id"`
	TurnDate              time.Time    `json:"turn_date"`
	State                 BookingState `json:"state"`
	Kind                  BookingKind  `json:"kind"`
	IsOrdinary            bool         `json:"is_ordinary"`
	TemporaryCancellation bool         `json:"temporary_cancellation"`
	PermanentCancellation bool         `json:"permanent_cancellation"`
	ClosedByStudio        bool         `json:"closed_by_studio"`
	CancelledAt           *time.Time   `json:"cancelled_at"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`

	// Время начала слота (из JOIN с time_slots, не хранится в bookings)
	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
}

// IsSelfCancelled - отмена учеником, а не закрытие студией
func (b *Booking) IsSelfCancelled() bool {
	return b.State == BookingStateCancelled && !b.ClosedByStudio
}

// IsTemporarilyCancelled - ученик отменил только эту дату
func (b *Booking) IsTemporarilyCancelled() bool {
	return b.IsSelfCancelled() && b.TemporaryCancellation
}

// IsClosed - ячейка закрыта студией
func (b *Booking) IsClosed() bool {
	return b.ClosedByStudio || b.State == BookingStateClosed
}

// AnchorsCycle - запись может быть якорем цикла абонемента
func (b *Booking) AnchorsCycle() bool {
	return b.IsOrdinary && !b.PermanentCancellation
}

// OccupiesFixedSlot - запись занимает постоянное место (временная отмена место не освобождает)
func (b *Booking) OccupiesFixedSlot() bool {
	return b.IsOrdinary && !b.PermanentCancellation && !b.ClosedByStudio
}

// MarkClosed переводит запись в "закрыто студией". Флаги отмены сбрасываются:
// закрытие студией не считается отменой ученика.
func (b *Booking) MarkClosed(at time.Time) {
	b.State = BookingStateClosed
	b.ClosedByStudio = true
	b.TemporaryCancellation = false
	b.PermanentCancellation = false
	b.CancelledAt = &at
}

// MarkCancelled фиксирует отмену учеником
func (b *Booking) MarkCancelled(mode CancelMode, at time.Time) {
	b.State = BookingStateCancelled
	b.ClosedByStudio = false
	b.TemporaryCancellation = mode == CancelTemporary
	b.PermanentCancellation = mode == CancelPermanent
	b.CancelledAt = &at
}

// Reactivate возвращает временно отменённую запись в обычное бронирование
func (b *Booking) Reactivate() {
	b.State = BookingStateReserved
	b.Kind = BookingKindOrdinary
	b.IsOrdinary = true
	b.TemporaryCancellation = false
	b.PermanentCancellation = false
	b.ClosedByStudio = false
	b.CancelledAt = nil
}
