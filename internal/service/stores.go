package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/google/uuid"
)

// TxRunner выполняет fn в одной транзакции (base.TxManager)
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetForCell(ctx context.Context, studentID, slotID int64, date time.Time) (*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64, from, to time.Time) ([]*model.Booking, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error)
	ListReservedOneOffs(ctx context.Context, upTo time.Time) ([]*model.Booking, error)
	CountReserved(ctx context.Context, slotID int64, date time.Time) (int, error)
	CountFixedOccupied(ctx context.Context, slotID int64, date time.Time) (int, error)
	Update(ctx context.Context, b *model.Booking) error
	Complete(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type SlotStore interface {
	GetByID(ctx context.Context, id int64) (*model.TimeSlot, error)
	ListActive(ctx context.Context) ([]*model.TimeSlot, error)
	UpdateBlocked(ctx context.Context, id int64, blocked int) error
}

type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*model.Student, error)
	ListActive(ctx context.Context) ([]*model.Student, error)
}

type FixedSlotStore interface {
	Get(ctx context.Context, studentID, slotID int64) (*model.FixedSlot, error)
	Create(ctx context.Context, fs *model.FixedSlot) error
	Update(ctx context.Context, fs *model.FixedSlot) error
	ListActiveStudentsForSlot(ctx context.Context, slotID int64) ([]int64, error)
	ActiveWeekdays(ctx context.Context, studentID int64) ([]time.Weekday, error)
}

type ClosureStore interface {
	Create(ctx context.Context, c *model.Closure) error
	GetByID(ctx context.Context, id int64) (*model.Closure, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Closure, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*model.Closure, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.Closure, error)
	Delete(ctx context.Context, id int64) error
}

type NotificationStore interface {
	Exists(ctx context.Context, rec *model.NotificationRecord) (bool, error)
	Create(ctx context.Context, rec *model.NotificationRecord) (bool, error)
	HasPayment(ctx context.Context, studentID int64, from, to time.Time) (bool, error)
}
