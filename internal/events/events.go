// Package events публикует события об изменениях записей, закрытий и слотов,
// чтобы кэши и панели сбрасывались явно, а не через общее состояние.
package events

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"go.uber.org/zap"
)

// Type - ключ маршрутизации события
type Type string

const (
	BookingCreated     Type = "booking.created"
	BookingReactivated Type = "booking.reactivated"
	BookingCancelled   Type = "booking.cancelled"
	BookingDeleted     Type = "booking.deleted"
	BookingClosed      Type = "booking.closed"
	BookingCompleted   Type = "booking.completed"
	ClosureCreated     Type = "closure.created"
	ClosureDeleted     Type = "closure.deleted"
	SlotBlockChanged   Type = "slot.block_changed"
)

// dateLayout - формат календарных дат в событиях
const dateLayout = "2006-01-02"

// Event - тело сообщения в обменнике
type Event struct {
	Type       Type      `json:"type"`
	BookingID  int64     `json:"booking_id,omitempty"`
	StudentID  int64     `json:"student_id,omitempty"`
	SlotID     int64     `json:"slot_id,omitempty"`
	Date       string    `json:"date,omitempty"`
	ClosureID  int64     `json:"closure_id,omitempty"`
	GroupID    string    `json:"group_id,omitempty"`
	Blocked    int       `json:"blocked,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ForBooking собирает событие по записи
func ForBooking(t Type, b *model.Booking, at time.Time) Event {
	return Event{
		Type:       t,
		BookingID:  b.ID,
		StudentID:  b.StudentID,
		SlotID:     b.SlotID,
		Date:       b.TurnDate.Format(dateLayout),
		OccurredAt: at,
	}
}

// ForClosure собирает событие по закрытию
func ForClosure(t Type, c *model.Closure, at time.Time) Event {
	return Event{
		Type:       t,
		ClosureID:  c.ID,
		GroupID:    c.GroupID.String(),
		Date:       c.Date.Format(dateLayout),
		OccurredAt: at,
	}
}

// Publisher отправляет событие после коммита изменения
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop только пишет событие в лог, когда брокер не настроен
type Noop struct {
	logger *zap.Logger
}

func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Publish(_ context.Context, ev Event) error {
	n.logger.Debug("Event",
		zap.String("type", string(ev.Type)),
		zap.Int64("booking_id", ev.BookingID),
		zap.Int64("closure_id", ev.ClosureID),
	)
	return nil
}

// Recorder запоминает события; используется в тестах сервисов
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

// Types возвращает типы записанных событий по порядку
func (r *Recorder) Types() []Type {
	types := make([]Type, 0, len(r.Events))
	for _, ev := range r.Events {
		types = append(types, ev.Type)
	}
	return types
}
