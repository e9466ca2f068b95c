package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/notifier"
	"github.com/Freeeeeet/studio_booking/internal/reconcile"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxClosureDays - самое длинное закрытие одной операцией
const maxClosureDays = 62

// ClosureRequest - закрытие на дату или период [From, To]
type ClosureRequest struct {
	From   time.Time
	To     time.Time // пусто - один день
	Kind   model.ClosureKind
	Hour   *int
	Minute *int
	Reason string
}

type closedCell struct {
	booking *model.Booking
	event   events.Type
}

// ClosureService ведёт реестр закрытий и пересчитывает записи на закрытых ячейках
type ClosureService struct {
	tx        TxRunner
	closures  ClosureStore
	bookings  BookingStore
	students  StudentStore
	sender    notifier.Sender
	publisher events.Publisher
	clock     *clock.Clock
	logger    *zap.Logger
}

func NewClosureService(
	tx TxRunner,
	closures ClosureStore,
	bookings BookingStore,
	students StudentStore,
	sender notifier.Sender,
	publisher events.Publisher,
	clk *clock.Clock,
	logger *zap.Logger,
) *ClosureService {
	return &ClosureService{
		tx:        tx,
		closures:  closures,
		bookings:  bookings,
		students:  students,
		sender:    sender,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// IsClosed возвращает вид закрытия, попадающего на date hour:minute
func (s *ClosureService) IsClosed(ctx context.Context, date time.Time, hour, minute int) (model.ClosureKind, bool, error) {
	closures, err := s.closures.ListByDate(ctx, s.clock.Day(date))
	if err != nil {
		return "", false, fmt.Errorf("list closures: %w", err)
	}
	kind, ok := model.MatchClosure(closures, hour, minute)
	return kind, ok, nil
}

// List возвращает закрытия в [from, to]
func (s *ClosureService) List(ctx context.Context, from, to time.Time) ([]*model.Closure, error) {
	from, to = s.clock.Day(from), s.clock.Day(to)
	if clock.DaysBetween(from, to) < 0 {
		return nil, ErrInvalidRange
	}

	closures, err := s.closures.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	return closures, nil
}

// Create сохраняет закрытие на каждую дату периода и в той же транзакции
// переводит записи на закрытых ячейках: обычные в "закрыто студией",
// отработки и разовые удаляет. Ученики уведомляются после коммита.
func (s *ClosureService) Create(ctx context.Context, actor model.Actor, req ClosureRequest) ([]*model.Closure, error) {
	if !actor.IsAdmin {
		return nil, ErrAdminOnly
	}
	if req.From.IsZero() {
		return nil, ErrInvalidDate
	}

	from := s.clock.Day(req.From)
	to := from
	if !req.To.IsZero() {
		to = s.clock.Day(req.To)
	}
	span := clock.DaysBetween(from, to)
	if span < 0 || span >= maxClosureDays {
		return nil, ErrInvalidRange
	}

	group := uuid.New()
	closures := make([]*model.Closure, 0, span+1)
	for i := 0; i <= span; i++ {
		c := &model.Closure{
			GroupID: group,
			Date:    s.clock.AddDays(from, i),
			Kind:    req.Kind,
			Hour:    req.Hour,
			Minute:  req.Minute,
			Reason:  req.Reason,
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidClosure, err)
		}
		closures = append(closures, c)
	}

	now := s.clock.Now()
	var changed []closedCell
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, c := range closures {
			if err := s.closures.Create(ctx, c); err != nil {
				return err
			}
			cells, err := s.reconcileDate(ctx, c.Date, now)
			if err != nil {
				return err
			}
			changed = append(changed, cells...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create closure: %w", err)
	}

	s.logger.Info("Closure created",
		zap.String("group_id", group.String()),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.String("kind", string(req.Kind)),
		zap.Int("affected_bookings", len(changed)),
	)

	evs := make([]events.Event, 0, len(closures)+len(changed))
	for _, c := range closures {
		evs = append(evs, events.ForClosure(events.ClosureCreated, c, now))
	}
	for _, cell := range changed {
		evs = append(evs, events.ForBooking(cell.event, cell.booking, now))
	}
	publish(ctx, s.publisher, s.logger, evs...)

	s.notifyClosure(ctx, closures[0], from, to, changed)

	return closures, nil
}

// reconcileDate применяет закрытия даты ко всем её записям
func (s *ClosureService) reconcileDate(ctx context.Context, date time.Time, now time.Time) ([]closedCell, error) {
	closures, err := s.closures.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var changed []closedCell
	for _, b := range bookings {
		if _, ok := model.MatchClosure(closures, b.StartHour, b.StartMinute); !ok {
			continue
		}
		d := reconcile.Decide(b, true, reconcile.IntentClosure)
		typ, err := applyDecision(ctx, s.bookings, d, b, "", now)
		if err != nil {
			return nil, err
		}
		if typ != "" {
			changed = append(changed, closedCell{booking: b, event: typ})
		}
	}
	return changed, nil
}

// notifyClosure сообщает о закрытии: затронутым ученикам про их занятие,
// остальным активным ученикам с контактом - о самом закрытии
func (s *ClosureService) notifyClosure(ctx context.Context, c *model.Closure, from, to time.Time, changed []closedCell) {
	notified := make(map[int64]bool)
	for _, cell := range changed {
		st, err := s.students.GetByID(ctx, cell.booking.StudentID)
		if err != nil || st == nil {
			s.logger.Warn("Failed to load student for closure notice",
				zap.Int64("student_id", cell.booking.StudentID),
				zap.Error(err),
			)
			continue
		}
		deliver(ctx, s.sender, s.logger, st, notifier.Message{
			Template: notifier.TemplateBookingClosed,
			Data: notifier.Data{
				Name: studentName(st),
				Date: cell.booking.TurnDate.Format(userDateLayout),
				Time: fmt.Sprintf("%02d:%02d", cell.booking.StartHour, cell.booking.StartMinute),
			},
		})
		notified[st.ID] = true
	}

	students, err := s.students.ListActive(ctx)
	if err != nil {
		s.logger.Warn("Failed to list students for closure notice", zap.Error(err))
		return
	}

	dates := from.Format(userDateLayout)
	if !clock.SameDay(from, to) {
		dates = "с " + from.Format(userDateLayout) + " по " + to.Format(userDateLayout)
	}
	sent := 0
	for _, st := range students {
		if notified[st.ID] || !st.HasContact() {
			continue
		}
		ok := deliver(ctx, s.sender, s.logger, st, notifier.Message{
			Template: notifier.TemplateClosurePosted,
			Data: notifier.Data{
				Name:   studentName(st),
				Date:   dates,
				Time:   closureTimeLabel(c),
				Reason: c.Reason,
			},
		})
		if ok {
			sent++
		}
	}

	s.logger.Info("Closure notices sent",
		zap.Int("affected", len(notified)),
		zap.Int("broadcast", sent),
	)
}

func closureTimeLabel(c *model.Closure) string {
	switch c.Kind {
	case model.ClosureMorning:
		return "утро"
	case model.ClosureAfternoon:
		return "вторая половина дня"
	case model.ClosureTime:
		return fmt.Sprintf("%02d:%02d", *c.Hour, *c.Minute)
	}
	return ""
}

// Delete удаляет закрытие. Уже закрытые записи остаются закрытыми и сохраняют отработку.
func (s *ClosureService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.IsAdmin {
		return ErrAdminOnly
	}

	c, err := s.closures.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get closure: %w", err)
	}
	if c == nil {
		return ErrClosureNotFound
	}

	if err := s.closures.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete closure: %w", err)
	}

	s.logger.Info("Closure deleted",
		zap.Int64("closure_id", id),
		zap.Time("date", c.Date),
	)
	publish(ctx, s.publisher, s.logger, events.ForClosure(events.ClosureDeleted, c, s.clock.Now()))
	return nil
}

// DeleteGroup удаляет все даты одного многодневного закрытия
func (s *ClosureService) DeleteGroup(ctx context.Context, actor model.Actor, groupID uuid.UUID) (int, error) {
	if !actor.IsAdmin {
		return 0, ErrAdminOnly
	}

	closures, err := s.closures.ListByGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("list closure group: %w", err)
	}
	if len(closures) == 0 {
		return 0, ErrClosureNotFound
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, c := range closures {
			if err := s.closures.Delete(ctx, c.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete closure group: %w", err)
	}

	now := s.clock.Now()
	evs := make([]events.Event, 0, len(closures))
	for _, c := range closures {
		evs = append(evs, events.ForClosure(events.ClosureDeleted, c, now))
	}
	publish(ctx, s.publisher, s.logger, evs...)

	s.logger.Info("Closure group deleted",
		zap.String("group_id", groupID.String()),
		zap.Int("dates", len(closures)),
	)
	return len(closures), nil
}
