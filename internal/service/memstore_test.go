package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/cycle"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/notifier"
	"github.com/Freeeeeet/studio_booking/internal/repository"
)

// memDB - общая память фейковых хранилищ; ведёт себя как схема в PostgreSQL
// (уникальность ячейки, JOIN времени слота, дедупликация уведомлений)
type memDB struct {
	mu            sync.Mutex
	nextID        int64
	bookings      map[int64]*model.Booking
	slots         map[int64]*model.TimeSlot
	students      map[int64]*model.Student
	fixed         map[[2]int64]*model.FixedSlot
	closures      map[int64]*model.Closure
	notifications []*model.NotificationRecord
	payments      []payment
}

// payment - факт оплаты абонемента, как строка таблицы payments
type payment struct {
	studentID int64
	paidOn    time.Time
}

func newMemDB() *memDB {
	return &memDB{
		bookings: make(map[int64]*model.Booking),
		slots:    make(map[int64]*model.TimeSlot),
		students: make(map[int64]*model.Student),
		fixed:    make(map[[2]int64]*model.FixedSlot),
		closures: make(map[int64]*model.Closure),
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func copyBooking(b *model.Booking) *model.Booking {
	c := *b
	return &c
}

func sortBookings(list []*model.Booking) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if d := clock.DaysBetween(a.TurnDate, b.TurnDate); d != 0 {
			return d > 0
		}
		if a.StartHour*60+a.StartMinute != b.StartHour*60+b.StartMinute {
			return a.StartHour*60+a.StartMinute < b.StartHour*60+b.StartMinute
		}
		return a.ID < b.ID
	})
}

func between(d, from, to time.Time) bool {
	return clock.DaysBetween(from, d) >= 0 && clock.DaysBetween(d, to) >= 0
}

// passTx выполняет fn без транзакции
type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memBookings struct{ db *memDB }

func (m memBookings) Create(_ context.Context, b *model.Booking) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, x := range m.db.bookings {
		if x.StudentID == b.StudentID && x.SlotID == b.SlotID && clock.SameDay(x.TurnDate, b.TurnDate) {
			return repository.ErrDuplicateCell
		}
	}
	b.ID = m.db.id()
	if slot, ok := m.db.slots[b.SlotID]; ok {
		b.StartHour, b.StartMinute = slot.StartHour, slot.StartMinute
	}
	m.db.bookings[b.ID] = copyBooking(b)
	return nil
}

func (m memBookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	b, ok := m.db.bookings[id]
	if !ok {
		return nil, nil
	}
	return copyBooking(b), nil
}

func (m memBookings) GetForCell(_ context.Context, studentID, slotID int64, date time.Time) (*model.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, b := range m.db.bookings {
		if b.StudentID == studentID && b.SlotID == slotID && clock.SameDay(b.TurnDate, date) {
			return copyBooking(b), nil
		}
	}
	return nil, nil
}

func (m memBookings) filter(keep func(*model.Booking) bool) []*model.Booking {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*model.Booking
	for _, b := range m.db.bookings {
		if keep(b) {
			out = append(out, copyBooking(b))
		}
	}
	sortBookings(out)
	return out
}

func (m memBookings) ListByStudent(_ context.Context, studentID int64, from, to time.Time) ([]*model.Booking, error) {
	return m.filter(func(b *model.Booking) bool {
		return b.StudentID == studentID && between(b.TurnDate, from, to)
	}), nil
}

func (m memBookings) ListByDate(_ context.Context, date time.Time) ([]*model.Booking, error) {
	return m.filter(func(b *model.Booking) bool {
		return clock.SameDay(b.TurnDate, date)
	}), nil
}

func (m memBookings) ListReservedOneOffs(_ context.Context, upTo time.Time) ([]*model.Booking, error) {
	return m.filter(func(b *model.Booking) bool {
		return b.State == model.BookingStateReserved &&
			(b.Kind == model.BookingKindRecovery || b.Kind == model.BookingKindDropIn) &&
			clock.DaysBetween(b.TurnDate, upTo) >= 0
	}), nil
}

func (m memBookings) CountReserved(_ context.Context, slotID int64, date time.Time) (int, error) {
	return len(m.filter(func(b *model.Booking) bool {
		return b.SlotID == slotID && clock.SameDay(b.TurnDate, date) && b.State == model.BookingStateReserved
	})), nil
}

func (m memBookings) CountFixedOccupied(_ context.Context, slotID int64, date time.Time) (int, error) {
	return len(m.filter(func(b *model.Booking) bool {
		return b.SlotID == slotID && clock.SameDay(b.TurnDate, date) && b.OccupiesFixedSlot()
	})), nil
}

func (m memBookings) Update(_ context.Context, b *model.Booking) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if _, ok := m.db.bookings[b.ID]; !ok {
		return errors.New("booking not found")
	}
	m.db.bookings[b.ID] = copyBooking(b)
	return nil
}

func (m memBookings) Complete(_ context.Context, id int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	b, ok := m.db.bookings[id]
	if !ok || b.State != model.BookingStateReserved {
		return false, nil
	}
	b.State = model.BookingStateCompleted
	return true, nil
}

func (m memBookings) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if _, ok := m.db.bookings[id]; !ok {
		return errors.New("booking not found")
	}
	delete(m.db.bookings, id)
	return nil
}

type memSlots struct{ db *memDB }

func (m memSlots) GetByID(_ context.Context, id int64) (*model.TimeSlot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	s, ok := m.db.slots[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m memSlots) ListActive(_ context.Context) ([]*model.TimeSlot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*model.TimeSlot
	for _, s := range m.db.slots {
		if s.IsActive {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memSlots) UpdateBlocked(_ context.Context, id int64, blocked int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	s, ok := m.db.slots[id]
	if !ok {
		return errors.New("slot not found")
	}
	s.Blocked = blocked
	return nil
}

type memStudents struct{ db *memDB }

func (m memStudents) GetByID(_ context.Context, id int64) (*model.Student, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	st, ok := m.db.students[id]
	if !ok {
		return nil, nil
	}
	c := *st
	return &c, nil
}

func (m memStudents) ListActive(_ context.Context) ([]*model.Student, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*model.Student
	for _, st := range m.db.students {
		if st.IsActive {
			c := *st
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memFixed struct{ db *memDB }

func (m memFixed) Get(_ context.Context, studentID, slotID int64) (*model.FixedSlot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	fs, ok := m.db.fixed[[2]int64{studentID, slotID}]
	if !ok {
		return nil, nil
	}
	c := *fs
	return &c, nil
}

func (m memFixed) Create(_ context.Context, fs *model.FixedSlot) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	key := [2]int64{fs.StudentID, fs.SlotID}
	if _, ok := m.db.fixed[key]; ok {
		return errors.New("fixed slot exists")
	}
	fs.ID = m.db.id()
	if slot, ok := m.db.slots[fs.SlotID]; ok {
		fs.Weekday = slot.Weekday
	}
	c := *fs
	m.db.fixed[key] = &c
	return nil
}

func (m memFixed) Update(_ context.Context, fs *model.FixedSlot) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c := *fs
	m.db.fixed[[2]int64{fs.StudentID, fs.SlotID}] = &c
	return nil
}

func (m memFixed) ListActiveStudentsForSlot(_ context.Context, slotID int64) ([]int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var ids []int64
	for key, fs := range m.db.fixed {
		st := m.db.students[key[0]]
		if key[1] == slotID && fs.IsActive && st != nil && st.IsActive {
			ids = append(ids, key[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m memFixed) ActiveWeekdays(_ context.Context, studentID int64) ([]time.Weekday, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	for key, fs := range m.db.fixed {
		slot := m.db.slots[key[1]]
		if key[0] != studentID || !fs.IsActive || slot == nil || seen[slot.Weekday] {
			continue
		}
		seen[slot.Weekday] = true
		days = append(days, slot.Weekday)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

type memClosures struct{ db *memDB }

func (m memClosures) Create(_ context.Context, c *model.Closure) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c.ID = m.db.id()
	cp := *c
	m.db.closures[c.ID] = &cp
	return nil
}

func (m memClosures) GetByID(_ context.Context, id int64) (*model.Closure, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c, ok := m.db.closures[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m memClosures) filter(keep func(*model.Closure) bool) []*model.Closure {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var out []*model.Closure
	for _, c := range m.db.closures {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m memClosures) ListByDate(_ context.Context, date time.Time) ([]*model.Closure, error) {
	return m.filter(func(c *model.Closure) bool { return clock.SameDay(c.Date, date) }), nil
}

func (m memClosures) ListRange(_ context.Context, from, to time.Time) ([]*model.Closure, error) {
	return m.filter(func(c *model.Closure) bool { return between(c.Date, from, to) }), nil
}

func (m memClosures) ListByGroup(_ context.Context, groupID uuid.UUID) ([]*model.Closure, error) {
	return m.filter(func(c *model.Closure) bool { return c.GroupID == groupID }), nil
}

func (m memClosures) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if _, ok := m.db.closures[id]; !ok {
		return errors.New("closure not found")
	}
	delete(m.db.closures, id)
	return nil
}

type memNotifications struct{ db *memDB }

func sameRecord(a, b *model.NotificationRecord) bool {
	return a.StudentID == b.StudentID && a.Kind == b.Kind &&
		clock.SameDay(a.CycleStart, b.CycleStart) &&
		clock.SameDay(a.CycleEnd, b.CycleEnd) &&
		clock.SameDay(a.WeekStart, b.WeekStart)
}

func (m memNotifications) Exists(_ context.Context, rec *model.NotificationRecord) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, r := range m.db.notifications {
		if sameRecord(r, rec) {
			return true, nil
		}
	}
	return false, nil
}

func (m memNotifications) Create(_ context.Context, rec *model.NotificationRecord) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, r := range m.db.notifications {
		if sameRecord(r, rec) {
			return false, nil
		}
	}
	rec.ID = m.db.id()
	cp := *rec
	m.db.notifications = append(m.db.notifications, &cp)
	return true, nil
}

func (m memNotifications) HasPayment(_ context.Context, studentID int64, from, to time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, p := range m.db.payments {
		if p.studentID == studentID && between(p.paidOn, from, to) {
			return true, nil
		}
	}
	return false, nil
}

// stubSender запоминает отправленные сообщения; err имитирует сбой канала
type stubSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	StudentID int64
	Template  notifier.Template
}

func (s *stubSender) Send(_ context.Context, st *model.Student, msg notifier.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{StudentID: st.ID, Template: msg.Template})
	return nil
}

func (s *stubSender) templatesFor(studentID int64) []notifier.Template {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notifier.Template
	for _, m := range s.sent {
		if m.StudentID == studentID {
			out = append(out, m.Template)
		}
	}
	return out
}

var studio = time.FixedZone("ART", -3*60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, studio)
}

func at(y int, m time.Month, d, hour, minute int) time.Time {
	return time.Date(y, m, d, hour, minute, 0, 0, studio)
}

var admin = model.Actor{UserID: 100, IsAdmin: true}

func studentActor(id int64) model.Actor {
	return model.Actor{UserID: id}
}

const (
	mondaySlot    int64 = 1 // пн 18:00
	wednesdaySlot int64 = 2 // ср 18:00
	morningSlot   int64 = 3 // пн 10:00
	saturdaySlot  int64 = 4 // сб 11:00
)

// testEnv - все сервисы поверх общей памяти и часов с фиксированным "сейчас"
type testEnv struct {
	db        *memDB
	clock     *clock.Clock
	events    *events.Recorder
	sender    *stubSender
	bookingsS memBookings

	fixed        *FixedSlotService
	closures     *ClosureService
	booking      *BookingService
	cancellation *CancellationService
	generation   *GenerationService
	availability *AvailabilityService
	sweep        *SweepService
	report       *ReportService
	notify       *NotificationService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	db := newMemDB()
	clk := clock.Fixed(studio, now)
	engine := cycle.NewEngine(clk)
	rec := &events.Recorder{}
	sender := &stubSender{}
	logger := zap.NewNop()

	bookings := memBookings{db}
	slots := memSlots{db}
	students := memStudents{db}
	fixedStore := memFixed{db}
	closureStore := memClosures{db}

	env := &testEnv{
		db:        db,
		clock:     clk,
		events:    rec,
		sender:    sender,
		bookingsS: bookings,
	}
	env.fixed = NewFixedSlotService(fixedStore, clk, logger)
	env.closures = NewClosureService(passTx{}, closureStore, bookings, students, sender, rec, clk, logger)
	env.booking = NewBookingService(passTx{}, bookings, slots, students, fixedStore, env.fixed, env.closures, engine, rec, logger)
	env.cancellation = NewCancellationService(passTx{}, bookings, slots, env.fixed, env.closures, rec, clk, logger)
	env.generation = NewGenerationService(passTx{}, bookings, slots, env.fixed, env.closures, rec, clk, logger)
	env.availability = NewAvailabilityService(slots, bookings, env.closures, rec, clk, logger)
	env.sweep = NewSweepService(bookings, rec, clk, logger)
	env.report = NewReportService(students, bookings, fixedStore, engine, logger)
	env.notify = NewNotificationService(students, memNotifications{db}, bookings, fixedStore, engine, sender, logger)

	env.addSlot(mondaySlot, time.Monday, 18, 0, 5)
	env.addSlot(wednesdaySlot, time.Wednesday, 18, 0, 5)
	env.addSlot(morningSlot, time.Monday, 10, 0, 5)
	env.addSlot(saturdaySlot, time.Saturday, 11, 0, 5)

	return env
}

func (e *testEnv) addSlot(id int64, wd time.Weekday, hour, minute, capacity int) *model.TimeSlot {
	s := &model.TimeSlot{
		ID:              id,
		Weekday:         wd,
		StartHour:       hour,
		StartMinute:     minute,
		DurationMinutes: 60,
		Level:           "basic",
		Capacity:        capacity,
		IsActive:        true,
	}
	e.db.slots[id] = s
	if id > e.db.nextID {
		e.db.nextID = id
	}
	return s
}

func (e *testEnv) addStudent(id int64, quota int) *model.Student {
	st := &model.Student{
		ID:             id,
		FirstName:      "Ученик",
		TelegramChatID: 1000 + id,
		Level:          "basic",
		PlanQuota:      quota,
		IsActive:       true,
	}
	e.db.students[id] = st
	if id > e.db.nextID {
		e.db.nextID = id
	}
	return st
}

// seed кладёт запись в хранилище напрямую, минуя проверки
func (e *testEnv) seed(t *testing.T, b *model.Booking) *model.Booking {
	t.Helper()
	if err := e.bookingsS.Create(context.Background(), b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func (e *testEnv) seedFixed(t *testing.T, studentID, slotID int64) {
	t.Helper()
	if err := e.fixed.Activate(context.Background(), studentID, slotID); err != nil {
		t.Fatalf("seed fixed slot: %v", err)
	}
}

func (e *testEnv) stored(id int64) *model.Booking {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()

	b, ok := e.db.bookings[id]
	if !ok {
		return nil
	}
	return copyBooking(b)
}

func ordinaryOn(studentID, slotID int64, date time.Time) *model.Booking {
	return &model.Booking{
		StudentID:  studentID,
		SlotID:     slotID,
		TurnDate:   date,
		State:      model.BookingStateReserved,
		Kind:       model.BookingKindOrdinary,
		IsOrdinary: true,
	}
}

func oneOffOn(studentID, slotID int64, date time.Time, kind model.BookingKind) *model.Booking {
	return &model.Booking{
		StudentID: studentID,
		SlotID:    slotID,
		TurnDate:  date,
		State:     model.BookingStateReserved,
		Kind:      kind,
	}
}
