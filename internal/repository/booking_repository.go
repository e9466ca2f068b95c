package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateCell - у ученика уже есть запись на этот слот в эту дату
var ErrDuplicateCell = errors.New("booking for this cell already exists")

// bookingColumns - колонки записи плюс время начала слота
const bookingColumns = `
	b.id, b.student_id, b.slot_id, b.turn_date, b.state, b.kind, b.is_ordinary,
	b.temporary_cancellation, b.permanent_cancellation, b.closed_by_studio,
	b.cancelled_at, b.created_at, b.updated_at, s.start_hour, s.start_minute
`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.StudentID,
		&b.SlotID,
		&b.TurnDate,
		&b.State,
		&b.Kind,
		&b.IsOrdinary,
		&b.TemporaryCancellation,
		&b.PermanentCancellation,
		&b.ClosedByStudio,
		&b.CancelledAt,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.StartHour,
		&b.StartMinute,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// Create создаёт запись. Повтор ячейки возвращает ErrDuplicateCell.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (
			student_id, slot_id, turn_date, state, kind, is_ordinary,
			temporary_cancellation, permanent_cancellation, closed_by_studio, cancelled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		b.StudentID,
		b.SlotID,
		b.TurnDate,
		b.State,
		b.Kind,
		b.IsOrdinary,
		b.TemporaryCancellation,
		b.PermanentCancellation,
		b.ClosedByStudio,
		b.CancelledAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if base.IsUniqueViolation(err) {
		return ErrDuplicateCell
	}
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN time_slots s ON s.id = b.slot_id
		WHERE b.id = $1
	`

	b, err := scanBooking(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return b, nil
}

// GetForCell получает запись ученика на слот в дату
func (r *BookingRepository) GetForCell(ctx context.Context, studentID, slotID int64, date time.Time) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN time_slots s ON s.id = b.slot_id
		WHERE b.student_id = $1 AND b.slot_id = $2 AND b.turn_date = $3
	`

	b, err := scanBooking(r.QueryRow(ctx, query, studentID, slotID, date))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking for cell: %w", err)
	}

	return b, nil
}

// ListByStudent возвращает записи ученика в [from, to], по дате и времени
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64, from, to time.Time) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN time_slots s ON s.id = b.slot_id
		WHERE b.student_id = $1 AND b.turn_date BETWEEN $2 AND $3
		ORDER BY b.turn_date, s.start_hour, s.start_minute
	`

	rows, err := r.Query(ctx, query, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}

	return collectBookings(rows)
}

// ListByDate возвращает все записи на дату
func (r *BookingRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN time_slots s ON s.id = b.slot_id
		WHERE b.turn_date = $1
		ORDER BY s.start_hour, s.start_minute, b.id
	`

	rows, err := r.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}

	return collectBookings(rows)
}

// ListReservedOneOffs возвращает активные отработки и разовые записи с датой не позже upTo
func (r *BookingRepository) ListReservedOneOffs(ctx context.Context, upTo time.Time) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN time_slots s ON s.id = b.slot_id
		WHERE b.state = $1 AND b.kind IN ($2, $3) AND b.turn_date <= $4
		ORDER BY b.turn_date, s.start_hour, s.start_minute
	`

	rows, err := r.Query(ctx, query,
		model.BookingStateReserved,
		model.BookingKindRecovery,
		model.BookingKindDropIn,
		upTo,
	)
	if err != nil {
		return nil, fmt.Errorf("list reserved one-off bookings: %w", err)
	}

	return collectBookings(rows)
}

// CountReserved считает занятые места в слоте на дату
func (r *BookingRepository) CountReserved(ctx context.Context, slotID int64, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE slot_id = $1 AND turn_date = $2 AND state = $3
	`

	var count int
	err := r.QueryRow(ctx, query, slotID, date, model.BookingStateReserved).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reserved: %w", err)
	}

	return count, nil
}

// CountFixedOccupied считает постоянные места: временная отмена место не освобождает
func (r *BookingRepository) CountFixedOccupied(ctx context.Context, slotID int64, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE slot_id = $1 AND turn_date = $2
		  AND is_ordinary AND NOT permanent_cancellation AND NOT closed_by_studio
	`

	var count int
	err := r.QueryRow(ctx, query, slotID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count fixed occupied: %w", err)
	}

	return count, nil
}

// Update сохраняет состояние и флаги записи
func (r *BookingRepository) Update(ctx context.Context, b *model.Booking) error {
	query := `
		UPDATE bookings
		SET state = $2, kind = $3, is_ordinary = $4,
		    temporary_cancellation = $5, permanent_cancellation = $6,
		    closed_by_studio = $7, cancelled_at = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		b.ID,
		b.State,
		b.Kind,
		b.IsOrdinary,
		b.TemporaryCancellation,
		b.PermanentCancellation,
		b.ClosedByStudio,
		b.CancelledAt,
	).Scan(&b.UpdatedAt)

	if base.IsNotFound(err) {
		return fmt.Errorf("booking %d not found", b.ID)
	}
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}

	return nil
}

// Complete переводит активную запись в completed. Возвращает false, если запись уже не активна.
func (r *BookingRepository) Complete(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE bookings
		SET state = $2, updated_at = NOW()
		WHERE id = $1 AND state = $3
	`

	affected, err := r.ExecAffected(ctx, query, id, model.BookingStateCompleted, model.BookingStateReserved)
	if err != nil {
		return false, fmt.Errorf("complete booking: %w", err)
	}

	return affected > 0, nil
}

// Delete удаляет запись
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM bookings WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("booking %d not found", id)
	}

	return nil
}
