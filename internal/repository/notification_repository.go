package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository хранит отметки об отправленных уведомлениях и платежи
type NotificationRepository struct {
	*base.Repository
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(pool)}
}

// Exists проверяет, отправлялось ли уже уведомление с таким ключом
func (r *NotificationRepository) Exists(ctx context.Context, rec *model.NotificationRecord) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE student_id = $1 AND kind = $2 AND cycle_start = $3
			  AND cycle_end = $4 AND week_start = $5
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query,
		rec.StudentID,
		rec.Kind,
		rec.CycleStart,
		rec.CycleEnd,
		rec.WeekStart,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}

	return exists, nil
}

// Create сохраняет отметку. Возвращает false, если такая отметка уже есть.
func (r *NotificationRepository) Create(ctx context.Context, rec *model.NotificationRecord) (bool, error) {
	query := `
		INSERT INTO notifications (student_id, kind, cycle_start, cycle_end, week_start)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT notifications_dedup DO NOTHING
		RETURNING id, sent_at
	`

	err := r.QueryRow(ctx, query,
		rec.StudentID,
		rec.Kind,
		rec.CycleStart,
		rec.CycleEnd,
		rec.WeekStart,
	).Scan(&rec.ID, &rec.SentAt)

	if base.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}

	return true, nil
}

// HasPayment проверяет, есть ли оплата ученика в [from, to]
func (r *NotificationRepository) HasPayment(ctx context.Context, studentID int64, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE student_id = $1 AND paid_on BETWEEN $2 AND $3
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query, studentID, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}

	return exists, nil
}
