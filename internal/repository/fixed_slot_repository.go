package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// FixedSlotRepository управляет постоянными местами учеников
type FixedSlotRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewFixedSlotRepository создаёт новый репозиторий
func NewFixedSlotRepository(pool *pgxpool.Pool, logger *zap.Logger) *FixedSlotRepository {
	return &FixedSlotRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// Get получает постоянное место ученика в слоте (активное или нет)
func (r *FixedSlotRepository) Get(ctx context.Context, studentID, slotID int64) (*model.FixedSlot, error) {
	query := `
		SELECT f.id, f.student_id, f.slot_id, f.is_active, f.activated_at, f.activation_reason,
		       f.deactivated_at, f.deactivation_reason, f.reactivations, f.created_at, s.weekday
		FROM fixed_slots f
		JOIN time_slots s ON s.id = f.slot_id
		WHERE f.student_id = $1 AND f.slot_id = $2
	`

	var (
		fs      model.FixedSlot
		weekday int
	)
	err := r.QueryRow(ctx, query, studentID, slotID).Scan(
		&fs.ID,
		&fs.StudentID,
		&fs.SlotID,
		&fs.IsActive,
		&fs.ActivatedAt,
		&fs.ActivationReason,
		&fs.DeactivatedAt,
		&fs.DeactivationReason,
		&fs.Reactivations,
		&fs.CreatedAt,
		&weekday,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fixed slot: %w", err)
	}

	fs.Weekday = time.Weekday(weekday)
	return &fs, nil
}

// Create создаёт постоянное место
func (r *FixedSlotRepository) Create(ctx context.Context, fs *model.FixedSlot) error {
	query := `
		INSERT INTO fixed_slots (student_id, slot_id, is_active, activated_at, activation_reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		fs.StudentID,
		fs.SlotID,
		fs.IsActive,
		fs.ActivatedAt,
		fs.ActivationReason,
	).Scan(&fs.ID, &fs.CreatedAt)

	if err != nil {
		return fmt.Errorf("create fixed slot: %w", err)
	}

	r.logger.Debug("Fixed slot created",
		zap.Int64("student_id", fs.StudentID),
		zap.Int64("slot_id", fs.SlotID),
	)

	return nil
}

// Update сохраняет активацию/деактивацию, история строки сохраняется
func (r *FixedSlotRepository) Update(ctx context.Context, fs *model.FixedSlot) error {
	query := `
		UPDATE fixed_slots
		SET is_active = $2, activated_at = $3, activation_reason = $4,
		    deactivated_at = $5, deactivation_reason = $6, reactivations = $7
		WHERE id = $1
	`

	affected, err := r.ExecAffected(
		ctx, query,
		fs.ID,
		fs.IsActive,
		fs.ActivatedAt,
		fs.ActivationReason,
		fs.DeactivatedAt,
		fs.DeactivationReason,
		fs.Reactivations,
	)
	if err != nil {
		return fmt.Errorf("update fixed slot: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("fixed slot %d not found", fs.ID)
	}

	return nil
}

// ListActiveStudentsForSlot возвращает активных учеников с постоянным местом в слоте
func (r *FixedSlotRepository) ListActiveStudentsForSlot(ctx context.Context, slotID int64) ([]int64, error) {
	query := `
		SELECT f.student_id
		FROM fixed_slots f
		JOIN students st ON st.id = f.student_id
		WHERE f.slot_id = $1 AND f.is_active AND st.is_active
		ORDER BY f.student_id
	`

	rows, err := r.Query(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("list fixed slot students: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan student id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate student ids: %w", err)
	}

	return ids, nil
}

// ActiveWeekdays возвращает дни недели активных постоянных мест ученика
func (r *FixedSlotRepository) ActiveWeekdays(ctx context.Context, studentID int64) ([]time.Weekday, error) {
	query := `
		SELECT DISTINCT s.weekday
		FROM fixed_slots f
		JOIN time_slots s ON s.id = f.slot_id
		WHERE f.student_id = $1 AND f.is_active
		ORDER BY s.weekday
	`

	rows, err := r.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list fixed weekdays: %w", err)
	}
	defer rows.Close()

	var weekdays []time.Weekday
	for rows.Next() {
		var wd int
		if err := rows.Scan(&wd); err != nil {
			return nil, fmt.Errorf("scan weekday: %w", err)
		}
		weekdays = append(weekdays, time.Weekday(wd))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekdays: %w", err)
	}

	return weekdays, nil
}
