package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `
	id, weekday, start_hour, start_minute, duration_minutes, level,
	capacity, blocked, is_active, created_at
`

// SlotRepository хранит шаблоны занятий (time_slots)
type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row rowScanner) (*model.TimeSlot, error) {
	var (
		slot    model.TimeSlot
		weekday int
	)
	err := row.Scan(
		&slot.ID,
		&weekday,
		&slot.StartHour,
		&slot.StartMinute,
		&slot.DurationMinutes,
		&slot.Level,
		&slot.Capacity,
		&slot.Blocked,
		&slot.IsActive,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.Weekday = time.Weekday(weekday)
	return &slot, nil
}

// GetByID получает шаблон по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}

	return slot, nil
}

// ListActive возвращает активные шаблоны по дню недели и времени
func (r *SlotRepository) ListActive(ctx context.Context) ([]*model.TimeSlot, error) {
	query := `SELECT ` + slotColumns + `
		FROM time_slots
		WHERE is_active
		ORDER BY weekday, start_hour, start_minute
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// UpdateBlocked сохраняет число мест, закрытых администратором
func (r *SlotRepository) UpdateBlocked(ctx context.Context, id int64, blocked int) error {
	query := `UPDATE time_slots SET blocked = $2 WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id, blocked)
	if err != nil {
		return fmt.Errorf("update slot block: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("slot %d not found", id)
	}

	return nil
}
