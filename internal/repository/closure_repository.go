package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const closureColumns = `id, group_id, date, kind, hour, minute, reason, created_at`

// ClosureRepository хранит закрытия студии
type ClosureRepository struct {
	*base.Repository
}

func NewClosureRepository(pool *pgxpool.Pool) *ClosureRepository {
	return &ClosureRepository{Repository: base.NewRepository(pool)}
}

func scanClosure(row rowScanner) (*model.Closure, error) {
	var c model.Closure
	err := row.Scan(
		&c.ID,
		&c.GroupID,
		&c.Date,
		&c.Kind,
		&c.Hour,
		&c.Minute,
		&c.Reason,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectClosures(rows pgx.Rows) ([]*model.Closure, error) {
	defer rows.Close()

	var closures []*model.Closure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closure: %w", err)
		}
		closures = append(closures, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closures: %w", err)
	}

	return closures, nil
}

// Create сохраняет закрытие
func (r *ClosureRepository) Create(ctx context.Context, c *model.Closure) error {
	query := `
		INSERT INTO closures (group_id, date, kind, hour, minute, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		c.GroupID,
		c.Date,
		c.Kind,
		c.Hour,
		c.Minute,
		c.Reason,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("create closure: %w", err)
	}

	return nil
}

// GetByID получает закрытие по ID
func (r *ClosureRepository) GetByID(ctx context.Context, id int64) (*model.Closure, error) {
	query := `SELECT ` + closureColumns + ` FROM closures WHERE id = $1`

	c, err := scanClosure(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get closure: %w", err)
	}

	return c, nil
}

// ListByDate возвращает все закрытия на дату
func (r *ClosureRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.Closure, error) {
	query := `SELECT ` + closureColumns + `
		FROM closures
		WHERE date = $1
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("list closures by date: %w", err)
	}

	return collectClosures(rows)
}

// ListRange возвращает закрытия в [from, to]
func (r *ClosureRepository) ListRange(ctx context.Context, from, to time.Time) ([]*model.Closure, error) {
	query := `SELECT ` + closureColumns + `
		FROM closures
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, id
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}

	return collectClosures(rows)
}

// ListByGroup возвращает все даты одного закрытия
func (r *ClosureRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.Closure, error) {
	query := `SELECT ` + closureColumns + `
		FROM closures
		WHERE group_id = $1
		ORDER BY date
	`

	rows, err := r.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list closure group: %w", err)
	}

	return collectClosures(rows)
}

// Delete удаляет закрытие
func (r *ClosureRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM closures WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete closure: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("closure %d not found", id)
	}

	return nil
}
