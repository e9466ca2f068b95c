package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

const studentColumns = `
	id, first_name, last_name, phone, email, telegram_chat_id,
	level, plan_quota, is_active, created_at
`

// StudentRepository хранит учеников и их абонементы
type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{Repository: base.NewRepository(pool)}
}

func scanStudent(row rowScanner) (*model.Student, error) {
	var s model.Student
	err := row.Scan(
		&s.ID,
		&s.FirstName,
		&s.LastName,
		&s.Phone,
		&s.Email,
		&s.TelegramChatID,
		&s.Level,
		&s.PlanQuota,
		&s.IsActive,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID получает ученика по ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	s, err := scanStudent(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	return s, nil
}

// ListActive возвращает активных учеников
func (r *StudentRepository) ListActive(ctx context.Context) ([]*model.Student, error) {
	query := `SELECT ` + studentColumns + `
		FROM students
		WHERE is_active
		ORDER BY id
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return students, nil
}
