package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/ujian-proctor/internal/model"
)

const examColumns = `id, name, pin, target_url, starts_at, duration_minutes, active, created_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Name, &e.PIN, &e.TargetURL, &e.StartsAt, &e.DurationMinutes, &e.Active, &e.CreatedAt)
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id int) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListActiveByPIN returns every active exam using the PIN. More than one row
// means the catalog is misconfigured.
func (r *ExamRepository) ListActiveByPIN(ctx context.Context, pin string) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE pin = $1 AND active ORDER BY id`, pin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// List returns all exams, newest start first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams ORDER BY starts_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exams (name, pin, target_url, starts_at, duration_minutes, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		e.Name, e.PIN, e.TargetURL, e.StartsAt, e.DurationMinutes, e.Active,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActivePIN
		}
		return err
	}
	return nil
}

// SetActive toggles the active flag and returns the updated exam.
func (r *ExamRepository) SetActive(ctx context.Context, id int, active bool) (*model.Exam, error) {
	e := &model.Exam{}
	err := scanExam(r.pool.QueryRow(ctx,
		`UPDATE exams SET active = $2 WHERE id = $1 RETURNING `+examColumns, id, active), e)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateActivePIN
		}
		return nil, err
	}
	return e, nil
}
