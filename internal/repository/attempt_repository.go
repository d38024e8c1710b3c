package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/ujian-proctor/internal/model"
)

const attemptColumns = `id, participant_id, exam_id, status, answers, exit_attempts, violation_note, started_at, finished_at`

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row, a *model.Attempt) error {
	return row.Scan(&a.ID, &a.ParticipantID, &a.ExamID, &a.Status, &a.Answers,
		&a.ExitAttempts, &a.ViolationNote, &a.StartedAt, &a.FinishedAt)
}

// getOrCreateAttempt returns the attempt for (participant, exam), inserting a
// started one if none exists. Reports whether a row was inserted.
func getOrCreateAttempt(ctx context.Context, q querier, participantID, examID int, a *model.Attempt) (bool, error) {
	err := scanAttempt(q.QueryRow(ctx,
		`INSERT INTO attempts (participant_id, exam_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (participant_id, exam_id) DO NOTHING
		 RETURNING `+attemptColumns,
		participantID, examID, model.AttemptStarted), a)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	err = scanAttempt(q.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE participant_id = $1 AND exam_id = $2`, participantID, examID), a)
	return false, err
}

// GetByID retrieves an attempt by ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id int) (*model.Attempt, error) {
	a := &model.Attempt{}
	if err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id), a); err != nil {
		return nil, err
	}
	return a, nil
}

// Finish stores the answers and moves a started attempt to finished.
// Returns pgx.ErrNoRows when the attempt is missing, not owned by the
// participant, or no longer started.
func (r *AttemptRepository) Finish(ctx context.Context, id, participantID int, answers json.RawMessage) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET answers = $3, status = $4, finished_at = NOW()
		 WHERE id = $1 AND participant_id = $2 AND status = $5
		 RETURNING `+attemptColumns,
		id, participantID, answers, model.AttemptFinished, model.AttemptStarted), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RecordViolation stores the latest violation note and bumps the exit counter
// on a started attempt. It never changes the status.
func (r *AttemptRepository) RecordViolation(ctx context.Context, id, participantID int, note string) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET violation_note = $3, exit_attempts = exit_attempts + 1
		 WHERE id = $1 AND participant_id = $2 AND status = $4
		 RETURNING `+attemptColumns,
		id, participantID, note, model.AttemptStarted), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Disqualify moves the started attempts among ids to disqualified and returns how many changed.
func (r *AttemptRepository) Disqualify(ctx context.Context, ids []int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $2, finished_at = NOW()
		 WHERE id = ANY($1) AND status = $3`,
		ids, model.AttemptDisqualified, model.AttemptStarted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Reset puts attempts back to started with empty answers, a zero exit counter
// and no finish time or violation note. Returns how many rows changed.
func (r *AttemptRepository) Reset(ctx context.Context, ids []int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $2, answers = '{}'::jsonb, exit_attempts = 0,
		     violation_note = '', finished_at = NULL
		 WHERE id = ANY($1)`,
		ids, model.AttemptStarted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByExam returns a page of attempts for an exam with participant details.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID int, status string, limit, offset int) ([]model.AttemptResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts
		 WHERE exam_id = $1 AND ($2 = '' OR status = $2)`, examID, status,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.participant_id, a.exam_id, a.status, a.answers, a.exit_attempts,
		        a.violation_note, a.started_at, a.finished_at, p.name, p.class_label
		 FROM attempts a
		 JOIN participants p ON p.id = a.participant_id
		 WHERE a.exam_id = $1 AND ($2 = '' OR a.status = $2)
		 ORDER BY a.started_at DESC, a.id DESC
		 LIMIT $3 OFFSET $4`, examID, status, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.AttemptResult
	for rows.Next() {
		var a model.AttemptResult
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.ExamID, &a.Status, &a.Answers, &a.ExitAttempts,
			&a.ViolationNote, &a.StartedAt, &a.FinishedAt, &a.ParticipantName, &a.ClassLabel); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
