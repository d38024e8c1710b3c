package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// AccessCodeRepository handles access code data access, including redemption.
type AccessCodeRepository struct {
	pool *pgxpool.Pool
}

// NewAccessCodeRepository creates a new AccessCodeRepository.
func NewAccessCodeRepository(pool *pgxpool.Pool) *AccessCodeRepository {
	return &AccessCodeRepository{pool: pool}
}

// RedeemParams carries everything the redemption transaction writes.
// The tokens are only used if a new session lock has to be created.
type RedeemParams struct {
	Code          string
	ParticipantID int
	// ExamID restricts redemption to codes of the exam the participant logged into. Zero disables the check.
	ExamID       int
	SessionToken string
	UnlockToken  string
	IPAddress    string
	UserAgent    string
}

// RedeemOutcome is the state committed by a successful redemption.
type RedeemOutcome struct {
	Attempt        model.Attempt
	Exam           model.Exam
	Lock           model.SessionLock
	AttemptCreated bool
	LockCreated    bool
	// Replayed is set when the code had already been redeemed by the same participant.
	Replayed bool
}

// Redeem exchanges a code for an attempt in one transaction. The code row is
// locked with FOR UPDATE so concurrent redemptions of the same code serialize;
// the loser sees used = true. Any error rolls back the attempt, the flip and the lock.
func (r *AccessCodeRepository) Redeem(ctx context.Context, p RedeemParams) (*RedeemOutcome, error) {
	out := &RedeemOutcome{}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			codeID     int
			examID     int
			used       bool
			redeemedBy *int
		)
		err := tx.QueryRow(ctx,
			`SELECT id, exam_id, used, redeemed_by
			 FROM access_codes WHERE code = $1
			 FOR UPDATE`, p.Code,
		).Scan(&codeID, &examID, &used, &redeemedBy)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCodeNotFound
		}
		if err != nil {
			return fmt.Errorf("lock access code: %w", err)
		}
		if p.ExamID != 0 && examID != p.ExamID {
			return ErrCodeNotFound
		}

		if used {
			if redeemedBy == nil || *redeemedBy != p.ParticipantID {
				return ErrCodeUsed
			}
			out.Replayed = true
		}

		if err := scanExam(tx.QueryRow(ctx,
			`SELECT `+examColumns+` FROM exams WHERE id = $1`, examID), &out.Exam); err != nil {
			return fmt.Errorf("load exam: %w", err)
		}

		out.AttemptCreated, err = getOrCreateAttempt(ctx, tx, p.ParticipantID, examID, &out.Attempt)
		if err != nil {
			return fmt.Errorf("get or create attempt: %w", err)
		}
		if out.Attempt.Status.Terminal() {
			return ErrAttemptClosed
		}

		if !out.Replayed {
			if _, err := tx.Exec(ctx,
				`UPDATE access_codes
				 SET used = TRUE, redeemed_by = $2, redeemed_at = NOW()
				 WHERE id = $1`, codeID, p.ParticipantID,
			); err != nil {
				return fmt.Errorf("mark code used: %w", err)
			}
		}

		out.Lock = model.SessionLock{
			AttemptID:    out.Attempt.ID,
			SessionToken: p.SessionToken,
			UnlockToken:  p.UnlockToken,
			IPAddress:    p.IPAddress,
			UserAgent:    p.UserAgent,
		}
		out.LockCreated, err = getOrCreateLock(ctx, tx, &out.Lock)
		if err != nil {
			return fmt.Errorf("get or create session lock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InsertBatch stores freshly generated codes for an exam.
// A collision with an existing code yields ErrDuplicateCode and nothing is stored.
func (r *AccessCodeRepository) InsertBatch(ctx context.Context, examID int, codes []string) error {
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"access_codes"},
		[]string{"code", "exam_id"},
		pgx.CopyFromSlice(len(codes), func(i int) ([]any, error) {
			return []any{codes[i], examID}, nil
		}),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

// ListByExam returns an exam's codes. used filters on the used flag when non-nil.
func (r *AccessCodeRepository) ListByExam(ctx context.Context, examID int, used *bool) ([]model.AccessCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, exam_id, used, redeemed_by, redeemed_at, created_at
		 FROM access_codes
		 WHERE exam_id = $1 AND ($2::boolean IS NULL OR used = $2)
		 ORDER BY id`, examID, used,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []model.AccessCode
	for rows.Next() {
		var c model.AccessCode
		if err := rows.Scan(&c.ID, &c.Code, &c.ExamID, &c.Used, &c.RedeemedBy, &c.RedeemedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}
