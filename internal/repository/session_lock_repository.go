package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/ujian-proctor/internal/model"
)

const lockColumns = `l.id, l.attempt_id, l.locked, l.lock_started_at, l.lock_ended_at, l.consented,
	l.consented_at, l.session_token, l.unlock_token, l.browser_fingerprint,
	COALESCE(host(l.ip_address), ''), l.user_agent, l.screen_resolution,
	l.unlock_attempts, l.last_unlock_attempt, l.created_at`

// LockView is a session lock joined with the current state of its attempt.
type LockView struct {
	Lock          model.SessionLock
	AttemptStatus model.AttemptStatus
	ParticipantID int
	ExamID        int
}

// Status recomputes the participant-facing lock status.
func (v *LockView) Status() model.LockStatus {
	return model.LockStatus{
		LockID:        v.Lock.ID,
		AttemptID:     v.Lock.AttemptID,
		Locked:        v.Lock.Locked,
		Consented:     v.Lock.Consented,
		AttemptStatus: v.AttemptStatus,
		Valid:         v.Lock.ValidFor(v.AttemptStatus),
	}
}

// SessionLockRepository handles session lock data access.
type SessionLockRepository struct {
	pool *pgxpool.Pool
}

// NewSessionLockRepository creates a new SessionLockRepository.
func NewSessionLockRepository(pool *pgxpool.Pool) *SessionLockRepository {
	return &SessionLockRepository{pool: pool}
}

func scanLock(row pgx.Row, l *model.SessionLock, extra ...any) error {
	dest := []any{&l.ID, &l.AttemptID, &l.Locked, &l.LockStartedAt, &l.LockEndedAt, &l.Consented,
		&l.ConsentedAt, &l.SessionToken, &l.UnlockToken, &l.BrowserFingerprint,
		&l.IPAddress, &l.UserAgent, &l.ScreenResolution,
		&l.UnlockAttempts, &l.LastUnlockAttempt, &l.CreatedAt}
	return row.Scan(append(dest, extra...)...)
}

func scanLockView(row pgx.Row, v *LockView) error {
	return scanLock(row, &v.Lock, &v.AttemptStatus, &v.ParticipantID, &v.ExamID)
}

// getOrCreateLock inserts a lock for l.AttemptID unless one exists, in which
// case the existing lock is loaded into l. Reports whether a row was inserted.
func getOrCreateLock(ctx context.Context, q querier, l *model.SessionLock) (bool, error) {
	err := scanLock(q.QueryRow(ctx,
		`INSERT INTO session_locks AS l (attempt_id, session_token, unlock_token, ip_address, user_agent)
		 VALUES ($1, $2, $3, NULLIF($4, '')::inet, $5)
		 ON CONFLICT (attempt_id) DO NOTHING
		 RETURNING `+lockColumns,
		l.AttemptID, l.SessionToken, l.UnlockToken, l.IPAddress, l.UserAgent), l)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	err = scanLock(q.QueryRow(ctx,
		`SELECT `+lockColumns+` FROM session_locks l WHERE l.attempt_id = $1`, l.AttemptID), l)
	return false, err
}

const lockViewQuery = `SELECT ` + lockColumns + `, a.status, a.participant_id, a.exam_id
	FROM session_locks l
	JOIN attempts a ON a.id = l.attempt_id`

// GetBySessionToken loads a lock and its attempt state by the participant-facing token.
func (r *SessionLockRepository) GetBySessionToken(ctx context.Context, token string) (*LockView, error) {
	v := &LockView{}
	if err := scanLockView(r.pool.QueryRow(ctx, lockViewQuery+` WHERE l.session_token = $1`, token), v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetByID loads a lock and its attempt state.
func (r *SessionLockRepository) GetByID(ctx context.Context, id int) (*LockView, error) {
	v := &LockView{}
	if err := scanLockView(r.pool.QueryRow(ctx, lockViewQuery+` WHERE l.id = $1`, id), v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetByAttemptID loads the lock belonging to an attempt.
func (r *SessionLockRepository) GetByAttemptID(ctx context.Context, attemptID int) (*LockView, error) {
	v := &LockView{}
	if err := scanLockView(r.pool.QueryRow(ctx, lockViewQuery+` WHERE l.attempt_id = $1`, attemptID), v); err != nil {
		return nil, err
	}
	return v, nil
}

// Consent sets consented once, keeping the first consent time. Fingerprint and
// screen resolution overwrite the stored values when non-empty. Only locks whose
// attempt is still started are touched; otherwise pgx.ErrNoRows is returned.
func (r *SessionLockRepository) Consent(ctx context.Context, id int, fingerprint, screen string) (*model.SessionLock, error) {
	l := &model.SessionLock{}
	err := scanLock(r.pool.QueryRow(ctx,
		`UPDATE session_locks AS l
		 SET consented = TRUE,
		     consented_at = COALESCE(l.consented_at, NOW()),
		     browser_fingerprint = CASE WHEN $2 <> '' THEN $2 ELSE l.browser_fingerprint END,
		     screen_resolution = CASE WHEN $3 <> '' THEN $3 ELSE l.screen_resolution END
		 FROM attempts a
		 WHERE l.id = $1 AND a.id = l.attempt_id AND a.status = $4
		 RETURNING `+lockColumns,
		id, fingerprint, screen, model.AttemptStarted), l)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Engage locks a consented session whose attempt is still started.
// Returns pgx.ErrNoRows if either condition fails.
func (r *SessionLockRepository) Engage(ctx context.Context, id int) (*model.SessionLock, error) {
	l := &model.SessionLock{}
	err := scanLock(r.pool.QueryRow(ctx,
		`UPDATE session_locks AS l
		 SET locked = TRUE, lock_started_at = NOW(), lock_ended_at = NULL
		 FROM attempts a
		 WHERE l.id = $1 AND l.consented AND a.id = l.attempt_id AND a.status = $2
		 RETURNING `+lockColumns,
		id, model.AttemptStarted), l)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Unlock records an unlock attempt and, if matches accepts the stored unlock
// token, releases the lock. The row is locked for the duration so concurrent
// attempts are counted one by one.
func (r *SessionLockRepository) Unlock(ctx context.Context, id int, matches func(stored string) bool) (*model.SessionLock, bool, error) {
	l := &model.SessionLock{}
	var ok bool

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := scanLock(tx.QueryRow(ctx,
			`UPDATE session_locks AS l
			 SET unlock_attempts = l.unlock_attempts + 1, last_unlock_attempt = NOW()
			 WHERE l.id = $1
			 RETURNING `+lockColumns, id), l); err != nil {
			return err
		}
		if !matches(l.UnlockToken) {
			return nil
		}
		ok = true
		if err := scanLock(tx.QueryRow(ctx,
			`UPDATE session_locks AS l
			 SET locked = FALSE, lock_ended_at = NOW()
			 WHERE l.id = $1
			 RETURNING `+lockColumns, id), l); err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return l, ok, nil
}

// RotateTokens replaces both tokens of a lock.
func (r *SessionLockRepository) RotateTokens(ctx context.Context, id int, sessionToken, unlockToken string) (*model.SessionLock, error) {
	l := &model.SessionLock{}
	err := scanLock(r.pool.QueryRow(ctx,
		`UPDATE session_locks AS l
		 SET session_token = $2, unlock_token = $3
		 WHERE l.id = $1
		 RETURNING `+lockColumns, id, sessionToken, unlockToken), l)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListActive returns the locks that are currently valid, optionally for one exam.
func (r *SessionLockRepository) ListActive(ctx context.Context, examID *int) ([]model.ActiveLock, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.attempt_id, e.id, e.name, p.name, l.lock_started_at, COALESCE(host(l.ip_address), '')
		 FROM session_locks l
		 JOIN attempts a ON a.id = l.attempt_id
		 JOIN exams e ON e.id = a.exam_id
		 JOIN participants p ON p.id = a.participant_id
		 WHERE l.locked AND l.consented AND a.status = $1
		   AND ($2::int IS NULL OR e.id = $2)
		 ORDER BY l.lock_started_at DESC NULLS LAST, l.id DESC`,
		model.AttemptStarted, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActiveLock
	for rows.Next() {
		var a model.ActiveLock
		if err := rows.Scan(&a.LockID, &a.AttemptID, &a.ExamID, &a.ExamName, &a.ParticipantName, &a.LockStartedAt, &a.IPAddress); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
