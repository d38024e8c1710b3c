package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/repository"
)

// ConsentInput is the participant's consent to a locked session.
type ConsentInput struct {
	SessionToken     string
	ParticipantID    int
	ScreenResolution string
	Client           ClientInfo
}

// SessionLockService manages consent, locking and proctor unlock.
// Validity is always recomputed from the stored lock and attempt rows.
type SessionLockService struct {
	locks  SessionLockStore
	events *SecurityEventService
	log    zerolog.Logger
}

// NewSessionLockService creates a new SessionLockService.
func NewSessionLockService(locks SessionLockStore, events *SecurityEventService, log zerolog.Logger) *SessionLockService {
	return &SessionLockService{
		locks:  locks,
		events: events,
		log:    log.With().Str("component", "session_lock_service").Logger(),
	}
}

// Consent records consent once. Repeated consent keeps the first timestamp.
func (s *SessionLockService) Consent(ctx context.Context, in ConsentInput) (*model.LockStatus, error) {
	v, err := s.ownedLock(ctx, in.SessionToken, in.ParticipantID, in.Client)
	if err != nil {
		return nil, err
	}

	l, err := s.locks.Consent(ctx, v.Lock.ID, in.Client.BrowserFingerprint, in.ScreenResolution)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("record consent: %w", err)
	}

	v.Lock = *l
	v.AttemptStatus = model.AttemptStarted
	st := v.Status()
	return &st, nil
}

// Engage locks a consented session. Locking an already locked session is a no-op.
func (s *SessionLockService) Engage(ctx context.Context, sessionToken string, participantID int, client ClientInfo) (*model.LockStatus, error) {
	v, err := s.ownedLock(ctx, sessionToken, participantID, client)
	if err != nil {
		return nil, err
	}
	if v.AttemptStatus != model.AttemptStarted || !v.Lock.Consented {
		return nil, ErrInvalidState
	}
	if v.Lock.Locked {
		st := v.Status()
		return &st, nil
	}

	l, err := s.locks.Engage(ctx, v.Lock.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("engage lock: %w", err)
	}

	lockID := l.ID
	_ = s.events.Record(ctx, &lockID, model.EventLock, "Sesi ujian dikunci", client, map[string]any{
		"attempt_id": l.AttemptID,
	})

	v.Lock = *l
	st := v.Status()
	return &st, nil
}

// Status re-reads the lock and its attempt and reports current validity.
func (s *SessionLockService) Status(ctx context.Context, sessionToken string, participantID int, client ClientInfo) (*model.LockStatus, error) {
	v, err := s.ownedLock(ctx, sessionToken, participantID, client)
	if err != nil {
		return nil, err
	}
	st := v.Status()
	return &st, nil
}

// Unlock checks a proctor-supplied unlock token. Every try is counted and audited;
// a wrong token yields ErrInvalidCredentials.
func (s *SessionLockService) Unlock(ctx context.Context, lockID int, unlockToken string, adminID int, client ClientInfo) (*model.LockStatus, error) {
	l, ok, err := s.locks.Unlock(ctx, lockID, func(stored string) bool {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(unlockToken)) == 1
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unlock: %w", err)
	}

	meta := map[string]any{"admin_id": adminID, "unlock_attempts": l.UnlockAttempts}
	_ = s.events.Record(ctx, &lockID, model.EventUnlockAttempt, "Percobaan membuka kunci sesi", client, meta)
	if !ok {
		_ = s.events.Record(ctx, &lockID, model.EventUnlockFailed, "Token buka kunci salah", client, meta)
		s.log.Warn().Int("lock_id", lockID).Int("admin_id", adminID).Int("unlock_attempts", l.UnlockAttempts).Msg("Unlock failed")
		return nil, ErrInvalidCredentials
	}
	_ = s.events.Record(ctx, &lockID, model.EventUnlockSuccess, "Kunci sesi dibuka", client, meta)
	s.log.Info().Int("lock_id", lockID).Int("admin_id", adminID).Msg("Session unlocked")

	v, err := s.locks.GetByID(ctx, lockID)
	if err != nil {
		return nil, fmt.Errorf("reload lock: %w", err)
	}
	st := v.Status()
	return &st, nil
}

// Tokens returns both tokens of a lock for the proctor.
func (s *SessionLockService) Tokens(ctx context.Context, lockID int) (*model.LockTokens, error) {
	v, err := s.locks.GetByID(ctx, lockID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lock: %w", err)
	}
	return &model.LockTokens{LockID: v.Lock.ID, SessionToken: v.Lock.SessionToken, UnlockToken: v.Lock.UnlockToken}, nil
}

// RegenerateTokens issues a fresh session token and unlock token. The old
// session token stops working immediately.
func (s *SessionLockService) RegenerateTokens(ctx context.Context, lockID, adminID int) (*model.LockTokens, error) {
	unlockToken, err := newUnlockToken()
	if err != nil {
		return nil, fmt.Errorf("generate unlock token: %w", err)
	}
	l, err := s.locks.RotateTokens(ctx, lockID, newSessionToken(), unlockToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rotate tokens: %w", err)
	}
	s.log.Info().Int("lock_id", lockID).Int("admin_id", adminID).Msg("Session lock tokens regenerated")
	return &model.LockTokens{LockID: l.ID, SessionToken: l.SessionToken, UnlockToken: l.UnlockToken}, nil
}

// ListActive returns the currently valid locks, optionally for one exam.
func (s *SessionLockService) ListActive(ctx context.Context, examID *int) ([]model.ActiveLock, error) {
	locks, err := s.locks.ListActive(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list active locks: %w", err)
	}
	return locks, nil
}

// ownedLock loads the lock for a session token and checks it belongs to the
// participant. Unknown or foreign tokens are audited as tampering.
func (s *SessionLockService) ownedLock(ctx context.Context, token string, participantID int, client ClientInfo) (*repository.LockView, error) {
	v, err := s.locks.GetBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = s.events.Record(ctx, nil, model.EventSessionTamper, "Token sesi tidak dikenal", client, map[string]any{
				"participant_id": participantID,
			})
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session lock: %w", err)
	}
	if v.ParticipantID != participantID {
		lockID := v.Lock.ID
		_ = s.events.Record(ctx, &lockID, model.EventSessionTamper, "Token sesi milik peserta lain", client, map[string]any{
			"participant_id": participantID,
		})
		s.log.Warn().Int("lock_id", lockID).Int("participant_id", participantID).Msg("Session token used by another participant")
		return nil, ErrNotFound
	}
	return v, nil
}
