package service

import (
	"context"
	"encoding/json"

	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/repository"
)

// The store interfaces below are implemented by the pgx repositories.

type ParticipantStore interface {
	GetByID(ctx context.Context, id int) (*model.Participant, error)
	GetByName(ctx context.Context, name string) (*model.Participant, error)
	Create(ctx context.Context, p *model.Participant) error
	GetOrCreate(ctx context.Context, p *model.Participant) (bool, error)
	ListWithAttemptCounts(ctx context.Context, search string, limit, offset int) ([]model.ParticipantSummary, int, error)
	ListAll(ctx context.Context) ([]model.Participant, error)
}

type ExamStore interface {
	GetByID(ctx context.Context, id int) (*model.Exam, error)
	ListActiveByPIN(ctx context.Context, pin string) ([]model.Exam, error)
	List(ctx context.Context) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	SetActive(ctx context.Context, id int, active bool) (*model.Exam, error)
}

type AccessCodeStore interface {
	Redeem(ctx context.Context, p repository.RedeemParams) (*repository.RedeemOutcome, error)
	InsertBatch(ctx context.Context, examID int, codes []string) error
	ListByExam(ctx context.Context, examID int, used *bool) ([]model.AccessCode, error)
}

type AttemptStore interface {
	GetByID(ctx context.Context, id int) (*model.Attempt, error)
	Finish(ctx context.Context, id, participantID int, answers json.RawMessage) (*model.Attempt, error)
	RecordViolation(ctx context.Context, id, participantID int, note string) (*model.Attempt, error)
	Disqualify(ctx context.Context, ids []int) (int64, error)
	Reset(ctx context.Context, ids []int) (int64, error)
	ListByExam(ctx context.Context, examID int, status string, limit, offset int) ([]model.AttemptResult, int, error)
}

type SessionLockStore interface {
	GetBySessionToken(ctx context.Context, token string) (*repository.LockView, error)
	GetByID(ctx context.Context, id int) (*repository.LockView, error)
	GetByAttemptID(ctx context.Context, attemptID int) (*repository.LockView, error)
	Consent(ctx context.Context, id int, fingerprint, screen string) (*model.SessionLock, error)
	Engage(ctx context.Context, id int) (*model.SessionLock, error)
	Unlock(ctx context.Context, id int, matches func(stored string) bool) (*model.SessionLock, bool, error)
	RotateTokens(ctx context.Context, id int, sessionToken, unlockToken string) (*model.SessionLock, error)
	ListActive(ctx context.Context, examID *int) ([]model.ActiveLock, error)
}

type SecurityEventStore interface {
	Append(ctx context.Context, e *model.SecurityEvent) error
	ListRecent(ctx context.Context, f model.SecurityEventFilter) ([]model.SecurityEvent, error)
}

type AdminStore interface {
	GetByID(ctx context.Context, id int) (*model.Admin, error)
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
	CountByRole(ctx context.Context, role model.Role) (int, error)
}

var (
	_ ParticipantStore   = (*repository.ParticipantRepository)(nil)
	_ ExamStore          = (*repository.ExamRepository)(nil)
	_ AccessCodeStore    = (*repository.AccessCodeRepository)(nil)
	_ AttemptStore       = (*repository.AttemptRepository)(nil)
	_ SessionLockStore   = (*repository.SessionLockRepository)(nil)
	_ SecurityEventStore = (*repository.SecurityEventRepository)(nil)
	_ AdminStore         = (*repository.AdminRepository)(nil)
)
