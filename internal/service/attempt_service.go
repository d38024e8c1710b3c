package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// ViolationInput is a participant-reported violation.
type ViolationInput struct {
	AttemptID     int
	ParticipantID int
	Type          string
	Detail        string
	Client        ClientInfo
}

// AttemptService drives the attempt lifecycle.
type AttemptService struct {
	attempts     AttemptStore
	locks        SessionLockStore
	participants ParticipantStore
	exams        ExamStore
	events       *SecurityEventService
	notifier     Notifier
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	locks SessionLockStore,
	participants ParticipantStore,
	exams ExamStore,
	events *SecurityEventService,
	notifier Notifier,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:     attempts,
		locks:        locks,
		participants: participants,
		exams:        exams,
		events:       events,
		notifier:     notifier,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// GetOwned returns an attempt if it belongs to the participant.
func (s *AttemptService) GetOwned(ctx context.Context, attemptID, participantID int) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.ParticipantID != participantID {
		return nil, ErrNotFound
	}
	return a, nil
}

// SubmitAnswers stores the answers and finishes a started attempt.
// A finished or disqualified attempt yields ErrInvalidState.
func (s *AttemptService) SubmitAnswers(ctx context.Context, attemptID, participantID int, answers json.RawMessage) (*model.Attempt, error) {
	if len(answers) == 0 {
		answers = json.RawMessage(`{}`)
	}

	a, err := s.attempts.Finish(ctx, attemptID, participantID, answers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMiss(ctx, attemptID, participantID)
		}
		return nil, fmt.Errorf("finish attempt: %w", err)
	}

	s.log.Info().Int("attempt_id", a.ID).Int("participant_id", participantID).Msg("Attempt finished")

	p, e := s.describe(ctx, a)
	s.notifier.Notify(ctx, model.Notification{Kind: model.NotifyCompletion, Text: FormatCompletion(p, e, a)})
	return a, nil
}

// ReportViolation records a violation note on a started attempt and bumps its
// exit counter. It never changes the attempt's status.
func (s *AttemptService) ReportViolation(ctx context.Context, in ViolationInput) (*model.Attempt, error) {
	kind := strings.TrimSpace(in.Type)
	note := kind
	if d := strings.TrimSpace(in.Detail); d != "" {
		note = kind + ": " + d
	}

	a, err := s.attempts.RecordViolation(ctx, in.AttemptID, in.ParticipantID, note)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMiss(ctx, in.AttemptID, in.ParticipantID)
		}
		return nil, fmt.Errorf("record violation: %w", err)
	}

	s.log.Warn().
		Int("attempt_id", a.ID).
		Int("participant_id", in.ParticipantID).
		Int("exit_attempts", a.ExitAttempts).
		Str("type", kind).
		Msg("Violation reported")

	if v, err := s.locks.GetByAttemptID(ctx, a.ID); err == nil {
		lockID := v.Lock.ID
		_ = s.events.Record(ctx, &lockID, model.EventPageViolation, note, in.Client, map[string]any{
			"attempt_id":    a.ID,
			"exit_attempts": a.ExitAttempts,
			"type":          kind,
		})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.log.Error().Err(err).Int("attempt_id", a.ID).Msg("Failed to load session lock for violation")
	}

	p, e := s.describe(ctx, a)
	s.notifier.Notify(ctx, model.Notification{Kind: model.NotifyViolation, Text: FormatViolation(p, e, a, kind, in.Detail)})
	return a, nil
}

// BulkTransition moves attempts to target and returns how many changed.
// disqualified only affects started attempts; started resets attempts to a
// fresh state. Any other target is rejected.
func (s *AttemptService) BulkTransition(ctx context.Context, ids []int, target model.AttemptStatus) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	var (
		n   int64
		err error
	)
	switch target {
	case model.AttemptDisqualified:
		n, err = s.attempts.Disqualify(ctx, ids)
	case model.AttemptStarted:
		n, err = s.attempts.Reset(ctx, ids)
	default:
		return 0, ErrInvalidState
	}
	if err != nil {
		return 0, fmt.Errorf("bulk transition to %s: %w", target, err)
	}

	s.log.Info().Str("target", string(target)).Int("requested", len(ids)).Int64("changed", n).Msg("Bulk attempt transition")
	return n, nil
}

// ListByExam returns a page of attempts for an exam.
func (s *AttemptService) ListByExam(ctx context.Context, examID int, status string, page, perPage int) ([]model.AttemptResult, int, error) {
	offset := (page - 1) * perPage
	items, total, err := s.attempts.ListByExam(ctx, examID, status, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	return items, total, nil
}

// explainMiss turns a conditional update that touched no row into the right outcome.
func (s *AttemptService) explainMiss(ctx context.Context, attemptID, participantID int) error {
	if _, err := s.GetOwned(ctx, attemptID, participantID); err != nil {
		return err
	}
	// The attempt exists and is owned, so it was not started when the update ran.
	return ErrInvalidState
}

// describe loads display data for notifications, falling back to IDs.
func (s *AttemptService) describe(ctx context.Context, a *model.Attempt) (*model.Participant, *model.Exam) {
	p, err := s.participants.GetByID(ctx, a.ParticipantID)
	if err != nil {
		s.log.Warn().Err(err).Int("participant_id", a.ParticipantID).Msg("Participant lookup for notification failed")
		p = &model.Participant{ID: a.ParticipantID, Name: fmt.Sprintf("Peserta #%d", a.ParticipantID)}
	}
	e, err := s.exams.GetByID(ctx, a.ExamID)
	if err != nil {
		s.log.Warn().Err(err).Int("exam_id", a.ExamID).Msg("Exam lookup for notification failed")
		e = &model.Exam{ID: a.ExamID, Name: fmt.Sprintf("Ujian #%d", a.ExamID)}
	}
	return p, e
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
