package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/metrics"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/repository"
)

// RedeemInput identifies who redeems which code and from where.
type RedeemInput struct {
	Code          string
	ParticipantID int
	// ExamID is the exam the participant authenticated for; codes of other exams are rejected.
	ExamID int
	Client ClientInfo
}

// RedemptionService exchanges access codes for attempts.
type RedemptionService struct {
	codes   AccessCodeStore
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewRedemptionService creates a new RedemptionService.
func NewRedemptionService(codes AccessCodeStore, m *metrics.Metrics, log zerolog.Logger) *RedemptionService {
	return &RedemptionService{
		codes:   codes,
		metrics: m,
		log:     log.With().Str("component", "redemption_service").Logger(),
	}
}

// Redeem consumes the code exactly once and returns the participant's attempt
// for the code's exam together with its session lock. Redeeming a code the
// same participant already redeemed returns the same attempt again.
func (s *RedemptionService) Redeem(ctx context.Context, in RedeemInput) (*model.RedeemResult, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		s.metrics.ObserveRedemption("invalid_code")
		return nil, ErrInvalidCode
	}

	unlockToken, err := newUnlockToken()
	if err != nil {
		return nil, fmt.Errorf("generate unlock token: %w", err)
	}

	out, err := s.codes.Redeem(ctx, repository.RedeemParams{
		Code:          code,
		ParticipantID: in.ParticipantID,
		ExamID:        in.ExamID,
		SessionToken:  newSessionToken(),
		UnlockToken:   unlockToken,
		IPAddress:     in.Client.IPAddress,
		UserAgent:     in.Client.UserAgent,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeNotFound):
			s.metrics.ObserveRedemption("invalid_code")
			return nil, ErrInvalidCode
		case errors.Is(err, repository.ErrCodeUsed):
			s.metrics.ObserveRedemption("already_used")
			return nil, ErrAlreadyUsed
		case errors.Is(err, repository.ErrAttemptClosed):
			s.metrics.ObserveRedemption("already_finished")
			return nil, ErrAlreadyFinished
		}
		s.metrics.ObserveRedemption("error")
		return nil, fmt.Errorf("redeem code: %w", err)
	}

	outcome := "success"
	if out.Replayed {
		outcome = "replayed"
	}
	s.metrics.ObserveRedemption(outcome)

	s.log.Info().
		Int("participant_id", in.ParticipantID).
		Int("exam_id", out.Exam.ID).
		Int("attempt_id", out.Attempt.ID).
		Bool("attempt_created", out.AttemptCreated).
		Bool("lock_created", out.LockCreated).
		Bool("replayed", out.Replayed).
		Msg("Access code redeemed")

	lock := out.Lock
	return &model.RedeemResult{
		Attempt:         out.Attempt,
		Exam:            out.Exam,
		SessionLock:     &lock,
		SessionToken:    lock.SessionToken,
		RequiresConsent: !lock.Consented,
		Replayed:        out.Replayed,
	}, nil
}
