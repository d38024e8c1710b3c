package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/repository"
)

const codeBatchRetries = 3

// ExamService handles the exam catalog, PIN authentication and access code issuance.
type ExamService struct {
	exams ExamStore
	codes AccessCodeStore
	cache ExamCache
	log   zerolog.Logger
}

// NewExamService creates a new ExamService. cache may be nil.
func NewExamService(exams ExamStore, codes AccessCodeStore, cache ExamCache, log zerolog.Logger) *ExamService {
	if cache == nil {
		cache = noopExamCache{}
	}
	return &ExamService{
		exams: exams,
		codes: codes,
		cache: cache,
		log:   log.With().Str("component", "exam_service").Logger(),
	}
}

// Authenticate returns the single active exam using the PIN.
func (s *ExamService) Authenticate(ctx context.Context, pin string) (*model.Exam, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, ErrInvalidCredentials
	}
	if e, ok := s.cache.Get(ctx, pin); ok {
		return e, nil
	}

	exams, err := s.exams.ListActiveByPIN(ctx, pin)
	if err != nil {
		return nil, fmt.Errorf("find exam by pin: %w", err)
	}
	switch len(exams) {
	case 0:
		return nil, ErrInvalidCredentials
	case 1:
		s.cache.Set(ctx, pin, &exams[0])
		return &exams[0], nil
	default:
		ids := make([]int, len(exams))
		for i, e := range exams {
			ids[i] = e.ID
		}
		s.log.Error().Ints("exam_ids", ids).Msg("Multiple active exams share one PIN")
		return nil, ErrAmbiguousExam
	}
}

// Get returns an exam by ID.
func (s *ExamService) Get(ctx context.Context, id int) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// List returns all exams.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// Create adds an exam. An active exam may not reuse the PIN of another active exam.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	e := &model.Exam{
		Name:            strings.TrimSpace(req.Name),
		PIN:             strings.TrimSpace(req.PIN),
		TargetURL:       req.TargetURL,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Active:          req.Active == nil || *req.Active,
	}
	if err := s.exams.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicateActivePIN) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.cache.Invalidate(ctx, e.PIN)
	return e, nil
}

// SetActive toggles an exam's active flag.
func (s *ExamService) SetActive(ctx context.Context, id int, active bool) (*model.Exam, error) {
	e, err := s.exams.SetActive(ctx, id, active)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrDuplicateActivePIN):
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("set exam active: %w", err)
	}
	s.cache.Invalidate(ctx, e.PIN)
	return e, nil
}

// GenerateCodes issues count fresh single-use codes for an exam.
func (s *ExamService) GenerateCodes(ctx context.Context, examID, count, length int) ([]string, error) {
	if _, err := s.Get(ctx, examID); err != nil {
		return nil, err
	}

	for try := 0; try < codeBatchRetries; try++ {
		codes, err := uniqueCodes(count, length)
		if err != nil {
			return nil, err
		}
		err = s.codes.InsertBatch(ctx, examID, codes)
		if err == nil {
			s.log.Info().Int("exam_id", examID).Int("count", count).Msg("Access codes generated")
			return codes, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, fmt.Errorf("insert codes: %w", err)
		}
		s.log.Warn().Int("exam_id", examID).Int("try", try+1).Msg("Access code collision, regenerating batch")
	}
	return nil, ErrConflict
}

// ListCodes returns an exam's codes, optionally filtered by used flag.
func (s *ExamService) ListCodes(ctx context.Context, examID int, used *bool) ([]model.AccessCode, error) {
	if _, err := s.Get(ctx, examID); err != nil {
		return nil, err
	}
	codes, err := s.codes.ListByExam(ctx, examID, used)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return codes, nil
}

func uniqueCodes(count, length int) ([]string, error) {
	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		c, err := newAccessCode(length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes, nil
}
