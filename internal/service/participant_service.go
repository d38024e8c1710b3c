package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/repository"
	"github.com/stemsi/ujian-proctor/internal/roster"
)

// ParticipantService resolves and manages participants.
type ParticipantService struct {
	store  ParticipantStore
	roster roster.Source
	log    zerolog.Logger
}

// NewParticipantService creates a new ParticipantService. A nil roster disables lazy creation.
func NewParticipantService(store ParticipantStore, src roster.Source, log zerolog.Logger) *ParticipantService {
	if src == nil {
		src = roster.Empty()
	}
	return &ParticipantService{
		store:  store,
		roster: src,
		log:    log.With().Str("component", "participant_service").Logger(),
	}
}

// Resolve returns the participant with this name, ignoring case. When no row
// exists but the roster lists the name, the participant is created from the
// roster entry. Fails with ErrNotFound otherwise.
func (s *ParticipantService) Resolve(ctx context.Context, name string) (*model.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}

	p, err := s.store.GetByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	entry, ok := s.roster.Lookup(name)
	if !ok {
		return nil, ErrNotFound
	}

	p = &model.Participant{
		Name:       entry.Name,
		ExternalID: entry.ExternalID,
		ClassLabel: entry.ClassLabel,
	}
	created, err := s.store.GetOrCreate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create participant from roster: %w", err)
	}
	if created {
		s.log.Info().Int("participant_id", p.ID).Str("name", p.Name).Msg("Participant created from roster")
	}
	return p, nil
}

// Get returns a participant by ID.
func (s *ParticipantService) Get(ctx context.Context, id int) (*model.Participant, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// Create adds a participant manually.
func (s *ParticipantService) Create(ctx context.Context, req *model.CreateParticipantRequest) (*model.Participant, error) {
	p := &model.Participant{
		Name:       strings.TrimSpace(req.Name),
		ExternalID: strings.TrimSpace(req.ExternalID),
		ClassLabel: strings.TrimSpace(req.ClassLabel),
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateParticipant) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return p, nil
}

// List returns a page of participants with attempt counts.
func (s *ParticipantService) List(ctx context.Context, search string, page, perPage int) ([]model.ParticipantSummary, int, error) {
	offset := (page - 1) * perPage
	items, total, err := s.store.ListWithAttemptCounts(ctx, strings.TrimSpace(search), perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list participants: %w", err)
	}
	return items, total, nil
}

// ImportRoster creates a participant for every roster entry not yet present.
func (s *ParticipantService) ImportRoster(ctx context.Context) (*model.RosterImportResult, error) {
	result := &model.RosterImportResult{Errors: []model.RosterImportError{}}

	for _, e := range s.roster.Entries() {
		_, err := s.store.GetByName(ctx, e.Name)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			result.Errors = append(result.Errors, model.RosterImportError{Name: e.Name, Error: err.Error()})
			continue
		}

		p := &model.Participant{Name: e.Name, ExternalID: e.ExternalID, ClassLabel: e.ClassLabel}
		if err := s.store.Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicateParticipant) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, model.RosterImportError{Name: e.Name, Error: err.Error()})
			continue
		}
		result.Imported++
	}

	s.log.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Roster import finished")
	return result, nil
}

// ExportXLSX writes every participant as a workbook.
func (s *ParticipantService) ExportXLSX(ctx context.Context, w io.Writer) error {
	participants, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	entries := make([]roster.Entry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, roster.Entry{Name: p.Name, ExternalID: p.ExternalID, ClassLabel: p.ClassLabel})
	}
	return roster.WriteXLSX(w, "Peserta", entries)
}
