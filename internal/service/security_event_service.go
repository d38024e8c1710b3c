package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/metrics"
	"github.com/stemsi/ujian-proctor/internal/model"
)

const (
	DefaultEventLimit = 50
	maxEventLimit     = 500
)

// ClientInfo is the request origin recorded with audit events and locks.
type ClientInfo struct {
	IPAddress          string
	UserAgent          string
	BrowserFingerprint string
}

// SecurityEventService appends to and reads the security audit log.
type SecurityEventService struct {
	store   SecurityEventStore
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewSecurityEventService creates a new SecurityEventService.
func NewSecurityEventService(store SecurityEventStore, m *metrics.Metrics, log zerolog.Logger) *SecurityEventService {
	return &SecurityEventService{
		store:   store,
		metrics: m,
		log:     log.With().Str("component", "security_events").Logger(),
	}
}

// Record appends an event. Failures are logged and returned; callers decide
// whether an audit failure should fail their operation.
func (s *SecurityEventService) Record(ctx context.Context, lockID *int, typ model.SecurityEventType, description string, client ClientInfo, metadata map[string]any) error {
	e := &model.SecurityEvent{
		SessionLockID:      lockID,
		EventType:          typ,
		Description:        description,
		IPAddress:          client.IPAddress,
		UserAgent:          client.UserAgent,
		BrowserFingerprint: client.BrowserFingerprint,
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		e.Metadata = raw
	}

	if err := s.store.Append(ctx, e); err != nil {
		s.log.Error().Err(err).Str("type", string(typ)).Msg("Failed to append security event")
		return fmt.Errorf("append security event: %w", err)
	}
	s.metrics.ObserveSecurityEvent(string(typ))
	return nil
}

// ListRecent returns events newest first. Limit defaults to 50 and is capped at 500.
func (s *SecurityEventService) ListRecent(ctx context.Context, f model.SecurityEventFilter) ([]model.SecurityEvent, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultEventLimit
	}
	if f.Limit > maxEventLimit {
		f.Limit = maxEventLimit
	}
	events, err := s.store.ListRecent(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	return events, nil
}
