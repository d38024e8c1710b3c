package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// SecurityEventRepository appends to and reads the security audit log.
// The table rejects updates and deletes; there are no mutators here.
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityEventRepository creates a new SecurityEventRepository.
func NewSecurityEventRepository(pool *pgxpool.Pool) *SecurityEventRepository {
	return &SecurityEventRepository{pool: pool}
}

// Append inserts an event and fills in its ID and timestamp.
func (r *SecurityEventRepository) Append(ctx context.Context, e *model.SecurityEvent) error {
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = string(e.Metadata)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO security_events
		   (session_lock_id, event_type, description, ip_address, user_agent, browser_fingerprint, metadata)
		 VALUES ($1, $2, $3, NULLIF($4, '')::inet, $5, $6, COALESCE($7::jsonb, '{}'::jsonb))
		 RETURNING id, created_at`,
		e.SessionLockID, e.EventType, e.Description, e.IPAddress, e.UserAgent, e.BrowserFingerprint, metadata,
	).Scan(&e.ID, &e.CreatedAt)
}

// ListRecent returns events newest first.
func (r *SecurityEventRepository) ListRecent(ctx context.Context, f model.SecurityEventFilter) ([]model.SecurityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_lock_id, event_type, description, COALESCE(host(ip_address), ''),
		        user_agent, browser_fingerprint, metadata, created_at
		 FROM security_events
		 WHERE ($1::int IS NULL OR session_lock_id = $1)
		   AND ($2::bigint IS NULL OR id < $2)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`, f.SessionLockID, f.BeforeID, f.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.SecurityEvent
	for rows.Next() {
		var e model.SecurityEvent
		if err := rows.Scan(&e.ID, &e.SessionLockID, &e.EventType, &e.Description, &e.IPAddress,
			&e.UserAgent, &e.BrowserFingerprint, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
