package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// ParticipantRepository handles participant data access.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// GetByID retrieves a participant by ID.
func (r *ParticipantRepository) GetByID(ctx context.Context, id int) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, external_id, class_label, created_at
		 FROM participants WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.ExternalID, &p.ClassLabel, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByName retrieves a participant by name, ignoring case.
func (r *ParticipantRepository) GetByName(ctx context.Context, name string) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, external_id, class_label, created_at
		 FROM participants WHERE lower(name) = lower($1)`, name,
	).Scan(&p.ID, &p.Name, &p.ExternalID, &p.ClassLabel, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new participant. A case-insensitive name clash yields ErrDuplicateParticipant.
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO participants (name, external_id, class_label)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		p.Name, p.ExternalID, p.ClassLabel,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateParticipant
		}
		return err
	}
	return nil
}

// GetOrCreate inserts the participant unless the name already exists, in which
// case the existing row is loaded into p. Concurrent callers converge on one row.
func (r *ParticipantRepository) GetOrCreate(ctx context.Context, p *model.Participant) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO participants (name, external_id, class_label)
		 VALUES ($1, $2, $3)
		 ON CONFLICT ((lower(name))) DO NOTHING
		 RETURNING id, created_at`,
		p.Name, p.ExternalID, p.ClassLabel,
	).Scan(&p.ID, &p.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	existing, err := r.GetByName(ctx, p.Name)
	if err != nil {
		return false, err
	}
	*p = *existing
	return false, nil
}

// ListWithAttemptCounts returns a page of participants ordered by name, with the
// number of attempts each has. search filters by a case-insensitive name substring.
func (r *ParticipantRepository) ListWithAttemptCounts(ctx context.Context, search string, limit, offset int) ([]model.ParticipantSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants
		 WHERE $1 = '' OR name ILIKE '%' || $1 || '%'`, search,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.external_id, p.class_label, p.created_at, COUNT(a.id)
		 FROM participants p
		 LEFT JOIN attempts a ON a.participant_id = p.id
		 WHERE $1 = '' OR p.name ILIKE '%' || $1 || '%'
		 GROUP BY p.id
		 ORDER BY p.name
		 LIMIT $2 OFFSET $3`, search, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ParticipantSummary
	for rows.Next() {
		var s model.ParticipantSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.ExternalID, &s.ClassLabel, &s.CreatedAt, &s.AttemptCount); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// ListAll returns every participant ordered by class then name.
func (r *ParticipantRepository) ListAll(ctx context.Context) ([]model.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, external_id, class_label, created_at
		 FROM participants ORDER BY class_label, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.ExternalID, &p.ClassLabel, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
