package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateParticipant = errors.New("participant with this name already exists")
	ErrDuplicateActivePIN   = errors.New("another active exam already uses this PIN")
	ErrDuplicateCode        = errors.New("access code already exists")
	ErrCodeNotFound         = errors.New("access code not found")
	ErrCodeUsed             = errors.New("access code already used")
	ErrAttemptClosed        = errors.New("attempt is no longer in progress")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
