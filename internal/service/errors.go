package service

import "errors"

// Core outcomes. Handlers map each to a distinct response code.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid access code")
	ErrAlreadyUsed        = errors.New("access code already used")
	ErrAlreadyFinished    = errors.New("attempt already finished")
	ErrInvalidState       = errors.New("operation not allowed in the current state")
	ErrConflict           = errors.New("conflict with existing data")

	// ErrAmbiguousExam means more than one active exam shares a PIN.
	// It is a catalog misconfiguration, not a caller error.
	ErrAmbiguousExam = errors.New("multiple active exams share this PIN")

	ErrSessionInvalidated = errors.New("session invalidated by a newer login")
)
