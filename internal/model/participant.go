package model

import "time"

// Participant is an exam taker. Names are unique case-insensitively.
type Participant struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id"`
	ClassLabel string    `json:"class_label"`
	CreatedAt  time.Time `json:"created_at"`
}

// ParticipantSummary is a participant row with its attempt count, for admin listing.
type ParticipantSummary struct {
	Participant
	AttemptCount int `json:"attempt_count"`
}

// LoginRequest is the payload for participant login (name + exam PIN).
type LoginRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
	PIN  string `json:"pin" binding:"required,min=1,max=10"`
}

// CreateParticipantRequest is the payload for adding a participant manually.
type CreateParticipantRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	ExternalID string `json:"external_id" binding:"omitempty,max=20"`
	ClassLabel string `json:"class_label" binding:"omitempty,max=50"`
}

// RosterImportResult summarizes a bulk roster import.
type RosterImportResult struct {
	Imported int                 `json:"imported"`
	Skipped  int                 `json:"skipped"`
	Errors   []RosterImportError `json:"errors"`
}

// RosterImportError describes one roster entry that could not be imported.
type RosterImportError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}
