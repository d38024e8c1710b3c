package model

import (
	"encoding/json"
	"time"
)

// AttemptStatus enumerates attempt lifecycle states.
type AttemptStatus string

const (
	AttemptStarted      AttemptStatus = "started"
	AttemptFinished     AttemptStatus = "finished"
	AttemptDisqualified AttemptStatus = "disqualified"
)

// Terminal reports whether no participant-driven transition leaves this state.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptFinished || s == AttemptDisqualified
}

// Attempt is one participant's single try at one exam.
type Attempt struct {
	ID            int             `json:"id"`
	ParticipantID int             `json:"participant_id"`
	ExamID        int             `json:"exam_id"`
	Status        AttemptStatus   `json:"status"`
	Answers       json.RawMessage `json:"answers"`
	ExitAttempts  int             `json:"exit_attempts"`
	ViolationNote string          `json:"violation_note,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// AttemptResult joins an attempt with participant details for admin review.
type AttemptResult struct {
	Attempt
	ParticipantName string `json:"participant_name"`
	ClassLabel      string `json:"class_label"`
}

// SubmitAnswersRequest carries the final answer payload.
type SubmitAnswersRequest struct {
	Answers json.RawMessage `json:"answers" binding:"required"`
}

// ReportViolationRequest carries a free-text violation report.
type ReportViolationRequest struct {
	Type   string `json:"type" binding:"required,min=1,max=100"`
	Detail string `json:"detail" binding:"omitempty,max=2000"`
}

// BulkTransitionRequest moves many attempts to a target status at once.
type BulkTransitionRequest struct {
	AttemptIDs []int         `json:"attempt_ids" binding:"required,min=1,max=1000,dive,min=1"`
	Status     AttemptStatus `json:"status" binding:"required,oneof=started disqualified"`
}
