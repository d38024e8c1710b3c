package model

import "time"

// Exam is an externally hosted exam participants enter with a PIN.
type Exam struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	PIN             string    `json:"pin,omitempty"`
	TargetURL       string    `json:"target_url"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Name            string    `json:"name" binding:"required,min=3,max=100"`
	PIN             string    `json:"pin" binding:"required,min=1,max=10"`
	TargetURL       string    `json:"target_url" binding:"required,url"`
	StartsAt        time.Time `json:"starts_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	Active          *bool     `json:"active" binding:"omitempty"`
}

// SetExamActiveRequest toggles whether an exam accepts logins.
type SetExamActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
