package model

import "time"

// NotificationKind classifies outbound notifications.
type NotificationKind string

const (
	NotifyCompletion NotificationKind = "completion"
	NotifyViolation  NotificationKind = "violation"
	NotifyTest       NotificationKind = "test"
)

// Notification is a formatted message bound for the notification sink.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Text      string           `json:"text"`
	CreatedAt time.Time        `json:"created_at"`
}

// TelegramAlertRequest is the alert payload posted by the exam page.
type TelegramAlertRequest struct {
	IsCompletion  bool   `json:"isCompletion"`
	Type          string `json:"type" binding:"omitempty,max=50"`
	Message       string `json:"message" binding:"omitempty,max=4000"`
	Student       string `json:"student" binding:"omitempty,max=100"`
	Class         string `json:"class" binding:"omitempty,max=50"`
	Exam          string `json:"exam" binding:"omitempty,max=100"`
	ViolationType string `json:"violationType" binding:"omitempty,max=100"`
	Details       string `json:"details" binding:"omitempty,max=2000"`
	WarningCount  int    `json:"warningCount" binding:"omitempty,min=0"`
	Platform      string `json:"platform" binding:"omitempty,max=100"`
	Timestamp     string `json:"timestamp" binding:"omitempty,max=64"`
	TimeLeft      int    `json:"timeLeft" binding:"omitempty,min=0"`
}
