package model

import "time"

// SessionLock gates a locked-down exam UI for one attempt.
type SessionLock struct {
	ID                 int        `json:"id"`
	AttemptID          int        `json:"attempt_id"`
	Locked             bool       `json:"locked"`
	LockStartedAt      *time.Time `json:"lock_started_at,omitempty"`
	LockEndedAt        *time.Time `json:"lock_ended_at,omitempty"`
	Consented          bool       `json:"consented"`
	ConsentedAt        *time.Time `json:"consented_at,omitempty"`
	SessionToken       string     `json:"session_token"`
	UnlockToken        string     `json:"-"`
	BrowserFingerprint string     `json:"browser_fingerprint,omitempty"`
	IPAddress          string     `json:"ip_address,omitempty"`
	UserAgent          string     `json:"user_agent,omitempty"`
	ScreenResolution   string     `json:"screen_resolution,omitempty"`
	UnlockAttempts     int        `json:"unlock_attempts"`
	LastUnlockAttempt  *time.Time `json:"last_unlock_attempt,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ValidFor evaluates the lock against the owning attempt's current status.
// Callers must pass a freshly read status.
func (l *SessionLock) ValidFor(status AttemptStatus) bool {
	return l.Locked && l.Consented && status == AttemptStarted
}

// LockStatus is the recomputed view of a lock returned to the browser.
type LockStatus struct {
	LockID        int           `json:"lock_id"`
	AttemptID     int           `json:"attempt_id"`
	Locked        bool          `json:"locked"`
	Consented     bool          `json:"consented"`
	AttemptStatus AttemptStatus `json:"attempt_status"`
	Valid         bool          `json:"valid"`
}

// ActiveLock is a currently valid lock with display names, for proctors.
type ActiveLock struct {
	LockID          int        `json:"lock_id"`
	AttemptID       int        `json:"attempt_id"`
	ExamID          int        `json:"exam_id"`
	ExamName        string     `json:"exam_name"`
	ParticipantName string     `json:"participant_name"`
	LockStartedAt   *time.Time `json:"lock_started_at,omitempty"`
	IPAddress       string     `json:"ip_address,omitempty"`
}

// ConsentRequest records the participant's consent to the locked session.
type ConsentRequest struct {
	SessionToken       string `json:"session_token" binding:"required,max=100"`
	BrowserFingerprint string `json:"browser_fingerprint" binding:"omitempty,max=4096"`
	ScreenResolution   string `json:"screen_resolution" binding:"omitempty,max=20"`
}

// SessionTokenRequest identifies a lock by its participant-facing token.
type SessionTokenRequest struct {
	SessionToken string `json:"session_token" binding:"required,max=100"`
}

// UnlockRequest is the proctor's unlock attempt.
type UnlockRequest struct {
	UnlockToken string `json:"unlock_token" binding:"required,max=100"`
}

// RedeemResult is returned after a successful access code redemption.
type RedeemResult struct {
	Attempt         Attempt      `json:"attempt"`
	Exam            Exam         `json:"exam"`
	SessionLock     *SessionLock `json:"-"`
	SessionToken    string       `json:"session_token"`
	RequiresConsent bool         `json:"requires_consent"`
	Replayed        bool         `json:"replayed"`
}

// LockTokens exposes both tokens of a lock to proctors.
type LockTokens struct {
	LockID       int    `json:"lock_id"`
	SessionToken string `json:"session_token"`
	UnlockToken  string `json:"unlock_token"`
}
