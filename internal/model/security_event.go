package model

import (
	"encoding/json"
	"time"
)

// SecurityEventType classifies audit log entries.
type SecurityEventType string

const (
	EventLock                SecurityEventType = "LOCK"
	EventUnlockAttempt       SecurityEventType = "UNLOCK_ATTEMPT"
	EventUnlockSuccess       SecurityEventType = "UNLOCK_SUCCESS"
	EventUnlockFailed        SecurityEventType = "UNLOCK_FAILED"
	EventRemoteAccessRequest SecurityEventType = "REMOTE_ACCESS_REQUEST"
	EventRemoteAccessGranted SecurityEventType = "REMOTE_ACCESS_GRANTED"
	EventRemoteAccessRevoked SecurityEventType = "REMOTE_ACCESS_REVOKED"
	EventPageViolation       SecurityEventType = "PAGE_VIOLATION"
	EventSessionTamper       SecurityEventType = "SESSION_TAMPER"
)

// SecurityEvent is an append-only audit record. It survives lock deletion.
type SecurityEvent struct {
	ID                 int64             `json:"id"`
	SessionLockID      *int              `json:"session_lock_id,omitempty"`
	EventType          SecurityEventType `json:"event_type"`
	Description        string            `json:"description"`
	IPAddress          string            `json:"ip_address,omitempty"`
	UserAgent          string            `json:"user_agent,omitempty"`
	BrowserFingerprint string            `json:"browser_fingerprint,omitempty"`
	Metadata           json.RawMessage   `json:"metadata"`
	CreatedAt          time.Time         `json:"created_at"`
}

// SecurityEventFilter narrows a reverse-chronological listing.
// BeforeID is a keyset cursor: only events with a smaller ID are returned.
type SecurityEventFilter struct {
	SessionLockID *int
	BeforeID      *int64
	Limit         int
}
