package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing      Action = "ping"
	ActionViolation Action = "violation"
	ActionStatus    Action = "status"
	ActionSubmit    Action = "submit"
)

// RequestPayload is the union of all client messages; Action selects which
// fields are meaningful.
type RequestPayload struct {
	Action       Action          `json:"action"`
	Type         string          `json:"type,omitempty"`
	Detail       string          `json:"detail,omitempty"`
	SessionToken string          `json:"session_token,omitempty"`
	Answers      json.RawMessage `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventPong      Event = "pong"
	EventViolation Event = "violation_recorded"
	EventStatus    Event = "lock_status"
	EventFinished  Event = "finished"
)

// ResponsePayload wraps every server message.
type ResponsePayload struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// ViolationAck reports the attempt's running violation count.
type ViolationAck struct {
	AttemptID    int `json:"attempt_id"`
	ExitAttempts int `json:"exit_attempts"`
}
