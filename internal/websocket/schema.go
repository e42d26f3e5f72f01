package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer        Action = "answer"
	ActionSecurityEvent Action = "security_event"
	ActionSubmit        Action = "submit"
	ActionPing          Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action          `json:"action"`
	Raw    json.RawMessage `json:"-"`
}

// AnswerRequest saves a single answer.
type AnswerRequest struct {
	QuestionID       uuid.UUID  `json:"question_id" binding:"required"`
	SelectedChoiceID *uuid.UUID `json:"selected_choice_id"`
	AnswerText       *string    `json:"answer_text"`
	MarkedForReview  bool       `json:"marked_for_review"`
}

// SecurityEventRequest reports a browser integrity event.
type SecurityEventRequest struct {
	EventType string          `json:"event_type" binding:"required,max=64,event_name"`
	Timestamp *time.Time      `json:"timestamp"`
	Details   json.RawMessage `json:"details"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventSecurity  Event = "security"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
)

// Message is the server envelope; Data carries the same bodies the REST
// endpoints return.
type Message struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}
