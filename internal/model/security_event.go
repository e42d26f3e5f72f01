package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SecurityEventType enumerates client-reported integrity events.
type SecurityEventType string

const (
	EventTabBlur          SecurityEventType = "TAB_BLUR"
	EventFullscreenExit   SecurityEventType = "FULLSCREEN_EXIT"
	EventCopyAttempt      SecurityEventType = "COPY_ATTEMPT"
	EventPasteAttempt     SecurityEventType = "PASTE_ATTEMPT"
	EventRightClick       SecurityEventType = "RIGHT_CLICK"
	EventWindowResize     SecurityEventType = "WINDOW_RESIZE"
	EventDevtoolsOpen     SecurityEventType = "DEVTOOLS_OPEN"
	EventScreenCapture    SecurityEventType = "SCREEN_CAPTURE"
	EventMultipleDisplays SecurityEventType = "MULTIPLE_DISPLAYS"
)

// ParseSecurityEventType normalizes "tab_blur", "tab-blur" and "TAB_BLUR".
func ParseSecurityEventType(raw string) SecurityEventType {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return SecurityEventType(strings.ReplaceAll(s, "-", "_"))
}

// Severity classifies a recorded event.
type Severity string

const (
	SeverityWarning   Severity = "WARNING"
	SeverityViolation Severity = "VIOLATION"
)

// SecurityEvent is one entry of an attempt's append-only security log.
type SecurityEvent struct {
	AttemptID  uuid.UUID         `json:"attempt_id"`
	Sequence   int               `json:"sequence"`
	EventType  SecurityEventType `json:"event_type"`
	Severity   Severity          `json:"severity"`
	ReportedAt *time.Time        `json:"reported_at,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
	Details    json.RawMessage   `json:"details,omitempty"`
}

// SecurityEventRequest is the client report payload.
type SecurityEventRequest struct {
	EventType string          `json:"event_type" binding:"required,max=64,event_name"`
	Timestamp *time.Time      `json:"timestamp"`
	Details   json.RawMessage `json:"details"`
}

// SecurityEventResult reports the counters after an event was processed.
type SecurityEventResult struct {
	ViolationCount int       `json:"violation_count"`
	WarningCount   int       `json:"warning_count"`
	Severity       *Severity `json:"severity,omitempty"`
	Recorded       bool      `json:"recorded"`
	AutoSubmitted  bool      `json:"auto_submitted"`
}
