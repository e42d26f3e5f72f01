package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptProgress is one row of the proctor view.
type AttemptProgress struct {
	AttemptID          uuid.UUID         `json:"attempt_id"`
	StudentID          int               `json:"student_id"`
	Status             AttemptStatus     `json:"status"`
	StartedAt          time.Time         `json:"started_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	CompletionReason   *CompletionReason `json:"completion_reason,omitempty"`
	AnsweredCount      int               `json:"answered_count"`
	Score              *float64          `json:"score,omitempty"`
	SecurityViolations int               `json:"security_violations"`
	SecurityWarnings   int               `json:"security_warnings"`
}

// MonitorStats aggregates attempt counts for an exam.
type MonitorStats struct {
	InProgress      int `json:"in_progress"`
	PendingGrading  int `json:"pending_grading"`
	Graded          int `json:"graded"`
	TotalViolations int `json:"total_violations"`
}

// ExamSnapshot is the proctor view sent when a monitor attaches.
type ExamSnapshot struct {
	Exam     ExamSummary       `json:"exam"`
	Stats    MonitorStats      `json:"stats"`
	Attempts []AttemptProgress `json:"attempts"`
}
