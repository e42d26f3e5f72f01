package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingAnswer is a manual answer waiting for a grader.
type PendingAnswer struct {
	AnswerID     uuid.UUID    `json:"answer_id"`
	AttemptID    uuid.UUID    `json:"attempt_id"`
	StudentID    int          `json:"student_id"`
	QuestionID   uuid.UUID    `json:"question_id"`
	QuestionType QuestionType `json:"question_type"`
	QuestionText string       `json:"question_text"`
	Points       float64      `json:"points"`
	Position     int          `json:"position"`
	AnswerText   string       `json:"answer_text"`
	SubmittedAt  time.Time    `json:"submitted_at"`
}

// GradeAnswerRequest is the grader payload. AttemptID, when given, must match
// the answer's attempt.
type GradeAnswerRequest struct {
	Score     *float64   `json:"score" binding:"required"`
	Feedback  string     `json:"feedback" binding:"max=5000"`
	AttemptID *uuid.UUID `json:"attempt_id"`
}

// ScoreUpdate is the aggregate after a grading action.
type ScoreUpdate struct {
	AttemptID     uuid.UUID  `json:"attempt_id"`
	AnswerID      *uuid.UUID `json:"answer_id,omitempty"`
	Score         float64    `json:"score"`
	Passed        *bool      `json:"passed,omitempty"`
	IsGraded      bool       `json:"is_graded"`
	PendingManual int        `json:"pending_manual"`
	Grade         string     `json:"grade"`
}

// AttemptResult is the grader/reporting view of a finished attempt.
type AttemptResult struct {
	Attempt       *Attempt      `json:"attempt"`
	Status        AttemptStatus `json:"status"`
	Grade         string        `json:"grade"`
	EarnedPoints  float64       `json:"earned_points"`
	TotalPoints   float64       `json:"total_points"`
	PendingManual int           `json:"pending_manual"`
	Answers       []Answer      `json:"answers"`
}

// MonitorEvent is published on the exam's proctor channel.
type MonitorEvent struct {
	Type      string    `json:"type"`
	ExamID    uuid.UUID `json:"exam_id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	StudentID int       `json:"student_id"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

// Monitor event types.
const (
	MonitorAttemptStarted   = "attempt_started"
	MonitorAnswerSaved      = "answer_saved"
	MonitorSecurityEvent    = "security_event"
	MonitorAttemptCompleted = "attempt_completed"
	MonitorAttemptGraded    = "attempt_graded"
)
