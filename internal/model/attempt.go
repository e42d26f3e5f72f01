package model

import (
	"time"

	"github.com/google/uuid"
)

// CompletionReason records why an attempt left the in-progress state.
type CompletionReason string

const (
	CompletionVoluntary         CompletionReason = "VOLUNTARY"
	CompletionTimeExpired       CompletionReason = "TIME_EXPIRED"
	CompletionSecurityViolation CompletionReason = "SECURITY_VIOLATION"
)

// Valid reports whether r is a known reason.
func (r CompletionReason) Valid() bool {
	switch r {
	case CompletionVoluntary, CompletionTimeExpired, CompletionSecurityViolation:
		return true
	}
	return false
}

// AttemptStatus is derived from the attempt fields, never stored.
type AttemptStatus string

const (
	AttemptStatusInProgress     AttemptStatus = "IN_PROGRESS"
	AttemptStatusPendingGrading AttemptStatus = "PENDING_GRADING"
	AttemptStatusGraded         AttemptStatus = "GRADED"
)

// Attempt is one student's pass through an exam.
type Attempt struct {
	ID                 uuid.UUID         `json:"id"`
	ExamID             uuid.UUID         `json:"exam_id"`
	StudentID          int               `json:"student_id"`
	StartedAt          time.Time         `json:"started_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	CompletionReason   *CompletionReason `json:"completion_reason,omitempty"`
	Score              *float64          `json:"score,omitempty"`
	IsGraded           bool              `json:"is_graded"`
	Passed             *bool             `json:"passed,omitempty"`
	CurrentSectionID   *uuid.UUID        `json:"current_section_id,omitempty"`
	SecurityViolations int               `json:"security_violations"`
	SecurityWarnings   int               `json:"security_warnings"`
	QuestionOrder      []uuid.UUID       `json:"question_order"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// InProgress reports whether the attempt still accepts answers.
func (a *Attempt) InProgress() bool {
	return a.CompletedAt == nil
}

func (a *Attempt) Status() AttemptStatus {
	switch {
	case a.CompletedAt == nil:
		return AttemptStatusInProgress
	case !a.IsGraded:
		return AttemptStatusPendingGrading
	default:
		return AttemptStatusGraded
	}
}

// Deadline is the instant the attempt's time budget runs out.
func (a *Attempt) Deadline(exam *Exam) time.Time {
	return a.StartedAt.Add(exam.TimeBudget())
}

// Clone returns a deep copy safe to mutate.
func (a *Attempt) Clone() *Attempt {
	c := *a
	c.CompletedAt = cloneTime(a.CompletedAt)
	if a.CompletionReason != nil {
		r := *a.CompletionReason
		c.CompletionReason = &r
	}
	if a.Score != nil {
		s := *a.Score
		c.Score = &s
	}
	if a.Passed != nil {
		p := *a.Passed
		c.Passed = &p
	}
	if a.CurrentSectionID != nil {
		id := *a.CurrentSectionID
		c.CurrentSectionID = &id
	}
	c.QuestionOrder = append([]uuid.UUID(nil), a.QuestionOrder...)
	return &c
}

// SectionAttempt is the timer state of one section inside an attempt.
type SectionAttempt struct {
	AttemptID        uuid.UUID  `json:"attempt_id"`
	SectionID        uuid.UUID  `json:"section_id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
}

// Active reports whether the section timer is still running.
func (s *SectionAttempt) Active() bool {
	return s.CompletedAt == nil
}

// RemainingAt computes the seconds left at now for a section of the given
// budget, never below zero.
func (s *SectionAttempt) RemainingAt(budget time.Duration, now time.Time) int {
	left := int((budget - now.Sub(s.StartedAt)) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

func (s *SectionAttempt) Clone() *SectionAttempt {
	c := *s
	c.CompletedAt = cloneTime(s.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SectionState is returned when a student enters or resumes a section.
type SectionState struct {
	SectionID        uuid.UUID  `json:"section_id"`
	Title            string     `json:"title"`
	Position         int        `json:"position"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	Resumed          bool       `json:"resumed"`
}

// AttemptState is the student-facing snapshot used to (re)load the exam page.
type AttemptState struct {
	Attempt          *Attempt             `json:"attempt"`
	Status           AttemptStatus        `json:"status"`
	ExamTitle        string               `json:"exam_title"`
	Deadline         time.Time            `json:"deadline"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Questions        []QuestionForStudent `json:"questions"`
	Answers          []SavedAnswer        `json:"answers"`
	ActiveSection    *SectionState        `json:"active_section,omitempty"`
}

// FinalState is returned when an attempt is completed.
type FinalState struct {
	AttemptID      uuid.UUID        `json:"attempt_id"`
	CompletedAt    time.Time        `json:"completed_at"`
	Reason         CompletionReason `json:"completion_reason"`
	Score          float64          `json:"score"`
	Passed         *bool            `json:"passed,omitempty"`
	IsGraded       bool             `json:"is_graded"`
	EarnedPoints   float64          `json:"earned_points"`
	TotalPoints    float64          `json:"total_points"`
	PendingManual  int              `json:"pending_manual"`
	SecurityEvents int              `json:"security_violations"`
}

// StartAttemptResponse wraps a started or resumed attempt.
type StartAttemptResponse struct {
	Attempt *Attempt `json:"attempt"`
	Resumed bool     `json:"resumed"`
}

// CompleteAttemptRequest is the student submit payload. Security violations
// are never client-selectable.
type CompleteAttemptRequest struct {
	Reason CompletionReason `json:"reason" binding:"omitempty,oneof=VOLUNTARY"`
}
