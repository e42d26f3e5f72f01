package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Answer is the single response of an attempt to one question.
type Answer struct {
	ID               uuid.UUID  `json:"id"`
	AttemptID        uuid.UUID  `json:"attempt_id"`
	QuestionID       uuid.UUID  `json:"question_id"`
	SelectedChoiceID *uuid.UUID `json:"selected_choice_id,omitempty"`
	AnswerText       string     `json:"answer_text,omitempty"`
	Score            *float64   `json:"score,omitempty"`
	IsGraded         bool       `json:"is_graded"`
	GraderFeedback   string     `json:"grader_feedback,omitempty"`
	GradedBy         *int       `json:"graded_by,omitempty"`
	GradedAt         *time.Time `json:"graded_at,omitempty"`
	MarkedForReview  bool       `json:"marked_for_review"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasText reports whether a manual answer carries something to grade.
func (a *Answer) HasText() bool {
	return strings.TrimSpace(a.AnswerText) != ""
}

// EarnedPoints is the graded score, zero while ungraded.
func (a *Answer) EarnedPoints() float64 {
	if !a.IsGraded || a.Score == nil {
		return 0
	}
	return *a.Score
}

// ClearGrade drops every grading field.
func (a *Answer) ClearGrade() {
	a.Score = nil
	a.IsGraded = false
	a.GraderFeedback = ""
	a.GradedBy = nil
	a.GradedAt = nil
}

func (a *Answer) Clone() *Answer {
	c := *a
	if a.SelectedChoiceID != nil {
		id := *a.SelectedChoiceID
		c.SelectedChoiceID = &id
	}
	if a.Score != nil {
		s := *a.Score
		c.Score = &s
	}
	if a.GradedBy != nil {
		g := *a.GradedBy
		c.GradedBy = &g
	}
	c.GradedAt = cloneTime(a.GradedAt)
	return &c
}

// SavedAnswer is what a student sees of their own answer while the attempt
// runs: no score, no feedback.
type SavedAnswer struct {
	QuestionID       uuid.UUID  `json:"question_id"`
	SelectedChoiceID *uuid.UUID `json:"selected_choice_id,omitempty"`
	AnswerText       string     `json:"answer_text,omitempty"`
	MarkedForReview  bool       `json:"marked_for_review"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (a *Answer) Saved() SavedAnswer {
	return SavedAnswer{
		QuestionID:       a.QuestionID,
		SelectedChoiceID: a.SelectedChoiceID,
		AnswerText:       a.AnswerText,
		MarkedForReview:  a.MarkedForReview,
		UpdatedAt:        a.UpdatedAt,
	}
}

// AnswerAck confirms a saved answer.
type AnswerAck struct {
	AnswerID   uuid.UUID `json:"answer_id"`
	QuestionID uuid.UUID `json:"question_id"`
	IsGraded   bool      `json:"is_graded"`
	SavedAt    time.Time `json:"saved_at"`
}

// SubmitAnswerRequest carries either a choice (multiple choice) or text.
type SubmitAnswerRequest struct {
	SelectedChoiceID *uuid.UUID `json:"selected_choice_id"`
	AnswerText       *string    `json:"answer_text"`
	MarkedForReview  bool       `json:"marked_for_review"`
}

// AnswerPayload is the transport-neutral form of SubmitAnswerRequest.
type AnswerPayload struct {
	SelectedChoiceID *uuid.UUID
	AnswerText       string
	MarkedForReview  bool
}

func (r *SubmitAnswerRequest) Payload() AnswerPayload {
	p := AnswerPayload{
		SelectedChoiceID: r.SelectedChoiceID,
		MarkedForReview:  r.MarkedForReview,
	}
	if r.AnswerText != nil {
		p.AnswerText = *r.AnswerText
	}
	return p
}

func (a *Answer) Ack() AnswerAck {
	return AnswerAck{
		AnswerID:   a.ID,
		QuestionID: a.QuestionID,
		IsGraded:   a.IsGraded,
		SavedAt:    a.UpdatedAt,
	}
}
