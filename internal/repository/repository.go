package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

var (
	// ErrNotFound is returned for any missing row.
	ErrNotFound = errors.New("record not found")
	// ErrActiveAttemptExists is returned by CreateAttempt when the student
	// already holds an uncompleted attempt at the exam.
	ErrActiveAttemptExists = errors.New("active attempt already exists")
)

// QuestionBank is the read-only source of exam definitions.
type QuestionBank interface {
	// GetExam returns the exam with its sections, questions and choices.
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	ListPublishedExamIDs(ctx context.Context) ([]uuid.UUID, error)
}

// AttemptStore persists attempts and everything they own.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, a *model.Attempt) error
	GetAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
	FindActiveAttempt(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error)
	CountAttempts(ctx context.Context, examID uuid.UUID, studentID int) (int, error)
	ListInProgress(ctx context.Context) ([]model.Attempt, error)
	ListCompletedByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error)

	GetAnswer(ctx context.Context, answerID uuid.UUID) (*model.Answer, error)
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
	// ListUngradedAnswersByExam returns ungraded answers of completed attempts.
	ListUngradedAnswersByExam(ctx context.Context, examID uuid.UUID) ([]model.Answer, error)
	ListSectionAttempts(ctx context.Context, attemptID uuid.UUID) ([]model.SectionAttempt, error)
	ListSecurityEvents(ctx context.Context, attemptID uuid.UUID) ([]model.SecurityEvent, error)

	// WithAttemptLock runs fn while holding the attempt exclusively. Writes
	// made through tx are committed only when fn returns nil.
	WithAttemptLock(ctx context.Context, attemptID uuid.UUID, fn func(tx AttemptTx) error) error
}

// AttemptTx is the per-attempt unit of work handed to WithAttemptLock.
type AttemptTx interface {
	// Attempt is the locked row. Mutations are persisted by UpdateAttempt.
	Attempt() *model.Attempt
	UpdateAttempt(ctx context.Context, a *model.Attempt) error

	ListAnswers(ctx context.Context) ([]model.Answer, error)
	// UpsertAnswer writes the answer keyed by (attempt, question), filling
	// ID and CreatedAt on first insert.
	UpsertAnswer(ctx context.Context, a *model.Answer) error
	UpdateAnswer(ctx context.Context, a *model.Answer) error

	GetSectionAttempt(ctx context.Context, sectionID uuid.UUID) (*model.SectionAttempt, error)
	ListSectionAttempts(ctx context.Context) ([]model.SectionAttempt, error)
	SaveSectionAttempt(ctx context.Context, s *model.SectionAttempt) error

	// AppendSecurityEvent assigns the next sequence number.
	AppendSecurityEvent(ctx context.Context, e *model.SecurityEvent) error
	ListSecurityEvents(ctx context.Context) ([]model.SecurityEvent, error)
}
