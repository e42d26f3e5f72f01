package service

import (
	"errors"
	"fmt"
)

// Attempt lifecycle errors.
var (
	ErrExamNotFound             = errors.New("exam not found")
	ErrExamUnavailable          = errors.New("exam is not available")
	ErrAttemptNotFound          = errors.New("attempt not found")
	ErrAttemptAlreadyInProgress = errors.New("an attempt is already in progress for this exam")
	ErrAttemptLimitReached      = errors.New("attempt limit reached for this exam")
	ErrAttemptNotInProgress     = errors.New("attempt is not in progress")
	// ErrTimeExpired means the attempt ran out of time and was completed by
	// the request that discovered it.
	ErrTimeExpired             = fmt.Errorf("%w: time budget exhausted", ErrAttemptNotInProgress)
	ErrQuestionNotInExam       = errors.New("question does not belong to this exam")
	ErrInvalidSection          = errors.New("section does not belong to this exam")
	ErrSectionAlreadyCompleted = errors.New("section already completed")
	ErrSectionNotActive        = errors.New("question's section is not the active section")
	ErrInvalidChoice           = errors.New("choice does not belong to this question")
	ErrInvalidPayload          = errors.New("answer payload does not match question type")
	ErrInvalidReason           = errors.New("unknown completion reason")
	ErrInvalidEventType        = errors.New("unknown security event type")
)

// Grading errors.
var (
	ErrAnswerNotFound    = errors.New("answer not found")
	ErrAttemptMismatch   = errors.New("answer does not belong to this attempt")
	ErrScoreOutOfRange   = errors.New("score is outside the question's point range")
	ErrAttemptInProgress = errors.New("attempt has not been completed yet")
	ErrAnswerNotManual   = errors.New("answer is graded automatically")
)
