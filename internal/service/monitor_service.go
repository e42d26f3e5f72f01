package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// MonitorService builds the proctor view of an exam.
type MonitorService struct {
	store repository.AttemptStore
	exams ExamProvider
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(store repository.AttemptStore, exams ExamProvider) *MonitorService {
	return &MonitorService{store: store, exams: exams}
}

// GetExamSnapshot lists every attempt of the exam with its progress. Running
// and finished attempts are fetched concurrently.
func (s *MonitorService) GetExamSnapshot(ctx context.Context, examID uuid.UUID) (*model.ExamSnapshot, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	var (
		running, finished       []model.Attempt
		runningErr, finishedErr error
		wg                      sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		running, runningErr = s.store.ListInProgress(ctx)
	}()
	go func() {
		defer wg.Done()
		finished, finishedErr = s.store.ListCompletedByExam(ctx, examID)
	}()
	wg.Wait()

	if runningErr != nil {
		return nil, fmt.Errorf("list in-progress attempts: %w", runningErr)
	}
	if finishedErr != nil {
		return nil, fmt.Errorf("list completed attempts: %w", finishedErr)
	}

	snap := &model.ExamSnapshot{
		Exam:     exam.Summary(),
		Attempts: make([]model.AttemptProgress, 0, len(running)+len(finished)),
	}

	for i := range running {
		a := &running[i]
		if a.ExamID != examID {
			continue
		}
		p := progressOf(a)
		// Answered counts are best-effort; a failed read shows zero.
		if answers, err := s.store.ListAnswers(ctx, a.ID); err == nil {
			p.AnsweredCount = len(answers)
		}
		snap.Attempts = append(snap.Attempts, p)
	}
	for i := range finished {
		snap.Attempts = append(snap.Attempts, progressOf(&finished[i]))
	}

	for _, p := range snap.Attempts {
		snap.Stats.TotalViolations += p.SecurityViolations
		switch p.Status {
		case model.AttemptStatusInProgress:
			snap.Stats.InProgress++
		case model.AttemptStatusPendingGrading:
			snap.Stats.PendingGrading++
		case model.AttemptStatusGraded:
			snap.Stats.Graded++
		}
	}
	return snap, nil
}

func progressOf(a *model.Attempt) model.AttemptProgress {
	return model.AttemptProgress{
		AttemptID:          a.ID,
		StudentID:          a.StudentID,
		Status:             a.Status(),
		StartedAt:          a.StartedAt,
		CompletedAt:        a.CompletedAt,
		CompletionReason:   a.CompletionReason,
		Score:              a.Score,
		SecurityViolations: a.SecurityViolations,
		SecurityWarnings:   a.SecurityWarnings,
	}
}
