package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// examInvalidator is implemented by caching exam providers.
type examInvalidator interface {
	Invalidate(ctx context.Context, examID uuid.UUID) error
}

// GradingService exposes manual answers to graders and re-aggregates
// attempt scores after every grading action.
type GradingService struct {
	store  repository.AttemptStore
	exams  ExamProvider
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewGradingService creates a new GradingService. events may be nil.
func NewGradingService(store repository.AttemptStore, exams ExamProvider, events EventPublisher, log zerolog.Logger) *GradingService {
	if events == nil {
		events = NopPublisher{}
	}
	return &GradingService{
		store:  store,
		exams:  exams,
		events: events,
		log:    log.With().Str("component", "grading_service").Logger(),
		now:    time.Now,
	}
}

func (s *GradingService) loadAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, *model.Exam, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get attempt: %w", err)
	}
	exam, err := s.exams.GetExam(ctx, a.ExamID)
	if err != nil {
		return nil, nil, err
	}
	return a, exam, nil
}

func pendingFor(exam *model.Exam, a *model.Attempt, ans *model.Answer) (model.PendingAnswer, bool) {
	if ans.IsGraded || !ans.HasText() {
		return model.PendingAnswer{}, false
	}
	q, ok := exam.Question(ans.QuestionID)
	if !ok || !q.QuestionType.IsManual() {
		return model.PendingAnswer{}, false
	}
	return model.PendingAnswer{
		AnswerID:     ans.ID,
		AttemptID:    a.ID,
		StudentID:    a.StudentID,
		QuestionID:   q.ID,
		QuestionType: q.QuestionType,
		QuestionText: q.QuestionText,
		Points:       q.Points,
		Position:     q.Position,
		AnswerText:   ans.AnswerText,
		SubmittedAt:  ans.UpdatedAt,
	}, true
}

// questionRank maps question ids to their authoring order.
func questionRank(exam *model.Exam) map[uuid.UUID]int {
	rank := make(map[uuid.UUID]int, len(exam.Questions))
	for i, q := range exam.OrderedQuestions() {
		rank[q.ID] = i
	}
	return rank
}

// ListPendingByAttempt returns the attempt's manual answers awaiting a
// grader, in question order. In-progress attempts have nothing pending.
func (s *GradingService) ListPendingByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.PendingAnswer, error) {
	a, exam, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	out := []model.PendingAnswer{}
	if a.InProgress() {
		return out, nil
	}

	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	for i := range answers {
		if p, ok := pendingFor(exam, a, &answers[i]); ok {
			out = append(out, p)
		}
	}

	rank := questionRank(exam)
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i].QuestionID] < rank[out[j].QuestionID] })
	return out, nil
}

// ListPendingByExam returns pending manual answers across all completed
// attempts of an exam, grouped by attempt start time then question order.
func (s *GradingService) ListPendingByExam(ctx context.Context, examID uuid.UUID) ([]model.PendingAnswer, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.store.ListCompletedByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list completed attempts: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Attempt, len(attempts))
	for i := range attempts {
		byID[attempts[i].ID] = &attempts[i]
	}

	answers, err := s.store.ListUngradedAnswersByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list ungraded answers: %w", err)
	}

	out := []model.PendingAnswer{}
	for i := range answers {
		a, ok := byID[answers[i].AttemptID]
		if !ok {
			continue
		}
		if p, ok := pendingFor(exam, a, &answers[i]); ok {
			out = append(out, p)
		}
	}

	rank := questionRank(exam)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := byID[out[i].AttemptID], byID[out[j].AttemptID]
		if ai.ID != aj.ID {
			if !ai.StartedAt.Equal(aj.StartedAt) {
				return ai.StartedAt.Before(aj.StartedAt)
			}
			return ai.ID.String() < aj.ID.String()
		}
		return rank[out[i].QuestionID] < rank[out[j].QuestionID]
	})
	return out, nil
}

// GradeInput is one grading action.
type GradeInput struct {
	AnswerID  uuid.UUID
	AttemptID *uuid.UUID
	Score     float64
	Feedback  string
	GraderID  int
}

// GradeAnswer records a manual score and re-aggregates the attempt. A failed
// call leaves every field untouched.
func (s *GradingService) GradeAnswer(ctx context.Context, in GradeInput) (*model.ScoreUpdate, error) {
	ans, err := s.store.GetAnswer(ctx, in.AnswerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAnswerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get answer: %w", err)
	}
	if in.AttemptID != nil && *in.AttemptID != ans.AttemptID {
		return nil, ErrAttemptMismatch
	}

	_, exam, err := s.loadAttempt(ctx, ans.AttemptID)
	if err != nil {
		return nil, err
	}
	q, ok := exam.Question(ans.QuestionID)
	if !ok {
		return nil, ErrQuestionNotInExam
	}
	if !q.QuestionType.IsManual() {
		return nil, ErrAnswerNotManual
	}
	if math.IsNaN(in.Score) || in.Score < 0 || in.Score > q.Points {
		return nil, ErrScoreOutOfRange
	}

	var (
		update   *model.ScoreUpdate
		finished *model.Attempt
	)
	err = s.store.WithAttemptLock(ctx, ans.AttemptID, func(tx repository.AttemptTx) error {
		a := tx.Attempt()
		if a.InProgress() {
			return ErrAttemptInProgress
		}

		answers, err := tx.ListAnswers(ctx)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}
		idx := -1
		for i := range answers {
			if answers[i].ID == in.AnswerID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrAnswerNotFound
		}

		now := s.now()
		score := in.Score
		grader := in.GraderID
		target := &answers[idx]
		target.Score = &score
		target.IsGraded = true
		target.GraderFeedback = in.Feedback
		target.GradedBy = &grader
		target.GradedAt = &now
		if err := tx.UpdateAnswer(ctx, target); err != nil {
			return err
		}

		res := ComputeScore(exam, answers)
		applyScore(a, res)
		if err := tx.UpdateAttempt(ctx, a); err != nil {
			return err
		}

		answerID := in.AnswerID
		update = scoreUpdate(a, res)
		update.AnswerID = &answerID
		if a.IsGraded {
			finished = a.Clone()
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	metrics.ManualGrades.Inc()
	s.announceGraded(ctx, finished)
	s.log.Info().
		Str("answer_id", in.AnswerID.String()).
		Int("grader_id", in.GraderID).
		Float64("score", in.Score).
		Float64("attempt_score", update.Score).
		Msg("Answer graded")
	return update, nil
}

// ResetGrading clears manual grades, re-grades multiple-choice answers from
// the current choice correctness and recomputes the aggregate.
func (s *GradingService) ResetGrading(ctx context.Context, attemptID uuid.UUID) (*model.ScoreUpdate, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if inv, ok := s.exams.(examInvalidator); ok {
		if err := inv.Invalidate(ctx, a.ExamID); err != nil {
			s.log.Warn().Err(err).Str("exam_id", a.ExamID.String()).Msg("Exam cache invalidation failed, regrading from cache")
		}
	}
	exam, err := s.exams.GetExam(ctx, a.ExamID)
	if err != nil {
		return nil, err
	}

	var (
		update   *model.ScoreUpdate
		finished *model.Attempt
	)
	err = s.store.WithAttemptLock(ctx, attemptID, func(tx repository.AttemptTx) error {
		a := tx.Attempt()
		if a.InProgress() {
			return ErrAttemptInProgress
		}

		answers, err := tx.ListAnswers(ctx)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}

		now := s.now()
		for i := range answers {
			ans := &answers[i]
			q, ok := exam.Question(ans.QuestionID)
			if !ok {
				continue
			}
			ans.ClearGrade()
			if q.QuestionType == model.QuestionTypeMultipleChoice {
				// A choice deleted since submission scores zero.
				score, _ := AutoGrade(q, ans.SelectedChoiceID)
				ans.Score = &score
				ans.IsGraded = true
			}
			if err := tx.UpdateAnswer(ctx, ans); err != nil {
				return err
			}
		}
		if err := finalizeBlankManual(ctx, tx, exam, answers, now); err != nil {
			return err
		}

		res := ComputeScore(exam, answers)
		applyScore(a, res)
		if err := tx.UpdateAttempt(ctx, a); err != nil {
			return err
		}
		update = scoreUpdate(a, res)
		if a.IsGraded {
			finished = a.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.announceGraded(ctx, finished)
	s.log.Warn().
		Str("attempt_id", attemptID.String()).
		Float64("score", update.Score).
		Int("pending_manual", update.PendingManual).
		Msg("Grading reset")
	return update, nil
}

// GetResult returns the finished attempt with its letter grade.
func (s *GradingService) GetResult(ctx context.Context, attemptID uuid.UUID) (*model.AttemptResult, error) {
	a, exam, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if answers == nil {
		answers = []model.Answer{}
	}

	res := ComputeScore(exam, answers)
	result := &model.AttemptResult{
		Attempt:       a,
		Status:        a.Status(),
		EarnedPoints:  res.EarnedPoints,
		TotalPoints:   res.TotalPoints,
		PendingManual: res.PendingManual,
		Answers:       answers,
	}
	if a.IsGraded && a.Score != nil {
		result.Grade = GradeLetter(*a.Score)
	}
	return result, nil
}

func scoreUpdate(a *model.Attempt, res ScoreResult) *model.ScoreUpdate {
	u := &model.ScoreUpdate{
		AttemptID:     a.ID,
		Score:         res.Score,
		Passed:        a.Passed,
		IsGraded:      a.IsGraded,
		PendingManual: res.PendingManual,
	}
	if a.IsGraded {
		u.Grade = GradeLetter(res.Score)
	}
	return u
}

func (s *GradingService) announceGraded(ctx context.Context, a *model.Attempt) {
	if a == nil {
		return
	}
	s.events.Publish(ctx, model.MonitorEvent{
		Type:      model.MonitorAttemptGraded,
		ExamID:    a.ExamID,
		AttemptID: a.ID,
		StudentID: a.StudentID,
		Data:      map[string]any{"score": a.Score, "passed": a.Passed},
		At:        s.now(),
	})
	s.events.EnqueueResult(ctx, a)
}
