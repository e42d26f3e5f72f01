package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// AttemptService owns the attempt state machine: start, sections, answers,
// security events and completion.
type AttemptService struct {
	store           repository.AttemptStore
	exams           ExamProvider
	events          EventPublisher
	maxAnswerLength int
	log             zerolog.Logger
	now             func() time.Time
}

// NewAttemptService creates a new AttemptService. events may be nil.
func NewAttemptService(
	store repository.AttemptStore,
	exams ExamProvider,
	events EventPublisher,
	maxAnswerLength int,
	log zerolog.Logger,
) *AttemptService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AttemptService{
		store:           store,
		exams:           exams,
		events:          events,
		maxAnswerLength: maxAnswerLength,
		log:             log.With().Str("component", "attempt_service").Logger(),
		now:             time.Now,
	}
}

// principal identifies who is acting on an attempt. System actors (the
// expiry sweep) skip the ownership check.
type principal struct {
	studentID int
	system    bool
}

func student(id int) principal { return principal{studentID: id} }

var systemActor = principal{system: true}

func (p principal) owns(a *model.Attempt) bool {
	return p.system || a.StudentID == p.studentID
}

// effects collects what to announce once the transaction has committed.
type effects struct {
	events    []model.MonitorEvent
	completed *model.Attempt
	final     *model.FinalState
}

func (fx *effects) emit(typ string, a *model.Attempt, data any, at time.Time) {
	fx.events = append(fx.events, model.MonitorEvent{
		Type:      typ,
		ExamID:    a.ExamID,
		AttemptID: a.ID,
		StudentID: a.StudentID,
		Data:      data,
		At:        at,
	})
}

func (s *AttemptService) flush(ctx context.Context, fx *effects) {
	for _, ev := range fx.events {
		s.events.Publish(ctx, ev)
	}
	if a := fx.completed; a != nil {
		reason := ""
		if a.CompletionReason != nil {
			reason = string(*a.CompletionReason)
		}
		metrics.AttemptsCompleted.WithLabelValues(reason).Inc()
		s.events.EnqueueResult(ctx, a)
		s.log.Info().
			Str("attempt_id", a.ID.String()).
			Str("reason", reason).
			Bool("graded", a.IsGraded).
			Msg("Attempt completed")
	}
}

// Start creates an attempt for the student. An uncompleted attempt is
// returned together with ErrAttemptAlreadyInProgress so the caller can
// resume it.
func (s *AttemptService) Start(ctx context.Context, studentID int, examID uuid.UUID) (*model.Attempt, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	active, err := s.store.FindActiveAttempt(ctx, examID, studentID)
	switch {
	case err == nil:
		if !s.pastDeadline(active, exam) {
			return active, ErrAttemptAlreadyInProgress
		}
		// Abandoned past its deadline: close it and fall through to a fresh start.
		if _, err := s.withAttempt(ctx, systemActor, active.ID, nil); err != nil && !errors.Is(err, ErrAttemptNotInProgress) {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find active attempt: %w", err)
	}

	now := s.now()
	if !exam.AvailableAt(now) {
		return nil, ErrExamUnavailable
	}

	if exam.MaxAttempts > 0 {
		n, err := s.store.CountAttempts(ctx, examID, studentID)
		if err != nil {
			return nil, fmt.Errorf("count attempts: %w", err)
		}
		if n >= exam.MaxAttempts {
			return nil, ErrAttemptLimitReached
		}
	}

	attempt := &model.Attempt{
		ID:        uuid.New(),
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: now,
	}
	attempt.QuestionOrder = questionOrder(exam, attempt.ID)

	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrActiveAttemptExists) {
			existing, findErr := s.store.FindActiveAttempt(ctx, examID, studentID)
			if findErr != nil {
				return nil, ErrAttemptAlreadyInProgress
			}
			return existing, ErrAttemptAlreadyInProgress
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	metrics.AttemptsStarted.Inc()
	fx := &effects{}
	fx.emit(model.MonitorAttemptStarted, attempt, nil, now)
	s.flush(ctx, fx)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Msg("Attempt started")
	return attempt, nil
}

// lockedOp runs inside the attempt transaction on an in-progress attempt
// whose deadline has not passed.
type lockedOp func(tx repository.AttemptTx, exam *model.Exam, fx *effects) error

// withAttempt loads the exam, takes the attempt lock, verifies ownership and
// state, and applies the lazy expiry check before op runs. An expired attempt
// is completed with TIME_EXPIRED, committed, and ErrTimeExpired is returned.
func (s *AttemptService) withAttempt(ctx context.Context, who principal, attemptID uuid.UUID, op lockedOp) (*effects, error) {
	peek, err := s.store.GetAttempt(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if !who.owns(peek) {
		return nil, ErrAttemptNotFound
	}

	exam, err := s.exams.GetExam(ctx, peek.ExamID)
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	expired := false
	err = s.store.WithAttemptLock(ctx, attemptID, func(tx repository.AttemptTx) error {
		a := tx.Attempt()
		if !a.InProgress() {
			return ErrAttemptNotInProgress
		}
		if s.pastDeadline(a, exam) {
			expired = true
			final, err := s.finish(ctx, tx, exam, a, model.CompletionTimeExpired, fx)
			fx.final = final
			return err
		}
		if op == nil {
			return nil
		}
		return op(tx, exam, fx)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	s.flush(ctx, fx)
	if expired {
		return fx, ErrTimeExpired
	}
	return fx, nil
}

func (s *AttemptService) pastDeadline(a *model.Attempt, exam *model.Exam) bool {
	if exam.TimeBudget() <= 0 {
		return false
	}
	return !s.now().Before(a.Deadline(exam))
}

// EnterSection opens or resumes a section and makes it the active one.
// Entering a different section closes the previous one for good.
func (s *AttemptService) EnterSection(ctx context.Context, studentID int, attemptID, sectionID uuid.UUID) (*model.SectionState, error) {
	var (
		state         *model.SectionState
		sectionClosed bool
	)
	_, err := s.withAttempt(ctx, student(studentID), attemptID, func(tx repository.AttemptTx, exam *model.Exam, fx *effects) error {
		if !exam.HasSections {
			return ErrInvalidSection
		}
		section, ok := exam.Section(sectionID)
		if !ok {
			return ErrInvalidSection
		}

		now := s.now()
		a := tx.Attempt()

		existing, err := tx.GetSectionAttempt(ctx, sectionID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("get section attempt: %w", err)
		}
		if existing != nil && !existing.Active() {
			return ErrSectionAlreadyCompleted
		}

		if a.CurrentSectionID != nil && *a.CurrentSectionID != sectionID {
			if err := s.closeSection(ctx, tx, exam, *a.CurrentSectionID, now); err != nil {
				return err
			}
		}

		resumed := existing != nil
		sa := existing
		if sa == nil {
			sa = &model.SectionAttempt{
				AttemptID:        a.ID,
				SectionID:        sectionID,
				StartedAt:        now,
				RemainingSeconds: int(section.Duration() / time.Second),
			}
		} else {
			sa.RemainingSeconds = sa.RemainingAt(section.Duration(), now)
			if sa.RemainingSeconds == 0 {
				sa.CompletedAt = &now
				sectionClosed = true
			}
		}
		if err := tx.SaveSectionAttempt(ctx, sa); err != nil {
			return err
		}

		if sectionClosed {
			a.CurrentSectionID = nil
		} else {
			a.CurrentSectionID = &sectionID
		}
		if err := tx.UpdateAttempt(ctx, a); err != nil {
			return err
		}

		state = &model.SectionState{
			SectionID:        sectionID,
			Title:            section.Title,
			Position:         section.Position,
			StartedAt:        sa.StartedAt,
			CompletedAt:      sa.CompletedAt,
			RemainingSeconds: sa.RemainingSeconds,
			Resumed:          resumed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sectionClosed {
		return nil, ErrSectionAlreadyCompleted
	}
	return state, nil
}

// closeSection stops the timer of an active section and snapshots what was
// left of it.
func (s *AttemptService) closeSection(ctx context.Context, tx repository.AttemptTx, exam *model.Exam, sectionID uuid.UUID, now time.Time) error {
	sa, err := tx.GetSectionAttempt(ctx, sectionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get section attempt: %w", err)
	}
	if !sa.Active() {
		return nil
	}
	if section, ok := exam.Section(sectionID); ok {
		sa.RemainingSeconds = sa.RemainingAt(section.Duration(), now)
	}
	sa.CompletedAt = &now
	return tx.SaveSectionAttempt(ctx, sa)
}

// SubmitAnswer upserts the answer to one question. Multiple-choice answers
// are graded on the spot; manual answers wait for a grader.
func (s *AttemptService) SubmitAnswer(ctx context.Context, studentID int, attemptID, questionID uuid.UUID, payload model.AnswerPayload) (*model.Answer, error) {
	var (
		saved         *model.Answer
		questionType  model.QuestionType
		sectionClosed bool
	)
	_, err := s.withAttempt(ctx, student(studentID), attemptID, func(tx repository.AttemptTx, exam *model.Exam, fx *effects) error {
		q, ok := exam.Question(questionID)
		if !ok {
			return ErrQuestionNotInExam
		}

		a := tx.Attempt()
		now := s.now()

		if exam.HasSections && q.SectionID != nil {
			if a.CurrentSectionID == nil || *a.CurrentSectionID != *q.SectionID {
				return ErrSectionNotActive
			}
			sa, err := tx.GetSectionAttempt(ctx, *q.SectionID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSectionNotActive
			}
			if err != nil {
				return fmt.Errorf("get section attempt: %w", err)
			}
			if !sa.Active() {
				return ErrSectionNotActive
			}
			if section, ok := exam.Section(*q.SectionID); ok && sa.RemainingAt(section.Duration(), now) == 0 {
				if err := s.closeSection(ctx, tx, exam, section.ID, now); err != nil {
					return err
				}
				a.CurrentSectionID = nil
				sectionClosed = true
				return tx.UpdateAttempt(ctx, a)
			}
		}

		ans, err := s.buildAnswer(a, q, payload)
		if err != nil {
			return err
		}
		if err := tx.UpsertAnswer(ctx, ans); err != nil {
			return err
		}

		saved = ans
		questionType = q.QuestionType
		fx.emit(model.MonitorAnswerSaved, a, map[string]any{
			"question_id": questionID,
		}, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sectionClosed {
		return nil, ErrSectionNotActive
	}

	metrics.AnswersSubmitted.WithLabelValues(string(questionType)).Inc()
	return saved, nil
}

func (s *AttemptService) buildAnswer(a *model.Attempt, q *model.Question, p model.AnswerPayload) (*model.Answer, error) {
	ans := &model.Answer{
		AttemptID:       a.ID,
		QuestionID:      q.ID,
		MarkedForReview: p.MarkedForReview,
	}

	switch q.QuestionType {
	case model.QuestionTypeMultipleChoice:
		if p.AnswerText != "" {
			return nil, ErrInvalidPayload
		}
		score, err := AutoGrade(q, p.SelectedChoiceID)
		if err != nil {
			return nil, err
		}
		choice := *p.SelectedChoiceID
		ans.SelectedChoiceID = &choice
		ans.Score = &score
		ans.IsGraded = true
	case model.QuestionTypeShortAnswer, model.QuestionTypeEssay:
		if p.SelectedChoiceID != nil {
			return nil, ErrInvalidPayload
		}
		if s.maxAnswerLength > 0 && utf8.RuneCountInString(p.AnswerText) > s.maxAnswerLength {
			return nil, ErrInvalidPayload
		}
		ans.AnswerText = p.AnswerText
	default:
		return nil, ErrInvalidPayload
	}
	return ans, nil
}

// SecurityEventInput is one client report.
type SecurityEventInput struct {
	EventType  string
	ReportedAt *time.Time
	Details    json.RawMessage
}

// RecordSecurityEvent classifies and logs an integrity event, and completes
// the attempt with SECURITY_VIOLATION once the violation limit is reached.
func (s *AttemptService) RecordSecurityEvent(ctx context.Context, studentID int, attemptID uuid.UUID, in SecurityEventInput) (*model.SecurityEventResult, error) {
	eventType := model.ParseSecurityEventType(in.EventType)
	if !KnownEventType(eventType) {
		return nil, ErrInvalidEventType
	}

	var result *model.SecurityEventResult
	_, err := s.withAttempt(ctx, student(studentID), attemptID, func(tx repository.AttemptTx, exam *model.Exam, fx *effects) error {
		a := tx.Attempt()
		policy := PolicyFor(exam)
		if !policy.Enabled {
			result = &model.SecurityEventResult{
				ViolationCount: a.SecurityViolations,
				WarningCount:   a.SecurityWarnings,
			}
			return nil
		}

		log, err := tx.ListSecurityEvents(ctx)
		if err != nil {
			return fmt.Errorf("list security events: %w", err)
		}
		severity, err := policy.Classify(eventType, log)
		if err != nil {
			return err
		}

		now := s.now()
		ev := &model.SecurityEvent{
			EventType:  eventType,
			Severity:   severity,
			ReportedAt: in.ReportedAt,
			RecordedAt: now,
			Details:    in.Details,
		}
		if err := tx.AppendSecurityEvent(ctx, ev); err != nil {
			return err
		}

		if severity == model.SeverityViolation {
			a.SecurityViolations++
		} else {
			a.SecurityWarnings++
		}

		result = &model.SecurityEventResult{
			ViolationCount: a.SecurityViolations,
			WarningCount:   a.SecurityWarnings,
			Severity:       &severity,
			Recorded:       true,
		}
		fx.emit(model.MonitorSecurityEvent, a, ev, now)

		if severity == model.SeverityViolation && policy.ThresholdReached(a.SecurityViolations) {
			result.AutoSubmitted = true
			_, err := s.finish(ctx, tx, exam, a, model.CompletionSecurityViolation, fx)
			return err
		}
		return tx.UpdateAttempt(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	if result.Severity != nil {
		metrics.SecurityEvents.WithLabelValues(string(*result.Severity)).Inc()
		s.log.Warn().
			Str("attempt_id", attemptID.String()).
			Str("event_type", string(eventType)).
			Str("severity", string(*result.Severity)).
			Int("violations", result.ViolationCount).
			Bool("auto_submitted", result.AutoSubmitted).
			Msg("Security event recorded")
	}
	return result, nil
}

// Complete finishes the attempt on the student's request. Only VOLUNTARY
// may be asked for; TIME_EXPIRED and SECURITY_VIOLATION are recorded by the
// engine itself. A student submitting after the deadline gets the
// TIME_EXPIRED final state instead of an error.
func (s *AttemptService) Complete(ctx context.Context, studentID int, attemptID uuid.UUID, reason model.CompletionReason) (*model.FinalState, error) {
	if reason == "" {
		reason = model.CompletionVoluntary
	}
	if reason != model.CompletionVoluntary {
		return nil, ErrInvalidReason
	}

	var final *model.FinalState
	fx, err := s.withAttempt(ctx, student(studentID), attemptID, func(tx repository.AttemptTx, exam *model.Exam, fx *effects) error {
		var err error
		final, err = s.finish(ctx, tx, exam, tx.Attempt(), reason, fx)
		return err
	})
	if errors.Is(err, ErrTimeExpired) && fx != nil && fx.final != nil {
		return fx.final, nil
	}
	if err != nil {
		return nil, err
	}
	return final, nil
}

// finish is the single in_progress -> completed transition. It closes the
// active section, finalizes blank manual answers as zero, and scores what is
// graded so far.
func (s *AttemptService) finish(ctx context.Context, tx repository.AttemptTx, exam *model.Exam, a *model.Attempt, reason model.CompletionReason, fx *effects) (*model.FinalState, error) {
	now := s.now()

	if a.CurrentSectionID != nil {
		if err := s.closeSection(ctx, tx, exam, *a.CurrentSectionID, now); err != nil {
			return nil, err
		}
	}

	answers, err := tx.ListAnswers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if err := finalizeBlankManual(ctx, tx, exam, answers, now); err != nil {
		return nil, err
	}

	res := ComputeScore(exam, answers)
	a.CompletedAt = &now
	a.CompletionReason = &reason
	applyScore(a, res)
	if err := tx.UpdateAttempt(ctx, a); err != nil {
		return nil, err
	}

	final := &model.FinalState{
		AttemptID:      a.ID,
		CompletedAt:    now,
		Reason:         reason,
		Score:          res.Score,
		Passed:         a.Passed,
		IsGraded:       a.IsGraded,
		EarnedPoints:   res.EarnedPoints,
		TotalPoints:    res.TotalPoints,
		PendingManual:  res.PendingManual,
		SecurityEvents: a.SecurityViolations,
	}
	fx.completed = a.Clone()
	fx.emit(model.MonitorAttemptCompleted, a, final, now)
	return final, nil
}

// finalizeBlankManual grades empty manual answers as zero so they never hold
// the attempt in pending state. answers is updated in place.
func finalizeBlankManual(ctx context.Context, tx repository.AttemptTx, exam *model.Exam, answers []model.Answer, now time.Time) error {
	for i := range answers {
		ans := &answers[i]
		if ans.IsGraded || ans.HasText() {
			continue
		}
		q, ok := exam.Question(ans.QuestionID)
		if !ok || !q.QuestionType.IsManual() {
			continue
		}
		zero := 0.0
		ans.Score = &zero
		ans.IsGraded = true
		ans.GradedAt = &now
		if err := tx.UpdateAnswer(ctx, ans); err != nil {
			return fmt.Errorf("finalize blank answer: %w", err)
		}
	}
	return nil
}

// GetState returns the student-facing view used to render or reload the
// exam page.
func (s *AttemptService) GetState(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.AttemptState, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}

	exam, err := s.exams.GetExam(ctx, a.ExamID)
	if err != nil {
		return nil, err
	}

	if a.InProgress() && s.pastDeadline(a, exam) {
		if _, err := s.withAttempt(ctx, student(studentID), attemptID, nil); err != nil &&
			!errors.Is(err, ErrAttemptNotInProgress) {
			return nil, err
		}
		if a, err = s.store.GetAttempt(ctx, attemptID); err != nil {
			return nil, fmt.Errorf("reload attempt: %w", err)
		}
	}

	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	now := s.now()
	deadline := a.Deadline(exam)
	state := &model.AttemptState{
		Attempt:   a,
		Status:    a.Status(),
		ExamTitle: exam.Title,
		Deadline:  deadline,
		Questions: make([]model.QuestionForStudent, 0, len(exam.Questions)),
		Answers:   make([]model.SavedAnswer, 0, len(answers)),
	}
	if a.InProgress() {
		if left := deadline.Sub(now); left > 0 {
			state.RemainingSeconds = int(left / time.Second)
		}
	}
	for i, q := range PresentationOrder(exam, a) {
		state.Questions = append(state.Questions, q.ForStudent(i+1))
	}
	for i := range answers {
		state.Answers = append(state.Answers, answers[i].Saved())
	}

	if a.InProgress() && a.CurrentSectionID != nil {
		sections, err := s.store.ListSectionAttempts(ctx, attemptID)
		if err != nil {
			return nil, fmt.Errorf("list section attempts: %w", err)
		}
		for i := range sections {
			sa := &sections[i]
			if sa.SectionID != *a.CurrentSectionID || !sa.Active() {
				continue
			}
			if section, ok := exam.Section(sa.SectionID); ok {
				state.ActiveSection = &model.SectionState{
					SectionID:        section.ID,
					Title:            section.Title,
					Position:         section.Position,
					StartedAt:        sa.StartedAt,
					RemainingSeconds: sa.RemainingAt(section.Duration(), now),
					Resumed:          true,
				}
			}
		}
	}
	return state, nil
}

// SecurityLog returns an attempt's security events in recording order.
func (s *AttemptService) SecurityLog(ctx context.Context, attemptID uuid.UUID) ([]model.SecurityEvent, error) {
	if _, err := s.store.GetAttempt(ctx, attemptID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	events, err := s.store.ListSecurityEvents(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	if events == nil {
		events = []model.SecurityEvent{}
	}
	return events, nil
}

// ExpireOverdue completes every in-progress attempt whose deadline has
// passed. Students who close the browser never trigger the lazy check, so
// this runs on a schedule.
func (s *AttemptService) ExpireOverdue(ctx context.Context) (int, error) {
	attempts, err := s.store.ListInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("list in-progress attempts: %w", err)
	}

	exams := make(map[uuid.UUID]*model.Exam)
	expired := 0
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		a := &attempts[i]
		exam, ok := exams[a.ExamID]
		if !ok {
			exam, err = s.exams.GetExam(ctx, a.ExamID)
			if err != nil {
				s.log.Warn().Err(err).Str("exam_id", a.ExamID.String()).Msg("Skipping attempts of unreadable exam")
				continue
			}
			exams[a.ExamID] = exam
		}
		if !s.pastDeadline(a, exam) {
			continue
		}

		_, err := s.withAttempt(ctx, systemActor, a.ID, nil)
		switch {
		case errors.Is(err, ErrTimeExpired):
			expired++
		case errors.Is(err, ErrAttemptNotInProgress):
			// completed by a concurrent request
		case err != nil:
			s.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to expire attempt")
		}
	}
	return expired, nil
}

// questionOrder fixes the presentation order at start. Randomized exams are
// shuffled within each section so sections stay contiguous; the shuffle is
// seeded from the attempt id so it can be reproduced.
func questionOrder(exam *model.Exam, attemptID uuid.UUID) []uuid.UUID {
	ordered := exam.OrderedQuestions()
	ids := make([]uuid.UUID, len(ordered))
	for i := range ordered {
		ids[i] = ordered[i].ID
	}
	if !exam.RandomizeQuestions || len(ids) < 2 {
		return ids
	}

	rng := rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(attemptID[:8]),
		binary.BigEndian.Uint64(attemptID[8:]),
	))

	start := 0
	for i := 1; i <= len(ordered); i++ {
		if i < len(ordered) && sameSection(&ordered[i-1], &ordered[i]) {
			continue
		}
		group := ids[start:i]
		rng.Shuffle(len(group), func(x, y int) { group[x], group[y] = group[y], group[x] })
		start = i
	}
	return ids
}

func sameSection(a, b *model.Question) bool {
	if a.SectionID == nil || b.SectionID == nil {
		return a.SectionID == nil && b.SectionID == nil
	}
	return *a.SectionID == *b.SectionID
}

// PresentationOrder lists the exam's questions in the attempt's stored order.
// Questions added after the attempt started are appended in authoring order.
func PresentationOrder(exam *model.Exam, a *model.Attempt) []model.Question {
	out := make([]model.Question, 0, len(exam.Questions))
	seen := make(map[uuid.UUID]bool, len(a.QuestionOrder))
	for _, id := range a.QuestionOrder {
		if q, ok := exam.Question(id); ok && !seen[id] {
			out = append(out, *q)
			seen[id] = true
		}
	}
	for _, q := range exam.OrderedQuestions() {
		if !seen[q.ID] {
			out = append(out, q)
		}
	}
	return out
}
