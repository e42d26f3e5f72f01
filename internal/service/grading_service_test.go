package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// completedEssay starts an attempt, answers the essay and completes it.
func completedEssay(t *testing.T, f *fixture, student int, essay *model.Question) (*model.Attempt, *model.Answer) {
	t.Helper()
	a := f.start(t, student)
	ans := f.write(t, student, a, essay, "Energy is conserved because...")
	if _, err := f.attempts.Complete(context.Background(), student, a.ID, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return a, ans
}

func TestEssayGradingScenario(t *testing.T) {
	exam := newExam(func(e *model.Exam) { e.PassingScore = 60 })
	essay := addManual(exam, model.QuestionTypeEssay, 5, nil)
	f := newFixture(t, exam)
	ctx := context.Background()

	a, ans := completedEssay(t, f, studentID, essay)

	got, _ := f.store.GetAttempt(ctx, a.ID)
	if got.IsGraded || *got.Score != 0 || got.Passed != nil {
		t.Fatalf("completed essay attempt = %+v, want ungraded at 0 with no verdict", got)
	}
	if got.Status() != model.AttemptStatusPendingGrading {
		t.Fatalf("status = %s", got.Status())
	}

	pending, err := f.grading.ListPendingByAttempt(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListPendingByAttempt: %v", err)
	}
	if len(pending) != 1 || pending[0].AnswerID != ans.ID || pending[0].Points != 5 {
		t.Fatalf("pending = %+v", pending)
	}

	update, err := f.grading.GradeAnswer(ctx, GradeInput{AnswerID: ans.ID, Score: 4, Feedback: "good", GraderID: 7})
	if err != nil {
		t.Fatalf("GradeAnswer: %v", err)
	}
	if update.Score != 80 || !update.IsGraded || update.Passed == nil || !*update.Passed || update.Grade != "B" {
		t.Fatalf("update = %+v, want 80 / graded / passed / B", update)
	}

	pending, _ = f.grading.ListPendingByAttempt(ctx, a.ID)
	if len(pending) != 0 {
		t.Fatalf("graded answer still pending: %+v", pending)
	}

	stored, _ := f.store.GetAnswer(ctx, ans.ID)
	if stored.GradedBy == nil || *stored.GradedBy != 7 || stored.GraderFeedback != "good" || stored.GradedAt == nil {
		t.Fatalf("grader metadata not stored: %+v", stored)
	}
	if n := f.pub.count(model.MonitorAttemptGraded); n != 1 {
		t.Fatalf("attempt_graded published %d times, want 1", n)
	}

	result, err := f.grading.GetResult(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.Grade != "B" || result.Status != model.AttemptStatusGraded {
		t.Fatalf("result = %+v", result)
	}
}

func TestGradeAnswerOutOfRangeLeavesStateUntouched(t *testing.T) {
	exam := newExam()
	essay := addManual(exam, model.QuestionTypeEssay, 5, nil)
	f := newFixture(t, exam)
	ctx := context.Background()
	a, ans := completedEssay(t, f, studentID, essay)

	for _, score := range []float64{6, -1, math.NaN()} {
		if _, err := f.grading.GradeAnswer(ctx, GradeInput{AnswerID: ans.ID, Score: score}); !errors.Is(err, ErrScoreOutOfRange) {
			t.Fatalf("score %v: err = %v, want ErrScoreOutOfRange", score, err)
		}
	}

	stored, _ := f.store.GetAnswer(ctx, ans.ID)
	if stored.IsGraded || stored.Score != nil {
		t.Fatalf("rejected grade mutated the answer: %+v", stored)
	}
	got, _ := f.store.GetAttempt(ctx, a.ID)
	if got.IsGraded || *got.Score != 0 {
		t.Fatalf("rejected grade mutated the attempt: %+v", got)
	}
}

func TestGradeAnswerRejections(t *testing.T) {
	exam := newExam()
	mc := addMC(exam, 1, nil)
	essay := addManual(exam, model.QuestionTypeEssay, 5, nil)
	f := newFixture(t, exam)
	ctx := context.Background()

	a := f.start(t, studentID)
	mcAns := f.choose(t, studentID, a, mc, true)
	essayAns := f.write(t, studentID, a, essay, "draft")

	if _, err := f.grading.GradeAnswer(ctx, GradeInput{AnswerID: essayAns.ID, Score: 3}); !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("grading in-progress attempt err = %v, want ErrAttemptInProgress", err)
	}
	if _, err := f.attempts.Complete(ctx, studentID, a.ID, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	other := uuid.New()
	tests := []struct {
		name string
		in   GradeInput
		want error
	}{
		{"unknown answer", GradeInput{AnswerID: uuid.New(), Score: 1}, ErrAnswerNotFound},
		{"attempt mismatch", GradeInput{AnswerID: essayAns.ID, AttemptID: &other, Score: 1}, ErrAttemptMismatch},
		{"multiple choice", GradeInput{AnswerID: mcAns.ID, Score: 1}, ErrAnswerNotManual},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.grading.GradeAnswer(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	matching := a.ID
	if _, err := f.grading.GradeAnswer(ctx, GradeInput{AnswerID: essayAns.ID, AttemptID: &matching, Score: 5}); err != nil {
		t.Fatalf("GradeAnswer with matching attempt: %v", err)
	}
}

func TestRegradeOverwritesPreviousScore(t *testing.T) {
	exam := newExam()
	essay := addManual(exam, model.QuestionTypeEssay, 10, nil)
	f := newFixture(t, exam)
	ctx := context.Background()
	_, ans := completedEssay(t, f, studentID, essay)

	if _, err := f.grading.GradeAnswer(ctx, GradeInput{AnswerID: ans.ID, Score: 3}); err != nil {
		t.Fatalf("first grade: %v", err)
	}
	update, err := f.grading.GradeAnswer(ctx, GradeInput{AnswerID: ans.ID, Score: 9.5})
	if err != nil {
		t.Fatalf("regrade: %v", err)
	}
	if update.Score != 95 || update.Grade != "A" {
		t.Fatalf("update = %+v, want 95 / A", update)
	}
}

func TestResetGradingRegradesFromCurrentDefinition(t *testing.T) {
	exam := newExam()
	mc := addMC(exam, 5, nil)
	essay := addManual(exam, model.QuestionTypeEssay, 5, nil)
	f := newFixture(t, exam)
	ctx := context.Background()

	a := f.start(t, studentID)
	f.choose(t, studentID, a, mc, true)
	essayAns := f.write(t, studentID, a, essay, "answer")
	if _, err := f.attempts.Complete(ctx, studentID, a.ID, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if update, err := f.grading.GradeAnswer(ctx, GradeInput{AnswerID: essayAns.ID, Score: 5}); err != nil || update.Score != 100 {
		t.Fatalf("GradeAnswer = %+v, %v", update, err)
	}

	// The answer key was wrong: the second choice is the correct one.
	exam.Questions[0].Choices[0].IsCorrect = false
	exam.Questions[0].Choices[1].IsCorrect = true
	f.store.PutExam(exam)

	update, err := f.grading.ResetGrading(ctx, a.ID)
	if err != nil {
		t.Fatalf("ResetGrading: %v", err)
	}
	if update.Score != 0 || update.IsGraded || update.PendingManual != 1 || update.Passed != nil {
		t.Fatalf("update = %+v, want 0 / pending one essay", update)
	}

	stored, _ := f.store.GetAnswer(ctx, essayAns.ID)
	if stored.IsGraded || stored.Score != nil || stored.GradedBy != nil || stored.GraderFeedback != "" {
		t.Fatalf("essay grade not cleared: %+v", stored)
	}
	pending, _ := f.grading.ListPendingByAttempt(ctx, a.ID)
	if len(pending) != 1 {
		t.Fatalf("pending after reset = %d, want 1", len(pending))
	}
}

func TestResetGradingRejectsInProgress(t *testing.T) {
	exam := newExam()
	addMC(exam, 1, nil)
	f := newFixture(t, exam)
	a := f.start(t, studentID)

	if _, err := f.grading.ResetGrading(context.Background(), a.ID); !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("err = %v, want ErrAttemptInProgress", err)
	}
	if _, err := f.grading.ResetGrading(context.Background(), uuid.New()); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestListPendingByExamOrdering(t *testing.T) {
	exam := newExam()
	first := addManual(exam, model.QuestionTypeShortAnswer, 2, nil)
	second := addManual(exam, model.QuestionTypeEssay, 5, nil)
	f := newFixture(t, exam)
	ctx := context.Background()

	early := f.start(t, 1)
	f.write(t, 1, early, second, "later question")
	f.write(t, 1, early, first, "earlier question")
	f.clock.Advance(time.Minute)

	late := f.start(t, 2)
	f.write(t, 2, late, first, "mine")
	f.clock.Advance(time.Minute)

	inProgress := f.start(t, 3)
	f.write(t, 3, inProgress, first, "still writing")

	for _, s := range []struct {
		student int
		id      uuid.UUID
	}{{2, late.ID}, {1, early.ID}} {
		if _, err := f.attempts.Complete(ctx, s.student, s.id, ""); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}

	pending, err := f.grading.ListPendingByExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListPendingByExam: %v", err)
	}
	want := []struct {
		attempt  uuid.UUID
		question uuid.UUID
	}{
		{early.ID, first.ID},
		{early.ID, second.ID},
		{late.ID, first.ID},
	}
	if len(pending) != len(want) {
		t.Fatalf("pending = %d entries, want %d", len(pending), len(want))
	}
	for i, w := range want {
		if pending[i].AttemptID != w.attempt || pending[i].QuestionID != w.question {
			t.Fatalf("pending[%d] = %s/%s, want %s/%s", i, pending[i].AttemptID, pending[i].QuestionID, w.attempt, w.question)
		}
	}

	if _, err := f.grading.ListPendingByExam(ctx, uuid.New()); !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("unknown exam err = %v, want ErrExamNotFound", err)
	}

	inProgressPending, _ := f.grading.ListPendingByAttempt(ctx, inProgress.ID)
	if len(inProgressPending) != 0 {
		t.Fatalf("in-progress attempt listed %d pending answers", len(inProgressPending))
	}
}
