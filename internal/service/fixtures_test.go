package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu      sync.Mutex
	events  []model.MonitorEvent
	results []model.Attempt
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.MonitorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) EnqueueResult(_ context.Context, a *model.Attempt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, *a)
}

func (p *recordingPublisher) count(typ string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	store    *memstore.Store
	clock    *fakeClock
	pub      *recordingPublisher
	attempts *AttemptService
	grading  *GradingService
	exam     *model.Exam
}

func newFixture(t *testing.T, exam *model.Exam) *fixture {
	t.Helper()
	store := memstore.New()
	store.PutExam(exam)

	clk := newClock()
	pub := &recordingPublisher{}
	exams := NewExamService(store, nil, time.Minute, zerolog.Nop())
	attempts := NewAttemptService(store, exams, pub, 1000, zerolog.Nop())
	attempts.now = clk.Now
	grading := NewGradingService(store, exams, pub, zerolog.Nop())
	grading.now = clk.Now

	return &fixture{
		store:    store,
		clock:    clk,
		pub:      pub,
		attempts: attempts,
		grading:  grading,
		exam:     exam,
	}
}

func (f *fixture) start(t *testing.T, studentID int) *model.Attempt {
	t.Helper()
	a, err := f.attempts.Start(context.Background(), studentID, f.exam.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return a
}

func (f *fixture) choose(t *testing.T, studentID int, a *model.Attempt, q *model.Question, correct bool) *model.Answer {
	t.Helper()
	var choice uuid.UUID
	for _, c := range q.Choices {
		if c.IsCorrect == correct {
			choice = c.ID
			break
		}
	}
	ans, err := f.attempts.SubmitAnswer(context.Background(), studentID, a.ID, q.ID, model.AnswerPayload{SelectedChoiceID: &choice})
	if err != nil {
		t.Fatalf("SubmitAnswer(%s): %v", q.ID, err)
	}
	return ans
}

func (f *fixture) write(t *testing.T, studentID int, a *model.Attempt, q *model.Question, text string) *model.Answer {
	t.Helper()
	ans, err := f.attempts.SubmitAnswer(context.Background(), studentID, a.ID, q.ID, model.AnswerPayload{AnswerText: text})
	if err != nil {
		t.Fatalf("SubmitAnswer(%s): %v", q.ID, err)
	}
	return ans
}

func newExam(opts ...func(*model.Exam)) *model.Exam {
	e := &model.Exam{
		ID:              uuid.New(),
		Title:           "Physics Midterm",
		AssessmentType:  model.AssessmentTypeExam,
		Status:          model.ExamStatusPublished,
		DurationMinutes: 60,
		PassingScore:    50,
		MaxViolations:   3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func addMC(e *model.Exam, points float64, sectionID *uuid.UUID) *model.Question {
	qID := uuid.New()
	q := model.Question{
		ID:           qID,
		ExamID:       e.ID,
		SectionID:    sectionID,
		QuestionType: model.QuestionTypeMultipleChoice,
		QuestionText: "Pick one",
		Points:       points,
		Position:     len(e.Questions) + 1,
		Choices: []model.Choice{
			{ID: uuid.New(), QuestionID: qID, ChoiceText: "right", IsCorrect: true, Position: 1},
			{ID: uuid.New(), QuestionID: qID, ChoiceText: "wrong", Position: 2},
		},
	}
	e.Questions = append(e.Questions, q)
	return &e.Questions[len(e.Questions)-1]
}

func addManual(e *model.Exam, typ model.QuestionType, points float64, sectionID *uuid.UUID) *model.Question {
	e.Questions = append(e.Questions, model.Question{
		ID:           uuid.New(),
		ExamID:       e.ID,
		SectionID:    sectionID,
		QuestionType: typ,
		QuestionText: "Explain",
		Points:       points,
		Position:     len(e.Questions) + 1,
	})
	return &e.Questions[len(e.Questions)-1]
}

func addSection(e *model.Exam, minutes int) uuid.UUID {
	e.HasSections = true
	s := model.Section{
		ID:              uuid.New(),
		ExamID:          e.ID,
		Title:           "Part",
		Position:        len(e.Sections) + 1,
		DurationMinutes: minutes,
	}
	e.Sections = append(e.Sections, s)
	return s.ID
}

func ptr[T any](v T) *T { return &v }
