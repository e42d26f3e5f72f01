package service

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

func graded(q *model.Question, score float64) model.Answer {
	return model.Answer{ID: uuid.New(), QuestionID: q.ID, Score: &score, IsGraded: true}
}

func TestComputeScore(t *testing.T) {
	exam := newExam()
	q1 := *addMC(exam, 1, nil)
	q2 := *addMC(exam, 1, nil)
	essay := *addManual(exam, model.QuestionTypeEssay, 5, nil)

	tests := []struct {
		name        string
		answers     []model.Answer
		wantScore   float64
		wantPassed  bool
		wantPending int
	}{
		{
			name:       "no answers",
			wantScore:  0,
			wantPassed: false,
		},
		{
			name:       "all correct",
			answers:    []model.Answer{graded(&q1, 1), graded(&q2, 1), graded(&essay, 5)},
			wantScore:  100,
			wantPassed: true,
		},
		{
			name:        "ungraded essay contributes zero",
			answers:     []model.Answer{graded(&q1, 1), graded(&q2, 1), {QuestionID: essay.ID, AnswerText: "because"}},
			wantScore:   28.57,
			wantPassed:  false,
			wantPending: 1,
		},
		{
			name:       "blank ungraded essay is not pending",
			answers:    []model.Answer{graded(&q1, 1), {QuestionID: essay.ID, AnswerText: "   "}},
			wantScore:  14.29,
			wantPassed: false,
		},
		{
			name:       "over-range score is clamped to question points",
			answers:    []model.Answer{graded(&q1, 1), graded(&q2, 1), graded(&essay, 50)},
			wantScore:  100,
			wantPassed: true,
		},
		{
			name:       "answers to removed questions are ignored",
			answers:    []model.Answer{graded(&q1, 1), graded(&model.Question{ID: uuid.New()}, 10)},
			wantScore:  14.29,
			wantPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ComputeScore(exam, tt.answers)
			if res.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", res.Score, tt.wantScore)
			}
			if res.Passed != tt.wantPassed {
				t.Errorf("passed = %v, want %v", res.Passed, tt.wantPassed)
			}
			if res.PendingManual != tt.wantPending {
				t.Errorf("pending = %d, want %d", res.PendingManual, tt.wantPending)
			}
			if res.Score < 0 || res.Score > 100 || math.IsNaN(res.Score) {
				t.Errorf("score %v outside [0,100]", res.Score)
			}
		})
	}
}

func TestComputeScorePassesOnExactPercentage(t *testing.T) {
	tests := []struct {
		name       string
		passing    float64
		wantPassed bool
	}{
		{"rounded score meets threshold but exact does not", 66.67, false},
		{"exact score above threshold", 66.66, true},
		{"threshold at exact two thirds", 200.0 / 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exam := newExam(func(e *model.Exam) { e.PassingScore = tt.passing })
			q1 := *addMC(exam, 1, nil)
			q2 := *addMC(exam, 1, nil)
			addMC(exam, 1, nil)

			res := ComputeScore(exam, []model.Answer{graded(&q1, 1), graded(&q2, 1)})
			if res.Score != 66.67 {
				t.Errorf("score = %v, want 66.67", res.Score)
			}
			if res.Passed != tt.wantPassed {
				t.Errorf("passed = %v, want %v", res.Passed, tt.wantPassed)
			}
		})
	}
}

func TestComputeScoreZeroTotalPoints(t *testing.T) {
	exam := newExam(func(e *model.Exam) { e.PassingScore = 0 })
	res := ComputeScore(exam, nil)
	if res.Score != 0 || math.IsNaN(res.Score) {
		t.Fatalf("score = %v, want 0", res.Score)
	}
	if res.TotalPoints != 0 {
		t.Fatalf("total = %v, want 0", res.TotalPoints)
	}
	if !res.Passed {
		t.Fatalf("a zero threshold passes a zero score")
	}
}

func TestComputeScoreIsIdempotent(t *testing.T) {
	exam := newExam()
	q := *addMC(exam, 3, nil)
	answers := []model.Answer{graded(&q, 3)}

	first := ComputeScore(exam, answers)
	second := ComputeScore(exam, answers)
	if first != second {
		t.Fatalf("ComputeScore not idempotent: %+v vs %+v", first, second)
	}
	if !answers[0].IsGraded || *answers[0].Score != 3 {
		t.Fatalf("ComputeScore mutated its input")
	}
}

func TestGradeLetter(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A"},
		{90, "A"},
		{89.99, "B"},
		{80, "B"},
		{79.5, "C"},
		{70, "C"},
		{60, "D"},
		{59.99, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		if got := GradeLetter(tt.score); got != tt.want {
			t.Errorf("GradeLetter(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestAutoGrade(t *testing.T) {
	exam := newExam()
	q := addMC(exam, 2, nil)
	right, wrong := q.Choices[0].ID, q.Choices[1].ID

	if got, err := AutoGrade(q, &right); err != nil || got != 2 {
		t.Errorf("correct choice = %v, %v; want 2", got, err)
	}
	if got, err := AutoGrade(q, &wrong); err != nil || got != 0 {
		t.Errorf("wrong choice = %v, %v; want 0", got, err)
	}
	if _, err := AutoGrade(q, ptr(uuid.New())); err != ErrInvalidChoice {
		t.Errorf("foreign choice err = %v, want ErrInvalidChoice", err)
	}
	if _, err := AutoGrade(q, nil); err != ErrInvalidChoice {
		t.Errorf("missing choice err = %v, want ErrInvalidChoice", err)
	}
}
