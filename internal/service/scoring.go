package service

import (
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ScoreResult is the aggregate of one attempt's graded answers.
type ScoreResult struct {
	Score         float64 `json:"score"`
	Passed        bool    `json:"passed"`
	EarnedPoints  float64 `json:"earned_points"`
	TotalPoints   float64 `json:"total_points"`
	PendingManual int     `json:"pending_manual"`
}

// Graded reports whether no manual answer is waiting for a grader.
func (r ScoreResult) Graded() bool {
	return r.PendingManual == 0
}

// ComputeScore aggregates answers against the exam's total points.
// Ungraded answers contribute zero. The result is always within [0, 100]
// and is 0 for an exam without points. Answers to questions no longer in
// the exam are ignored.
func ComputeScore(exam *model.Exam, answers []model.Answer) ScoreResult {
	res := ScoreResult{TotalPoints: exam.TotalPoints()}

	for i := range answers {
		a := &answers[i]
		q, ok := exam.Question(a.QuestionID)
		if !ok {
			continue
		}
		if a.IsGraded {
			res.EarnedPoints += clampPoints(a.EarnedPoints(), q.Points)
			continue
		}
		if q.QuestionType.IsManual() && a.HasText() {
			res.PendingManual++
		}
	}

	if res.TotalPoints > 0 {
		res.Score = 100 * res.EarnedPoints / res.TotalPoints
	}
	if math.IsNaN(res.Score) || res.Score < 0 {
		res.Score = 0
	}
	if res.Score > 100 {
		res.Score = 100
	}
	// Pass/fail uses the exact percentage; only the stored score is rounded.
	res.Passed = res.Score >= exam.PassingScore
	res.Score = math.Round(res.Score*100) / 100
	return res
}

func clampPoints(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// GradeLetter maps a percentage to a letter grade:
// A ≥ 90, B ≥ 80, C ≥ 70, D ≥ 60, otherwise F.
func GradeLetter(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// AutoGrade scores a multiple-choice selection against the current
// choice correctness.
func AutoGrade(q *model.Question, choiceID *uuid.UUID) (float64, error) {
	if choiceID == nil {
		return 0, ErrInvalidChoice
	}
	c, ok := q.Choice(*choiceID)
	if !ok {
		return 0, ErrInvalidChoice
	}
	if c.IsCorrect {
		return q.Points, nil
	}
	return 0, nil
}

// applyScore writes an aggregate onto the attempt. passed stays nil until
// every manual answer is graded.
func applyScore(a *model.Attempt, res ScoreResult) {
	score := res.Score
	a.Score = &score
	a.IsGraded = res.Graded()
	if a.IsGraded {
		passed := res.Passed
		a.Passed = &passed
	} else {
		a.Passed = nil
	}
}
