package model

import (
	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// IsManual reports whether answers of this type need a human grader.
func (t QuestionType) IsManual() bool {
	return t == QuestionTypeShortAnswer || t == QuestionTypeEssay
}

// Question represents a single exam question with its choices.
type Question struct {
	ID           uuid.UUID    `json:"id"`
	ExamID       uuid.UUID    `json:"exam_id"`
	SectionID    *uuid.UUID   `json:"section_id,omitempty"`
	QuestionType QuestionType `json:"question_type"`
	QuestionText string       `json:"question_text"`
	Points       float64      `json:"points"`
	Position     int          `json:"position"`
	Choices      []Choice     `json:"choices,omitempty"`
}

// Choice is one option of a multiple-choice question.
type Choice struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	ChoiceText string    `json:"choice_text"`
	IsCorrect  bool      `json:"is_correct"`
	Position   int       `json:"position"`
}

// Choice looks up one of the question's choices.
func (q *Question) Choice(id uuid.UUID) (*Choice, bool) {
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			return &q.Choices[i], true
		}
	}
	return nil, false
}

// InSection reports whether the question belongs to the given section.
func (q *Question) InSection(sectionID uuid.UUID) bool {
	return q.SectionID != nil && *q.SectionID == sectionID
}

// QuestionForStudent is a question without correctness data.
type QuestionForStudent struct {
	ID           uuid.UUID          `json:"id"`
	SectionID    *uuid.UUID         `json:"section_id,omitempty"`
	QuestionType QuestionType       `json:"question_type"`
	QuestionText string             `json:"question_text"`
	Points       float64            `json:"points"`
	OrderNum     int                `json:"order_num"`
	Choices      []ChoiceForStudent `json:"choices,omitempty"`
}

type ChoiceForStudent struct {
	ID         uuid.UUID `json:"id"`
	ChoiceText string    `json:"choice_text"`
}

// ForStudent strips correctness flags; orderNum is the attempt's
// presentation index, not the authoring position.
func (q *Question) ForStudent(orderNum int) QuestionForStudent {
	out := QuestionForStudent{
		ID:           q.ID,
		SectionID:    q.SectionID,
		QuestionType: q.QuestionType,
		QuestionText: q.QuestionText,
		Points:       q.Points,
		OrderNum:     orderNum,
	}
	if len(q.Choices) > 0 {
		out.Choices = make([]ChoiceForStudent, len(q.Choices))
		for i, c := range q.Choices {
			out.Choices[i] = ChoiceForStudent{ID: c.ID, ChoiceText: c.ChoiceText}
		}
	}
	return out
}
