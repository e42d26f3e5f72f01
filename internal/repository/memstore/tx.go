package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

type memTx struct {
	attempt  *model.Attempt
	answers  map[uuid.UUID]*model.Answer
	sections map[uuid.UUID]*model.SectionAttempt
	events   []model.SecurityEvent
}

func (t *memTx) Attempt() *model.Attempt { return t.attempt }

func (t *memTx) UpdateAttempt(_ context.Context, a *model.Attempt) error {
	c := a.Clone()
	c.UpdatedAt = time.Now()
	a.UpdatedAt = c.UpdatedAt
	t.attempt = c
	return nil
}

func (t *memTx) ListAnswers(_ context.Context) ([]model.Answer, error) {
	return sortedAnswers(t.answers), nil
}

func (t *memTx) UpsertAnswer(_ context.Context, a *model.Answer) error {
	now := time.Now()
	if prev, ok := t.answers[a.QuestionID]; ok {
		a.ID = prev.ID
		a.CreatedAt = prev.CreatedAt
		a.GraderFeedback = prev.GraderFeedback
		a.GradedBy = prev.GradedBy
		a.GradedAt = prev.GradedAt
	} else {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.CreatedAt = now
	}
	a.AttemptID = t.attempt.ID
	a.UpdatedAt = now
	t.answers[a.QuestionID] = a.Clone()
	return nil
}

func (t *memTx) UpdateAnswer(_ context.Context, a *model.Answer) error {
	prev, ok := t.answers[a.QuestionID]
	if !ok || prev.ID != a.ID {
		return repository.ErrNotFound
	}
	c := prev.Clone()
	c.Score = a.Score
	c.IsGraded = a.IsGraded
	c.GraderFeedback = a.GraderFeedback
	c.GradedBy = a.GradedBy
	c.GradedAt = a.GradedAt
	c.UpdatedAt = time.Now()
	t.answers[a.QuestionID] = c
	return nil
}

func (t *memTx) GetSectionAttempt(_ context.Context, sectionID uuid.UUID) (*model.SectionAttempt, error) {
	sa, ok := t.sections[sectionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sa.Clone(), nil
}

func (t *memTx) ListSectionAttempts(_ context.Context) ([]model.SectionAttempt, error) {
	return sortedSections(t.sections), nil
}

func (t *memTx) SaveSectionAttempt(_ context.Context, s *model.SectionAttempt) error {
	s.AttemptID = t.attempt.ID
	t.sections[s.SectionID] = s.Clone()
	return nil
}

func (t *memTx) AppendSecurityEvent(_ context.Context, e *model.SecurityEvent) error {
	e.AttemptID = t.attempt.ID
	e.Sequence = len(t.events) + 1
	t.events = append(t.events, *e)
	return nil
}

func (t *memTx) ListSecurityEvents(_ context.Context) ([]model.SecurityEvent, error) {
	return append([]model.SecurityEvent(nil), t.events...), nil
}
