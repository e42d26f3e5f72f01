// Package memstore is an in-process AttemptStore and QuestionBank. It backs
// the memory store driver and the service tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

type attemptRecord struct {
	attempt  *model.Attempt
	answers  map[uuid.UUID]*model.Answer // keyed by question id
	sections map[uuid.UUID]*model.SectionAttempt
	events   []model.SecurityEvent
}

// Store keeps everything in maps guarded by one RWMutex. Attempt
// transactions additionally hold a per-attempt mutex for their whole run.
type Store struct {
	mu       sync.RWMutex
	exams    map[uuid.UUID]*model.Exam
	attempts map[uuid.UUID]*attemptRecord
	locks    map[uuid.UUID]*sync.Mutex
}

var (
	_ repository.AttemptStore = (*Store)(nil)
	_ repository.QuestionBank = (*Store)(nil)
)

func New() *Store {
	return &Store{
		exams:    make(map[uuid.UUID]*model.Exam),
		attempts: make(map[uuid.UUID]*attemptRecord),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// PutExam stores or replaces an exam definition.
func (s *Store) PutExam(e *model.Exam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[e.ID] = cloneExam(e)
}

// LoadSeedFile reads a JSON array of exams and stores each one.
func (s *Store) LoadSeedFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var exams []model.Exam
	if err := json.Unmarshal(raw, &exams); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range exams {
		s.PutExam(&exams[i])
	}
	return len(exams), nil
}

func cloneExam(e *model.Exam) *model.Exam {
	c := *e
	c.Sections = append([]model.Section(nil), e.Sections...)
	c.Questions = make([]model.Question, len(e.Questions))
	for i, q := range e.Questions {
		q.Choices = append([]model.Choice(nil), q.Choices...)
		c.Questions[i] = q
	}
	return &c
}

func (s *Store) GetExam(_ context.Context, examID uuid.UUID) (*model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exams[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneExam(e), nil
}

func (s *Store) ListPublishedExamIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uuid.UUID
	for id, e := range s.exams {
		if e.IsPublished() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (s *Store) CreateAttempt(_ context.Context, a *model.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.attempts {
		if rec.attempt.ExamID == a.ExamID && rec.attempt.StudentID == a.StudentID && rec.attempt.InProgress() {
			return repository.ErrActiveAttemptExists
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.UpdatedAt = a.StartedAt
	s.attempts[a.ID] = &attemptRecord{
		attempt:  a.Clone(),
		answers:  make(map[uuid.UUID]*model.Answer),
		sections: make(map[uuid.UUID]*model.SectionAttempt),
	}
	s.locks[a.ID] = &sync.Mutex{}
	return nil
}

func (s *Store) GetAttempt(_ context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attempts[attemptID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.attempt.Clone(), nil
}

func (s *Store) FindActiveAttempt(_ context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.attempts {
		a := rec.attempt
		if a.ExamID == examID && a.StudentID == studentID && a.InProgress() {
			return a.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CountAttempts(_ context.Context, examID uuid.UUID, studentID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.attempts {
		if rec.attempt.ExamID == examID && rec.attempt.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (s *Store) listAttempts(match func(*model.Attempt) bool) []model.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Attempt
	for _, rec := range s.attempts {
		if match(rec.attempt) {
			out = append(out, *rec.attempt.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (s *Store) ListInProgress(_ context.Context) ([]model.Attempt, error) {
	return s.listAttempts(func(a *model.Attempt) bool { return a.InProgress() }), nil
}

func (s *Store) ListCompletedByExam(_ context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	return s.listAttempts(func(a *model.Attempt) bool {
		return a.ExamID == examID && !a.InProgress()
	}), nil
}

func (s *Store) GetAnswer(_ context.Context, answerID uuid.UUID) (*model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.attempts {
		for _, a := range rec.answers {
			if a.ID == answerID {
				return a.Clone(), nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func sortedAnswers(m map[uuid.UUID]*model.Answer) []model.Answer {
	out := make([]model.Answer, 0, len(m))
	for _, a := range m {
		out = append(out, *a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *Store) ListAnswers(_ context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attempts[attemptID]
	if !ok {
		return nil, nil
	}
	return sortedAnswers(rec.answers), nil
}

func (s *Store) ListUngradedAnswersByExam(_ context.Context, examID uuid.UUID) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Answer
	for _, rec := range s.attempts {
		if rec.attempt.ExamID != examID || rec.attempt.InProgress() {
			continue
		}
		for _, a := range sortedAnswers(rec.answers) {
			if !a.IsGraded {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func sortedSections(m map[uuid.UUID]*model.SectionAttempt) []model.SectionAttempt {
	out := make([]model.SectionAttempt, 0, len(m))
	for _, sa := range m {
		out = append(out, *sa.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (s *Store) ListSectionAttempts(_ context.Context, attemptID uuid.UUID) ([]model.SectionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attempts[attemptID]
	if !ok {
		return nil, nil
	}
	return sortedSections(rec.sections), nil
}

func (s *Store) ListSecurityEvents(_ context.Context, attemptID uuid.UUID) ([]model.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attempts[attemptID]
	if !ok {
		return nil, nil
	}
	return append([]model.SecurityEvent(nil), rec.events...), nil
}

// WithAttemptLock stages every write in a private copy and swaps it in
// only when fn succeeds.
func (s *Store) WithAttemptLock(ctx context.Context, attemptID uuid.UUID, fn func(tx repository.AttemptTx) error) error {
	s.mu.RLock()
	lock, ok := s.locks[attemptID]
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	rec := s.attempts[attemptID]
	tx := &memTx{
		attempt:  rec.attempt.Clone(),
		answers:  make(map[uuid.UUID]*model.Answer, len(rec.answers)),
		sections: make(map[uuid.UUID]*model.SectionAttempt, len(rec.sections)),
		events:   append([]model.SecurityEvent(nil), rec.events...),
	}
	for k, v := range rec.answers {
		tx.answers[k] = v.Clone()
	}
	for k, v := range rec.sections {
		tx.sections[k] = v.Clone()
	}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.attempts[attemptID] = &attemptRecord{
		attempt:  tx.attempt,
		answers:  tx.answers,
		sections: tx.sections,
		events:   tx.events,
	}
	s.mu.Unlock()
	return nil
}
