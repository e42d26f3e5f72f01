package memstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

func newAttempt(t *testing.T, s *Store, examID uuid.UUID, studentID int) *model.Attempt {
	t.Helper()
	a := &model.Attempt{ID: uuid.New(), ExamID: examID, StudentID: studentID, StartedAt: time.Now()}
	if err := s.CreateAttempt(context.Background(), a); err != nil {
		t.Fatalf("CreateAttempt: %v", err)
	}
	return a
}

func TestCreateAttemptRejectsSecondActive(t *testing.T) {
	s := New()
	examID := uuid.New()
	newAttempt(t, s, examID, 7)

	err := s.CreateAttempt(context.Background(), &model.Attempt{ID: uuid.New(), ExamID: examID, StudentID: 7, StartedAt: time.Now()})
	if !errors.Is(err, repository.ErrActiveAttemptExists) {
		t.Fatalf("expected ErrActiveAttemptExists, got %v", err)
	}

	// another student is independent
	newAttempt(t, s, examID, 8)
}

func TestWithAttemptLockDiscardsWritesOnError(t *testing.T) {
	s := New()
	a := newAttempt(t, s, uuid.New(), 1)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithAttemptLock(ctx, a.ID, func(tx repository.AttemptTx) error {
		att := tx.Attempt()
		att.SecurityViolations = 5
		if err := tx.UpdateAttempt(ctx, att); err != nil {
			return err
		}
		if err := tx.UpsertAnswer(ctx, &model.Answer{QuestionID: uuid.New(), AnswerText: "x"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.GetAttempt(ctx, a.ID)
	if got.SecurityViolations != 0 {
		t.Errorf("violations = %d, want 0 after rollback", got.SecurityViolations)
	}
	answers, _ := s.ListAnswers(ctx, a.ID)
	if len(answers) != 0 {
		t.Errorf("answers = %d, want 0 after rollback", len(answers))
	}
}

func TestUpsertAnswerKeepsIdentity(t *testing.T) {
	s := New()
	a := newAttempt(t, s, uuid.New(), 1)
	ctx := context.Background()
	qID := uuid.New()

	var firstID uuid.UUID
	for i, text := range []string{"first", "second"} {
		err := s.WithAttemptLock(ctx, a.ID, func(tx repository.AttemptTx) error {
			ans := &model.Answer{QuestionID: qID, AnswerText: text}
			if err := tx.UpsertAnswer(ctx, ans); err != nil {
				return err
			}
			if i == 0 {
				firstID = ans.ID
			} else if ans.ID != firstID {
				t.Errorf("upsert changed answer id: %s -> %s", firstID, ans.ID)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithAttemptLock: %v", err)
		}
	}

	answers, _ := s.ListAnswers(ctx, a.ID)
	if len(answers) != 1 || answers[0].AnswerText != "second" {
		t.Fatalf("answers = %+v, want one overwritten answer", answers)
	}
}

func TestSecurityEventsAreSequenced(t *testing.T) {
	s := New()
	a := newAttempt(t, s, uuid.New(), 1)
	ctx := context.Background()

	for _, typ := range []model.SecurityEventType{model.EventTabBlur, model.EventCopyAttempt, model.EventDevtoolsOpen} {
		err := s.WithAttemptLock(ctx, a.ID, func(tx repository.AttemptTx) error {
			return tx.AppendSecurityEvent(ctx, &model.SecurityEvent{EventType: typ, Severity: model.SeverityViolation})
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, _ := s.ListSecurityEvents(ctx, a.ID)
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	for i, e := range events {
		if e.Sequence != i+1 {
			t.Errorf("event %d sequence = %d", i, e.Sequence)
		}
	}
	if events[2].EventType != model.EventDevtoolsOpen {
		t.Errorf("last event = %s", events[2].EventType)
	}
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exams.json")
	examID := uuid.New()
	body := `[{"id":"` + examID.String() + `","title":"Seeded","status":"PUBLISHED","duration_minutes":30,
	"questions":[{"id":"` + uuid.NewString() + `","question_type":"ESSAY","question_text":"Why?","points":5}]}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	s := New()
	n, err := s.LoadSeedFile(path)
	if err != nil || n != 1 {
		t.Fatalf("LoadSeedFile = %d, %v", n, err)
	}
	exam, err := s.GetExam(context.Background(), examID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if exam.TotalPoints() != 5 {
		t.Errorf("total points = %v, want 5", exam.TotalPoints())
	}
	ids, _ := s.ListPublishedExamIDs(context.Background())
	if len(ids) != 1 || ids[0] != examID {
		t.Errorf("published ids = %v", ids)
	}
}

func TestWithAttemptLockUnknownAttempt(t *testing.T) {
	err := New().WithAttemptLock(context.Background(), uuid.New(), func(repository.AttemptTx) error { return nil })
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
