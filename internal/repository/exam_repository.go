package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ExamRepository reads exam definitions from PostgreSQL.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetExam loads an exam together with its sections, questions and choices.
func (r *ExamRepository) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, author_id, assessment_type, status, scheduled_start, scheduled_end,
		        duration_minutes, passing_score, has_sections, randomize_questions,
		        browser_security, allow_browser_warnings, max_violations, max_attempts,
		        created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.AuthorID, &e.AssessmentType, &e.Status, &e.ScheduledStart, &e.ScheduledEnd,
		&e.DurationMinutes, &e.PassingScore, &e.HasSections, &e.RandomizeQuestions,
		&e.BrowserSecurity, &e.AllowBrowserWarnings, &e.MaxViolations, &e.MaxAttempts,
		&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if e.Sections, err = r.listSections(ctx, id); err != nil {
		return nil, err
	}
	if e.Questions, err = r.listQuestions(ctx, id); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *ExamRepository) listSections(ctx context.Context, examID uuid.UUID) ([]model.Section, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, title, position, duration_minutes
		 FROM sections WHERE exam_id = $1 ORDER BY position`, examID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.ExamID, &s.Title, &s.Position, &s.DurationMinutes); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *ExamRepository) listQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, section_id, question_type, question_text, points, position
		 FROM questions WHERE exam_id = $1 ORDER BY position`, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	var questions []model.Question
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.SectionID, &q.QuestionType, &q.QuestionText, &q.Points, &q.Position); err != nil {
			rows.Close()
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	choiceRows, err := r.pool.Query(ctx,
		`SELECT c.id, c.question_id, c.choice_text, c.is_correct, c.position
		 FROM choices c
		 JOIN questions q ON q.id = c.question_id
		 WHERE q.exam_id = $1
		 ORDER BY c.question_id, c.position`, examID)
	if err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var c model.Choice
		if err := choiceRows.Scan(&c.ID, &c.QuestionID, &c.ChoiceText, &c.IsCorrect, &c.Position); err != nil {
			return nil, err
		}
		if i, ok := index[c.QuestionID]; ok {
			questions[i].Choices = append(questions[i].Choices, c)
		}
	}
	return questions, choiceRows.Err()
}

// ListPublishedExamIDs is used for cache prewarming on startup.
func (r *ExamRepository) ListPublishedExamIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exams WHERE status = $1 ORDER BY created_at`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
