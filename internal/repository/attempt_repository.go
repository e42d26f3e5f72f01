package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const attemptColumns = `id, exam_id, student_id, started_at, completed_at, completion_reason,
	score, is_graded, passed, current_section_id, security_violations, security_warnings,
	question_order, updated_at`

const answerColumns = `id, attempt_id, question_id, selected_choice_id, answer_text, score,
	is_graded, grader_feedback, graded_by, graded_at, marked_for_review, created_at, updated_at`

// queryer is satisfied by both the pool and a transaction.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AttemptRepository is the PostgreSQL AttemptStore.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	var (
		a      model.Attempt
		reason *string
	)
	err := row.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.StartedAt, &a.CompletedAt, &reason,
		&a.Score, &a.IsGraded, &a.Passed, &a.CurrentSectionID, &a.SecurityViolations, &a.SecurityWarnings,
		&a.QuestionOrder, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		r := model.CompletionReason(*reason)
		a.CompletionReason = &r
	}
	return &a, nil
}

func collectAttempts(rows pgx.Rows) ([]model.Attempt, error) {
	defer rows.Close()
	var out []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateAttempt inserts a new in-progress attempt. The partial unique index
// on (exam_id, student_id) WHERE completed_at IS NULL settles racing starts.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attempts (id, exam_id, student_id, started_at, question_order, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $4)
		 RETURNING updated_at`,
		a.ID, a.ExamID, a.StudentID, a.StartedAt, a.QuestionOrder,
	).Scan(&a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrActiveAttemptExists
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) GetAttempt(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
	return a, notFound(err)
}

// FindActiveAttempt returns the student's uncompleted attempt, or ErrNotFound.
func (r *AttemptRepository) FindActiveAttempt(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1 AND student_id = $2 AND completed_at IS NULL`, examID, studentID))
	return a, notFound(err)
}

func (r *AttemptRepository) CountAttempts(ctx context.Context, examID uuid.UUID, studentID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&n)
	return n, err
}

// ListInProgress feeds the expiry sweep.
func (r *AttemptRepository) ListInProgress(ctx context.Context) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE completed_at IS NULL ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

func (r *AttemptRepository) ListCompletedByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1 AND completed_at IS NOT NULL
		 ORDER BY started_at`, examID)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

func scanAnswer(row pgx.Row) (*model.Answer, error) {
	var a model.Answer
	err := row.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedChoiceID, &a.AnswerText, &a.Score,
		&a.IsGraded, &a.GraderFeedback, &a.GradedBy, &a.GradedAt, &a.MarkedForReview, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func listAnswers(ctx context.Context, q queryer, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := q.Query(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE attempt_id = $1 ORDER BY created_at`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AttemptRepository) GetAnswer(ctx context.Context, id uuid.UUID) (*model.Answer, error) {
	a, err := scanAnswer(r.pool.QueryRow(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE id = $1`, id))
	return a, notFound(err)
}

func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	return listAnswers(ctx, r.pool, attemptID)
}

func (r *AttemptRepository) ListUngradedAnswersByExam(ctx context.Context, examID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.attempt_id, a.question_id, a.selected_choice_id, a.answer_text, a.score,
		        a.is_graded, a.grader_feedback, a.graded_by, a.graded_at, a.marked_for_review,
		        a.created_at, a.updated_at
		 FROM answers a
		 JOIN attempts t ON t.id = a.attempt_id
		 WHERE t.exam_id = $1 AND t.completed_at IS NOT NULL AND a.is_graded = FALSE`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func listSectionAttempts(ctx context.Context, q queryer, attemptID uuid.UUID) ([]model.SectionAttempt, error) {
	rows, err := q.Query(ctx,
		`SELECT attempt_id, section_id, started_at, completed_at, remaining_seconds
		 FROM section_attempts WHERE attempt_id = $1 ORDER BY started_at`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SectionAttempt
	for rows.Next() {
		var s model.SectionAttempt
		if err := rows.Scan(&s.AttemptID, &s.SectionID, &s.StartedAt, &s.CompletedAt, &s.RemainingSeconds); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *AttemptRepository) ListSectionAttempts(ctx context.Context, attemptID uuid.UUID) ([]model.SectionAttempt, error) {
	return listSectionAttempts(ctx, r.pool, attemptID)
}

// ListSecurityEvents returns the security log in recording order.
func (r *AttemptRepository) ListSecurityEvents(ctx context.Context, attemptID uuid.UUID) ([]model.SecurityEvent, error) {
	return listSecurityEvents(ctx, r.pool, attemptID)
}

func listSecurityEvents(ctx context.Context, q queryer, attemptID uuid.UUID) ([]model.SecurityEvent, error) {
	rows, err := q.Query(ctx,
		`SELECT attempt_id, sequence, event_type, severity, reported_at, recorded_at, details
		 FROM security_events WHERE attempt_id = $1 ORDER BY sequence`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SecurityEvent
	for rows.Next() {
		var (
			e                  model.SecurityEvent
			eventType, severity string
			details            []byte
		)
		if err := rows.Scan(&e.AttemptID, &e.Sequence, &eventType, &severity, &e.ReportedAt, &e.RecordedAt, &details); err != nil {
			return nil, err
		}
		e.EventType = model.SecurityEventType(eventType)
		e.Severity = model.Severity(severity)
		e.Details = details
		out = append(out, e)
	}
	return out, rows.Err()
}

// WithAttemptLock opens a transaction, takes a row lock on the attempt with
// SELECT ... FOR UPDATE and hands the locked row to fn.
func (r *AttemptRepository) WithAttemptLock(ctx context.Context, attemptID uuid.UUID, fn func(tx AttemptTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin attempt tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a, err := scanAttempt(tx.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1 FOR UPDATE`, attemptID))
	if err != nil {
		return notFound(err)
	}

	if err := fn(&pgAttemptTx{tx: tx, attempt: a}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit attempt tx: %w", err)
	}
	return nil
}

type pgAttemptTx struct {
	tx      pgx.Tx
	attempt *model.Attempt
}

func (t *pgAttemptTx) Attempt() *model.Attempt { return t.attempt }

func (t *pgAttemptTx) UpdateAttempt(ctx context.Context, a *model.Attempt) error {
	var reason *string
	if a.CompletionReason != nil {
		s := string(*a.CompletionReason)
		reason = &s
	}
	err := t.tx.QueryRow(ctx,
		`UPDATE attempts
		 SET completed_at = $2, completion_reason = $3, score = $4, is_graded = $5, passed = $6,
		     current_section_id = $7, security_violations = $8, security_warnings = $9,
		     question_order = $10, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		a.ID, a.CompletedAt, reason, a.Score, a.IsGraded, a.Passed,
		a.CurrentSectionID, a.SecurityViolations, a.SecurityWarnings, a.QuestionOrder,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	t.attempt = a
	return nil
}

func (t *pgAttemptTx) ListAnswers(ctx context.Context) ([]model.Answer, error) {
	return listAnswers(ctx, t.tx, t.attempt.ID)
}

func (t *pgAttemptTx) UpsertAnswer(ctx context.Context, a *model.Answer) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO answers (id, attempt_id, question_id, selected_choice_id, answer_text, score,
		                      is_graded, marked_for_review, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_choice_id = EXCLUDED.selected_choice_id,
		     answer_text = EXCLUDED.answer_text,
		     score = EXCLUDED.score,
		     is_graded = EXCLUDED.is_graded,
		     marked_for_review = EXCLUDED.marked_for_review,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		a.ID, a.AttemptID, a.QuestionID, a.SelectedChoiceID, a.AnswerText, a.Score,
		a.IsGraded, a.MarkedForReview,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (t *pgAttemptTx) UpdateAnswer(ctx context.Context, a *model.Answer) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE answers
		 SET score = $2, is_graded = $3, grader_feedback = $4, graded_by = $5, graded_at = $6,
		     updated_at = NOW()
		 WHERE id = $1 AND attempt_id = $7`,
		a.ID, a.Score, a.IsGraded, a.GraderFeedback, a.GradedBy, a.GradedAt, t.attempt.ID)
	if err != nil {
		return fmt.Errorf("update answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgAttemptTx) GetSectionAttempt(ctx context.Context, sectionID uuid.UUID) (*model.SectionAttempt, error) {
	var s model.SectionAttempt
	err := t.tx.QueryRow(ctx,
		`SELECT attempt_id, section_id, started_at, completed_at, remaining_seconds
		 FROM section_attempts WHERE attempt_id = $1 AND section_id = $2`,
		t.attempt.ID, sectionID,
	).Scan(&s.AttemptID, &s.SectionID, &s.StartedAt, &s.CompletedAt, &s.RemainingSeconds)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (t *pgAttemptTx) ListSectionAttempts(ctx context.Context) ([]model.SectionAttempt, error) {
	return listSectionAttempts(ctx, t.tx, t.attempt.ID)
}

func (t *pgAttemptTx) SaveSectionAttempt(ctx context.Context, s *model.SectionAttempt) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO section_attempts (attempt_id, section_id, started_at, completed_at, remaining_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id, section_id) DO UPDATE
		 SET completed_at = EXCLUDED.completed_at,
		     remaining_seconds = EXCLUDED.remaining_seconds`,
		s.AttemptID, s.SectionID, s.StartedAt, s.CompletedAt, s.RemainingSeconds)
	if err != nil {
		return fmt.Errorf("save section attempt: %w", err)
	}
	return nil
}

func (t *pgAttemptTx) ListSecurityEvents(ctx context.Context) ([]model.SecurityEvent, error) {
	return listSecurityEvents(ctx, t.tx, t.attempt.ID)
}

func (t *pgAttemptTx) AppendSecurityEvent(ctx context.Context, e *model.SecurityEvent) error {
	// The attempt row lock serializes writers, so MAX+1 cannot race.
	err := t.tx.QueryRow(ctx,
		`INSERT INTO security_events (attempt_id, sequence, event_type, severity, reported_at, recorded_at, details)
		 SELECT $1, COALESCE(MAX(sequence), 0) + 1, $2, $3, $4, $5, $6
		 FROM security_events WHERE attempt_id = $1
		 RETURNING sequence`,
		t.attempt.ID, string(e.EventType), string(e.Severity), e.ReportedAt, e.RecordedAt, e.Details,
	).Scan(&e.Sequence)
	if err != nil {
		return fmt.Errorf("append security event: %w", err)
	}
	e.AttemptID = t.attempt.ID
	return nil
}
