package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// ExamProvider is how the attempt and grading services read exam definitions.
type ExamProvider interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
}

// ExamService fronts the question bank with a Redis cache of full exam
// definitions. Exams are immutable while attempts run, so a cached copy is
// safe to serve until it is refreshed or invalidated.
type ExamService struct {
	bank repository.QuestionBank
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewExamService creates a new ExamService. rdb may be nil.
func NewExamService(bank repository.QuestionBank, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ExamService {
	return &ExamService{
		bank: bank,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "exam_service").Logger(),
	}
}

// GetExam returns the exam definition, preferring the cache.
func (s *ExamService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, config.CacheKey.ExamDefinitionKey(examID.String())).Bytes()
		switch {
		case err == nil:
			var exam model.Exam
			if err := json.Unmarshal(data, &exam); err == nil {
				return &exam, nil
			}
			s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt exam cache entry, reloading")
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Exam cache read failed")
		}
	}

	exam, err := s.load(ctx, examID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, exam)
	return exam, nil
}

func (s *ExamService) load(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.bank.GetExam(ctx, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return exam, nil
}

func (s *ExamService) store(ctx context.Context, exam *model.Exam) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(exam)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal exam for cache")
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamDefinitionKey(exam.ID.String()), data, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Exam cache write failed")
	}
}

// Invalidate drops the cached definition so the next read hits the bank.
func (s *ExamService) Invalidate(ctx context.Context, examID uuid.UUID) error {
	if s.rdb == nil {
		return nil
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamDefinitionKey(examID.String())).Err(); err != nil {
		return fmt.Errorf("invalidate exam cache: %w", err)
	}
	return nil
}

// RefreshCache reloads the exam from the bank and re-caches it. Called after
// authoring changes.
func (s *ExamService) RefreshCache(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.load(ctx, examID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, exam)
	s.log.Info().Str("exam_id", examID.String()).Msg("Cache refreshed")
	return exam, nil
}

// PrewarmAllCaches loads all published exams into Redis on startup.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	ids, err := s.bank.ListPublishedExamIDs(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}
	if len(ids) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	warmed := 0
	for _, id := range ids {
		if _, err := s.RefreshCache(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(ids)).
		Msg("Prewarming complete")
	return nil
}
