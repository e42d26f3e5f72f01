package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// EventPublisher fans attempt activity out to proctors and downstream
// consumers. Calls happen after commit and must not fail the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.MonitorEvent)
	EnqueueResult(ctx context.Context, a *model.Attempt)
}

// NopPublisher drops everything.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.MonitorEvent) {}
func (NopPublisher) EnqueueResult(context.Context, *model.Attempt) {}

// RedisEventPublisher publishes monitor events on the exam channel and
// pushes finished attempts onto the results queue.
type RedisEventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisEventPublisher(rdb *redis.Client, log zerolog.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, ev model.MonitorEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("type", ev.Type).Msg("Failed to marshal monitor event")
		return
	}
	channel := config.CacheKey.ExamMonitorChannel(ev.ExamID.String())
	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish monitor event")
	}
}

// resultMessage is the payload consumed by the notification service.
type resultMessage struct {
	AttemptID        string     `json:"attempt_id"`
	ExamID           string     `json:"exam_id"`
	StudentID        int        `json:"student_id"`
	CompletedAt      *time.Time `json:"completed_at"`
	CompletionReason string     `json:"completion_reason,omitempty"`
	Score            *float64   `json:"score,omitempty"`
	IsGraded         bool       `json:"is_graded"`
	Passed           *bool      `json:"passed,omitempty"`
	Grade            string     `json:"grade,omitempty"`
}

func (p *RedisEventPublisher) EnqueueResult(ctx context.Context, a *model.Attempt) {
	msg := resultMessage{
		AttemptID:   a.ID.String(),
		ExamID:      a.ExamID.String(),
		StudentID:   a.StudentID,
		CompletedAt: a.CompletedAt,
		Score:       a.Score,
		IsGraded:    a.IsGraded,
		Passed:      a.Passed,
	}
	if a.CompletionReason != nil {
		msg.CompletionReason = string(*a.CompletionReason)
	}
	if a.IsGraded && a.Score != nil {
		msg.Grade = GradeLetter(*a.Score)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to marshal attempt result")
		return
	}
	if err := p.rdb.RPush(ctx, config.WorkerKey.AttemptResultsQueue, data).Err(); err != nil {
		p.log.Warn().Err(err).Str("attempt_id", msg.AttemptID).Msg("Failed to enqueue attempt result")
	}
}
