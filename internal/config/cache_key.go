package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamDefinitionKey returns the cache key for a fully loaded exam definition
// (sections, questions and choices).
func (r *CacheKeyStruct) ExamDefinitionKey(examID string) string {
	return fmt.Sprintf("exam:%s:definition", examID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

// AttemptRateKey identifies a student's security event limiter bucket for
// one attempt.
func (r *CacheKeyStruct) AttemptRateKey(studentID int, attemptID string) string {
	return fmt.Sprintf("student:%d:attempt:%s:security_events", studentID, attemptID)
}

var CacheKey = NewCacheKeyStruct()
