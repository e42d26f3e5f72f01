package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// AttemptHandler handles the student side of taking an exam.
type AttemptHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempts
// Starts an attempt, or returns the running one with 409 so the client can resume.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	attempt, err := h.attempts.Start(c.Request.Context(), claims.UserID, examID)
	if errors.Is(err, service.ErrAttemptAlreadyInProgress) && attempt != nil {
		response.SuccessWithError(c, http.StatusConflict, response.ErrAttemptAlreadyActive,
			model.StartAttemptResponse{Attempt: attempt, Resumed: true})
		return
	}
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, model.StartAttemptResponse{Attempt: attempt})
}

// GetAttempt godoc
// GET /api/v1/student/attempts/:attempt_id
// Returns the state needed to render or reload the exam page.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	state, err := h.attempts.GetState(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// EnterSection godoc
// POST /api/v1/student/attempts/:attempt_id/sections/:section_id/enter
func (h *AttemptHandler) EnterSection(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}
	sectionID, ok := uuidParam(c, "section_id")
	if !ok {
		return
	}

	state, err := h.attempts.EnterSection(c.Request.Context(), claims.UserID, attemptID, sectionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers/:question_id
// Saves (or overwrites) the answer to one question.
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := uuidParam(c, "question_id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ans, err := h.attempts.SubmitAnswer(c.Request.Context(), claims.UserID, attemptID, questionID, req.Payload())
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, ans.Ack())
}

// ReportSecurityEvent godoc
// POST /api/v1/student/attempts/:attempt_id/security-events
// Reaching the violation limit is not an error: the body reports auto_submitted.
func (h *AttemptHandler) ReportSecurityEvent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SecurityEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attempts.RecordSecurityEvent(c.Request.Context(), claims.UserID, attemptID, service.SecurityEventInput{
		EventType:  req.EventType,
		ReportedAt: req.Timestamp,
		Details:    req.Details,
	})
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// CompleteAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/complete
// The body is optional; reason defaults to VOLUNTARY.
func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.CompleteAttemptRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	final, err := h.attempts.Complete(c.Request.Context(), claims.UserID, attemptID, req.Reason)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, final)
}

// uuidParam parses a path parameter, writing INVALID_ID on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
