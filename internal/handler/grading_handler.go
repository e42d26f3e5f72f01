package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// GradingHandler serves the grader workflow and attempt audits.
type GradingHandler struct {
	grading  *service.GradingService
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(grading *service.GradingService, attempts *service.AttemptService, log zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading:  grading,
		attempts: attempts,
		log:      log.With().Str("component", "grading_handler").Logger(),
	}
}

// ListPendingByExam godoc
// GET /api/v1/admin/grading/exams/:exam_id/pending
func (h *GradingHandler) ListPendingByExam(c *gin.Context) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	pending, err := h.grading.ListPendingByExam(c.Request.Context(), examID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answers": pending})
}

// ListPendingByAttempt godoc
// GET /api/v1/admin/grading/attempts/:attempt_id/pending
func (h *GradingHandler) ListPendingByAttempt(c *gin.Context) {
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	pending, err := h.grading.ListPendingByAttempt(c.Request.Context(), attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answers": pending})
}

// GradeAnswer godoc
// POST /api/v1/admin/grading/answers/:answer_id
func (h *GradingHandler) GradeAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	answerID, ok := uuidParam(c, "answer_id")
	if !ok {
		return
	}

	var req model.GradeAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	update, err := h.grading.GradeAnswer(c.Request.Context(), service.GradeInput{
		AnswerID:  answerID,
		AttemptID: req.AttemptID,
		Score:     *req.Score,
		Feedback:  req.Feedback,
		GraderID:  claims.UserID,
	})
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, update)
}

// ResetGrading godoc
// POST /api/v1/admin/grading/attempts/:attempt_id/reset
func (h *GradingHandler) ResetGrading(c *gin.Context) {
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	update, err := h.grading.ResetGrading(c.Request.Context(), attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, update)
}

// GetResult godoc
// GET /api/v1/admin/grading/attempts/:attempt_id
func (h *GradingHandler) GetResult(c *gin.Context) {
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.grading.GetResult(c.Request.Context(), attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetSecurityLog godoc
// GET /api/v1/admin/attempts/:attempt_id/security-log
func (h *GradingHandler) GetSecurityLog(c *gin.Context) {
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	events, err := h.attempts.SecurityLog(c.Request.Context(), attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}
