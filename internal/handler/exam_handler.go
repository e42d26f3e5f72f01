package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

// ExamHandler exposes the read-only exam definitions to admins.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// GetExam godoc
// GET /api/v1/admin/exams/:id
// Returns the full definition, answer key included, as attempts see it.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), examID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"summary": exam.Summary(),
		"exam":    exam,
	})
}

// RefreshCache godoc
// POST /api/v1/admin/exams/:id/refresh-cache
// Reloads the definition after authoring changes. Running attempts pick up
// the new definition on their next request.
func (h *ExamHandler) RefreshCache(c *gin.Context) {
	examID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.RefreshCache(c.Request.Context(), examID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": exam.Summary()})
}
