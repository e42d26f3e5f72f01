package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// serviceErrors is checked in order; ErrTimeExpired must precede
// ErrAttemptNotInProgress because it wraps it.
var serviceErrors = []errorMapping{
	{service.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
	{service.ErrAttemptNotFound, http.StatusNotFound, response.ErrAttemptNotFound},
	{service.ErrAnswerNotFound, http.StatusNotFound, response.ErrAnswerNotFound},

	{service.ErrExamUnavailable, http.StatusForbidden, response.ErrExamNotAvailable},

	{service.ErrAttemptAlreadyInProgress, http.StatusConflict, response.ErrAttemptAlreadyActive},
	{service.ErrAttemptLimitReached, http.StatusConflict, response.ErrAttemptLimitReached},
	{service.ErrTimeExpired, http.StatusConflict, response.ErrTimeExpired},
	{service.ErrAttemptNotInProgress, http.StatusConflict, response.ErrAttemptNotInProgress},
	{service.ErrSectionAlreadyCompleted, http.StatusConflict, response.ErrSectionCompleted},
	{service.ErrSectionNotActive, http.StatusConflict, response.ErrSectionNotActive},
	{service.ErrAttemptInProgress, http.StatusConflict, response.ErrAttemptStillActive},

	{service.ErrQuestionNotInExam, http.StatusUnprocessableEntity, response.ErrQuestionNotInExam},
	{service.ErrInvalidSection, http.StatusUnprocessableEntity, response.ErrInvalidSection},
	{service.ErrAttemptMismatch, http.StatusUnprocessableEntity, response.ErrAttemptMismatch},

	{service.ErrScoreOutOfRange, http.StatusUnprocessableEntity, response.ErrScoreOutOfRange},
	{service.ErrAnswerNotManual, http.StatusUnprocessableEntity, response.ErrAnswerNotManual},
	{service.ErrInvalidChoice, http.StatusBadRequest, response.ErrInvalidChoice},
	{service.ErrInvalidPayload, http.StatusBadRequest, response.ErrInvalidAnswer},
	{service.ErrInvalidReason, http.StatusBadRequest, response.ErrInvalidReason},
	{service.ErrInvalidEventType, http.StatusBadRequest, response.ErrInvalidSecurityEvent},
}

// classify maps a service error to its HTTP status and error code.
func classify(err error) (int, response.ErrCode) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failService writes the error envelope for err. Unexpected errors are
// logged; domain errors are not.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}
