package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
	ws "github.com/stemsi/exstem-assessment/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler carries the attempt operations over one WebSocket per attempt.
type WSHandler struct {
	attempts *service.AttemptService
	limiter  *middleware.AttemptRateLimiter
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts *service.AttemptService, limiter *middleware.AttemptRateLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		limiter:  limiter,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
// Upgrades to WebSocket for autosave, security reports and submit.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	// Ownership and state are checked before the upgrade so the client gets
	// a regular HTTP error.
	state, err := h.attempts.GetState(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if state.Status != model.AttemptStatusInProgress {
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotInProgress)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s := &attemptStream{
		h:         h,
		conn:      conn,
		studentID: claims.UserID,
		attemptID: attemptID,
		log: h.log.With().
			Int("student_id", claims.UserID).
			Str("attempt_id", attemptID.String()).
			Logger(),
	}
	s.log.Info().Msg("Student connected")
	s.run(c.Request.Context())
}

type attemptStream struct {
	h         *WSHandler
	conn      *websocket.Conn
	studentID int
	attemptID uuid.UUID
	log       zerolog.Logger
}

func (s *attemptStream) run(ctx context.Context) {
	for {
		env, err := ws.ReadEnvelope(s.conn)
		if errors.Is(err, ws.ErrMalformed) {
			ws.WriteError(s.conn, string(response.ErrInvalidPayload), err.Error())
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		var done bool
		switch env.Action {
		case ws.ActionAnswer:
			done = s.handleAnswer(ctx, env.Raw)
		case ws.ActionSecurityEvent:
			done = s.handleSecurityEvent(ctx, env.Raw)
		case ws.ActionSubmit:
			done = s.handleSubmit(ctx)
		case ws.ActionPing:
			ws.WriteEvent(s.conn, ws.EventPong, nil)
		default:
			s.log.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			ws.WriteError(s.conn, string(response.ErrInvalidPayload), "unknown action: "+string(env.Action))
		}
		if done {
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt completed"))
			return
		}
	}
}

// fail reports err to the client and tells whether the attempt is over.
func (s *attemptStream) fail(err error) bool {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Stream operation failed")
	}
	ws.WriteError(s.conn, string(code), response.GetMessage(code))
	return errors.Is(err, service.ErrAttemptNotInProgress)
}

func (s *attemptStream) handleAnswer(ctx context.Context, raw json.RawMessage) bool {
	var req ws.AnswerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(s.conn, string(response.ErrInvalidPayload), err.Error())
		return false
	}
	if fields := validator.Struct(&req); fields != nil {
		ws.WriteError(s.conn, string(response.ErrValidation), response.GetMessage(response.ErrValidation))
		return false
	}

	body := model.SubmitAnswerRequest{
		SelectedChoiceID: req.SelectedChoiceID,
		AnswerText:       req.AnswerText,
		MarkedForReview:  req.MarkedForReview,
	}
	ans, err := s.h.attempts.SubmitAnswer(ctx, s.studentID, s.attemptID, req.QuestionID, body.Payload())
	if err != nil {
		return s.fail(err)
	}
	ws.WriteEvent(s.conn, ws.EventSaved, ans.Ack())
	return false
}

func (s *attemptStream) handleSecurityEvent(ctx context.Context, raw json.RawMessage) bool {
	if !s.h.limiter.AttemptAllow(s.studentID, s.attemptID.String()) {
		ws.WriteError(s.conn, string(response.ErrRateLimitExceeded), response.GetMessage(response.ErrRateLimitExceeded))
		return false
	}

	var req ws.SecurityEventRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(s.conn, string(response.ErrInvalidPayload), err.Error())
		return false
	}
	if fields := validator.Struct(&req); fields != nil {
		ws.WriteError(s.conn, string(response.ErrValidation), response.GetMessage(response.ErrValidation))
		return false
	}

	result, err := s.h.attempts.RecordSecurityEvent(ctx, s.studentID, s.attemptID, service.SecurityEventInput{
		EventType:  req.EventType,
		ReportedAt: req.Timestamp,
		Details:    req.Details,
	})
	if err != nil {
		return s.fail(err)
	}
	ws.WriteEvent(s.conn, ws.EventSecurity, result)
	return result.AutoSubmitted
}

func (s *attemptStream) handleSubmit(ctx context.Context) bool {
	final, err := s.h.attempts.Complete(ctx, s.studentID, s.attemptID, model.CompletionVoluntary)
	if err != nil {
		return s.fail(err)
	}
	s.log.Info().
		Float64("score", final.Score).
		Bool("graded", final.IsGraded).
		Msg("Attempt submitted over stream")
	ws.WriteEvent(s.conn, ws.EventCompleted, final)
	return true
}
