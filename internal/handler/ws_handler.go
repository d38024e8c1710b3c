package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
	ws "github.com/stemsi/ujian-proctor/internal/websocket"
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

// WSHandler streams violation reports and lock status for one attempt.
type WSHandler struct {
	attemptService *service.AttemptService
	lockService    *service.SessionLockService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, lockService *service.SessionLockService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		lockService:    lockService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/participant/attempts/:id/stream
// Upgrades to WebSocket for violation reports, lock status polling and submit.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	attemptID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// Ownership is checked before upgrading so a foreign attempt gets a plain 404.
	if _, err := h.attemptService.GetOwned(c.Request.Context(), attemptID, claims.UserID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failService(c, err)
		return
	}

	client := clientInfo(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("participant_id", claims.UserID).
		Int("attempt_id", attemptID).
		Logger()

	wsLog.Info().Msg("Participant connected")

	s := &attemptStream{
		h:             h,
		conn:          conn,
		log:           wsLog,
		attemptID:     attemptID,
		participantID: claims.UserID,
		client:        client,
	}

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if done := s.dispatch(&msg); done {
			return
		}
	}
}

// attemptStream holds per-connection state.
type attemptStream struct {
	h             *WSHandler
	conn          *websocket.Conn
	log           zerolog.Logger
	attemptID     int
	participantID int
	client        service.ClientInfo
}

// dispatch handles one client message. It reports true once the connection
// should be closed.
func (s *attemptStream) dispatch(msg *ws.RequestPayload) bool {
	ctx := context.Background()

	switch msg.Action {
	case ws.ActionPing:
		_ = ws.WriteJSON(s.conn, ws.EventPong, nil)

	case ws.ActionViolation:
		if strings.TrimSpace(msg.Type) == "" {
			_ = ws.WriteError(s.conn, "type is required")
			return false
		}
		a, err := s.h.attemptService.ReportViolation(ctx, service.ViolationInput{
			AttemptID:     s.attemptID,
			ParticipantID: s.participantID,
			Type:          msg.Type,
			Detail:        msg.Detail,
			Client:        s.client,
		})
		if err != nil {
			s.writeServiceError(err)
			return false
		}
		_ = ws.WriteJSON(s.conn, ws.EventViolation, ws.ViolationAck{AttemptID: a.ID, ExitAttempts: a.ExitAttempts})

	case ws.ActionStatus:
		if msg.SessionToken == "" {
			_ = ws.WriteError(s.conn, "session_token is required")
			return false
		}
		st, err := s.h.lockService.Status(ctx, msg.SessionToken, s.participantID, s.client)
		if err != nil {
			s.writeServiceError(err)
			return false
		}
		_ = ws.WriteJSON(s.conn, ws.EventStatus, st)

	case ws.ActionSubmit:
		a, err := s.h.attemptService.SubmitAnswers(ctx, s.attemptID, s.participantID, msg.Answers)
		if err != nil {
			s.writeServiceError(err)
			return false
		}
		s.log.Info().Msg("Attempt submitted over WebSocket")
		_ = ws.WriteJSON(s.conn, ws.EventFinished, gin.H{"attempt": a})
		return true

	default:
		s.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		_ = ws.WriteError(s.conn, "unknown action: "+string(msg.Action))
	}
	return false
}

func (s *attemptStream) writeServiceError(err error) {
	switch {
	case errors.Is(err, service.ErrInvalidState):
		_ = ws.WriteError(s.conn, string(response.ErrInvalidState))
	case errors.Is(err, service.ErrNotFound):
		_ = ws.WriteError(s.conn, string(response.ErrNotFound))
	case errors.Is(err, service.ErrInvalidCredentials):
		_ = ws.WriteError(s.conn, string(response.ErrInvalidCredentials))
	default:
		s.log.Error().Err(err).Msg("WebSocket action failed")
		_ = ws.WriteError(s.conn, string(response.ErrInternal))
	}
}
