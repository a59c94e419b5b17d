package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/internal/services"
	"github.com/stitts-dev/voice-caddie/internal/websocket"
)

// SessionHandler exposes the conversation lifecycle over HTTP
type SessionHandler struct {
	orchestrator *services.Orchestrator
	hub          *websocket.Hub
	logger       *logrus.Logger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(orchestrator *services.Orchestrator, hub *websocket.Hub, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		orchestrator: orchestrator,
		hub:          hub,
		logger:       logger,
	}
}

// StartSessionRequest is the payload for creating a session
type StartSessionRequest struct {
	UserID     string `json:"user_id"`
	SkillLevel string `json:"skill_level"`
	Units      string `json:"units"`
	Verbosity  string `json:"verbosity"`
}

// TextInputRequest is one typed turn
type TextInputRequest struct {
	Text string `json:"text" binding:"required"`
}

// VoiceInputRequest is one spoken turn, audio base64-encoded
type VoiceInputRequest struct {
	Audio  string `json:"audio" binding:"required"`
	Format string `json:"format"`
}

// StartSession handles POST /api/v1/sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	profile := models.UserProfile{
		SkillLevel: req.SkillLevel,
		Units:      req.Units,
		Verbosity:  req.Verbosity,
	}

	resp, err := h.orchestrator.StartSession(req.UserID, profile)
	if err != nil {
		h.logger.WithError(err).Error("Failed to start session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// TextInput handles POST /api/v1/sessions/:session_id/text
func (h *SessionHandler) TextInput(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req TextInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing text field"})
		return
	}

	resp, err := h.orchestrator.ProcessTextInput(sessionID, req.Text)
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Warn("Text turn failed")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.publishTurn(sessionID, req.Text, resp)
	c.JSON(http.StatusOK, resp)
}

// VoiceInput handles POST /api/v1/sessions/:session_id/voice
func (h *SessionHandler) VoiceInput(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req VoiceInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing audio field"})
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio must be base64 encoded"})
		return
	}
	format := req.Format
	if format == "" {
		format = "wav"
	}

	resp, err := h.orchestrator.ProcessVoiceInput(c.Request.Context(), sessionID, audio, format)
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Warn("Voice turn failed")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.publishTurn(sessionID, "", resp)
	c.JSON(http.StatusOK, resp)
}

// ResetSession handles POST /api/v1/sessions/:session_id/reset
func (h *SessionHandler) ResetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	resp, err := h.orchestrator.ResetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.publishTurn(sessionID, "", resp)
	c.JSON(http.StatusOK, resp)
}

// EndSession handles DELETE /api/v1/sessions/:session_id
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if err := h.orchestrator.EndSession(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToSession(sessionID, websocket.TurnEvent{
			Type:      "session_ended",
			SessionID: sessionID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended", "session_id": sessionID})
}

// GetSession handles GET /api/v1/sessions/:session_id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	ctx, err := h.orchestrator.SessionContext(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ctx)
}

// ErrorStatistics handles GET /api/v1/errors/statistics
func (h *SessionHandler) ErrorStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.ErrorStatistics())
}

// publishTurn pushes the turn result to websocket listeners
func (h *SessionHandler) publishTurn(sessionID, userText string, resp *models.TurnResponse) {
	if h.hub == nil {
		return
	}
	event := websocket.TurnEvent{
		Type:       "turn",
		SessionID:  sessionID,
		UserText:   userText,
		CaddieText: resp.SpokenText,
		State:      string(resp.State),
	}
	if resp.Recommendation != nil {
		event.Type = "recommendation"
		event.Payload = resp.Recommendation
	}
	h.hub.BroadcastToSession(sessionID, event)
}
