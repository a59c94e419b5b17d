package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/voice-caddie/internal/services"
)

// HealthHandler reports service and dependency status
type HealthHandler struct {
	speech    services.SpeechProvider
	cache     *services.CacheService
	startedAt time.Time
	version   string
}

// NewHealthHandler creates a health handler. cache may be nil.
func NewHealthHandler(speech services.SpeechProvider, cache *services.CacheService, version string) *HealthHandler {
	return &HealthHandler{
		speech:    speech,
		cache:     cache,
		startedAt: time.Now(),
		version:   version,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "voice-caddie",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).String(),
	})
}

// Ready handles GET /ready and checks downstream dependencies
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if h.speech != nil {
		ok := h.speech.IsHealthy()
		checks["speech"] = statusWord(ok)
		healthy = healthy && ok
	}
	if h.cache != nil {
		ok := h.cache.IsHealthy()
		checks["redis"] = statusWord(ok)
		healthy = healthy && ok
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": statusWord(healthy),
		"checks": checks,
	})
}

func statusWord(ok bool) string {
	if ok {
		return "ready"
	}
	return "unavailable"
}
