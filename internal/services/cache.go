package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
)

// CacheService mirrors session state into redis so a restarted node can
// pick up in-flight conversations and dashboards can read rollups.
type CacheService struct {
	client *redis.Client
	logger *logrus.Logger
	ctx    context.Context
}

// Cache TTL constants
const (
	SessionContextTTL     = 30 * time.Minute // matches the idle reaper window
	LastRecommendationTTL = 30 * time.Minute
	ErrorStatsTTL         = 24 * time.Hour
	TranscriptTTL         = 1 * time.Hour
)

// NewCacheService creates a new cache service instance
func NewCacheService(redisClient *redis.Client, logger *logrus.Logger) *CacheService {
	return &CacheService{
		client: redisClient,
		logger: logger,
		ctx:    context.Background(),
	}
}

// buildCacheKey constructs consistent cache keys for session state
func (c *CacheService) buildCacheKey(elements ...string) string {
	return fmt.Sprintf("voice-caddie:%s", strings.Join(elements, ":"))
}

// Set stores a value in cache with TTL
func (c *CacheService) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	err = c.client.Set(c.ctx, key, data, ttl).Err()
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to set cache value")
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ttl": ttl.String(),
	}).Debug("Cached value successfully")

	return nil
}

// Get retrieves a value from cache
func (c *CacheService) Get(key string, dest interface{}) error {
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("cache miss")
		}
		c.logger.WithError(err).WithField("key", key).Error("Failed to get cache value")
		return err
	}

	err = json.Unmarshal([]byte(data), dest)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to unmarshal cache value")
		return err
	}

	c.logger.WithField("key", key).Debug("Cache hit")
	return nil
}

// Delete removes a value from cache
func (c *CacheService) Delete(key string) error {
	err := c.client.Del(c.ctx, key).Err()
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to delete cache value")
		return err
	}
	return nil
}

// SaveSessionContext snapshots the dialogue context for a session
func (c *CacheService) SaveSessionContext(sessionID string, ctx *models.DialogueContext) error {
	key := c.buildCacheKey("session", sessionID, "context")
	return c.Set(key, ctx, SessionContextTTL)
}

// LoadSessionContext restores a previously snapshotted context
func (c *CacheService) LoadSessionContext(sessionID string) (*models.DialogueContext, error) {
	key := c.buildCacheKey("session", sessionID, "context")
	var ctx models.DialogueContext
	if err := c.Get(key, &ctx); err != nil {
		return nil, err
	}
	return &ctx, nil
}

// SaveLastRecommendation stores the most recent recommendation for a session
func (c *CacheService) SaveLastRecommendation(sessionID string, rec *models.ClubRecommendation) error {
	key := c.buildCacheKey("session", sessionID, "recommendation")
	return c.Set(key, rec, LastRecommendationTTL)
}

// SaveErrorStatistics publishes the error rollup for dashboards
func (c *CacheService) SaveErrorStatistics(stats *models.ErrorStatistics) error {
	key := c.buildCacheKey("stats", "errors")
	return c.Set(key, stats, ErrorStatsTTL)
}

// AppendTranscript records one turn of a session's transcript
func (c *CacheService) AppendTranscript(sessionID, userText, caddieText string) error {
	key := c.buildCacheKey("session", sessionID, "transcript")
	entry, err := json.Marshal(map[string]string{
		"user":   userText,
		"caddie": caddieText,
		"at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transcript entry: %w", err)
	}
	pipe := c.client.Pipeline()
	pipe.RPush(c.ctx, key, entry)
	pipe.Expire(c.ctx, key, TranscriptTTL)
	if _, err := pipe.Exec(c.ctx); err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to append transcript entry")
		return err
	}
	return nil
}

// DeleteSession removes every cached artifact for a session
func (c *CacheService) DeleteSession(sessionID string) error {
	keys := []string{
		c.buildCacheKey("session", sessionID, "context"),
		c.buildCacheKey("session", sessionID, "recommendation"),
		c.buildCacheKey("session", sessionID, "transcript"),
	}
	if err := c.client.Del(c.ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to delete session cache")
		return err
	}
	return nil
}

// IsHealthy pings redis
func (c *CacheService) IsHealthy() bool {
	return c.client.Ping(c.ctx).Err() == nil
}
