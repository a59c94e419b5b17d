package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/voice-caddie/pkg/config"
)

// RecognitionResult is the transcript returned by a speech backend
type RecognitionResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	DurationMs int     `json:"duration_ms"`
}

// SpeechProvider abstracts the speech-to-text and text-to-speech backend
// so the engine can run against a hosted service or a mock.
type SpeechProvider interface {
	Recognize(ctx context.Context, audio []byte, format string) (*RecognitionResult, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
	IsHealthy() bool
}

// speechRequest is the recognition payload for the hosted backends
type speechRequest struct {
	Audio    []byte `json:"audio"`
	Format   string `json:"format"`
	Language string `json:"language"`
}

type speechResponse struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	DurationMs int     `json:"duration_ms"`
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type speechError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SpeechClient talks to a hosted speech service with rate limiting,
// retries and a circuit breaker.
type SpeechClient struct {
	httpClient     *http.Client
	logger         *logrus.Logger
	apiKey         string
	baseURL        string
	provider       string
	rateLimiter    *time.Ticker
	circuitBreaker *gobreaker.CircuitBreaker
	retryAttempts  int
	mu             sync.Mutex
}

// NewSpeechClient creates a speech client from service configuration
func NewSpeechClient(cfg *config.Config, logger *logrus.Logger) *SpeechClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "speech-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("Speech API circuit breaker state changed")
		},
	})

	return &SpeechClient{
		httpClient: &http.Client{
			Timeout: cfg.SpeechTimeout,
		},
		logger:         logger,
		apiKey:         cfg.SpeechAPIKey,
		baseURL:        cfg.SpeechBaseURL,
		provider:       cfg.SpeechProvider,
		rateLimiter:    time.NewTicker(200 * time.Millisecond),
		circuitBreaker: cb,
		retryAttempts:  3,
	}
}

// Recognize transcribes an audio clip
func (c *SpeechClient) Recognize(ctx context.Context, audio []byte, format string) (*RecognitionResult, error) {
	request := speechRequest{
		Audio:    audio,
		Format:   format,
		Language: "en-US",
	}

	response, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.makeRequest(ctx, "/recognize", request)
	})
	if err != nil {
		return nil, fmt.Errorf("speech recognition request failed: %w", err)
	}

	resp := response.(*speechResponse)
	return &RecognitionResult{
		Transcript: resp.Transcript,
		Confidence: resp.Confidence,
		DurationMs: resp.DurationMs,
	}, nil
}

// Synthesize renders text as audio
func (c *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	request := synthesizeRequest{Text: text, Voice: "caddie"}

	c.mu.Lock()
	defer c.mu.Unlock()

	<-c.rateLimiter.C

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/synthesize", bytes.NewBuffer(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("synthesis failed with status %d", resp.StatusCode)
		}

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("failed to read audio body: %w", err)
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis request failed: %w", err)
	}

	return result.([]byte), nil
}

// makeRequest handles the actual HTTP request with retries
func (c *SpeechClient) makeRequest(ctx context.Context, path string, request interface{}) (*speechResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	<-c.rateLimiter.C

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			time.Sleep(backoff)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("x-speech-provider", c.provider)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var out speechResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				resp.Body.Close()
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			resp.Body.Close()
			return &out, nil
		}

		var apiErr speechError
		decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr)
		resp.Body.Close()
		if decodeErr != nil {
			lastErr = fmt.Errorf("API request failed with status %d", resp.StatusCode)
			continue
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("invalid API credentials: %s", apiErr.Message)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("bad request: %s", apiErr.Message)
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limit exceeded: %s", apiErr.Message)
		default:
			lastErr = fmt.Errorf("unexpected error (status %d): %s", resp.StatusCode, apiErr.Message)
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.retryAttempts, lastErr)
}

// IsHealthy reports whether the circuit breaker is closed
func (c *SpeechClient) IsHealthy() bool {
	return c.circuitBreaker.State() == gobreaker.StateClosed
}

// CircuitState returns the current circuit breaker state
func (c *SpeechClient) CircuitState() gobreaker.State {
	return c.circuitBreaker.State()
}

// MockSpeechProvider echoes pre-seeded transcripts for local runs and
// tests. Recognize pops transcripts in order; when the queue empties it
// returns the last one.
type MockSpeechProvider struct {
	mu          sync.Mutex
	Transcripts []string
	Confidence  float64
	index       int
}

// NewMockSpeechProvider seeds a mock with ordered transcripts
func NewMockSpeechProvider(transcripts ...string) *MockSpeechProvider {
	return &MockSpeechProvider{Transcripts: transcripts, Confidence: 0.95}
}

func (m *MockSpeechProvider) Recognize(_ context.Context, _ []byte, _ string) (*RecognitionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Transcripts) == 0 {
		return nil, fmt.Errorf("mock speech provider has no transcripts")
	}
	i := m.index
	if i >= len(m.Transcripts) {
		i = len(m.Transcripts) - 1
	}
	m.index++
	return &RecognitionResult{
		Transcript: m.Transcripts[i],
		Confidence: m.Confidence,
		DurationMs: 1200,
	}, nil
}

func (m *MockSpeechProvider) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}

func (m *MockSpeechProvider) IsHealthy() bool { return true }
