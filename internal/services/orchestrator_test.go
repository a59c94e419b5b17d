package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/internal/services"
)

func newTestOrchestrator(speech services.SpeechProvider) *services.Orchestrator {
	return services.NewOrchestrator(newTestConfig(), speech, nil, nil, newTestLogger())
}

func TestOrchestrator_StartSession(t *testing.T) {
	orchestrator := newTestOrchestrator(services.NewMockSpeechProvider())

	resp, err := orchestrator.StartSession("", models.UserProfile{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, models.StateGreeting, resp.State)
	assert.True(t, resp.NeedsInput)
	assert.NotEmpty(t, resp.SpokenText)
	assert.Equal(t, 1, orchestrator.SessionCount())
}

func TestOrchestrator_FullConversation(t *testing.T) {
	orchestrator := newTestOrchestrator(services.NewMockSpeechProvider())

	start, err := orchestrator.StartSession("", models.UserProfile{})
	require.NoError(t, err)
	id := start.SessionID

	first, err := orchestrator.ProcessTextInput(id, "150 yards to the pin")
	require.NoError(t, err)
	assert.Equal(t, models.StateCollectingConditions, first.State)

	second, err := orchestrator.ProcessTextInput(id, "10 mph headwind")
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmingConditions, second.State)

	third, err := orchestrator.ProcessTextInput(id, "yes")
	require.NoError(t, err)
	assert.Equal(t, models.StateProvidingRecommendation, third.State)
	require.NotNil(t, third.Recommendation)
	// 150 base plus 20 for the headwind plays as 170
	assert.Equal(t, "5 iron", third.Recommendation.PrimaryClub.Name)
	assert.InDelta(t, 170, third.Recommendation.AdjustedDistance, 0.001)
}

func TestOrchestrator_UnknownSession(t *testing.T) {
	orchestrator := newTestOrchestrator(services.NewMockSpeechProvider())

	_, err := orchestrator.ProcessTextInput("no-such-session", "140 yards")
	assert.Error(t, err)
}

func TestOrchestrator_EndedSessionRefusesTurns(t *testing.T) {
	orchestrator := newTestOrchestrator(services.NewMockSpeechProvider())

	start, err := orchestrator.StartSession("", models.UserProfile{})
	require.NoError(t, err)
	id := start.SessionID

	_, err = orchestrator.ProcessTextInput(id, "goodbye")
	require.NoError(t, err)

	// ended sessions refuse further turns
	_, err = orchestrator.ProcessTextInput(id, "140 yards")
	assert.Error(t, err)
}

func TestOrchestrator_VoiceInput(t *testing.T) {
	t.Run("transcript routes through the text path", func(t *testing.T) {
		speech := services.NewMockSpeechProvider("150 yards to the pin")
		orchestrator := newTestOrchestrator(speech)

		start, err := orchestrator.StartSession("", models.UserProfile{})
		require.NoError(t, err)

		resp, err := orchestrator.ProcessVoiceInput(context.Background(), start.SessionID, []byte("audio"), "wav")
		require.NoError(t, err)
		assert.Equal(t, models.StateCollectingConditions, resp.State)
	})

	t.Run("low recognition confidence asks for a repeat", func(t *testing.T) {
		speech := services.NewMockSpeechProvider("mumble")
		speech.Confidence = 0.3
		orchestrator := newTestOrchestrator(speech)

		start, err := orchestrator.StartSession("", models.UserProfile{})
		require.NoError(t, err)

		resp, err := orchestrator.ProcessVoiceInput(context.Background(), start.SessionID, []byte("audio"), "wav")
		require.NoError(t, err)
		// the state does not move on a failed recognition
		assert.Equal(t, models.StateGreeting, resp.State)
		assert.True(t, resp.NeedsInput)
		assert.NotEmpty(t, resp.SpokenText)
	})
}

func TestOrchestrator_ResetSession(t *testing.T) {
	orchestrator := newTestOrchestrator(services.NewMockSpeechProvider())

	start, err := orchestrator.StartSession("", models.UserProfile{Verbosity: "concise"})
	require.NoError(t, err)
	id := start.SessionID

	_, err = orchestrator.ProcessTextInput(id, "150 yards to the pin")
	require.NoError(t, err)

	resp, err := orchestrator.ResetSession(id)
	require.NoError(t, err)
	assert.Equal(t, models.StateGreeting, resp.State)

	ctx, err := orchestrator.SessionContext(id)
	require.NoError(t, err)
	assert.True(t, ctx.Conditions.IsEmpty())
	assert.Equal(t, "concise", ctx.Profile.Verbosity)
}

func TestOrchestrator_EndSession(t *testing.T) {
	orchestrator := newTestOrchestrator(services.NewMockSpeechProvider())

	start, err := orchestrator.StartSession("", models.UserProfile{})
	require.NoError(t, err)

	require.NoError(t, orchestrator.EndSession(start.SessionID))
	assert.Zero(t, orchestrator.SessionCount())

	assert.Error(t, orchestrator.EndSession(start.SessionID))
	_, err = orchestrator.SessionContext(start.SessionID)
	assert.Error(t, err)
}

func TestOrchestrator_ErrorStatisticsSurviveEndedSessions(t *testing.T) {
	orchestrator := newTestOrchestrator(services.NewMockSpeechProvider())

	start, err := orchestrator.StartSession("", models.UserProfile{})
	require.NoError(t, err)
	id := start.SessionID

	_, err = orchestrator.ProcessTextInput(id, "1000 yards")
	require.NoError(t, err)
	require.NoError(t, orchestrator.EndSession(id))

	stats := orchestrator.ErrorStatistics()
	assert.Equal(t, 1, stats.TotalErrors)
	assert.Equal(t, 1, stats.CountsByKind[models.ErrInvalidValue])
}

func TestOrchestrator_ReapIdleSessions(t *testing.T) {
	cfg := newTestConfig()
	cfg.SessionIdleTimeout = time.Nanosecond
	orchestrator := services.NewOrchestrator(cfg, services.NewMockSpeechProvider(), nil, nil, newTestLogger())

	_, err := orchestrator.StartSession("", models.UserProfile{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, orchestrator.ReapIdleSessions())
	assert.Zero(t, orchestrator.SessionCount())
}

// countingRecognizer tracks how many Recognize calls overlap in time
type countingRecognizer struct {
	mu         sync.Mutex
	active     int
	maxActive  int
	transcript string
}

func (c *countingRecognizer) Recognize(_ context.Context, _ []byte, _ string) (*services.RecognitionResult, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	c.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return &services.RecognitionResult{Transcript: c.transcript, Confidence: 0.95}, nil
}

func (c *countingRecognizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}

func (c *countingRecognizer) IsHealthy() bool { return true }

func TestOrchestrator_VoiceTurnsSerializePerSession(t *testing.T) {
	recognizer := &countingRecognizer{transcript: "150 yards to the pin"}
	orchestrator := newTestOrchestrator(recognizer)

	start, err := orchestrator.StartSession("", models.UserProfile{})
	require.NoError(t, err)
	id := start.SessionID

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orchestrator.ProcessVoiceInput(context.Background(), id, []byte("audio"), "wav")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, recognizer.maxActive, "recognition calls for one session must not overlap")
}
