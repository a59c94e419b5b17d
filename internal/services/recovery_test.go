package services_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/internal/services"
)

func newTestRecovery(maxRetries int, verbose bool) *services.ErrorRecoveryEngine {
	return services.NewErrorRecoveryEngine(maxRetries, verbose, newTestPersonality(), newTestLogger())
}

func TestErrorRecoveryEngine_GiveUpAfterMaxRetries(t *testing.T) {
	for _, kind := range models.AllErrorKinds {
		t.Run(string(kind), func(t *testing.T) {
			engine := newTestRecovery(3, false)
			response := engine.HandleError(models.ErrorContext{
				Kind:          kind,
				OriginalInput: "mumble",
				AttemptNumber: 3,
			})
			assert.False(t, response.ShouldRetry)
			assert.Contains(t, response.Suggestions, "say start over")
		})
	}
}

func TestErrorRecoveryEngine_StrategiesDoNotRepeat(t *testing.T) {
	engine := newTestRecovery(5, false)

	first := engine.HandleError(models.ErrorContext{Kind: models.ErrAmbiguousInput, AttemptNumber: 1})
	second := engine.HandleError(models.ErrorContext{Kind: models.ErrAmbiguousInput, AttemptNumber: 2})

	assert.True(t, first.ShouldRetry)
	assert.True(t, second.ShouldRetry)
	assert.NotEqual(t, first.Suggestions, second.Suggestions)

	// with every strategy already used the engine falls back rather than failing
	third := engine.HandleError(models.ErrorContext{Kind: models.ErrAmbiguousInput, AttemptNumber: 3})
	assert.True(t, third.ShouldRetry)
	assert.NotEmpty(t, third.Message)
}

func TestErrorRecoveryEngine_VerboseEchoesInput(t *testing.T) {
	engine := newTestRecovery(3, true)

	response := engine.HandleError(models.ErrorContext{
		Kind:          models.ErrAmbiguousInput,
		OriginalInput: "one forty something",
		AttemptNumber: 1,
	})
	assert.Contains(t, response.Message, `(I heard: "one forty something")`)
}

func TestErrorRecoveryEngine_AttemptAnnotation(t *testing.T) {
	engine := newTestRecovery(5, false)

	first := engine.HandleError(models.ErrorContext{Kind: models.ErrMissingInformation, AttemptNumber: 1})
	assert.NotContains(t, first.Message, "attempt")

	second := engine.HandleError(models.ErrorContext{Kind: models.ErrMissingInformation, AttemptNumber: 2})
	assert.Contains(t, second.Message, "(attempt 2)")
}

func TestErrorRecoveryEngine_SuggestCorrections(t *testing.T) {
	engine := newTestRecovery(3, false)
	candidates := []string{"fairway", "rough", "sand", "tee", "trees"}

	t.Run("close misspelling ranks its target first", func(t *testing.T) {
		suggestions := engine.SuggestCorrections("fairwai", candidates)
		require.NotEmpty(t, suggestions)
		assert.Equal(t, "fairway", suggestions[0])
	})

	t.Run("at most three suggestions", func(t *testing.T) {
		suggestions := engine.SuggestCorrections("sand", []string{"sand", "sands", "stand", "band", "sank"})
		assert.LessOrEqual(t, len(suggestions), 3)
	})

	t.Run("nothing similar yields nothing", func(t *testing.T) {
		suggestions := engine.SuggestCorrections("xylophone", candidates)
		assert.Empty(t, suggestions)
	})
}

func TestErrorRecoveryEngine_DetectPotentialErrors(t *testing.T) {
	engine := newTestRecovery(3, false)

	tests := []struct {
		name string
		text string
		kind models.ErrorKind
	}{
		{name: "too many numbers", text: "maybe 140 or 150 or 160", kind: models.ErrAmbiguousInput},
		{name: "mixed units", text: "20 feet or was it 20 yards", kind: models.ErrConflictingConditions},
		{name: "implausible number", text: "700 out", kind: models.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected := engine.DetectPotentialErrors(tt.text, nil)
			require.NotEmpty(t, detected)
			kinds := make([]models.ErrorKind, 0, len(detected))
			for _, d := range detected {
				kinds = append(kinds, d.Kind)
			}
			assert.Contains(t, kinds, tt.kind)
		})
	}

	t.Run("clean input detects nothing", func(t *testing.T) {
		assert.Empty(t, engine.DetectPotentialErrors("150 yards to the pin", nil))
	})
}

func TestErrorRecoveryEngine_Statistics(t *testing.T) {
	engine := newTestRecovery(5, false)

	for attempt := 1; attempt <= 2; attempt++ {
		engine.HandleError(models.ErrorContext{Kind: models.ErrAmbiguousInput, AttemptNumber: attempt, Confidence: 0.4})
	}
	engine.HandleError(models.ErrorContext{Kind: models.ErrInvalidValue, AttemptNumber: 1, Confidence: 0.8})

	stats := engine.GetErrorStatistics()
	assert.Equal(t, 3, stats.TotalErrors)
	assert.Equal(t, 2, stats.CountsByKind[models.ErrAmbiguousInput])
	assert.Equal(t, 1, stats.CountsByKind[models.ErrInvalidValue])
	assert.InDelta(t, (0.4+0.4+0.8)/3, stats.MeanConfidence, 0.001)
	assert.Equal(t, 2, stats.EstimatedSessions)
	assert.Greater(t, stats.SuccessRate, 0.0)
}

func TestErrorRecoveryEngine_EmptyStatistics(t *testing.T) {
	engine := newTestRecovery(3, false)

	stats := engine.GetErrorStatistics()
	assert.Zero(t, stats.TotalErrors)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestErrorRecoveryEngine_HistoryIsBounded(t *testing.T) {
	engine := newTestRecovery(100, false)

	for i := 0; i < 80; i++ {
		engine.HandleError(models.ErrorContext{
			Kind:          models.ErrAmbiguousInput,
			OriginalInput: fmt.Sprintf("garble %d", i),
			AttemptNumber: 1,
		})
	}
	assert.Len(t, engine.History(), 50)
}
