package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/internal/services"
)

// every declared example utterance must match its own template with
// high confidence
func TestGrammarEngine_TemplateExamples(t *testing.T) {
	engine := services.NewGrammarEngine(newTestLogger())

	for _, template := range engine.Templates() {
		for _, example := range template.Examples {
			t.Run(example, func(t *testing.T) {
				result := engine.ParseInput(example)
				assert.Equal(t, template.Intent, result.Intent)
				assert.GreaterOrEqual(t, result.Confidence, 0.8)
			})
		}
	}
}

func TestGrammarEngine_ParseInput(t *testing.T) {
	engine := services.NewGrammarEngine(newTestLogger())

	tests := []struct {
		name       string
		input      string
		intent     string
		confidence float64
	}{
		{name: "bare yardage", input: "140 yards", intent: models.IntentProvideConditions, confidence: 0.81},
		{name: "yardage with target", input: "150 yards to the pin", intent: models.IntentProvideConditions, confidence: 0.9},
		{name: "club question outranks conditions", input: "150 yards, what club", intent: models.IntentGetClubRecommendation, confidence: 0.9},
		{name: "simple yes", input: "yes", intent: models.IntentConfirm, confidence: 0.855},
		{name: "affirmation synonym", input: "yeah that works", intent: models.IntentConfirm, confidence: 0.855},
		{name: "simple no", input: "no", intent: models.IntentDeny, confidence: 0.855},
		{name: "start over", input: "start over", intent: models.IntentStartOver, confidence: 0.8},
		{name: "goodbye", input: "that's all", intent: models.IntentGoodbye, confidence: 0.8},
		{name: "alternative request", input: "give me another option", intent: models.IntentRequestAlternative, confidence: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ParseInput(tt.input)
			assert.Equal(t, tt.intent, result.Intent)
			assert.InDelta(t, tt.confidence, result.Confidence, 0.001)
		})
	}
}

func TestGrammarEngine_NoMatch(t *testing.T) {
	engine := services.NewGrammarEngine(newTestLogger())

	result := engine.ParseInput("purple monkey dishwasher")
	assert.Empty(t, result.Intent)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Slots)
}

func TestGrammarEngine_SlotExtraction(t *testing.T) {
	engine := services.NewGrammarEngine(newTestLogger())

	t.Run("number slots parse as floats", func(t *testing.T) {
		result := engine.ParseInput("what club for 150 yards")
		require.Equal(t, models.IntentGetClubRecommendation, result.Intent)
		assert.Equal(t, 150.0, result.Slots["distance"])
	})

	t.Run("enum synonyms normalize", func(t *testing.T) {
		result := engine.ParseInput("what do i hit at 150 yards to the flag")
		require.Equal(t, models.IntentGetClubRecommendation, result.Intent)
		assert.Equal(t, "pin", result.Slots["target"])
	})

	t.Run("affirmation normalizes to yes", func(t *testing.T) {
		result := engine.ParseInput("yep")
		require.Equal(t, models.IntentConfirm, result.Intent)
		assert.Equal(t, "yes", result.Slots["affirmation"])
	})
}

func TestGrammarEngine_DeterministicParsing(t *testing.T) {
	engine := services.NewGrammarEngine(newTestLogger())

	first := engine.ParseInput("150 yards to the pin, what club should i hit")
	for i := 0; i < 10; i++ {
		again := engine.ParseInput("150 yards to the pin, what club should i hit")
		assert.Equal(t, first.Intent, again.Intent)
		assert.Equal(t, first.Confidence, again.Confidence)
		assert.Equal(t, first.Slots, again.Slots)
	}
}

func TestPersonality_Styles(t *testing.T) {
	t.Run("professional is identity", func(t *testing.T) {
		p := services.NewPersonality("professional", 1)
		assert.Equal(t, "I recommend your 7 iron.", p.Apply("I recommend your 7 iron."))
	})

	t.Run("casual swaps fixed phrases", func(t *testing.T) {
		p := services.NewPersonality("casual", 1)
		assert.Equal(t, "I'd go with your 7 iron.", p.Apply("I recommend your 7 iron."))
	})

	t.Run("encouraging is deterministic for a fixed seed", func(t *testing.T) {
		a := services.NewPersonality("encouraging", 42)
		b := services.NewPersonality("encouraging", 42)
		for i := 0; i < 5; i++ {
			assert.Equal(t, a.Apply("Commit to the swing."), b.Apply("Commit to the swing."))
		}
	})

	t.Run("unknown style behaves as professional", func(t *testing.T) {
		p := services.NewPersonality("sarcastic", 1)
		assert.Equal(t, "Hello.", p.Apply("Hello."))
	})
}
