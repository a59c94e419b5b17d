package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/internal/services"
)

func TestConditionExtractor_Distance(t *testing.T) {
	extractor := services.NewConditionExtractor(newTestLogger())

	tests := []struct {
		name   string
		input  string
		value  float64
		target string
	}{
		{name: "plain yardage", input: "140 yards", value: 140, target: "pin"},
		{name: "yardage with target", input: "150 yards to the pin", value: 150, target: "pin"},
		{name: "target synonym normalized", input: "155 yards to the flag", value: 155, target: "pin"},
		{name: "no unit with target", input: "180 to the green", value: 180, target: "green"},
		{name: "yards out", input: "120 yards out", value: 120, target: "pin"},
		{name: "decimal yardage", input: "142.5 yards", value: 142.5, target: "pin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions := extractor.Parse(tt.input)
			require.NotNil(t, conditions.Distance)
			assert.Equal(t, tt.value, conditions.Distance.Value)
			assert.Equal(t, tt.target, conditions.Distance.Target)
			assert.Equal(t, "yards", conditions.Distance.Unit)
		})
	}
}

func TestConditionExtractor_Elevation(t *testing.T) {
	extractor := services.NewConditionExtractor(newTestLogger())

	tests := []struct {
		name      string
		input     string
		value     float64
		direction string
		unit      string
	}{
		{name: "number before direction", input: "20 feet uphill", value: 20, direction: "up", unit: "feet"},
		{name: "number after direction", input: "uphill by 15 feet", value: 15, direction: "up", unit: "feet"},
		{name: "bare direction defaults to zero", input: "it's downhill", value: 0, direction: "down", unit: "feet"},
		{name: "yards unit preserved", input: "10 yards downhill", value: 10, direction: "down", unit: "yards"},
		{name: "elevated means up", input: "the green is elevated", value: 0, direction: "up", unit: "feet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions := extractor.Parse(tt.input)
			require.NotNil(t, conditions.Elevation)
			assert.Equal(t, tt.value, conditions.Elevation.Value)
			assert.Equal(t, tt.direction, conditions.Elevation.Direction)
			assert.Equal(t, tt.unit, conditions.Elevation.Unit)
		})
	}
}

func TestConditionExtractor_Wind(t *testing.T) {
	extractor := services.NewConditionExtractor(newTestLogger())

	tests := []struct {
		name      string
		input     string
		speed     float64
		direction string
	}{
		{name: "speed then direction", input: "10 mph headwind", speed: 10, direction: "headwind"},
		{name: "direction then speed", input: "headwind at 15 mph", speed: 15, direction: "headwind"},
		{name: "calm beats numbers", input: "no wind today", speed: 0, direction: "none"},
		{name: "calm anywhere in text", input: "150 yards, totally calm", speed: 0, direction: "none"},
		{name: "idiom implies a breeze", input: "hitting into the wind", speed: 10, direction: "headwind"},
		{name: "downwind is tailwind", input: "playing downwind", speed: 10, direction: "tailwind"},
		{name: "bare speed is crosswind", input: "wind at 12 mph", speed: 12, direction: "crosswind"},
		{name: "side wind keeps its side", input: "12 mph wind off the left", speed: 12, direction: "left"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions := extractor.Parse(tt.input)
			require.NotNil(t, conditions.Wind)
			assert.Equal(t, tt.speed, conditions.Wind.Speed)
			assert.Equal(t, tt.direction, conditions.Wind.Direction)
		})
	}
}

func TestConditionExtractor_Lie(t *testing.T) {
	extractor := services.NewConditionExtractor(newTestLogger())

	tests := []struct {
		name  string
		input string
		lie   models.Lie
	}{
		{name: "fairway", input: "sitting in the fairway", lie: models.LieFairway},
		{name: "tee", input: "on the tee box", lie: models.LieTee},
		{name: "heavy rough before light", input: "buried in heavy rough", lie: models.LieHeavyRough},
		{name: "plain rough is light", input: "i'm in the rough", lie: models.LieLightRough},
		{name: "bunker is sand", input: "in a greenside bunker", lie: models.LieSand},
		{name: "trees are recovery", input: "stuck behind some trees", lie: models.LieRecovery},
		{name: "no lie mentioned", input: "140 yards", lie: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions := extractor.Parse(tt.input)
			assert.Equal(t, tt.lie, conditions.Lie)
		})
	}
}

func TestConditionExtractor_TemperatureAndHumidity(t *testing.T) {
	extractor := services.NewConditionExtractor(newTestLogger())

	conditions := extractor.Parse("it's 85 degrees with 60 percent humidity")
	require.NotNil(t, conditions.Temperature)
	assert.Equal(t, 85.0, conditions.Temperature.Value)
	require.NotNil(t, conditions.Humidity)
	assert.Equal(t, 60.0, conditions.Humidity.Value)
}

func TestConditionExtractor_Hazards(t *testing.T) {
	extractor := services.NewConditionExtractor(newTestLogger())

	t.Run("water with location", func(t *testing.T) {
		conditions := extractor.Parse("there's water on the left")
		require.Len(t, conditions.Hazards, 1)
		assert.Equal(t, "water", conditions.Hazards[0].Type)
		assert.Equal(t, "left", conditions.Hazards[0].Location)
	})

	t.Run("carry distance attached", func(t *testing.T) {
		conditions := extractor.Parse("water on the left, 120 to carry")
		require.Len(t, conditions.Hazards, 1)
		assert.Equal(t, 120.0, conditions.Hazards[0].ClearDistance)
	})

	t.Run("multiple hazards collected", func(t *testing.T) {
		conditions := extractor.Parse("pond in front and bunkers guarding the right")
		require.Len(t, conditions.Hazards, 2)
		assert.Equal(t, "water", conditions.Hazards[0].Type)
		assert.Equal(t, "bunker", conditions.Hazards[1].Type)
		assert.Equal(t, "right", conditions.Hazards[1].Location)
	})
}

func TestConditionExtractor_ValidateConditions(t *testing.T) {
	extractor := services.NewConditionExtractor(newTestLogger())

	tests := []struct {
		name       string
		conditions *models.GolfConditions
		wantValid  bool
		wantError  string
	}{
		{
			name:       "clean conditions",
			conditions: &models.GolfConditions{Distance: &models.DistanceCondition{Value: 150}},
			wantValid:  true,
		},
		{
			name:       "distance too far",
			conditions: &models.GolfConditions{Distance: &models.DistanceCondition{Value: 700}},
			wantError:  "Distance must be between 0 and 600 yards",
		},
		{
			name:       "wind too strong",
			conditions: &models.GolfConditions{Wind: &models.WindCondition{Speed: 60}},
			wantError:  "Wind speed must be between 0 and 50 mph",
		},
		{
			name:       "elevation in yards converted before check",
			conditions: &models.GolfConditions{Elevation: &models.ElevationCondition{Value: 40, Unit: "yards", Direction: "up"}},
			wantError:  "Elevation change must be within 100 feet",
		},
		{
			name:       "temperature out of range",
			conditions: &models.GolfConditions{Temperature: &models.TemperatureCondition{Value: 130}},
			wantError:  "Temperature must be between -20 and 120 degrees Fahrenheit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractor.ValidateConditions(tt.conditions)
			if tt.wantValid {
				assert.True(t, result.Valid)
				assert.Empty(t, result.Errors)
				return
			}
			assert.False(t, result.Valid)
			assert.Contains(t, result.Errors, tt.wantError)
		})
	}
}

func TestGolfConditions_MergeIsIdempotent(t *testing.T) {
	base := &models.GolfConditions{
		Distance: &models.DistanceCondition{Value: 140, Unit: "yards", Target: "pin"},
	}
	update := &models.GolfConditions{
		Wind: &models.WindCondition{Speed: 10, Direction: "headwind", Unit: "mph"},
	}

	once := base.Merge(update)
	twice := once.Merge(update)

	assert.Equal(t, once, twice)
	assert.Equal(t, 140.0, twice.Distance.Value)
	assert.Equal(t, 10.0, twice.Wind.Speed)
	// the inputs stay untouched
	assert.Nil(t, base.Wind)
	assert.Nil(t, update.Distance)
}

func TestGolfConditions_MergeNewerWins(t *testing.T) {
	base := &models.GolfConditions{
		Distance: &models.DistanceCondition{Value: 140, Unit: "yards", Target: "pin"},
	}
	correction := &models.GolfConditions{
		Distance: &models.DistanceCondition{Value: 160, Unit: "yards", Target: "pin"},
	}

	merged := base.Merge(correction)
	assert.Equal(t, 160.0, merged.Distance.Value)
}
