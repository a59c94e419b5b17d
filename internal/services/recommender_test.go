package services_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/internal/services"
)

func newTestRecommender(verbosity string) *services.RecommendationEngine {
	return services.NewRecommendationEngine(services.BuiltinCatalog{}, newTestPersonality(), verbosity, newTestLogger())
}

func conditionsWithDistance(yards float64) *models.GolfConditions {
	return &models.GolfConditions{
		Distance: &models.DistanceCondition{Value: yards, Unit: "yards", Target: "pin"},
	}
}

func TestRecommendationEngine_AdjustedDistance(t *testing.T) {
	engine := newTestRecommender("detailed")

	tests := []struct {
		name       string
		conditions *models.GolfConditions
		want       float64
	}{
		{
			name:       "no adjustments",
			conditions: conditionsWithDistance(150),
			want:       150,
		},
		{
			name: "headwind adds double the speed",
			conditions: func() *models.GolfConditions {
				c := conditionsWithDistance(150)
				c.Wind = &models.WindCondition{Speed: 10, Direction: "headwind", Unit: "mph"}
				return c
			}(),
			want: 170,
		},
		{
			name: "tailwind subtracts one and a half times",
			conditions: func() *models.GolfConditions {
				c := conditionsWithDistance(150)
				c.Wind = &models.WindCondition{Speed: 10, Direction: "tailwind", Unit: "mph"}
				return c
			}(),
			want: 135,
		},
		{
			name: "uphill adds two yards per foot",
			conditions: func() *models.GolfConditions {
				c := conditionsWithDistance(150)
				c.Elevation = &models.ElevationCondition{Value: 20, Direction: "up", Unit: "feet"}
				return c
			}(),
			want: 190,
		},
		{
			name: "downhill elevation in yards converts first",
			conditions: func() *models.GolfConditions {
				c := conditionsWithDistance(150)
				c.Elevation = &models.ElevationCondition{Value: 10, Direction: "down", Unit: "yards"}
				return c
			}(),
			want: 90,
		},
		{
			name: "cold air plays longer than the baseline",
			conditions: func() *models.GolfConditions {
				c := conditionsWithDistance(150)
				c.Temperature = &models.TemperatureCondition{Value: 50, Unit: "fahrenheit"}
				return c
			}(),
			want: 146,
		},
		{
			name: "heavy rough adds fifteen",
			conditions: func() *models.GolfConditions {
				c := conditionsWithDistance(150)
				c.Lie = models.LieHeavyRough
				return c
			}(),
			want: 165,
		},
		{
			name: "tee shot plays five shorter",
			conditions: func() *models.GolfConditions {
				c := conditionsWithDistance(150)
				c.Lie = models.LieTee
				return c
			}(),
			want: 145,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, engine.AdjustedDistance(tt.conditions), 0.001)
		})
	}
}

func TestRecommendationEngine_ClubSelection(t *testing.T) {
	engine := newTestRecommender("detailed")

	t.Run("150 yards is a 7 iron", func(t *testing.T) {
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(150))
		require.NoError(t, err)
		assert.Equal(t, "7 iron", spoken.Recommendation.PrimaryClub.Name)
	})

	t.Run("backup plays ten yards longer", func(t *testing.T) {
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(150))
		require.NoError(t, err)
		assert.Equal(t, "6 iron", spoken.Recommendation.BackupClub.Name)
	})

	t.Run("out of table falls back to 7 iron", func(t *testing.T) {
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(400))
		require.NoError(t, err)
		assert.Equal(t, "7 iron", spoken.Recommendation.PrimaryClub.Name)
	})

	t.Run("lower third of range eases the swing", func(t *testing.T) {
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(151))
		require.NoError(t, err)
		assert.Equal(t, "3/4", spoken.Recommendation.PrimaryClub.Takeback)
	})

	t.Run("sand forces full swing open face", func(t *testing.T) {
		c := conditionsWithDistance(130)
		c.Lie = models.LieSand
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.Equal(t, "full", spoken.Recommendation.PrimaryClub.Takeback)
		assert.Equal(t, "open", spoken.Recommendation.PrimaryClub.FacePosition)
	})

	t.Run("distance required", func(t *testing.T) {
		_, err := engine.GenerateRecommendation(&models.GolfConditions{})
		assert.Error(t, err)
	})
}

func TestRecommendationEngine_AimPoint(t *testing.T) {
	engine := newTestRecommender("detailed")

	t.Run("strong left wind aims left", func(t *testing.T) {
		c := conditionsWithDistance(150)
		c.Wind = &models.WindCondition{Speed: 16, Direction: "left", Unit: "mph"}
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.Equal(t, "left", spoken.Recommendation.AimPoint.Direction)
		assert.Equal(t, "8 yards", spoken.Recommendation.AimPoint.Adjustment)
	})

	t.Run("gentle crosswind keeps center", func(t *testing.T) {
		c := conditionsWithDistance(150)
		c.Wind = &models.WindCondition{Speed: 8, Direction: "crosswind", Unit: "mph"}
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.Equal(t, "center", spoken.Recommendation.AimPoint.Direction)
	})

	t.Run("hazard left pushes aim right", func(t *testing.T) {
		c := conditionsWithDistance(150)
		c.Hazards = []models.Hazard{{Type: "water", Location: "left"}}
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.Equal(t, "right", spoken.Recommendation.AimPoint.Direction)
	})

	t.Run("only the first hazard steers aim", func(t *testing.T) {
		c := conditionsWithDistance(150)
		c.Hazards = []models.Hazard{
			{Type: "water", Location: "right"},
			{Type: "bunker", Location: "left"},
		}
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.Equal(t, "left", spoken.Recommendation.AimPoint.Direction)
	})
}

func TestRecommendationEngine_Confidence(t *testing.T) {
	engine := newTestRecommender("detailed")

	t.Run("full information scores highest", func(t *testing.T) {
		c := conditionsWithDistance(150)
		c.Wind = &models.WindCondition{Speed: 5, Direction: "headwind", Unit: "mph"}
		c.Elevation = &models.ElevationCondition{Value: 5, Direction: "up", Unit: "feet"}
		c.Lie = models.LieFairway
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, spoken.Recommendation.Confidence, 0.001)
		assert.Empty(t, spoken.Recommendation.Warnings)
	})

	t.Run("missing fields cost fixed penalties", func(t *testing.T) {
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(150))
		require.NoError(t, err)
		assert.InDelta(t, 0.8, spoken.Recommendation.Confidence, 0.001)
		assert.Empty(t, spoken.Recommendation.Warnings)
	})

	t.Run("stacked risk factors warn and floor at 0.3", func(t *testing.T) {
		c := conditionsWithDistance(150)
		c.Wind = &models.WindCondition{Speed: 20, Direction: "headwind", Unit: "mph"}
		c.Elevation = &models.ElevationCondition{Value: 15, Direction: "up", Unit: "yards"}
		c.Lie = models.LieRecovery
		c.Hazards = []models.Hazard{{Type: "water"}, {Type: "trees"}, {Type: "bunker"}}
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, spoken.Recommendation.Confidence, 0.3)
		assert.InDelta(t, 0.35, spoken.Recommendation.Confidence, 0.001)
		assert.Len(t, spoken.Recommendation.Warnings, 5)
	})
}

func TestRecommendationEngine_Narration(t *testing.T) {
	t.Run("concise drops the backup", func(t *testing.T) {
		engine := newTestRecommender("concise")
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(150))
		require.NoError(t, err)
		assert.NotContains(t, spoken.SpokenText, "backup")
	})

	t.Run("detailed includes the backup", func(t *testing.T) {
		engine := newTestRecommender("detailed")
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(150))
		require.NoError(t, err)
		assert.Contains(t, spoken.SpokenText, "backup")
	})

	t.Run("comprehensive surfaces warnings", func(t *testing.T) {
		engine := newTestRecommender("comprehensive")
		c := conditionsWithDistance(150)
		c.Wind = &models.WindCondition{Speed: 20, Direction: "headwind", Unit: "mph"}
		spoken, err := engine.GenerateRecommendation(c)
		require.NoError(t, err)
		assert.Contains(t, spoken.SpokenText, "Heads up")
	})

	t.Run("fixed sentence order", func(t *testing.T) {
		engine := newTestRecommender("detailed")
		spoken, err := engine.GenerateRecommendation(conditionsWithDistance(150))
		require.NoError(t, err)
		primaryIdx := strings.Index(spoken.SpokenText, "I recommend")
		backupIdx := strings.Index(spoken.SpokenText, "backup")
		closingIdx := strings.Index(spoken.SpokenText, "Commit to the swing")
		assert.True(t, primaryIdx >= 0 && backupIdx > primaryIdx && closingIdx > backupIdx)
	})
}
