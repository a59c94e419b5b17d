package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
)

// ClubSpec is one club with its carry range in yards, inclusive
type ClubSpec struct {
	Type     string
	Number   int
	Name     string
	MinYards float64
	MaxYards float64
}

// ClubCatalog selects clubs for a distance and lie. The built-in table
// below is the default; a per-user inventory can replace it.
type ClubCatalog interface {
	SelectClub(distance float64, lie models.Lie) ClubSpec
	SelectBackupClub(distance float64, lie models.Lie) ClubSpec
}

// defaultClubTable is the fixed ordered selection table. The first entry
// whose range contains the adjusted distance wins, so declaration order
// matters at the shared boundaries.
var defaultClubTable = []ClubSpec{
	{Type: "driver", Name: "driver", MinYards: 230, MaxYards: 330},
	{Type: "wood", Number: 3, Name: "3 wood", MinYards: 215, MaxYards: 230},
	{Type: "wood", Number: 5, Name: "5 wood", MinYards: 200, MaxYards: 215},
	{Type: "hybrid", Number: 3, Name: "3 hybrid", MinYards: 190, MaxYards: 200},
	{Type: "iron", Number: 4, Name: "4 iron", MinYards: 180, MaxYards: 190},
	{Type: "iron", Number: 5, Name: "5 iron", MinYards: 170, MaxYards: 180},
	{Type: "iron", Number: 6, Name: "6 iron", MinYards: 160, MaxYards: 170},
	{Type: "iron", Number: 7, Name: "7 iron", MinYards: 150, MaxYards: 160},
	{Type: "iron", Number: 8, Name: "8 iron", MinYards: 140, MaxYards: 150},
	{Type: "iron", Number: 9, Name: "9 iron", MinYards: 130, MaxYards: 140},
	{Type: "wedge", Name: "pitching wedge", MinYards: 110, MaxYards: 130},
	{Type: "wedge", Name: "sand wedge", MinYards: 80, MaxYards: 110},
	{Type: "wedge", Name: "lob wedge", MinYards: 0, MaxYards: 80},
}

// sevenIron is the fallback when no range contains the adjusted distance
var sevenIron = defaultClubTable[7]

// BuiltinCatalog serves the fixed table
type BuiltinCatalog struct{}

func (BuiltinCatalog) SelectClub(distance float64, _ models.Lie) ClubSpec {
	for _, club := range defaultClubTable {
		if distance >= club.MinYards && distance <= club.MaxYards {
			return club
		}
	}
	return sevenIron
}

func (c BuiltinCatalog) SelectBackupClub(distance float64, lie models.Lie) ClubSpec {
	return c.SelectClub(distance+10, lie)
}

// lieAdjustments is the fixed distance penalty per lie, in yards
var lieAdjustments = map[models.Lie]float64{
	models.LieTee:        -5,
	models.LieFairway:    0,
	models.LieLightRough: 5,
	models.LieHeavyRough: 15,
	models.LieSand:       20,
	models.LieRecovery:   25,
}

// RecommendationEngine turns validated conditions into a club
// recommendation plus its spoken narration.
type RecommendationEngine struct {
	catalog     ClubCatalog
	personality *Personality
	verbosity   string
	logger      *logrus.Logger
}

// NewRecommendationEngine creates a recommendation engine around a club
// catalog. Pass BuiltinCatalog{} for the stock bag.
func NewRecommendationEngine(catalog ClubCatalog, personality *Personality, verbosity string, logger *logrus.Logger) *RecommendationEngine {
	return &RecommendationEngine{
		catalog:     catalog,
		personality: personality,
		verbosity:   verbosity,
		logger:      logger,
	}
}

// AdjustedDistance computes the effective playing distance:
// base + elevation + wind + temperature + lie adjustments.
func (e *RecommendationEngine) AdjustedDistance(c *models.GolfConditions) float64 {
	if c.Distance == nil {
		return 0
	}
	adjusted := c.Distance.Value
	adjusted += c.SignedElevationFeet() * 2
	adjusted += windAdjustment(c.Wind)
	if c.Temperature != nil {
		adjusted += (c.Temperature.Value - 70) * 0.2
	}
	if adj, ok := lieAdjustments[c.Lie]; ok {
		adjusted += adj
	}
	return adjusted
}

func windAdjustment(w *models.WindCondition) float64 {
	if w == nil {
		return 0
	}
	switch w.Direction {
	case "headwind":
		return w.Speed * 2
	case "tailwind":
		return -w.Speed * 1.5
	case "crosswind", "left", "right":
		return w.Speed * 0.5
	default:
		return 0
	}
}

// GenerateRecommendation computes the full recommendation and renders
// the spoken text. Conditions must carry at least a distance.
func (e *RecommendationEngine) GenerateRecommendation(c *models.GolfConditions) (*models.SpokenRecommendation, error) {
	if c == nil || c.Distance == nil {
		return nil, fmt.Errorf("cannot recommend a club without a distance")
	}

	adjusted := e.AdjustedDistance(c)
	primary := e.buildSelection(e.catalog.SelectClub(adjusted, c.Lie), adjusted, c)
	backup := e.buildSelection(e.catalog.SelectBackupClub(adjusted, c.Lie), adjusted+10, c)
	backup.Reason = "if you want to swing easier"

	rec := &models.ClubRecommendation{
		PrimaryClub:      primary,
		BackupClub:       backup,
		AimPoint:         e.aimPoint(c),
		Stance:           e.stance(primary, c),
		AdjustedDistance: adjusted,
		GeneratedAt:      time.Now(),
	}
	rec.Confidence, rec.Warnings = e.scoreConfidence(c, adjusted)

	spoken := e.render(rec, c)

	e.logger.WithFields(logrus.Fields{
		"base_distance":     c.Distance.Value,
		"adjusted_distance": adjusted,
		"primary_club":      primary.Name,
		"confidence":        rec.Confidence,
	}).Info("Generated club recommendation")

	return &models.SpokenRecommendation{SpokenText: spoken, Recommendation: rec}, nil
}

func (e *RecommendationEngine) buildSelection(spec ClubSpec, distance float64, c *models.GolfConditions) models.ClubSelection {
	sel := models.ClubSelection{
		Type:         spec.Type,
		Number:       spec.Number,
		Name:         spec.Name,
		Takeback:     "full",
		FacePosition: "square",
		Reason:       fmt.Sprintf("covers %.0f yards", distance),
	}
	// an easy swing when the distance sits in the lower third of the range
	if span := spec.MaxYards - spec.MinYards; span > 0 && distance <= spec.MinYards+span/3 {
		sel.Takeback = "3/4"
	}
	// heavy rough and sand demand a committed swing with an open face
	if c.Lie == models.LieHeavyRough || c.Lie == models.LieSand {
		sel.Takeback = "full"
		sel.FacePosition = "open"
	}
	return sel
}

// aimPoint defaults to center. A crosswind above 10 mph aims opposite
// the push; otherwise only the first listed hazard is considered.
func (e *RecommendationEngine) aimPoint(c *models.GolfConditions) models.AimPoint {
	aim := models.AimPoint{Direction: "center", Adjustment: "none"}
	if c.Wind != nil && c.Wind.Speed > 10 {
		switch c.Wind.Direction {
		case "left":
			aim = models.AimPoint{Direction: "left", Adjustment: fmt.Sprintf("%.0f yards", c.Wind.Speed/2), Reason: "wind will push the ball right"}
		case "right":
			aim = models.AimPoint{Direction: "right", Adjustment: fmt.Sprintf("%.0f yards", c.Wind.Speed/2), Reason: "wind will push the ball left"}
		case "crosswind":
			aim = models.AimPoint{Direction: "left", Adjustment: fmt.Sprintf("%.0f yards", c.Wind.Speed/2), Reason: "allow for the crosswind"}
		}
		if aim.Direction != "center" {
			return aim
		}
	}
	if len(c.Hazards) > 0 {
		first := c.Hazards[0]
		switch first.Location {
		case "left":
			aim = models.AimPoint{Direction: "right", Adjustment: "favor the right side", Reason: fmt.Sprintf("keep away from the %s on the left", hazardWord(first.Type))}
		case "right":
			aim = models.AimPoint{Direction: "left", Adjustment: "favor the left side", Reason: fmt.Sprintf("keep away from the %s on the right", hazardWord(first.Type))}
		}
	}
	return aim
}

func hazardWord(hazardType string) string {
	return strings.ReplaceAll(hazardType, "_", " ")
}

func (e *RecommendationEngine) stance(primary models.ClubSelection, c *models.GolfConditions) models.Stance {
	st := models.Stance{BallPosition: "center", Weight: "balanced", Alignment: "square to target"}
	switch primary.Type {
	case "driver", "wood":
		st.BallPosition = "forward"
	case "wedge":
		st.BallPosition = "back"
	}
	if c.Elevation != nil && c.Elevation.Value != 0 {
		if c.Elevation.Direction == "down" {
			st.Weight = "front"
			st.Alignment = "lean into the slope"
		} else {
			st.Weight = "back"
			st.Alignment = "lean away from the slope"
		}
	}
	switch c.Lie {
	case models.LieSand:
		st.Special = "dig your feet in and play the ball slightly back"
	case models.LieHeavyRough:
		st.Special = "grip firmly and play the ball back of center"
	}
	return st
}

// scoreConfidence starts at 1.0 and subtracts a fixed penalty per risk
// factor, floored at 0.3. Every penalty except the three missing-field
// ones also contributes a warning.
func (e *RecommendationEngine) scoreConfidence(c *models.GolfConditions, adjusted float64) (float64, []string) {
	confidence := 1.0
	var warnings []string

	if c.Wind == nil {
		confidence -= 0.1
	}
	if c.Elevation == nil {
		confidence -= 0.05
	}
	if c.Lie == "" {
		confidence -= 0.05
	}
	if c.Wind != nil && c.Wind.Speed > 15 {
		confidence -= 0.2
		warnings = append(warnings, "Strong wind makes club selection less reliable")
	}
	if feet := c.SignedElevationFeet(); feet > 20 || feet < -20 {
		confidence -= 0.15
		warnings = append(warnings, "Large elevation change, trust the adjusted number")
	}
	if c.Lie == models.LieHeavyRough || c.Lie == models.LieSand || c.Lie == models.LieRecovery {
		confidence -= 0.1
		warnings = append(warnings, "Difficult lie, prioritize clean contact over distance")
	}
	if len(c.Hazards) > 2 {
		confidence -= 0.1
		warnings = append(warnings, "Multiple hazards in play, consider the safe line")
	}
	if adjusted < 50 || adjusted > 250 {
		confidence -= 0.1
		warnings = append(warnings, "Adjusted distance is outside the typical scoring range")
	}
	if confidence < 0.3 {
		confidence = 0.3
	}
	return confidence, warnings
}

// render assembles the spoken narration in fixed order: opening, primary
// club, backup, aim, stance, warnings, closing. Each sentence goes
// through the personality filter independently.
func (e *RecommendationEngine) render(rec *models.ClubRecommendation, c *models.GolfConditions) string {
	var parts []string

	parts = append(parts, e.personality.Apply(e.opening(rec.Confidence)))

	primary := fmt.Sprintf("I recommend your %s with a %s swing.", rec.PrimaryClub.Name, rec.PrimaryClub.Takeback)
	if rec.PrimaryClub.FacePosition == "open" {
		primary = fmt.Sprintf("I recommend your %s, face open, with a %s swing.", rec.PrimaryClub.Name, rec.PrimaryClub.Takeback)
	}
	parts = append(parts, e.personality.Apply(primary))

	if e.verbosity != "concise" {
		parts = append(parts, e.personality.Apply(fmt.Sprintf("Your backup is the %s %s.", rec.BackupClub.Name, rec.BackupClub.Reason)))
	}

	if rec.AimPoint.Adjustment != "none" {
		parts = append(parts, e.personality.Apply(fmt.Sprintf("Aim %s, %s.", rec.AimPoint.Direction, rec.AimPoint.Reason)))
	}

	stance := fmt.Sprintf("Play the ball %s with %s weight.", rec.Stance.BallPosition, rec.Stance.Weight)
	if rec.Stance.Special != "" {
		stance = fmt.Sprintf("Play the ball %s, and %s.", rec.Stance.BallPosition, rec.Stance.Special)
	}
	parts = append(parts, e.personality.Apply(stance))

	if e.verbosity == "comprehensive" && len(rec.Warnings) > 0 {
		parts = append(parts, e.personality.Apply("Heads up: "+strings.Join(rec.Warnings, "; ")+"."))
	}

	parts = append(parts, e.personality.Apply("Commit to the swing."))

	return strings.Join(parts, " ")
}

func (e *RecommendationEngine) opening(confidence float64) string {
	switch {
	case confidence > 0.8:
		return "This one sets up well."
	case confidence > 0.6:
		return "Here's my read on it."
	default:
		return "Conditions make this a tough call, but here's my best read."
	}
}
