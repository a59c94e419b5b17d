package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
)

// ConditionExtractor pulls structured playing conditions out of raw text.
// Each field has an ordered pattern list; the first pattern that matches
// wins and later patterns for that field are skipped. The declared order
// encodes precedence between overlapping phrasings and must not be
// reordered.
type ConditionExtractor struct {
	logger *logrus.Logger
}

// NewConditionExtractor creates a condition extractor
func NewConditionExtractor(logger *logrus.Logger) *ConditionExtractor {
	return &ConditionExtractor{logger: logger}
}

var targetSynonyms = map[string]string{
	"stick": "pin",
	"flag":  "pin",
}

var distancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:yards?|yds?)\s+(?:to|from|out from)\s+the\s+(pin|green|flag|hole|stick)`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s+(?:to|from)\s+the\s+(pin|green|flag|hole|stick)`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:yards?|yds?)\s+out`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:yards?|yds?)`),
}

var elevationPatterns = []*regexp.Regexp{
	// number before the direction word
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(feet|foot|ft|yards?)?\s*(uphill|downhill|up|down|above|below|elevated)`),
	// number after the direction word
	regexp.MustCompile(`(uphill|downhill|elevated)\s*(?:by)?\s*(\d+(?:\.\d+)?)\s*(feet|foot|ft|yards?)?`),
	// bare direction word, no number
	regexp.MustCompile(`\b(uphill|downhill|elevated|above the green|below the green)\b`),
}

var downhillWords = map[string]bool{
	"downhill": true, "down": true, "below": true, "below the green": true,
}

var windCalmPattern = regexp.MustCompile(`\b(no wind|calm|still)\b`)

var windPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mph|miles per hour)?\s*(headwind|tailwind|crosswind)`),
	regexp.MustCompile(`(headwind|tailwind|crosswind)\s*(?:of|at|around)?\s*(\d+(?:\.\d+)?)\s*(?:mph)?`),
	regexp.MustCompile(`wind(?:\s+is)?\s*(?:from|at|of|about|around)?\s*(\d+(?:\.\d+)?)\s*(?:mph)?\s*(?:from\s+the\s+|off\s+the\s+)?(left|right|behind|ahead|front)?`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mph)?\s*wind\s*(?:from\s+the\s+|off\s+the\s+)?(left|right|behind|ahead|front)?`),
	regexp.MustCompile(`\b(into the wind|against the wind)\b`),
	regexp.MustCompile(`\b(downwind|with the wind|wind at (?:my|your|the) back)\b`),
}

var windDirectionSynonyms = map[string]string{
	"ahead":            "headwind",
	"front":            "headwind",
	"into the wind":    "headwind",
	"against the wind": "headwind",
	"behind":           "tailwind",
	"downwind":         "tailwind",
	"with the wind":    "tailwind",
}

// lie categories in precedence order; each pattern is confirmed with a
// substring check of the same input
var liePatterns = []struct {
	lie     models.Lie
	pattern *regexp.Regexp
	substr  string
}{
	{models.LieTee, regexp.MustCompile(`\b(tee box|teed up|on the tee|off the tee)\b`), "tee"},
	{models.LieFairway, regexp.MustCompile(`\b(fairway|short grass)\b`), "fairway"},
	{models.LieHeavyRough, regexp.MustCompile(`\b(heavy rough|thick rough|deep rough|cabbage|buried)\b`), "rough"},
	{models.LieLightRough, regexp.MustCompile(`\b(light rough|first cut|semi rough|rough)\b`), "rough"},
	{models.LieSand, regexp.MustCompile(`\b(sand|bunker|trap|beach)\b`), "sand"},
	{models.LieRecovery, regexp.MustCompile(`\b(trees|woods|pine straw|trouble|recovery|punch out)\b`), "tree"},
}

// the sand and recovery substring confirmations differ from the pattern
// vocabulary, so they are handled in code below

var temperaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:degrees?|°)\s*(?:f|fahrenheit)?\b`),
	regexp.MustCompile(`(?:temperature|temp)\s*(?:is|of|at|around)?\s*(-?\d+(?:\.\d+)?)`),
}

var humidityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent)\s*humidity`),
	regexp.MustCompile(`humidity\s*(?:is|of|at|around)?\s*(\d+(?:\.\d+)?)`),
}

var hazardPatterns = []struct {
	hazardType string
	pattern    *regexp.Regexp
}{
	{"water", regexp.MustCompile(`(?:water|pond|lake|creek|stream)(?:\s+(?:on|to|down)\s+the\s+(left|right))?`)},
	{"bunker", regexp.MustCompile(`(?:bunkers?|traps?)(?:\s+(?:on|to|guarding)\s+the\s+(left|right|front))?`)},
	{"trees", regexp.MustCompile(`trees?(?:\s+(?:on|to|down)\s+the\s+(left|right))?`)},
	{"out_of_bounds", regexp.MustCompile(`(?:out of bounds|\bob\b)(?:\s+(?:on|to|down)\s+the\s+(left|right))?`)},
}

var hazardCarryPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:yards?)?\s*to\s*(?:carry|clear)`)

// Parse extracts every condition it can from text. Absent fields are
// left nil; nothing is ever stored invalid-and-silently-kept, range
// violations are reported by ValidateConditions instead.
func (e *ConditionExtractor) Parse(text string) *models.GolfConditions {
	lower := strings.ToLower(strings.TrimSpace(text))
	conditions := &models.GolfConditions{}

	e.extractDistance(lower, conditions)
	e.extractElevation(lower, conditions)
	e.extractWind(lower, conditions)
	e.extractLie(lower, conditions)
	e.extractTemperature(lower, conditions)
	e.extractHumidity(lower, conditions)
	e.extractHazards(lower, conditions)

	e.logger.WithFields(logrus.Fields{
		"populated_fields": conditions.PopulatedFields(),
		"hazards":          len(conditions.Hazards),
	}).Debug("Extracted conditions from text")

	return conditions
}

func (e *ConditionExtractor) extractDistance(text string, c *models.GolfConditions) {
	for _, p := range distancePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		target := "pin"
		if len(m) > 2 && m[2] != "" {
			target = m[2]
			if normalized, ok := targetSynonyms[target]; ok {
				target = normalized
			}
		}
		c.Distance = &models.DistanceCondition{Value: value, Unit: "yards", Target: target}
		return
	}
}

func (e *ConditionExtractor) extractElevation(text string, c *models.GolfConditions) {
	for i, p := range elevationPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var value float64
		var direction, unitWord string
		switch i {
		case 0: // number, optional unit, direction
			value, _ = strconv.ParseFloat(m[1], 64)
			unitWord = m[2]
			direction = m[3]
		case 1: // direction, number, optional unit
			direction = m[1]
			value, _ = strconv.ParseFloat(m[2], 64)
			unitWord = m[3]
		default: // direction only, value defaults to 0
			direction = m[1]
		}
		unit := "feet"
		if strings.HasPrefix(unitWord, "yard") {
			unit = "yards"
		}
		dir := "up"
		if downhillWords[direction] {
			dir = "down"
		}
		c.Elevation = &models.ElevationCondition{Value: value, Direction: dir, Unit: unit}
		return
	}
}

func (e *ConditionExtractor) extractWind(text string, c *models.GolfConditions) {
	// a literal calm mention anywhere beats every numeric wind pattern
	if windCalmPattern.MatchString(text) {
		c.Wind = &models.WindCondition{Speed: 0, Direction: "none", Unit: "mph"}
		return
	}
	for i, p := range windPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		wind := &models.WindCondition{Unit: "mph"}
		switch i {
		case 0: // speed then direction word
			wind.Speed, _ = strconv.ParseFloat(m[1], 64)
			wind.Direction = m[2]
		case 1: // direction word then speed
			wind.Direction = m[1]
			wind.Speed, _ = strconv.ParseFloat(m[2], 64)
		case 2, 3: // "wind ... N ... [side]" / "N mph wind [side]"
			wind.Speed, _ = strconv.ParseFloat(m[1], 64)
			wind.Direction = m[2]
			if wind.Direction == "" {
				wind.Direction = "crosswind"
			}
		default: // idioms with no speed
			wind.Direction = m[1]
			wind.Speed = 10 // idioms imply a noticeable breeze
		}
		if normalized, ok := windDirectionSynonyms[wind.Direction]; ok {
			wind.Direction = normalized
		}
		c.Wind = wind
		return
	}
}

func (e *ConditionExtractor) extractLie(text string, c *models.GolfConditions) {
	for _, entry := range liePatterns {
		if !entry.pattern.MatchString(text) {
			continue
		}
		// confirm with a substring check of the same input; sand and
		// recovery accept any of their vocabulary words as confirmation
		confirmed := strings.Contains(text, entry.substr)
		if !confirmed && (entry.lie == models.LieSand || entry.lie == models.LieRecovery) {
			confirmed = entry.pattern.MatchString(text)
		}
		if confirmed {
			c.Lie = entry.lie
			return
		}
	}
}

func (e *ConditionExtractor) extractTemperature(text string, c *models.GolfConditions) {
	for _, p := range temperaturePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		c.Temperature = &models.TemperatureCondition{Value: value, Unit: "fahrenheit"}
		return
	}
}

func (e *ConditionExtractor) extractHumidity(text string, c *models.GolfConditions) {
	for _, p := range humidityPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		c.Humidity = &models.HumidityCondition{Value: value, Unit: "percent"}
		return
	}
}

// extractHazards collects every non-overlapping match of every hazard
// pattern, not just the first. Duplicate or overlapping hazard mentions
// across patterns produce multiple entries by design.
func (e *ConditionExtractor) extractHazards(text string, c *models.GolfConditions) {
	carry := 0.0
	if m := hazardCarryPattern.FindStringSubmatch(text); m != nil {
		carry, _ = strconv.ParseFloat(m[1], 64)
	}
	for _, entry := range hazardPatterns {
		for _, m := range entry.pattern.FindAllStringSubmatch(text, -1) {
			hazard := models.Hazard{Type: entry.hazardType}
			if len(m) > 1 && m[1] != "" {
				hazard.Location = m[1]
			}
			if carry > 0 {
				hazard.ClearDistance = carry
			}
			c.Hazards = append(c.Hazards, hazard)
		}
	}
}

// ValidateConditions checks the range invariants and returns one message
// per violated field. The input is never mutated.
func (e *ConditionExtractor) ValidateConditions(c *models.GolfConditions) models.ValidationResult {
	var errs []string
	if c.Distance != nil && (c.Distance.Value < 0 || c.Distance.Value > 600) {
		errs = append(errs, "Distance must be between 0 and 600 yards")
	}
	if c.Elevation != nil {
		feet := c.Elevation.Value
		if c.Elevation.Unit == "yards" {
			feet *= 3
		}
		if feet > 100 {
			errs = append(errs, "Elevation change must be within 100 feet")
		}
	}
	if c.Wind != nil && (c.Wind.Speed < 0 || c.Wind.Speed > 50) {
		errs = append(errs, "Wind speed must be between 0 and 50 mph")
	}
	if c.Temperature != nil && (c.Temperature.Value < -20 || c.Temperature.Value > 120) {
		errs = append(errs, "Temperature must be between -20 and 120 degrees Fahrenheit")
	}
	if c.Humidity != nil && (c.Humidity.Value < 0 || c.Humidity.Value > 100) {
		errs = append(errs, "Humidity must be between 0 and 100 percent")
	}
	if len(errs) > 0 {
		e.logger.WithField("errors", fmt.Sprintf("%v", errs)).Debug("Condition validation failed")
	}
	return models.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
