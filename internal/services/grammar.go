package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
)

// GrammarEngine matches raw text against a fixed catalog of intents,
// entities, slots and utterance templates. Matching is deterministic:
// the highest-confidence candidate wins and ties break by declaration
// order (first intent, first template, first pattern).
type GrammarEngine struct {
	intents   []models.Intent
	entities  map[string]models.Entity
	slots     map[string]models.Slot
	templates []models.UtteranceTemplate
	compiled  map[string][]compiledTemplate // keyed by intent name
	logger    *logrus.Logger
}

type compiledTemplate struct {
	template models.UtteranceTemplate
	patterns []*regexp.Regexp
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)(\?)?\}`)

// the declared intent catalog; order is the tie-break order
var intentCatalog = []models.Intent{
	{Name: models.IntentGetClubRecommendation, Confidence: 1.0, RequiredSlots: []string{"distance"}, OptionalSlots: []string{"target", "wind_direction", "lie"}},
	{Name: models.IntentProvideConditions, Confidence: 0.9, OptionalSlots: []string{"distance", "target", "wind_speed", "wind_direction", "elevation_direction", "lie"}},
	{Name: models.IntentConfirm, Confidence: 0.95, RequiredSlots: []string{"affirmation"}},
	{Name: models.IntentDeny, Confidence: 0.95, RequiredSlots: []string{"negation"}},
	{Name: models.IntentRequestAlternative, Confidence: 1.0},
	{Name: models.IntentRepeat, Confidence: 1.0},
	{Name: models.IntentStartOver, Confidence: 1.0},
	{Name: models.IntentHelp, Confidence: 1.0},
	{Name: models.IntentGoodbye, Confidence: 1.0},
}

var entityCatalog = []models.Entity{
	{Name: "distance", Type: "number", Pattern: `\d+(?:\.\d+)?`},
	{Name: "target", Type: "enum", Pattern: `pin|green|flag|hole|stick`, Synonyms: map[string]string{"flag": "pin", "stick": "pin"}},
	{Name: "wind_speed", Type: "number", Pattern: `\d+(?:\.\d+)?`},
	{Name: "wind_direction", Type: "enum", Pattern: `headwind|tailwind|crosswind|into the wind|downwind`, Synonyms: map[string]string{"into the wind": "headwind", "downwind": "tailwind"}},
	{Name: "elevation_direction", Type: "enum", Pattern: `uphill|downhill|elevated`, Synonyms: map[string]string{"elevated": "uphill"}},
	{Name: "lie", Type: "enum", Pattern: `tee|fairway|rough|sand|bunker|trees`, Synonyms: map[string]string{"bunker": "sand", "trees": "recovery"}},
	{Name: "affirmation", Type: "enum", Pattern: `yes|yeah|yep|yup|correct|exactly|sure|sounds good|that(?:'s| is) right`, Synonyms: map[string]string{
		"yeah": "yes", "yep": "yes", "yup": "yes", "correct": "yes", "exactly": "yes",
		"sure": "yes", "sounds good": "yes", "that's right": "yes", "that is right": "yes",
	}},
	{Name: "negation", Type: "enum", Pattern: `no|nope|nah|incorrect|that(?:'s| is) (?:wrong|not right)`, Synonyms: map[string]string{
		"nope": "no", "nah": "no", "incorrect": "no", "that's wrong": "no",
		"that is wrong": "no", "that's not right": "no", "that is not right": "no",
	}},
}

var slotCatalog = []models.Slot{
	{Name: "distance", Entity: "distance", Prompts: []string{"How far is the shot?", "What's the distance to the pin?"}},
	{Name: "target", Entity: "target"},
	{Name: "wind_speed", Entity: "wind_speed", Prompts: []string{"How strong is the wind?"}},
	{Name: "wind_direction", Entity: "wind_direction", Prompts: []string{"Which way is the wind blowing?"}},
	{Name: "elevation_direction", Entity: "elevation_direction", Prompts: []string{"Is the shot uphill or downhill?"}},
	{Name: "lie", Entity: "lie", Prompts: []string{"What's your lie?"}},
	{Name: "affirmation", Entity: "affirmation"},
	{Name: "negation", Entity: "negation"},
}

// templateCatalog declares the utterance patterns per intent. Patterns
// are regular-expression fragments mixed with {slot} placeholders; a
// trailing ? inside the braces marks the placeholder optional.
var templateCatalog = []models.UtteranceTemplate{
	{
		Intent: models.IntentGetClubRecommendation,
		Patterns: []string{
			`what club (?:should i (?:use|hit) )?for (?:a )?{distance}(?: (?:yards?|yds?))?(?: shot)?`,
			`(?:recommend|give me) a club for {distance}(?: (?:yards?|yds?))?`,
			`{distance} (?:yards?|yds?),? what club`,
		},
		Examples: []string{
			"what club for 150 yards",
			"recommend a club for 140 yards",
			"165 yards, what club",
		},
	},
	{
		Intent: models.IntentGetClubRecommendation,
		Patterns: []string{
			`what (?:club )?do i hit (?:from |at )?{distance}(?: (?:yards?|yds?))?(?: (?:to|from) the {target})?`,
			`club for {distance} to the {target?}`,
		},
		Examples: []string{
			"what do i hit at 150 yards to the pin",
			"club for 180 to the green",
		},
	},
	{
		Intent: models.IntentProvideConditions,
		Patterns: []string{
			`{distance} (?:yards?|yds?)(?: (?:to|from|out from) the {target})?`,
			`{distance} (?:to|from) the {target}`,
		},
		Examples: []string{
			"140 yards",
			"150 yards to the pin",
		},
	},
	{
		Intent: models.IntentProvideConditions,
		Patterns: []string{
			`{wind_speed} (?:mph |miles per hour )?{wind_direction}`,
			`{wind_direction}(?: (?:of|at) {wind_speed}(?: mph)?)?`,
		},
		Examples: []string{
			"10 mph headwind",
			"headwind at 15 mph",
		},
	},
	{
		Intent: models.IntentProvideConditions,
		Patterns: []string{
			`(?:it(?:'s| is) |going )?{elevation_direction}`,
		},
		Examples: []string{
			"uphill",
			"it's downhill",
		},
	},
	{
		Intent: models.IntentProvideConditions,
		Patterns: []string{
			`(?:i(?:'m| am) |ball is )?(?:in|on) the {lie}`,
		},
		Examples: []string{
			"in the fairway",
			"i'm in the rough",
		},
	},
	{
		Intent: models.IntentConfirm,
		Patterns: []string{
			`\b{affirmation}\b`,
		},
		Examples: []string{
			"yes",
			"yeah that works",
		},
	},
	{
		Intent: models.IntentDeny,
		Patterns: []string{
			`\b{negation}\b`,
		},
		Examples: []string{
			"no",
			"nope, try again",
		},
	},
	{
		Intent: models.IntentRequestAlternative,
		Patterns: []string{
			`(?:what|how) about something else`,
			`(?:give me )?(?:an)?other (?:club|option)`,
			`different club`,
			`alternative`,
		},
		Examples: []string{
			"give me another option",
			"how about something else",
		},
	},
	{
		Intent: models.IntentRepeat,
		Patterns: []string{
			`(?:say|repeat) (?:that|it)(?: again)?`,
			`come again`,
			`what did you say`,
		},
		Examples: []string{
			"repeat that",
			"come again",
		},
	},
	{
		Intent: models.IntentStartOver,
		Patterns: []string{
			`start (?:over|again)`,
			`\breset\b`,
			`new shot`,
			`from the beginning`,
		},
		Examples: []string{
			"start over",
			"new shot",
		},
	},
	{
		Intent: models.IntentHelp,
		Patterns: []string{
			`\bhelp\b`,
			`what can (?:i|you) (?:say|do)`,
			`how does this work`,
		},
		Examples: []string{
			"help",
			"what can i say",
		},
	},
	{
		Intent: models.IntentGoodbye,
		Patterns: []string{
			`\b(?:goodbye|bye)\b`,
			`see you`,
			`that(?:'s| is) all`,
			`i(?:'m| am) done`,
		},
		Examples: []string{
			"goodbye",
			"that's all",
		},
	},
}

// NewGrammarEngine compiles the catalog. Compilation failures are a
// programming error in the catalog itself, so they panic at startup.
func NewGrammarEngine(logger *logrus.Logger) *GrammarEngine {
	e := &GrammarEngine{
		intents:   intentCatalog,
		entities:  make(map[string]models.Entity, len(entityCatalog)),
		slots:     make(map[string]models.Slot, len(slotCatalog)),
		templates: templateCatalog,
		compiled:  make(map[string][]compiledTemplate),
		logger:    logger,
	}
	for _, entity := range entityCatalog {
		e.entities[entity.Name] = entity
	}
	for _, slot := range slotCatalog {
		e.slots[slot.Name] = slot
	}
	for _, template := range templateCatalog {
		ct := compiledTemplate{template: template}
		for _, pattern := range template.Patterns {
			re, err := e.compilePattern(pattern)
			if err != nil {
				panic(fmt.Sprintf("grammar catalog pattern %q: %v", pattern, err))
			}
			ct.patterns = append(ct.patterns, re)
		}
		e.compiled[template.Intent] = append(e.compiled[template.Intent], ct)
	}
	return e
}

// compilePattern substitutes each {slot} placeholder with the bound
// entity's extraction pattern as a named group, wrapped optionally when
// the placeholder is marked with ?.
func (e *GrammarEngine) compilePattern(pattern string) (*regexp.Regexp, error) {
	var substErr error
	expanded := placeholderPattern.ReplaceAllStringFunc(pattern, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		slotName, optional := parts[1], parts[2] == "?"
		slot, ok := e.slots[slotName]
		if !ok {
			substErr = fmt.Errorf("unknown slot %q", slotName)
			return match
		}
		entity, ok := e.entities[slot.Entity]
		if !ok {
			substErr = fmt.Errorf("slot %q binds unknown entity %q", slotName, slot.Entity)
			return match
		}
		group := fmt.Sprintf(`(?P<%s>%s)`, slotName, entity.Pattern)
		if optional {
			group = fmt.Sprintf(`(?:\s*%s)?`, group)
		}
		return group
	})
	if substErr != nil {
		return nil, substErr
	}
	return regexp.Compile(expanded)
}

// ParseInput matches text against every intent's templates and returns
// the single best match. An empty intent with zero confidence means no
// template matched anything; that is a normal outcome for ambiguous
// input, not an error.
func (e *GrammarEngine) ParseInput(text string) *models.GrammarResult {
	lower := strings.ToLower(strings.TrimSpace(text))
	best := &models.GrammarResult{Slots: map[string]interface{}{}}

	for _, intent := range e.intents {
		for _, ct := range e.compiled[intent.Name] {
			for _, re := range ct.patterns {
				m := re.FindStringSubmatch(lower)
				if m == nil {
					continue
				}
				slots := e.extractSlots(re, m)
				confidence := 0.8 + 0.1*float64(len(slots))
				if confidence > 1.0 {
					confidence = 1.0
				}
				confidence *= intent.Confidence
				// strict comparison keeps the first-declared candidate on ties
				if confidence > best.Confidence {
					best = &models.GrammarResult{
						Intent:     intent.Name,
						Confidence: confidence,
						Slots:      slots,
					}
				}
			}
		}
	}

	if best.Intent != "" {
		best.MissingSlots = e.missingSlots(best.Intent, best.Slots)
	}

	e.logger.WithFields(logrus.Fields{
		"intent":     best.Intent,
		"confidence": best.Confidence,
		"slots":      len(best.Slots),
	}).Debug("Grammar match complete")

	return best
}

// extractSlots collects filled named groups, normalizing enum entities
// through their synonym table and parsing number entities as floats.
func (e *GrammarEngine) extractSlots(re *regexp.Regexp, match []string) map[string]interface{} {
	slots := make(map[string]interface{})
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(match) || match[i] == "" {
			continue
		}
		raw := match[i]
		slot, ok := e.slots[name]
		if !ok {
			slots[name] = raw
			continue
		}
		entity := e.entities[slot.Entity]
		switch entity.Type {
		case "number":
			if value, err := strconv.ParseFloat(raw, 64); err == nil {
				slots[name] = value
			} else {
				slots[name] = raw
			}
		default:
			if normalized, ok := entity.Synonyms[raw]; ok {
				slots[name] = normalized
			} else {
				slots[name] = raw
			}
		}
	}
	return slots
}

func (e *GrammarEngine) missingSlots(intentName string, slots map[string]interface{}) []string {
	var missing []string
	for _, intent := range e.intents {
		if intent.Name != intentName {
			continue
		}
		for _, required := range intent.RequiredSlots {
			if _, ok := slots[required]; !ok {
				missing = append(missing, required)
			}
		}
		break
	}
	return missing
}

// Intents exposes the declared catalog, mainly for tests and prompts
func (e *GrammarEngine) Intents() []models.Intent {
	return e.intents
}

// Templates exposes the declared utterance templates
func (e *GrammarEngine) Templates() []models.UtteranceTemplate {
	return e.templates
}

// SlotPrompts returns the declared prompt variants for a slot
func (e *GrammarEngine) SlotPrompts(slotName string) []string {
	if slot, ok := e.slots[slotName]; ok {
		return slot.Prompts
	}
	return nil
}
