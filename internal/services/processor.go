package services

import (
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
)

// Conversation phases tracked by the processor
const (
	PhaseInitial        = "initial"
	PhaseCollectingInfo = "collecting_info"
	PhaseConfirming     = "confirming"
	PhaseRecommending   = "recommending"
)

// InputProcessor combines grammar and extraction results for one turn,
// merges them with the previous turn's conditions and decides what is
// still missing. One processor serves exactly one session.
type InputProcessor struct {
	grammar             *GrammarEngine
	extractor           *ConditionExtractor
	confidenceThreshold float64
	contextual          bool
	logger              *logrus.Logger

	previous *models.GolfConditions
	phase    string
	attempts int
	turns    int
}

// NewInputProcessor creates a per-session input processor. When
// contextual is false each turn stands alone: the previous turn's
// conditions are not merged in.
func NewInputProcessor(grammar *GrammarEngine, extractor *ConditionExtractor, confidenceThreshold float64, contextual bool, logger *logrus.Logger) *InputProcessor {
	return &InputProcessor{
		grammar:             grammar,
		extractor:           extractor,
		confidenceThreshold: confidenceThreshold,
		contextual:          contextual,
		logger:              logger,
		previous:            &models.GolfConditions{},
		phase:               PhaseInitial,
	}
}

// Process runs one turn: grammar match, condition extraction, merge with
// the previous turn, validation and missing-information analysis. It
// never fails on malformed input; problems surface as validation errors
// and missing fields for the caller to route into recovery.
func (p *InputProcessor) Process(text string) *models.ProcessedInput {
	p.attempts++
	p.turns++

	grammarResult := p.grammar.ParseInput(text)
	extracted := p.extractor.Parse(text)

	previous := p.previous
	if !p.contextual {
		previous = &models.GolfConditions{}
	}
	merged := previous.Merge(extracted)
	validation := p.extractor.ValidateConditions(merged)
	missing := p.missingInformation(grammarResult.Intent, merged)

	needsConfirmation := grammarResult.Confidence < p.confidenceThreshold ||
		merged.PopulatedFields() >= 4

	p.advancePhase(grammarResult.Intent, missing, needsConfirmation)
	p.previous = merged

	result := &models.ProcessedInput{
		RawText:           text,
		Intent:            grammarResult.Intent,
		Confidence:        grammarResult.Confidence,
		Slots:             grammarResult.Slots,
		Conditions:        merged,
		ValidationErrors:  validation.Errors,
		MissingInfo:       missing,
		NeedsConfirmation: needsConfirmation,
		Phase:             p.phase,
		AttemptNumber:     p.attempts,
	}

	p.logger.WithFields(logrus.Fields{
		"intent":             result.Intent,
		"confidence":         result.Confidence,
		"missing":            result.MissingInfo,
		"validation_errors":  len(result.ValidationErrors),
		"needs_confirmation": result.NeedsConfirmation,
		"phase":              result.Phase,
	}).Debug("Processed input turn")

	return result
}

// missingInformation lists what a recommendation still needs. Distance
// is always required; wind is additionally requested only when nothing
// else is missing and this is the session's first turn.
func (p *InputProcessor) missingInformation(intent string, merged *models.GolfConditions) []string {
	if intent != models.IntentGetClubRecommendation && intent != models.IntentProvideConditions {
		return nil
	}
	var missing []string
	if merged.Distance == nil {
		missing = append(missing, "distance")
	}
	if len(missing) == 0 && p.turns == 1 && merged.Wind == nil {
		missing = append(missing, "wind")
	}
	return missing
}

func (p *InputProcessor) advancePhase(intent string, missing []string, needsConfirmation bool) {
	switch intent {
	case models.IntentGetClubRecommendation, models.IntentProvideConditions:
		if len(missing) == 0 && (needsConfirmation || p.phase == PhaseCollectingInfo) {
			p.phase = PhaseConfirming
		} else if p.phase == PhaseInitial {
			p.phase = PhaseCollectingInfo
		}
	case models.IntentConfirm:
		if p.phase == PhaseConfirming {
			p.phase = PhaseRecommending
		}
	case models.IntentDeny:
		if p.phase == PhaseConfirming {
			p.phase = PhaseCollectingInfo
		}
	}
}

// ResetAttempts zeroes the attempt counter. The orchestrator calls it
// whenever a turn moves the dialogue to a new state.
func (p *InputProcessor) ResetAttempts() {
	p.attempts = 0
}

// Attempts returns the current attempt count
func (p *InputProcessor) Attempts() int {
	return p.attempts
}

// Conditions returns the accumulated conditions
func (p *InputProcessor) Conditions() *models.GolfConditions {
	return p.previous
}

// Reset clears all per-session state back to a fresh conversation
func (p *InputProcessor) Reset() {
	p.previous = &models.GolfConditions{}
	p.phase = PhaseInitial
	p.attempts = 0
	p.turns = 0
}
