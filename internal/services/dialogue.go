package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
)

// globalHandler is checked before any state handler, every turn, in
// declaration-list order. The priority field is declared metadata that
// mirrors the catalog but never picks among simultaneous matches; list
// order wins.
type globalHandler struct {
	name     string
	trigger  string
	priority int
	handle   func(e *DialogueEngine, ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse
}

// transition moves the machine for the next turn. The first entry whose
// from matches the current state, whose trigger is a substring of the
// detected intent, and whose condition holds wins.
type transition struct {
	from      models.DialogueState
	trigger   string
	condition func(e *DialogueEngine, ctx *models.DialogueContext, input *models.ProcessedInput) bool
	to        models.DialogueState
}

// stateMetadata declares advisory timeouts and retry limits per state.
// The engine never enforces these; the hosting loop may.
var stateMetadata = map[models.DialogueState]models.StateMetadata{
	models.StateGreeting:                {TimeoutMs: 30000, RetryLimit: 3},
	models.StateCollectingConditions:    {TimeoutMs: 20000, RetryLimit: 3},
	models.StateConfirmingConditions:    {TimeoutMs: 15000, RetryLimit: 2},
	models.StateProvidingRecommendation: {TimeoutMs: 30000, RetryLimit: 2},
	models.StateHandlingFeedback:        {TimeoutMs: 20000, RetryLimit: 2},
	models.StateClarifyingError:         {TimeoutMs: 20000, RetryLimit: 3},
	models.StateEndingSession:           {TimeoutMs: 5000, RetryLimit: 1},
}

// DialogueEngine is the finite-state controller for one conversation.
// It owns no long-lived mutable state itself; the caller passes the
// session's DialogueContext in for each turn.
type DialogueEngine struct {
	recommender         *RecommendationEngine
	recovery            *ErrorRecoveryEngine
	personality         *Personality
	grammar             *GrammarEngine
	maxRetries          int
	requireConfirmation bool
	logger              *logrus.Logger
	globalHandlers      []globalHandler
	transitions         []transition
}

// NewDialogueEngine wires a dialogue engine for one session. With
// requireConfirmation false, complete and confident conditions skip the
// confirm step and go straight to a recommendation; low-confidence or
// heavily populated input still confirms first.
func NewDialogueEngine(recommender *RecommendationEngine, recovery *ErrorRecoveryEngine, grammar *GrammarEngine, personality *Personality, maxRetries int, requireConfirmation bool, logger *logrus.Logger) *DialogueEngine {
	e := &DialogueEngine{
		recommender:         recommender,
		recovery:            recovery,
		grammar:             grammar,
		personality:         personality,
		maxRetries:          maxRetries,
		requireConfirmation: requireConfirmation,
		logger:              logger,
	}
	e.globalHandlers = []globalHandler{
		{name: "start_over", trigger: "START_OVER", priority: 100, handle: (*DialogueEngine).handleStartOver},
		{name: "help", trigger: "HELP", priority: 50, handle: (*DialogueEngine).handleHelp},
		{name: "goodbye", trigger: "GOODBYE", priority: 10, handle: (*DialogueEngine).handleGoodbye},
	}
	e.transitions = []transition{
		{models.StateGreeting, "", hasValidationErrors, models.StateClarifyingError},
		{models.StateCollectingConditions, "", hasValidationErrors, models.StateClarifyingError},
		{models.StateConfirmingConditions, "", hasValidationErrors, models.StateClarifyingError},
		{models.StateGreeting, models.IntentProvideConditions, nil, models.StateCollectingConditions},
		{models.StateGreeting, models.IntentGetClubRecommendation, nil, models.StateCollectingConditions},
		{models.StateGreeting, "", hasAnyConditions, models.StateCollectingConditions},
		{models.StateCollectingConditions, "", skipsConfirmation, models.StateProvidingRecommendation},
		{models.StateCollectingConditions, "", isComplete, models.StateConfirmingConditions},
		{models.StateConfirmingConditions, models.IntentConfirm, nil, models.StateProvidingRecommendation},
		{models.StateConfirmingConditions, models.IntentDeny, nil, models.StateCollectingConditions},
		{models.StateProvidingRecommendation, models.IntentRequestAlternative, nil, models.StateHandlingFeedback},
		{models.StateProvidingRecommendation, models.IntentProvideConditions, nil, models.StateCollectingConditions},
		{models.StateProvidingRecommendation, models.IntentGetClubRecommendation, nil, models.StateCollectingConditions},
		{models.StateProvidingRecommendation, models.IntentConfirm, nil, models.StateHandlingFeedback},
		{models.StateHandlingFeedback, models.IntentProvideConditions, nil, models.StateCollectingConditions},
		{models.StateHandlingFeedback, models.IntentGetClubRecommendation, nil, models.StateCollectingConditions},
		{models.StateClarifyingError, "", retriesExhausted, models.StateEndingSession},
		{models.StateClarifyingError, "", skipsConfirmation, models.StateProvidingRecommendation},
		{models.StateClarifyingError, "", isComplete, models.StateConfirmingConditions},
		{models.StateClarifyingError, "", inputClean, models.StateCollectingConditions},
	}
	return e
}

func hasValidationErrors(_ *DialogueEngine, _ *models.DialogueContext, input *models.ProcessedInput) bool {
	return len(input.ValidationErrors) > 0
}

func hasAnyConditions(_ *DialogueEngine, _ *models.DialogueContext, input *models.ProcessedInput) bool {
	return !input.Conditions.IsEmpty()
}

func isComplete(_ *DialogueEngine, _ *models.DialogueContext, input *models.ProcessedInput) bool {
	return input.Conditions.Distance != nil &&
		len(input.ValidationErrors) == 0 &&
		len(input.MissingInfo) == 0
}

// skipsConfirmation holds when the conditions are complete and the
// engine is configured to recommend without an explicit confirm step.
// Input the processor flagged for confirmation still confirms.
func skipsConfirmation(e *DialogueEngine, ctx *models.DialogueContext, input *models.ProcessedInput) bool {
	return !e.requireConfirmation && !input.NeedsConfirmation && isComplete(e, ctx, input)
}

func inputClean(_ *DialogueEngine, _ *models.DialogueContext, input *models.ProcessedInput) bool {
	return len(input.ValidationErrors) == 0 && !input.Conditions.IsEmpty()
}

func retriesExhausted(e *DialogueEngine, ctx *models.DialogueContext, _ *models.ProcessedInput) bool {
	return ctx.AttemptCount >= e.maxRetries
}

// ProcessTurn runs one conversational turn against the context. The
// context is mutated in place; callers wanting atomicity should pass a
// clone and commit it only on success.
func (e *DialogueEngine) ProcessTurn(ctx *models.DialogueContext, input *models.ProcessedInput) (*models.StateResponse, error) {
	// global handlers win over the current state's handler
	for _, gh := range e.globalHandlers {
		if gh.trigger != "" && strings.Contains(input.Intent, gh.trigger) {
			resp := gh.handle(e, ctx, input)
			e.commit(ctx, input, resp)
			e.logger.WithFields(logrus.Fields{
				"session_id": ctx.SessionID,
				"handler":    gh.name,
				"next_state": resp.State,
			}).Debug("Global dialogue handler fired")
			return resp, nil
		}
	}

	ctx.AttemptCount++

	resp, err := e.dispatchState(ctx, input)
	if err != nil {
		return nil, err
	}

	// scan the transition table for the next turn's state; the message
	// already produced for this turn is not recomputed
	resp.State = ctx.CurrentState
	for _, t := range e.transitions {
		if t.from != ctx.CurrentState {
			continue
		}
		if !strings.Contains(input.Intent, t.trigger) {
			continue
		}
		if t.condition != nil && !t.condition(e, ctx, input) {
			continue
		}
		resp.State = t.to
		break
	}

	e.commit(ctx, input, resp)
	return resp, nil
}

// dispatchState routes to the handler for the current state. The switch
// is exhaustive over the fixed state set; the default arm is a
// programming-contract violation, not a user-facing error.
func (e *DialogueEngine) dispatchState(ctx *models.DialogueContext, input *models.ProcessedInput) (*models.StateResponse, error) {
	switch ctx.CurrentState {
	case models.StateGreeting:
		return e.handleGreeting(ctx, input), nil
	case models.StateCollectingConditions:
		return e.handleCollecting(ctx, input), nil
	case models.StateConfirmingConditions:
		return e.handleConfirming(ctx, input), nil
	case models.StateProvidingRecommendation:
		return e.handleProviding(ctx, input), nil
	case models.StateHandlingFeedback:
		return e.handleFeedback(ctx, input), nil
	case models.StateClarifyingError:
		return e.handleClarifying(ctx, input), nil
	case models.StateEndingSession:
		return e.handleEnding(ctx, input), nil
	default:
		return nil, fmt.Errorf("no handler registered for dialogue state %q", ctx.CurrentState)
	}
}

// commit applies the turn's outcome to the context
func (e *DialogueEngine) commit(ctx *models.DialogueContext, input *models.ProcessedInput, resp *models.StateResponse) {
	if resp.State != ctx.CurrentState {
		ctx.PreviousState = ctx.CurrentState
		ctx.CurrentState = resp.State
		ctx.AttemptCount = 0
	}
	ctx.Conditions = input.Conditions
	ctx.PendingQuestion = resp.Message
	ctx.ExpectedResponse = resp.ExpectedResponse
	ctx.UpdatedAt = time.Now()
	if meta, ok := stateMetadata[resp.State]; ok {
		resp.TimeoutMs = meta.TimeoutMs
	}
}

func (e *DialogueEngine) handleGreeting(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	if len(input.ValidationErrors) > 0 {
		return e.clarificationResponse(ctx, input)
	}
	if !input.Conditions.IsEmpty() {
		msg := fmt.Sprintf("Got it, %s. %s", summarizeConditions(input.Conditions), e.nextPrompt(input))
		return &models.StateResponse{
			Message:          e.personality.Apply(msg),
			ExpectedResponse: []string{"conditions", "confirmation"},
		}
	}
	return &models.StateResponse{
		Message:          e.personality.Apply("Welcome back. Tell me about your shot, starting with the distance."),
		ExpectedResponse: []string{"distance"},
	}
}

func (e *DialogueEngine) handleCollecting(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	if len(input.ValidationErrors) > 0 {
		return e.clarificationResponse(ctx, input)
	}
	if len(input.MissingInfo) > 0 {
		return &models.StateResponse{
			Message:          e.personality.Apply(e.promptFor(input.MissingInfo[0])),
			ExpectedResponse: input.MissingInfo,
		}
	}
	if input.Conditions.Distance == nil {
		return &models.StateResponse{
			Message:          e.personality.Apply(e.promptFor("distance")),
			ExpectedResponse: []string{"distance"},
		}
	}
	if skipsConfirmation(e, ctx, input) {
		if spoken, err := e.recommender.GenerateRecommendation(input.Conditions); err == nil {
			ctx.LastRecommendation = spoken.Recommendation
			return &models.StateResponse{
				Message:          spoken.SpokenText,
				Recommendation:   spoken.Recommendation,
				ExpectedResponse: []string{"feedback", "another option"},
			}
		}
	}
	return &models.StateResponse{
		Message:          e.personality.Apply(fmt.Sprintf("So that's %s. Want my club recommendation?", summarizeConditions(input.Conditions))),
		ExpectedResponse: []string{"yes", "no"},
	}
}

func (e *DialogueEngine) handleConfirming(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	if len(input.ValidationErrors) > 0 {
		return e.clarificationResponse(ctx, input)
	}
	switch input.Intent {
	case models.IntentConfirm:
		spoken, err := e.recommender.GenerateRecommendation(input.Conditions)
		if err != nil {
			return e.clarificationResponse(ctx, input)
		}
		ctx.LastRecommendation = spoken.Recommendation
		return &models.StateResponse{
			Message:          spoken.SpokenText,
			Recommendation:   spoken.Recommendation,
			ExpectedResponse: []string{"feedback", "another option"},
		}
	case models.IntentDeny:
		return &models.StateResponse{
			Message:          e.personality.Apply("Okay, what should I correct?"),
			ExpectedResponse: []string{"conditions"},
		}
	default:
		return &models.StateResponse{
			Message:          e.personality.Apply(fmt.Sprintf("Just to confirm: %s. Is that right?", summarizeConditions(input.Conditions))),
			ExpectedResponse: []string{"yes", "no"},
		}
	}
}

func (e *DialogueEngine) handleProviding(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	switch input.Intent {
	case models.IntentRequestAlternative:
		if ctx.LastRecommendation != nil {
			backup := ctx.LastRecommendation.BackupClub
			return &models.StateResponse{
				Message:          e.personality.Apply(fmt.Sprintf("Then take the %s and swing smooth, %s.", backup.Name, backup.Reason)),
				ExpectedResponse: []string{"feedback"},
			}
		}
		return &models.StateResponse{
			Message:          e.personality.Apply("Give me the shot details again and I'll offer another option."),
			ExpectedResponse: []string{"conditions"},
		}
	case models.IntentRepeat:
		if ctx.LastRecommendation != nil {
			return &models.StateResponse{
				Message:          e.personality.Apply(fmt.Sprintf("I recommend your %s with a %s swing.", ctx.LastRecommendation.PrimaryClub.Name, ctx.LastRecommendation.PrimaryClub.Takeback)),
				ExpectedResponse: []string{"feedback"},
			}
		}
	}
	return &models.StateResponse{
		Message:          e.personality.Apply("How did it go? Or give me the next shot."),
		ExpectedResponse: []string{"feedback", "conditions"},
	}
}

func (e *DialogueEngine) handleFeedback(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	return &models.StateResponse{
		Message:          e.personality.Apply("Noted. Ready for the next shot whenever you are."),
		ExpectedResponse: []string{"conditions"},
	}
}

func (e *DialogueEngine) handleClarifying(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	if len(input.ValidationErrors) == 0 && !input.Conditions.IsEmpty() {
		// the user recovered on their own; continue collecting
		return e.handleCollecting(ctx, input)
	}
	return e.clarificationResponse(ctx, input)
}

func (e *DialogueEngine) handleEnding(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	return &models.StateResponse{
		Message:      e.personality.Apply("Enjoy the rest of the round."),
		EndOfSession: true,
	}
}

// clarificationResponse routes the turn's problem through the recovery
// engine.
func (e *DialogueEngine) clarificationResponse(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	kind := models.ErrAmbiguousInput
	switch {
	case len(input.ValidationErrors) > 0:
		kind = models.ErrInvalidValue
	case len(input.MissingInfo) > 0:
		kind = models.ErrMissingInformation
	case input.Intent == "" && input.Conditions.IsEmpty():
		kind = models.ErrAmbiguousInput
	}
	recovery := e.recovery.HandleError(models.ErrorContext{
		Kind:          kind,
		OriginalInput: input.RawText,
		AttemptNumber: ctx.AttemptCount,
		Confidence:    input.Confidence,
	})
	msg := recovery.Message
	if len(input.ValidationErrors) > 0 {
		msg = fmt.Sprintf("%s %s", input.ValidationErrors[0], recovery.Message)
	}
	return &models.StateResponse{
		Message:          msg,
		ExpectedResponse: recovery.Suggestions,
	}
}

func (e *DialogueEngine) handleStartOver(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	ctx.LastRecommendation = nil
	input.Conditions = &models.GolfConditions{}
	return &models.StateResponse{
		Message:          e.personality.Apply("Okay, starting fresh. How far is the shot?"),
		ExpectedResponse: []string{"distance"},
		State:            models.StateCollectingConditions,
	}
}

func (e *DialogueEngine) handleHelp(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	return &models.StateResponse{
		Message: e.personality.Apply("Tell me the distance, wind, lie and any hazards, for example: " +
			"150 yards to the pin, 10 mph headwind, ball in the rough. " +
			"You can also say start over or goodbye."),
		ExpectedResponse: []string{"conditions"},
		State:            ctx.CurrentState,
	}
}

func (e *DialogueEngine) handleGoodbye(ctx *models.DialogueContext, input *models.ProcessedInput) *models.StateResponse {
	return &models.StateResponse{
		Message:      e.personality.Apply("Good luck out there. Goodbye."),
		State:        models.StateEndingSession,
		EndOfSession: true,
	}
}

func (e *DialogueEngine) promptFor(field string) string {
	if prompts := e.grammar.SlotPrompts(field); len(prompts) > 0 {
		return prompts[0]
	}
	return fmt.Sprintf("What is the %s?", field)
}

func (e *DialogueEngine) nextPrompt(input *models.ProcessedInput) string {
	if len(input.MissingInfo) > 0 {
		return e.promptFor(input.MissingInfo[0])
	}
	return "Anything else about the shot?"
}

// summarizeConditions renders the populated fields as a short phrase
func summarizeConditions(c *models.GolfConditions) string {
	var parts []string
	if c.Distance != nil {
		parts = append(parts, fmt.Sprintf("%.0f yards to the %s", c.Distance.Value, c.Distance.Target))
	}
	if c.Wind != nil {
		if c.Wind.Speed == 0 {
			parts = append(parts, "calm conditions")
		} else {
			parts = append(parts, fmt.Sprintf("%.0f mph %s", c.Wind.Speed, c.Wind.Direction))
		}
	}
	if c.Elevation != nil {
		word := "uphill"
		if c.Elevation.Direction == "down" {
			word = "downhill"
		}
		if c.Elevation.Value > 0 {
			parts = append(parts, fmt.Sprintf("%.0f %s %s", c.Elevation.Value, c.Elevation.Unit, word))
		} else {
			parts = append(parts, word)
		}
	}
	if c.Lie != "" {
		parts = append(parts, fmt.Sprintf("ball in the %s", strings.ReplaceAll(string(c.Lie), "_", " ")))
	}
	if n := len(c.Hazards); n == 1 {
		parts = append(parts, fmt.Sprintf("%s in play", hazardWord(c.Hazards[0].Type)))
	} else if n > 1 {
		parts = append(parts, fmt.Sprintf("%d hazards in play", n))
	}
	if len(parts) == 0 {
		return "no conditions yet"
	}
	return strings.Join(parts, ", ")
}

// StateInfo returns the advisory metadata for a state
func (e *DialogueEngine) StateInfo(state models.DialogueState) models.StateMetadata {
	return stateMetadata[state]
}

// GlobalHandlerNames lists the declared global handlers in match order
func (e *DialogueEngine) GlobalHandlerNames() []string {
	names := make([]string, len(e.globalHandlers))
	for i, gh := range e.globalHandlers {
		names[i] = gh.name
	}
	return names
}
