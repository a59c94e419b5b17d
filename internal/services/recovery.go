package services

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/voice-caddie/internal/models"
)

// maxErrorHistory bounds the per-session error history
const maxErrorHistory = 50

// recoveryStrategies declares 1-2 ordered strategies per error kind.
// Lower priority numbers are preferred; selection skips strategies whose
// action text already appears in the session's history for that kind.
var recoveryStrategies = map[models.ErrorKind][]models.RecoveryStrategy{
	models.ErrAmbiguousInput: {
		{Type: "clarify", Template: "I did not understand that completely. Could you repeat the distance and conditions?", Actions: []string{"repeat_conditions"}, Priority: 1},
		{Type: "suggest", Template: "Try something like: 150 yards to the pin, 10 mph headwind.", Actions: []string{"show_example"}, Priority: 2},
	},
	models.ErrMissingInformation: {
		{Type: "clarify", Template: "I still need the distance. How far is the shot?", Actions: []string{"ask_distance"}, Priority: 1},
		{Type: "suggest", Template: "Give me the yardage and I can work out the rest.", Actions: []string{"ask_yardage_only"}, Priority: 2},
	},
	models.ErrInvalidValue: {
		{Type: "clarify", Template: "That number looks off. Please provide a realistic value.", Actions: []string{"ask_revalue"}, Priority: 1},
		{Type: "suggest", Template: "Golf shots run 0 to 600 yards. What is the actual distance?", Actions: []string{"show_valid_range"}, Priority: 2},
	},
	models.ErrConflictingConditions: {
		{Type: "clarify", Template: "I heard conflicting conditions. Which one should I use?", Actions: []string{"ask_which"}, Priority: 1},
	},
	models.ErrSpeechRecognition: {
		{Type: "clarify", Template: "I did not catch that clearly. Could you say it again?", Actions: []string{"ask_repeat"}, Priority: 1},
		{Type: "fallback", Template: "If it helps, you can speak a little slower and closer to the microphone.", Actions: []string{"mic_tips"}, Priority: 2},
	},
	models.ErrTimeout: {
		{Type: "clarify", Template: "Still there? Tell me about your shot when you are ready.", Actions: []string{"reprompt"}, Priority: 1},
	},
	models.ErrUnsupportedCommand: {
		{Type: "suggest", Template: "I can help with club selection. Tell me the distance and conditions of your shot.", Actions: []string{"explain_scope"}, Priority: 1},
		{Type: "fallback", Template: "Say help to hear what I can do.", Actions: []string{"offer_help"}, Priority: 2},
	},
	models.ErrContextLost: {
		{Type: "restart", Template: "I lost track of where we were. Let's start the shot from the top.", Actions: []string{"restart_shot"}, Priority: 1},
	},
}

// ErrorRecoveryEngine classifies failures, picks non-repeating recovery
// strategies and decides retry versus give-up. History is append-only
// and scoped to one session.
type ErrorRecoveryEngine struct {
	maxRetries  int
	verbose     bool
	personality *Personality
	history     []models.ErrorContext
	logger      *logrus.Logger
}

// NewErrorRecoveryEngine creates a per-session recovery engine
func NewErrorRecoveryEngine(maxRetries int, verbose bool, personality *Personality, logger *logrus.Logger) *ErrorRecoveryEngine {
	return &ErrorRecoveryEngine{
		maxRetries:  maxRetries,
		verbose:     verbose,
		personality: personality,
		logger:      logger,
	}
}

// HandleError selects a recovery for the failure. Once the attempt
// number reaches the retry limit the answer is always a terminal
// give-up with a restart suggestion, regardless of kind.
func (e *ErrorRecoveryEngine) HandleError(ctx models.ErrorContext) models.RecoveryResponse {
	if ctx.AttemptNumber >= e.maxRetries {
		e.record(ctx, nil)
		return models.RecoveryResponse{
			Message:     e.personality.Apply("I am having trouble understanding. Let's start over with a fresh shot."),
			ShouldRetry: false,
			Suggestions: []string{"say start over"},
		}
	}

	strategy := e.selectStrategy(ctx.Kind)
	message := strategy.Template
	if e.verbose && ctx.OriginalInput != "" {
		message = fmt.Sprintf("%s (I heard: %q)", message, ctx.OriginalInput)
	}
	if ctx.AttemptNumber > 1 {
		message = fmt.Sprintf("%s (attempt %d)", message, ctx.AttemptNumber)
	}

	e.record(ctx, strategy.Actions)

	e.logger.WithFields(logrus.Fields{
		"error_kind": ctx.Kind,
		"attempt":    ctx.AttemptNumber,
		"strategy":   strategy.Type,
	}).Info("Selected error recovery strategy")

	return models.RecoveryResponse{
		Message:     e.personality.Apply(message),
		ShouldRetry: true,
		Suggestions: strategy.Actions,
	}
}

// selectStrategy walks the kind's strategies in ascending priority and
// takes the first whose actions were not already suggested for this kind
// in the session. When every strategy has been used it falls back to the
// lowest-priority one.
func (e *ErrorRecoveryEngine) selectStrategy(kind models.ErrorKind) models.RecoveryStrategy {
	strategies := append([]models.RecoveryStrategy(nil), recoveryStrategies[kind]...)
	if len(strategies) == 0 {
		return models.RecoveryStrategy{Type: "clarify", Template: "Could you say that again?"}
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Priority < strategies[j].Priority
	})

	used := make(map[string]bool)
	for _, past := range e.history {
		if past.Kind != kind {
			continue
		}
		for _, fix := range past.SuggestedFixes {
			used[fix] = true
		}
	}

	for _, strategy := range strategies {
		overlap := false
		for _, action := range strategy.Actions {
			if used[action] {
				overlap = true
				break
			}
		}
		if !overlap {
			return strategy
		}
	}
	return strategies[len(strategies)-1]
}

func (e *ErrorRecoveryEngine) record(ctx models.ErrorContext, fixes []string) {
	entry := ctx
	entry.SuggestedFixes = append([]string(nil), fixes...)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	e.history = append(e.history, entry)
	if len(e.history) > maxErrorHistory {
		e.history = e.history[len(e.history)-maxErrorHistory:]
	}
}

// HandleAmbiguousDistance builds a direct clarification when several
// numbers could each be the distance.
func (e *ErrorRecoveryEngine) HandleAmbiguousDistance(input string, values []float64) models.RecoveryResponse {
	options := make([]string, 0, len(values))
	for _, v := range values {
		options = append(options, fmt.Sprintf("%.0f yards", v))
	}
	e.record(models.ErrorContext{Kind: models.ErrAmbiguousInput, OriginalInput: input, AttemptNumber: 1, Confidence: 0.8}, []string{"pick_distance"})
	return models.RecoveryResponse{
		Message:     e.personality.Apply("I heard more than one number. Which is the distance to the target?"),
		ShouldRetry: true,
		Options:     options,
	}
}

// HandleInvalidRange builds a direct correction for an out-of-range value
func (e *ErrorRecoveryEngine) HandleInvalidRange(field string, value, min, max float64) models.RecoveryResponse {
	e.record(models.ErrorContext{Kind: models.ErrInvalidValue, AttemptNumber: 1, Confidence: 0.9}, []string{"fix_" + field})
	return models.RecoveryResponse{
		Message:     e.personality.Apply(fmt.Sprintf("%.0f is outside the valid %s range of %.0f to %.0f. What is the actual value?", value, field, min, max)),
		ShouldRetry: true,
		Suggestions: []string{fmt.Sprintf("give a %s between %.0f and %.0f", field, min, max)},
	}
}

// HandleConflictingWindConditions builds a direct disambiguation when
// two wind readings disagree.
func (e *ErrorRecoveryEngine) HandleConflictingWindConditions(winds []models.WindCondition) models.RecoveryResponse {
	options := make([]string, 0, len(winds))
	for _, w := range winds {
		options = append(options, fmt.Sprintf("%.0f mph %s", w.Speed, w.Direction))
	}
	e.record(models.ErrorContext{Kind: models.ErrConflictingConditions, AttemptNumber: 1, Confidence: 0.9}, []string{"pick_wind"})
	return models.RecoveryResponse{
		Message:     e.personality.Apply("I have two different wind readings. Which one is right?"),
		ShouldRetry: true,
		Options:     options,
	}
}

// SuggestCorrections ranks candidates by normalized Levenshtein
// similarity, keeps those above 0.6 and returns up to three, best first.
func (e *ErrorRecoveryEngine) SuggestCorrections(input string, candidates []string) []string {
	type scored struct {
		candidate  string
		similarity float64
	}
	var kept []scored
	for _, candidate := range candidates {
		similarity := levenshteinSimilarity(strings.ToLower(input), strings.ToLower(candidate))
		if similarity > 0.6 {
			kept = append(kept, scored{candidate, similarity})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].similarity > kept[j].similarity
	})
	if len(kept) > 3 {
		kept = kept[:3]
	}
	out := make([]string, len(kept))
	for i, s := range kept {
		out[i] = s.candidate
	}
	return out
}

// levenshteinSimilarity is 1 - editDistance/max(len(a), len(b))
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

var numericTokenPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// DetectPotentialErrors applies cheap heuristics to flag likely problems
// before the engines run.
func (e *ErrorRecoveryEngine) DetectPotentialErrors(text string, _ *models.DialogueContext) []models.ErrorContext {
	var detected []models.ErrorContext
	lower := strings.ToLower(text)

	tokens := numericTokenPattern.FindAllString(lower, -1)
	distinct := make(map[string]bool)
	for _, token := range tokens {
		distinct[token] = true
	}
	if len(distinct) > 2 {
		detected = append(detected, models.ErrorContext{
			Kind: models.ErrAmbiguousInput, OriginalInput: text, Confidence: 0.8, Timestamp: time.Now(),
		})
	}
	if strings.Contains(lower, "feet") && strings.Contains(lower, "yards") {
		detected = append(detected, models.ErrorContext{
			Kind: models.ErrConflictingConditions, OriginalInput: text, Confidence: 0.9, Timestamp: time.Now(),
		})
	}
	for token := range distinct {
		var value float64
		fmt.Sscanf(token, "%f", &value)
		if value > 500 {
			detected = append(detected, models.ErrorContext{
				Kind: models.ErrInvalidValue, OriginalInput: text, Confidence: 0.7, Timestamp: time.Now(),
			})
			break
		}
	}
	return detected
}

// GetErrorStatistics aggregates the session history. The estimated
// session count is ceil(totalErrors/maxObservedAttempt), a documented
// approximation rather than a true count of distinct sessions.
func (e *ErrorRecoveryEngine) GetErrorStatistics() models.ErrorStatistics {
	return ComputeErrorStatistics(e.history)
}

// ComputeErrorStatistics rolls up any error history, session-local or
// merged across sessions.
func ComputeErrorStatistics(history []models.ErrorContext) models.ErrorStatistics {
	stats := models.ErrorStatistics{CountsByKind: make(map[models.ErrorKind]int)}
	if len(history) == 0 {
		stats.SuccessRate = 1
		return stats
	}

	patternCounts := make(map[string]int)
	confidences := make([]float64, 0, len(history))
	maxAttempt := 1
	for _, entry := range history {
		stats.TotalErrors++
		stats.CountsByKind[entry.Kind]++
		patternCounts[fmt.Sprintf("%s_attempt_%d", entry.Kind, entry.AttemptNumber)]++
		confidences = append(confidences, entry.Confidence)
		if entry.AttemptNumber > maxAttempt {
			maxAttempt = entry.AttemptNumber
		}
	}
	for pattern, count := range patternCounts {
		if count >= 2 {
			stats.CommonPatterns = append(stats.CommonPatterns, pattern)
		}
	}
	sort.Strings(stats.CommonPatterns)

	stats.MeanConfidence = stat.Mean(confidences, nil)
	stats.EstimatedSessions = int(math.Ceil(float64(stats.TotalErrors) / float64(maxAttempt)))
	if stats.EstimatedSessions > 0 {
		recovered := stats.EstimatedSessions - stats.CountsByKind[models.ErrContextLost]
		if recovered < 0 {
			recovered = 0
		}
		stats.SuccessRate = float64(recovered) / float64(stats.EstimatedSessions)
	}
	return stats
}

// History returns a copy of the accumulated error contexts
func (e *ErrorRecoveryEngine) History() []models.ErrorContext {
	return append([]models.ErrorContext(nil), e.history...)
}
