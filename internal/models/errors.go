package models

import "time"

// ErrorKind classifies a failed turn
type ErrorKind string

const (
	ErrAmbiguousInput         ErrorKind = "AMBIGUOUS_INPUT"
	ErrMissingInformation     ErrorKind = "MISSING_INFORMATION"
	ErrInvalidValue           ErrorKind = "INVALID_VALUE"
	ErrConflictingConditions  ErrorKind = "CONFLICTING_CONDITIONS"
	ErrSpeechRecognition      ErrorKind = "SPEECH_RECOGNITION_ERROR"
	ErrTimeout                ErrorKind = "TIMEOUT"
	ErrUnsupportedCommand     ErrorKind = "UNSUPPORTED_COMMAND"
	ErrContextLost            ErrorKind = "CONTEXT_LOST"
)

// AllErrorKinds lists the full taxonomy
var AllErrorKinds = []ErrorKind{
	ErrAmbiguousInput,
	ErrMissingInformation,
	ErrInvalidValue,
	ErrConflictingConditions,
	ErrSpeechRecognition,
	ErrTimeout,
	ErrUnsupportedCommand,
	ErrContextLost,
}

// ErrorContext records one failure. Append-only: instances are never
// mutated after creation and accumulate into a bounded per-session
// history used for statistics and strategy de-duplication.
type ErrorContext struct {
	Kind          ErrorKind `json:"kind"`
	OriginalInput string    `json:"original_input,omitempty"`
	AttemptNumber int       `json:"attempt_number"`
	SuggestedFixes []string `json:"suggested_fixes,omitempty"`
	Confidence    float64   `json:"confidence"`
	Timestamp     time.Time `json:"timestamp"`
}

// RecoveryStrategy is one declared way out of an error kind
type RecoveryStrategy struct {
	Type     string   `json:"type"` // "clarify", "suggest", "fallback", "restart"
	Template string   `json:"template"`
	Actions  []string `json:"actions,omitempty"`
	Priority int      `json:"priority"`
}

// RecoveryResponse is the engine's decision for one failure
type RecoveryResponse struct {
	Message     string   `json:"message"`
	ShouldRetry bool     `json:"should_retry"`
	Suggestions []string `json:"suggestions,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// ErrorStatistics aggregates the session's error history
type ErrorStatistics struct {
	TotalErrors       int               `json:"total_errors"`
	CountsByKind      map[ErrorKind]int `json:"counts_by_kind"`
	CommonPatterns    []string          `json:"common_patterns,omitempty"`
	MeanConfidence    float64           `json:"mean_confidence"`
	EstimatedSessions int               `json:"estimated_sessions"`
	SuccessRate       float64           `json:"success_rate"`
}
