package models

import "time"

// DialogueState is one of the seven conversational states
type DialogueState string

const (
	StateGreeting                DialogueState = "GREETING"
	StateCollectingConditions    DialogueState = "COLLECTING_CONDITIONS"
	StateConfirmingConditions    DialogueState = "CONFIRMING_CONDITIONS"
	StateProvidingRecommendation DialogueState = "PROVIDING_RECOMMENDATION"
	StateHandlingFeedback        DialogueState = "HANDLING_FEEDBACK"
	StateClarifyingError         DialogueState = "CLARIFYING_ERROR"
	StateEndingSession           DialogueState = "ENDING_SESSION"
)

// AllDialogueStates lists every state the engine must have a handler for
var AllDialogueStates = []DialogueState{
	StateGreeting,
	StateCollectingConditions,
	StateConfirmingConditions,
	StateProvidingRecommendation,
	StateHandlingFeedback,
	StateClarifyingError,
	StateEndingSession,
}

// UserProfile carries the per-user presentation preferences
type UserProfile struct {
	SkillLevel string `json:"skill_level,omitempty"` // "beginner", "intermediate", "advanced"
	Units      string `json:"units,omitempty"`       // "imperial", "metric"
	Verbosity  string `json:"verbosity,omitempty"`   // "concise", "detailed", "comprehensive"
}

// DialogueContext is the full per-session conversational state. It is
// created at session start and mutated exactly once per turn, atomically,
// by the hosting orchestrator.
type DialogueContext struct {
	SessionID          string              `json:"session_id"`
	CurrentState       DialogueState       `json:"current_state"`
	PreviousState      DialogueState       `json:"previous_state,omitempty"`
	Conditions         *GolfConditions     `json:"conditions"`
	LastRecommendation *ClubRecommendation `json:"last_recommendation,omitempty"`
	PendingQuestion    string              `json:"pending_question,omitempty"`
	ExpectedResponse   []string            `json:"expected_response,omitempty"`
	AttemptCount       int                 `json:"attempt_count"`
	Profile            UserProfile         `json:"profile"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewDialogueContext creates a fresh context in the initial state
func NewDialogueContext(sessionID string, profile UserProfile) *DialogueContext {
	now := time.Now()
	return &DialogueContext{
		SessionID:    sessionID,
		CurrentState: StateGreeting,
		Conditions:   &GolfConditions{},
		Profile:      profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone deep-copies the context so a turn can be worked on speculatively
// and only committed if it completes.
func (c *DialogueContext) Clone() *DialogueContext {
	out := *c
	out.Conditions = c.Conditions.Clone()
	if c.LastRecommendation != nil {
		rec := *c.LastRecommendation
		rec.Warnings = append([]string(nil), c.LastRecommendation.Warnings...)
		out.LastRecommendation = &rec
	}
	out.ExpectedResponse = append([]string(nil), c.ExpectedResponse...)
	return &out
}

// StateResponse is what a state handler produces for one turn
type StateResponse struct {
	Message          string        `json:"message"`
	ExpectedResponse []string      `json:"expected_response,omitempty"`
	State            DialogueState `json:"state"`
	TimeoutMs        int           `json:"timeout_ms,omitempty"`
	Recommendation   *ClubRecommendation `json:"recommendation,omitempty"`
	EndOfSession     bool          `json:"end_of_session,omitempty"`
}

// StateMetadata is advisory per-state timing the hosting loop may apply;
// the engine itself never enforces it.
type StateMetadata struct {
	TimeoutMs  int `json:"timeout_ms"`
	RetryLimit int `json:"retry_limit"`
}
