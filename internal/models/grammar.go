package models

// Intent names recognized by the grammar
const (
	IntentGetClubRecommendation = "GET_CLUB_RECOMMENDATION"
	IntentProvideConditions     = "PROVIDE_CONDITIONS"
	IntentConfirm               = "CONFIRM"
	IntentDeny                  = "DENY"
	IntentRequestAlternative    = "REQUEST_ALTERNATIVE"
	IntentRepeat                = "REPEAT"
	IntentStartOver             = "START_OVER"
	IntentHelp                  = "HELP"
	IntentGoodbye               = "GOODBYE"
)

// Intent declares a user goal, its prior confidence, and its slot needs
type Intent struct {
	Name          string   `json:"name"`
	Confidence    float64  `json:"confidence"` // prior, multiplied into every match
	RequiredSlots []string `json:"required_slots,omitempty"`
	OptionalSlots []string `json:"optional_slots,omitempty"`
}

// Entity is the vocabulary bound to a slot. Enum entities normalize raw
// matches through Synonyms; number entities parse to float64.
type Entity struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"` // "enum" or "number"
	Pattern  string            `json:"pattern"`
	Synonyms map[string]string `json:"synonyms,omitempty"`
}

// Slot is a named piece of information an intent needs
type Slot struct {
	Name    string   `json:"name"`
	Entity  string   `json:"entity"`
	Prompts []string `json:"prompts,omitempty"`
}

// UtteranceTemplate is a set of pattern variants for one intent. Each
// pattern mixes literal text with {slot} placeholders; {slot?} marks the
// placeholder optional. Examples are worked utterances each pattern set
// is expected to match.
type UtteranceTemplate struct {
	Intent   string   `json:"intent"`
	Patterns []string `json:"patterns"`
	Examples []string `json:"examples,omitempty"`
}

// GrammarResult is the outcome of matching one utterance. An empty
// Intent with zero Confidence means nothing matched, which is a normal
// outcome for ambiguous input rather than an error.
type GrammarResult struct {
	Intent       string                 `json:"intent"`
	Confidence   float64                `json:"confidence"`
	Slots        map[string]interface{} `json:"slots,omitempty"`
	MissingSlots []string               `json:"missing_slots,omitempty"`
}

// ProcessedInput is the combined result of one InputProcessor turn
type ProcessedInput struct {
	RawText           string                 `json:"raw_text"`
	Intent            string                 `json:"intent"`
	Confidence        float64                `json:"confidence"`
	Slots             map[string]interface{} `json:"slots,omitempty"`
	Conditions        *GolfConditions        `json:"conditions"`
	ValidationErrors  []string               `json:"validation_errors,omitempty"`
	MissingInfo       []string               `json:"missing_info,omitempty"`
	NeedsConfirmation bool                   `json:"needs_confirmation"`
	Phase             string                 `json:"phase"`
	AttemptNumber     int                    `json:"attempt_number"`
}
