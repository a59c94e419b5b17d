package models

import "time"

// ClubSelection is one club with its swing guidance
type ClubSelection struct {
	Type         string `json:"type"` // "driver", "wood", "hybrid", "iron", "wedge"
	Number       int    `json:"number,omitempty"`
	Name         string `json:"name"`
	Takeback     string `json:"takeback"`      // "3/4", "full"
	FacePosition string `json:"face_position"` // "square", "open"
	Reason       string `json:"reason,omitempty"`
}

// AimPoint is where to aim relative to the target
type AimPoint struct {
	Direction  string `json:"direction"` // "center", "left", "right"
	Adjustment string `json:"adjustment"`
	Reason     string `json:"reason,omitempty"`
}

// Stance is setup guidance at address
type Stance struct {
	BallPosition string `json:"ball_position"` // "forward", "center", "back"
	Weight       string `json:"weight"`        // "balanced", "front", "back"
	Alignment    string `json:"alignment"`
	Special      string `json:"special,omitempty"`
}

// ClubRecommendation is a full computed recommendation for one shot
type ClubRecommendation struct {
	PrimaryClub      ClubSelection `json:"primary_club"`
	BackupClub       ClubSelection `json:"backup_club"`
	AimPoint         AimPoint      `json:"aim_point"`
	Stance           Stance        `json:"stance"`
	AdjustedDistance float64       `json:"adjusted_distance"`
	Confidence       float64       `json:"confidence"`
	Warnings         []string      `json:"warnings,omitempty"`
	GeneratedAt      time.Time     `json:"generated_at"`
}

// SpokenRecommendation pairs a recommendation with its narration
type SpokenRecommendation struct {
	SpokenText     string              `json:"spoken_text"`
	Recommendation *ClubRecommendation `json:"recommendation"`
}

// TurnResponse is the public per-turn response shape
type TurnResponse struct {
	SessionID      string              `json:"session_id"`
	SpokenText     string              `json:"spoken_text"`
	Recommendation *ClubRecommendation `json:"recommendation,omitempty"`
	State          DialogueState       `json:"state"`
	NeedsInput     bool                `json:"needs_input"`
	ExpectedInput  []string            `json:"expected_input,omitempty"`
	Confidence     float64             `json:"confidence"`
}
