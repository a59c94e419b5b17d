package services

import (
	"math/rand"
	"strings"
)

// Personality styles a message for one of the three supported voices.
// The encouraging style draws a random prefix, so the source is seedable
// for deterministic tests.
type Personality struct {
	style string
	rng   *rand.Rand
}

// NewPersonality creates a personality filter. Unknown styles behave as
// professional.
func NewPersonality(style string, seed int64) *Personality {
	return &Personality{
		style: style,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

var casualSubstitutions = [][2]string{
	{"I recommend", "I'd go with"},
	{"Please provide", "Just tell me"},
	{"I did not understand", "I didn't catch that"},
	{"Could you repeat", "Mind saying that again"},
	{"You should", "You wanna"},
	{"Excellent", "Nice"},
}

var encouragingPrefixes = []string{
	"You've got this. ",
	"No worries at all. ",
	"Great question. ",
	"Happy to help. ",
	"Easy fix. ",
}

// Apply passes message through exactly one of the three filters:
// professional is the identity, casual swaps fixed phrases, encouraging
// prepends a random empathetic prefix and lower-cases the body.
func (p *Personality) Apply(message string) string {
	switch p.style {
	case "casual":
		for _, sub := range casualSubstitutions {
			message = strings.ReplaceAll(message, sub[0], sub[1])
		}
		return message
	case "encouraging":
		prefix := encouragingPrefixes[p.rng.Intn(len(encouragingPrefixes))]
		return prefix + strings.ToLower(message)
	default:
		return message
	}
}

// Style reports the active style name
func (p *Personality) Style() string {
	return p.style
}
