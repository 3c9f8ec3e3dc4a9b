package domain

import (
	"fmt"
	"strings"
)

// Team is a competing team and its accumulated score.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Color string `json:"color,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

// Answer is one selectable answer of a question.
type Answer struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
	Points    int    `json:"points" yaml:"points"`
	ImageURL  string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

// Question holds its answers in display order.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Answers []Answer `json:"answers" yaml:"answers"`
}

// Category holds its questions in play order.
type Category struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Emoji       string     `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// Catalog is the read-only content tree supplied at startup.
type Catalog struct {
	ID         string     `json:"id" yaml:"id"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// Selection records one team's pick within a question round.
type Selection struct {
	TeamID    string `json:"teamId"`
	AnswerID  string `json:"answerId"`
	IsCorrect bool   `json:"isCorrect"`
	Points    int    `json:"points"`
}

// Phase is the resting state of the session controller.
type Phase string

const (
	PhaseSelectingCategory          Phase = "selectingCategory"
	PhaseInQuestion                 Phase = "inQuestion"
	PhaseTransitioningToLeaderboard Phase = "transitioningToLeaderboard"
)

// RoundPolicy decides when a question round terminates.
type RoundPolicy string

const (
	// RoundPolicyAllCorrect ends a round once every correct answer is found or every team is knocked out.
	RoundPolicyAllCorrect RoundPolicy = "all-correct"
	// RoundPolicyFirstCorrect ends a round on the first correct answer.
	RoundPolicyFirstCorrect RoundPolicy = "first-correct"
)

// ParseRoundPolicy maps a configured name to a RoundPolicy. Blank means all-correct.
func ParseRoundPolicy(raw string) (RoundPolicy, error) {
	switch policy := RoundPolicy(strings.ToLower(strings.TrimSpace(raw))); policy {
	case "":
		return RoundPolicyAllCorrect, nil
	case RoundPolicyAllCorrect, RoundPolicyFirstCorrect:
		return policy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRoundPolicy, raw)
	}
}
