package domain

// EventType names a notification emitted to the presentation layer.
type EventType string

const (
	EvtSelectingTeamChanged EventType = "selectingTeamChanged"
	EvtQuestionStarted      EventType = "questionStarted"
	EvtAnswerResolved       EventType = "answerResolved"
	EvtRoundCompleted       EventType = "roundCompleted"
	EvtCategoryCompleted    EventType = "categoryCompleted"
	EvtTransitionTick       EventType = "transitionTick"
	EvtReturnedToSelection  EventType = "returnedToSelection"
	EvtRestarted            EventType = "restarted"
	EvtTeamsChanged         EventType = "teamsChanged"
)

// Event is a single state change notification. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType      `json:"type"`
	TeamID      string         `json:"teamId,omitempty"`
	CategoryID  string         `json:"categoryId,omitempty"`
	QuestionID  string         `json:"questionId,omitempty"`
	AnswerID    string         `json:"answerId,omitempty"`
	Correct     bool           `json:"correct,omitempty"`
	Points      int            `json:"points,omitempty"`
	RemainingMs int64          `json:"remainingMs,omitempty"`
	Earned      map[string]int `json:"earned,omitempty"`
}

// RoundView is the observable state of the active question round.
type RoundView struct {
	QuestionID    string      `json:"questionId"`
	TeamOrder     []string    `json:"teamOrder"`
	CurrentTeamID string      `json:"currentTeamId,omitempty"`
	KnockedOut    []string    `json:"knockedOut"`
	Selections    []Selection `json:"selections"`
	Terminal      bool        `json:"terminal"`
}

// CategoryView annotates a catalog category for the selection screen.
type CategoryView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji,omitempty"`
	Description string `json:"description,omitempty"`
	Questions   int    `json:"questions"`
	Completed   bool   `json:"completed"`
	Visited     bool   `json:"visited"`
}

// Snapshot is a read-only view of the whole session.
type Snapshot struct {
	Phase          Phase          `json:"phase"`
	SelectingTeam  *Team          `json:"selectingTeam,omitempty"`
	Categories     []CategoryView `json:"categories"`
	Leaderboard    []Team         `json:"leaderboard"`
	CategoryID     string         `json:"categoryId,omitempty"`
	Question       *Question      `json:"question,omitempty"`
	QuestionNumber int            `json:"questionNumber,omitempty"`
	TotalQuestions int            `json:"totalQuestions,omitempty"`
	Round          *RoundView     `json:"round,omitempty"`
	RemainingMs    int64          `json:"remainingMs,omitempty"`
	TransitionLock bool           `json:"transitionLock"`
	CatalogDone    bool           `json:"catalogDone"`
}
