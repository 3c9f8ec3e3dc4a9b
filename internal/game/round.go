package game

import (
	"sort"

	"trivia-party/internal/domain"
)

// Scorer credits points to a team. The round never deducts points.
type Scorer func(teamID string, points int)

// Round resolves a single question: teams answer in ascending score order,
// a wrong pick knocks the team out, and the round ends once every correct
// answer has been found or every team is knocked out.
type Round struct {
	question   domain.Question
	policy     domain.RoundPolicy
	score      Scorer
	teamOrder  []string
	current    int
	knockedOut map[string]struct{}
	selections []domain.Selection
	found      int
}

// NewRound orders teams by ascending score; equal scores keep registry order.
func NewRound(question domain.Question, teams []domain.Team, score Scorer, policy domain.RoundPolicy) *Round {
	ordered := make([]domain.Team, len(teams))
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score < ordered[j].Score
	})

	order := make([]string, len(ordered))
	for i, team := range ordered {
		order[i] = team.ID
	}
	if policy == "" {
		policy = domain.RoundPolicyAllCorrect
	}
	if score == nil {
		score = func(string, int) {}
	}
	current := 0
	if len(order) == 0 {
		current = -1
	}
	return &Round{
		question:   question,
		policy:     policy,
		score:      score,
		teamOrder:  order,
		current:    current,
		knockedOut: make(map[string]struct{}),
	}
}

// SelectAnswer records the current team's pick. It returns applied == false without
// an error when the round is already over, the answer was already picked, or no team
// remains. Unknown answers yield domain.ErrInvalidAnswer and leave the round untouched.
func (r *Round) SelectAnswer(answerID string) (domain.Selection, bool, error) {
	if r.Terminal() {
		return domain.Selection{}, false, nil
	}
	answer, ok := r.question.Answer(answerID)
	if !ok {
		return domain.Selection{}, false, domain.ErrInvalidAnswer
	}
	if r.picked(answerID) {
		return domain.Selection{}, false, nil
	}
	teamID, ok := r.CurrentTeam()
	if !ok {
		return domain.Selection{}, false, nil
	}

	sel := domain.Selection{TeamID: teamID, AnswerID: answerID, IsCorrect: answer.IsCorrect}
	if answer.IsCorrect {
		sel.Points = answer.Points
		r.found++
		r.score(teamID, answer.Points)
	} else {
		r.knockedOut[teamID] = struct{}{}
	}
	r.selections = append(r.selections, sel)
	r.advance()
	return sel, true, nil
}

// advance moves to the next team in order, cyclically, that is not knocked out.
func (r *Round) advance() {
	n := len(r.teamOrder)
	if n == 0 || r.current < 0 {
		r.current = -1
		return
	}
	for step := 1; step <= n; step++ {
		idx := (r.current + step) % n
		if _, out := r.knockedOut[r.teamOrder[idx]]; !out {
			r.current = idx
			return
		}
	}
	r.current = -1
}

// Drop takes a team that left the game out of the turn order. If it held the turn,
// the next team still in play answers. Its earlier selections stay on record.
func (r *Round) Drop(teamID string) bool {
	idx := -1
	for i, id := range r.teamOrder {
		if id == teamID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	wasCurrent := idx == r.current
	r.teamOrder = append(r.teamOrder[:idx:idx], r.teamOrder[idx+1:]...)
	delete(r.knockedOut, teamID)

	n := len(r.teamOrder)
	switch {
	case n == 0:
		r.current = -1
	case r.current < 0:
	case wasCurrent:
		// Step back one slot so advance lands on the team that moved into idx.
		r.current = (idx - 1 + n) % n
		r.advance()
	case idx < r.current:
		r.current--
	}
	return true
}

// TeamOrder returns the answering order, removed teams excluded.
func (r *Round) TeamOrder() []string {
	return append([]string(nil), r.teamOrder...)
}

func (r *Round) picked(answerID string) bool {
	for _, sel := range r.selections {
		if sel.AnswerID == answerID {
			return true
		}
	}
	return false
}

// Terminal reports whether the round has reached an outcome.
// A question without correct answers ends when every answer has been picked.
func (r *Round) Terminal() bool {
	if len(r.knockedOut) == len(r.teamOrder) {
		return true
	}
	correct := r.question.CorrectCount()
	if correct == 0 {
		return len(r.selections) >= len(r.question.Answers)
	}
	if r.policy == domain.RoundPolicyFirstCorrect {
		return r.found > 0
	}
	return r.found >= correct
}

// Complete marks the question complete once the round is terminal.
func (r *Round) Complete(tracker *Tracker) bool {
	if !r.Terminal() {
		return false
	}
	tracker.MarkComplete(r.question.ID)
	return true
}

// CurrentTeam returns the team whose turn it is.
func (r *Round) CurrentTeam() (string, bool) {
	if r.current < 0 || r.current >= len(r.teamOrder) {
		return "", false
	}
	return r.teamOrder[r.current], true
}

func (r *Round) Question() domain.Question {
	return r.question
}

func (r *Round) Selections() []domain.Selection {
	out := make([]domain.Selection, len(r.selections))
	copy(out, r.selections)
	return out
}

// Earned sums points per team for this question; teams that scored nothing are omitted.
func (r *Round) Earned() map[string]int {
	earned := make(map[string]int)
	for _, sel := range r.selections {
		if sel.IsCorrect && sel.Points > 0 {
			earned[sel.TeamID] += sel.Points
		}
	}
	return earned
}

func (r *Round) View() domain.RoundView {
	view := domain.RoundView{
		QuestionID: r.question.ID,
		TeamOrder:  append([]string(nil), r.teamOrder...),
		KnockedOut: make([]string, 0, len(r.knockedOut)),
		Selections: r.Selections(),
		Terminal:   r.Terminal(),
	}
	if teamID, ok := r.CurrentTeam(); ok {
		view.CurrentTeamID = teamID
	}
	for _, teamID := range r.teamOrder {
		if _, out := r.knockedOut[teamID]; out {
			view.KnockedOut = append(view.KnockedOut, teamID)
		}
	}
	return view
}
