package memory

import (
	"sync"

	"trivia-party/internal/domain"
)

// TeamRegistry keeps teams in registration order. It implements app.TeamDirectory.
type TeamRegistry struct {
	mu    sync.RWMutex
	teams []domain.Team
}

func NewTeamRegistry(teams []domain.Team) *TeamRegistry {
	return &TeamRegistry{teams: append([]domain.Team(nil), teams...)}
}

func (r *TeamRegistry) List() []domain.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Team(nil), r.teams...)
}

func (r *TeamRegistry) Get(teamID string) (domain.Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(teamID); i >= 0 {
		return r.teams[i], true
	}
	return domain.Team{}, false
}

func (r *TeamRegistry) UpdateScore(teamID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(teamID)
	if i < 0 {
		return domain.ErrTeamNotFound
	}
	r.teams[i].Score += delta
	return nil
}

func (r *TeamRegistry) SetScore(teamID string, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(teamID)
	if i < 0 {
		return domain.ErrTeamNotFound
	}
	r.teams[i].Score = score
	return nil
}

func (r *TeamRegistry) SetAllScores(value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.teams {
		r.teams[i].Score = value
	}
}

func (r *TeamRegistry) Add(team domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(team.ID) >= 0 {
		return nil
	}
	r.teams = append(r.teams, team)
	return nil
}

// Update replaces display fields; the score is left untouched.
func (r *TeamRegistry) Update(team domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(team.ID)
	if i < 0 {
		return domain.ErrTeamNotFound
	}
	r.teams[i].Name = team.Name
	r.teams[i].Color = team.Color
	r.teams[i].Emoji = team.Emoji
	return nil
}

func (r *TeamRegistry) Remove(teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(teamID)
	if i < 0 {
		return domain.ErrTeamNotFound
	}
	r.teams = append(r.teams[:i], r.teams[i+1:]...)
	return nil
}

func (r *TeamRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams = nil
}

func (r *TeamRegistry) indexLocked(teamID string) int {
	for i := range r.teams {
		if r.teams[i].ID == teamID {
			return i
		}
	}
	return -1
}
