package app

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"trivia-party/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TeamDirectory is full team storage, including roster management.
type TeamDirectory interface {
	TeamRegistry
	Get(teamID string) (domain.Team, bool)
	Add(team domain.Team) error
	Update(team domain.Team) error
	Remove(teamID string) error
	SetScore(teamID string, score int) error
	Clear()
}

// TeamObserver is notified after any roster or score edit.
type TeamObserver interface {
	TeamsChanged()
}

var teamColors = []string{"#e53935", "#1e88e5", "#43a047", "#8e24aa", "#fb8c00", "#00897b", "#d81b60", "#fdd835"}

var teamEmojis = []string{
	"🦁", "🐯", "🦊", "🦝", "🐼", "🦄", "🦅", "🦜",
	"🐙", "🦈", "🦀", "🐉", "🦖", "🦕", "🦭", "🐸",
	"🦩", "🦚", "🦉", "🐺", "🐲", "🦡", "🦫", "🦘",
}

// TeamService handles team administration: roster edits and manual score adjustments.
type TeamService struct {
	teams    TeamDirectory
	records  *Records
	observer TeamObserver
	log      *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTeamService(teams TeamDirectory, records *Records, observer TeamObserver, log *zap.Logger) *TeamService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TeamService{
		teams:    teams,
		records:  records,
		observer: observer,
		log:      log,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *TeamService) List() []domain.Team {
	return s.teams.List()
}

// AddTeam registers a new team with score 0. Blank color and emoji are filled in.
func (s *TeamService) AddTeam(ctx context.Context, name, color, emoji string) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Team{}, domain.ErrInvalidTeamName
	}
	if color == "" {
		color = teamColors[len(s.teams.List())%len(teamColors)]
	}
	if emoji == "" {
		s.mu.Lock()
		emoji = teamEmojis[s.rnd.Intn(len(teamEmojis))]
		s.mu.Unlock()
	}
	team := domain.Team{ID: uuid.NewString(), Name: name, Color: color, Emoji: emoji}
	if err := s.teams.Add(team); err != nil {
		return domain.Team{}, err
	}
	s.changed(ctx)
	s.log.Info("team added", zap.String("team", team.ID), zap.String("name", team.Name))
	return team, nil
}

// UpdateTeam renames or recolors a team. Empty fields are left unchanged.
func (s *TeamService) UpdateTeam(ctx context.Context, teamID, name, color string) (domain.Team, error) {
	team, ok := s.teams.Get(teamID)
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if name = strings.TrimSpace(name); name != "" {
		team.Name = name
	}
	if color != "" {
		team.Color = color
	}
	if err := s.teams.Update(team); err != nil {
		return domain.Team{}, err
	}
	s.changed(ctx)
	return team, nil
}

// RemoveTeam deletes a team. Its pick history entries remain and are ignored by turn selection.
func (s *TeamService) RemoveTeam(ctx context.Context, teamID string) error {
	if err := s.teams.Remove(teamID); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// AdjustScore adds delta to a team's score, clamping the result at zero.
func (s *TeamService) AdjustScore(ctx context.Context, teamID string, delta int) (domain.Team, error) {
	team, ok := s.teams.Get(teamID)
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	score := team.Score + delta
	if score < 0 {
		score = 0
	}
	if err := s.teams.SetScore(teamID, score); err != nil {
		return domain.Team{}, err
	}
	team.Score = score
	s.changed(ctx)
	return team, nil
}

// ResetTeams deletes every team and its stored record.
func (s *TeamService) ResetTeams(ctx context.Context) {
	s.teams.Clear()
	s.records.Remove(ctx, KeyTeams)
	if s.observer != nil {
		s.observer.TeamsChanged()
	}
	s.log.Info("teams reset")
}

func (s *TeamService) changed(ctx context.Context) {
	s.records.Save(ctx, KeyTeams, s.teams.List())
	if s.observer != nil {
		s.observer.TeamsChanged()
	}
}
