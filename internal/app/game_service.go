package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-party/internal/domain"
	"trivia-party/internal/game"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// TeamRegistry is the part of team storage the game engine depends on.
type TeamRegistry interface {
	List() []domain.Team
	UpdateScore(teamID string, delta int) error
	SetAllScores(value int)
}

// CatalogRepository loads catalog content (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error)
}

// Options tune timing and round termination. When Catalogs is set, Restart reloads the
// catalog through it so an imported catalog takes effect without a process restart.
type Options struct {
	Catalogs   CatalogRepository
	Transition time.Duration
	Tick       time.Duration
	LockWindow time.Duration
	Policy     domain.RoundPolicy
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Transition <= 0 {
		o.Transition = 10 * time.Second
	}
	if o.Tick <= 0 {
		o.Tick = 100 * time.Millisecond
	}
	if o.Policy == "" {
		o.Policy = domain.RoundPolicyAllCorrect
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// GameService sequences category selection, question rounds and the timed
// leaderboard transition. All exported methods are safe for concurrent use; they
// are serialized by a single mutex so each call observes a consistent state.
type GameService struct {
	catalog domain.Catalog
	teams   TeamRegistry
	records *Records
	opts    Options
	clock   clockwork.Clock
	log     *zap.Logger

	mu            sync.Mutex
	tracker       *game.Tracker
	history       []string
	visited       []string
	phase         domain.Phase
	categoryID    string
	questionIndex int
	round         *game.Round
	remaining     time.Duration
	locked        bool
	selectingID   string

	timerGen        uint64
	transitionTimer clockwork.Timer
	lockGen         uint64
	lockTimer       clockwork.Timer

	subscribers map[chan domain.Event]struct{}
}

// NewGameService restores pick history, visited categories and completed questions
// from records and starts in category selection.
func NewGameService(ctx context.Context, catalog domain.Catalog, teams TeamRegistry, records *Records, opts Options) *GameService {
	opts = opts.withDefaults()
	s := &GameService{
		catalog:     catalog,
		teams:       teams,
		records:     records,
		opts:        opts,
		clock:       opts.Clock,
		log:         opts.Logger,
		tracker:     game.NewTracker(catalog),
		phase:       domain.PhaseSelectingCategory,
		subscribers: make(map[chan domain.Event]struct{}),
	}

	records.Load(ctx, KeyPickHistory, &s.history)
	records.Load(ctx, KeySelectedCategories, &s.visited)
	var completed []string
	if records.Load(ctx, KeyCompletedQuestions, &completed) {
		if dropped := s.tracker.Restore(completed); dropped > 0 {
			s.log.Warn("dropped completed questions missing from catalog", zap.Int("count", dropped))
		}
	}
	if team, ok := game.SelectTeam(teams.List(), s.history); ok {
		s.selectingID = team.ID
	}
	return s
}

// Catalog returns the read-only catalog the session plays.
func (s *GameService) Catalog() domain.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// SelectingTeam returns the team that picks the next category.
func (s *GameService) SelectingTeam() (domain.Team, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return game.SelectTeam(s.teams.List(), s.history)
}

// SelectCategory enters the first open question of a category. It is a no-op outside
// category selection or when the category is already complete.
func (s *GameService) SelectCategory(ctx context.Context, categoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseSelectingCategory {
		return false, nil
	}
	if _, ok := s.catalog.Category(categoryID); !ok {
		return false, domain.ErrCategoryNotFound
	}
	if s.tracker.IsCategoryComplete(categoryID) {
		return false, nil
	}
	question, idx, ok := s.tracker.NextQuestion(categoryID)
	if !ok {
		return false, nil
	}

	// The picking team is recorded when the category is entered, not when it resolves.
	if team, ok := game.SelectTeam(s.teams.List(), s.history); ok {
		s.history = append(s.history, team.ID)
		s.records.Save(ctx, KeyPickHistory, s.history)
	}
	if !contains(s.visited, categoryID) {
		s.visited = append(s.visited, categoryID)
		s.records.Save(ctx, KeySelectedCategories, s.visited)
	}

	s.categoryID = categoryID
	s.phase = domain.PhaseInQuestion
	s.startRoundLocked(question, idx)
	s.refreshSelectingLocked(false)
	return true, nil
}

// SelectAnswer resolves the current team's pick in the active round.
func (s *GameService) SelectAnswer(ctx context.Context, answerID string) (domain.Selection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInQuestion || s.round == nil || s.locked {
		return domain.Selection{}, false, nil
	}
	sel, applied, err := s.round.SelectAnswer(answerID)
	if err != nil || !applied {
		return sel, applied, err
	}
	if sel.IsCorrect && sel.Points > 0 {
		s.records.Save(ctx, KeyTeams, s.teams.List())
	}
	s.emitLocked(domain.Event{
		Type:       domain.EvtAnswerResolved,
		TeamID:     sel.TeamID,
		QuestionID: s.round.Question().ID,
		AnswerID:   sel.AnswerID,
		Correct:    sel.IsCorrect,
		Points:     sel.Points,
	})
	s.refreshSelectingLocked(false)
	return sel, true, nil
}

// CompleteCurrentQuestion records a terminal round and moves to the next open question
// of the category, or to the leaderboard transition when the category is exhausted.
func (s *GameService) CompleteCurrentQuestion(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInQuestion || s.round == nil || s.locked {
		return false
	}
	if !s.round.Complete(s.tracker) {
		return false
	}
	s.records.Save(ctx, KeyCompletedQuestions, s.tracker.Completed())
	s.emitLocked(domain.Event{
		Type:       domain.EvtRoundCompleted,
		CategoryID: s.categoryID,
		QuestionID: s.round.Question().ID,
		Earned:     s.round.Earned(),
	})
	s.armLockLocked()

	if question, idx, ok := s.tracker.NextQuestion(s.categoryID); ok {
		s.startRoundLocked(question, idx)
		return true
	}

	s.emitLocked(domain.Event{Type: domain.EvtCategoryCompleted, CategoryID: s.categoryID})
	s.phase = domain.PhaseTransitioningToLeaderboard
	s.remaining = s.opts.Transition
	s.armTransitionLocked()
	return true
}

// SkipTransition ends the leaderboard countdown early.
func (s *GameService) SkipTransition() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseTransitioningToLeaderboard {
		return false
	}
	s.returnToSelectionLocked()
	return true
}

// Restart zeroes every score and clears pick history, visited categories and
// completed questions. Teams themselves are kept. The catalog is reloaded when a
// repository is configured; on failure the current catalog stays in play.
func (s *GameService) Restart(ctx context.Context) {
	reloaded, ok := s.reloadCatalog(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		s.catalog = reloaded
		s.tracker = game.NewTracker(reloaded)
	}
	s.cancelTimersLocked()
	s.teams.SetAllScores(0)
	s.history = nil
	s.visited = nil
	s.tracker.Reset()
	s.round = nil
	s.categoryID = ""
	s.questionIndex = 0
	s.remaining = 0
	s.phase = domain.PhaseSelectingCategory

	s.records.Save(ctx, KeyTeams, s.teams.List())
	s.records.Save(ctx, KeyPickHistory, []string{})
	s.records.Save(ctx, KeySelectedCategories, []string{})
	s.records.Save(ctx, KeyCompletedQuestions, []string{})

	s.emitLocked(domain.Event{Type: domain.EvtRestarted})
	s.refreshSelectingLocked(true)
	s.log.Info("game restarted")
}

// TeamsChanged is called after the team roster or scores were edited. Teams removed from
// the roster leave the active round; if one held the turn it passes on.
func (s *GameService) TeamsChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round != nil {
		present := make(map[string]struct{})
		for _, team := range s.teams.List() {
			present[team.ID] = struct{}{}
		}
		for _, teamID := range s.round.TeamOrder() {
			if _, ok := present[teamID]; !ok {
				s.round.Drop(teamID)
				s.log.Info("team left the active round", zap.String("team", teamID))
			}
		}
	}
	s.emitLocked(domain.Event{Type: domain.EvtTeamsChanged})
	s.refreshSelectingLocked(false)
}

func (s *GameService) reloadCatalog(ctx context.Context) (domain.Catalog, bool) {
	if s.opts.Catalogs == nil {
		return domain.Catalog{}, false
	}
	s.mu.Lock()
	catalogID := s.catalog.ID
	s.mu.Unlock()

	// A local cache would otherwise hide a catalog imported since the last load.
	if cache, ok := s.opts.Catalogs.(interface{ Invalidate(catalogID string) }); ok {
		cache.Invalidate(catalogID)
	}
	catalog, err := s.opts.Catalogs.GetCatalog(ctx, catalogID)
	if err != nil {
		s.log.Warn("catalog reload failed, keeping current catalog", zap.String("catalog", catalogID), zap.Error(err))
		return domain.Catalog{}, false
	}
	return catalog, true
}

// Close stops pending timers.
func (s *GameService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
}

// Subscribe returns a channel that receives every emitted event.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 64)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns a consistent view of the whole session.
func (s *GameService) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	teams := s.teams.List()
	snap := domain.Snapshot{
		Phase:          s.phase,
		Categories:     make([]domain.CategoryView, 0, len(s.catalog.Categories)),
		Leaderboard:    leaderboard(teams),
		CategoryID:     s.categoryID,
		TransitionLock: s.locked,
		CatalogDone:    s.tracker.IsCatalogComplete(),
	}
	if team, ok := game.SelectTeam(teams, s.history); ok {
		snap.SelectingTeam = &team
	}
	for _, category := range s.catalog.Categories {
		snap.Categories = append(snap.Categories, domain.CategoryView{
			ID:          category.ID,
			Name:        category.Name,
			Emoji:       category.Emoji,
			Description: category.Description,
			Questions:   len(category.Questions),
			Completed:   s.tracker.IsCategoryComplete(category.ID),
			Visited:     contains(s.visited, category.ID),
		})
	}
	if s.round != nil {
		question := s.round.Question()
		view := s.round.View()
		snap.Question = &question
		snap.Round = &view
		snap.QuestionNumber = s.questionIndex + 1
		if category, ok := s.catalog.Category(s.categoryID); ok {
			snap.TotalQuestions = len(category.Questions)
		}
	}
	if s.phase == domain.PhaseTransitioningToLeaderboard {
		snap.RemainingMs = s.remaining.Milliseconds()
	}
	return snap
}

// PickHistory returns a copy of the recorded picks, oldest first.
func (s *GameService) PickHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

func (s *GameService) startRoundLocked(question domain.Question, idx int) {
	s.questionIndex = idx
	s.round = game.NewRound(question, s.teams.List(), s.credit, s.opts.Policy)
	evt := domain.Event{
		Type:       domain.EvtQuestionStarted,
		CategoryID: s.categoryID,
		QuestionID: question.ID,
	}
	if teamID, ok := s.round.CurrentTeam(); ok {
		evt.TeamID = teamID
	}
	s.emitLocked(evt)
}

// credit is the round's scorer; it runs with s.mu held.
func (s *GameService) credit(teamID string, points int) {
	if err := s.teams.UpdateScore(teamID, points); err != nil {
		s.log.Warn("score update failed", zap.String("team", teamID), zap.Int("points", points), zap.Error(err))
	}
}

func (s *GameService) returnToSelectionLocked() {
	s.cancelTimersLocked()
	s.round = nil
	s.categoryID = ""
	s.questionIndex = 0
	s.remaining = 0
	s.phase = domain.PhaseSelectingCategory
	s.emitLocked(domain.Event{Type: domain.EvtReturnedToSelection})
	s.refreshSelectingLocked(false)
}

func (s *GameService) armTransitionLocked() {
	s.stopTransitionLocked()
	s.timerGen++
	gen := s.timerGen
	s.transitionTimer = s.clock.AfterFunc(s.opts.Tick, func() { s.onTransitionTick(gen) })
}

func (s *GameService) onTransitionTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.phase != domain.PhaseTransitioningToLeaderboard {
		return
	}
	s.remaining -= s.opts.Tick
	if s.remaining < 0 {
		s.remaining = 0
	}
	if s.remaining > 0 {
		s.transitionTimer = s.clock.AfterFunc(s.opts.Tick, func() { s.onTransitionTick(gen) })
	}
	s.emitLocked(domain.Event{Type: domain.EvtTransitionTick, RemainingMs: s.remaining.Milliseconds()})
	if s.remaining == 0 {
		s.returnToSelectionLocked()
	}
}

func (s *GameService) stopTransitionLocked() {
	if s.transitionTimer != nil {
		s.transitionTimer.Stop()
		s.transitionTimer = nil
	}
}

// armLockLocked rejects answers and completions until the lock window elapses.
func (s *GameService) armLockLocked() {
	if s.opts.LockWindow <= 0 {
		return
	}
	if s.lockTimer != nil {
		s.lockTimer.Stop()
	}
	s.locked = true
	s.lockGen++
	gen := s.lockGen
	s.lockTimer = s.clock.AfterFunc(s.opts.LockWindow, func() { s.releaseLock(gen) })
}

func (s *GameService) releaseLock(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.lockGen {
		return
	}
	s.locked = false
	s.lockTimer = nil
}

// cancelTimersLocked stops both timers and invalidates callbacks already in flight.
func (s *GameService) cancelTimersLocked() {
	s.stopTransitionLocked()
	s.timerGen++
	if s.lockTimer != nil {
		s.lockTimer.Stop()
		s.lockTimer = nil
	}
	s.lockGen++
	s.locked = false
}

// refreshSelectingLocked emits selecting-team-changed when the picker differs from the last one announced.
func (s *GameService) refreshSelectingLocked(force bool) {
	id := ""
	if team, ok := game.SelectTeam(s.teams.List(), s.history); ok {
		id = team.ID
	}
	if id == s.selectingID && !force {
		return
	}
	s.selectingID = id
	s.emitLocked(domain.Event{Type: domain.EvtSelectingTeamChanged, TeamID: id})
}

func (s *GameService) emitLocked(evt domain.Event) {
	for ch := range s.subscribers {
		select {
		case ch <- evt:
		default:
			// Drop the oldest event so a slow consumer never blocks the game.
			select {
			case <-ch:
			default:
			}
			ch <- evt
		}
	}
}

// leaderboard orders teams by score descending, then name.
func leaderboard(teams []domain.Team) []domain.Team {
	sorted := make([]domain.Team, len(teams))
	copy(sorted, teams)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
