package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-party/internal/app"
	"trivia-party/internal/domain"
	"trivia-party/internal/infra/memory"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type testGame struct {
	service *app.GameService
	teams   *memory.TeamRegistry
	store   *memory.RecordStore
	records *app.Records
	clock   *clockwork.FakeClock
	events  <-chan domain.Event
}

func newTestGame(t *testing.T, teams []domain.Team, opts app.Options) *testGame {
	t.Helper()
	return newTestGameWithStore(t, teams, memory.NewRecordStore(), opts)
}

func newTestGameWithStore(t *testing.T, teams []domain.Team, store *memory.RecordStore, opts app.Options) *testGame {
	t.Helper()
	clock := clockwork.NewFakeClock()
	opts.Clock = clock
	if opts.Transition == 0 {
		opts.Transition = 300 * time.Millisecond
	}
	if opts.Tick == 0 {
		opts.Tick = 100 * time.Millisecond
	}
	registry := memory.NewTeamRegistry(teams)
	records := app.NewRecords(store, nil)
	service := app.NewGameService(context.Background(), testCatalog(), registry, records, opts)
	events, cancel := service.Subscribe()
	t.Cleanup(func() {
		cancel()
		service.Close()
	})
	return &testGame{service: service, teams: registry, store: store, records: records, clock: clock, events: events}
}

func twoTeams() []domain.Team {
	return []domain.Team{{ID: "A", Name: "A"}, {ID: "B", Name: "B"}}
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		ID: "main",
		Categories: []domain.Category{
			{
				ID:   "science",
				Name: "Science",
				Questions: []domain.Question{
					{ID: "s1", Text: "Which is a noble gas?", Answers: []domain.Answer{
						{ID: "1", Text: "Oxygen"},
						{ID: "2", Text: "Neon", IsCorrect: true, Points: 10},
						{ID: "3", Text: "Iron"},
					}},
					{ID: "s2", Text: "Closest planet to the sun?", Answers: []domain.Answer{
						{ID: "1", Text: "Mercury", IsCorrect: true, Points: 20},
						{ID: "2", Text: "Venus"},
					}},
				},
			},
			{
				ID:   "music",
				Name: "Music",
				Questions: []domain.Question{
					{ID: "m1", Text: "How many strings on a violin?", Answers: []domain.Answer{
						{ID: "1", Text: "4", IsCorrect: true, Points: 5},
						{ID: "2", Text: "6"},
					}},
				},
			},
		},
	}
}

func TestSelectCategoryStartsRoundAndRecordsPick(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{})

	applied, err := g.service.SelectCategory(ctx, "science")
	if err != nil || !applied {
		t.Fatalf("select category: applied=%v err=%v", applied, err)
	}
	snap := g.service.Snapshot()
	if snap.Phase != domain.PhaseInQuestion || snap.CategoryID != "science" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Question == nil || snap.Question.ID != "s1" || snap.QuestionNumber != 1 || snap.TotalQuestions != 2 {
		t.Fatalf("expected first question of science, got %+v", snap)
	}
	if snap.Round == nil || snap.Round.CurrentTeamID != "A" {
		t.Fatalf("expected A to answer first, got %+v", snap.Round)
	}
	if got := g.service.PickHistory(); len(got) != 1 || got[0] != "A" {
		t.Fatalf("expected pick history [A], got %v", got)
	}
	if !snap.Categories[0].Visited || snap.Categories[1].Visited {
		t.Fatalf("expected only science visited, got %+v", snap.Categories)
	}

	data, ok, _ := g.store.Load(ctx, app.KeyPickHistory)
	if !ok || string(data) != `["A"]` {
		t.Fatalf("expected persisted pick history, got %q", data)
	}
	waitForEvent(t, g.events, domain.EvtQuestionStarted)

	// Selection is only valid in the selection phase.
	if applied, _ := g.service.SelectCategory(ctx, "music"); applied {
		t.Fatalf("select category must be a no-op while in a question")
	}
}

func TestSelectCategoryRejections(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore()
	_ = store.Save(ctx, app.KeyCompletedQuestions, []byte(`["m1"]`))
	g := newTestGameWithStore(t, twoTeams(), store, app.Options{})

	if _, err := g.service.SelectCategory(ctx, "history"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	applied, err := g.service.SelectCategory(ctx, "music")
	if err != nil || applied {
		t.Fatalf("completed category must be rejected silently, applied=%v err=%v", applied, err)
	}
	if len(g.service.PickHistory()) != 0 {
		t.Fatalf("rejected selection must not record a pick")
	}
}

func TestSelectAnswerScoresAndPersistsTeams(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{})
	mustSelectCategory(t, g, "science")

	if _, _, err := g.service.SelectAnswer(ctx, "nope"); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}

	sel, applied, err := g.service.SelectAnswer(ctx, "1")
	if err != nil || !applied || sel.TeamID != "A" || sel.IsCorrect {
		t.Fatalf("expected A incorrect, got %+v applied=%v err=%v", sel, applied, err)
	}
	sel, applied, err = g.service.SelectAnswer(ctx, "2")
	if err != nil || !applied || sel.TeamID != "B" || sel.Points != 10 {
		t.Fatalf("expected B correct for 10, got %+v applied=%v err=%v", sel, applied, err)
	}
	if team, _ := g.teams.Get("B"); team.Score != 10 {
		t.Fatalf("expected B to have 10 points, got %d", team.Score)
	}
	if snap := g.service.Snapshot(); !snap.Round.Terminal {
		t.Fatalf("round should be terminal")
	}
	if _, applied, _ := g.service.SelectAnswer(ctx, "3"); applied {
		t.Fatalf("selection after terminal must be ignored")
	}

	restored := app.LoadTeams(ctx, g.records)
	if len(restored) != 2 || restored[1].Score != 10 {
		t.Fatalf("expected persisted scores, got %+v", restored)
	}
	evt := waitForEvent(t, g.events, domain.EvtAnswerResolved)
	if evt.TeamID != "A" || evt.Correct {
		t.Fatalf("expected first resolution for A incorrect, got %+v", evt)
	}
}

func TestCategoryFlowThroughLeaderboardTransition(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{})
	mustSelectCategory(t, g, "science")

	mustAnswer(t, g, "1") // A knocked out
	mustAnswer(t, g, "2") // B scores 10
	if !g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("expected first completion to apply")
	}
	completed := waitForEvent(t, g.events, domain.EvtRoundCompleted)
	if completed.QuestionID != "s1" || completed.Earned["B"] != 10 || len(completed.Earned) != 1 {
		t.Fatalf("unexpected round summary %+v", completed)
	}

	snap := g.service.Snapshot()
	if snap.Phase != domain.PhaseInQuestion || snap.Question.ID != "s2" || snap.QuestionNumber != 2 {
		t.Fatalf("expected second question, got %+v", snap)
	}
	// A has fewer points so answers first.
	if snap.Round.CurrentTeamID != "A" {
		t.Fatalf("expected A to open s2, got %s", snap.Round.CurrentTeamID)
	}
	mustAnswer(t, g, "1")
	if !g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("expected category completion")
	}
	waitForEvent(t, g.events, domain.EvtCategoryCompleted)

	snap = g.service.Snapshot()
	if snap.Phase != domain.PhaseTransitioningToLeaderboard || snap.RemainingMs != 300 {
		t.Fatalf("expected transition with 300ms left, got %+v", snap)
	}
	if !snap.Categories[0].Completed {
		t.Fatalf("science should be complete")
	}
	if snap.Leaderboard[0].ID != "A" || snap.Leaderboard[0].Score != 20 {
		t.Fatalf("expected A leading with 20, got %+v", snap.Leaderboard)
	}

	for _, want := range []int64{200, 100, 0} {
		g.clock.Advance(100 * time.Millisecond)
		tick := waitForEvent(t, g.events, domain.EvtTransitionTick)
		if tick.RemainingMs != want {
			t.Fatalf("expected %dms remaining, got %d", want, tick.RemainingMs)
		}
	}
	waitForEvent(t, g.events, domain.EvtReturnedToSelection)

	snap = g.service.Snapshot()
	if snap.Phase != domain.PhaseSelectingCategory || snap.Round != nil {
		t.Fatalf("expected category selection without a round, got %+v", snap)
	}
	// B trails on points.
	if snap.SelectingTeam == nil || snap.SelectingTeam.ID != "B" {
		t.Fatalf("expected B (10 points) to pick next, got %+v", snap.SelectingTeam)
	}
	if applied, _ := g.service.SelectCategory(ctx, "science"); applied {
		t.Fatalf("completed category must not be re-entered")
	}
}

func TestSkipTransitionCancelsCountdown(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{Transition: 10 * time.Second})
	mustSelectCategory(t, g, "music")
	mustAnswer(t, g, "1")
	if !g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("expected completion")
	}
	if g.service.Snapshot().Phase != domain.PhaseTransitioningToLeaderboard {
		t.Fatalf("expected transition phase")
	}
	if _, applied, _ := g.service.SelectAnswer(ctx, "2"); applied {
		t.Fatalf("answers must be ignored during the transition")
	}
	if g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("completion must be a no-op during the transition")
	}

	if !g.service.SkipTransition() {
		t.Fatalf("expected skip to apply")
	}
	if g.service.SkipTransition() {
		t.Fatalf("second skip must be a no-op")
	}
	waitForEvent(t, g.events, domain.EvtReturnedToSelection)

	g.clock.Advance(time.Second)
	assertNoEvent(t, g.events, domain.EvtTransitionTick)
	if g.service.Snapshot().Phase != domain.PhaseSelectingCategory {
		t.Fatalf("expected selection phase")
	}
}

func TestTransitionLockRejectsDoubleComplete(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{LockWindow: time.Second})
	mustSelectCategory(t, g, "science")
	mustAnswer(t, g, "1")
	mustAnswer(t, g, "2")

	if !g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("expected first completion")
	}
	if g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("second completion must be rejected while locked")
	}
	snap := g.service.Snapshot()
	if snap.Question.ID != "s2" || !snap.TransitionLock {
		t.Fatalf("expected to advance exactly once and hold the lock, got %+v", snap)
	}
	if _, applied, _ := g.service.SelectAnswer(ctx, "1"); applied {
		t.Fatalf("answers must be rejected while locked")
	}

	g.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return !g.service.Snapshot().TransitionLock
	}, 2*time.Second, 5*time.Millisecond)

	if _, applied, _ := g.service.SelectAnswer(ctx, "1"); !applied {
		t.Fatalf("answers must be accepted once the lock is released")
	}
	if team, _ := g.teams.Get("A"); team.Score != 20 {
		t.Fatalf("expected A scored exactly once on s2, got %d", team.Score)
	}
}

func TestDoubleCompleteWithoutLockAdvancesOnce(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{})
	mustSelectCategory(t, g, "science")
	mustAnswer(t, g, "2")

	if !g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("expected first completion")
	}
	if g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("the next round is not terminal yet")
	}
	if snap := g.service.Snapshot(); snap.Question.ID != "s2" {
		t.Fatalf("expected s2, got %s", snap.Question.ID)
	}
}

func TestRestartResetsSession(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{})
	mustSelectCategory(t, g, "music")
	mustAnswer(t, g, "1")
	if !g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("expected completion")
	}

	g.service.Restart(ctx)
	waitForEvent(t, g.events, domain.EvtRestarted)

	snap := g.service.Snapshot()
	if snap.Phase != domain.PhaseSelectingCategory || snap.Round != nil || snap.RemainingMs != 0 {
		t.Fatalf("expected clean selection phase, got %+v", snap)
	}
	for _, team := range g.teams.List() {
		if team.Score != 0 {
			t.Fatalf("expected zero scores, got %+v", team)
		}
	}
	if len(g.service.PickHistory()) != 0 {
		t.Fatalf("expected empty pick history")
	}
	for _, category := range snap.Categories {
		if category.Completed || category.Visited {
			t.Fatalf("expected progress cleared, got %+v", category)
		}
	}
	data, _, _ := g.store.Load(ctx, app.KeyCompletedQuestions)
	if string(data) != `[]` {
		t.Fatalf("expected persisted empty completed set, got %q", data)
	}

	// The countdown armed before the restart must never fire.
	g.clock.Advance(time.Second)
	assertNoEvent(t, g.events, domain.EvtTransitionTick)
}

func TestRestoreFromRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore()
	_ = store.Save(ctx, app.KeyPickHistory, []byte(`["A"]`))
	_ = store.Save(ctx, app.KeyCompletedQuestions, []byte(`["s1","s2","retired"]`))
	_ = store.Save(ctx, app.KeySelectedCategories, []byte(`{not json`))

	g := newTestGameWithStore(t, twoTeams(), store, app.Options{})
	snap := g.service.Snapshot()
	if !snap.Categories[0].Completed || snap.Categories[1].Completed {
		t.Fatalf("expected science restored as complete, got %+v", snap.Categories)
	}
	if snap.Categories[0].Visited {
		t.Fatalf("corrupt visited record should load as empty")
	}
	if snap.SelectingTeam == nil || snap.SelectingTeam.ID != "B" {
		t.Fatalf("expected B to pick after A, got %+v", snap.SelectingTeam)
	}
}

func TestEmptyRegistrySkipsTurnAttribution(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, nil, app.Options{})

	if _, ok := g.service.SelectingTeam(); ok {
		t.Fatalf("expected no selecting team")
	}
	mustSelectCategory(t, g, "music")
	if len(g.service.PickHistory()) != 0 {
		t.Fatalf("no team means no pick recorded")
	}
	if !g.service.CompleteCurrentQuestion(ctx) {
		t.Fatalf("a round without teams can be completed")
	}
}

func TestStorageFailureKeepsPlaying(t *testing.T) {
	ctx := context.Background()
	records := app.NewRecords(failingStore{}, nil)
	registry := memory.NewTeamRegistry(twoTeams())
	service := app.NewGameService(ctx, testCatalog(), registry, records, app.Options{Clock: clockwork.NewFakeClock()})
	defer service.Close()

	applied, err := service.SelectCategory(ctx, "music")
	if err != nil || !applied {
		t.Fatalf("storage failures must not block play, applied=%v err=%v", applied, err)
	}
	if !records.Degraded() {
		t.Fatalf("expected records to degrade to memory-only")
	}
	if _, applied, _ := service.SelectAnswer(ctx, "1"); !applied {
		t.Fatalf("expected answer to apply")
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("disk on fire")
}

func mustSelectCategory(t *testing.T, g *testGame, categoryID string) {
	t.Helper()
	applied, err := g.service.SelectCategory(context.Background(), categoryID)
	if err != nil || !applied {
		t.Fatalf("select category %s: applied=%v err=%v", categoryID, applied, err)
	}
}

func mustAnswer(t *testing.T, g *testGame, answerID string) domain.Selection {
	t.Helper()
	sel, applied, err := g.service.SelectAnswer(context.Background(), answerID)
	if err != nil || !applied {
		t.Fatalf("select answer %s: applied=%v err=%v", answerID, applied, err)
	}
	return sel
}

func waitForEvent(t *testing.T, events <-chan domain.Event, want domain.EventType) domain.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt.Type == want {
				return evt
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func assertNoEvent(t *testing.T, events <-chan domain.Event, unwanted domain.EventType) {
	t.Helper()
	timeout := time.After(50 * time.Millisecond)
	for {
		select {
		case evt := <-events:
			if evt.Type == unwanted {
				t.Fatalf("unexpected %s event: %+v", unwanted, evt)
			}
		case <-timeout:
			return
		}
	}
}

func TestRemovedTeamLeavesActiveRound(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, twoTeams(), app.Options{})
	teams := app.NewTeamService(g.teams, g.records, g.service, nil)
	mustSelectCategory(t, g, "science")

	if err := teams.RemoveTeam(ctx, "A"); err != nil {
		t.Fatalf("remove team: %v", err)
	}
	snap := g.service.Snapshot()
	if snap.Round.CurrentTeamID != "B" || len(snap.Round.TeamOrder) != 1 {
		t.Fatalf("expected B alone in the round, got %+v", snap.Round)
	}

	sel := mustAnswer(t, g, "2")
	if sel.TeamID != "B" || sel.Points != 10 {
		t.Fatalf("expected B credited, got %+v", sel)
	}
	if team, _ := g.teams.Get("B"); team.Score != 10 {
		t.Fatalf("expected B to keep the points, got %d", team.Score)
	}
}

func TestRestartReloadsCatalog(t *testing.T) {
	ctx := context.Background()
	loader := &swappableLoader{catalog: testCatalog()}
	repo := memory.NewCatalogRepository(loader, 0)
	g := newTestGame(t, twoTeams(), app.Options{Catalogs: repo})

	trimmed := testCatalog()
	trimmed.Categories = trimmed.Categories[1:]
	loader.set(trimmed)

	g.service.Restart(ctx)
	snap := g.service.Snapshot()
	if len(snap.Categories) != 1 || snap.Categories[0].ID != "music" {
		t.Fatalf("expected reloaded catalog, got %+v", snap.Categories)
	}
	if _, err := g.service.SelectCategory(ctx, "science"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected science to be gone, got %v", err)
	}

	loader.fail(errors.New("db down"))
	g.service.Restart(ctx)
	if got := len(g.service.Catalog().Categories); got != 1 {
		t.Fatalf("failed reload must keep the current catalog, got %d categories", got)
	}
}

type swappableLoader struct {
	mu      sync.Mutex
	catalog domain.Catalog
	err     error
}

func (l *swappableLoader) set(catalog domain.Catalog) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.catalog, l.err = catalog, nil
}

func (l *swappableLoader) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *swappableLoader) LoadCatalog(context.Context, string) (domain.Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog, l.err
}
