package game

import (
	"testing"

	"trivia-party/internal/domain"
)

func TestSelectTeam(t *testing.T) {
	cases := []struct {
		name    string
		teams   []domain.Team
		history []string
		want    string
	}{
		{
			name:  "lower score wins",
			teams: []domain.Team{{ID: "a", Name: "A", Score: 20}, {ID: "b", Name: "B", Score: 10}},
			want:  "b",
		},
		{
			name:    "never picked beats picked on equal score",
			teams:   []domain.Team{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			history: []string{"a"},
			want:    "b",
		},
		{
			name:    "older pick beats recent pick",
			teams:   []domain.Team{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			history: []string{"a", "b", "a", "b"},
			want:    "a",
		},
		{
			name:    "last occurrence is what counts",
			teams:   []domain.Team{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			history: []string{"b", "a", "b"},
			want:    "a",
		},
		{
			name:  "name breaks remaining ties",
			teams: []domain.Team{{ID: "z", Name: "Zebras"}, {ID: "y", Name: "Antelopes"}},
			want:  "y",
		},
		{
			name:    "unknown history entries are ignored",
			teams:   []domain.Team{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			history: []string{"deleted", "a"},
			want:    "b",
		},
		{
			name:    "score dominates history",
			teams:   []domain.Team{{ID: "a", Name: "A", Score: 5}, {ID: "b", Name: "B", Score: 0}},
			history: []string{"b", "b", "b"},
			want:    "b",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SelectTeam(tc.teams, tc.history)
			if !ok {
				t.Fatalf("expected a team")
			}
			if got.ID != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.ID)
			}
		})
	}
}

func TestSelectTeamRegressionAlternates(t *testing.T) {
	teams := []domain.Team{{ID: "A", Name: "A"}, {ID: "B", Name: "B"}}

	first, _ := SelectTeam(teams, nil)
	if first.ID != "A" {
		t.Fatalf("expected A first, got %s", first.ID)
	}
	second, _ := SelectTeam(teams, []string{"A"})
	if second.ID != "B" {
		t.Fatalf("expected B after A picked, got %s", second.ID)
	}
}

func TestSelectTeamIndependentOfInputOrder(t *testing.T) {
	teams := []domain.Team{
		{ID: "1", Name: "Owls", Score: 10},
		{ID: "2", Name: "Foxes", Score: 10},
		{ID: "3", Name: "Bears", Score: 30},
		{ID: "4", Name: "Crows", Score: 10},
	}
	history := []string{"2", "1", "4", "1"}

	want, _ := SelectTeam(teams, history)
	reversed := make([]domain.Team, len(teams))
	for i := range teams {
		reversed[len(teams)-1-i] = teams[i]
	}
	got, _ := SelectTeam(reversed, history)
	if got.ID != want.ID || want.ID != "2" {
		t.Fatalf("expected team 2 regardless of order, got %s and %s", want.ID, got.ID)
	}
}

func TestSelectTeamEmptyRegistry(t *testing.T) {
	if _, ok := SelectTeam(nil, []string{"a"}); ok {
		t.Fatalf("expected no selecting team for empty registry")
	}
}
