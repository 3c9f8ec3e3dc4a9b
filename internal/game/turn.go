package game

import "trivia-party/internal/domain"

// SelectTeam returns the team that picks the next category, or false when there are no teams.
//
// Precedence: lower score; then a team that never picked; then the team whose last
// pick is oldest; then the lexicographically smaller name. Remaining ties keep the
// earlier team in registry order.
func SelectTeam(teams []domain.Team, history []string) (domain.Team, bool) {
	if len(teams) == 0 {
		return domain.Team{}, false
	}
	lowest := teams[0]
	lowestPick := lastPick(history, lowest.ID)
	for _, candidate := range teams[1:] {
		pick := lastPick(history, candidate.ID)
		if outranks(candidate, pick, lowest, lowestPick) {
			lowest, lowestPick = candidate, pick
		}
	}
	return lowest, true
}

// outranks reports whether team a (last pick index pa) wins strictly over team b.
func outranks(a domain.Team, pa int, b domain.Team, pb int) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if pa != pb {
		// -1 means never picked, which sorts before any real index.
		return pa < pb
	}
	return a.Name < b.Name
}

// lastPick returns the index of the most recent history entry for teamID, or -1.
func lastPick(history []string, teamID string) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] == teamID {
			return i
		}
	}
	return -1
}
