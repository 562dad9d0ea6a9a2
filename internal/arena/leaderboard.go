package arena

import "sort"

// LeaderboardEntry is the derived per-generator aggregate. Entries exist for
// every known generator even at zero votes.
type LeaderboardEntry struct {
	Generator GeneratorIdentity `json:"model"`
	Votes     int64             `json:"votes"`
}

// BuildLeaderboard turns a tally into the ordered leaderboard: descending
// vote count, ties broken by canonical generator order. Two builds over the
// same tally produce identical output.
func BuildLeaderboard(tally map[GeneratorIdentity]int64) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, BatchSize)
	for _, generator := range knownGenerators {
		entries = append(entries, LeaderboardEntry{
			Generator: generator,
			Votes:     tally[generator],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Votes != entries[j].Votes {
			return entries[i].Votes > entries[j].Votes
		}
		return entries[i].Generator.canonicalRank() < entries[j].Generator.canonicalRank()
	})

	return entries
}
