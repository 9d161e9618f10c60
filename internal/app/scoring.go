package app

import (
	"sort"

	"livequiz-service/internal/domain"
)

// ScoringConfig tunes the points formula. Zero values fall back to the
// classic 1000 base / 1000 max bonus curve.
type ScoringConfig struct {
	BasePoints   int
	MaxTimeBonus int
}

// DefaultScoring is the stock Kahoot-style curve.
var DefaultScoring = ScoringConfig{BasePoints: 1000, MaxTimeBonus: 1000}

// Score computes points for one submission. Incorrect answers score zero.
// Correct answers earn the base plus a bonus proportional to the time left
// on the countdown, so a faster correct answer never scores less than a
// slower one.
func (c ScoringConfig) Score(correct bool, latencyMs, limitMs int64) int {
	if !correct {
		return 0
	}
	base := c.BasePoints
	if base <= 0 {
		base = DefaultScoring.BasePoints
	}
	maxBonus := c.MaxTimeBonus
	if maxBonus <= 0 {
		maxBonus = DefaultScoring.MaxTimeBonus
	}
	if limitMs <= 0 || latencyMs >= limitMs {
		return base
	}
	if latencyMs < 0 {
		latencyMs = 0
	}
	bonus := int((limitMs - latencyMs) * int64(maxBonus) / limitMs)
	return base + bonus
}

// rankParticipants orders the final standings: score descending, ties
// broken by lower cumulative answer latency, then by who reached their
// score earlier, then by name. The same rule the leaderboard applies, so
// live rankings and persisted attempts agree.
func rankParticipants(participants []*domain.Participant) []domain.RankedEntry {
	ordered := make([]*domain.Participant, len(participants))
	copy(ordered, participants)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalLatencyMs != b.TotalLatencyMs {
			return a.TotalLatencyMs < b.TotalLatencyMs
		}
		if !a.LastScoredAt.Equal(b.LastScoredAt) {
			return a.LastScoredAt.Before(b.LastScoredAt)
		}
		return a.Name < b.Name
	})

	ranking := make([]domain.RankedEntry, len(ordered))
	for i, p := range ordered {
		ranking[i] = domain.RankedEntry{
			Rank:          i + 1,
			ParticipantID: p.ID,
			Name:          p.Name,
			Score:         p.Score,
		}
	}
	return ranking
}
