package app

import (
	"testing"
	"time"

	"livequiz-service/internal/domain"
)

func TestScoreIncorrectIsZero(t *testing.T) {
	if got := DefaultScoring.Score(false, 10, 20000); got != 0 {
		t.Fatalf("incorrect answer scored %d", got)
	}
}

func TestScoreRewardsSpeed(t *testing.T) {
	limit := int64(20000)
	instant := DefaultScoring.Score(true, 0, limit)
	fast := DefaultScoring.Score(true, 2000, limit)
	slow := DefaultScoring.Score(true, 18000, limit)
	expired := DefaultScoring.Score(true, limit, limit)

	if instant != 2000 {
		t.Fatalf("expected max points 2000 at zero latency, got %d", instant)
	}
	if expired != 1000 {
		t.Fatalf("expected base points at the deadline, got %d", expired)
	}
	if !(instant >= fast && fast >= slow && slow >= expired) {
		t.Fatalf("bonus not monotonic: instant=%d fast=%d slow=%d expired=%d", instant, fast, slow, expired)
	}
	// Any correct answer beats any incorrect one.
	if expired <= 0 {
		t.Fatalf("correct answer must outscore incorrect, got %d", expired)
	}
}

func TestScoreMonotonicAcrossLatencies(t *testing.T) {
	limit := int64(30000)
	prev := DefaultScoring.Score(true, 0, limit)
	for latency := int64(500); latency <= limit; latency += 500 {
		got := DefaultScoring.Score(true, latency, limit)
		if got > prev {
			t.Fatalf("score increased with latency: %d -> %d at %dms", prev, got, latency)
		}
		prev = got
	}
}

func TestScoreConfigFallbacks(t *testing.T) {
	var zero ScoringConfig
	if got := zero.Score(true, 0, 20000); got != 2000 {
		t.Fatalf("zero config should fall back to defaults, got %d", got)
	}
	custom := ScoringConfig{BasePoints: 500, MaxTimeBonus: 100}
	if got := custom.Score(true, 0, 20000); got != 600 {
		t.Fatalf("expected 600, got %d", got)
	}
	if got := custom.Score(true, 10000, 20000); got != 550 {
		t.Fatalf("expected 550 at half time, got %d", got)
	}
}

func TestRankOrdersByScoreThenLatencyThenTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	participants := []*domain.Participant{
		{ID: "p1", Name: "Ava", Score: 2000, TotalLatencyMs: 4000, LastScoredAt: base},
		{ID: "p2", Name: "Ben", Score: 3000, TotalLatencyMs: 9000, LastScoredAt: base},
		{ID: "p3", Name: "Cal", Score: 2000, TotalLatencyMs: 2000, LastScoredAt: base},
		{ID: "p4", Name: "Dee", Score: 2000, TotalLatencyMs: 4000, LastScoredAt: base.Add(-time.Second)},
	}

	ranking := rankParticipants(participants)
	want := []string{"Ben", "Cal", "Dee", "Ava"}
	for i, name := range want {
		if ranking[i].Name != name {
			t.Fatalf("rank %d: expected %s, got %s (full: %+v)", i+1, name, ranking[i].Name, ranking)
		}
		if ranking[i].Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, ranking[i].Rank)
		}
	}
}

func TestRankBreaksFinalTieByName(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	participants := []*domain.Participant{
		{ID: "p1", Name: "Zoe", Score: 100, TotalLatencyMs: 1000, LastScoredAt: base},
		{ID: "p2", Name: "Amy", Score: 100, TotalLatencyMs: 1000, LastScoredAt: base},
	}
	ranking := rankParticipants(participants)
	if ranking[0].Name != "Amy" {
		t.Fatalf("expected deterministic name tie-break, got %+v", ranking)
	}
}
