package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dota-tracker/internal/constants"
	"dota-tracker/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func matches(ids ...int64) []domain.MatchRecord {
	out := make([]domain.MatchRecord, len(ids))
	for i, id := range ids {
		out[i] = domain.MatchRecord{MatchID: id}
	}
	return out
}

func TestDiffNewMatchesFirstRunBaseline(t *testing.T) {
	s := newStore(t)

	fresh := s.DiffNewMatches(7, matches(105, 104, 103))
	if len(fresh) != 0 {
		t.Fatalf("first run must report nothing new, got %d", len(fresh))
	}
	if wm := s.Watermark(7); wm != 105 {
		t.Fatalf("watermark = %d, want 105", wm)
	}

	fresh = s.DiffNewMatches(7, matches(107, 106, 105, 104))
	if len(fresh) != 2 || fresh[0].MatchID != 107 || fresh[1].MatchID != 106 {
		t.Fatalf("expected [107 106], got %+v", fresh)
	}
	if wm := s.Watermark(7); wm != 107 {
		t.Fatalf("watermark = %d, want 107", wm)
	}
}

func TestDiffNewMatchesIdempotent(t *testing.T) {
	s := newStore(t)
	s.DiffNewMatches(1, matches(50))

	seen := map[int64]int{}
	feeds := [][]int64{{52, 51, 50}, {52, 51, 50}, {53, 52, 51}, {53, 52}, {53}}
	for _, ids := range feeds {
		for _, m := range s.DiffNewMatches(1, matches(ids...)) {
			seen[m.MatchID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("match %d reported new %d times", id, n)
		}
	}
	for _, id := range []int64{51, 52, 53} {
		if seen[id] != 1 {
			t.Errorf("match %d never reported", id)
		}
	}
}

func TestDiffNewMatchesEmptyCandidates(t *testing.T) {
	s := newStore(t)
	if got := s.DiffNewMatches(1, nil); got != nil {
		t.Errorf("nil candidates should yield nil, got %+v", got)
	}
	if wm := s.Watermark(1); wm != 0 {
		t.Errorf("no baseline should be set from empty input, got %d", wm)
	}
}

func TestDiffNewMatchesPerAccountWatermarks(t *testing.T) {
	s := newStore(t)
	s.DiffNewMatches(1, matches(100))
	s.DiffNewMatches(2, matches(200))

	if fresh := s.DiffNewMatches(1, matches(150, 100)); len(fresh) != 1 || fresh[0].MatchID != 150 {
		t.Fatalf("account 1 expected [150], got %+v", fresh)
	}
	// Account 2's watermark is untouched by account 1's activity.
	if fresh := s.DiffNewMatches(2, matches(201, 200)); len(fresh) != 1 || fresh[0].MatchID != 201 {
		t.Fatalf("account 2 expected [201], got %+v", fresh)
	}
}

func TestNotifiedEventsBoundedFIFO(t *testing.T) {
	s := newStore(t)
	const total = 250
	for i := range total {
		s.MarkEventNotified(int64(i), 1, domain.FeatRampage)
	}
	evicted := total - constants.NotifiedEventCap
	for i := range evicted {
		if s.IsEventNotified(int64(i), 1, domain.FeatRampage) {
			t.Fatalf("entry %d should have been evicted", i)
		}
	}
	for i := evicted; i < total; i++ {
		if !s.IsEventNotified(int64(i), 1, domain.FeatRampage) {
			t.Fatalf("entry %d should still be present", i)
		}
	}
}

func TestMarkEventNotifiedDeduplicates(t *testing.T) {
	s := newStore(t)
	for range 5 {
		s.MarkEventNotified(10, 1, domain.FeatTripleKill)
	}
	// The same key marked repeatedly must occupy one slot, not five.
	for i := range constants.NotifiedEventCap - 1 {
		s.MarkEventNotified(int64(100+i), 1, domain.FeatRampage)
	}
	if !s.IsEventNotified(10, 1, domain.FeatTripleKill) {
		t.Error("original entry evicted early; duplicates must not consume capacity")
	}
	if s.IsEventNotified(10, 1, domain.FeatRampage) {
		t.Error("type is part of the event key")
	}
	if s.IsEventNotified(10, 2, domain.FeatTripleKill) {
		t.Error("account is part of the event key")
	}
}

func TestCompareStatsObservedThenCommit(t *testing.T) {
	s := newStore(t)

	first := StatsSnapshot{Wins: 100, Losses: 90, WinRate: 52.6, SkillRating: 3400, RankTier: 54}
	if changes := s.CompareStats(first); changes != nil {
		t.Fatalf("no baseline yet, expected nil changes, got %+v", changes)
	}
	s.CommitStats(first)

	// Reading a diff does not move the baseline.
	next := StatsSnapshot{Wins: 101, Losses: 90, WinRate: 52.9, SkillRating: 3425, RankTier: 54}
	changes := s.CompareStats(next)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %+v", changes)
	}
	again := s.CompareStats(next)
	if len(again) != 3 {
		t.Fatalf("CompareStats must not auto-commit, second diff got %+v", again)
	}

	s.CommitStats(next)
	if changes := s.CompareStats(next); len(changes) != 0 {
		t.Fatalf("after commit expected no changes, got %+v", changes)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.DiffNewMatches(7, matches(105, 104))
	s.MarkEventNotified(105, 7, domain.FeatRampage)
	s.SetNotifiedLiveMatch(9000)
	s.CommitStats(StatsSnapshot{Wins: 10, Losses: 5, WinRate: 66.67, SkillRating: 3000, RankTier: 50})
	when := time.Date(2026, time.August, 24, 8, 0, 0, 0, time.UTC)
	s.SetLastDailySummaryAt(when)
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if wm := r.Watermark(7); wm != 105 {
		t.Errorf("watermark = %d, want 105", wm)
	}
	if !r.IsEventNotified(105, 7, domain.FeatRampage) {
		t.Error("notified event lost across reload")
	}
	if r.NotifiedLiveMatch() != 9000 {
		t.Error("live match id lost across reload")
	}
	if !r.HasStatsBaseline() {
		t.Error("stats snapshot lost across reload")
	}
	if !r.LastDailySummaryAt().Equal(when) {
		t.Errorf("summary time = %v, want %v", r.LastDailySummaryAt(), when)
	}

	// Reloaded watermark keeps dedup across restarts.
	if fresh := r.DiffNewMatches(7, matches(106, 105)); len(fresh) != 1 || fresh[0].MatchID != 106 {
		t.Errorf("after reload expected [106], got %+v", fresh)
	}
}
