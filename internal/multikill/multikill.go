// Package multikill classifies bursts of kills into the game's native
// multi-kill tiers.
package multikill

import (
	"dota-tracker/internal/constants"
	"dota-tracker/internal/domain"
)

// Result aggregates the clusters found in one match for one player.
type Result struct {
	TripleKills int
	UltraKills  int
	Rampages    int
}

// Total is the number of clusters of any tier.
func (r Result) Total() int {
	return r.TripleKills + r.UltraKills + r.Rampages
}

// Detect scans ascending kill timestamps (seconds) and counts
// non-overlapping clusters, largest tier first. A 5-kill run inside the
// window is one Rampage and consumes all five kills: it never also counts
// as an Ultra or Triple over the same kills.
func Detect(killTimes []int64) Result {
	var res Result
	i := 0
	for i < len(killTimes) {
		switch {
		case spans(killTimes, i, constants.RampageSize):
			res.Rampages++
			i += constants.RampageSize
		case spans(killTimes, i, constants.UltraKillSize):
			res.UltraKills++
			i += constants.UltraKillSize
		case spans(killTimes, i, constants.TripleKillSize):
			res.TripleKills++
			i += constants.TripleKillSize
		default:
			i++
		}
	}
	return res
}

// spans reports whether size kills starting at i exist and fit in the
// multi-kill window.
func spans(times []int64, i, size int) bool {
	if i+size > len(times) {
		return false
	}
	return times[i+size-1]-times[i] <= constants.MultiKillWindowSeconds
}

// Feats converts a detection result into feat events for one match.
func Feats(res Result, matchID, accountID int64, heroID int) []domain.FeatEvent {
	var feats []domain.FeatEvent
	add := func(t domain.FeatType, n int) {
		for range n {
			feats = append(feats, domain.FeatEvent{
				Type:      t,
				HeroID:    heroID,
				MatchID:   matchID,
				AccountID: accountID,
			})
		}
	}
	add(domain.FeatRampage, res.Rampages)
	add(domain.FeatUltraKill, res.UltraKills)
	add(domain.FeatTripleKill, res.TripleKills)
	return feats
}

// FilterByMatchSet keeps the feats whose match id is in the given set. The
// achievements query and the matches query are independent upstream calls;
// this is the join between them.
func FilterByMatchSet(feats []domain.FeatEvent, matchIDs map[int64]struct{}) []domain.FeatEvent {
	var kept []domain.FeatEvent
	for _, f := range feats {
		if _, ok := matchIDs[f.MatchID]; ok {
			kept = append(kept, f)
		}
	}
	return kept
}
