// Package mapper canonicalizes raw upstream payloads into domain records.
// Pure transformations: no I/O, and no panics on partially populated or
// nil nested structures.
package mapper

import (
	"sort"

	"dota-tracker/internal/domain"
	"dota-tracker/internal/state"
	"dota-tracker/internal/stratz"
)

// Matches converts raw match payloads for one account into canonical
// records, most recent (highest match id) first.
func Matches(raw []stratz.MatchPayload) []domain.MatchRecord {
	records := make([]domain.MatchRecord, 0, len(raw))
	for _, m := range raw {
		if m.ID == 0 {
			continue
		}
		records = append(records, Match(m))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].MatchID > records[j].MatchID })
	return records
}

// Match converts one raw match. The players list is already filtered
// upstream to the queried account; the first entry is the tracked player.
func Match(raw stratz.MatchPayload) domain.MatchRecord {
	rec := domain.MatchRecord{
		MatchID:         raw.ID,
		StartTime:       raw.StartDateTime,
		DurationSeconds: raw.DurationSeconds,
		DidRadiantWin:   boolValue(raw.DidRadiantWin),
	}
	if len(raw.Players) > 0 {
		p := raw.Players[0]
		isRadiant := boolValue(p.IsRadiant)
		won := domain.Won(isRadiant, rec.DidRadiantWin)
		if p.IsVictory != nil {
			won = *p.IsVictory
		}
		rec.Player = domain.PlayerMatchStats{
			HeroID:              p.HeroID,
			Kills:               p.Kills,
			Deaths:              p.Deaths,
			Assists:             p.Assists,
			IsRadiant:           isRadiant,
			IsVictory:           won,
			GoldPerMinute:       p.GoldPerMinute,
			ExperiencePerMinute: p.ExperiencePerMinute,
			LastHits:            p.NumLastHits,
			Denies:              p.NumDenies,
			KDA:                 domain.KDA(p.Kills, p.Deaths, p.Assists),
		}
		rec.KillTimes = killTimes(p.PlaybackData)
	}
	return rec
}

// Feats converts raw achievement rows, normalizing the duck-typed type
// field. Every row yields an event; unrecognized types come out as
// FeatUnknown with the raw value preserved.
func Feats(raw []stratz.FeatPayload, accountID int64) []domain.FeatEvent {
	events := make([]domain.FeatEvent, 0, len(raw))
	for _, f := range raw {
		t, rawValue := domain.NormalizeFeatType(f.Type)
		events = append(events, domain.FeatEvent{
			Type:      t,
			HeroID:    f.HeroID,
			MatchID:   f.MatchID,
			AccountID: accountID,
			RawValue:  rawValue,
		})
	}
	return events
}

// Summary converts profile totals into the tracked snapshot plus identity
// fields. Nil payload yields nil.
func Summary(raw *stratz.PlayerPayload, accountID int64) *domain.PlayerSummary {
	if raw == nil {
		return nil
	}
	s := &domain.PlayerSummary{
		AccountID: accountID,
		Wins:      raw.WinCount,
		Losses:    raw.MatchCount - raw.WinCount,
		WinRate:   winRate(raw.WinCount, raw.MatchCount),
	}
	if raw.SteamAccount != nil {
		s.Name = raw.SteamAccount.Name
		s.RankTier = intValue(raw.SteamAccount.SeasonRank)
		s.SkillRating = intValue(raw.SteamAccount.Rank)
	}
	return s
}

// Snapshot projects a summary onto the persisted stats-snapshot shape.
func Snapshot(s *domain.PlayerSummary) state.StatsSnapshot {
	if s == nil {
		return state.StatsSnapshot{}
	}
	return state.StatsSnapshot{
		Wins:        s.Wins,
		Losses:      s.Losses,
		WinRate:     s.WinRate,
		SkillRating: s.SkillRating,
		RankTier:    s.RankTier,
	}
}

// Live converts a live-match payload from the tracked account's view.
func Live(raw *stratz.LiveMatchPayload, accountID int64) *domain.LiveMatch {
	if raw == nil || raw.MatchID == 0 {
		return nil
	}
	live := &domain.LiveMatch{MatchID: raw.MatchID, GameTime: raw.GameTime}
	for _, p := range raw.Players {
		if p.SteamAccountID == accountID {
			live.HeroID = p.HeroID
			live.RadiantSide = boolValue(p.IsRadiant)
			break
		}
	}
	return live
}

func killTimes(pb *stratz.PlaybackPayload) []int64 {
	if pb == nil || len(pb.KillEvents) == 0 {
		return nil
	}
	times := make([]int64, 0, len(pb.KillEvents))
	for _, k := range pb.KillEvents {
		times = append(times, k.Time)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func intValue(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
