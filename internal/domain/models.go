package domain

import (
	"math"
	"time"
)

// TrackedAccount is one watched player. A display name may map to several
// account ids (alternate accounts); all of them are polled each cycle.
type TrackedAccount struct {
	DisplayName string
	AccountIDs  []int64
}

// MatchRecord is a completed match as seen by one tracked player. Match ids
// increase with completion order for a given account, which is what the
// dedup watermark relies on.
type MatchRecord struct {
	MatchID         int64
	StartTime       int64 // unix seconds
	DurationSeconds int
	DidRadiantWin   bool
	Player          PlayerMatchStats

	// KillTimes holds the in-match timestamps (seconds) of the tracked
	// player's kills, ascending. Empty when the upstream payload carries no
	// playback data.
	KillTimes []int64
}

type PlayerMatchStats struct {
	HeroID              int
	Kills               int
	Deaths              int
	Assists             int
	IsRadiant           bool
	IsVictory           bool
	GoldPerMinute       int
	ExperiencePerMinute int
	LastHits            int
	Denies              int
	KDA                 float64
}

// PlayerSummary is the slice of profile totals we watch for changes.
type PlayerSummary struct {
	AccountID   int64
	Name        string
	Wins        int
	Losses      int
	WinRate     float64
	SkillRating int
	RankTier    int
}

// LiveMatch describes a match currently in progress for a tracked account.
type LiveMatch struct {
	MatchID     int64
	HeroID      int
	GameTime    int
	RadiantSide bool
}

// KDA computes (kills+assists)/deaths rounded to two decimals, with the
// deathless case defined as kills+assists.
func KDA(kills, deaths, assists int) float64 {
	if deaths == 0 {
		return float64(kills + assists)
	}
	return math.Round(float64(kills+assists)/float64(deaths)*100) / 100
}

// Won reports whether a player on the given side won a match decided the
// given way. Side parity is the only win signal the upstream carries on
// every payload shape.
func Won(isRadiant, didRadiantWin bool) bool {
	return isRadiant == didRadiantWin
}

// StartedWithin reports whether the match started inside the window ending
// at now.
func (m MatchRecord) StartedWithin(window time.Duration, now time.Time) bool {
	return now.Sub(time.Unix(m.StartTime, 0)) <= window
}
