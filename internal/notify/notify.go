// Package notify is the boundary to the chat surface: canonical
// renderable events in, delivery out. No upstream field names cross this
// boundary.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"dota-tracker/internal/archive"
	"dota-tracker/internal/domain"
	"dota-tracker/internal/state"
)

// Dispatcher delivers one renderable event.
type Dispatcher interface {
	Send(ctx context.Context, event Event) error
}

// Event is anything the watcher can announce.
type Event interface {
	Kind() string
	Message() string
}

type NewMatch struct {
	DisplayName string
	HeroName    string
	Match       domain.MatchRecord
}

func (NewMatch) Kind() string { return "new_match" }

func (e NewMatch) Message() string {
	outcome := "lost"
	if e.Match.Player.IsVictory {
		outcome = "won"
	}
	p := e.Match.Player
	return fmt.Sprintf("%s %s a match as %s: %d/%d/%d (KDA %.2f, GPM %d, XPM %d)",
		e.DisplayName, outcome, e.HeroName,
		p.Kills, p.Deaths, p.Assists, p.KDA, p.GoldPerMinute, p.ExperiencePerMinute)
}

type MultiKill struct {
	DisplayName string
	HeroName    string
	Type        domain.FeatType
	MatchID     int64
}

func (MultiKill) Kind() string { return "multi_kill" }

func (e MultiKill) Message() string {
	return fmt.Sprintf("%s got a %s as %s!",
		e.DisplayName, titleCase(e.Type.String()), e.HeroName)
}

type LiveMatchEntry struct {
	DisplayName string
	HeroName    string
	MatchID     int64
	GameTime    int
}

func (LiveMatchEntry) Kind() string { return "live_match" }

func (e LiveMatchEntry) Message() string {
	return fmt.Sprintf("%s just entered a live match as %s (%d:%02d in)",
		e.DisplayName, e.HeroName, e.GameTime/60, e.GameTime%60)
}

type StatChange struct {
	DisplayName string
	Changes     []state.StatChange
}

func (StatChange) Kind() string { return "stat_change" }

func (e StatChange) Message() string {
	parts := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		parts = append(parts, fmt.Sprintf("%s %s -> %s",
			strings.ReplaceAll(c.Field, "_", " "), trimFloat(c.Old), trimFloat(c.New)))
	}
	return fmt.Sprintf("%s stats updated: %s", e.DisplayName, strings.Join(parts, ", "))
}

type DailySummary struct {
	Label    string
	Accounts []archive.AccountSummary
	Feats    []archive.FeatRow
}

func (DailySummary) Kind() string { return "daily_summary" }

func (e DailySummary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily summary for %s\n", e.Label)
	for _, a := range e.Accounts {
		fmt.Fprintf(&b, "%s: %d matches, %d wins, %d/%d/%d, best KDA %.2f\n",
			a.DisplayName, a.Matches, a.Wins, a.Kills, a.Deaths, a.Assists, a.BestKDA)
	}
	for _, f := range e.Feats {
		fmt.Fprintf(&b, "Feat: %s - %s (match %d)\n", f.DisplayName, titleCase(f.Type), f.MatchID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// LogDispatcher writes events to the log instead of delivering them. Used
// when no webhook is configured.
type LogDispatcher struct {
	Logger zerolog.Logger
}

func (d *LogDispatcher) Send(ctx context.Context, event Event) error {
	d.Logger.Info().
		Str("event", event.Kind()).
		Str("message", event.Message()).
		Msg("notification (no webhook configured)")
	return nil
}

// titleCase turns "TRIPLE_KILL" into "Triple Kill".
func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}
