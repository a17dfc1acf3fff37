// Package archive keeps every detected match and feat in sqlite so the
// daily summary can aggregate a civil day without refetching history.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"dota-tracker/internal/domain"
)

type Archive struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *sql.DB, logger zerolog.Logger) *Archive {
	return &Archive{db: db, logger: logger.With().Str("component", "archive").Logger()}
}

// RecordMatch stores one detected match. Re-inserting the same match for
// the same account is a no-op, so replays after a crash are harmless.
func (a *Archive) RecordMatch(ctx context.Context, displayName string, accountID int64, m domain.MatchRecord) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO matches (
			match_id, account_id, display_name, hero_id,
			kills, deaths, assists, kda,
			gold_per_minute, xp_per_minute, last_hits, denies,
			won, start_time, duration_seconds, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MatchID, accountID, displayName, m.Player.HeroID,
		m.Player.Kills, m.Player.Deaths, m.Player.Assists, m.Player.KDA,
		m.Player.GoldPerMinute, m.Player.ExperiencePerMinute, m.Player.LastHits, m.Player.Denies,
		m.Player.IsVictory, m.StartTime, m.DurationSeconds, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record match %d: %w", m.MatchID, err)
	}
	return nil
}

// RecordFeat stores one announced feat.
func (a *Archive) RecordFeat(ctx context.Context, displayName string, f domain.FeatEvent) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generate feat id: %w", err)
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO feats (id, match_id, account_id, display_name, type, hero_id, raw_value, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.MatchID, f.AccountID, displayName, f.Type.String(), f.HeroID, f.RawValue, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record feat: %w", err)
	}
	return nil
}

// AccountSummary aggregates one display name's matches inside a window.
type AccountSummary struct {
	DisplayName string
	Matches     int
	Wins        int
	Kills       int
	Deaths      int
	Assists     int
	BestKDA     float64
	AvgGPM      float64
}

// SummarizeWindow aggregates per display name over matches that started
// inside [start, end).
func (a *Archive) SummarizeWindow(ctx context.Context, start, end time.Time) ([]AccountSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT display_name,
		       COUNT(*),
		       COALESCE(SUM(won), 0),
		       COALESCE(SUM(kills), 0),
		       COALESCE(SUM(deaths), 0),
		       COALESCE(SUM(assists), 0),
		       COALESCE(MAX(kda), 0),
		       COALESCE(AVG(gold_per_minute), 0)
		FROM matches
		WHERE start_time >= ? AND start_time < ?
		GROUP BY display_name
		ORDER BY display_name`,
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("summarize window: %w", err)
	}
	defer rows.Close()

	var summaries []AccountSummary
	for rows.Next() {
		var s AccountSummary
		if err := rows.Scan(&s.DisplayName, &s.Matches, &s.Wins, &s.Kills, &s.Deaths, &s.Assists, &s.BestKDA, &s.AvgGPM); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// FeatRow is one archived feat joined back to its owner.
type FeatRow struct {
	DisplayName string
	Type        string
	HeroID      int
	MatchID     int64
}

// FeatsInWindow lists feats detected inside [start, end).
func (a *Archive) FeatsInWindow(ctx context.Context, start, end time.Time) ([]FeatRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT display_name, type, hero_id, match_id
		FROM feats
		WHERE detected_at >= ? AND detected_at < ?
		ORDER BY detected_at`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("feats in window: %w", err)
	}
	defer rows.Close()

	var feats []FeatRow
	for rows.Next() {
		var f FeatRow
		if err := rows.Scan(&f.DisplayName, &f.Type, &f.HeroID, &f.MatchID); err != nil {
			return nil, fmt.Errorf("scan feat: %w", err)
		}
		feats = append(feats, f)
	}
	return feats, rows.Err()
}
