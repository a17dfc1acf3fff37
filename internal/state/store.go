// Package state is the durable dedup record: per-account match watermarks,
// the bounded set of already-notified events, and the last stats snapshot.
// Mutations are in-memory; Save flushes the whole record atomically once
// per poll cycle and on shutdown.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dota-tracker/internal/constants"
	"dota-tracker/internal/domain"
)

// EventKey identifies one notified event.
type EventKey struct {
	MatchID   int64  `json:"match_id"`
	AccountID int64  `json:"account_id"`
	Type      string `json:"type"`
}

// StatsSnapshot is the fixed set of profile scalars watched for changes.
type StatsSnapshot struct {
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	SkillRating int     `json:"skill_rating"`
	RankTier    int     `json:"rank_tier"`
}

// StatChange is one field-level delta between two snapshots.
type StatChange struct {
	Field string
	Old   float64
	New   float64
}

// record is the persisted shape. Missing keys unmarshal to their zero
// values, which is how older files stay readable.
type record struct {
	Version              int              `json:"version"`
	LastMatchIDGlobal    int64            `json:"last_match_id_global"`
	LastMatchIDByAccount map[string]int64 `json:"last_match_id_by_account"`
	NotifiedLiveMatchID  int64            `json:"notified_live_match_id"`
	NotifiedEvents       []EventKey       `json:"notified_events"`
	LastStats            *StatsSnapshot   `json:"last_stats,omitempty"`
	LastDailySummaryAt   time.Time        `json:"last_daily_summary_at"`
}

// Store owns the in-memory state and its file. All access is serialized by
// one mutex: the poll loop and the daily-summary job share it.
type Store struct {
	mu     sync.Mutex
	path   string
	data   record
	logger zerolog.Logger
}

// Open loads the state file, or starts fresh when it does not exist yet.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.With().Str("component", "state").Logger(),
		data: record{
			Version:              constants.StateFileVersion,
			LastMatchIDByAccount: make(map[string]int64),
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.logger.Info().Str("path", path).Msg("no state file, starting fresh")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	if s.data.LastMatchIDByAccount == nil {
		s.data.LastMatchIDByAccount = make(map[string]int64)
	}
	s.data.Version = constants.StateFileVersion
	s.logger.Info().
		Str("path", path).
		Int("accounts", len(s.data.LastMatchIDByAccount)).
		Int("notified_events", len(s.data.NotifiedEvents)).
		Msg("state loaded")
	return s, nil
}

// DiffNewMatches returns the candidates strictly above the account's
// watermark and advances it. The first call for an account only seeds the
// watermark from the newest candidate: historical backlog is never
// reported as new.
func (s *Store) DiffNewMatches(accountID int64, candidates []domain.MatchRecord) []domain.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(candidates) == 0 {
		return nil
	}

	maxID := int64(0)
	for _, m := range candidates {
		if m.MatchID > maxID {
			maxID = m.MatchID
		}
	}

	key := accountKey(accountID)
	watermark, seen := s.data.LastMatchIDByAccount[key]
	if !seen {
		s.data.LastMatchIDByAccount[key] = maxID
		s.bumpGlobal(maxID)
		s.logger.Info().Int64("account_id", accountID).Int64("watermark", maxID).Msg("baseline watermark set")
		return nil
	}

	var fresh []domain.MatchRecord
	for _, m := range candidates {
		if m.MatchID > watermark {
			fresh = append(fresh, m)
		}
	}
	if maxID > watermark {
		s.data.LastMatchIDByAccount[key] = maxID
		s.bumpGlobal(maxID)
	}
	// Most recent first, matching the mapper's ordering contract.
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].MatchID > fresh[j].MatchID })
	return fresh
}

// Watermark returns the stored watermark for an account, zero when unseen.
func (s *Store) Watermark(accountID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastMatchIDByAccount[accountKey(accountID)]
}

// Watermarks returns a copy of every per-account watermark.
func (s *Store) Watermarks() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.data.LastMatchIDByAccount))
	for k, v := range s.data.LastMatchIDByAccount {
		out[k] = v
	}
	return out
}

// IsEventNotified reports whether the event was already announced. Entries
// beyond the FIFO cap have been evicted, so very old matches can in theory
// re-fire; bounded memory wins that trade.
func (s *Store) IsEventNotified(matchID, accountID int64, t domain.FeatType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := EventKey{MatchID: matchID, AccountID: accountID, Type: t.String()}
	for _, e := range s.data.NotifiedEvents {
		if e == key {
			return true
		}
	}
	return false
}

// MarkEventNotified records an announced event, evicting the oldest entry
// once the cap is reached.
func (s *Store) MarkEventNotified(matchID, accountID int64, t domain.FeatType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := EventKey{MatchID: matchID, AccountID: accountID, Type: t.String()}
	for _, e := range s.data.NotifiedEvents {
		if e == key {
			return
		}
	}
	s.data.NotifiedEvents = append(s.data.NotifiedEvents, key)
	if n := len(s.data.NotifiedEvents) - constants.NotifiedEventCap; n > 0 {
		s.data.NotifiedEvents = append([]EventKey(nil), s.data.NotifiedEvents[n:]...)
	}
}

// CompareStats diffs the candidate snapshot against the last committed one
// without committing it. The first-ever snapshot yields no changes.
func (s *Store) CompareStats(next StatsSnapshot) []StatChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.data.LastStats
	if prev == nil {
		return nil
	}
	var changes []StatChange
	diff := func(field string, old, new float64) {
		if old != new {
			changes = append(changes, StatChange{Field: field, Old: old, New: new})
		}
	}
	diff("wins", float64(prev.Wins), float64(next.Wins))
	diff("losses", float64(prev.Losses), float64(next.Losses))
	diff("win_rate", prev.WinRate, next.WinRate)
	diff("skill_rating", float64(prev.SkillRating), float64(next.SkillRating))
	diff("rank_tier", float64(prev.RankTier), float64(next.RankTier))
	return changes
}

// CommitStats persists the snapshot as the new comparison baseline. Callers
// commit only after acting on CompareStats.
func (s *Store) CommitStats(next StatsSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LastStats = &next
}

// HasStatsBaseline reports whether a snapshot was ever committed.
func (s *Store) HasStatsBaseline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastStats != nil
}

// NotifiedLiveMatch returns the live match already announced, zero if none.
func (s *Store) NotifiedLiveMatch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.NotifiedLiveMatchID
}

// SetNotifiedLiveMatch records the announced live match.
func (s *Store) SetNotifiedLiveMatch(matchID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.NotifiedLiveMatchID = matchID
}

// LastDailySummaryAt returns when the daily summary last ran.
func (s *Store) LastDailySummaryAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastDailySummaryAt
}

// SetLastDailySummaryAt records a completed daily summary run.
func (s *Store) SetLastDailySummaryAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LastDailySummaryAt = t
}

// Save writes the record to disk via temp-write-then-rename, so a crash
// mid-write never truncates the previous state.
func (s *Store) Save() error {
	s.mu.Lock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	s.logger.Debug().Str("path", s.path).Msg("state saved")
	return nil
}

func accountKey(accountID int64) string {
	return strconv.FormatInt(accountID, 10)
}

func (s *Store) bumpGlobal(id int64) {
	if id > s.data.LastMatchIDGlobal {
		s.data.LastMatchIDGlobal = id
	}
}
