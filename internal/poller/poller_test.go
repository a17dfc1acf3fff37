package poller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dota-tracker/internal/archive"
	"dota-tracker/internal/config"
	"dota-tracker/internal/domain"
	"dota-tracker/internal/notify"
	"dota-tracker/internal/state"
	"dota-tracker/internal/stratz"
)

type stubAPI struct {
	matches map[int64][]stratz.MatchPayload
	feats   []stratz.FeatPayload
	summary *stratz.PlayerPayload
	live    *stratz.LiveMatchPayload
	failIDs map[int64]bool
	featErr error
}

func (s *stubAPI) PlayerMatches(ctx context.Context, accountID int64, take int) ([]stratz.MatchPayload, error) {
	if s.failIDs[accountID] {
		return nil, errors.New("upstream down")
	}
	return s.matches[accountID], nil
}

func (s *stubAPI) PlayerSummary(ctx context.Context, accountID int64) (*stratz.PlayerPayload, error) {
	return s.summary, nil
}

func (s *stubAPI) PlayerFeats(ctx context.Context, accountID int64, take int) ([]stratz.FeatPayload, error) {
	return s.feats, s.featErr
}

func (s *stubAPI) LiveMatch(ctx context.Context, accountID int64) (*stratz.LiveMatchPayload, error) {
	return s.live, nil
}

type recorder struct {
	events []notify.Event
}

func (r *recorder) Send(ctx context.Context, event notify.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) kinds() []string {
	kinds := make([]string, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind())
	}
	return kinds
}

type fakeArchive struct {
	matchIDs  []int64
	featTypes []string
	summaries []archive.AccountSummary
	featRows  []archive.FeatRow
}

func (a *fakeArchive) RecordMatch(ctx context.Context, displayName string, accountID int64, m domain.MatchRecord) error {
	a.matchIDs = append(a.matchIDs, m.MatchID)
	return nil
}

func (a *fakeArchive) RecordFeat(ctx context.Context, displayName string, f domain.FeatEvent) error {
	a.featTypes = append(a.featTypes, f.Type.String())
	return nil
}

func (a *fakeArchive) SummarizeWindow(ctx context.Context, start, end time.Time) ([]archive.AccountSummary, error) {
	return a.summaries, nil
}

func (a *fakeArchive) FeatsInWindow(ctx context.Context, start, end time.Time) ([]archive.FeatRow, error) {
	return a.featRows, nil
}

type stubNamer struct{}

func (stubNamer) Name(ctx context.Context, id int) string { return "Pudge" }

func boolPtr(b bool) *bool { return &b }

func matchPayload(id int64, killTimes ...int64) stratz.MatchPayload {
	p := stratz.MatchPayload{
		ID:            id,
		DidRadiantWin: boolPtr(true),
		StartDateTime: time.Now().Unix(),
		Players: []stratz.MatchPlayerPayload{{
			SteamAccountID: 87278757,
			HeroID:         14,
			IsRadiant:      boolPtr(true),
			Kills:          len(killTimes),
		}},
	}
	if len(killTimes) > 0 {
		events := make([]stratz.KillEventPayload, 0, len(killTimes))
		for _, t := range killTimes {
			events = append(events, stratz.KillEventPayload{Time: t})
		}
		p.Players[0].PlaybackData = &stratz.PlaybackPayload{KillEvents: events}
	}
	return p
}

func testConfig(accounts ...domain.TrackedAccount) *config.Config {
	return &config.Config{
		Accounts:           accounts,
		Timezone:           time.UTC,
		PollInterval:       time.Minute,
		SummaryTimeWeekday: "09:00",
		SummaryTimeWeekend: "10:00",
	}
}

func newTestOrchestrator(t *testing.T, api API, arch Archivist, cfg *config.Config) (*Orchestrator, *recorder) {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	rec := &recorder{}
	return New(api, store, arch, stubNamer{}, rec, cfg, zerolog.Nop()), rec
}

func TestFirstCycleOnlyBaselines(t *testing.T) {
	api := &stubAPI{matches: map[int64][]stratz.MatchPayload{
		87278757: {matchPayload(105), matchPayload(104)},
	}}
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{87278757}})
	orch, rec := newTestOrchestrator(t, api, &fakeArchive{}, cfg)

	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("first cycle must not announce backlog, got %v", rec.kinds())
	}
	if got := orch.Status(); got.LastOutcome != OutcomeSucceeded || got.CycleCount != 1 {
		t.Errorf("status = %+v", got)
	}

	// A newer match on the next cycle is announced, with its multi-kills.
	api.matches[87278757] = []stratz.MatchPayload{
		matchPayload(107, 100, 104, 108),
		matchPayload(105),
	}
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("second RunCycle: %v", err)
	}
	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != "new_match" || kinds[1] != "multi_kill" {
		t.Fatalf("events = %v, want [new_match multi_kill]", kinds)
	}
	mk := rec.events[1].(notify.MultiKill)
	if mk.Type != domain.FeatTripleKill || mk.MatchID != 107 {
		t.Errorf("multi-kill = %+v", mk)
	}
}

func TestDetectorAndFeatsQueryDedupe(t *testing.T) {
	api := &stubAPI{matches: map[int64][]stratz.MatchPayload{
		87278757: {matchPayload(100)},
	}}
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{87278757}})
	orch, rec := newTestOrchestrator(t, api, &fakeArchive{}, cfg)
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("baseline cycle: %v", err)
	}

	// Detector sees the rampage from kill times; the feats query reports
	// the same rampage for the same match. One announcement only.
	api.matches[87278757] = []stratz.MatchPayload{matchPayload(101, 10, 14, 18, 22, 26)}
	api.feats = []stratz.FeatPayload{{Type: "RAMPAGE", MatchID: 101, HeroID: 14}}
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	rampages := 0
	for _, e := range rec.events {
		if mk, ok := e.(notify.MultiKill); ok && mk.Type == domain.FeatRampage {
			rampages++
		}
	}
	if rampages != 1 {
		t.Fatalf("rampage announced %d times, want 1 (events %v)", rampages, rec.kinds())
	}
}

func TestFeatsOutsideNewMatchesIgnored(t *testing.T) {
	api := &stubAPI{matches: map[int64][]stratz.MatchPayload{
		87278757: {matchPayload(100)},
	}}
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{87278757}})
	orch, rec := newTestOrchestrator(t, api, &fakeArchive{}, cfg)
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("baseline cycle: %v", err)
	}

	// The feats query returns history beyond the new match; only the feat
	// belonging to match 101 may fire.
	api.matches[87278757] = []stratz.MatchPayload{matchPayload(101)}
	api.feats = []stratz.FeatPayload{
		{Type: "ULTRA_KILL", MatchID: 101, HeroID: 14},
		{Type: "RAMPAGE", MatchID: 55, HeroID: 14},
	}
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	var multiKills []notify.MultiKill
	for _, e := range rec.events {
		if mk, ok := e.(notify.MultiKill); ok {
			multiKills = append(multiKills, mk)
		}
	}
	if len(multiKills) != 1 || multiKills[0].MatchID != 101 || multiKills[0].Type != domain.FeatUltraKill {
		t.Fatalf("multi-kills = %+v", multiKills)
	}
}

func TestOneAccountFailingDoesNotAbortCycle(t *testing.T) {
	api := &stubAPI{
		matches: map[int64][]stratz.MatchPayload{2: {matchPayload(300)}},
		failIDs: map[int64]bool{1: true},
	}
	cfg := testConfig(
		domain.TrackedAccount{DisplayName: "broken", AccountIDs: []int64{1}},
		domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{2}},
	)
	orch, _ := newTestOrchestrator(t, api, &fakeArchive{}, cfg)

	if err := orch.RunCycle(context.Background()); err == nil {
		t.Fatal("RunCycle should report the failed account")
	}
	if got := orch.Status().LastOutcome; got != OutcomePartialFailure {
		t.Errorf("outcome = %q", got)
	}
	// The healthy account was still baselined.
	if wm := orch.store.Watermark(2); wm != 300 {
		t.Errorf("watermark(2) = %d, want 300", wm)
	}
}

func TestLiveMatchAnnouncedOnce(t *testing.T) {
	api := &stubAPI{
		live: &stratz.LiveMatchPayload{
			MatchID:  900,
			GameTime: 125,
			Players:  []stratz.LiveMatchPlayerPayload{{SteamAccountID: 87278757, HeroID: 14}},
		},
	}
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{87278757}})
	orch, rec := newTestOrchestrator(t, api, &fakeArchive{}, cfg)

	for range 3 {
		if err := orch.RunCycle(context.Background()); err != nil {
			t.Fatalf("RunCycle: %v", err)
		}
	}
	if len(rec.events) != 1 || rec.events[0].Kind() != "live_match" {
		t.Fatalf("events = %v, want one live_match", rec.kinds())
	}
}

func TestStatChangesAfterBaseline(t *testing.T) {
	rank := 5000
	api := &stubAPI{summary: &stratz.PlayerPayload{
		MatchCount:   100,
		WinCount:     60,
		SteamAccount: &stratz.SteamAccountPayload{ID: 87278757, Name: "rtz", Rank: &rank},
	}}
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{87278757}})
	orch, rec := newTestOrchestrator(t, api, &fakeArchive{}, cfg)

	// First observation commits silently.
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("first snapshot must be silent, got %v", rec.kinds())
	}

	api.summary.WinCount = 61
	api.summary.MatchCount = 101
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Kind() != "stat_change" {
		t.Fatalf("events = %v, want one stat_change", rec.kinds())
	}

	// Unchanged stats stay quiet.
	if err := orch.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("no change should mean no event, got %v", rec.kinds())
	}
}

func TestDailySummarySentOncePerWindow(t *testing.T) {
	arch := &fakeArchive{
		summaries: []archive.AccountSummary{{DisplayName: "rtz", Matches: 3, Wins: 2}},
		featRows:  []archive.FeatRow{{DisplayName: "rtz", Type: "RAMPAGE", MatchID: 7}},
	}
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{87278757}})
	orch, rec := newTestOrchestrator(t, &stubAPI{}, arch, cfg)
	orch.now = func() time.Time { return time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC) }

	if err := orch.RunDailySummary(context.Background()); err != nil {
		t.Fatalf("RunDailySummary: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Kind() != "daily_summary" {
		t.Fatalf("events = %v, want one daily_summary", rec.kinds())
	}
	ds := rec.events[0].(notify.DailySummary)
	if ds.Label != "24-Aug-2026" {
		t.Errorf("label = %q, want previous day", ds.Label)
	}

	// Repeating within the same window is a no-op.
	if err := orch.RunDailySummary(context.Background()); err != nil {
		t.Fatalf("repeat RunDailySummary: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("summary re-sent: %v", rec.kinds())
	}
}

func TestDailySummarySkipsEmptyWindow(t *testing.T) {
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{87278757}})
	orch, rec := newTestOrchestrator(t, &stubAPI{}, &fakeArchive{}, cfg)
	orch.now = func() time.Time { return time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC) }

	if err := orch.RunDailySummary(context.Background()); err != nil {
		t.Fatalf("RunDailySummary: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("empty window must not be announced, got %v", rec.kinds())
	}
	// The window still counts as done.
	if orch.store.LastDailySummaryAt().IsZero() {
		t.Error("summary timestamp not recorded")
	}
}

func TestPrimaryAccountPrefersRecentActivity(t *testing.T) {
	now := time.Now()
	recent := matchPayload(201)
	recent.StartDateTime = now.Add(-24 * time.Hour).Unix()
	stale := matchPayload(200)
	stale.StartDateTime = now.Add(-30 * 24 * time.Hour).Unix()

	api := &stubAPI{matches: map[int64][]stratz.MatchPayload{
		10: {stale},
		11: {recent},
	}}
	cfg := testConfig(domain.TrackedAccount{DisplayName: "rtz", AccountIDs: []int64{10, 11}})
	orch, _ := newTestOrchestrator(t, api, &fakeArchive{}, cfg)

	byID := map[int64][]domain.MatchRecord{}
	for id, raw := range api.matches {
		for _, m := range raw {
			r := domain.MatchRecord{MatchID: m.ID, StartTime: m.StartDateTime}
			byID[id] = append(byID[id], r)
		}
	}
	if got := orch.primaryAccount(cfg.Accounts[0], byID); got != 11 {
		t.Errorf("primary = %d, want the recently active id", got)
	}

	// No recent activity anywhere keeps configuration order.
	byID[11][0].StartTime = stale.StartDateTime
	if got := orch.primaryAccount(cfg.Accounts[0], byID); got != 10 {
		t.Errorf("primary = %d, want the first configured id", got)
	}
}

func TestNextSummaryAt(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"weekday before the slot",
			time.Date(2026, time.August, 25, 8, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC),
		},
		{
			"exactly at the slot rolls to the next day",
			time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 26, 9, 0, 0, 0, time.UTC),
		},
		{
			"friday evening lands on the weekend slot",
			time.Date(2026, time.August, 28, 23, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC),
		},
		{
			"saturday after the slot lands on sunday",
			time.Date(2026, time.August, 29, 11, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC),
		},
		{
			"sunday after the slot lands on the weekday slot",
			time.Date(2026, time.August, 30, 11, 0, 0, 0, time.UTC),
			time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextSummaryAt(tc.now, cfg); !got.Equal(tc.want) {
				t.Errorf("nextSummaryAt(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}
