// Package poller drives the change-detection cycle: fetch, map, diff
// against the dedup state, detect feats, and emit notifications.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dota-tracker/internal/archive"
	"dota-tracker/internal/config"
	"dota-tracker/internal/constants"
	"dota-tracker/internal/domain"
	"dota-tracker/internal/mapper"
	"dota-tracker/internal/multikill"
	"dota-tracker/internal/notify"
	"dota-tracker/internal/state"
	"dota-tracker/internal/stratz"
	"dota-tracker/internal/timewindow"
)

// API is the slice of the upstream client the orchestrator consumes.
type API interface {
	PlayerMatches(ctx context.Context, accountID int64, take int) ([]stratz.MatchPayload, error)
	PlayerSummary(ctx context.Context, accountID int64) (*stratz.PlayerPayload, error)
	PlayerFeats(ctx context.Context, accountID int64, take int) ([]stratz.FeatPayload, error)
	LiveMatch(ctx context.Context, accountID int64) (*stratz.LiveMatchPayload, error)
}

// HeroNamer resolves hero ids to display names.
type HeroNamer interface {
	Name(ctx context.Context, id int) string
}

// Archivist records detections and aggregates windows for the summary.
type Archivist interface {
	RecordMatch(ctx context.Context, displayName string, accountID int64, m domain.MatchRecord) error
	RecordFeat(ctx context.Context, displayName string, f domain.FeatEvent) error
	SummarizeWindow(ctx context.Context, start, end time.Time) ([]archive.AccountSummary, error)
	FeatsInWindow(ctx context.Context, start, end time.Time) ([]archive.FeatRow, error)
}

// Phase is the orchestrator's cycle state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePolling Phase = "polling"
)

// Outcome of the last completed cycle.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomePartialFailure Outcome = "partial_failure"
)

// Status is a snapshot for the operational surface.
type Status struct {
	Phase       Phase     `json:"phase"`
	LastCycleAt time.Time `json:"last_cycle_at"`
	LastOutcome Outcome   `json:"last_outcome"`
	CycleCount  int64     `json:"cycle_count"`
}

// Orchestrator owns one cycle at a time. The mutex serializes poll cycles
// against the daily summary: both mutate the same dedup store, and the
// single-writer discipline is what the state layer expects.
type Orchestrator struct {
	api        API
	store      *state.Store
	arch       Archivist
	heroes     HeroNamer
	dispatcher notify.Dispatcher
	accounts   []domain.TrackedAccount
	loc        *time.Location
	logger     zerolog.Logger
	now        func() time.Time

	mu     sync.Mutex
	status Status
}

func New(
	api API,
	store *state.Store,
	arch Archivist,
	heroes HeroNamer,
	dispatcher notify.Dispatcher,
	cfg *config.Config,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		api:        api,
		store:      store,
		arch:       arch,
		heroes:     heroes,
		dispatcher: dispatcher,
		accounts:   cfg.Accounts,
		loc:        cfg.Timezone,
		logger:     logger.With().Str("component", "poller").Logger(),
		now:        time.Now,
		status:     Status{Phase: PhaseIdle},
	}
}

// Status returns the current cycle snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// RunCycle processes every tracked account sequentially, then persists
// the dedup state once. One account failing is logged and skipped; the
// cycle still completes and still saves.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cycleID := uuid.NewString()
	log := o.logger.With().Str("cycle_id", cycleID).Logger()
	o.status.Phase = PhasePolling
	log.Info().Int("accounts", len(o.accounts)).Msg("poll cycle started")

	failed := 0
	for i, acct := range o.accounts {
		if err := ctx.Err(); err != nil {
			o.status.Phase = PhaseIdle
			return err
		}
		// Stat-change watching follows the first configured account only;
		// the persisted snapshot is a single record.
		if err := o.pollAccount(ctx, log, acct, i == 0); err != nil {
			failed++
			log.Error().Err(err).Str("account", acct.DisplayName).Msg("account poll failed, continuing cycle")
		}
	}

	outcome := OutcomeSucceeded
	if failed > 0 {
		outcome = OutcomePartialFailure
	}
	if err := o.store.Save(); err != nil {
		log.Error().Err(err).Msg("state save failed")
		outcome = OutcomePartialFailure
	}

	o.status = Status{
		Phase:       PhaseIdle,
		LastCycleAt: o.now(),
		LastOutcome: outcome,
		CycleCount:  o.status.CycleCount + 1,
	}
	log.Info().Str("outcome", string(outcome)).Int("failed_accounts", failed).Msg("poll cycle finished")
	if outcome == OutcomePartialFailure {
		return fmt.Errorf("cycle finished with %d failed account(s)", failed)
	}
	return nil
}

// pollAccount runs fetch -> map -> diff -> detect -> notify for one
// tracked account (all of its ids).
func (o *Orchestrator) pollAccount(ctx context.Context, log zerolog.Logger, acct domain.TrackedAccount, watchStats bool) error {
	byID := make(map[int64][]domain.MatchRecord, len(acct.AccountIDs))
	for _, id := range acct.AccountIDs {
		raw, err := o.api.PlayerMatches(ctx, id, constants.MatchFetchCount)
		if err != nil {
			return fmt.Errorf("fetch matches for %d: %w", id, err)
		}
		byID[id] = mapper.Matches(raw)
	}
	primary := o.primaryAccount(acct, byID)

	newByID := make(map[int64][]domain.MatchRecord, len(byID))
	for _, id := range acct.AccountIDs {
		fresh := o.store.DiffNewMatches(id, byID[id])
		newByID[id] = fresh
		for _, m := range fresh {
			o.announceMatch(ctx, log, acct.DisplayName, id, m)
		}
	}

	// Feats come from an independent query; join them against the new
	// match ids before announcing.
	if err := o.announceFeats(ctx, log, acct.DisplayName, primary, newByID[primary]); err != nil {
		log.Warn().Err(err).Int64("account_id", primary).Msg("feat query failed, skipping feats this cycle")
	}

	if err := o.announceLiveMatch(ctx, log, acct.DisplayName, primary); err != nil {
		log.Warn().Err(err).Int64("account_id", primary).Msg("live match check failed")
	}

	if watchStats {
		if err := o.announceStatChanges(ctx, log, acct.DisplayName, primary); err != nil {
			log.Warn().Err(err).Int64("account_id", primary).Msg("stat comparison failed")
		}
	}
	return nil
}

// primaryAccount picks the id with the most matches inside the active
// window; ties keep configuration order.
func (o *Orchestrator) primaryAccount(acct domain.TrackedAccount, byID map[int64][]domain.MatchRecord) int64 {
	now := o.now()
	best := acct.AccountIDs[0]
	bestCount := -1
	for _, id := range acct.AccountIDs {
		count := 0
		for _, m := range byID[id] {
			if m.StartedWithin(constants.PrimaryAccountWindow, now) {
				count++
			}
		}
		if count > bestCount {
			best = id
			bestCount = count
		}
	}
	return best
}

func (o *Orchestrator) announceMatch(ctx context.Context, log zerolog.Logger, name string, accountID int64, m domain.MatchRecord) {
	if err := o.arch.RecordMatch(ctx, name, accountID, m); err != nil {
		log.Warn().Err(err).Int64("match_id", m.MatchID).Msg("archive write failed")
	}

	heroName := o.heroes.Name(ctx, m.Player.HeroID)
	event := notify.NewMatch{DisplayName: name, HeroName: heroName, Match: m}
	if err := o.dispatcher.Send(ctx, event); err != nil {
		log.Error().Err(err).Int64("match_id", m.MatchID).Msg("new-match notification failed")
	}

	// Multi-kills detected from the match's own kill timeline.
	res := multikill.Detect(m.KillTimes)
	for _, feat := range multikill.Feats(res, m.MatchID, accountID, m.Player.HeroID) {
		o.announceFeat(ctx, log, name, heroName, feat)
	}
}

func (o *Orchestrator) announceFeats(ctx context.Context, log zerolog.Logger, name string, accountID int64, fresh []domain.MatchRecord) error {
	if len(fresh) == 0 {
		return nil
	}
	raw, err := o.api.PlayerFeats(ctx, accountID, constants.FeatFetchCount)
	if err != nil {
		return err
	}
	matchIDs := make(map[int64]struct{}, len(fresh))
	for _, m := range fresh {
		matchIDs[m.MatchID] = struct{}{}
	}
	for _, feat := range multikill.FilterByMatchSet(mapper.Feats(raw, accountID), matchIDs) {
		if feat.Type == domain.FeatUnknown {
			log.Debug().Str("raw_value", feat.RawValue).Int64("match_id", feat.MatchID).Msg("unrecognized feat type")
			continue
		}
		heroName := o.heroes.Name(ctx, feat.HeroID)
		o.announceFeat(ctx, log, name, heroName, feat)
	}
	return nil
}

// announceFeat sends one feat if it was not announced before. The dedup
// key joins the detector and the feats query: the same rampage seen by
// both sources fires once.
func (o *Orchestrator) announceFeat(ctx context.Context, log zerolog.Logger, name, heroName string, feat domain.FeatEvent) {
	if o.store.IsEventNotified(feat.MatchID, feat.AccountID, feat.Type) {
		return
	}
	if feat.Type.IsMultiKill() {
		event := notify.MultiKill{DisplayName: name, HeroName: heroName, Type: feat.Type, MatchID: feat.MatchID}
		if err := o.dispatcher.Send(ctx, event); err != nil {
			log.Error().Err(err).Int64("match_id", feat.MatchID).Msg("feat notification failed")
			return
		}
	}
	o.store.MarkEventNotified(feat.MatchID, feat.AccountID, feat.Type)
	if err := o.arch.RecordFeat(ctx, name, feat); err != nil {
		log.Warn().Err(err).Int64("match_id", feat.MatchID).Msg("feat archive write failed")
	}
}

func (o *Orchestrator) announceLiveMatch(ctx context.Context, log zerolog.Logger, name string, accountID int64) error {
	raw, err := o.api.LiveMatch(ctx, accountID)
	if err != nil {
		return err
	}
	live := mapper.Live(raw, accountID)
	if live == nil || o.store.NotifiedLiveMatch() == live.MatchID {
		return nil
	}
	event := notify.LiveMatchEntry{
		DisplayName: name,
		HeroName:    o.heroes.Name(ctx, live.HeroID),
		MatchID:     live.MatchID,
		GameTime:    live.GameTime,
	}
	if err := o.dispatcher.Send(ctx, event); err != nil {
		return err
	}
	o.store.SetNotifiedLiveMatch(live.MatchID)
	return nil
}

func (o *Orchestrator) announceStatChanges(ctx context.Context, log zerolog.Logger, name string, accountID int64) error {
	raw, err := o.api.PlayerSummary(ctx, accountID)
	if err != nil {
		return err
	}
	summary := mapper.Summary(raw, accountID)
	if summary == nil {
		return nil
	}
	snapshot := mapper.Snapshot(summary)

	if !o.store.HasStatsBaseline() {
		o.store.CommitStats(snapshot)
		return nil
	}
	changes := o.store.CompareStats(snapshot)
	if len(changes) == 0 {
		return nil
	}
	event := notify.StatChange{DisplayName: name, Changes: changes}
	if err := o.dispatcher.Send(ctx, event); err != nil {
		return err
	}
	// Commit only after the change was actually announced.
	o.store.CommitStats(snapshot)
	return nil
}

// RunDailySummary aggregates the previous civil day from the archive and
// announces it. Safe to call repeatedly: a window already summarized is
// skipped.
func (o *Orchestrator) RunDailySummary(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	win := timewindow.PreviousDay(o.now(), o.loc)
	if last := o.store.LastDailySummaryAt(); !last.Before(win.End) {
		o.logger.Debug().Str("day", win.Label).Msg("daily summary already sent for this window")
		return nil
	}
	log := o.logger.With().Str("day", win.Label).Logger()

	summaries, err := o.arch.SummarizeWindow(ctx, win.Start, win.End)
	if err != nil {
		return fmt.Errorf("summarize %s: %w", win.Label, err)
	}
	feats, err := o.arch.FeatsInWindow(ctx, win.Start, win.End)
	if err != nil {
		return fmt.Errorf("collect feats for %s: %w", win.Label, err)
	}

	if len(summaries) == 0 && len(feats) == 0 {
		log.Info().Msg("nothing to summarize")
	} else {
		event := notify.DailySummary{Label: win.Label, Accounts: summaries, Feats: feats}
		if err := o.dispatcher.Send(ctx, event); err != nil {
			return fmt.Errorf("send daily summary: %w", err)
		}
		log.Info().Int("accounts", len(summaries)).Int("feats", len(feats)).Msg("daily summary sent")
	}

	o.store.SetLastDailySummaryAt(o.now())
	if err := o.store.Save(); err != nil {
		return fmt.Errorf("save state after summary: %w", err)
	}
	return nil
}

// Flush persists the dedup state; called once more on shutdown.
func (o *Orchestrator) Flush() error {
	return o.store.Save()
}
