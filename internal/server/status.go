// Package server is the small operational HTTP surface: liveness, a
// status snapshot of the watcher, and read-only day summaries from the
// archive. It never exposes upstream data.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"dota-tracker/internal/archive"
	"dota-tracker/internal/config"
	"dota-tracker/internal/middleware"
	"dota-tracker/internal/poller"
	"dota-tracker/internal/state"
	"dota-tracker/internal/timewindow"
)

// StatusSource reports the watcher's cycle snapshot.
type StatusSource interface {
	Status() poller.Status
}

// SummarySource aggregates archived matches and feats over a window.
type SummarySource interface {
	SummarizeWindow(ctx context.Context, start, end time.Time) ([]archive.AccountSummary, error)
	FeatsInWindow(ctx context.Context, start, end time.Time) ([]archive.FeatRow, error)
}

type StatusServer struct {
	orch    StatusSource
	store   *state.Store
	arch    SummarySource
	loc     *time.Location
	logger  zerolog.Logger
	started time.Time
}

func NewStatusServer(orch StatusSource, store *state.Store, arch SummarySource, cfg *config.Config, logger zerolog.Logger) *StatusServer {
	return &StatusServer{
		orch:    orch,
		store:   store,
		arch:    arch,
		loc:     cfg.Timezone,
		logger:  logger.With().Str("component", "server").Logger(),
		started: time.Now(),
	}
}

// Handler builds the full middleware-wrapped mux.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /summary", s.handleSummary)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return middleware.RequestID(s.logger)(c.Handler(mux))
}

func (s *StatusServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statusResponse struct {
	Phase         string           `json:"phase"`
	LastCycleAt   *time.Time       `json:"last_cycle_at,omitempty"`
	LastOutcome   string           `json:"last_outcome,omitempty"`
	CycleCount    int64            `json:"cycle_count"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Watermarks    map[string]int64 `json:"watermarks"`
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.orch.Status()
	resp := statusResponse{
		Phase:         string(st.Phase),
		LastOutcome:   string(st.LastOutcome),
		CycleCount:    st.CycleCount,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Watermarks:    s.store.Watermarks(),
	}
	if !st.LastCycleAt.IsZero() {
		resp.LastCycleAt = &st.LastCycleAt
	}
	s.writeJSON(w, resp)
}

type summaryResponse struct {
	Day      string                   `json:"day"`
	Accounts []archive.AccountSummary `json:"accounts"`
	Feats    []archive.FeatRow        `json:"feats"`
}

// handleSummary serves an archived day on demand. The day query parameter
// is either "N days ago" or an explicit date like 24-Aug-2026; it defaults
// to yesterday.
func (s *StatusServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	selector := r.URL.Query().Get("day")
	if selector == "" {
		selector = "1"
	}
	win, err := timewindow.ParseSelector(selector, time.Now(), s.loc)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, timewindow.ErrBadSelector) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	accounts, err := s.arch.SummarizeWindow(r.Context(), win.Start, win.End)
	if err != nil {
		s.logger.Error().Err(err).Str("day", win.Label).Msg("summarize window")
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	feats, err := s.arch.FeatsInWindow(r.Context(), win.Start, win.End)
	if err != nil {
		s.logger.Error().Err(err).Str("day", win.Label).Msg("collect feats")
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, summaryResponse{Day: win.Label, Accounts: accounts, Feats: feats})
}

func (s *StatusServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}
