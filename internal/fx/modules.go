// Package fx wires the watcher's components together.
package fx

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"dota-tracker/internal/archive"
	"dota-tracker/internal/config"
	"dota-tracker/internal/database"
	"dota-tracker/internal/heroes"
	"dota-tracker/internal/logger"
	"dota-tracker/internal/notify"
	"dota-tracker/internal/poller"
	"dota-tracker/internal/server"
	"dota-tracker/internal/state"
	"dota-tracker/internal/stratz"
)

func provideStore(cfg *config.Config, log zerolog.Logger) (*state.Store, error) {
	return state.Open(cfg.StateFilePath, log)
}

func provideProxyPool(cfg *config.Config) *stratz.ProxyPool {
	return stratz.NewProxyPool(cfg.ProxyURLs)
}

// provideDispatcher picks the delivery path: a real webhook when one is
// configured, the log otherwise.
func provideDispatcher(cfg *config.Config, log zerolog.Logger) notify.Dispatcher {
	if cfg.WebhookURL == "" {
		log.Warn().Msg("no webhook configured, notifications go to the log")
		return &notify.LogDispatcher{Logger: log}
	}
	return notify.NewWebhookDispatcher(cfg.WebhookURL, log)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(provideStore),
	// upstream client
	fx.Provide(provideProxyPool),
	fx.Provide(stratz.NewClient),
	fx.Provide(func(c *stratz.Client) poller.API { return c }),
	fx.Provide(func(c *stratz.Client) heroes.Source { return c }),
	// supporting services
	fx.Provide(archive.New),
	fx.Provide(func(a *archive.Archive) poller.Archivist { return a }),
	fx.Provide(func(a *archive.Archive) server.SummarySource { return a }),
	fx.Provide(heroes.NewLoader),
	fx.Provide(func(l *heroes.Loader) poller.HeroNamer { return l }),
	fx.Provide(provideDispatcher),
	// orchestration
	fx.Provide(poller.New),
	fx.Provide(func(o *poller.Orchestrator) server.StatusSource { return o }),
	fx.Provide(poller.NewScheduler),
	fx.Provide(server.NewStatusServer),
)
