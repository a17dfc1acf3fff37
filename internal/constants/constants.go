package constants

import "time"

const (
	// Minimum spacing between upstream API calls, shared process-wide.
	RequestSpacing = 2 * time.Second

	APICallTimeout    = 15 * time.Second
	MaxRetries        = 3
	RateLimitCooldown = 30 * time.Second

	// Upper bound on proxy failovers within a single call. Failovers do not
	// consume the retry budget, so they need their own cap to terminate when
	// the whole pool is unreachable.
	MaxFailovers = 8

	ProxyCooldown = 5 * time.Minute
)

const (
	// Multi-kill clustering matches the in-game timer.
	MultiKillWindowSeconds = 18
	TripleKillSize         = 3
	UltraKillSize          = 4
	RampageSize            = 5
)

const (
	NotifiedEventCap = 200
	StateFileVersion = 1
)

const (
	DefaultPollInterval = 5 * time.Minute
	MatchFetchCount     = 20
	FeatFetchCount      = 40

	// Lookback used to pick the primary account when a display name maps to
	// several account ids.
	PrimaryAccountWindow = 7 * 24 * time.Hour
)

const (
	DatabaseTimeout = 5 * time.Second
	WebhookTimeout  = 10 * time.Second
	ShutdownTimeout = 5 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 1 * time.Hour
)
