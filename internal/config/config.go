package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"dota-tracker/internal/constants"
	"dota-tracker/internal/domain"
)

type Config struct {
	StratzToken string
	APIURL      string

	StateFilePath string
	DBPath        string
	ServerPort    string
	LogLevel      string

	PollInterval time.Duration
	// Daily-summary local times, "HH:MM" in Timezone.
	SummaryTimeWeekday string
	SummaryTimeWeekend string
	Timezone           *time.Location

	Accounts   []domain.TrackedAccount
	ProxyURLs  []string
	WebhookURL string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		StratzToken:        getEnv("STRATZ_TOKEN", ""),
		APIURL:             getEnv("STRATZ_API_URL", "https://api.stratz.com/graphql"),
		StateFilePath:      getEnv("STATE_FILE", "tracker-state.json"),
		DBPath:             getEnv("DB_PATH", "tracker.db"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SummaryTimeWeekday: getEnv("SUMMARY_TIME_WEEKDAY", "09:00"),
		SummaryTimeWeekend: getEnv("SUMMARY_TIME_WEEKEND", "10:00"),
		WebhookURL:         getEnv("WEBHOOK_URL", ""),
	}

	if cfg.StratzToken == "" {
		return nil, fmt.Errorf("STRATZ_TOKEN is required")
	}

	cfg.PollInterval = constants.DefaultPollInterval
	if raw := os.Getenv("POLL_INTERVAL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL_MINUTES %q", raw)
		}
		cfg.PollInterval = time.Duration(minutes) * time.Minute
	}

	tzName := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}
	cfg.Timezone = loc

	for _, at := range []string{cfg.SummaryTimeWeekday, cfg.SummaryTimeWeekend} {
		if _, _, err := ParseClock(at); err != nil {
			return nil, err
		}
	}

	cfg.Accounts, err = parseAccounts(os.Getenv("TRACKED_ACCOUNTS"))
	if err != nil {
		return nil, err
	}
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("TRACKED_ACCOUNTS is required (Name=id1|id2,Other=id3)")
	}

	if raw := os.Getenv("PROXY_URLS"); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.ProxyURLs = append(cfg.ProxyURLs, u)
			}
		}
	}

	logger.Info().
		Str("state_file", cfg.StateFilePath).
		Str("db_path", cfg.DBPath).
		Dur("poll_interval", cfg.PollInterval).
		Str("timezone", tzName).
		Int("accounts", len(cfg.Accounts)).
		Int("proxies", len(cfg.ProxyURLs)).
		Msg("configuration loaded")

	return cfg, nil
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	return hour, minute, nil
}

// parseAccounts reads "Name=id1|id2,Other=id3". Ids may be 64-bit Steam ids
// or native account ids; both normalize to native.
func parseAccounts(raw string) ([]domain.TrackedAccount, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var accounts []domain.TrackedAccount
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, ids, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid TRACKED_ACCOUNTS entry %q", entry)
		}
		acct := domain.TrackedAccount{DisplayName: strings.TrimSpace(name)}
		for _, idStr := range strings.Split(ids, "|") {
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid account id %q for %s", idStr, acct.DisplayName)
			}
			acct.AccountIDs = append(acct.AccountIDs, domain.NativeAccountID(id))
		}
		if len(acct.AccountIDs) == 0 {
			return nil, fmt.Errorf("no account ids for %s", acct.DisplayName)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
