package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DatabaseMemory   = "memory"
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"

	IdentityAuto    = "auto"
	IdentityNetwork = "ip"
	IdentityToken   = "token"
)

type Config struct {
	Port         int
	DatabaseType string
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
	RateLimit    int
	RateWindow   time.Duration
	IdentityMode string
	VoterSalt    string
	AdminKeySalt string
	SeedDemo     bool
	LogLevel     string

	// PrintAdminKey, when set, asks main to print the close key for this
	// match ID and exit.
	PrintAdminKey string
}

// ParseFlags reads flags, then environment variables (optionally loaded
// from a .env file) for anything not given on the command line.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string
	var rateLimit, rateWindow, brokers string

	fs := flag.NewFlagSet("potm-voting", flag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (memory, sqlite or postgres)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for the shared rate limiter")
	fs.StringVar(&brokers, "kafka", "", "Comma separated Kafka brokers for the vote event stream")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", "", "Kafka topic for voting events")

	// Voting policy
	fs.StringVar(&rateLimit, "rate-limit", "", "Vote attempts allowed per voter per window")
	fs.StringVar(&rateWindow, "rate-window", "", "Rate limit window (Go duration)")
	fs.StringVar(&cfg.IdentityMode, "identity", "", "Voter identity mode (auto, ip or token)")
	fs.BoolVar(&cfg.SeedDemo, "seed-demo", false, "Load the demo match on startup")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.VoterSalt, "voter-salt", "", "Salt for hashing voter IPs (prefer env)")
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")

	fs.StringVar(&envFile, "env-file", ".env", "Path to a .env file")
	fs.StringVar(&cfg.PrintAdminKey, "print-admin-key", "", "Print the close key for a match ID and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Real environment wins over the file
	if err := godotenv.Load(envFile); err != nil {
		if set["env-file"] || !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil || port <= 0 {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	cfg.DatabaseType = strings.ToLower(firstNonEmpty(cfg.DatabaseType, os.Getenv("DATABASE_TYPE"), DatabaseMemory))
	switch cfg.DatabaseType {
	case DatabaseMemory:
	case DatabaseSQLite, DatabasePostgres:
		cfg.DatabaseURL = firstNonEmpty(cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
	default:
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	cfg.RedisURL = firstNonEmpty(cfg.RedisURL, os.Getenv("REDIS_URL"))
	cfg.KafkaBrokers = splitList(firstNonEmpty(brokers, os.Getenv("KAFKA_BROKERS")))
	cfg.KafkaTopic = firstNonEmpty(cfg.KafkaTopic, os.Getenv("KAFKA_TOPIC"), "potm-votes")

	limit, err := strconv.Atoi(firstNonEmpty(rateLimit, os.Getenv("RATE_LIMIT"), "10"))
	if err != nil || limit <= 0 {
		return Config{}, errors.New("rate limit must be a positive integer")
	}
	cfg.RateLimit = limit

	window, err := time.ParseDuration(firstNonEmpty(rateWindow, os.Getenv("RATE_WINDOW"), "60s"))
	if err != nil || window <= 0 {
		return Config{}, errors.New("rate window must be a positive duration")
	}
	cfg.RateWindow = window

	cfg.IdentityMode = strings.ToLower(firstNonEmpty(cfg.IdentityMode, os.Getenv("IDENTITY_MODE"), IdentityAuto))
	switch cfg.IdentityMode {
	case IdentityAuto, IdentityNetwork, IdentityToken:
	default:
		return Config{}, fmt.Errorf("unsupported identity mode %q", cfg.IdentityMode)
	}

	if !set["seed-demo"] {
		if v := os.Getenv("SEED_DEMO"); v != "" {
			seed, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, errors.New("invalid SEED_DEMO env variable")
			}
			cfg.SeedDemo = seed
		}
	}

	cfg.LogLevel = strings.ToLower(firstNonEmpty(cfg.LogLevel, os.Getenv("LOG_LEVEL"), "info"))
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}

	// Secrets are optional; without them IPs are stored raw and close is open
	cfg.VoterSalt = firstNonEmpty(cfg.VoterSalt, os.Getenv("VOTER_SALT"))
	cfg.AdminKeySalt = firstNonEmpty(cfg.AdminKeySalt, os.Getenv("ADMIN_KEY_SALT"))

	if cfg.PrintAdminKey != "" && cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required to print an admin key")
	}

	return cfg, nil
}

// Level returns the slog level for cfg.LogLevel
func (c Config) Level() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
