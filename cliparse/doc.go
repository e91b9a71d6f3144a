// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Sources

Each setting is read from its CLI flag first, then from the environment.
Before falling back to the environment, a .env file (-env-file, default
".env") is loaded with godotenv; it never overrides variables that are
already set. A missing default .env is ignored.

# Flags and Environment Variables

	-p            PORT            Server port (3318)
	-t            DATABASE_TYPE   memory, sqlite or postgres (memory)
	-d            DATABASE_URL    Required for sqlite and postgres
	-redis        REDIS_URL       Shared rate limiter; empty uses in-process
	-kafka        KAFKA_BROKERS   Comma separated; empty disables events
	-kafka-topic  KAFKA_TOPIC     Event topic (potm-votes)
	-rate-limit   RATE_LIMIT      Attempts per voter per window (10)
	-rate-window  RATE_WINDOW     Window length (60s)
	-identity     IDENTITY_MODE   auto, ip or token (auto)
	-voter-salt   VOTER_SALT      Hashes voter IPs when set
	-admin-salt   ADMIN_KEY_SALT  Guards close voting when set
	-seed-demo    SEED_DEMO       Load the demo match
	-log-level    LOG_LEVEL       debug, info, warn or error (info)

-print-admin-key <match> prints the close key for a match and exits.
*/
package cliparse
