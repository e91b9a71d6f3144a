// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package event publishes committed voting events (accepted votes and
// closed sessions) to Kafka as JSON, keyed by match ID.
package event
