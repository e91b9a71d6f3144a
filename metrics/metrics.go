// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "potm"

// Metrics groups the collectors the voting server exports. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Votes         *prometheus.CounterVec
	VoteDuration  prometheus.Histogram
	Closes        *prometheus.CounterVec
	RateLimited   prometheus.Counter
	LiveClients   prometheus.Gauge
	EventsEmitted *prometheus.CounterVec
}

// New registers the collectors on reg. Pass a fresh prometheus.NewRegistry()
// in tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Votes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_total",
				Help:      "Vote submissions reaching the session state machine, by result",
			},
			[]string{"result"},
		),
		VoteDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vote_duration_seconds",
				Help:      "Time spent applying a vote under the match lock",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
		),
		Closes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_closed_total",
				Help:      "Voting sessions closed, by outcome",
			},
			[]string{"outcome"},
		),
		RateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Vote submissions refused by the rate limiter",
			},
		),
		LiveClients: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_clients",
				Help:      "Connected live tally websocket clients",
			},
		),
		EventsEmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_emitted_total",
				Help:      "Voting events handed to notifiers, by notifier and result",
			},
			[]string{"notifier", "result"},
		),
	}
}

func (m *Metrics) ObserveVote(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.Votes.WithLabelValues(result).Inc()
	m.VoteDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveClose(outcome string) {
	if m == nil {
		return
	}
	m.Closes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) ObserveEvent(notifier string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsEmitted.WithLabelValues(notifier, result).Inc()
}

func (m *Metrics) LiveClientConnected() {
	if m == nil {
		return
	}
	m.LiveClients.Inc()
}

func (m *Metrics) LiveClientDisconnected() {
	if m == nil {
		return
	}
	m.LiveClients.Dec()
}
