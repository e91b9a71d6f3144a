// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics defines the Prometheus collectors exported on /metrics.

Collectors are registered on an injected prometheus.Registerer so tests can
build isolated instances:

	m := metrics.New(prometheus.NewRegistry())
	m.ObserveVote("accepted", time.Millisecond)

Every method tolerates a nil receiver, so components accept a *Metrics
without requiring one.
*/
package metrics
