// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pubsub pushes live voting events to websocket clients.

A single Hub goroutine owns the subscriber set, keyed by match ID:

	hub := pubsub.NewHub(m)
	go hub.Run(ctx)

Handlers accept the websocket and hand it to Hub.Serve, which blocks for
the lifetime of the connection. The voting service registers the hub as a
Notifier, so every committed vote or close is broadcast to the clients of
that match as a JSON models.VotingEvent.
*/
package pubsub
