// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/campusarena/potm-voting/metrics"
	"github.com/campusarena/potm-voting/models"
)

var ErrHubStopped = errors.New("live hub is not running")

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

type message struct {
	matchID string
	seq     int64
	data    []byte
}

// client is one websocket subscriber to a single match
type client struct {
	matchID string
	send    chan message
}

// SnapshotFunc encodes the current state of a match and reports the event
// Seq that state reflects.
type SnapshotFunc func(ctx context.Context) (data []byte, seq int64, err error)

// Hub fans voting events out to the websocket clients watching a match.
// All client bookkeeping happens on the Run goroutine. Clients that cannot
// keep up are dropped rather than stalling the broadcast.
type Hub struct {
	clients    map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan message
	done       chan struct{}
	metrics    *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message),
		done:       make(chan struct{}),
		metrics:    m,
	}
}

// Run owns the client set until ctx is cancelled. On return every client
// is disconnected.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					h.remove(c)
				}
			}
			return

		case c := <-h.register:
			set := h.clients[c.matchID]
			if set == nil {
				set = make(map[*client]bool)
				h.clients[c.matchID] = set
			}
			set[c] = true
			h.metrics.LiveClientConnected()

		case c := <-h.unregister:
			h.remove(c)

		case m := <-h.broadcast:
			for c := range h.clients[m.matchID] {
				select {
				case c.send <- m:
				default:
					slog.Warn("dropping slow live client", "match_id", m.matchID)
					h.remove(c)
				}
			}
		}
	}
}

// remove must only be called from Run
func (h *Hub) remove(c *client) {
	set := h.clients[c.matchID]
	if !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.matchID)
	}
	h.metrics.LiveClientDisconnected()
}

// Notify implements voting.Notifier
func (h *Hub) Notify(ctx context.Context, ev models.VotingEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal voting event: %w", err)
	}

	select {
	case h.broadcast <- message{matchID: ev.MatchID, seq: ev.Seq, data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve streams events for matchID to conn until the peer disconnects or
// the hub stops. The client is registered before snapshot is taken, and
// events already covered by the snapshot are skipped, so no committed
// change falls between the snapshot and the stream.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, matchID string, snapshot SnapshotFunc) error {
	c := &client{matchID: matchID, send: make(chan message, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	// Live clients only listen; CloseRead handles control frames and
	// cancels ctx once the peer goes away.
	ctx = conn.CloseRead(ctx)

	var seen int64
	if snapshot != nil {
		data, seq, err := snapshot(ctx)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "snapshot unavailable")
			return fmt.Errorf("failed to take live snapshot: %w", err)
		}
		if err := write(ctx, conn, data); err != nil {
			return err
		}
		seen = seq
	}

	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "subscription ended")
				return nil
			}
			if m.seq != 0 && m.seq <= seen {
				continue
			}
			if err := write(ctx, conn, m.data); err != nil {
				return err
			}
			if m.seq > seen {
				seen = m.seq
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write live event: %w", err)
	}
	return nil
}
