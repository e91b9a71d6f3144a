// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/campusarena/potm-voting/pubsub"
	"github.com/campusarena/potm-voting/voting"
)

type LiveHandler struct {
	svc *voting.Service
	hub *pubsub.Hub
}

func NewLiveHandler(svc *voting.Service, hub *pubsub.Hub) *LiveHandler {
	return &LiveHandler{svc: svc, hub: hub}
}

// Stream handles GET /voting/matches/{id}/live
// The first message is a snapshot of the current tally; every later
// message is a committed vote or close event for the match.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")

	// 404 before upgrading; the streamed snapshot is taken after the
	// client is registered with the hub
	if _, err := h.svc.VotingData(r.Context(), matchID); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		// Accept has already written the HTTP error
		slog.Warn("websocket upgrade failed", "match_id", matchID, "error", err)
		return
	}
	defer conn.CloseNow()

	slog.Info("live client connected", "match_id", matchID)
	if err := h.hub.Serve(r.Context(), conn, matchID, h.snapshot(matchID)); err != nil {
		slog.Debug("live client ended", "match_id", matchID, "error", err)
	}
	slog.Info("live client disconnected", "match_id", matchID)
}

func (h *LiveHandler) snapshot(matchID string) pubsub.SnapshotFunc {
	return func(ctx context.Context) ([]byte, int64, error) {
		data, err := h.svc.VotingData(ctx, matchID)
		if err != nil {
			return nil, 0, err
		}
		ev := voting.SnapshotEvent(data, time.Now())
		body, err := json.Marshal(ev)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		return body, ev.Seq, nil
	}
}
