package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/topten/internal/api/middleware"
	"github.com/mcoot/topten/internal/api/stream"
	"github.com/mcoot/topten/internal/services/resilience"
)

// StreamHandler pushes committed room states over a websocket. A member's
// stream doubles as their presence: opening one reconnects them and closing
// the last one starts their removal grace period.
type StreamHandler struct {
	supervisor *resilience.Supervisor
	hubs       *stream.HubManager
	logger     *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(supervisor *resilience.Supervisor, hubs *stream.HubManager, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		supervisor: supervisor,
		hubs:       hubs,
		logger:     logger.With(slog.String("component", "stream_handler")),
	}
}

// Watch handles GET /api/v1/rooms/{code}/stream
func (h *StreamHandler) Watch(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())
	code := roomCode(r)

	res := h.supervisor.GetRoom(r.Context(), code)
	if writeFailure(w, res) {
		return
	}
	member := res.Room.GetPlayer(playerID)

	hub, err := h.hubs.GetOrCreateHub(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}
	client, err := h.hubs.Attach(w, r, hub, playerID)
	if err != nil {
		h.logger.Debug("stream upgrade failed", slog.String("error", err.Error()))
		return
	}

	room := res.Room
	if member != nil && !member.IsConnected {
		if reconnected := h.supervisor.HandleReconnect(r.Context(), code, playerID); reconnected.OK() {
			room = reconnected.Room
		}
	}
	if snapshot, err := stream.Snapshot(room); err == nil {
		client.Send(snapshot)
	}

	client.Serve()

	// The request context is done once the connection is gone
	if member != nil && hub.PlayerConnections(playerID) == 0 {
		h.supervisor.HandleDisconnect(context.Background(), code, playerID)
	}
	h.hubs.Release(code)
}
