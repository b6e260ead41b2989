package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/topten/internal/api/apierr"
	"github.com/mcoot/topten/internal/api/middleware"
	"github.com/mcoot/topten/internal/api/request"
	"github.com/mcoot/topten/internal/api/response"
	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/resilience"
)

// maxDisplayNameLength bounds player display names
const maxDisplayNameLength = 32

// RoomHandler handles room endpoints. Every mutation goes through the supervisor.
type RoomHandler struct {
	supervisor *resilience.Supervisor
	logger     *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(supervisor *resilience.Supervisor, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		supervisor: supervisor,
		logger:     logger.With(slog.String("component", "room_handler")),
	}
}

func roomCode(r *http.Request) model.RoomCode {
	return model.RoomCode(strings.ToUpper(mux.Vars(r)["code"]))
}

func displayName(name string, playerID model.PlayerID) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return string(playerID), nil
	}
	if len(name) > maxDisplayNameLength {
		return "", apierr.NewInvalidRequestError("Display name is too long")
	}
	return name, nil
}

// state builds the caller's view of a room
func (h *RoomHandler) state(ctx context.Context, room *model.Room, playerID model.PlayerID) response.RoomState {
	allowed, reason := h.supervisor.IsAllowedToSubmit(playerID, room)
	return response.RoomState{
		Room:            response.RoomFromModel(room),
		TimeRemainingMs: h.supervisor.TimeRemaining(ctx, room).Milliseconds(),
		CanSubmit:       allowed,
		Reason:          reason,
	}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	var req request.CreateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.CategoryID) == "" {
		WriteError(w, apierr.NewInvalidRequestError("category_id is required"))
		return
	}
	name, err := displayName(req.DisplayName, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	res := h.supervisor.CreateRoom(r.Context(), model.Player{ID: playerID, DisplayName: name}, req.CategoryID)
	if writeFailure(w, res) {
		return
	}
	response.Created(w, h.state(r.Context(), res.Room, playerID))
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.GetRoom(r.Context(), roomCode(r))
	if writeFailure(w, res) {
		return
	}
	response.OK(w, h.state(r.Context(), res.Room, playerID))
}

// Join handles POST /api/v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	var req request.JoinRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	name, err := displayName(req.DisplayName, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	res := h.supervisor.JoinRoom(r.Context(), roomCode(r), model.Player{ID: playerID, DisplayName: name})
	if writeFailure(w, res) {
		return
	}
	response.OK(w, h.state(r.Context(), res.Room, playerID))
}

// Leave handles POST /api/v1/rooms/{code}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.LeaveRoom(r.Context(), roomCode(r), playerID)
	if writeFailure(w, res) {
		return
	}
	response.NoContent(w)
}

// Start handles POST /api/v1/rooms/{code}/start
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	var req request.StartGameRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.TurnTimeLimit < 0 {
		WriteError(w, apierr.NewInvalidRequestError("turn_time_limit must not be negative"))
		return
	}

	res := h.supervisor.StartGame(r.Context(), roomCode(r), playerID, req.TurnTimeLimit)
	if writeFailure(w, res) {
		return
	}
	response.OK(w, h.state(r.Context(), res.Room, playerID))
}

// Submit handles POST /api/v1/rooms/{code}/answers
func (h *RoomHandler) Submit(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	var req request.SubmitAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	res := h.supervisor.SubmitAnswer(r.Context(), roomCode(r), playerID, req.Text)

	// A guess that was already on the board still used up the turn
	alreadyRevealed := errors.Is(res.Err, model.ErrAlreadyRevealed) && res.Submit != nil
	if !alreadyRevealed && writeFailure(w, res) {
		return
	}

	resp := response.SubmitResult{}
	if s := res.Submit; s != nil {
		resp = response.SubmitResult{
			Matched:          s.Matched,
			AlreadyRevealed:  s.AlreadyRevealed,
			AnswerID:         s.AnswerID,
			Rank:             s.Rank,
			Points:           s.Points,
			QuestionComplete: s.QuestionComplete,
			GameFinished:     s.GameFinished,
		}
	}
	if res.Room != nil {
		room := response.RoomFromModel(res.Room)
		resp.Room = &room
	}
	response.OK(w, resp)
}

// Timeout handles POST /api/v1/rooms/{code}/timeout
func (h *RoomHandler) Timeout(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.AdvanceTurnOnTimeout(r.Context(), roomCode(r), playerID)
	if writeFailure(w, res) {
		return
	}
	response.OK(w, h.state(r.Context(), res.Room, playerID))
}

// End handles POST /api/v1/rooms/{code}/end
func (h *RoomHandler) End(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.EndGame(r.Context(), roomCode(r), playerID)
	if writeFailure(w, res) {
		return
	}
	response.OK(w, h.state(r.Context(), res.Room, playerID))
}

// Close handles DELETE /api/v1/rooms/{code}
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.CloseRoom(r.Context(), roomCode(r), playerID)
	if writeFailure(w, res) {
		return
	}
	response.OK(w, h.state(r.Context(), res.Room, playerID))
}

// Eligibility handles GET /api/v1/rooms/{code}/eligibility
func (h *RoomHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.GetRoom(r.Context(), roomCode(r))
	if writeFailure(w, res) {
		return
	}
	allowed, reason := h.supervisor.IsAllowedToSubmit(playerID, res.Room)
	response.OK(w, response.Eligibility{Allowed: allowed, Reason: reason})
}

// Disconnect handles POST /api/v1/rooms/{code}/disconnect, for clients that
// poll instead of holding a stream open
func (h *RoomHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.HandleDisconnect(r.Context(), roomCode(r), playerID)
	if writeFailure(w, res) {
		return
	}
	response.NoContent(w)
}

// Reconnect handles POST /api/v1/rooms/{code}/reconnect
func (h *RoomHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	res := h.supervisor.HandleReconnect(r.Context(), roomCode(r), playerID)
	if writeFailure(w, res) {
		return
	}
	response.OK(w, h.state(r.Context(), res.Room, playerID))
}
