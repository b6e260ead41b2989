package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/resilience"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeRoomExists       = "ROOM_EXISTS"
	CodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	CodeNotHost          = "NOT_HOST"
	CodeNotInRoom        = "NOT_IN_ROOM"
	CodeAlreadyInRoom    = "ALREADY_IN_ROOM"
	CodeNotInLobby       = "NOT_IN_LOBBY"
	CodeNoQuestions      = "NO_QUESTIONS"
	CodeNoPlayers        = "NO_PLAYERS"
	CodeNotPlaying       = "NOT_PLAYING"
	CodeNotYourTurn      = "NOT_YOUR_TURN"
	CodeAlreadyRevealed  = "ALREADY_REVEALED"
	CodeAllRevealed      = "ALL_REVEALED"
	CodeTurnNotExpired   = "TURN_NOT_EXPIRED"
	CodeStaleTurn        = "STALE_TURN"
	CodeEmptySubmission  = "EMPTY_SUBMISSION"
	CodeRateLimited      = "RATE_LIMITED"
	CodeRetryLater       = "RETRY_LATER"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeRoomCorrupt      = "ROOM_CORRUPT"
	CodeInternalError    = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	write(w, toHTTPError(err))
}

// WriteOutcome writes the error response for a failed supervised operation
func WriteOutcome(w http.ResponseWriter, res resilience.Result) {
	switch res.Outcome {
	case resilience.OutcomeStale:
		write(w, &httpError{http.StatusConflict, APIError{CodeStaleTurn, "The turn has already moved on"}})
	case resilience.OutcomeRateLimited:
		w.Header().Set("Retry-After", "60")
		write(w, &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many actions, slow down"}})
	case resilience.OutcomeRetryLater:
		w.Header().Set("Retry-After", "1")
		write(w, &httpError{http.StatusConflict, APIError{CodeRetryLater, "The room is busy, try again"}})
	case resilience.OutcomeUnavailable:
		w.Header().Set("Retry-After", "5")
		write(w, &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Game storage is unavailable"}})
	default:
		WriteError(w, res.Err)
	}
}

func write(w http.ResponseWriter, he *httpError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomExists):
		return &httpError{http.StatusConflict, APIError{CodeRoomExists, "Could not allocate a room code"}}
	case errors.Is(err, model.ErrCategoryNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeCategoryNotFound, "Question category not found"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotInRoom):
		return &httpError{http.StatusForbidden, APIError{CodeNotInRoom, "Not in this room"}}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInRoom, "Already in this room"}}
	case errors.Is(err, model.ErrNotInLobby):
		return &httpError{http.StatusConflict, APIError{CodeNotInLobby, "Room is not in the lobby"}}
	case errors.Is(err, model.ErrNoQuestions):
		return &httpError{http.StatusConflict, APIError{CodeNoQuestions, "Category has no questions"}}
	case errors.Is(err, model.ErrNoPlayers):
		return &httpError{http.StatusConflict, APIError{CodeNoPlayers, "Not enough players to start"}}
	case errors.Is(err, model.ErrNotPlaying):
		return &httpError{http.StatusConflict, APIError{CodeNotPlaying, "No game in progress"}}
	case errors.Is(err, model.ErrNotPlayerTurn):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrAlreadyRevealed):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyRevealed, "That answer is already on the board"}}
	case errors.Is(err, model.ErrAllRevealed):
		return &httpError{http.StatusConflict, APIError{CodeAllRevealed, "Every answer has been revealed"}}
	case errors.Is(err, model.ErrTurnNotExpired):
		return &httpError{http.StatusConflict, APIError{CodeTurnNotExpired, "The turn has not expired"}}
	case errors.Is(err, model.ErrStaleTurn):
		return &httpError{http.StatusConflict, APIError{CodeStaleTurn, "The turn has already moved on"}}
	case errors.Is(err, model.ErrEmptySubmission):
		return &httpError{http.StatusBadRequest, APIError{CodeEmptySubmission, "Submission is empty"}}
	case errors.Is(err, model.ErrRateLimited):
		return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many actions, slow down"}}
	case errors.Is(err, model.ErrCorrupt):
		return &httpError{http.StatusInternalServerError, APIError{CodeRoomCorrupt, "Room data is damaged"}}
	case errors.Is(err, model.ErrUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Game storage is unavailable"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "X-Player-ID header required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
