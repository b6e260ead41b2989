package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
	ErrNotHost          = errors.New("player is not the host")
	ErrNotInRoom        = errors.New("player is not in room")
	ErrAlreadyInRoom    = errors.New("player is already in room")
	ErrNotInLobby       = errors.New("room is not in the lobby")
	ErrNoQuestions      = errors.New("room has no questions")
	ErrNoPlayers        = errors.New("room has no players")
	ErrCategoryNotFound = errors.New("question category not found")

	// Turn errors
	ErrNotPlaying      = errors.New("game is not being played")
	ErrNotPlayerTurn   = errors.New("not this player's turn")
	ErrAlreadyRevealed = errors.New("answer has already been revealed")
	ErrAllRevealed     = errors.New("all answers have been revealed")
	ErrTurnNotExpired  = errors.New("turn has not expired")
	ErrStaleTurn       = errors.New("turn has already advanced")
	ErrEmptySubmission = errors.New("submission is empty")
	ErrRateLimited     = errors.New("player is temporarily restricted")

	// Store errors
	ErrWriteConflict = errors.New("write conflict")
	ErrUnavailable   = errors.New("store unavailable")
	ErrCorrupt       = errors.New("room document is corrupt")
)

// ErrorKind classifies errors for retry decisions
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindPrecondition
	KindConflict
	KindCorruption
	KindConnectivity
)

// String returns the kind's name
func (k ErrorKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindConflict:
		return "conflict"
	case KindCorruption:
		return "corruption"
	case KindConnectivity:
		return "connectivity"
	default:
		return "internal"
	}
}

var preconditionErrors = []error{
	ErrRoomNotFound,
	ErrRoomExists,
	ErrNotHost,
	ErrNotInRoom,
	ErrAlreadyInRoom,
	ErrNotInLobby,
	ErrNoQuestions,
	ErrNoPlayers,
	ErrCategoryNotFound,
	ErrNotPlaying,
	ErrNotPlayerTurn,
	ErrAlreadyRevealed,
	ErrAllRevealed,
	ErrTurnNotExpired,
	ErrStaleTurn,
	ErrEmptySubmission,
	ErrRateLimited,
}

// KindOf classifies an error. A nil error is KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrWriteConflict):
		return KindConflict
	case errors.Is(err, ErrUnavailable):
		return KindConnectivity
	case errors.Is(err, ErrCorrupt):
		return KindCorruption
	}
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return KindPrecondition
		}
	}
	return KindInternal
}
