package resilience

import (
	"errors"

	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/room"
)

// Outcome is the closed set of results a supervised operation can have
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeRejected means a precondition failed. Err says which.
	OutcomeRejected
	// OutcomeStale means another client already moved the room on
	OutcomeStale
	// OutcomeRateLimited means the player is temporarily restricted
	OutcomeRateLimited
	// OutcomeRetryLater means write conflicts outlasted the retry budget
	OutcomeRetryLater
	// OutcomeUnavailable means the store stayed unreachable through every reconnect attempt
	OutcomeUnavailable
	// OutcomeFailed covers unrepairable documents and internal errors
	OutcomeFailed
)

// String returns the outcome's name
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeStale:
		return "stale"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeRetryLater:
		return "retry_later"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// Result is what every supervised operation returns
type Result struct {
	Outcome Outcome
	Err     error
	// Room is the latest committed state, when the operation produced one
	Room *model.Room
	// Submit is set by SubmitAnswer, including when the guess was already revealed
	Submit   *room.SubmitResult
	Attempts int
	Repaired bool
}

// OK reports whether the operation succeeded
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// preconditionOutcome refines a precondition failure
func preconditionOutcome(err error) Outcome {
	switch {
	case errors.Is(err, model.ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, model.ErrStaleTurn):
		return OutcomeStale
	default:
		return OutcomeRejected
	}
}
