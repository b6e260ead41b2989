package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/topten/internal/dependencies/clock"
	"github.com/mcoot/topten/internal/dependencies/random"
	"github.com/mcoot/topten/internal/events"
	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/answers"
	"github.com/mcoot/topten/internal/services/clocksync"
	"github.com/mcoot/topten/internal/services/questions"
	"github.com/mcoot/topten/internal/storage"
)

// TimeSource supplies the store-aligned time used for turn stamps and expiry
type TimeSource interface {
	AuthoritativeNow(ctx context.Context) time.Time
	EstimateOffset(ctx context.Context) time.Duration
	LastOffset() time.Duration
}

var _ TimeSource = (*clocksync.Synchronizer)(nil)

// SubmitResult describes what a submission did
type SubmitResult struct {
	Matched          bool
	AlreadyRevealed  bool
	AnswerID         string
	Rank             int
	Points           int
	QuestionComplete bool
	GameFinished     bool
	// Room is the committed state, nil if another client advanced the turn first
	Room *model.Room
}

// Controller is the room state machine. Every mutation is a single
// conditional transaction against the store.
type Controller struct {
	store     storage.Store
	questions questions.Provider
	time      TimeSource
	clock     clock.Clock
	random    random.Random
	publisher events.Publisher
	logger    *slog.Logger
}

// NewController creates a new room Controller
func NewController(
	store storage.Store,
	questions questions.Provider,
	timeSource TimeSource,
	clock clock.Clock,
	random random.Random,
	publisher events.Publisher,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		store:     store,
		questions: questions,
		time:      timeSource,
		clock:     clock,
		random:    random,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "room")),
	}
}

// GetRoom returns a snapshot of a room
func (c *Controller) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.store.Read(ctx, code)
}

// StartGame moves a room from the lobby into its first question.
// A turn limit of zero or less keeps the room's configured limit.
func (c *Controller) StartGame(ctx context.Context, code model.RoomCode, hostID model.PlayerID, turnLimitSec int) (*model.Room, error) {
	now := c.time.AuthoritativeNow(ctx)

	room, err := c.store.Transact(ctx, code, func(room *model.Room) (*model.Room, error) {
		if room.Status != model.StatusLobby {
			return nil, model.ErrNotInLobby
		}
		if !room.IsHost(hostID) {
			return nil, model.ErrNotHost
		}
		if len(room.Questions) == 0 {
			return nil, model.ErrNoQuestions
		}
		if len(room.Players) == 0 {
			return nil, model.ErrNoPlayers
		}

		if turnLimitSec > 0 {
			room.TurnTimeLimit = turnLimitSec
		}
		if room.TurnTimeLimit <= 0 {
			room.TurnTimeLimit = model.DefaultTurnTimeLimit
		}

		room.TurnOrder = TurnOrder(room.Players)
		room.RevealedAnswers = model.NewBoard()
		room.AnswersSubmittedCount = 0
		room.Scores = make(map[model.PlayerID]int, len(room.Players))
		for id, p := range room.Players {
			room.Scores[id] = 0
			p.Score = 0
		}

		room.Status = model.StatusPlaying
		room.GamePhase = model.PhaseQuestion
		room.CurrentQuestionIndex = 0
		room.CurrentTurnIndex = 0
		room.CurrentPlayerID = room.TurnOrder[0]
		room.TurnCounter = 0
		room.TurnStartTime = now
		room.LastActivity = now
		return room, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("game started",
		slog.String("room_code", string(code)),
		slog.Int("player_count", len(room.TurnOrder)),
		slog.Int("question_count", len(room.Questions)),
		slog.Int("turn_time_limit", room.TurnTimeLimit),
	)
	c.publish(ctx, model.EventGameStarted, code, hostID, nil)

	return room, nil
}

// SubmitAnswer resolves a guess from the current player. Every submission
// consumes the turn. A guess matching an answer someone already revealed fails
// with model.ErrAlreadyRevealed after the turn has been advanced without score.
func (c *Controller) SubmitAnswer(ctx context.Context, code model.RoomCode, playerID model.PlayerID, text string) (*SubmitResult, error) {
	if answers.Normalize(text) == "" {
		return nil, model.ErrEmptySubmission
	}

	now := c.time.AuthoritativeNow(ctx)

	var result SubmitResult
	var observed model.TurnCursor

	room, err := c.store.Transact(ctx, code, func(room *model.Room) (*model.Room, error) {
		result = SubmitResult{}
		if err := CheckSubmit(room, playerID, now); err != nil {
			return nil, err
		}
		observed = room.Cursor()

		q := room.CurrentQuestion()
		answer, ok := answers.Resolve(text, q.Answers)
		slot := -1
		if ok {
			slot = q.SlotIndex(answer)
		}
		if slot >= 0 {
			result.Matched = true
			result.AnswerID = answer.ID
			result.Rank = answer.Rank

			if room.RevealedAnswers[slot] != nil {
				return nil, model.ErrAlreadyRevealed
			}

			points := answers.PointsForRank(answer.Rank)
			room.RevealedAnswers[slot] = &model.RevealSlot{
				AnswerID:      answer.ID,
				OwnerPlayerID: playerID,
				Points:        points,
			}
			if room.Scores == nil {
				room.Scores = make(map[model.PlayerID]int)
			}
			room.Scores[playerID] += points
			room.Players[playerID].Score += points
			room.AnswersSubmittedCount++
			result.Points = points
		}

		room.Players[playerID].LastSeen = now
		result.QuestionComplete = advanceTurn(room, now)
		result.GameFinished = room.Status == model.StatusFinished
		return room, nil
	})

	if errors.Is(err, model.ErrAlreadyRevealed) {
		result.AlreadyRevealed = true
		advanced, completed, advErr := c.advanceFrom(ctx, code, observed, now)
		switch {
		case errors.Is(advErr, model.ErrStaleTurn):
			// Someone else already moved the turn on
		case advErr != nil:
			return nil, advErr
		default:
			result.Room = advanced
			result.QuestionComplete = completed
			result.GameFinished = advanced.Status == model.StatusFinished
			c.afterAdvance(ctx, code, playerID, advanced, completed, false)
		}

		c.logger.Info("duplicate answer consumed turn",
			slog.String("room_code", string(code)),
			slog.String("player_id", string(playerID)),
			slog.String("answer_id", result.AnswerID),
		)
		return &result, model.ErrAlreadyRevealed
	}
	if err != nil {
		return nil, err
	}

	result.Room = room

	c.logger.Info("answer submitted",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
		slog.Bool("matched", result.Matched),
		slog.Int("points", result.Points),
		slog.Int("revealed", room.FilledSlots()),
	)

	if result.Points > 0 {
		c.publish(ctx, model.EventAnswerRevealed, code, playerID, model.AnswerRevealedPayload{
			AnswerID: result.AnswerID,
			Rank:     result.Rank,
			Points:   result.Points,
		})
	}
	c.afterAdvance(ctx, code, playerID, room, result.QuestionComplete, false)

	return &result, nil
}

// AdvanceTurnOnTimeout moves past a player whose turn has run out. Any room
// member may call it. Only one of several concurrent callers wins; the rest
// fail with model.ErrStaleTurn or a write conflict and must not retry the same read.
func (c *Controller) AdvanceTurnOnTimeout(ctx context.Context, code model.RoomCode, callerID model.PlayerID) (*model.Room, error) {
	snapshot, err := c.store.Read(ctx, code)
	if err != nil {
		return nil, err
	}
	if snapshot.GetPlayer(callerID) == nil {
		return nil, model.ErrNotInRoom
	}
	if snapshot.Status != model.StatusPlaying {
		return nil, model.ErrNotPlaying
	}
	return c.AdvanceTurnIfExpired(ctx, code, callerID, snapshot.Cursor())
}

// AdvanceTurnIfExpired advances the turn only if the room is still at the
// expected cursor and the turn's time has run out on the store's clock
func (c *Controller) AdvanceTurnIfExpired(ctx context.Context, code model.RoomCode, callerID model.PlayerID, expected model.TurnCursor) (*model.Room, error) {
	offset := c.time.EstimateOffset(ctx)
	local := c.clock.Now()
	now := local.Add(offset)

	var timedOut model.PlayerID
	var completed bool

	room, err := c.store.Transact(ctx, code, func(room *model.Room) (*model.Room, error) {
		if room.GetPlayer(callerID) == nil {
			return nil, model.ErrNotInRoom
		}
		if room.Status != model.StatusPlaying || room.GamePhase != model.PhaseQuestion {
			return nil, model.ErrNotPlaying
		}
		if room.Cursor() != expected {
			return nil, model.ErrStaleTurn
		}
		if clocksync.TimeRemaining(room.TurnStartTime, room.TurnTimeLimit, offset, local) > 0 {
			return nil, model.ErrTurnNotExpired
		}

		timedOut = room.CurrentPlayerID
		completed = advanceTurn(room, now)
		return room, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("turn timed out",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(timedOut)),
		slog.String("caller_id", string(callerID)),
	)
	c.afterAdvance(ctx, code, timedOut, room, completed, true)

	return room, nil
}

// EndGame finishes the game on behalf of the host
func (c *Controller) EndGame(ctx context.Context, code model.RoomCode, hostID model.PlayerID) (*model.Room, error) {
	return c.terminate(ctx, code, hostID, model.StatusFinished, "ended by host")
}

// CloseRoom tears the room down on behalf of the host
func (c *Controller) CloseRoom(ctx context.Context, code model.RoomCode, hostID model.PlayerID) (*model.Room, error) {
	return c.terminate(ctx, code, hostID, model.StatusClosed, "closed by host")
}

func (c *Controller) terminate(ctx context.Context, code model.RoomCode, hostID model.PlayerID, status model.RoomStatus, reason string) (*model.Room, error) {
	now := c.time.AuthoritativeNow(ctx)

	var changed bool
	room, err := c.store.Transact(ctx, code, func(room *model.Room) (*model.Room, error) {
		if !room.IsHost(hostID) {
			return nil, model.ErrNotHost
		}
		// A closed room stays closed
		if room.Status == model.StatusClosed || room.Status == status {
			changed = false
			return room, nil
		}
		changed = true
		room.Status = status
		room.GamePhase = model.PhaseFinished
		room.LastActivity = now
		return room, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		c.logger.Info("room terminated by host",
			slog.String("room_code", string(code)),
			slog.String("status", string(room.Status)),
		)
		c.publish(ctx, model.EventGameEnded, code, hostID, model.GameEndedPayload{
			Status: room.Status,
			Scores: room.Scores,
			Reason: reason,
		})
	}
	return room, nil
}

// IsAllowedToSubmit reports whether a player may submit right now, and why not
func (c *Controller) IsAllowedToSubmit(playerID model.PlayerID, room *model.Room) (bool, string) {
	now := c.clock.Now().Add(c.time.LastOffset())
	if err := CheckSubmit(room, playerID, now); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// TimeRemaining returns how long the current turn has left on the store's clock
func (c *Controller) TimeRemaining(ctx context.Context, room *model.Room) time.Duration {
	if room.Status != model.StatusPlaying {
		return 0
	}
	return clocksync.TimeRemaining(room.TurnStartTime, room.TurnTimeLimit, c.time.EstimateOffset(ctx), c.clock.Now())
}

// advanceFrom performs a no-score turn advance if the room is still at the expected cursor
func (c *Controller) advanceFrom(ctx context.Context, code model.RoomCode, expected model.TurnCursor, now time.Time) (*model.Room, bool, error) {
	var completed bool
	room, err := c.store.Transact(ctx, code, func(room *model.Room) (*model.Room, error) {
		if room.Status != model.StatusPlaying || room.GamePhase != model.PhaseQuestion {
			return nil, model.ErrNotPlaying
		}
		if room.Cursor() != expected {
			return nil, model.ErrStaleTurn
		}
		completed = advanceTurn(room, now)
		return room, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("advance turn: %w", err)
	}
	return room, completed, nil
}

// afterAdvance publishes the events that follow a committed turn advance
func (c *Controller) afterAdvance(ctx context.Context, code model.RoomCode, playerID model.PlayerID, room *model.Room, completed bool, timedOut bool) {
	if completed {
		c.publish(ctx, model.EventQuestionComplete, code, playerID, nil)
	}
	if room.Status == model.StatusFinished {
		c.logger.Info("game finished",
			slog.String("room_code", string(code)),
			slog.Int("questions", len(room.Questions)),
		)
		c.publish(ctx, model.EventGameEnded, code, playerID, model.GameEndedPayload{
			Status: room.Status,
			Scores: room.Scores,
			Reason: "all questions answered",
		})
		return
	}
	c.publish(ctx, model.EventTurnAdvanced, code, playerID, model.TurnAdvancedPayload{
		Cursor:       room.Cursor(),
		NextPlayerID: room.CurrentPlayerID,
		TimedOut:     timedOut,
	})
}

// publish sends an event after a commit. Delivery failures never undo the commit.
func (c *Controller) publish(ctx context.Context, eventType model.EventType, code model.RoomCode, playerID model.PlayerID, payload any) {
	event := events.New(c.clock, eventType, code, playerID, payload)
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish event",
			slog.String("event_type", string(eventType)),
			slog.String("room_code", string(code)),
			slog.String("error", err.Error()),
		)
	}
}
