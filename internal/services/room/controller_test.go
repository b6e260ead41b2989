package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/topten/internal/dependencies/mocks"
	"github.com/mcoot/topten/internal/events"
	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/clocksync"
	"github.com/mcoot/topten/internal/services/questions"
	"github.com/mcoot/topten/internal/storage/memory"
	"github.com/mcoot/topten/internal/testutil"
)

var topTenFoods = []string{"Pizza", "Burger", "Tacos", "Sushi", "Pasta", "Curry", "Salad", "Steak", "Ramen", "Burrito"}

func rankedQuestion(id string, texts ...string) model.Question {
	q := model.Question{ID: id, Text: "Name a " + id}
	for i, t := range texts {
		q.Answers = append(q.Answers, model.Answer{
			ID:   fmt.Sprintf("%s-%d", id, i+1),
			Rank: i + 1,
			Text: t,
		})
	}
	return q
}

type ControllerSuite struct {
	suite.Suite
	store      *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	recorder   *events.Recorder
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.store = memory.New(memory.WithClock(s.clock))
	s.random = mocks.NewMockRandom()
	s.recorder = events.NewRecorder()
	s.ctx = context.Background()

	food := rankedQuestion("food", topTenFoods...)
	food.Answers[0].Aliases = []string{"pizza pie"}

	qs := questions.New()
	s.Require().NoError(qs.LoadCategories(
		questions.Category{ID: "food", Questions: []model.Question{food}},
		questions.Category{ID: "double", Questions: []model.Question{
			rankedQuestion("fruit", "Apple", "Banana", "Cherry"),
			rankedQuestion("colour", "Red", "Blue"),
		}},
		questions.Category{ID: "empty"},
	))

	logger := testutil.NopLogger()
	synchronizer := clocksync.New(s.store, s.clock, clocksync.DefaultConfig(), logger)
	s.controller = NewController(s.store, qs, synchronizer, s.clock, s.random, s.recorder, logger)
}

// Helpers

func (s *ControllerSuite) createRoom(category string, playerIDs ...model.PlayerID) model.RoomCode {
	s.random.QueueString("ROOM01")
	room, err := s.controller.CreateRoom(s.ctx, model.Player{ID: playerIDs[0], DisplayName: string(playerIDs[0])}, category)
	s.Require().NoError(err)

	for _, id := range playerIDs[1:] {
		s.clock.Advance(time.Second)
		_, err := s.controller.JoinRoom(s.ctx, room.Code, model.Player{ID: id, DisplayName: string(id)})
		s.Require().NoError(err)
	}
	return room.Code
}

func (s *ControllerSuite) startedRoom(category string, playerIDs ...model.PlayerID) model.RoomCode {
	code := s.createRoom(category, playerIDs...)
	_, err := s.controller.StartGame(s.ctx, code, playerIDs[0], 0)
	s.Require().NoError(err)
	return code
}

func (s *ControllerSuite) room(code model.RoomCode) *model.Room {
	room, err := s.controller.GetRoom(s.ctx, code)
	s.Require().NoError(err)
	return room
}

func (s *ControllerSuite) assertInvariants(room *model.Room) {
	s.Equal(room.FilledSlots(), room.AnswersSubmittedCount, "submitted count matches filled slots")
	s.Len(room.RevealedAnswers, model.BoardSize)
	if len(room.TurnOrder) > 0 {
		s.Equal(room.TurnOrder[room.CurrentTurnIndex], room.CurrentPlayerID, "current player matches turn order")
	}
	s.Empty(room.MissingFields())
}

// CreateRoom tests

func (s *ControllerSuite) TestCreateRoomSucceeds() {
	s.random.QueueString("ABC123")

	room, err := s.controller.CreateRoom(s.ctx, model.Player{ID: "p1", DisplayName: "Alice"}, "food")
	s.Require().NoError(err)

	s.Equal(model.RoomCode("ABC123"), room.Code)
	s.Equal(model.StatusLobby, room.Status)
	s.Equal(model.PhaseLobby, room.GamePhase)
	s.Equal(model.PlayerID("p1"), room.HostID)
	s.True(room.Players["p1"].IsHost)
	s.True(room.Players["p1"].IsConnected)
	s.Equal(s.clock.Now(), room.Players["p1"].JoinedAt)
	s.Len(room.Questions, 1)
	s.Equal(model.DefaultTurnTimeLimit, room.TurnTimeLimit)
	s.assertInvariants(room)

	stored := s.room("ABC123")
	s.Equal("food", stored.CategoryID)
}

func (s *ControllerSuite) TestCreateRoomSkipsTakenCode() {
	s.random.QueueString("ROOM01", "ROOM01", "ROOM02")

	_, err := s.controller.CreateRoom(s.ctx, model.Player{ID: "p1"}, "food")
	s.Require().NoError(err)

	room, err := s.controller.CreateRoom(s.ctx, model.Player{ID: "p2"}, "food")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ROOM02"), room.Code)
}

func (s *ControllerSuite) TestCreateRoomGivesUpWhenCodesExhausted() {
	s.random.QueueString("ROOM01")
	_, err := s.controller.CreateRoom(s.ctx, model.Player{ID: "p1"}, "food")
	s.Require().NoError(err)

	for i := 0; i < maxCodeAttempts; i++ {
		s.random.QueueString("ROOM01")
	}
	_, err = s.controller.CreateRoom(s.ctx, model.Player{ID: "p2"}, "food")
	s.ErrorIs(err, model.ErrRoomExists)
}

func (s *ControllerSuite) TestCreateRoomUnknownCategory() {
	_, err := s.controller.CreateRoom(s.ctx, model.Player{ID: "p1"}, "nope")
	s.ErrorIs(err, model.ErrCategoryNotFound)
}

func (s *ControllerSuite) TestCreateRoomEmptyCategory() {
	_, err := s.controller.CreateRoom(s.ctx, model.Player{ID: "p1"}, "empty")
	s.ErrorIs(err, model.ErrNoQuestions)
}

// JoinRoom / LeaveRoom tests

func (s *ControllerSuite) TestJoinRoom() {
	code := s.createRoom("food", "p1", "p2")

	room := s.room(code)
	s.Len(room.Players, 2)
	s.False(room.Players["p2"].IsHost)
	s.Equal(0, room.Scores["p2"])
	s.Len(s.recorder.OfType(model.EventPlayerJoined), 1)
}

func (s *ControllerSuite) TestJoinRoomTwiceFails() {
	code := s.createRoom("food", "p1", "p2")

	_, err := s.controller.JoinRoom(s.ctx, code, model.Player{ID: "p2"})
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

func (s *ControllerSuite) TestJoinMissingRoom() {
	_, err := s.controller.JoinRoom(s.ctx, "NOPE00", model.Player{ID: "p2"})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestJoinMidGameDoesNotChangeTurnOrder() {
	code := s.startedRoom("food", "p1", "p2")

	room, err := s.controller.JoinRoom(s.ctx, code, model.Player{ID: "p0"})
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p1", "p2"}, room.TurnOrder)
}

func (s *ControllerSuite) TestJoinFinishedRoomFails() {
	code := s.createRoom("food", "p1")
	_, err := s.controller.EndGame(s.ctx, code, "p1")
	s.Require().NoError(err)

	_, err = s.controller.JoinRoom(s.ctx, code, model.Player{ID: "p2"})
	s.ErrorIs(err, model.ErrNotInLobby)
}

func (s *ControllerSuite) TestLeaveRoomMigratesHost() {
	code := s.createRoom("food", "p1", "p2", "p3")

	room, err := s.controller.LeaveRoom(s.ctx, code, "p1")
	s.Require().NoError(err)

	s.Equal(model.PlayerID("p2"), room.HostID)
	s.True(room.Players["p2"].IsHost)
	s.NotContains(room.Players, model.PlayerID("p1"))
	s.Len(s.recorder.OfType(model.EventHostChanged), 1)
}

func (s *ControllerSuite) TestLastPlayerLeavingDeletesRoom() {
	code := s.createRoom("food", "p1")

	room, err := s.controller.LeaveRoom(s.ctx, code, "p1")
	s.Require().NoError(err)
	s.Nil(room)

	_, err = s.controller.GetRoom(s.ctx, code)
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Len(s.recorder.OfType(model.EventRoomDeleted), 1)
}

func (s *ControllerSuite) TestLeaveRoomNotMember() {
	code := s.createRoom("food", "p1")

	_, err := s.controller.LeaveRoom(s.ctx, code, "p9")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ControllerSuite) TestCurrentPlayerLeavingPassesTurn() {
	code := s.startedRoom("food", "p1", "p2", "p3")
	before := s.room(code)

	room, err := s.controller.LeaveRoom(s.ctx, code, "p1")
	s.Require().NoError(err)

	s.Equal([]model.PlayerID{"p2", "p3"}, room.TurnOrder)
	s.Equal(model.PlayerID("p2"), room.CurrentPlayerID)
	s.True(room.Cursor().After(before.Cursor()))
	s.assertInvariants(room)
}

// StartGame tests

func (s *ControllerSuite) TestStartGame() {
	code := s.createRoom("food", "p2", "p1")
	s.clock.Advance(5 * time.Second)

	room, err := s.controller.StartGame(s.ctx, code, "p2", 0)
	s.Require().NoError(err)

	s.Equal(model.StatusPlaying, room.Status)
	s.Equal(model.PhaseQuestion, room.GamePhase)
	s.Equal([]model.PlayerID{"p1", "p2"}, room.TurnOrder)
	s.Equal(model.PlayerID("p1"), room.CurrentPlayerID)
	s.Equal(0, room.CurrentQuestionIndex)
	s.Equal(0, room.CurrentTurnIndex)
	s.Equal(s.clock.Now(), room.TurnStartTime)
	s.Equal(model.DefaultTurnTimeLimit, room.TurnTimeLimit)
	s.Equal(0, room.FilledSlots())
	s.Equal(map[model.PlayerID]int{"p1": 0, "p2": 0}, room.Scores)
	s.assertInvariants(room)
	s.Len(s.recorder.OfType(model.EventGameStarted), 1)
}

func (s *ControllerSuite) TestStartGameWithTurnLimit() {
	code := s.createRoom("food", "p1")

	room, err := s.controller.StartGame(s.ctx, code, "p1", 15)
	s.Require().NoError(err)
	s.Equal(15, room.TurnTimeLimit)
}

func (s *ControllerSuite) TestStartGameSinglePlayer() {
	code := s.createRoom("food", "p1")

	room, err := s.controller.StartGame(s.ctx, code, "p1", 0)
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p1"}, room.TurnOrder)
}

func (s *ControllerSuite) TestStartGameRequiresHost() {
	code := s.createRoom("food", "p1", "p2")

	_, err := s.controller.StartGame(s.ctx, code, "p2", 0)
	s.ErrorIs(err, model.ErrNotHost)
	s.Equal(model.StatusLobby, s.room(code).Status)
}

func (s *ControllerSuite) TestStartGameOnlyOnce() {
	code := s.startedRoom("food", "p1", "p2")

	_, err := s.controller.StartGame(s.ctx, code, "p1", 0)
	s.ErrorIs(err, model.ErrNotInLobby)
}

func (s *ControllerSuite) TestStartGameMissingRoom() {
	_, err := s.controller.StartGame(s.ctx, "NOPE00", "p1", 0)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestStartGameWithoutQuestions() {
	code := s.createRoom("food", "p1")
	_, err := s.store.Transact(s.ctx, code, func(room *model.Room) (*model.Room, error) {
		room.Questions = nil
		return room, nil
	})
	s.Require().NoError(err)

	_, err = s.controller.StartGame(s.ctx, code, "p1", 0)
	s.ErrorIs(err, model.ErrNoQuestions)
}

// SubmitAnswer tests

func (s *ControllerSuite) TestNotYourTurnThenRankOneScores() {
	code := s.startedRoom("food", "p1", "p2")

	_, err := s.controller.SubmitAnswer(s.ctx, code, "p2", "x")
	s.ErrorIs(err, model.ErrNotPlayerTurn)

	result, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "Pizza")
	s.Require().NoError(err)

	s.True(result.Matched)
	s.Equal(1, result.Rank)
	s.Equal(100, result.Points)
	s.Equal(100, result.Room.Scores["p1"])
	s.Equal(100, result.Room.Players["p1"].Score)
	s.Equal(model.PlayerID("p2"), result.Room.CurrentPlayerID)
	s.Equal(&model.RevealSlot{AnswerID: "food-1", OwnerPlayerID: "p1", Points: 100}, result.Room.RevealedAnswers[0])
	s.assertInvariants(result.Room)
	s.Len(s.recorder.OfType(model.EventAnswerRevealed), 1)
}

func (s *ControllerSuite) TestWrongAnswerConsumesTurn() {
	code := s.startedRoom("food", "p1", "p2")

	result, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "Broccoli")
	s.Require().NoError(err)

	s.False(result.Matched)
	s.Equal(0, result.Points)
	s.Equal(0, result.Room.Scores["p1"])
	s.Equal(0, result.Room.AnswersSubmittedCount)
	s.Equal(model.PlayerID("p2"), result.Room.CurrentPlayerID)
	s.Equal(1, result.Room.TurnCounter)
}

func (s *ControllerSuite) TestAliasMatches() {
	code := s.startedRoom("food", "p1", "p2")

	result, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "  PIZZA pie ")
	s.Require().NoError(err)
	s.True(result.Matched)
	s.Equal("food-1", result.AnswerID)
}

func (s *ControllerSuite) TestAlreadyRevealedConsumesTurnWithoutScore() {
	code := s.startedRoom("food", "p1", "p2")

	_, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "Pizza")
	s.Require().NoError(err)

	result, err := s.controller.SubmitAnswer(s.ctx, code, "p2", "pizza pie")
	s.ErrorIs(err, model.ErrAlreadyRevealed)
	s.Require().NotNil(result)
	s.True(result.AlreadyRevealed)
	s.Require().NotNil(result.Room)

	room := s.room(code)
	s.Equal(0, room.Scores["p2"])
	s.Equal(1, room.AnswersSubmittedCount)
	s.Equal(model.PlayerID("p1"), room.CurrentPlayerID, "turn passed back to p1")
	s.Equal(model.PlayerID("p1"), room.RevealedAnswers[0].OwnerPlayerID, "slot is write-once")
	s.assertInvariants(room)
}

func (s *ControllerSuite) TestEmptySubmissionRejected() {
	code := s.startedRoom("food", "p1", "p2")

	_, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "   ")
	s.ErrorIs(err, model.ErrEmptySubmission)
	s.Equal(model.PlayerID("p1"), s.room(code).CurrentPlayerID)
}

func (s *ControllerSuite) TestSubmitInLobbyFails() {
	code := s.createRoom("food", "p1", "p2")

	_, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "Pizza")
	s.ErrorIs(err, model.ErrNotPlaying)
}

func (s *ControllerSuite) TestRestrictedPlayerRejected() {
	code := s.startedRoom("food", "p1", "p2")
	_, err := s.store.Transact(s.ctx, code, func(room *model.Room) (*model.Room, error) {
		room.Players["p1"].Restricted = true
		room.Players["p1"].RestrictedUntil = s.clock.Now().Add(time.Minute)
		return room, nil
	})
	s.Require().NoError(err)

	_, err = s.controller.SubmitAnswer(s.ctx, code, "p1", "Pizza")
	s.ErrorIs(err, model.ErrRateLimited)

	// Restriction lapses on its own
	s.clock.Advance(61 * time.Second)
	_, err = s.controller.SubmitAnswer(s.ctx, code, "p1", "Pizza")
	s.NoError(err)
}

func (s *ControllerSuite) TestTenAnswersFinishGameExactlyOnce() {
	code := s.startedRoom("food", "p1", "p2")

	var prev model.TurnCursor
	for i, text := range topTenFoods {
		room := s.room(code)
		player := room.CurrentPlayerID
		s.Equal(model.PlayerID(fmt.Sprintf("p%d", i%2+1)), player)

		result, err := s.controller.SubmitAnswer(s.ctx, code, player, text)
		s.Require().NoError(err, "answer %d", i+1)
		s.True(result.Matched)
		s.True(result.Room.Cursor().After(prev), "cursor moves forward")
		prev = result.Room.Cursor()
		s.assertInvariants(result.Room)

		if i < len(topTenFoods)-1 {
			s.Equal(model.StatusPlaying, result.Room.Status)
			s.False(result.GameFinished)
		} else {
			s.True(result.QuestionComplete)
			s.True(result.GameFinished)
		}
	}

	room := s.room(code)
	s.Equal(model.StatusFinished, room.Status)
	s.Equal(model.PhaseFinished, room.GamePhase)
	s.Equal(model.BoardSize, room.AnswersSubmittedCount)
	for i, slot := range room.RevealedAnswers {
		s.Require().NotNil(slot, "slot %d", i)
		s.Equal(model.PlayerID(fmt.Sprintf("p%d", i%2+1)), slot.OwnerPlayerID)
	}
	// p1 took ranks 1,3,5,7,9 and p2 took 2,4,6,8,10
	s.Equal(100+80+60+40+20, room.Scores["p1"])
	s.Equal(90+70+50+30+10, room.Scores["p2"])
	s.Len(s.recorder.OfType(model.EventGameEnded), 1)

	_, err := s.controller.SubmitAnswer(s.ctx, code, room.CurrentPlayerID, "anything")
	s.ErrorIs(err, model.ErrNotPlaying)
	s.Len(s.recorder.OfType(model.EventGameEnded), 1)
}

func (s *ControllerSuite) TestWraparoundDoesNotEndQuestion() {
	code := s.startedRoom("food", "p1", "p2")

	for i := 0; i < 5; i++ {
		room := s.room(code)
		_, err := s.controller.SubmitAnswer(s.ctx, code, room.CurrentPlayerID, "wrong")
		s.Require().NoError(err)
	}

	room := s.room(code)
	s.Equal(model.StatusPlaying, room.Status)
	s.Equal(0, room.CurrentQuestionIndex)
	s.Equal(5, room.TurnCounter)
	s.Equal(model.PlayerID("p2"), room.CurrentPlayerID)
}

func (s *ControllerSuite) TestShortQuestionAdvancesToNext() {
	code := s.startedRoom("double", "p1", "p2")

	for _, text := range []string{"Apple", "Banana", "Cherry"} {
		room := s.room(code)
		_, err := s.controller.SubmitAnswer(s.ctx, code, room.CurrentPlayerID, text)
		s.Require().NoError(err)
	}

	room := s.room(code)
	s.Equal(model.StatusPlaying, room.Status)
	s.Equal(1, room.CurrentQuestionIndex)
	s.Equal(0, room.AnswersSubmittedCount)
	s.Equal(0, room.FilledSlots())
	s.Equal(0, room.CurrentTurnIndex)
	s.Equal(model.PlayerID("p1"), room.CurrentPlayerID)
	s.assertInvariants(room)
	s.Len(s.recorder.OfType(model.EventQuestionComplete), 1)

	for _, text := range []string{"Red", "Blue"} {
		room := s.room(code)
		_, err := s.controller.SubmitAnswer(s.ctx, code, room.CurrentPlayerID, text)
		s.Require().NoError(err)
	}
	s.Equal(model.StatusFinished, s.room(code).Status)
}

type staticQuestions []model.Question

func (q staticQuestions) QuestionsForCategory(context.Context, string) ([]model.Question, error) {
	return q, nil
}

func (s *ControllerSuite) TestMalformedRankStillCompletesQuestion() {
	provider := staticQuestions{{
		ID:   "odd",
		Text: "Name a letter",
		Answers: []model.Answer{
			{ID: "alpha", Rank: 11, Text: "Alpha"},
			{ID: "bravo", Rank: 1, Text: "Bravo"},
		},
	}}
	logger := testutil.NopLogger()
	synchronizer := clocksync.New(s.store, s.clock, clocksync.DefaultConfig(), logger)
	controller := NewController(s.store, provider, synchronizer, s.clock, s.random, s.recorder, logger)

	s.random.QueueString("ODD001")
	room, err := controller.CreateRoom(s.ctx, model.Player{ID: "p1", DisplayName: "p1"}, "odd")
	s.Require().NoError(err)
	code := room.Code
	_, err = controller.StartGame(s.ctx, code, "p1", 0)
	s.Require().NoError(err)

	alpha, err := controller.SubmitAnswer(s.ctx, code, "p1", "Alpha")
	s.Require().NoError(err)
	s.True(alpha.Matched)
	s.Equal(10, alpha.Points)

	bravo, err := controller.SubmitAnswer(s.ctx, code, "p1", "Bravo")
	s.Require().NoError(err)
	s.True(bravo.Matched)
	s.Equal(100, bravo.Points)
	s.True(bravo.QuestionComplete)
	s.True(bravo.GameFinished)

	final := s.room(code)
	s.Equal(model.StatusFinished, final.Status)
	s.Equal("bravo", final.RevealedAnswers[0].AnswerID)
	s.Equal("alpha", final.RevealedAnswers[1].AnswerID)
}

func (s *ControllerSuite) TestConcurrentSubmissionsScoreOnce() {
	code := s.startedRoom("food", "p1", "p2")

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "Pizza")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, model.ErrWriteConflict) && !errors.Is(err, model.ErrNotPlayerTurn) {
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	room := s.room(code)
	s.Equal(100, room.Scores["p1"])
	s.Equal(1, room.AnswersSubmittedCount)
	s.assertInvariants(room)
}

// AdvanceTurnOnTimeout tests

func (s *ControllerSuite) TestTimeoutBeforeLimitFails() {
	code := s.startedRoom("food", "p1", "p2")
	s.clock.Advance(59 * time.Second)

	_, err := s.controller.AdvanceTurnOnTimeout(s.ctx, code, "p2")
	s.ErrorIs(err, model.ErrTurnNotExpired)
	s.Equal(model.PlayerID("p1"), s.room(code).CurrentPlayerID)
}

func (s *ControllerSuite) TestTimeoutAfterLimitAdvances() {
	code := s.startedRoom("food", "p1", "p2")
	s.clock.Advance(61 * time.Second)

	room, err := s.controller.AdvanceTurnOnTimeout(s.ctx, code, "p2")
	s.Require().NoError(err)

	s.Equal(model.PlayerID("p2"), room.CurrentPlayerID)
	s.Equal(s.clock.Now(), room.TurnStartTime)
	s.Equal(0, room.Scores["p1"])
	s.assertInvariants(room)

	advanced := s.recorder.OfType(model.EventTurnAdvanced)
	s.Require().Len(advanced, 1)
	s.True(advanced[0].Payload.(model.TurnAdvancedPayload).TimedOut)

	// The new turn has a fresh timer
	_, err = s.controller.AdvanceTurnOnTimeout(s.ctx, code, "p1")
	s.ErrorIs(err, model.ErrTurnNotExpired)
}

func (s *ControllerSuite) TestTimeoutRequiresMembership() {
	code := s.startedRoom("food", "p1", "p2")
	s.clock.Advance(61 * time.Second)

	_, err := s.controller.AdvanceTurnOnTimeout(s.ctx, code, "stranger")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ControllerSuite) TestTimeoutWithStaleCursorFails() {
	code := s.startedRoom("food", "p1", "p2")
	stale := s.room(code).Cursor()
	s.clock.Advance(61 * time.Second)

	_, err := s.controller.AdvanceTurnIfExpired(s.ctx, code, "p1", stale)
	s.Require().NoError(err)

	_, err = s.controller.AdvanceTurnIfExpired(s.ctx, code, "p2", stale)
	s.ErrorIs(err, model.ErrStaleTurn)
	s.Equal(1, s.room(code).TurnCounter)
}

func (s *ControllerSuite) TestConcurrentTimeoutsAdvanceOnce() {
	code := s.startedRoom("food", "p1", "p2", "p3")
	expected := s.room(code).Cursor()
	s.clock.Advance(61 * time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for _, caller := range []model.PlayerID{"p1", "p2", "p3", "p2", "p3"} {
		wg.Add(1)
		go func(caller model.PlayerID) {
			defer wg.Done()
			_, err := s.controller.AdvanceTurnIfExpired(s.ctx, code, caller, expected)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, model.ErrWriteConflict) && !errors.Is(err, model.ErrStaleTurn) {
				s.Failf("unexpected error", "%v", err)
			}
		}(caller)
	}
	wg.Wait()

	s.Equal(1, successes)
	room := s.room(code)
	s.Equal(1, room.TurnCounter)
	s.Equal(model.PlayerID("p2"), room.CurrentPlayerID)
}

func (s *ControllerSuite) TestTimeoutRaceLostToSubmission() {
	code := s.startedRoom("food", "p1", "p2")
	expected := s.room(code).Cursor()
	s.clock.Advance(61 * time.Second)

	// p1 answers late but before anyone noticed the timeout
	_, err := s.controller.SubmitAnswer(s.ctx, code, "p1", "Burger")
	s.Require().NoError(err)

	_, err = s.controller.AdvanceTurnIfExpired(s.ctx, code, "p2", expected)
	s.ErrorIs(err, model.ErrStaleTurn)
	s.Equal(model.PlayerID("p2"), s.room(code).CurrentPlayerID)
}

// EndGame / CloseRoom tests

func (s *ControllerSuite) TestEndGame() {
	code := s.startedRoom("food", "p1", "p2")

	_, err := s.controller.EndGame(s.ctx, code, "p2")
	s.ErrorIs(err, model.ErrNotHost)

	room, err := s.controller.EndGame(s.ctx, code, "p1")
	s.Require().NoError(err)
	s.Equal(model.StatusFinished, room.Status)
	s.Equal(model.PhaseFinished, room.GamePhase)

	// Ending again still succeeds
	_, err = s.controller.EndGame(s.ctx, code, "p1")
	s.NoError(err)
	s.Len(s.recorder.OfType(model.EventGameEnded), 1)
}

func (s *ControllerSuite) TestCloseRoom() {
	code := s.createRoom("food", "p1", "p2")

	room, err := s.controller.CloseRoom(s.ctx, code, "p1")
	s.Require().NoError(err)
	s.Equal(model.StatusClosed, room.Status)
	s.Equal(model.PhaseFinished, room.GamePhase)

	room, err = s.controller.EndGame(s.ctx, code, "p1")
	s.Require().NoError(err)
	s.Equal(model.StatusClosed, room.Status, "closed rooms stay closed")
}

func (s *ControllerSuite) TestEndGameMissingRoom() {
	_, err := s.controller.EndGame(s.ctx, "NOPE00", "p1")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// IsAllowedToSubmit / TimeRemaining tests

func (s *ControllerSuite) TestIsAllowedToSubmit() {
	code := s.createRoom("food", "p1", "p2")

	ok, reason := s.controller.IsAllowedToSubmit("p1", s.room(code))
	s.False(ok)
	s.Equal(model.ErrNotPlaying.Error(), reason)

	_, err := s.controller.StartGame(s.ctx, code, "p1", 0)
	s.Require().NoError(err)
	room := s.room(code)

	ok, reason = s.controller.IsAllowedToSubmit("p1", room)
	s.True(ok)
	s.Empty(reason)

	ok, reason = s.controller.IsAllowedToSubmit("p2", room)
	s.False(ok)
	s.Equal(model.ErrNotPlayerTurn.Error(), reason)

	ok, reason = s.controller.IsAllowedToSubmit("p9", room)
	s.False(ok)
	s.Equal(model.ErrNotInRoom.Error(), reason)

	ok, _ = s.controller.IsAllowedToSubmit("p1", nil)
	s.False(ok)
}

func (s *ControllerSuite) TestTimeRemaining() {
	code := s.startedRoom("food", "p1", "p2")

	s.Equal(60*time.Second, s.controller.TimeRemaining(s.ctx, s.room(code)))

	s.clock.Advance(20 * time.Second)
	s.Equal(40*time.Second, s.controller.TimeRemaining(s.ctx, s.room(code)))

	s.clock.Advance(time.Minute)
	s.Equal(time.Duration(0), s.controller.TimeRemaining(s.ctx, s.room(code)))
}
