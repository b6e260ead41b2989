package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/topten/internal/model"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func playingRoom(order ...model.PlayerID) *model.Room {
	room := &model.Room{
		Code:            "ROOM01",
		HostID:          order[0],
		Status:          model.StatusPlaying,
		GamePhase:       model.PhaseQuestion,
		Questions:       []model.Question{rankedQuestion("q", "A", "B")},
		TurnOrder:       append([]model.PlayerID(nil), order...),
		CurrentPlayerID: order[0],
		TurnTimeLimit:   60,
		RevealedAnswers: model.NewBoard(),
		Scores:          map[model.PlayerID]int{},
		Players:         map[model.PlayerID]*model.Player{},
	}
	for i, id := range order {
		room.Players[id] = &model.Player{
			ID:          id,
			IsHost:      i == 0,
			IsConnected: true,
			JoinedAt:    t0.Add(time.Duration(i) * time.Second),
		}
		room.Scores[id] = 0
	}
	return room
}

func TestTurnOrderIsSorted(t *testing.T) {
	room := playingRoom("c", "a", "b")
	assert.Equal(t, []model.PlayerID{"a", "b", "c"}, TurnOrder(room.Players))
}

func TestRemovePlayerBeforeCursorKeepsCurrentPlayer(t *testing.T) {
	room := playingRoom("a", "b", "c")
	room.CurrentTurnIndex = 2
	room.CurrentPlayerID = "c"

	require.True(t, RemovePlayer(room, "a", t0))

	assert.Equal(t, []model.PlayerID{"b", "c"}, room.TurnOrder)
	assert.Equal(t, 1, room.CurrentTurnIndex)
	assert.Equal(t, model.PlayerID("c"), room.CurrentPlayerID)
	assert.Equal(t, 1, room.TurnCounter)
}

func TestRemoveLastCurrentPlayerWraps(t *testing.T) {
	room := playingRoom("a", "b", "c")
	room.CurrentTurnIndex = 2
	room.CurrentPlayerID = "c"

	RemovePlayer(room, "c", t0.Add(time.Minute))

	assert.Equal(t, 0, room.CurrentTurnIndex)
	assert.Equal(t, model.PlayerID("a"), room.CurrentPlayerID)
	assert.Equal(t, t0.Add(time.Minute), room.TurnStartTime)
}

func TestRemovePlayerAfterCursorLeavesCursor(t *testing.T) {
	room := playingRoom("a", "b", "c")

	RemovePlayer(room, "c", t0)

	assert.Equal(t, 0, room.CurrentTurnIndex)
	assert.Equal(t, model.PlayerID("a"), room.CurrentPlayerID)
	assert.Equal(t, 0, room.TurnCounter)
}

func TestRemoveOnlyPlayerFinishesGame(t *testing.T) {
	room := playingRoom("a")

	RemovePlayer(room, "a", t0)

	assert.Empty(t, room.TurnOrder)
	assert.Equal(t, model.StatusFinished, room.Status)
	assert.Equal(t, model.PhaseFinished, room.GamePhase)
}

func TestRemoveMissingPlayer(t *testing.T) {
	room := playingRoom("a", "b")
	assert.False(t, RemovePlayer(room, "z", t0))
	assert.Len(t, room.Players, 2)
}

func TestElectHostPicksEarliestConnected(t *testing.T) {
	room := playingRoom("host", "late", "early")
	room.Players["early"].JoinedAt = t0.Add(10 * time.Second)
	room.Players["late"].JoinedAt = t0.Add(20 * time.Second)

	id, ok := ElectHost(room)
	require.True(t, ok)
	assert.Equal(t, model.PlayerID("early"), id)
}

func TestElectHostSkipsDisconnected(t *testing.T) {
	room := playingRoom("host", "a", "b")
	room.Players["a"].IsConnected = false

	id, ok := ElectHost(room)
	require.True(t, ok)
	assert.Equal(t, model.PlayerID("b"), id)
}

func TestElectHostNoCandidates(t *testing.T) {
	room := playingRoom("host", "a")
	room.Players["a"].IsConnected = false

	_, ok := ElectHost(room)
	assert.False(t, ok)
}

func TestSetHostMovesFlag(t *testing.T) {
	room := playingRoom("a", "b")

	SetHost(room, "b")

	assert.Equal(t, model.PlayerID("b"), room.HostID)
	assert.True(t, room.Players["b"].IsHost)
	assert.False(t, room.Players["a"].IsHost)
}

func TestCheckSubmitAllRevealed(t *testing.T) {
	room := playingRoom("a", "b")
	room.RevealedAnswers[0] = &model.RevealSlot{AnswerID: "q-1", OwnerPlayerID: "a", Points: 100}
	room.RevealedAnswers[1] = &model.RevealSlot{AnswerID: "q-2", OwnerPlayerID: "b", Points: 90}
	room.AnswersSubmittedCount = 2

	assert.ErrorIs(t, CheckSubmit(room, "a", t0), model.ErrAllRevealed)
}
