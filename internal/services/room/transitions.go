package room

import (
	"sort"
	"time"

	"github.com/mcoot/topten/internal/model"
)

// The functions in this file are pure state transitions. They run inside
// transaction bodies and must only touch the room they are given.

// CheckSubmit returns the precondition error that stops playerID from submitting, or nil
func CheckSubmit(room *model.Room, playerID model.PlayerID, now time.Time) error {
	if room == nil {
		return model.ErrRoomNotFound
	}
	if room.Status != model.StatusPlaying || room.GamePhase != model.PhaseQuestion {
		return model.ErrNotPlaying
	}
	player := room.GetPlayer(playerID)
	if player == nil {
		return model.ErrNotInRoom
	}
	if player.Restricted && now.Before(player.RestrictedUntil) {
		return model.ErrRateLimited
	}
	if room.CurrentPlayerID != playerID {
		return model.ErrNotPlayerTurn
	}
	q := room.CurrentQuestion()
	if q == nil || room.AnswersSubmittedCount >= q.RevealTarget() {
		return model.ErrAllRevealed
	}
	return nil
}

// TurnOrder returns the deterministic turn order for a set of players
func TurnOrder(players map[model.PlayerID]*model.Player) []model.PlayerID {
	order := make([]model.PlayerID, 0, len(players))
	for id := range players {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order
}

// advanceTurn moves the cursor on after a submission or timeout. The question
// completes once every reachable slot is revealed; the game finishes after the
// last question. It reports whether the question completed.
func advanceTurn(room *model.Room, now time.Time) bool {
	room.TurnCounter++
	room.LastActivity = now

	q := room.CurrentQuestion()
	if q != nil && room.AnswersSubmittedCount >= q.RevealTarget() {
		if room.CurrentQuestionIndex+1 < len(room.Questions) {
			room.CurrentQuestionIndex++
			room.RevealedAnswers = model.NewBoard()
			room.AnswersSubmittedCount = 0
			room.CurrentTurnIndex = 0
			room.CurrentPlayerID = room.TurnOrder[0]
			room.TurnStartTime = now
		} else {
			room.Status = model.StatusFinished
			room.GamePhase = model.PhaseFinished
		}
		return true
	}

	room.CurrentTurnIndex = (room.CurrentTurnIndex + 1) % len(room.TurnOrder)
	room.CurrentPlayerID = room.TurnOrder[room.CurrentTurnIndex]
	room.TurnStartTime = now
	return false
}

// ElectHost picks the connected non-host player who joined earliest.
// Ties on join time fall back to player ID so every client elects the same host.
func ElectHost(room *model.Room) (model.PlayerID, bool) {
	var best *model.Player
	for _, p := range room.Players {
		if p == nil || !p.IsConnected || p.ID == room.HostID {
			continue
		}
		if best == nil || p.JoinedAt.Before(best.JoinedAt) ||
			(p.JoinedAt.Equal(best.JoinedAt) && p.ID < best.ID) {
			best = p
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

// SetHost moves the host flag to newHost
func SetHost(room *model.Room, newHost model.PlayerID) {
	if old := room.GetPlayer(room.HostID); old != nil {
		old.IsHost = false
	}
	room.HostID = newHost
	if p := room.GetPlayer(newHost); p != nil {
		p.IsHost = true
	}
}

// FinishGame ends the game without touching scores
func FinishGame(room *model.Room, now time.Time) {
	room.Status = model.StatusFinished
	room.GamePhase = model.PhaseFinished
	room.LastActivity = now
}

// RemovePlayer purges a player from the room and its turn order. The cursor
// keeps pointing at the same player where possible; if the current player is
// removed the turn passes to the next one. A game left with an empty turn order
// finishes. It reports whether the player was present.
func RemovePlayer(room *model.Room, playerID model.PlayerID, now time.Time) bool {
	if room.GetPlayer(playerID) == nil {
		return false
	}
	delete(room.Players, playerID)
	if room.Status == model.StatusLobby {
		delete(room.Scores, playerID)
	}
	room.LastActivity = now

	pos := -1
	for i, id := range room.TurnOrder {
		if id == playerID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return true
	}

	room.TurnOrder = append(room.TurnOrder[:pos:pos], room.TurnOrder[pos+1:]...)

	if room.Status != model.StatusPlaying {
		return true
	}
	if len(room.TurnOrder) == 0 {
		FinishGame(room, now)
		return true
	}

	switch {
	case pos < room.CurrentTurnIndex:
		room.CurrentTurnIndex--
		room.TurnCounter++
	case pos == room.CurrentTurnIndex:
		if room.CurrentTurnIndex >= len(room.TurnOrder) {
			room.CurrentTurnIndex = 0
		}
		room.TurnCounter++
		room.TurnStartTime = now
	}
	room.CurrentPlayerID = room.TurnOrder[room.CurrentTurnIndex]
	return true
}
