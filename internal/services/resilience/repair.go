package resilience

import (
	"slices"
	"time"

	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/room"
)

// Repair fills safe defaults into a room missing required fields and returns
// the fields it touched. It is pure so it can run inside a transaction.
func Repair(r *model.Room, now time.Time) []string {
	fields := r.MissingFields()
	if len(fields) == 0 {
		return nil
	}

	if r.Players == nil {
		r.Players = make(map[model.PlayerID]*model.Player)
	}
	repairPlayers(r)
	if r.Status == "" {
		r.Status = model.StatusLobby
	}
	if r.GamePhase == "" {
		switch r.Status {
		case model.StatusLobby:
			r.GamePhase = model.PhaseLobby
		case model.StatusPlaying:
			r.GamePhase = model.PhaseQuestion
		default:
			r.GamePhase = model.PhaseFinished
		}
	}
	if r.TurnTimeLimit <= 0 {
		r.TurnTimeLimit = model.DefaultTurnTimeLimit
	}
	if len(r.RevealedAnswers) != model.BoardSize {
		board := model.NewBoard()
		copy(board, r.RevealedAnswers)
		r.RevealedAnswers = board
	}
	if r.Scores == nil {
		r.Scores = make(map[model.PlayerID]int, len(r.Players))
		for id, p := range r.Players {
			r.Scores[id] = p.Score
		}
	}
	r.AnswersSubmittedCount = r.FilledSlots()

	if r.Status == model.StatusPlaying {
		repairTurn(r, now)
	}

	r.LastActivity = now
	return fields
}

func repairTurn(r *model.Room, now time.Time) {
	if len(r.TurnOrder) == 0 {
		r.TurnOrder = room.TurnOrder(r.Players)
	}
	if len(r.TurnOrder) == 0 || r.CurrentQuestion() == nil {
		room.FinishGame(r, now)
		return
	}
	if r.CurrentTurnIndex < 0 || r.CurrentTurnIndex >= len(r.TurnOrder) {
		r.CurrentTurnIndex = 0
		r.TurnStartTime = now
		r.TurnCounter++
	}
	r.CurrentPlayerID = r.TurnOrder[r.CurrentTurnIndex]
}

// repairPlayers drops null player entries, trusts the map key over a
// mismatched ID, and purges dropped players from the turn order and host.
func repairPlayers(r *model.Room) {
	for id, p := range r.Players {
		switch {
		case p == nil:
			delete(r.Players, id)
		case p.ID != id:
			p.ID = id
		}
	}

	order := make([]model.PlayerID, 0, len(r.TurnOrder))
	for _, id := range r.TurnOrder {
		if r.Players[id] != nil {
			order = append(order, id)
		}
	}
	if len(order) != len(r.TurnOrder) {
		r.TurnOrder = order
		// Out of range indexes are reset by repairTurn
		next := slices.Index(order, r.CurrentPlayerID)
		if next != r.CurrentTurnIndex {
			r.CurrentTurnIndex = next
			if next >= 0 {
				r.TurnCounter++
			}
		}
	}

	if r.HostID != "" && r.Players[r.HostID] == nil {
		r.HostID = ""
		if next, ok := room.ElectHost(r); ok {
			room.SetHost(r, next)
		}
	}
}
