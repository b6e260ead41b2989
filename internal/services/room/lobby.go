package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/topten/internal/model"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 10
)

// CreateRoom creates a room in the lobby with host as its only player.
// The category's questions are fixed on the room at creation.
func (c *Controller) CreateRoom(ctx context.Context, host model.Player, categoryID string) (*model.Room, error) {
	if host.ID == "" {
		return nil, model.ErrNotInRoom
	}

	qs, err := c.questions.QuestionsForCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, model.ErrNoQuestions
	}

	now := c.time.AuthoritativeNow(ctx)

	host.IsHost = true
	host.IsConnected = true
	host.Score = 0
	host.JoinedAt = now
	host.LastSeen = now

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := model.RoomCode(c.random.String(CodeLength, CodeAlphabet))
		exists, err := c.store.Exists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		h := host
		room := &model.Room{
			Code:            code,
			HostID:          host.ID,
			Status:          model.StatusLobby,
			CategoryID:      categoryID,
			Questions:       qs,
			GamePhase:       model.PhaseLobby,
			TurnTimeLimit:   model.DefaultTurnTimeLimit,
			RevealedAnswers: model.NewBoard(),
			Scores:          map[model.PlayerID]int{host.ID: 0},
			Players:         map[model.PlayerID]*model.Player{host.ID: &h},
			LastActivity:    now,
			CreatedAt:       now,
		}

		// Another client may take the code between the check and the create
		if err := c.store.Create(ctx, room); err != nil {
			if errors.Is(err, model.ErrRoomExists) {
				continue
			}
			c.logger.Error("failed to create room",
				slog.String("room_code", string(code)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		c.logger.Info("room created",
			slog.String("room_code", string(code)),
			slog.String("host_id", string(host.ID)),
			slog.String("category_id", categoryID),
			slog.Int("question_count", len(qs)),
		)
		return room, nil
	}

	return nil, fmt.Errorf("allocate room code: %w", model.ErrRoomExists)
}

// JoinRoom adds a player to a room. Players joining mid-game are not added to
// the turn order, which is fixed at the start of the game.
func (c *Controller) JoinRoom(ctx context.Context, code model.RoomCode, player model.Player) (*model.Room, error) {
	if player.ID == "" {
		return nil, model.ErrNotInRoom
	}

	now := c.time.AuthoritativeNow(ctx)

	room, err := c.store.Transact(ctx, code, func(room *model.Room) (*model.Room, error) {
		if room.IsOver() {
			return nil, model.ErrNotInLobby
		}
		if room.GetPlayer(player.ID) != nil {
			return nil, model.ErrAlreadyInRoom
		}

		p := player
		p.IsHost = false
		p.IsConnected = true
		p.Score = 0
		p.JoinedAt = now
		p.LastSeen = now
		p.Restricted = false

		if room.Players == nil {
			room.Players = make(map[model.PlayerID]*model.Player)
		}
		if room.Scores == nil {
			room.Scores = make(map[model.PlayerID]int)
		}
		room.Players[p.ID] = &p
		if _, ok := room.Scores[p.ID]; !ok {
			room.Scores[p.ID] = 0
		}
		room.LastActivity = now
		return room, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined room",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(player.ID)),
		slog.Int("player_count", len(room.Players)),
	)
	c.publish(ctx, model.EventPlayerJoined, code, player.ID, nil)

	return room, nil
}

// LeaveRoom removes a player from a room. The room is deleted when its last
// player leaves. A departing host hands over to the longest-connected player,
// and a game left with nobody to host finishes.
func (c *Controller) LeaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (*model.Room, error) {
	now := c.time.AuthoritativeNow(ctx)

	var newHost model.PlayerID
	var finished bool

	room, err := c.store.Transact(ctx, code, func(room *model.Room) (*model.Room, error) {
		newHost, finished = "", false
		wasHost := room.IsHost(playerID)
		wasPlaying := room.Status == model.StatusPlaying

		if !RemovePlayer(room, playerID, now) {
			return nil, model.ErrNotInRoom
		}
		if len(room.Players) == 0 {
			return nil, nil
		}

		if wasHost {
			if id, ok := ElectHost(room); ok {
				SetHost(room, id)
				newHost = id
			} else {
				room.HostID = ""
				if room.Status == model.StatusPlaying {
					FinishGame(room, now)
				}
			}
		}
		finished = wasPlaying && room.Status == model.StatusFinished
		return room, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player left room",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
		slog.Bool("room_deleted", room == nil),
	)
	c.publish(ctx, model.EventPlayerLeft, code, playerID, nil)

	if room == nil {
		c.publish(ctx, model.EventRoomDeleted, code, playerID, nil)
		return nil, nil
	}
	if newHost != "" {
		c.publish(ctx, model.EventHostChanged, code, newHost, model.HostChangedPayload{
			OldHostID: playerID,
			NewHostID: newHost,
		})
	}
	if finished {
		c.publish(ctx, model.EventGameEnded, code, playerID, model.GameEndedPayload{
			Status: room.Status,
			Scores: room.Scores,
			Reason: "no players left",
		})
	}
	return room, nil
}
