package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Room events
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventHostChanged  EventType = "host_changed"
	EventGameStarted  EventType = "game_started"
	EventGameEnded    EventType = "game_ended"
	EventRoomDeleted  EventType = "room_deleted"
	EventRoomRepaired EventType = "room_repaired"

	// Turn events
	EventAnswerRevealed   EventType = "answer_revealed"
	EventTurnAdvanced     EventType = "turn_advanced"
	EventQuestionComplete EventType = "question_complete"

	// Presence and abuse events
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventPlayerRemoved      EventType = "player_removed"
	EventPlayerFlagged      EventType = "player_flagged"
)

// Event is the base structure for all events
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	RoomCode  RoomCode
	PlayerID  PlayerID // The player who triggered or is affected
	Payload   any      // Type-specific data
}

// HostChangedPayload contains data for host changed events
type HostChangedPayload struct {
	OldHostID PlayerID `json:"oldHostId"`
	NewHostID PlayerID `json:"newHostId"`
}

// AnswerRevealedPayload contains data for answer revealed events
type AnswerRevealedPayload struct {
	AnswerID string `json:"answerId"`
	Rank     int    `json:"rank"`
	Points   int    `json:"points"`
}

// TurnAdvancedPayload contains data for turn advanced events
type TurnAdvancedPayload struct {
	Cursor       TurnCursor `json:"cursor"`
	NextPlayerID PlayerID   `json:"nextPlayerId"`
	TimedOut     bool       `json:"timedOut"`
}

// GameEndedPayload contains data for game ended events
type GameEndedPayload struct {
	Status RoomStatus       `json:"status"`
	Scores map[PlayerID]int `json:"scores"`
	Reason string           `json:"reason,omitempty"`
}

// PlayerFlaggedPayload contains data for abuse flag events
type PlayerFlaggedPayload struct {
	HostID       PlayerID  `json:"hostId"`
	ActionCount  int       `json:"actionCount"`
	RestrictedTo time.Time `json:"restrictedUntil"`
}

// RoomRepairedPayload lists the fields a repair filled in
type RoomRepairedPayload struct {
	Fields []string `json:"fields"`
}
