package model

import "time"

// RoomCode is a human-shareable identifier for joining rooms
type RoomCode string

// RoomStatus is the lifecycle state of a room
type RoomStatus string

const (
	StatusLobby    RoomStatus = "lobby"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
	StatusClosed   RoomStatus = "closed"
)

// GamePhase is the phase within the current game
type GamePhase string

const (
	PhaseLobby    GamePhase = "lobby"
	PhaseQuestion GamePhase = "question"
	PhaseAnswers  GamePhase = "answers"
	PhaseResults  GamePhase = "results"
	PhaseFinished GamePhase = "finished"
)

const (
	// BoardSize is the number of ranked reveal slots per question
	BoardSize = 10
	// DefaultTurnTimeLimit is the turn limit in seconds used when none is configured
	DefaultTurnTimeLimit = 60
)

// RevealSlot is one ranked position on the board. A nil slot is empty.
type RevealSlot struct {
	AnswerID      string   `json:"answerId"`
	OwnerPlayerID PlayerID `json:"ownerPlayerId"`
	Points        int      `json:"points"`
}

// TurnCursor identifies whose turn it is on which question
type TurnCursor struct {
	QuestionIndex int `json:"questionIndex"`
	TurnIndex     int `json:"turnIndex"`
	TurnCounter   int `json:"turnCounter"`
}

// After reports whether c is strictly later than other
func (c TurnCursor) After(other TurnCursor) bool {
	return c.TurnCounter > other.TurnCounter
}

// Room is the shared aggregate for one game instance
type Room struct {
	Code       RoomCode   `json:"code"`
	HostID     PlayerID   `json:"hostId"`
	Status     RoomStatus `json:"status"`
	CategoryID string     `json:"categoryId,omitempty"`

	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	GamePhase            GamePhase  `json:"gamePhase"`

	// Turn management. TurnOrder is fixed at StartGame and never recomputed.
	TurnOrder        []PlayerID `json:"turnOrder"`
	CurrentTurnIndex int        `json:"currentTurnIndex"`
	CurrentPlayerID  PlayerID   `json:"currentPlayerId"`
	TurnCounter      int        `json:"turnCounter"`
	TurnStartTime    time.Time  `json:"turnStartTime"`
	TurnTimeLimit    int        `json:"turnTimeLimit"` // seconds

	RevealedAnswers       []*RevealSlot        `json:"revealedAnswers"`
	AnswersSubmittedCount int                  `json:"answersSubmittedCount"`
	Scores                map[PlayerID]int     `json:"scores"`
	Players               map[PlayerID]*Player `json:"players"`

	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`

	// Version is the store revision the room was read at
	Version int64 `json:"version"`
}

// NewBoard returns an empty reveal board
func NewBoard() []*RevealSlot {
	return make([]*RevealSlot, BoardSize)
}

// Cursor returns the room's current turn cursor
func (r *Room) Cursor() TurnCursor {
	return TurnCursor{
		QuestionIndex: r.CurrentQuestionIndex,
		TurnIndex:     r.CurrentTurnIndex,
		TurnCounter:   r.TurnCounter,
	}
}

// CurrentQuestion returns the question being played, or nil
func (r *Room) CurrentQuestion() *Question {
	if r.CurrentQuestionIndex < 0 || r.CurrentQuestionIndex >= len(r.Questions) {
		return nil
	}
	return &r.Questions[r.CurrentQuestionIndex]
}

// FilledSlots returns the number of non-empty reveal slots
func (r *Room) FilledSlots() int {
	count := 0
	for _, slot := range r.RevealedAnswers {
		if slot != nil {
			count++
		}
	}
	return count
}

// IsHost returns true if the player is the room's host
func (r *Room) IsHost(playerID PlayerID) bool {
	return playerID != "" && r.HostID == playerID
}

// GetPlayer returns the player with the given ID, or nil if not found
func (r *Room) GetPlayer(playerID PlayerID) *Player {
	if r.Players == nil {
		return nil
	}
	return r.Players[playerID]
}

// ConnectedPlayers returns the number of connected players
func (r *Room) ConnectedPlayers() int {
	count := 0
	for _, p := range r.Players {
		if p != nil && p.IsConnected {
			count++
		}
	}
	return count
}

// IsOver returns true once the room reached a terminal status
func (r *Room) IsOver() bool {
	return r.Status == StatusFinished || r.Status == StatusClosed
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r

	if r.Questions != nil {
		c.Questions = make([]Question, len(r.Questions))
		for i, q := range r.Questions {
			c.Questions[i] = q.Clone()
		}
	}
	if r.TurnOrder != nil {
		c.TurnOrder = append([]PlayerID(nil), r.TurnOrder...)
	}
	if r.RevealedAnswers != nil {
		c.RevealedAnswers = make([]*RevealSlot, len(r.RevealedAnswers))
		for i, slot := range r.RevealedAnswers {
			if slot != nil {
				s := *slot
				c.RevealedAnswers[i] = &s
			}
		}
	}
	if r.Scores != nil {
		c.Scores = make(map[PlayerID]int, len(r.Scores))
		for k, v := range r.Scores {
			c.Scores[k] = v
		}
	}
	if r.Players != nil {
		c.Players = make(map[PlayerID]*Player, len(r.Players))
		for k, v := range r.Players {
			if v == nil {
				c.Players[k] = nil
				continue
			}
			p := *v
			c.Players[k] = &p
		}
	}
	return &c
}

// MissingFields lists required fields that are absent or malformed
func (r *Room) MissingFields() []string {
	var missing []string
	if r.Players == nil {
		missing = append(missing, "players")
	}
	for id, p := range r.Players {
		if p == nil || p.ID != id {
			missing = append(missing, "players")
			break
		}
	}
	if r.Status == "" {
		missing = append(missing, "status")
	}
	if r.GamePhase == "" {
		missing = append(missing, "gamePhase")
	}
	if r.TurnTimeLimit <= 0 {
		missing = append(missing, "turnTimeLimit")
	}
	if len(r.RevealedAnswers) != BoardSize {
		missing = append(missing, "revealedAnswers")
	}
	if r.Scores == nil {
		missing = append(missing, "scores")
	}
	if r.AnswersSubmittedCount != r.FilledSlots() {
		missing = append(missing, "answersSubmittedCount")
	}
	if r.Status == StatusPlaying {
		if len(r.TurnOrder) == 0 || r.CurrentTurnIndex < 0 || r.CurrentTurnIndex >= len(r.TurnOrder) {
			missing = append(missing, "turnOrder")
		} else if r.CurrentPlayerID != r.TurnOrder[r.CurrentTurnIndex] {
			missing = append(missing, "currentPlayerId")
		}
	}
	return missing
}

// IsCorrupt returns true if the room needs repair before use
func (r *Room) IsCorrupt() bool {
	return len(r.MissingFields()) > 0
}
