package response

import (
	"sort"
	"time"

	"github.com/mcoot/topten/internal/model"
)

// Player represents a room member in API responses
type Player struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
	IsHost      bool      `json:"is_host"`
	IsConnected bool      `json:"is_connected"`
	Restricted  bool      `json:"restricted,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		Score:       p.Score,
		IsHost:      p.IsHost,
		IsConnected: p.IsConnected,
		Restricted:  p.Restricted,
		JoinedAt:    p.JoinedAt,
	}
}

// Question is the current prompt. Unrevealed answers are never sent.
type Question struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	AnswerCount int    `json:"answer_count"`
}

// RevealSlot is one filled position on the board
type RevealSlot struct {
	Rank          int    `json:"rank"`
	AnswerID      string `json:"answer_id"`
	Text          string `json:"text"`
	OwnerPlayerID string `json:"owner_player_id"`
	Points        int    `json:"points"`
}

// TurnCursor identifies whose turn it is on which question
type TurnCursor struct {
	QuestionIndex int `json:"question_index"`
	TurnIndex     int `json:"turn_index"`
	TurnCounter   int `json:"turn_counter"`
}

// Room represents a room snapshot in API responses
type Room struct {
	Code       string `json:"code"`
	HostID     string `json:"host_id"`
	Status     string `json:"status"`
	GamePhase  string `json:"game_phase"`
	CategoryID string `json:"category_id,omitempty"`

	Players []Player `json:"players"`

	Question      *Question  `json:"question,omitempty"`
	QuestionCount int        `json:"question_count"`
	Cursor        TurnCursor `json:"cursor"`

	TurnOrder       []string   `json:"turn_order"`
	CurrentPlayerID string     `json:"current_player_id,omitempty"`
	TurnStartTime   time.Time  `json:"turn_start_time"`
	TurnTimeLimit   int        `json:"turn_time_limit"`
	TurnDeadline    *time.Time `json:"turn_deadline,omitempty"`

	// Board has one entry per rank; empty ranks are null
	Board            []*RevealSlot  `json:"board"`
	AnswersSubmitted int            `json:"answers_submitted"`
	Scores           map[string]int `json:"scores"`

	LastActivity time.Time `json:"last_activity"`
}

// RoomFromModel converts a model.Room to a response Room
func RoomFromModel(r *model.Room) Room {
	resp := Room{
		Code:             string(r.Code),
		HostID:           string(r.HostID),
		Status:           string(r.Status),
		GamePhase:        string(r.GamePhase),
		CategoryID:       r.CategoryID,
		Players:          make([]Player, 0, len(r.Players)),
		QuestionCount:    len(r.Questions),
		TurnOrder:        make([]string, 0, len(r.TurnOrder)),
		CurrentPlayerID:  string(r.CurrentPlayerID),
		TurnStartTime:    r.TurnStartTime,
		TurnTimeLimit:    r.TurnTimeLimit,
		Board:            make([]*RevealSlot, len(r.RevealedAnswers)),
		AnswersSubmitted: r.AnswersSubmittedCount,
		Scores:           make(map[string]int, len(r.Scores)),
		LastActivity:     r.LastActivity,
	}

	cursor := r.Cursor()
	resp.Cursor = TurnCursor{
		QuestionIndex: cursor.QuestionIndex,
		TurnIndex:     cursor.TurnIndex,
		TurnCounter:   cursor.TurnCounter,
	}

	for _, p := range r.Players {
		resp.Players = append(resp.Players, PlayerFromModel(p))
	}
	sort.Slice(resp.Players, func(i, j int) bool {
		a, b := resp.Players[i], resp.Players[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})

	for _, id := range r.TurnOrder {
		resp.TurnOrder = append(resp.TurnOrder, string(id))
	}
	for id, score := range r.Scores {
		resp.Scores[string(id)] = score
	}

	q := r.CurrentQuestion()
	if q != nil && r.Status == model.StatusPlaying {
		resp.Question = &Question{ID: q.ID, Text: q.Text, AnswerCount: q.RevealTarget()}
		deadline := r.TurnStartTime.Add(time.Duration(r.TurnTimeLimit) * time.Second)
		resp.TurnDeadline = &deadline
	}

	for i, slot := range r.RevealedAnswers {
		if slot == nil {
			continue
		}
		out := &RevealSlot{
			Rank:          i + 1,
			AnswerID:      slot.AnswerID,
			OwnerPlayerID: string(slot.OwnerPlayerID),
			Points:        slot.Points,
		}
		if q != nil {
			for _, a := range q.Answers {
				if a.ID == slot.AnswerID {
					out.Text = a.Text
					break
				}
			}
		}
		resp.Board[i] = out
	}

	return resp
}

// RoomState is a room snapshot with the caller's view of the current turn
type RoomState struct {
	Room            Room   `json:"room"`
	TimeRemainingMs int64  `json:"time_remaining_ms"`
	CanSubmit       bool   `json:"can_submit"`
	Reason          string `json:"reason,omitempty"`
}

// SubmitResult is the response to an answer submission
type SubmitResult struct {
	Matched          bool   `json:"matched"`
	AlreadyRevealed  bool   `json:"already_revealed"`
	AnswerID         string `json:"answer_id,omitempty"`
	Rank             int    `json:"rank,omitempty"`
	Points           int    `json:"points"`
	QuestionComplete bool   `json:"question_complete"`
	GameFinished     bool   `json:"game_finished"`
	Room             *Room  `json:"room,omitempty"`
}

// Eligibility answers whether the caller may submit right now
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// StreamMessage is pushed to websocket clients watching a room
type StreamMessage struct {
	Type string `json:"type"`
	Room *Room  `json:"room,omitempty"`
}

// Stream message types
const (
	StreamRoom    = "room"
	StreamDeleted = "room_deleted"
)

// Health is the health check response
type Health struct {
	Status     string   `json:"status"`
	Storage    string   `json:"storage"`
	Categories []string `json:"categories"`
}
