package request

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	CategoryID  string `json:"category_id"`
	DisplayName string `json:"display_name"`
}

// JoinRoomRequest is the request body for joining a room
type JoinRoomRequest struct {
	DisplayName string `json:"display_name"`
}

// StartGameRequest is the request body for starting a game.
// A zero turn limit uses the default.
type StartGameRequest struct {
	TurnTimeLimit int `json:"turn_time_limit,omitempty"`
}

// SubmitAnswerRequest is the request body for submitting a guess
type SubmitAnswerRequest struct {
	Text string `json:"text"`
}
