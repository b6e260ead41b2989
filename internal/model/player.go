package model

import "time"

// PlayerID uniquely identifies a player. It is issued by the identity provider.
type PlayerID string

// Player represents a room member
type Player struct {
	ID          PlayerID  `json:"id"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	IsHost      bool      `json:"isHost"`
	IsConnected bool      `json:"isConnected"`
	LastSeen    time.Time `json:"lastSeen"`
	JoinedAt    time.Time `json:"joinedAt"`

	// Set by abuse detection
	Restricted      bool      `json:"restricted,omitempty"`
	RestrictedUntil time.Time `json:"restrictedUntil,omitempty"`
}
