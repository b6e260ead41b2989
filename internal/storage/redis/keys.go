package redis

import (
	"fmt"

	"github.com/mcoot/topten/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "topten"

// roomKey returns the Redis key for a Room document
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// roomsIndexKey returns the Redis key for the SET of live room codes
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// roomChannel returns the pub/sub channel committed room states are published on
func roomChannel(code model.RoomCode) string {
	return fmt.Sprintf("%s:updates:%s", keyPrefix, code)
}

// tempKey returns the Redis key for a disposable clock sample
func tempKey(key string) string {
	return fmt.Sprintf("%s:temp:%s", keyPrefix, key)
}
