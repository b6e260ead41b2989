package storage

import (
	"context"
	"time"

	"github.com/mcoot/topten/internal/model"
)

// TransactFunc computes the next state of a room from a snapshot.
// Returning a nil room deletes the document. Returning an error aborts without writing.
// The function may be called again on retry and must not have side effects.
type TransactFunc func(room *model.Room) (*model.Room, error)

// SubscribeFunc receives committed room states. A nil room means the room was deleted.
type SubscribeFunc func(room *model.Room)

// Store defines the shared document store the engine runs on
type Store interface {
	// Create writes a new room, failing with model.ErrRoomExists if the code is taken
	Create(ctx context.Context, room *model.Room) error
	// Read returns a snapshot of a room
	Read(ctx context.Context, code model.RoomCode) (*model.Room, error)
	// Exists reports whether a room with the code exists
	Exists(ctx context.Context, code model.RoomCode) (bool, error)
	// ListRoomCodes returns the codes of all stored rooms
	ListRoomCodes(ctx context.Context) ([]model.RoomCode, error)

	// Transact runs one optimistic read-modify-write attempt. If the room changed
	// between the read and the write it returns model.ErrWriteConflict and nothing is
	// written. On success it returns the committed room (nil when deleted).
	Transact(ctx context.Context, code model.RoomCode, fn TransactFunc) (*model.Room, error)

	// Subscribe registers fn for committed states of a room until cancel is called
	Subscribe(ctx context.Context, code model.RoomCode, fn SubscribeFunc) (cancel func(), err error)

	// WriteTemp writes a disposable record and returns the store's authoritative write time
	WriteTemp(ctx context.Context, key string) (time.Time, error)
	// DeleteTemp removes a record written by WriteTemp
	DeleteTemp(ctx context.Context, key string) error
}
