package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/storage"
)

// deletedMarker is published when a room is deleted
const deletedMarker = "deleted"

// Storage is a Redis-backed implementation of the store. Transactions use
// WATCH/MULTI so a concurrent write to the room aborts the commit.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, classify(err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Create(ctx context.Context, room *model.Room) error {
	stored := room.Clone()
	stored.Version = 1
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, roomKey(room.Code), data, s.cfg.RoomTTL).Result()
	if err != nil {
		return classify(err)
	}
	if !ok {
		return model.ErrRoomExists
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, roomsIndexKey(), string(room.Code))
	pipe.Publish(ctx, roomChannel(room.Code), data)
	_, err = pipe.Exec(ctx)
	return classify(err)
}

func (s *Storage) Read(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, classify(err)
	}
	return decodeRoom(data)
}

func (s *Storage) Exists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, classify(err)
	}
	return exists > 0, nil
}

func (s *Storage) ListRoomCodes(ctx context.Context) ([]model.RoomCode, error) {
	members, err := s.client.SMembers(ctx, roomsIndexKey()).Result()
	if err != nil {
		return nil, classify(err)
	}

	codes := make([]model.RoomCode, 0, len(members))
	for _, m := range members {
		codes = append(codes, model.RoomCode(m))
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes, nil
}

func (s *Storage) Transact(ctx context.Context, code model.RoomCode, fn storage.TransactFunc) (*model.Room, error) {
	key := roomKey(code)
	var committed *model.Room

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrRoomNotFound
			}
			return classify(err)
		}

		snapshot, err := decodeRoom(data)
		if err != nil {
			return err
		}
		readVersion := snapshot.Version

		next, err := fn(snapshot)
		if err != nil {
			return err
		}

		if next == nil {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, roomsIndexKey(), string(code))
				pipe.Publish(ctx, roomChannel(code), deletedMarker)
				return nil
			})
			return err
		}

		next.Code = code
		next.Version = readVersion + 1
		out, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.cfg.RoomTTL)
			pipe.Publish(ctx, roomChannel(code), out)
			return nil
		})
		if err == nil {
			committed = next
		}
		return err
	}, key)

	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, model.ErrWriteConflict
		}
		return nil, classify(err)
	}
	return committed, nil
}

func (s *Storage) Subscribe(ctx context.Context, code model.RoomCode, fn storage.SubscribeFunc) (func(), error) {
	pubsub := s.client.Subscribe(ctx, roomChannel(code))

	// Wait for the subscription to be confirmed before returning
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, classify(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			if msg.Payload == deletedMarker {
				fn(nil)
				continue
			}
			room, err := decodeRoom([]byte(msg.Payload))
			if err != nil {
				continue // Skip invalid data
			}
			fn(room)
		}
	}()

	return func() {
		_ = pubsub.Close()
		<-done
	}, nil
}

func (s *Storage) WriteTemp(ctx context.Context, key string) (time.Time, error) {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, tempKey(key), "1", s.cfg.TempTTL)
	timeCmd := pipe.Time(ctx)
	if _, err := pipe.Exec(ctx); err != nil {
		return time.Time{}, classify(err)
	}
	return timeCmd.Val(), nil
}

func (s *Storage) DeleteTemp(ctx context.Context, key string) error {
	return classify(s.client.Del(ctx, tempKey(key)).Err())
}

func decodeRoom(data []byte) (*model.Room, error) {
	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCorrupt, err)
	}
	return &room, nil
}

// classify maps transport failures to model.ErrUnavailable so callers can retry them
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}
	return err
}
