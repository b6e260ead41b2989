package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/topten/internal/dependencies/clock"
	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/storage"
)

type entry struct {
	room    *model.Room
	version int64
}

// Storage is an in-memory implementation of the store. Transactions are
// optimistic: the body runs without the lock and the write is rejected if the
// room's version moved in the meantime.
type Storage struct {
	mu sync.RWMutex

	rooms map[model.RoomCode]*entry
	temps map[string]time.Time

	subsMu sync.RWMutex
	subs   map[model.RoomCode]map[int]storage.SubscribeFunc
	nextID int

	clock clock.Clock

	// beforeCommit runs between the body and the version check (tests use it to force races)
	beforeCommit func(code model.RoomCode)
}

// Option configures the memory store
type Option func(*Storage)

// WithClock sets the clock used as the store's authoritative time
func WithClock(c clock.Clock) Option {
	return func(s *Storage) {
		s.clock = c
	}
}

// New creates a new in-memory storage instance
func New(opts ...Option) *Storage {
	s := &Storage{
		rooms: make(map[model.RoomCode]*entry),
		temps: make(map[string]time.Time),
		subs:  make(map[model.RoomCode]map[int]storage.SubscribeFunc),
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Create(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	if _, ok := s.rooms[room.Code]; ok {
		s.mu.Unlock()
		return model.ErrRoomExists
	}
	stored := room.Clone()
	stored.Version = 1
	s.rooms[room.Code] = &entry{room: stored, version: 1}
	s.mu.Unlock()

	s.notify(room.Code, stored)
	return nil
}

func (s *Storage) Read(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return e.room.Clone(), nil
}

func (s *Storage) Exists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok, nil
}

func (s *Storage) ListRoomCodes(ctx context.Context) ([]model.RoomCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]model.RoomCode, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes, nil
}

func (s *Storage) Transact(ctx context.Context, code model.RoomCode, fn storage.TransactFunc) (*model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	e, ok := s.rooms[code]
	var snapshot *model.Room
	var readVersion int64
	if ok {
		snapshot = e.room.Clone()
		readVersion = e.version
	}
	hook := s.beforeCommit
	s.mu.RUnlock()

	if !ok {
		return nil, model.ErrRoomNotFound
	}

	next, err := fn(snapshot)
	if err != nil {
		return nil, err
	}

	if hook != nil {
		hook(code)
	}

	s.mu.Lock()
	current, ok := s.rooms[code]
	if !ok || current.version != readVersion {
		s.mu.Unlock()
		return nil, model.ErrWriteConflict
	}

	if next == nil {
		delete(s.rooms, code)
		s.mu.Unlock()
		s.notify(code, nil)
		return nil, nil
	}

	stored := next.Clone()
	stored.Code = code
	stored.Version = readVersion + 1
	s.rooms[code] = &entry{room: stored, version: stored.Version}
	s.mu.Unlock()

	s.notify(code, stored)
	return stored.Clone(), nil
}

func (s *Storage) Subscribe(ctx context.Context, code model.RoomCode, fn storage.SubscribeFunc) (func(), error) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	if s.subs[code] == nil {
		s.subs[code] = make(map[int]storage.SubscribeFunc)
	}
	s.subs[code][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(s.subs[code], id)
			if len(s.subs[code]) == 0 {
				delete(s.subs, code)
			}
		})
	}, nil
}

func (s *Storage) WriteTemp(ctx context.Context, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.temps[key] = now
	return now, nil
}

func (s *Storage) DeleteTemp(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.temps, key)
	return nil
}

// SetBeforeCommit installs a hook that runs after a transaction body and before its write
func (s *Storage) SetBeforeCommit(hook func(code model.RoomCode)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeCommit = hook
}

// Put overwrites a room without any checks. Used to seed corrupt documents in tests.
func (s *Storage) Put(room *model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := int64(1)
	if e, ok := s.rooms[room.Code]; ok {
		version = e.version + 1
	}
	stored := room.Clone()
	stored.Version = version
	s.rooms[room.Code] = &entry{room: stored, version: version}
}

// TempCount returns the number of live temp records
func (s *Storage) TempCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.temps)
}

func (s *Storage) notify(code model.RoomCode, room *model.Room) {
	s.subsMu.RLock()
	fns := make([]storage.SubscribeFunc, 0, len(s.subs[code]))
	for _, fn := range s.subs[code] {
		fns = append(fns, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range fns {
		if room == nil {
			fn(nil)
			continue
		}
		fn(room.Clone())
	}
}
