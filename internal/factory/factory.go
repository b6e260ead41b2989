package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/topten/internal/api/stream"
	"github.com/mcoot/topten/internal/dependencies/clock"
	"github.com/mcoot/topten/internal/dependencies/random"
	"github.com/mcoot/topten/internal/events"
	"github.com/mcoot/topten/internal/services/clocksync"
	"github.com/mcoot/topten/internal/services/questions"
	"github.com/mcoot/topten/internal/services/resilience"
	"github.com/mcoot/topten/internal/services/room"
	"github.com/mcoot/topten/internal/storage"
	"github.com/mcoot/topten/internal/storage/memory"
	redisstorage "github.com/mcoot/topten/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage     storage.Store
	StorageType string

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Publisher events.Publisher

	// Services
	Questions  *questions.Service
	ClockSync  *clocksync.Synchronizer
	Rooms      *room.Controller
	Scheduler  *resilience.Scheduler
	Supervisor *resilience.Supervisor
	Hubs       *stream.HubManager

	closers []func()
}

// Config holds configuration for the application factory
type Config struct {
	// QuestionsPath is the path to a YAML question pack (optional)
	// If empty, questions must be loaded manually
	QuestionsPath string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// NATSConfig enables publishing room events to NATS (optional)
	// If nil, events are only logged
	NATSConfig *events.NATSConfig
	// Resilience tunes retries, grace periods and cleanup (optional)
	// If zero value, defaults to resilience.DefaultConfig()
	Resilience resilience.Config
	// ClockSync tunes clock offset sampling (optional)
	// If zero value, defaults to clocksync.DefaultConfig()
	ClockSync clocksync.Config
	// Stream holds websocket settings (optional)
	// If zero value, defaults to stream.DefaultConfig()
	Stream stream.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	var closers []func()

	// Create storage based on type
	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(memory.WithClock(clk))
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, func() { _ = redisStore.Close() })
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	qs := questions.New()
	if cfg.QuestionsPath != "" {
		if err := qs.LoadFromFile(cfg.QuestionsPath); err != nil {
			runAll(closers)
			return nil, fmt.Errorf("load questions: %w", err)
		}
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.NATSConfig != nil {
		natsPublisher, err := events.NewNATSPublisher(*cfg.NATSConfig, logger)
		if err != nil {
			runAll(closers)
			return nil, err
		}
		publisher = natsPublisher
		closers = append(closers, natsPublisher.Close)
	}

	resilienceCfg := cfg.Resilience
	if resilienceCfg == (resilience.Config{}) {
		resilienceCfg = resilience.DefaultConfig()
	}
	clockSyncCfg := cfg.ClockSync
	if clockSyncCfg == (clocksync.Config{}) {
		clockSyncCfg = clocksync.DefaultConfig()
	}
	streamCfg := cfg.Stream
	if streamCfg.PingInterval == 0 {
		streamCfg = stream.DefaultConfig()
	}

	app := newWithDependencies(store, clk, random.New(), qs, publisher, resilienceCfg, clockSyncCfg, streamCfg, logger)
	app.StorageType = storageType
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Store,
	clk clock.Clock,
	rnd random.Random,
	qs *questions.Service,
	publisher events.Publisher,
	resilienceCfg resilience.Config,
	clockSyncCfg clocksync.Config,
	streamCfg stream.Config,
	logger *slog.Logger,
) *App {
	synchronizer := clocksync.New(store, clk, clockSyncCfg, logger)
	rooms := room.NewController(store, qs, synchronizer, clk, rnd, publisher, logger)
	scheduler := resilience.NewScheduler(clk, logger)
	supervisor := resilience.New(rooms, store, synchronizer, clk, scheduler, publisher, resilienceCfg, logger)
	hubs := stream.NewHubManager(store, streamCfg, logger)

	return &App{
		Storage:     store,
		StorageType: StorageTypeMemory,
		Clock:       clk,
		Random:      rnd,
		Publisher:   publisher,
		Questions:   qs,
		ClockSync:   synchronizer,
		Rooms:       rooms,
		Scheduler:   scheduler,
		Supervisor:  supervisor,
		Hubs:        hubs,
	}
}

// Close stops background work and releases connections
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Hubs.Close()
	runAll(a.closers)
}

func runAll(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
