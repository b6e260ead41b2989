package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/topten/internal/api"
	"github.com/mcoot/topten/internal/api/stream"
	"github.com/mcoot/topten/internal/events"
	"github.com/mcoot/topten/internal/factory"
	"github.com/mcoot/topten/internal/services/resilience"
	redisstorage "github.com/mcoot/topten/internal/storage/redis"
)

const releaseVersion = "0.3.0"

// Config holds the server's command line and environment settings
type Config struct {
	bind      string
	port      int
	logLevel  string
	logFormat string

	storage   string
	redisURL  string
	roomTTL   time.Duration
	questions string

	natsURL     string
	natsSubject string

	removalGrace  time.Duration
	cleanupDelay  time.Duration
	sweepInterval time.Duration
	rateThreshold int
	rateWindow    time.Duration

	allowedOrigins []string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.storage)
	}
	if c.rateThreshold < 1 {
		return errors.New("--rate-threshold must be at least 1")
	}
	return nil
}

func (c *Config) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch c.logFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (must be json or text)", c.logFormat)
	}
}

func (c *Config) factoryConfig(logger *slog.Logger) factory.Config {
	cfg := factory.Config{
		QuestionsPath: c.questions,
		Logger:        logger,
		StorageType:   c.storage,
	}

	if c.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.redisURL
		if c.roomTTL > 0 {
			redisCfg.RoomTTL = c.roomTTL
		}
		cfg.RedisConfig = &redisCfg
	}

	if c.natsURL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = c.natsURL
		if c.natsSubject != "" {
			natsCfg.SubjectPrefix = c.natsSubject
		}
		cfg.NATSConfig = &natsCfg
	}

	cfg.Resilience = resilience.DefaultConfig()
	cfg.Resilience.RemovalGrace = c.removalGrace
	cfg.Resilience.CleanupDelay = c.cleanupDelay
	cfg.Resilience.RateThreshold = c.rateThreshold
	cfg.Resilience.RateWindow = c.rateWindow

	cfg.Stream = stream.DefaultConfig()
	cfg.Stream.AllowedOrigins = c.allowedOrigins

	return cfg
}

func (c *Config) serverConfig() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.Host = c.bind
	cfg.Port = c.port
	return cfg
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TOPTEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "topten-server",
		Short:         "Serves multiplayer ranked-answer trivia rooms over HTTP and websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := resilience.DefaultConfig()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: TOPTEN_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: TOPTEN_PORT)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "debug, info, warn or error (env: TOPTEN_LOG_LEVEL)")
	fs.StringVar(&cfg.logFormat, "log-format", "json", "json or text (env: TOPTEN_LOG_FORMAT)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "room storage backend: memory or redis (env: TOPTEN_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection URL (env: TOPTEN_REDIS_URL)")
	fs.DurationVar(&cfg.roomTTL, "room-ttl", 0, "expire untouched rooms in redis after this long (env: TOPTEN_ROOM_TTL)")
	fs.StringVar(&cfg.questions, "questions", "data/questions.yaml", "question pack to load (env: TOPTEN_QUESTIONS)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "publish room events to this NATS server (env: TOPTEN_NATS_URL)")
	fs.StringVar(&cfg.natsSubject, "nats-subject", "", "subject prefix for room events (env: TOPTEN_NATS_SUBJECT)")
	fs.DurationVar(&cfg.removalGrace, "removal-grace", defaults.RemovalGrace, "time a disconnected player keeps their seat (env: TOPTEN_REMOVAL_GRACE)")
	fs.DurationVar(&cfg.cleanupDelay, "cleanup-delay", defaults.CleanupDelay, "time before an empty idle room is deleted (env: TOPTEN_CLEANUP_DELAY)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", time.Minute, "how often abandoned rooms are swept, 0 disables (env: TOPTEN_SWEEP_INTERVAL)")
	fs.IntVar(&cfg.rateThreshold, "rate-threshold", defaults.RateThreshold, "actions a player may take per rate window (env: TOPTEN_RATE_THRESHOLD)")
	fs.DurationVar(&cfg.rateWindow, "rate-window", defaults.RateWindow, "length of the rate window (env: TOPTEN_RATE_WINDOW)")
	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", nil, "browser origins allowed to open streams, empty allows all (env: TOPTEN_ALLOWED_ORIGINS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("topten-server v{{.Version}}\n")

	return cmd
}
