package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/topten/internal/model"
)

// NATSConfig holds broker settings
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns the default broker configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "topten.rooms",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// conn is the part of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher publishes JSON event envelopes to NATS.
// Subjects are <prefix>.<room code>.<event type>.
type NATSPublisher struct {
	nc     conn
	prefix string
	logger *slog.Logger
}

// envelope is the wire format of a published event
type envelope struct {
	EventID   string          `json:"eventId"`
	EventType model.EventType `json:"eventType"`
	RoomCode  model.RoomCode  `json:"roomCode"`
	PlayerID  model.PlayerID  `json:"playerId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   any             `json:"payload,omitempty"`
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(cfg NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logger.With(slog.String("component", "nats-publisher"))

	opts := []nats.Option{
		nats.Name("topten"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return newNATSPublisher(nc, cfg.SubjectPrefix, logger), nil
}

func newNATSPublisher(nc conn, prefix string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger}
}

// Subject returns the subject an event is published on
func (p *NATSPublisher) Subject(event model.Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, event.RoomCode, event.Type)
}

func (p *NATSPublisher) Publish(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(envelope{
		EventID:   event.ID,
		EventType: event.Type,
		RoomCode:  event.RoomCode,
		PlayerID:  event.PlayerID,
		Timestamp: event.Timestamp.UTC(),
		Payload:   event.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.Subject(event)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug("published event",
		slog.String("subject", subject),
		slog.Int("size", len(data)),
	)
	return nil
}

// Close closes the connection
func (p *NATSPublisher) Close() {
	p.nc.Close()
}
