package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/topten/internal/dependencies/clock"
	"github.com/mcoot/topten/internal/model"
)

// Publisher delivers room events to interested parties outside the store
type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// New builds an event with a fresh ID stamped with the clock's time
func New(clk clock.Clock, eventType model.EventType, code model.RoomCode, playerID model.PlayerID, payload any) model.Event {
	return model.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: clk.Now(),
		RoomCode:  code,
		PlayerID:  playerID,
		Payload:   payload,
	}
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With(slog.String("component", "events"))}
}

func (p *LogPublisher) Publish(ctx context.Context, event model.Event) error {
	p.logger.Info("publishing event",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("room_code", string(event.RoomCode)),
		slog.String("player_id", string(event.PlayerID)),
	)
	return nil
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, event model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// OfType returns the recorded events of one type
func (r *Recorder) OfType(eventType model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.Event
	for _, e := range r.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*Recorder)(nil)
	_ Publisher = (*NATSPublisher)(nil)
)
