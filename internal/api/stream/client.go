package stream

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/topten/internal/model"
)

// ErrHubClosed is returned when a room's hub shut down while a client was attaching
var ErrHubClosed = errors.New("stream hub closed")

// Config holds websocket connection settings
type Config struct {
	// WriteTimeout is the time allowed to write a message to the peer
	WriteTimeout time.Duration
	// ReadTimeout is how long a silent peer stays connected. Pongs reset it.
	ReadTimeout time.Duration
	// PingInterval must be shorter than ReadTimeout
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBufferSize int
	// AllowedOrigins restricts browser origins. Empty allows any origin.
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for websocket connections
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBufferSize: 64,
	}
}

func (c Config) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(c.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range c.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// Client is one websocket connection watching a room
type Client struct {
	id          string
	hub         *Hub
	playerID    model.PlayerID
	conn        *websocket.Conn
	send        chan []byte
	config      Config
	connectedAt time.Time
	logger      *slog.Logger
}

// Attach upgrades the request to a websocket and registers it with hub. The
// caller must call Serve to pump messages. On error the response has already
// been written.
func (m *HubManager) Attach(w http.ResponseWriter, r *http.Request, hub *Hub, playerID model.PlayerID) (*Client, error) {
	upgrader := m.config.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.Release(hub.code)
		return nil, err
	}

	client := &Client{
		id:          uuid.NewString(),
		hub:         hub,
		playerID:    playerID,
		conn:        conn,
		send:        make(chan []byte, m.config.SendBufferSize),
		config:      m.config,
		connectedAt: time.Now(),
		logger: m.logger.With(
			slog.String("room_code", string(hub.code)),
			slog.String("player_id", string(playerID)),
		),
	}
	if !hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"))
		_ = conn.Close()
		return nil, ErrHubClosed
	}
	return client, nil
}

// ID returns the connection's unique ID
func (c *Client) ID() string {
	return c.id
}

// PlayerID returns the player who opened the connection
func (c *Client) PlayerID() model.PlayerID {
	return c.playerID
}

// Hub returns the hub the client is attached to
func (c *Client) Hub() *Hub {
	return c.hub
}

// Send queues a message for this client only. It reports false if the
// client is detached or its buffer is full.
func (c *Client) Send(message []byte) bool {
	return c.hub.sendTo(c, message)
}

// Serve pumps messages until the connection closes. It blocks, and on
// return the client is detached from its hub.
func (c *Client) Serve() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()
	c.readPump()
	c.hub.Unregister(c)
	<-done
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("stream ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// readPump only watches for the peer going away. Actions go through the HTTP API.
func (c *Client) readPump() {
	defer func() {
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}
