package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/topten/internal/api/response"
	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/storage"
)

// Hub fans committed states of one room out to its websocket clients
type Hub struct {
	code    model.RoomCode
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a new Hub for a room
func NewHub(code model.RoomCode, logger *slog.Logger) *Hub {
	return &Hub{
		code:      code,
		clients:   make(map[*Client]bool),
		logger:    logger.With(slog.String("room_code", string(code))),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// Run delivers broadcasts until the hub is closed
func (h *Hub) Run() {
	h.logger.Debug("stream hub started")
	for {
		select {
		case message := <-h.broadcast:
			h.deliver(message)

		case <-h.done:
			// Flush what was queued before the close, such as a deletion notice
			for drained := false; !drained; {
				select {
				case message := <-h.broadcast:
					h.deliver(message)
				default:
					drained = true
				}
			}
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("stream hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is dropped; it resyncs from a fresh snapshot on reconnect
	for _, client := range slow {
		h.logger.Warn("stream client too slow, dropping",
			slog.String("player_id", string(client.playerID)))
		h.Unregister(client)
	}
}

// Register adds a client to the hub. It reports false if the hub is closed.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.clients[client] = true
	h.logger.Info("stream client registered",
		slog.String("player_id", string(client.playerID)),
		slog.Int("total_clients", len(h.clients)))
	return true
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Info("stream client unregistered",
		slog.String("player_id", string(client.playerID)),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", len(h.clients)))
}

func (h *Hub) sendTo(client *Client, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Broadcast queues a message for every client
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("stream broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub and disconnects its clients
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Code returns the room the hub serves
func (h *Hub) Code() model.RoomCode {
	return h.code
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PlayerConnections returns how many clients a player has open on this room
func (h *Hub) PlayerConnections(playerID model.PlayerID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.playerID == playerID {
			n++
		}
	}
	return n
}

// Snapshot encodes a room as a stream message. A nil room encodes a deletion.
func Snapshot(room *model.Room) ([]byte, error) {
	msg := response.StreamMessage{Type: response.StreamDeleted}
	if room != nil {
		r := response.RoomFromModel(room)
		msg = response.StreamMessage{Type: response.StreamRoom, Room: &r}
	}
	return json.Marshal(msg)
}

type managedHub struct {
	hub         *Hub
	unsubscribe func()
}

// HubManager keeps one hub per watched room, each fed by a store subscription
type HubManager struct {
	store  storage.Store
	config Config
	hubs   map[model.RoomCode]*managedHub
	mu     sync.Mutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(store storage.Store, config Config, logger *slog.Logger) *HubManager {
	return &HubManager{
		store:  store,
		config: config,
		hubs:   make(map[model.RoomCode]*managedHub),
		logger: logger.With(slog.String("component", "stream")),
	}
}

// GetOrCreateHub returns the hub for a room, subscribing to the room on first use
func (m *HubManager) GetOrCreateHub(ctx context.Context, code model.RoomCode) (*Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, ok := m.hubs[code]; ok {
		return managed.hub, nil
	}

	hub := NewHub(code, m.logger)
	unsubscribe, err := m.store.Subscribe(ctx, code, func(room *model.Room) {
		m.forward(hub, code, room)
	})
	if err != nil {
		return nil, err
	}

	m.hubs[code] = &managedHub{hub: hub, unsubscribe: unsubscribe}
	go hub.Run()
	return hub, nil
}

// forward runs on the store's subscription callback
func (m *HubManager) forward(hub *Hub, code model.RoomCode, room *model.Room) {
	data, err := Snapshot(room)
	if err != nil {
		m.logger.Error("failed to encode room snapshot",
			slog.String("room_code", string(code)),
			slog.String("error", err.Error()))
		return
	}
	hub.Broadcast(data)
	if room == nil {
		// Unsubscribing from inside the callback could deadlock the store
		go m.RemoveHub(code)
	}
}

// GetHub returns the hub for a room, or nil if nobody is watching it
func (m *HubManager) GetHub(code model.RoomCode) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	if managed, ok := m.hubs[code]; ok {
		return managed.hub
	}
	return nil
}

// RemoveHub unsubscribes from a room and closes its hub
func (m *HubManager) RemoveHub(code model.RoomCode) {
	m.mu.Lock()
	managed, ok := m.hubs[code]
	delete(m.hubs, code)
	m.mu.Unlock()

	if !ok {
		return
	}
	managed.unsubscribe()
	managed.hub.Close()
	m.logger.Info("stream hub removed", slog.String("room_code", string(code)))
}

// Release drops a room's hub once its last client has gone
func (m *HubManager) Release(code model.RoomCode) {
	m.mu.Lock()
	managed, ok := m.hubs[code]
	if !ok || managed.hub.ClientCount() > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.hubs, code)
	m.mu.Unlock()

	managed.unsubscribe()
	managed.hub.Close()
}

// HubCount returns the number of rooms being watched
func (m *HubManager) HubCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hubs)
}

// Close removes every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	codes := make([]model.RoomCode, 0, len(m.hubs))
	for code := range m.hubs {
		codes = append(codes, code)
	}
	m.mu.Unlock()

	for _, code := range codes {
		m.RemoveHub(code)
	}
}
