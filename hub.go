package main

import (
	"sync"
	"time"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// RoomDirectory supplies match settings at start-game time. The lobby
// service owns room CRUD; the core only consumes its settings.
type RoomDirectory interface {
	Settings(roomID string) RoomSettings
}

// StaticDirectory returns the same settings for every room.
type StaticDirectory struct {
	Defaults RoomSettings
}

// Settings implements RoomDirectory.
func (d StaticDirectory) Settings(string) RoomSettings { return d.Defaults }

// Hub manages all connected clients and routes their actions to rooms.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	registry  *Registry
	directory RoomDirectory
	identity  Identity

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	// connection id -> room id, maintained alongside room membership so
	// action routing never scans rooms.
	indexMu   sync.RWMutex
	roomIndex map[string]string
}

// NewHub creates a hub around an injected registry, lobby directory and
// identity provider.
func NewHub(registry *Registry, directory RoomDirectory, identity Identity) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		registry:   registry,
		directory:  directory,
		identity:   identity,
		ipConns:    make(map[string]int),
		roomIndex:  make(map[string]string),
	}
}

// CanAccept enforces per-IP and total connection limits.
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

// TrackConnect counts an accepted connection.
func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

// TrackDisconnect releases a counted connection.
func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events. Disconnects are handled exactly
// like an explicit room leave.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.LeaveRoom(client)
		}
	}
}

// RoomOf returns the room a connection is bound to, or "".
func (h *Hub) RoomOf(connID string) string {
	h.indexMu.RLock()
	defer h.indexMu.RUnlock()
	return h.roomIndex[connID]
}

// JoinRoom binds a client to a room, creating an idle room if needed. A
// client bound elsewhere is moved.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	if current := h.RoomOf(c.connID); current != "" {
		if current == roomID {
			return
		}
		h.LeaveRoom(c)
	}
	room := h.registry.GetOrCreate(roomID, h.directory.Settings(roomID))
	room.Join(c.connID, c.username, c)
	h.indexMu.Lock()
	h.roomIndex[c.connID] = roomID
	h.indexMu.Unlock()
}

// LeaveRoom unbinds a client from its room and tears the room down when it
// becomes empty. No-op for unbound clients.
func (h *Hub) LeaveRoom(c *Client) {
	h.indexMu.Lock()
	roomID, ok := h.roomIndex[c.connID]
	if ok {
		delete(h.roomIndex, c.connID)
	}
	h.indexMu.Unlock()
	if !ok {
		return
	}
	room := h.registry.Get(roomID)
	if room == nil {
		return
	}
	if room.Leave(c.connID) {
		h.registry.Remove(roomID)
	}
}

// StartGame starts the match for the client's claimed room. Ignored when
// the client is not a member of that room.
func (h *Hub) StartGame(c *Client, roomID string) {
	if h.RoomOf(c.connID) != roomID {
		return
	}
	h.registry.StartGame(roomID, h.directory.Settings(roomID))
}

// HandleMove routes a movement input to the client's room.
func (h *Hub) HandleMove(c *Client, input Position) {
	if room := h.roomFor(c); room != nil {
		room.Move(c.connID, input)
	}
}

// HandleRotate routes a rotation to the client's room.
func (h *Hub) HandleRotate(c *Client, rotation float64) {
	if room := h.roomFor(c); room != nil {
		room.Rotate(c.connID, rotation)
	}
}

// HandleShoot routes a shot to the client's room.
func (h *Hub) HandleShoot(c *Client, pos Position, direction float64) {
	if room := h.roomFor(c); room != nil {
		room.Shoot(c.connID, pos, direction, time.Now())
	}
}

func (h *Hub) roomFor(c *Client) *Room {
	roomID := h.RoomOf(c.connID)
	if roomID == "" {
		return nil
	}
	return h.registry.Get(roomID)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
