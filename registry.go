package main

import (
	"log"
	"sync"
	"time"
)

const (
	TickRate     = 60 // simulation ticks per second
	TickDuration = time.Second / TickRate
)

// TickDelta is the nominal tick period in seconds, used for all clock math.
const TickDelta = 1.0 / float64(TickRate)

// Registry owns the set of live rooms and drives them all from one global
// fixed-rate ticker. It is constructed at process start and injected into
// the transport adapter; there are no package-level room tables.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	onEnd func(MatchResult)
}

// NewRegistry creates an empty registry. onEnd, if non-nil, is invoked with
// the match result whenever any room's game ends; it must not block.
func NewRegistry(onEnd func(MatchResult)) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		onEnd: onEnd,
	}
}

// GetOrCreate returns the room for an id, creating an idle one if needed.
func (reg *Registry) GetOrCreate(roomID string, settings RoomSettings) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[roomID]; ok {
		return r
	}
	r := NewRoom(roomID, settings, reg.onEnd)
	reg.rooms[roomID] = r
	return r
}

// Get returns a room by id, or nil.
func (reg *Registry) Get(roomID string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[roomID]
}

// StartGame creates the room if absent and (re)starts its countdown.
func (reg *Registry) StartGame(roomID string, settings RoomSettings) *Room {
	r := reg.GetOrCreate(roomID, settings)
	r.StartGame(settings)
	return r
}

// Remove drops a room from the registry.
func (reg *Registry) Remove(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomID)
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Run drives all rooms at the fixed tick rate until stop is closed. Rooms
// may be added or removed between ticks; each tick iterates a snapshot of
// the current set.
func (reg *Registry) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reg.TickAll(time.Now())
		case <-stop:
			return
		}
	}
}

// TickAll advances every room by one nominal tick.
func (reg *Registry) TickAll(now time.Time) {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	for _, r := range rooms {
		reg.tickRoom(r, now)
	}
}

// tickRoom isolates one room's tick so a fault there cannot stop the other
// rooms from advancing.
func (reg *Registry) tickRoom(r *Room, now time.Time) {
	defer func() {
		if err := recover(); err != nil {
			log.Printf("room %s: tick panic: %v", r.ID(), err)
		}
	}()
	r.Advance(TickDelta, now)
}
