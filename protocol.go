package main

import (
	"encoding/json"
	"math"
)

// Client -> Server message types
const (
	MsgRoomJoin     = "room:join"
	MsgRoomLeave    = "room:leave"
	MsgGameStart    = "game:start"
	MsgPlayerMove   = "player:move"
	MsgPlayerRotate = "player:rotate"
	MsgPlayerShoot  = "player:shoot"
)

// Server -> Client message types
const (
	MsgGameCountdown    = "game:countdown"
	MsgGameTime         = "game:time"
	MsgGameStarted      = "game:start"
	MsgGameSync         = "game:sync"
	MsgGameEnd          = "game:end"
	MsgPlayerJoined     = "player:join"
	MsgPlayerLeft       = "player:leave"
	MsgPlayerMoved      = "player:move"
	MsgPlayerRotated    = "player:rotate"
	MsgPlayerHealth     = "player:health"
	MsgPlayerScore      = "player:score"
	MsgProjectileCreate = "projectile:create"
	MsgProjectileMove   = "projectile:move"
	MsgProjectileRemove = "projectile:remove"
)

// Envelope wraps all outgoing messages with a type tag. Delta events go out
// as JSON text frames; game:sync snapshots go out as msgpack binary frames
// with the same envelope shape.
type Envelope struct {
	T    string      `json:"t" msgpack:"t"`
	Data interface{} `json:"d,omitempty" msgpack:"d,omitempty"`
}

// InEnvelope is used for incoming messages. json.RawMessage avoids
// double-unmarshal of the payload.
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinRoomMsg asks to bind this connection to a room.
type JoinRoomMsg struct {
	RoomID string `json:"roomId"`
}

// LeaveRoomMsg unbinds this connection from its room.
type LeaveRoomMsg struct {
	RoomID string `json:"roomId"`
}

// StartGameMsg starts (or restarts) the match for a room.
type StartGameMsg struct {
	RoomID string `json:"roomId"`
}

// MoveMsg carries the movement input vector for one step.
type MoveMsg struct {
	Position Position `json:"position"`
}

// RotateMsg sets the player's facing angle in radians.
type RotateMsg struct {
	Rotation float64 `json:"rotation"`
}

// ShootMsg fires a projectile from a muzzle position at an angle.
type ShootMsg struct {
	Position  Position `json:"position"`
	Direction float64  `json:"direction"`
}

// PlayerState is the wire representation of a player.
type PlayerState struct {
	ID       string   `json:"id" msgpack:"id"`
	Username string   `json:"username" msgpack:"username"`
	Position Position `json:"position" msgpack:"position"`
	Rotation float64  `json:"rotation" msgpack:"rotation"`
	Health   int      `json:"health" msgpack:"health"`
	Score    int      `json:"score" msgpack:"score"`
	IsActive bool     `json:"isActive" msgpack:"isActive"`
	Color    string   `json:"color" msgpack:"color"`
}

// ProjectileState is the wire representation of a projectile.
type ProjectileState struct {
	ID        string   `json:"id" msgpack:"id"`
	OwnerID   string   `json:"playerId" msgpack:"playerId"`
	Position  Position `json:"position" msgpack:"position"`
	Velocity  Position `json:"velocity" msgpack:"velocity"`
	Damage    int      `json:"damage" msgpack:"damage"`
	CreatedAt int64    `json:"createdAt" msgpack:"createdAt"`
}

// RoomSnapshot is the full-state sync payload, broadcast when the match
// starts and on a fixed cadence afterwards to correct delta drift.
type RoomSnapshot struct {
	RoomID        string                     `json:"roomId" msgpack:"roomId"`
	Players       map[string]PlayerState     `json:"players" msgpack:"players"`
	Projectiles   map[string]ProjectileState `json:"projectiles" msgpack:"projectiles"`
	Obstacles     []Obstacle                 `json:"obstacles" msgpack:"obstacles"`
	Status        string                     `json:"status" msgpack:"status"`
	TimeRemaining float64                    `json:"timeRemaining" msgpack:"timeRemaining"`
	Winner        string                     `json:"winner,omitempty" msgpack:"winner,omitempty"`
	Settings      RoomSettings               `json:"settings" msgpack:"settings"`
}

// CountdownMsg announces countdown start.
type CountdownMsg struct {
	TimeRemaining int `json:"timeRemaining"`
}

// TimeMsg is the coarse once-per-second clock update.
type TimeMsg struct {
	TimeRemaining int `json:"timeRemaining"`
}

// PlayerJoinedMsg announces a new room member.
type PlayerJoinedMsg struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// PlayerLeftMsg announces a departed room member.
type PlayerLeftMsg struct {
	PlayerID string `json:"playerId"`
}

// PlayerMovedMsg broadcasts an accepted move.
type PlayerMovedMsg struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"position"`
}

// PlayerRotatedMsg broadcasts a rotation change.
type PlayerRotatedMsg struct {
	PlayerID string  `json:"playerId"`
	Rotation float64 `json:"rotation"`
}

// PlayerHealthMsg broadcasts a health delta after a hit.
type PlayerHealthMsg struct {
	PlayerID string `json:"playerId"`
	Health   int    `json:"health"`
}

// PlayerScoreMsg broadcasts a score delta after an elimination.
type PlayerScoreMsg struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

// ProjectileMovedMsg broadcasts a projectile advance.
type ProjectileMovedMsg struct {
	ProjectileID string   `json:"projectileId"`
	Position     Position `json:"position"`
}

// ProjectileRemovedMsg broadcasts a projectile removal.
type ProjectileRemovedMsg struct {
	ProjectileID string `json:"projectileId"`
}

// GameEndMsg announces the match result. Winner is empty on a draw.
type GameEndMsg struct {
	Winner string `json:"winner,omitempty"`
}

// finiteFloat rejects NaN and ±Inf. Malformed geometry must never reach the
// resolver or the room state.
func finiteFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// finitePosition rejects positions or vectors with non-finite components.
func finitePosition(p Position) bool {
	return finiteFloat(p.X) && finiteFloat(p.Y)
}
