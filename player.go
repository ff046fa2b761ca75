package main

import (
	"math"
	"time"
)

const (
	CanvasWidth  = 800.0
	CanvasHeight = 600.0

	PlayerRadius    = 20.0
	PlayerSpeed     = 5.0 // units per tick
	PlayerMaxHealth = 100

	ShotCooldown = 500 * time.Millisecond
)

// Position is a point or vector in canvas space.
type Position struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Player is a combatant inside one room. Players are materialized when the
// countdown ends and live until their connection leaves or the room is torn
// down. Health 0 flips Active off permanently for the match.
type Player struct {
	ID       string
	Username string
	Position Position
	Rotation float64
	Health   int
	Score    int
	Active   bool
	LastShot time.Time
	Color    string
}

// NewPlayer creates a player at a spawn position with full health.
func NewPlayer(id, username string, pos Position, color string) *Player {
	return &Player{
		ID:       id,
		Username: username,
		Position: pos,
		Health:   PlayerMaxHealth,
		Active:   true,
		Color:    color,
	}
}

// TakeDamage reduces health, clamping at zero, and returns true if the hit
// eliminated the player.
func (p *Player) TakeDamage(dmg int) bool {
	if !p.Active {
		return false
	}
	p.Health -= dmg
	if p.Health <= 0 {
		p.Health = 0
		p.Active = false
		return true
	}
	return false
}

// CanShoot returns true once the personal cooldown has elapsed.
func (p *Player) CanShoot(now time.Time) bool {
	return now.Sub(p.LastShot) >= ShotCooldown
}

// ToState converts to the wire representation.
func (p *Player) ToState() PlayerState {
	return PlayerState{
		ID:       p.ID,
		Username: p.Username,
		Position: p.Position,
		Rotation: p.Rotation,
		Health:   p.Health,
		Score:    p.Score,
		IsActive: p.Active,
		Color:    p.Color,
	}
}

// spawnRadius and canvas center for circular layouts with 5+ players.
const (
	spawnRadius  = 200.0
	spawnCenterX = 400.0
	spawnCenterY = 300.0
)

// SpawnPositions returns deterministic spawn points for n players. Small
// counts use fixed layouts; larger counts are spread evenly on a circle.
func SpawnPositions(n int) []Position {
	switch n {
	case 1:
		return []Position{{X: 400, Y: 300}}
	case 2:
		return []Position{{X: 200, Y: 300}, {X: 600, Y: 300}}
	case 3:
		return []Position{{X: 400, Y: 150}, {X: 200, Y: 450}, {X: 600, Y: 450}}
	case 4:
		return []Position{
			{X: 200, Y: 150}, {X: 600, Y: 150},
			{X: 200, Y: 450}, {X: 600, Y: 450},
		}
	}
	positions := make([]Position, 0, n)
	for i := 0; i < n; i++ {
		angle := float64(i) / float64(n) * 2 * math.Pi
		positions = append(positions, Position{
			X: spawnCenterX + spawnRadius*math.Cos(angle),
			Y: spawnCenterY + spawnRadius*math.Sin(angle),
		})
	}
	return positions
}

// playerPalette cycles per join index.
var playerPalette = [8]string{
	"#FF5252", // red
	"#4CAF50", // green
	"#2196F3", // blue
	"#FFC107", // yellow
	"#9C27B0", // purple
	"#00BCD4", // cyan
	"#FF9800", // orange
	"#795548", // brown
}

// PlayerColor returns the palette color for a join index.
func PlayerColor(index int) string {
	return playerPalette[index%len(playerPalette)]
}
