package main

import (
	"fmt"
	"math"
	"time"
)

const (
	ProjectileRadius   = 5.0
	ProjectileSpeed    = 10.0 // units per tick
	ProjectileDamage   = 10
	ProjectileLifetime = 5000 * time.Millisecond
)

// Projectile is a shot in flight. It is destroyed on obstacle collision,
// boundary exit, player hit, or when it outlives ProjectileLifetime.
type Projectile struct {
	ID        string
	OwnerID   string
	Position  Position
	Velocity  Position
	Damage    int
	CreatedAt time.Time
}

// NewProjectile creates a projectile from the shooter's muzzle position and
// aim angle. The id combines shooter id and timestamp so it is unique per
// shot given the 500ms cooldown.
func NewProjectile(ownerID string, pos Position, angle float64, now time.Time) *Projectile {
	return &Projectile{
		ID:       fmt.Sprintf("%s-%d", ownerID, now.UnixMilli()),
		OwnerID:  ownerID,
		Position: pos,
		Velocity: Position{
			X: math.Cos(angle) * ProjectileSpeed,
			Y: math.Sin(angle) * ProjectileSpeed,
		},
		Damage:    ProjectileDamage,
		CreatedAt: now,
	}
}

// Expired returns true once the projectile has outlived its lifetime.
func (pr *Projectile) Expired(now time.Time) bool {
	return now.Sub(pr.CreatedAt) > ProjectileLifetime
}

// ToState converts to the wire representation.
func (pr *Projectile) ToState() ProjectileState {
	return ProjectileState{
		ID:        pr.ID,
		OwnerID:   pr.OwnerID,
		Position:  pr.Position,
		Velocity:  pr.Velocity,
		Damage:    pr.Damage,
		CreatedAt: pr.CreatedAt.UnixMilli(),
	}
}
