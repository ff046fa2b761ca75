package main

import "math"

// StepResult is the outcome of advancing one projectile by one tick.
// Consumed projectiles are removed by the caller; HitPlayerID is set only
// when a player absorbed the shot.
type StepResult struct {
	Position    Position
	Consumed    bool
	HitPlayerID string
}

// ResolvePlayerMove validates one player's proposed displacement and returns
// the accepted position, or ok=false when the move is rejected. The input
// vector is normalized when both components are non-zero so diagonal
// movement is no faster than axis-aligned movement.
func ResolvePlayerMove(p *Player, input Position, players []*Player, obstacles []Obstacle) (Position, bool) {
	normalized := input
	if input.X != 0 && input.Y != 0 {
		length := math.Sqrt(input.X*input.X + input.Y*input.Y)
		normalized = Position{X: input.X / length, Y: input.Y / length}
	}

	candidate := Position{
		X: p.Position.X + normalized.X*PlayerSpeed,
		Y: p.Position.Y + normalized.Y*PlayerSpeed,
	}

	for _, o := range obstacles {
		if CircleHitsRect(candidate.X, candidate.Y, PlayerRadius, o.Position.X, o.Position.Y, o.Width, o.Height) {
			return Position{}, false
		}
	}

	if !WithinBounds(candidate.X, candidate.Y, PlayerRadius, CanvasWidth, CanvasHeight) {
		return Position{}, false
	}

	// Eliminated players do not block movement.
	for _, other := range players {
		if other.ID == p.ID || !other.Active {
			continue
		}
		if CirclesOverlap(candidate.X, candidate.Y, PlayerRadius, other.Position.X, other.Position.Y, PlayerRadius) {
			return Position{}, false
		}
	}

	return candidate, true
}

// ResolveProjectileStep advances one projectile by its velocity and resolves
// the step against obstacles, bounds and players, in that order. The
// obstacle test is swept over the full segment traversed this tick so fast
// projectiles cannot tunnel through thin rectangles. Victim selection walks
// players in room insertion order; the first match wins.
func ResolveProjectileStep(pr *Projectile, players []*Player, obstacles []Obstacle, friendlyFire bool) StepResult {
	candidate := Position{
		X: pr.Position.X + pr.Velocity.X,
		Y: pr.Position.Y + pr.Velocity.Y,
	}

	for _, o := range obstacles {
		if CircleHitsRect(candidate.X, candidate.Y, ProjectileRadius, o.Position.X, o.Position.Y, o.Width, o.Height) ||
			SegmentHitsRect(pr.Position.X, pr.Position.Y, candidate.X, candidate.Y, o.Position.X, o.Position.Y, o.Width, o.Height) {
			return StepResult{Consumed: true}
		}
	}

	if !WithinBounds(candidate.X, candidate.Y, ProjectileRadius, CanvasWidth, CanvasHeight) {
		return StepResult{Consumed: true}
	}

	for _, p := range players {
		// The owner can only be hit by its own shot under friendly fire.
		if p.ID == pr.OwnerID && !friendlyFire {
			continue
		}
		if !p.Active {
			continue
		}
		if CirclesOverlap(candidate.X, candidate.Y, ProjectileRadius, p.Position.X, p.Position.Y, PlayerRadius) {
			return StepResult{Consumed: true, HitPlayerID: p.ID}
		}
	}

	return StepResult{Position: candidate}
}
