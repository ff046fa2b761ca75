package main

import "math"

// parallelEps is the cross-product tolerance below which two segments are
// treated as parallel and therefore non-intersecting.
const parallelEps = 1e-4

// CircleHitsRect checks if a circle overlaps an axis-aligned rectangle.
// The circle center is clamped into the rectangle and the squared distance
// to the clamped point is compared against the squared radius.
func CircleHitsRect(cx, cy, radius, rx, ry, w, h float64) bool {
	closestX := math.Max(rx, math.Min(cx, rx+w))
	closestY := math.Max(ry, math.Min(cy, ry+h))
	dx := cx - closestX
	dy := cy - closestY
	return dx*dx+dy*dy < radius*radius
}

// CirclesOverlap checks if two circles overlap
func CirclesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	radSum := r1 + r2
	return dx*dx+dy*dy < radSum*radSum
}

// WithinBounds checks if a circle lies fully inside a w×h canvas.
func WithinBounds(cx, cy, radius, w, h float64) bool {
	return cx-radius >= 0 && cx+radius <= w && cy-radius >= 0 && cy+radius <= h
}

// pointInRect checks if a point lies inside an axis-aligned rectangle.
func pointInRect(px, py, rx, ry, w, h float64) bool {
	return px >= rx && px <= rx+w && py >= ry && py <= ry+h
}

// segmentsIntersect checks if segment a0-a1 intersects segment b0-b1 using
// the parametric cross-product test. Both parameters must land in [0,1].
func segmentsIntersect(a0x, a0y, a1x, a1y, b0x, b0y, b1x, b1y float64) bool {
	rx := a1x - a0x
	ry := a1y - a0y
	sx := b1x - b0x
	sy := b1y - b0y

	denom := rx*sy - ry*sx
	if math.Abs(denom) < parallelEps {
		return false
	}

	t := ((b0x-a0x)*sy - (b0y-a0y)*sx) / denom
	u := ((b0x-a0x)*ry - (b0y-a0y)*rx) / denom
	return t >= 0 && t <= 1 && u >= 0 && u <= 1
}

// SegmentHitsRect checks if the segment p0-p1 touches an axis-aligned
// rectangle. Used for fast-moving projectiles so they cannot tunnel through
// an obstacle between two ticks.
func SegmentHitsRect(p0x, p0y, p1x, p1y, rx, ry, w, h float64) bool {
	if pointInRect(p0x, p0y, rx, ry, w, h) || pointInRect(p1x, p1y, rx, ry, w, h) {
		return true
	}
	// Test against all four rectangle edges
	if segmentsIntersect(p0x, p0y, p1x, p1y, rx, ry, rx+w, ry) {
		return true
	}
	if segmentsIntersect(p0x, p0y, p1x, p1y, rx+w, ry, rx+w, ry+h) {
		return true
	}
	if segmentsIntersect(p0x, p0y, p1x, p1y, rx+w, ry+h, rx, ry+h) {
		return true
	}
	if segmentsIntersect(p0x, p0y, p1x, p1y, rx, ry+h, rx, ry) {
		return true
	}
	return false
}
