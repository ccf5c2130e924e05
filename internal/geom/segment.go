package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// Segment is a line stored in polar form so that moving its origin moves
// both endpoints together.
type Segment struct {
	Origin r2.Point
	Length float64
	// Angle is measured in degrees, clockwise in display space.
	Angle float64
}

// SegmentFromPoints returns the segment running from a to b.
func SegmentFromPoints(a, b r2.Point) Segment {
	d := b.Sub(a)
	return Segment{
		Origin: a,
		Length: math.Hypot(d.X, d.Y),
		Angle:  math.Atan2(d.Y, d.X) * 180 / math.Pi,
	}
}

// Radians returns the angle in radians.
func (s Segment) Radians() float64 { return s.Angle * math.Pi / 180 }

// End returns the far endpoint.
func (s Segment) End() r2.Point {
	rad := s.Radians()
	return s.Origin.Add(r2.Point{X: math.Cos(rad), Y: math.Sin(rad)}.Mul(s.Length))
}

// Degenerate reports whether the segment has no length.
func (s Segment) Degenerate() bool { return s.Length == 0 }

// Translate returns the segment with its origin moved by d.
func (s Segment) Translate(d r2.Point) Segment {
	s.Origin = s.Origin.Add(d)
	return s
}

// Scale multiplies the origin and length by f. The angle is unchanged.
func (s Segment) Scale(f float64) Segment {
	s.Origin = s.Origin.Mul(f)
	s.Length *= f
	return s
}

// Bounds returns the box enclosing both endpoints.
func (s Segment) Bounds() Rect {
	return RectFromCorners(s.Origin, s.End())
}

// Distance returns the shortest distance from p to the segment.
func (s Segment) Distance(p r2.Point) float64 {
	a, b := s.Origin, s.End()
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Norm()
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Norm()
}
