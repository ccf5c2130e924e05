package geom

import "github.com/golang/geo/r2"

// Matrix is a 2D affine transform in PDF order [a b c d e f], mapping
// (x, y) to (a*x + c*y + e, b*x + d*y + f).
type Matrix [6]float64

// Identity is the transform that leaves points unchanged.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Multiply returns m followed by n.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// Transform applies m to p.
func (m Matrix) Transform(p r2.Point) r2.Point {
	return r2.Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// PageRotation maps PDF points on a page as displayed, bottom-left origin,
// back onto the unrotated user space of a w by h page. Viewers turn a page
// clockwise by its /Rotate, which must be a multiple of 90.
func PageRotation(rotate int, w, h float64) Matrix {
	switch ((rotate % 360) + 360) % 360 {
	case 90:
		return Matrix{0, 1, -1, 0, w, 0}
	case 180:
		return Matrix{-1, 0, 0, -1, w, h}
	case 270:
		return Matrix{0, -1, 1, 0, 0, h}
	}
	return Identity
}
