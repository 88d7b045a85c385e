// Package geom provides the small amount of 3D vector math the combat
// runtime needs for range checks and movement.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is a point or displacement in world space, in meters.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

// Len returns the Euclidean length of v.
func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// DistanceTo returns the straight-line distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 { return o.Sub(v).Len() }

// MoveToward returns the point reached by moving from v toward target by at
// most step meters. It never overshoots target.
//
// Precondition: step >= 0.
func (v Vec3) MoveToward(target Vec3, step float64) Vec3 {
	d := target.Sub(v)
	dist := d.Len()
	if dist <= step || dist == 0 {
		return target
	}
	return v.Add(d.Scale(step / dist))
}

// String formats v as (x, y, z).
func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}
