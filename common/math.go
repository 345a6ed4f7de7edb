package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Vec3 is a world-space position or offset. Y is up.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// Normalized returns the unit vector in v's direction, or the zero vector
// when v has no length.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// ClampLength limits the magnitude of v to max.
func (v Vec3) ClampLength(max float64) Vec3 {
	l := v.Length()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{X: Lerp(v.X, o.X, t), Y: Lerp(v.Y, o.Y, t), Z: Lerp(v.Z, o.Z, t)}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g,%g,%g)", v.X, v.Y, v.Z)
}

// ParseVec3 reads "x,y,z". Two components are accepted as "x,z" on the
// ground plane.
func ParseVec3(s string) (Vec3, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	vals := make([]float64, 0, 3)
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("common: parse vec3 %q: %w", s, err)
		}
		vals = append(vals, f)
	}
	switch len(vals) {
	case 2:
		return Vec3{X: vals[0], Z: vals[1]}, nil
	case 3:
		return Vec3{X: vals[0], Y: vals[1], Z: vals[2]}, nil
	default:
		return Vec3{}, fmt.Errorf("common: parse vec3 %q: want 2 or 3 components, got %d", s, len(vals))
	}
}
