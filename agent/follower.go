package agent

import "github.com/milk9111/tilenav/common"

// DefaultWaypointThreshold is the distance at which a waypoint counts as
// reached.
const DefaultWaypointThreshold = 0.3

// Follower walks a list of waypoints in order. A waypoint is reached once the
// follower is strictly closer than Threshold; reaching the last one clears
// the path.
type Follower struct {
	Threshold float64

	waypoints []common.Vec3
	current   int
}

func NewFollower(threshold float64) *Follower {
	if threshold <= 0 {
		threshold = DefaultWaypointThreshold
	}
	return &Follower{Threshold: threshold}
}

// SetPath replaces the waypoints and restarts from the first one.
func (f *Follower) SetPath(points []common.Vec3) {
	f.waypoints = append(f.waypoints[:0], points...)
	f.current = 0
}

func (f *Follower) Clear() {
	f.waypoints = f.waypoints[:0]
	f.current = 0
}

// Active reports whether any waypoints remain.
func (f *Follower) Active() bool {
	return f.current < len(f.waypoints)
}

// Remaining returns a copy of the waypoints not yet reached.
func (f *Follower) Remaining() []common.Vec3 {
	if !f.Active() {
		return nil
	}
	out := make([]common.Vec3, len(f.waypoints)-f.current)
	copy(out, f.waypoints[f.current:])
	return out
}

// Target returns the waypoint to head for from pos, advancing past the
// current one when pos is within the threshold. It returns false once the
// path is finished.
func (f *Follower) Target(pos common.Vec3) (common.Vec3, bool) {
	if !f.Active() {
		return pos, false
	}
	dst := f.waypoints[f.current]
	if dst.Sub(pos).LengthSq() < f.Threshold*f.Threshold {
		f.current++
		if f.current == len(f.waypoints) {
			f.Clear()
			return pos, false
		}
		dst = f.waypoints[f.current]
	}
	return dst, true
}

// Step moves pos toward the current target by at most speed*dt and returns
// the new position.
func (f *Follower) Step(pos common.Vec3, speed, dt float64) common.Vec3 {
	dst, ok := f.Target(pos)
	if !ok || speed <= 0 || dt <= 0 {
		return pos
	}
	return pos.Add(dst.Sub(pos).ClampLength(speed * dt))
}
