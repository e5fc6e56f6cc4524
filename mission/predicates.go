package mission

import (
	"math"
	"time"
)

// Always matches every cycle.
func Always(View) bool { return true }

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(v View) bool {
		for _, p := range preds {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(v View) bool {
		for _, p := range preds {
			if p(v) {
				return true
			}
		}
		return false
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(v View) bool { return !p(v) }
}

// EdgeValid matches while the line detector sees an edge.
func EdgeValid(v View) bool { return v.Edge.Valid }

// WidthAbove matches when the detected line is wider than width meters.
func WidthAbove(width float64) Predicate {
	return func(v View) bool { return v.Edge.Width > width }
}

// WidthBelow matches when the detected line is narrower than width meters.
func WidthBelow(width float64) Predicate {
	return func(v View) bool { return v.Edge.Width < width }
}

// DistanceAbove matches when |distance since reset| exceeds d meters.
func DistanceAbove(d float64) Predicate {
	return func(v View) bool { return math.Abs(v.Pose.Distance) > d }
}

// TurnedAbove matches when |heading change since reset| exceeds rad.
func TurnedAbove(rad float64) Predicate {
	return func(v View) bool { return math.Abs(v.Pose.Turned) > rad }
}

// TurnedWithin matches when the heading change since reset is within tolerance of target.
func TurnedWithin(target, tolerance float64) Predicate {
	return func(v View) bool { return math.Abs(v.Pose.Turned-target) < tolerance }
}

// RangeBelow matches when range sensor i reads closer than d meters. A missing sensor never
// matches.
func RangeBelow(i int, d float64) Predicate {
	return func(v View) bool {
		r, ok := v.Range(i)
		return ok && r < d
	}
}

// RangeAbove matches when range sensor i reads farther than d meters.
func RangeAbove(i int, d float64) Predicate {
	return func(v View) bool {
		r, ok := v.Range(i)
		return ok && r > d
	}
}

// InStateFor matches once the current state has been active for longer than d.
func InStateFor(d time.Duration) Predicate {
	return func(v View) bool { return v.InState > d }
}

// ServoNear matches when servo channel reads within tolerance of position.
func ServoNear(channel, position, tolerance int) Predicate {
	return func(v View) bool {
		p, ok := v.Servo[channel]
		if !ok {
			return false
		}
		d := p - position
		if d < 0 {
			d = -d
		}
		return d <= tolerance
	}
}
