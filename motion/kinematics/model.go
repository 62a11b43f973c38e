package kinematics

import "math"

// Model is a kinematic model: the acceleration bounds of each actuator and
// the stop distances and jerk speeds that follow from them. Every method
// must be pure and bounded in time; they run on the interrupt path.
type Model interface {
	// Bounds returns the maximum acceleration and deceleration (steps/s²)
	// of axis at the given speed
	Bounds(axis int, speed float64) (accel, decel float64)

	// StopDistance returns the distance axis needs to come to rest from
	// speed while decelerating at its maximum rate
	StopDistance(axis int, speed float64) float64

	// UpdateStopDistance integrates stop from previousSpeed to speed
	// instead of recomputing it from scratch
	UpdateStopDistance(axis int, stop, previousSpeed, speed float64) float64

	// MaxJerkSpeed returns the highest speed axis may have when it crosses
	// a jerk point (and may start from rest with)
	MaxJerkSpeed(axis int) float64
}

// AxisLimits holds the per-actuator limits shared by the models
type AxisLimits struct {
	Acceleration float64 // steps/s²
	Deceleration float64 // steps/s²
	JerkSpeed    float64 // steps/s
	TopSpeed     float64 // steps/s, used by TorqueLimited
}

// Linear is the constant acceleration (trapezoid) model
type Linear struct {
	Axes []AxisLimits
}

// NewLinear creates a Linear model; axes is copied
func NewLinear(axes []AxisLimits) *Linear {
	return &Linear{Axes: append([]AxisLimits(nil), axes...)}
}

func (l *Linear) Bounds(axis int, speed float64) (float64, float64) {
	a := l.Axes[axis]
	return a.Acceleration, a.Deceleration
}

func (l *Linear) StopDistance(axis int, speed float64) float64 {
	d := l.Axes[axis].Deceleration
	if d <= 0 {
		return math.Inf(1)
	}
	return speed * speed / (2 * d)
}

func (l *Linear) UpdateStopDistance(axis int, stop, previousSpeed, speed float64) float64 {
	d := l.Axes[axis].Deceleration
	if d <= 0 {
		return math.Inf(1)
	}
	stop += (speed*speed - previousSpeed*previousSpeed) / (2 * d)
	if stop < 0 {
		return 0
	}
	return stop
}

func (l *Linear) MaxJerkSpeed(axis int) float64 {
	return l.Axes[axis].JerkSpeed
}

// TorqueLimited models a stepper whose available torque, and with it the
// acceleration, falls linearly from its nominal value at rest to a floor
// fraction at TopSpeed.
type TorqueLimited struct {
	Axes []AxisLimits

	// Floor is the fraction of the nominal acceleration left at TopSpeed
	Floor float64
}

// NewTorqueLimited creates a TorqueLimited model; axes is copied
func NewTorqueLimited(axes []AxisLimits, floor float64) *TorqueLimited {
	if floor <= 0 || floor > 1 {
		floor = 0.2
	}
	return &TorqueLimited{Axes: append([]AxisLimits(nil), axes...), Floor: floor}
}

// factor returns the torque fraction available at speed
func (t *TorqueLimited) factor(axis int, speed float64) float64 {
	top := t.Axes[axis].TopSpeed
	if top <= 0 {
		return 1
	}
	f := 1 - (1-t.Floor)*speed/top
	if f < t.Floor {
		return t.Floor
	}
	return f
}

func (t *TorqueLimited) Bounds(axis int, speed float64) (float64, float64) {
	a := t.Axes[axis]
	f := t.factor(axis, speed)
	return a.Acceleration * f, a.Deceleration * f
}

// StopDistance integrates v/a(v) from 0 to speed. With
// a(v) = d·(1 - k·v) this is (−v/k − ln(1 − k·v)/k²)/d for k > 0.
func (t *TorqueLimited) StopDistance(axis int, speed float64) float64 {
	a := t.Axes[axis]
	if a.Deceleration <= 0 {
		return math.Inf(1)
	}
	if a.TopSpeed <= 0 {
		return speed * speed / (2 * a.Deceleration)
	}
	k := (1 - t.Floor) / a.TopSpeed
	if speed >= a.TopSpeed {
		// Past TopSpeed the acceleration stays at the floor
		below := (-a.TopSpeed/k - math.Log(1-k*a.TopSpeed)/(k*k)) / a.Deceleration
		over := (speed*speed - a.TopSpeed*a.TopSpeed) / (2 * a.Deceleration * t.Floor)
		return below + over
	}
	return (-speed/k - math.Log(1-k*speed)/(k*k)) / a.Deceleration
}

// UpdateStopDistance applies the trapezoid rule on v/a(v) between the two
// speeds, which is exact enough for the small speed changes of one
// movement.
func (t *TorqueLimited) UpdateStopDistance(axis int, stop, previousSpeed, speed float64) float64 {
	_, d0 := t.Bounds(axis, previousSpeed)
	_, d1 := t.Bounds(axis, speed)
	if d0 <= 0 || d1 <= 0 {
		return math.Inf(1)
	}
	stop += (speed - previousSpeed) * (previousSpeed/d0 + speed/d1) / 2
	if stop < 0 {
		return 0
	}
	return stop
}

func (t *TorqueLimited) MaxJerkSpeed(axis int) float64 {
	return t.Axes[axis].JerkSpeed
}
