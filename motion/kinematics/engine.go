// Package kinematics derives a legal execution duration for every movement
// and keeps the per-actuator speed and stop-distance state that guarantees
// the group can always stop before a jerk point.
package kinematics

import (
	"math"

	"stepcore/core"
	"stepcore/motion/builder"
	"stepcore/motion/trajectory"
)

// Capabilities switches the individual regulations on or off
type Capabilities struct {
	Acceleration bool // bound durations from below by maximum acceleration
	Deceleration bool // bound durations from above by maximum deceleration
	Jerk         bool // force deceleration when a stop distance crosses the jerk point
}

// AllCapabilities enables every regulation
func AllCapabilities() Capabilities {
	return Capabilities{Acceleration: true, Deceleration: true, Jerk: true}
}

// Window is the time window computed for the last movement
type Window struct {
	Min, Max       float64
	HasMin, HasMax bool
	Target         float64
	Duration       float64
	Forced         bool // the deceleration request picked the duration
}

// Engine is the kinematics state of one axis group. It is touched only by
// the background pre-computation path (the controller's StepProcess).
type Engine struct {
	dim   int
	model Model
	caps  Capabilities

	// incremental selects, per axis, UpdateStopDistance over StopDistance
	incremental uint32

	targetSpeed  float64
	defaultSpeed float64

	decelerationRequired bool
	previousDuration     float64

	speed        []float64
	stopDistance []float64
	jerkDistance []float64
	jerkOffset   []float64

	jerk   *trajectory.Jerk
	window Window
}

// NewEngine creates the kinematics state for dim actuators
func NewEngine(dim int, model Model, caps Capabilities, incremental uint32, defaultSpeed float64) *Engine {
	if dim <= 0 || dim > 32 {
		core.Fatal(core.FaultConfig, "kinematics dimension out of range", 0, float64(dim))
	}
	if defaultSpeed <= 0 {
		core.Fatal(core.FaultConfig, "target speed must be positive", 0, defaultSpeed)
	}
	e := &Engine{
		dim:          dim,
		model:        model,
		caps:         caps,
		incremental:  incremental,
		defaultSpeed: defaultSpeed,
		targetSpeed:  defaultSpeed,
		speed:        make([]float64, dim),
		stopDistance: make([]float64, dim),
		jerkDistance: make([]float64, dim),
		jerkOffset:   make([]float64, dim),
	}
	for axis := range e.jerkOffset {
		e.jerkOffset[axis] = math.Inf(1)
		e.jerkDistance[axis] = math.Inf(1)
	}
	return e
}

// Load prepares the engine for a new trajectory. When nothing follows the
// trajectory every axis must be able to stop at its end.
func (e *Engine) Load(jerk *trajectory.Jerk, hasNext bool, speed float64) {
	if len(jerk.Distance) != e.dim {
		core.Fatal(core.FaultDimension, "jerk annotation does not match engine", 0, float64(len(jerk.Distance)))
	}
	if !hasNext {
		jerk.Mask = trajectory.AllAxes(e.dim)
	}
	e.jerk = jerk
	e.targetSpeed = e.defaultSpeed
	if speed > 0 {
		e.targetSpeed = speed
	}
	copy(e.jerkDistance, jerk.Distance)
	e.refreshJerkOffsets()
}

// refreshJerkOffsets reserves, for each monitored axis, the stop distance
// of its jerk speed: being at that speed on the jerk point is allowed.
func (e *Engine) refreshJerkOffsets() {
	for axis := 0; axis < e.dim; axis++ {
		if e.jerk != nil && !e.jerk.Monitored(axis) {
			e.jerkOffset[axis] = math.Inf(1)
		} else {
			e.jerkOffset[axis] = e.model.StopDistance(axis, e.model.MaxJerkSpeed(axis))
		}
		if e.jerk != nil && e.jerk.Offset != nil {
			e.jerk.Offset[axis] = e.jerkOffset[axis]
		}
	}
}

// StopFits reports whether axis, reaching a trajectory at speed, can come
// down to its jerk speed within distance. speed <= 0 selects the default
// target speed.
func (e *Engine) StopFits(axis int, speed, distance float64) bool {
	if speed <= 0 {
		speed = e.defaultSpeed
	}
	reserve := e.model.StopDistance(axis, e.model.MaxJerkSpeed(axis))
	return e.model.StopDistance(axis, speed) <= distance+reserve
}

// ComputeMovementData selects the execution duration of m from the
// builder's distances and stores it on m.
func (e *Engine) ComputeMovementData(b *builder.Builder, m *builder.Movement) float64 {
	distances := b.Distances()
	w := Window{Target: b.PathDistance() / e.targetSpeed}
	creep := 0.0

	for axis := 0; axis < e.dim; axis++ {
		d := distances[axis]
		if d == 0 {
			continue
		}
		accel, decel := e.model.Bounds(axis, e.speed[axis])
		if jerkSpeed := e.model.MaxJerkSpeed(axis); jerkSpeed > 0 && d/jerkSpeed > creep {
			creep = d / jerkSpeed
		}

		if e.caps.Acceleration {
			maximal := e.speed[axis] + e.previousDuration*accel
			if jerkSpeed := e.model.MaxJerkSpeed(axis); maximal < jerkSpeed {
				maximal = jerkSpeed
			}
			if maximal > 0 {
				if t := d / maximal; !w.HasMin || t > w.Min {
					w.Min, w.HasMin = t, true
				}
			}
		}

		if e.caps.Deceleration {
			minimal := e.speed[axis] - e.previousDuration*decel
			if minimal > 0 {
				if t := d / minimal; !w.HasMax || t < w.Max {
					w.Max, w.HasMax = t, true
				}
			}
		}
	}

	if w.HasMin && w.HasMax && w.Max < w.Min {
		w.Min = w.Max
	}

	switch {
	case w.HasMax && (e.decelerationRequired || w.Target > w.Max):
		w.Duration = w.Max
		w.Forced = e.decelerationRequired
	case e.decelerationRequired && !w.HasMax:
		// Every axis could stop within the window: creep at jerk speed
		w.Duration = math.Max(w.Target, creep)
		if w.HasMin && w.Duration < w.Min {
			w.Duration = w.Min
		}
		w.Forced = true
	case w.HasMin && w.Target < w.Min:
		w.Duration = w.Min
	default:
		w.Duration = w.Target
	}
	e.decelerationRequired = false

	m.Duration = w.Duration
	e.previousDuration = w.Duration
	e.window = w
	return w.Duration
}

// UpdateJerkDistances subtracts the movement from the remaining jerk
// distances, saturating at zero.
func (e *Engine) UpdateJerkDistances(b *builder.Builder) {
	distances := b.Distances()
	for axis := 0; axis < e.dim; axis++ {
		e.jerkDistance[axis] -= distances[axis]
		if e.jerkDistance[axis] < 0 || math.IsNaN(e.jerkDistance[axis]) {
			e.jerkDistance[axis] = 0
		}
	}
	e.refreshJerkOffsets()
}

// UpdateActuatorSpeeds derives the new speeds from the last movement and
// updates the stop distances. An axis whose stop distance no longer fits
// before the jerk point forces the next movement onto its maximal time.
func (e *Engine) UpdateActuatorSpeeds(b *builder.Builder) {
	distances := b.Distances()
	for axis := 0; axis < e.dim; axis++ {
		previous := e.speed[axis]
		speed := 0.0
		if e.previousDuration > 0 {
			speed = distances[axis] / e.previousDuration
		}
		e.speed[axis] = speed

		if e.incremental&(1<<uint(axis)) != 0 {
			e.stopDistance[axis] = e.model.UpdateStopDistance(axis, e.stopDistance[axis], previous, speed)
		} else {
			e.stopDistance[axis] = e.model.StopDistance(axis, speed)
		}

		if e.caps.Jerk && e.stopDistance[axis] > e.jerkDistance[axis]+e.jerkOffset[axis] {
			if !e.decelerationRequired {
				core.RecordTiming(core.EvtDecelForced, uint8(axis), core.GetTime(),
					uint32(e.stopDistance[axis]), uint32(e.jerkDistance[axis]))
			}
			e.decelerationRequired = true
		}
	}
}

// Reset forgets all motion: speeds, stop distances and pending requests.
func (e *Engine) Reset() {
	for axis := 0; axis < e.dim; axis++ {
		e.speed[axis] = 0
		e.stopDistance[axis] = 0
		e.jerkDistance[axis] = math.Inf(1)
		e.jerkOffset[axis] = math.Inf(1)
	}
	e.decelerationRequired = false
	e.previousDuration = 0
	e.jerk = nil
	e.targetSpeed = e.defaultSpeed
	e.window = Window{}
}

// Unload detaches the finished trajectory's annotation
func (e *Engine) Unload() {
	e.jerk = nil
}

// Dimension returns the number of actuators
func (e *Engine) Dimension() int { return e.dim }

// Speed returns the current speed of axis in steps/s
func (e *Engine) Speed(axis int) float64 { return e.speed[axis] }

// StopDistance returns the current stop distance of axis
func (e *Engine) StopDistance(axis int) float64 { return e.stopDistance[axis] }

// JerkDistance returns the remaining distance of axis to the jerk point
func (e *Engine) JerkDistance(axis int) float64 { return e.jerkDistance[axis] }

// JerkOffset returns the distance reserved at the jerk point for axis
func (e *Engine) JerkOffset(axis int) float64 { return e.jerkOffset[axis] }

// DecelerationRequired reports the pending one-shot deceleration request
func (e *Engine) DecelerationRequired() bool { return e.decelerationRequired }

// PreviousDuration returns the duration of the last movement
func (e *Engine) PreviousDuration() float64 { return e.previousDuration }

// TargetSpeed returns the regulation speed of the loaded trajectory
func (e *Engine) TargetSpeed() float64 { return e.targetSpeed }

// LastWindow returns the time window of the last movement
func (e *Engine) LastWindow() Window { return e.window }
