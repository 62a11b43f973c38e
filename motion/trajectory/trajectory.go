// Package trajectory holds queued path requests: a curve plus the jerk
// annotation the kinematics engine needs, linked into a FIFO.
package trajectory

import (
	"errors"
	"math"
	"sync/atomic"

	"stepcore/core"
	"stepcore/motion/geometry"
)

var ErrAlreadyQueued = errors.New("trajectory is already queued")

var nextID atomic.Uint32

// Trajectory is one queued path request. It is created by the producer,
// handed to the controller with Enqueue and released by the controller once
// every movement of it has been built.
type Trajectory struct {
	ID     uint32
	Curve  geometry.Curve
	Affine bool

	// BeginIncrement seeds the builder's index increment. EndIncrement is
	// the increment the builder had tuned itself to when it finished.
	BeginIncrement float64
	EndIncrement   float64

	// Speed is the target regulation speed in steps/s (0: group default)
	Speed float64

	Jerk Jerk

	// OnRelease runs once when the controller is done with the trajectory
	OnRelease func(*Trajectory)

	next     *Trajectory
	queued   bool
	released bool
}

// New creates a trajectory over base.Curve. A zero beginIncrement is
// derived so the first segment is close to the bounds target.
func New(base geometry.Base, affine bool, beginIncrement float64) (*Trajectory, error) {
	if err := base.CheckDimensions(); err != nil {
		return nil, err
	}
	t := &Trajectory{
		ID:             nextID.Add(1),
		Curve:          base.Curve,
		Affine:         affine,
		BeginIncrement: beginIncrement,
	}
	t.Jerk.Init(base, beginIncrement, affine)
	if t.BeginIncrement == 0 {
		t.BeginIncrement = DeriveIncrement(base, t.Jerk.MaxDistance())
	}
	return t, nil
}

// DeriveIncrement returns the index increment expected to produce a
// segment of base.Bounds.Target steps, assuming distance is spread evenly
// over the index range.
func DeriveIncrement(base geometry.Base, distance float64) float64 {
	span := base.Curve.Final() - base.Curve.Initial()
	if distance <= 0 || base.Bounds.Target <= 0 {
		return span
	}
	inc := span * base.Bounds.Target / distance
	if math.Abs(inc) > math.Abs(span) {
		return span
	}
	return inc
}

// Queued reports whether the trajectory is linked into a queue
func (t *Trajectory) Queued() bool {
	return t.queued
}

// Released reports whether Release has run
func (t *Trajectory) Released() bool {
	return t.released
}

// Release deletes the jerk data and runs OnRelease; later calls are no-ops
func (t *Trajectory) Release() {
	if t.released {
		return
	}
	t.released = true
	t.Jerk.Delete()
	if t.OnRelease != nil {
		t.OnRelease(t)
	}
}

// mustDimension halts when the trajectory does not fit an axis group
func (t *Trajectory) mustDimension(dim int) {
	if t.Curve.Dimension() != dim {
		core.Panic(&core.Fault{
			Code:    core.FaultDimension,
			Message: "trajectory dimension does not match axis group",
			Axis:    -1,
			Value:   float64(t.Curve.Dimension()),
		})
	}
}
