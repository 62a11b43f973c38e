// Package builder discretises a curve into bounded Movements, adapting its
// index increment so that segments trend toward the target step count.
package builder

import (
	"math"

	"stepcore/core"
	"stepcore/motion/geometry"
)

// Verdict is the result of one discretisation attempt
type Verdict uint8

const (
	Accepted Verdict = iota
	TooBig
	TooSmall
)

// String returns the verdict name
func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case TooBig:
		return "too-big"
	case TooSmall:
		return "too-small"
	default:
		return "unknown"
	}
}

// Builder discretises one trajectory at a time. All buffers are allocated
// by New, so Attempt never allocates.
type Builder struct {
	base    geometry.Base
	monitor IndexMonitor
	dim     int

	// control is the scratch control-space destination
	control []float64

	// positions is an arena of two actuator positions; current selects the
	// committed one, the other receives the candidate.
	positions [2][]float64
	current   int

	distances   []float64
	maxDistance float64
	finished    bool
}

// New allocates a builder for dim actuators
func New(dim int) *Builder {
	return &Builder{
		dim:       dim,
		control:   make([]float64, dim),
		positions: [2][]float64{make([]float64, dim), make([]float64, dim)},
		distances: make([]float64, dim),
	}
}

// Dimension returns the number of actuators
func (b *Builder) Dimension() int {
	return b.dim
}

// Init starts discretising base.Curve from its initial index
func (b *Builder) Init(base geometry.Base, increment float64) {
	if base.Dimension() != b.dim {
		core.Panic(&core.Fault{
			Code:    core.FaultDimension,
			Message: "curve dimension does not match builder",
			Axis:    -1,
			Value:   float64(base.Dimension()),
		})
	}
	b.base = base
	b.monitor.Init(base.Curve.Initial(), base.Curve.Final(), increment)
	b.current = 0
	b.maxDistance = 0
	b.finished = false
	for i := range b.distances {
		b.distances[i] = 0
	}
	geometry.EvaluateAndConvertInto(base, b.monitor.Index, b.control, b.positions[b.current])
}

// Attempt proposes the next segment and fills m with its step counts and
// directions. On Accepted the builder state advances; on TooBig or
// TooSmall nothing but the increment changes, so the caller simply tries
// again.
func (b *Builder) Attempt(m *Movement) Verdict {
	b.monitor.ComputeIndex()

	next := b.positions[1-b.current]
	geometry.EvaluateAndConvertInto(b.base, b.monitor.Candidate, b.control, next)

	b.computeDistances(m, b.positions[b.current], next)

	verdict := b.validate()
	if verdict == Accepted {
		b.current = 1 - b.current
		b.monitor.Commit()
		if b.monitor.LimitReached {
			b.finished = true
		}
	}
	return verdict
}

// computeDistances records the signed float distance of every actuator,
// the direction bits and the integer step counts. Steps are taken between
// floored absolute positions so that truncation never accumulates along
// the trajectory.
func (b *Builder) computeDistances(m *Movement, current, next []float64) {
	b.maxDistance = 0
	m.Direction = 0
	m.Duration = 0
	for axis := 0; axis < b.dim; axis++ {
		d := next[axis] - current[axis]
		if d < 0 {
			m.Direction |= 1 << uint(axis)
			d = -d
		}
		b.distances[axis] = d
		if d > b.maxDistance {
			b.maxDistance = d
		}

		steps := math.Floor(next[axis]) - math.Floor(current[axis])
		if steps < 0 {
			steps = -steps
		}
		m.Steps[axis] = uint32(steps)
	}
}

// validate checks the candidate against the bounds and retunes the
// increment. A final segment is accepted even when it exceeds Max so that
// every trajectory terminates.
func (b *Builder) validate() Verdict {
	bounds := b.base.Bounds
	atLimit := b.monitor.LimitReached

	switch {
	case b.maxDistance >= bounds.Max && !atLimit:
		b.correct()
		return TooBig
	case b.maxDistance <= bounds.Min && atLimit:
		core.Fatal(core.FaultSegmentTooSmall, "final segment is below the minimum distance",
			b.monitor.Candidate, b.maxDistance)
		return TooSmall
	case b.maxDistance <= bounds.Min:
		b.correct()
		return TooSmall
	}
	b.correct()
	return Accepted
}

// correct rescales the increment by target/max (single-sample
// proportional control)
func (b *Builder) correct() {
	target := b.base.Bounds.Target
	switch {
	case b.maxDistance == 0:
		b.monitor.Scale(2)
	case b.maxDistance != target:
		b.monitor.Scale(target / b.maxDistance)
	}
}

// Finished reports whether the last accepted segment reached the limit
func (b *Builder) Finished() bool {
	return b.finished
}

// Distances returns the absolute per-actuator distances of the last
// attempt. The slice is owned by the builder.
func (b *Builder) Distances() []float64 {
	return b.distances
}

// MaxDistance returns the largest absolute distance of the last attempt
func (b *Builder) MaxDistance() float64 {
	return b.maxDistance
}

// PathDistance returns the group path length of the last attempt, the
// Euclidean norm of the actuator distances
func (b *Builder) PathDistance() float64 {
	sum := 0.0
	for _, d := range b.distances {
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Increment returns the current index increment
func (b *Builder) Increment() float64 {
	return b.monitor.Increment
}

// Monitor returns a copy of the index cursor
func (b *Builder) Monitor() IndexMonitor {
	return b.monitor
}

// Position returns the committed actuator position (owned by the builder)
func (b *Builder) Position() []float64 {
	return b.positions[b.current]
}
