// Package controller queues trajectories and keeps a ring of ready
// movements ahead of the interrupt-driven consumer.
//
// Enqueue, Dequeue, Prime and Abort are main-line calls. GetMovement,
// DiscardMovement and StepProcess run in interrupt context. The trajectory
// queue is the only structure both sides touch; main-line mutations happen
// inside the actuation pause guard.
package controller

import (
	"errors"
	"fmt"
	"sync/atomic"

	"stepcore/core"
	"stepcore/motion/builder"
	"stepcore/motion/geometry"
	"stepcore/motion/kinematics"
	"stepcore/motion/trajectory"
)

// State of the controller
type State uint32

const (
	Stopped State = iota
	Started
	Finishing
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Started:
		return "STARTED"
	case Finishing:
		return "FINISHING"
	default:
		return "UNKNOWN"
	}
}

// underrunBudget bounds the synchronous work GetMovement may do when the
// ring ran dry while trajectories remain.
const underrunBudget = 256

var (
	ErrNilTrajectory      = errors.New("nil trajectory")
	ErrReleasedTrajectory = errors.New("trajectory was already released")
)

// Pauser masks the actuation interrupt for the lifetime of a Guard
type Pauser interface {
	Pause() core.Guard
}

// Stats counts controller activity since creation
type Stats struct {
	Trajectories uint32
	Movements    uint32
	Rejections   uint32
	Underruns    uint32
}

// Controller owns the trajectory queue, the movement builder and the ring
// of precomputed movements of one axis group.
type Controller struct {
	dim      int
	geometry geometry.Geometry
	bounds   geometry.Bounds
	kin      *kinematics.Engine
	builder  *builder.Builder
	ring     *Ring
	queue    trajectory.Queue
	pauser   Pauser

	state    atomic.Uint32
	current  *trajectory.Trajectory
	inFlight bool
	stats    Stats
}

// New creates a stopped controller
func New(geom geometry.Geometry, kin *kinematics.Engine, bounds geometry.Bounds, capacity int) (*Controller, error) {
	if geom.Dimension() != kin.Dimension() {
		return nil, fmt.Errorf("geometry dimension %d does not match kinematics dimension %d",
			geom.Dimension(), kin.Dimension())
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if capacity < 1 {
		return nil, fmt.Errorf("movement buffer needs at least one slot, got %d", capacity)
	}
	dim := geom.Dimension()
	return &Controller{
		dim:      dim,
		geometry: geom,
		bounds:   bounds,
		kin:      kin,
		builder:  builder.New(dim),
		ring:     NewRing(capacity, dim),
	}, nil
}

// SetPauser registers the actuation layer whose interrupt guards queue
// mutations
func (c *Controller) SetPauser(p Pauser) {
	c.pauser = p
}

func (c *Controller) pause() core.Guard {
	if c.pauser == nil {
		return core.Critical()
	}
	return c.pauser.Pause()
}

// State returns the controller state
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(uint32(s))
}

// Dimension returns the number of actuators
func (c *Controller) Dimension() int { return c.dim }

// Geometry returns the control-to-actuator transform
func (c *Controller) Geometry() geometry.Geometry { return c.geometry }

// Bounds returns the per-segment distance bounds
func (c *Controller) Bounds() geometry.Bounds { return c.bounds }

// Stats returns a copy of the activity counters
func (c *Controller) Stats() Stats { return c.stats }

// Buffered returns the number of ready movements
func (c *Controller) Buffered() int { return c.ring.Len() }

// Queued returns the number of trajectories waiting to be built
func (c *Controller) Queued() int {
	g := c.pause()
	defer g.Release()
	return c.queue.Len()
}

// Busy reports whether a trajectory is being built
func (c *Controller) Busy() bool { return c.current != nil }

// Enqueue appends t to the trajectory queue and starts the controller
func (c *Controller) Enqueue(t *trajectory.Trajectory) error {
	if t == nil {
		return ErrNilTrajectory
	}
	if t.Released() {
		return ErrReleasedTrajectory
	}
	if t.Curve.Dimension() != c.dim {
		return fmt.Errorf("trajectory %d: dimension %d does not match axis group dimension %d",
			t.ID, t.Curve.Dimension(), c.dim)
	}

	g := c.pause()
	defer g.Release()

	if err := c.queue.Push(t); err != nil {
		return fmt.Errorf("trajectory %d: %w", t.ID, err)
	}
	c.setState(Started)
	core.RecordTiming(core.EvtEnqueue, 0, core.GetTime(), t.ID, uint32(c.queue.Len()))
	return nil
}

// Dequeue removes t before the builder picked it up and releases it.
// Returns false when t is not queued (already being built or consumed).
func (c *Controller) Dequeue(t *trajectory.Trajectory) bool {
	g := c.pause()
	defer g.Release()

	if !c.queue.Remove(t) {
		return false
	}
	t.Release()
	return true
}

// GetMovement returns the oldest ready movement without removing it. It
// returns nil, and moves the controller to STOPPED, once a FINISHING
// controller has drained its ring.
func (c *Controller) GetMovement() *builder.Movement {
	for attempts := 0; c.ring.Empty(); attempts++ {
		switch c.State() {
		case Stopped:
			return nil
		case Finishing:
			if !c.queue.Empty() {
				core.Fatal(core.FaultProtocol, "controller finishing with trajectories queued",
					0, float64(c.queue.Len()))
			}
			c.setState(Stopped)
			return nil
		}
		if attempts == 0 {
			c.stats.Underruns++
			core.RecordTiming(core.EvtUnderrun, 0, core.GetTime(), uint32(c.queue.Len()), 0)
		}
		if attempts >= underrunBudget {
			core.Fatal(core.FaultUnderrun, "no movement after the underrun budget",
				c.builder.Monitor().Index, c.builder.MaxDistance())
		}
		c.StepProcess()
	}
	if c.State() == Finishing && !c.queue.Empty() {
		core.Fatal(core.FaultProtocol, "controller finishing with trajectories queued",
			0, float64(c.queue.Len()))
	}
	c.inFlight = true
	return c.ring.Peek()
}

// DiscardMovement removes the movement returned by GetMovement
func (c *Controller) DiscardMovement() {
	if !c.inFlight {
		return
	}
	c.ring.Discard()
	c.inFlight = false
}

// StepProcess performs one bounded quantum of background work: loading
// the next trajectory, or one discretisation attempt followed, when the
// attempt is accepted, by its kinematics.
func (c *Controller) StepProcess() {
	if c.State() == Stopped || c.ring.Full() {
		return
	}

	if c.current == nil {
		t := c.queue.PopDimension(c.dim)
		if t == nil {
			if c.State() == Started {
				c.setState(Finishing)
			}
			return
		}
		c.load(t)
		return
	}

	slot := c.ring.Reserve()
	verdict := c.builder.Attempt(slot)
	if verdict != builder.Accepted {
		c.stats.Rejections++
		core.RecordTiming(core.EvtReject, uint8(verdict), core.GetTime(),
			uint32(c.builder.MaxDistance()), c.current.ID)
		return
	}

	c.kin.ComputeMovementData(c.builder, slot)
	c.kin.UpdateJerkDistances(c.builder)
	c.kin.UpdateActuatorSpeeds(c.builder)
	c.ring.Commit()
	c.stats.Movements++
	core.RecordTiming(core.EvtMovement, 0, core.GetTime(), slot.StepCount(),
		uint32(slot.Duration*1e6))

	if c.builder.Finished() {
		c.finish()
	}
}

func (c *Controller) load(t *trajectory.Trajectory) {
	base := geometry.Base{Curve: t.Curve, Geometry: c.geometry, Bounds: c.bounds}
	c.builder.Init(base, t.BeginIncrement)
	c.kin.Load(&t.Jerk, !c.queue.Empty(), t.Speed)
	c.current = t
	c.stats.Trajectories++
	core.RecordTiming(core.EvtLoadTrajectory, 0, core.GetTime(), t.ID, uint32(c.queue.Len()))
}

func (c *Controller) finish() {
	t := c.current
	t.EndIncrement = c.builder.Increment()
	c.kin.Unload()
	c.current = nil
	core.RecordTiming(core.EvtFinishTraj, 0, core.GetTime(), t.ID, 0)
	t.Release()
}

// Prime runs StepProcess on the main line, before actuation starts, until
// the ring is full, there is nothing left to build, or limit quanta were
// spent. Returns the number of buffered movements.
func (c *Controller) Prime(limit int) int {
	for i := 0; i < limit && !c.ring.Full(); i++ {
		if c.State() != Started {
			break
		}
		c.StepProcess()
	}
	return c.ring.Len()
}

// Abort stops the controller from any state, releasing every queued and
// in-progress trajectory and dropping the buffered movements. The caller
// must have stopped actuation first.
func (c *Controller) Abort() {
	g := c.pause()
	defer g.Release()

	c.setState(Stopped)
	dropped := c.queue.Drain()
	if c.current != nil {
		c.current.Release()
		c.current = nil
		dropped++
	}
	c.ring.Reset()
	c.inFlight = false
	c.kin.Reset()
	core.RecordTiming(core.EvtAbort, 0, core.GetTime(), uint32(dropped), 0)
}
