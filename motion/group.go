// Package motion wires the motion core of one axis group together: the
// geometry and kinematic model from the machine configuration, the
// trajectory controller, the step driver and the actuation timer.
package motion

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"stepcore/core"
	"stepcore/motion/actuation"
	"stepcore/motion/config"
	"stepcore/motion/controller"
	"stepcore/motion/geometry"
	"stepcore/motion/kinematics"
	"stepcore/motion/trajectory"
)

// primeBudget bounds the main-line pre-fill done before actuation starts
const primeBudget = 1024

var (
	ErrBusy     = errors.New("axis group is moving")
	ErrTooShort = errors.New("trajectory is shorter than the minimum movement")
)

// Stats aggregates the counters of one axis group
type Stats struct {
	Controller controller.Stats
	Actuation  actuation.Stats
	TimerFired uint32
	TimerMask  uint32
	Steps      uint32
}

// Group is one actuation axis group
type Group struct {
	config   *config.MachineConfig
	geometry geometry.Geometry
	engine   *kinematics.Engine
	ctrl     *controller.Controller
	timer    *core.SchedTimer
	steps    *actuation.StepGroup
	act      *actuation.Actuation

	planned []float64
	scratch []float64
	slow    []string
}

// NewGroup builds an axis group from cfg driving one backend per axis.
// The backends must already be initialised.
func NewGroup(cfg *config.MachineConfig, backends []core.StepperBackend) (g *Group, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(backends) != len(cfg.Axes) {
		return nil, fmt.Errorf("%d axes configured but %d step backends given", len(cfg.Axes), len(backends))
	}
	defer core.RecoverFault(&err)

	geom, err := cfg.NewGeometry()
	if err != nil {
		return nil, err
	}
	model, err := cfg.NewModel()
	if err != nil {
		return nil, err
	}
	dim := len(cfg.Axes)
	engine := kinematics.NewEngine(dim, model, cfg.Capabilities(), cfg.IncrementalMask(),
		cfg.TargetSpeed*cfg.SpeedScale())

	ctrl, err := controller.New(geom, engine, cfg.Bounds, cfg.BufferSize)
	if err != nil {
		return nil, err
	}

	steps := actuation.NewStepGroup(backends...)
	timer := core.NewSchedTimer(nil)
	act := actuation.New(timer, steps)
	timer.SetHandler(act.Handler)
	act.Attach(ctrl)

	var slow []string
	for i, b := range backends {
		if !stepRateOK(cfg, i, b) {
			slow = append(slow, cfg.Axes[i].Name)
		}
	}

	return &Group{
		slow:     slow,
		config:   cfg,
		geometry: geom,
		engine:   engine,
		ctrl:     ctrl,
		timer:    timer,
		steps:    steps,
		act:      act,
		planned:  make([]float64, dim),
		scratch:  make([]float64, dim),
	}, nil
}

// stepRateOK reports whether the backend of axis can pulse the target path
// speed. Backends that do not report limits always pass.
func stepRateOK(cfg *config.MachineConfig, axis int, b core.StepperBackend) bool {
	ib, ok := b.(core.InfoBackend)
	if !ok {
		return true
	}
	info := ib.GetInfo()
	rate := cfg.TargetSpeed * cfg.Axes[axis].StepsPerUnit
	if info.MaxStepRate == 0 || rate <= float64(info.MaxStepRate) {
		return true
	}
	core.DebugPrintln("[STEP] " + cfg.Axes[axis].Name + ": target speed needs " +
		strconv.FormatFloat(rate, 'f', 0, 64) + " steps/s, " + info.Name +
		" pulses at most " + strconv.FormatUint(uint64(info.MaxStepRate), 10))
	return false
}

// SlowAxes names the axes whose backend cannot reach the configured target
// speed. Moves on them still run; the speed is just not met.
func (g *Group) SlowAxes() []string { return g.slow }

// Config returns the machine configuration
func (g *Group) Config() *config.MachineConfig { return g.config }

// Dimension returns the number of axes
func (g *Group) Dimension() int { return len(g.planned) }

// Controller returns the trajectory controller
func (g *Group) Controller() *controller.Controller { return g.ctrl }

// Actuation returns the actuation layer
func (g *Group) Actuation() *actuation.Actuation { return g.act }

// Geometry returns the control-to-actuator transform
func (g *Group) Geometry() geometry.Geometry { return g.geometry }

// Engine returns the kinematics engine
func (g *Group) Engine() *kinematics.Engine { return g.engine }

// Planned returns the end point of the last created trajectory
func (g *Group) Planned() []float64 {
	return append([]float64(nil), g.planned...)
}

// SetPlanned sets the control-space start of the next trajectory. The
// group must be idle.
func (g *Group) SetPlanned(position []float64) error {
	if g.Running() {
		return ErrBusy
	}
	if len(position) != len(g.planned) {
		return fmt.Errorf("position has %d axes, group has %d", len(position), len(g.planned))
	}
	copy(g.planned, position)
	return nil
}

// NewLine creates a straight trajectory from the end of the previously
// created trajectory to to. speed is in units/s along the control path;
// zero selects the configured target speed.
func (g *Group) NewLine(to []float64, speed float64) (*trajectory.Trajectory, error) {
	line, err := geometry.NewLine(g.planned, to)
	if err != nil {
		return nil, err
	}
	return g.NewTrajectory(line, true, speed)
}

// NewTrajectory wraps curve into a trajectory of this group. A curve that
// is not affine cannot be annotated; the fault is returned as the error.
func (g *Group) NewTrajectory(curve geometry.Curve, affine bool, speed float64) (t *trajectory.Trajectory, err error) {
	defer core.RecoverFault(&err)

	base := geometry.Base{Curve: curve, Geometry: g.geometry, Bounds: g.config.Bounds}
	t, err = trajectory.New(base, affine, 0)
	if err != nil {
		return nil, err
	}
	// The last movement of a trajectory must exceed Min, so a trajectory
	// that short could never be discretised.
	if d := t.Jerk.MaxDistance(); d <= g.config.Bounds.Min {
		t.Release()
		return nil, fmt.Errorf("%w: %g steps", ErrTooShort, d)
	}
	if speed <= 0 {
		speed = g.config.TargetSpeed
	}
	curve.Evaluate(curve.Final(), g.scratch)
	t.Speed = speed * g.pathScale(curve, affine, t.Jerk.Distance)
	copy(g.planned, g.scratch)
	return t, nil
}

// pathScale converts a control-space speed along curve into the actuator
// path speed the engine runs at. g.scratch must hold the curve end.
// Curves that are not affine fall back to the first axis scale.
func (g *Group) pathScale(curve geometry.Curve, affine bool, distance []float64) float64 {
	if !affine {
		return g.config.SpeedScale()
	}
	start := make([]float64, len(g.scratch))
	curve.Evaluate(curve.Initial(), start)
	var control, actuator float64
	for axis := range start {
		d := g.scratch[axis] - start[axis]
		control += d * d
		actuator += distance[axis] * distance[axis]
	}
	if control == 0 {
		return g.config.SpeedScale()
	}
	return math.Sqrt(actuator / control)
}

// StopFits reports whether axis, entering a trajectory of distance steps
// at speed, can reach its jerk speed before the trajectory ends. The
// engine reacts one movement late, so the longest movement is held back.
func (g *Group) StopFits(axis int, speed, distance float64) bool {
	return g.engine.StopFits(axis, speed, distance-g.config.Bounds.Max)
}

// Submit queues t and starts actuation when the group is idle
func (g *Group) Submit(t *trajectory.Trajectory) error {
	if err := g.ctrl.Enqueue(t); err != nil {
		return err
	}
	if g.act.State() != actuation.Stopped {
		return nil
	}
	g.ctrl.Prime(primeBudget)
	if g.act.Controller() == nil {
		g.act.Attach(g.ctrl)
	}
	g.act.Start()
	return nil
}

// Cancel removes t if it has not been picked up yet
func (g *Group) Cancel(t *trajectory.Trajectory) bool {
	return g.ctrl.Dequeue(t)
}

// Running reports whether the actuation timer is active
func (g *Group) Running() bool {
	return g.act.State() != actuation.Stopped
}

// Idle reports whether nothing is moving or waiting to move
func (g *Group) Idle() bool {
	return !g.Running() && g.ctrl.State() == controller.Stopped
}

// Abort stops the actuators wherever they are and drops every pending
// trajectory. The planned position is not rewound; call SetPlanned once
// the real position is known.
func (g *Group) Abort() {
	g.act.Stop()
	g.ctrl.Abort()
	g.steps.Halt()
}

// Positions returns the step position of every actuator
func (g *Group) Positions() []int64 {
	return g.steps.Positions()
}

// Stats returns the counters of the group
func (g *Group) Stats() Stats {
	return Stats{
		Controller: g.ctrl.Stats(),
		Actuation:  g.act.Stats(),
		TimerFired: g.timer.Fired,
		TimerMask:  g.timer.Masked,
		Steps:      core.GetTotalStepCount(),
	}
}
