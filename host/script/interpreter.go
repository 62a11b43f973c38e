package script

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"stepcore/motion"
	"stepcore/motion/geometry"
	"stepcore/motion/trajectory"
)

// Target is the axis group a script drives
type Target interface {
	Dimension() int
	Geometry() geometry.Geometry
	Planned() []float64
	SetPlanned(position []float64) error
	NewLine(to []float64, speed float64) (*trajectory.Trajectory, error)
	Submit(t *trajectory.Trajectory) error
	Abort()

	// StopFits reports whether axis, entering a trajectory at speed, can
	// slow to its jerk speed within distance steps
	StopFits(axis int, speed, distance float64) bool
}

// defaultArcStep is the chord angle used when an arc gives no segment count
const defaultArcStep = 10.0 // degrees

// Interpreter runs commands against a Target. It holds back one
// trajectory so that the jerk point between two lines is only monitored
// on actuators that change direction there or could not stop on the next
// line.
type Interpreter struct {
	target Target
	log    *zap.Logger
	speed  float64

	pending    *trajectory.Trajectory
	pendingDir []int8
	// peak is the highest speed since the last full jerk point
	peak float64

	// Wait blocks until the target is idle; nil makes wait a flush
	Wait func() error

	Submitted int
	Skipped   int
	Blended   int // jerk monitoring bits cleared

	from, to []float64
}

// NewInterpreter creates an interpreter for target
func NewInterpreter(target Target, log *zap.Logger) *Interpreter {
	if log == nil {
		log = zap.NewNop()
	}
	dim := target.Dimension()
	return &Interpreter{
		target: target,
		log:    log,
		from:   make([]float64, dim),
		to:     make([]float64, dim),
	}
}

// Speed returns the current path speed (0: configured default)
func (i *Interpreter) Speed() float64 { return i.speed }

// Run executes cmds in order and flushes the held back trajectory
func (i *Interpreter) Run(cmds []Command) error {
	for idx := range cmds {
		if err := i.Execute(&cmds[idx]); err != nil {
			return fmt.Errorf("line %d: %w", cmds[idx].Line, err)
		}
	}
	return i.Flush()
}

// Execute runs one command
func (i *Interpreter) Execute(cmd *Command) error {
	switch cmd.Op {
	case OpSpeed:
		i.speed = cmd.Args[0]
		return nil
	case OpMove:
		return i.move(cmd.Args, false)
	case OpRel:
		return i.move(cmd.Args, true)
	case OpArc:
		return i.arc(cmd.Args)
	case OpWait:
		return i.wait()
	case OpOrigin:
		return i.origin(cmd.Args)
	case OpAbort:
		i.abort()
		return nil
	default:
		return fmt.Errorf("unsupported command %s", cmd.Op)
	}
}

func (i *Interpreter) move(args []float64, relative bool) error {
	if len(args) > i.target.Dimension() {
		return fmt.Errorf("%d coordinates for %d axes", len(args), i.target.Dimension())
	}
	to := i.target.Planned()
	for axis, v := range args {
		if relative {
			to[axis] += v
		} else {
			to[axis] = v
		}
	}
	return i.line(to)
}

func (i *Interpreter) arc(args []float64) error {
	if i.target.Dimension() < 2 {
		return errors.New("arc needs at least 2 axes")
	}
	start := i.target.Planned()
	cx, cy, degrees := args[0], args[1], args[2]
	radius := math.Hypot(start[0]-cx, start[1]-cy)
	if radius == 0 {
		return errors.New("arc start lies on its center")
	}

	segments := int(math.Ceil(math.Abs(degrees) / defaultArcStep))
	if len(args) == 4 {
		segments = int(args[3])
	}
	if segments < 1 {
		segments = 1
	}

	a0 := math.Atan2(start[1]-cy, start[0]-cx)
	sweep := degrees * math.Pi / 180
	to := append([]float64(nil), start...)
	for k := 1; k <= segments; k++ {
		a := a0 + sweep*float64(k)/float64(segments)
		to[0] = cx + radius*math.Cos(a)
		to[1] = cy + radius*math.Sin(a)
		if err := i.line(to); err != nil {
			return err
		}
	}
	return nil
}

// line creates the trajectory to to and submits the one held back
func (i *Interpreter) line(to []float64) error {
	copy(i.from, i.target.Planned())
	t, err := i.target.NewLine(to, i.speed)
	if errors.Is(err, motion.ErrTooShort) {
		i.Skipped++
		i.log.Debug("move below minimum movement skipped", zap.Float64s("to", to), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	dir := i.directions(i.from, to)
	if i.pending != nil {
		i.blend(t, dir)
		if err := i.submit(); err != nil {
			t.Release()
			return err
		}
	}
	i.pending = t
	i.pendingDir = dir
	return nil
}

// directions returns the sign of every actuator's travel from a to b
func (i *Interpreter) directions(a, b []float64) []int8 {
	dim := i.target.Dimension()
	ga := make([]float64, dim)
	gb := make([]float64, dim)
	i.target.Geometry().Convert(a, ga)
	i.target.Geometry().Convert(b, gb)

	dir := make([]int8, dim)
	for axis := range dir {
		switch d := gb[axis] - ga[axis]; {
		case d > 0:
			dir[axis] = 1
		case d < 0:
			dir[axis] = -1
		}
	}
	return dir
}

// blend stops monitoring the jerk point of the held back trajectory on
// actuators that keep moving the same way into next, as long as next is
// long enough for them to slow down from the speed they carry into it.
// Path speed bounds every actuator speed.
func (i *Interpreter) blend(next *trajectory.Trajectory, dir []int8) {
	i.peak = math.Max(i.peak, i.pending.Speed)
	speed := math.Max(i.peak, next.Speed)
	for axis, d := range i.pendingDir {
		if d == 0 || d != dir[axis] {
			continue
		}
		bit := uint32(1) << uint(axis)
		if i.pending.Jerk.Mask&bit == 0 {
			continue
		}
		if !i.target.StopFits(axis, speed, next.Jerk.Distance[axis]) {
			i.log.Debug("jerk point kept, next line too short to stop",
				zap.Int("axis", axis),
				zap.Float64("distance", next.Jerk.Distance[axis]),
				zap.Float64("speed", speed))
			continue
		}
		i.pending.Jerk.Mask &^= bit
		i.Blended++
	}
}

func (i *Interpreter) submit() error {
	t := i.pending
	i.pending = nil
	i.pendingDir = nil
	if err := i.target.Submit(t); err != nil {
		t.Release()
		return err
	}
	i.Submitted++
	i.log.Debug("trajectory submitted",
		zap.Uint32("id", t.ID),
		zap.Uint32("jerk_mask", t.Jerk.Mask),
		zap.Float64("speed", t.Speed))
	return nil
}

// Flush submits the held back trajectory, which then ends at a full
// jerk point
func (i *Interpreter) Flush() error {
	i.peak = 0
	if i.pending == nil {
		return nil
	}
	return i.submit()
}

func (i *Interpreter) wait() error {
	if err := i.Flush(); err != nil {
		return err
	}
	if i.Wait == nil {
		return nil
	}
	return i.Wait()
}

func (i *Interpreter) origin(args []float64) error {
	if len(args) > i.target.Dimension() {
		return fmt.Errorf("%d coordinates for %d axes", len(args), i.target.Dimension())
	}
	if err := i.wait(); err != nil {
		return err
	}
	position := make([]float64, i.target.Dimension())
	copy(position, args)
	return i.target.SetPlanned(position)
}

func (i *Interpreter) abort() {
	if i.pending != nil {
		i.pending.Release()
		i.pending = nil
		i.pendingDir = nil
	}
	i.peak = 0
	i.target.Abort()
	i.log.Warn("motion aborted")
}
