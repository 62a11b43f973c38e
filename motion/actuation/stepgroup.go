package actuation

import (
	"stepcore/core"
	"stepcore/motion/builder"
)

// StepGroup is a Driver that spreads the steps of every actuator evenly
// over the ticks of a movement (Bresenham DDA). The actuator with the
// most steps moves on every tick.
type StepGroup struct {
	backends  []core.StepperBackend
	steps     []uint32
	accum     []uint32
	reverse   []bool
	positions []int64
	total     uint32
	loaded    bool
}

// NewStepGroup creates a driver over one backend per actuator
func NewStepGroup(backends ...core.StepperBackend) *StepGroup {
	n := len(backends)
	return &StepGroup{
		backends:  backends,
		steps:     make([]uint32, n),
		accum:     make([]uint32, n),
		reverse:   make([]bool, n),
		positions: make([]int64, n),
	}
}

// Dimension returns the number of actuators
func (g *StepGroup) Dimension() int { return len(g.backends) }

// Load latches the step counts and directions of m. The returned period
// spreads the movement duration over its ticks, minimum one timer tick.
func (g *StepGroup) Load(m *builder.Movement) uint32 {
	total := m.StepCount()
	if total == 0 {
		total = 1
	}
	g.total = total

	for axis, backend := range g.backends {
		reverse := m.Reverse(axis)
		if !g.loaded || reverse != g.reverse[axis] {
			backend.SetDirection(reverse)
			g.reverse[axis] = reverse
		}
		g.steps[axis] = m.Steps[axis]
		g.accum[axis] = total / 2
	}
	g.loaded = true

	period := core.TicksFromSeconds(m.Duration) / total
	if period == 0 {
		period = 1
	}
	return period
}

// Step emits the steps due on this tick
func (g *StepGroup) Step() {
	for axis, backend := range g.backends {
		if g.steps[axis] == 0 {
			continue
		}
		g.accum[axis] += g.steps[axis]
		if g.accum[axis] < g.total {
			continue
		}
		g.accum[axis] -= g.total
		backend.Step()
		if g.reverse[axis] {
			g.positions[axis]--
		} else {
			g.positions[axis]++
		}
		core.CountStep()
	}
}

// Positions returns the signed step position of every actuator
func (g *StepGroup) Positions() []int64 {
	return append([]int64(nil), g.positions...)
}

// SetPosition overrides the step position of axis
func (g *StepGroup) SetPosition(axis int, steps int64) {
	g.positions[axis] = steps
}

// Halt stops every backend
func (g *StepGroup) Halt() {
	for _, backend := range g.backends {
		backend.Stop()
	}
}
