// Package actuation drives one axis group from a periodic timer interrupt.
// Every expiry performs one tick of the in-flight movement; when the
// movement is exhausted the next one is fetched from the controller,
// otherwise the spare time is spent on controller background work.
package actuation

import (
	"sync/atomic"

	"stepcore/core"
	"stepcore/motion/builder"
	"stepcore/motion/controller"
)

// State of the actuation layer
type State uint32

const (
	Stopped State = iota
	Paused
	Started
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Paused:
		return "PAUSED"
	case Started:
		return "STARTED"
	default:
		return "UNKNOWN"
	}
}

// Driver turns movements into physical steps. Both methods run in
// interrupt context and must not block.
type Driver interface {
	// Load prepares m for stepping and returns the timer period in ticks
	Load(m *builder.Movement) uint32

	// Step performs one tick of the loaded movement
	Step()
}

// Stats counts interrupts and movements executed
type Stats struct {
	Ticks     uint32
	Movements uint32
}

// Actuation owns the timer of one axis group
type Actuation struct {
	timer  core.HardwareTimer
	driver Driver
	ctrl   *controller.Controller

	state      atomic.Uint32
	remaining  uint32
	loaded     uint32 // step count of the in-flight movement
	pauseDepth int
	stats      Stats
}

// New creates a stopped actuation layer
func New(timer core.HardwareTimer, driver Driver) *Actuation {
	return &Actuation{timer: timer, driver: driver}
}

// State returns the actuation state
func (a *Actuation) State() State {
	return State(a.state.Load())
}

// Stats returns a copy of the counters
func (a *Actuation) Stats() Stats { return a.stats }

// Remaining returns the ticks left in the in-flight movement
func (a *Actuation) Remaining() uint32 { return a.remaining }

// Attach binds ctrl as the movement source and registers the layer as the
// controller's pauser. Stop drops the binding, so attach again before the
// next Start.
func (a *Actuation) Attach(ctrl *controller.Controller) {
	a.ctrl = ctrl
	ctrl.SetPauser(a)
}

// Controller returns the attached controller, nil when detached
func (a *Actuation) Controller() *controller.Controller { return a.ctrl }

// Start fetches the first movement from the attached controller and
// starts the timer. Returns false, staying STOPPED, when there is nothing
// to execute.
func (a *Actuation) Start() bool {
	if a.State() != Stopped {
		return true
	}
	if a.ctrl == nil {
		return false
	}
	m := a.ctrl.GetMovement()
	if m == nil {
		return false
	}
	a.load(m)
	a.state.Store(uint32(Started))

	a.timer.InterruptFlagClear()
	a.timer.InterruptEnable()
	a.timer.Start()
	core.RecordTiming(core.EvtActStart, 0, core.GetTime(), m.StepCount(), 0)
	return true
}

// Stop masks the interrupt and stops the timer. A movement cut short
// leaves the actuators wherever the last tick put them and is dropped
// from the controller, so a later Start resumes with the next movement
// and the group ends short of its target rather than past it.
func (a *Actuation) Stop() {
	a.timer.InterruptDisable()
	a.timer.InterruptFlagClear()
	a.timer.Stop()
	if a.ctrl != nil && a.remaining > 0 && a.remaining < a.loaded {
		a.ctrl.DiscardMovement()
	}
	a.ctrl = nil
	a.remaining = 0
	a.pauseDepth = 0
	a.state.Store(uint32(Stopped))
	core.RecordTiming(core.EvtActStop, 0, core.GetTime(), a.stats.Movements, a.stats.Ticks)
}

// Pause masks the actuation interrupt until the returned guard is
// released. The timer keeps counting. Pausing a stopped layer is a no-op.
func (a *Actuation) Pause() core.Guard {
	cs := core.Critical()
	defer cs.Release()

	switch a.State() {
	case Started:
		a.timer.InterruptDisable()
		a.state.Store(uint32(Paused))
	case Stopped:
		return core.NewGuard(nil)
	}
	a.pauseDepth++
	return core.NewGuard(a.resume)
}

func (a *Actuation) resume() {
	cs := core.Critical()
	defer cs.Release()

	if a.pauseDepth > 0 {
		a.pauseDepth--
	}
	if a.pauseDepth == 0 && a.State() == Paused {
		a.state.Store(uint32(Started))
		a.timer.InterruptEnable()
	}
}

// Handler is the timer interrupt service routine
func (a *Actuation) Handler() {
	a.timer.InterruptFlagClear()
	if a.State() != Started {
		return
	}

	if a.remaining > 0 {
		a.remaining--
	}
	a.driver.Step()
	a.stats.Ticks++

	if a.remaining == 0 {
		a.stats.Movements++
		a.ctrl.DiscardMovement()
		m := a.ctrl.GetMovement()
		if m == nil {
			a.Stop()
			return
		}
		a.load(m)
		return
	}
	a.ctrl.StepProcess()
}

func (a *Actuation) load(m *builder.Movement) {
	a.timer.SetPeriod(a.driver.Load(m))
	// A movement without steps still takes one tick, so its duration is
	// honoured as a dwell.
	a.remaining = m.StepCount()
	if a.remaining == 0 {
		a.remaining = 1
	}
	a.loaded = a.remaining
}
