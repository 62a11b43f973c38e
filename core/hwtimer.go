package core

// HardwareTimer is the periodic timer that paces step generation.
// Implementations must be callable from interrupt context.
type HardwareTimer interface {
	// SetPeriod sets the interval between interrupts in timer ticks
	SetPeriod(ticks uint32)

	// Start starts counting; the first interrupt fires one period later
	Start()

	// Stop stops counting and cancels any pending expiry
	Stop()

	// InterruptEnable unmasks the timer interrupt
	InterruptEnable()

	// InterruptDisable masks the timer interrupt; the timer keeps running
	// and expiries only raise the pending flag
	InterruptDisable()

	// InterruptFlagClear acknowledges a pending expiry
	InterruptFlagClear()
}

// SchedTimer implements HardwareTimer on top of the timer list, so the
// "interrupt" runs from TimerDispatch in the main loop. This is how the
// firmware drives steppers without a dedicated hardware alarm, and how the
// host simulator advances time.
type SchedTimer struct {
	timer     Timer
	handler   func()
	period    uint32
	running   bool
	enabled   bool
	pending   bool
	scheduled bool

	// Fired counts delivered interrupts, Masked counts expiries that hit a
	// masked interrupt.
	Fired  uint32
	Masked uint32
}

// NewSchedTimer creates a stopped timer that calls handler on expiry
func NewSchedTimer(handler func()) *SchedTimer {
	s := &SchedTimer{handler: handler, period: 1}
	s.timer.Handler = s.event
	return s
}

// SetHandler replaces the interrupt handler
func (s *SchedTimer) SetHandler(handler func()) {
	s.handler = handler
}

// SetPeriod sets the interval between expiries, minimum one tick
func (s *SchedTimer) SetPeriod(ticks uint32) {
	if ticks == 0 {
		ticks = 1
	}
	s.period = ticks
}

// Period returns the current interval in ticks
func (s *SchedTimer) Period() uint32 {
	return s.period
}

// Start schedules the first expiry one period from now
func (s *SchedTimer) Start() {
	if s.running {
		return
	}
	s.running = true
	if !s.scheduled {
		s.scheduled = true
		s.timer.WakeTime = GetTime() + s.period
		ScheduleTimer(&s.timer)
	}
}

// Stop cancels the next expiry
func (s *SchedTimer) Stop() {
	s.running = false
	if s.scheduled && CancelTimer(&s.timer) {
		s.scheduled = false
	}
}

// InterruptEnable unmasks the handler
func (s *SchedTimer) InterruptEnable() {
	s.enabled = true
}

// InterruptDisable masks the handler
func (s *SchedTimer) InterruptDisable() {
	s.enabled = false
}

// InterruptFlagClear acknowledges the pending expiry
func (s *SchedTimer) InterruptFlagClear() {
	s.pending = false
}

// Running reports whether the timer is counting
func (s *SchedTimer) Running() bool {
	return s.running
}

// Enabled reports whether the interrupt is unmasked
func (s *SchedTimer) Enabled() bool {
	return s.enabled
}

// Pending reports whether an expiry has not been acknowledged
func (s *SchedTimer) Pending() bool {
	return s.pending
}

// event is the timer-list callback
func (s *SchedTimer) event(t *Timer) uint8 {
	// Popped from the list by TimerDispatch
	s.scheduled = false
	if !s.running {
		return SF_DONE
	}

	s.pending = true
	if s.enabled && s.handler != nil {
		s.Fired++
		s.handler()
	} else {
		s.Masked++
	}

	// The handler may have stopped the timer, or stopped and restarted it
	// (which already put the node back on the list).
	if !s.running || s.scheduled {
		return SF_DONE
	}
	s.scheduled = true
	t.WakeTime += s.period
	return SF_RESCHEDULE
}
