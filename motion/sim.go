package motion

import (
	"errors"

	"stepcore/core"
)

// ErrStalled is returned when actuation runs without a scheduled timer
var ErrStalled = errors.New("actuation is running but no timer is scheduled")

// ErrEventLimit is returned when a simulation hits its event budget
var ErrEventLimit = errors.New("simulation event limit reached")

// Advance runs simulated time forward to until, dispatching every timer
// due on the way. Only valid when the system time is simulated.
func Advance(until uint32) (err error) {
	defer core.RecoverFault(&err)

	for {
		wake, ok := core.NextWake()
		if !ok || int32(wake-until) > 0 {
			break
		}
		core.SetTime(wake)
		core.ProcessTimers()
	}
	core.SetTime(until)
	return nil
}

// RunUntilIdle jumps simulated time from timer to timer until the group
// stops moving. maxEvents bounds the number of dispatches; zero means no
// bound. Returns the simulated ticks elapsed.
func (g *Group) RunUntilIdle(maxEvents int) (elapsed uint32, err error) {
	defer core.RecoverFault(&err)

	start := core.GetTime()
	for events := 0; g.Running(); events++ {
		if maxEvents > 0 && events >= maxEvents {
			return core.GetTime() - start, ErrEventLimit
		}
		wake, ok := core.NextWake()
		if !ok {
			return core.GetTime() - start, ErrStalled
		}
		if int32(wake-core.GetTime()) > 0 {
			core.SetTime(wake)
		}
		core.ProcessTimers()
	}
	return core.GetTime() - start, nil
}
