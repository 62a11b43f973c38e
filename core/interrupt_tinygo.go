//go:build tinygo

package core

import "runtime/interrupt"

type irqState = interrupt.State

// disableInterrupts masks all interrupts and returns the previous mask
func disableInterrupts() irqState {
	return interrupt.Disable()
}

// restoreInterrupts puts back the mask returned by disableInterrupts
func restoreInterrupts(state irqState) {
	interrupt.Restore(state)
}

// CriticalDepth is not tracked on hardware
func CriticalDepth() int {
	return 0
}
