//go:build !tinygo

package core

import "sync/atomic"

// irqState mirrors interrupt.State on hosted Go builds
type irqState uintptr

// criticalDepth counts open critical sections so tests can check that
// every disable has a matching restore.
var criticalDepth atomic.Int32

// disableInterrupts only tracks nesting on regular Go (for testing)
func disableInterrupts() irqState {
	return irqState(criticalDepth.Add(1))
}

// restoreInterrupts closes the section opened by disableInterrupts
func restoreInterrupts(state irqState) {
	criticalDepth.Add(-1)
}

// CriticalDepth reports how many critical sections are currently open
func CriticalDepth() int {
	return int(criticalDepth.Load())
}
