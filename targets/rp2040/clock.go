//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"stepcore/core"
)

// The RP2040 timer peripheral counts microseconds in 64 bits; the raw
// registers read without latching.
const (
	timerBase = 0x40054000
	timerHz   = 1000000
)

var (
	timerRawHigh = (*volatile.Register32)(unsafe.Pointer(uintptr(timerBase + 0x08)))
	timerRawLow  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerBase + 0x0C)))
)

// InitClock makes the microsecond timer the scheduler time base
func InitClock() {
	core.SetTimerFrequency(timerHz)
	SyncClock()
}

// SyncClock copies the low timer word into the scheduler. The scheduler
// compares wrap-safely, so 32 bits suffice.
func SyncClock() {
	core.SetTime(timerRawLow.Get())
}

// Uptime returns the whole 64 bit counter in microseconds. The high word
// is read twice to catch a carry between the two reads.
func Uptime() uint64 {
	for {
		hi := timerRawHigh.Get()
		lo := timerRawLow.Get()
		if timerRawHigh.Get() == hi {
			return uint64(hi)<<32 | uint64(lo)
		}
	}
}
