package core

import "sync/atomic"

// DefaultTimerFreq is the tick rate assumed until a target registers its own
const DefaultTimerFreq = 12000000 // 12MHz

var (
	timerFreq uint32 = DefaultTimerFreq

	// systemTicks is written by the target clock code (or a simulator) and
	// read from both the main loop and timer handlers.
	systemTicks atomic.Uint32
)

// SetTimerFrequency registers the tick rate of the platform timer
func SetTimerFrequency(hz uint32) {
	if hz == 0 {
		hz = DefaultTimerFreq
	}
	timerFreq = hz
}

// GetTimerFrequency returns the tick rate used for all tick conversions
func GetTimerFrequency() uint32 {
	return timerFreq
}

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime sets the current system time (for simulation/hardware integration)
func SetTime(ticks uint32) {
	systemTicks.Store(ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * uint64(timerFreq) / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / uint64(timerFreq))
}

// TicksFromSeconds converts a duration in seconds to timer ticks, rounding
// to the nearest tick and saturating at the uint32 range.
func TicksFromSeconds(seconds float64) uint32 {
	if seconds <= 0 {
		return 0
	}
	ticks := seconds*float64(timerFreq) + 0.5
	if ticks >= 4294967295 {
		return 4294967295
	}
	return uint32(ticks)
}

// SecondsFromTicks converts timer ticks to seconds
func SecondsFromTicks(ticks uint32) float64 {
	return float64(ticks) / float64(timerFreq)
}

// ProcessTimers runs every scheduled timer that is due at the current time.
// Targets call this from their main loop after refreshing the system time.
func ProcessTimers() {
	TimerDispatch(GetTime())
}
