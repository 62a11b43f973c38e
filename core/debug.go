package core

import "strconv"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a motion event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	OID       uint8  // Axis, verdict or fault code depending on the event
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtEnqueue        = 1  // trajectory queued
	EvtLoadTrajectory = 2  // trajectory handed to the movement builder
	EvtFinishTraj     = 3  // builder reached the trajectory end
	EvtMovement       = 4  // movement buffered (v1=steps, v2=duration us)
	EvtReject         = 5  // builder rejected a candidate (oid=verdict)
	EvtDecelForced    = 6  // stop distance crossed the jerk boundary (oid=axis)
	EvtUnderrun       = 7  // ring empty while trajectories remain
	EvtActStart       = 8  // actuation started (v1=period ticks)
	EvtActStop        = 9  // actuation stopped
	EvtFault          = 10 // fatal fault (oid=code, v1=axis)
	EvtAbort          = 11 // controller aborted
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  bool = true

	totalSteps uint32

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables DebugPrintln output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetTimingEnabled switches event capture on or off
func SetTimingEnabled(enabled bool) {
	timingEnabled = enabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Not for interrupt context; use DebugAsync there.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking).
// The message is dropped when the channel is full or not initialised.
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// CountStep records one physical step
func CountStep() {
	totalSteps++
}

// GetTotalStepCount returns the steps issued since boot
func GetTotalStepCount() uint32 {
	return totalSteps
}

// RecordTiming captures an event in the ring buffer. Safe from interrupt
// context: no allocation, no blocking.
func RecordTiming(eventType, oid uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		OID:       oid,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the captured events, oldest first
func TimingEvents() []TimingEvent {
	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

func eventName(t uint8) string {
	switch t {
	case EvtEnqueue:
		return "ENQUEUE"
	case EvtLoadTrajectory:
		return "LOAD_TRAJ"
	case EvtFinishTraj:
		return "FINISH_TRAJ"
	case EvtMovement:
		return "MOVEMENT"
	case EvtReject:
		return "REJECT"
	case EvtDecelForced:
		return "DECEL!"
	case EvtUnderrun:
		return "UNDERRUN!"
	case EvtActStart:
		return "ACT_START"
	case EvtActStop:
		return "ACT_STOP"
	case EvtFault:
		return "FAULT!"
	case EvtAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error)
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	debugPrintln("[TIMING] Total steps executed: " + strconv.FormatUint(uint64(totalSteps), 10))
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + eventName(evt.EventType) +
			" oid=" + strconv.Itoa(int(evt.OID)) +
			" clock=" + strconv.FormatUint(uint64(evt.Clock), 10) +
			" v1=" + strconv.FormatUint(uint64(evt.Value1), 10) +
			" v2=" + strconv.FormatUint(uint64(evt.Value2), 10))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
	totalSteps = 0
}
