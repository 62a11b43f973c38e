package core

import "strconv"

// FaultCode identifies the invariant a fatal fault violated
type FaultCode uint8

const (
	FaultConfig          FaultCode = iota + 1 // invalid configuration value
	FaultDimension                            // curve/geometry/engine dimension mismatch
	FaultNonAffine                            // jerk distance of a non-affine trajectory
	FaultSegmentTooSmall                      // final segment at or below the minimum distance
	FaultProtocol                             // FINISHING with trajectories still queued
	FaultUnderrun                             // movement builder could not produce a movement
)

// String returns the short name of the fault code
func (c FaultCode) String() string {
	switch c {
	case FaultConfig:
		return "config"
	case FaultDimension:
		return "dimension"
	case FaultNonAffine:
		return "non-affine"
	case FaultSegmentTooSmall:
		return "segment-too-small"
	case FaultProtocol:
		return "protocol"
	case FaultUnderrun:
		return "underrun"
	default:
		return "unknown"
	}
}

// Fault describes an unrecoverable condition. Axis is -1 when the fault is
// not tied to one actuator.
type Fault struct {
	Code    FaultCode
	Message string
	Axis    int
	Index   float64
	Value   float64
}

// Error implements the error interface
func (f *Fault) Error() string {
	msg := "fault " + f.Code.String() + ": " + f.Message
	if f.Axis >= 0 {
		msg += " axis=" + strconv.Itoa(f.Axis)
	}
	msg += " index=" + strconv.FormatFloat(f.Index, 'g', 6, 64) +
		" value=" + strconv.FormatFloat(f.Value, 'g', 6, 64)
	return msg
}

// Panic halts the axis group: the fault is recorded in the timing ring,
// reported through the debug writer together with the ring contents, and
// raised as a panic carrying the *Fault.
func Panic(f *Fault) {
	RecordTiming(EvtFault, uint8(f.Code), GetTime(), uint32(f.Axis), 0)
	if debugPrintln != nil {
		debugPrintln("[FAULT] " + f.Error())
	}
	DumpTimingRing()
	panic(f)
}

// Fatal is shorthand for Panic with no actuator attached
func Fatal(code FaultCode, message string, index, value float64) {
	Panic(&Fault{Code: code, Message: message, Axis: -1, Index: index, Value: value})
}

// RecoverFault turns a Fault panic back into an error. Use it deferred at
// host boundaries:
//
//	defer core.RecoverFault(&err)
//
// Any other panic value is re-raised.
func RecoverFault(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(*Fault); ok {
		*err = f
		return
	}
	panic(r)
}
