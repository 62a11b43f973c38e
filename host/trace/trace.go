// Package trace records the step stream of an axis group. The text format
// has one line per step:
//
//	<ticks> <axis> <position>
//
// where ticks is the system time of the step and position the signed step
// position after it. The binary format packs the same events into
// protocol frames, which suits serial links: per event the tick delta to
// the previous event, the axis index and the position, all VLQ encoded.
package trace

import (
	"fmt"
	"io"
	"strconv"

	"stepcore/core"
	"stepcore/protocol"
)

// Format selects the trace encoding
type Format uint8

const (
	Text Format = iota
	Binary
)

// ParseFormat converts "text" or "binary" to a Format
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "text":
		return Text, nil
	case "binary":
		return Binary, nil
	}
	return Text, fmt.Errorf("unknown trace format %q", s)
}

// eventMax bounds the encoded size of one binary event
const eventMax = 3 * protocol.MaxVLQLen

// Recorder serialises the steps of every backend it created
type Recorder struct {
	w      io.Writer
	format Format
	enc    *protocol.Encoder
	buf    []byte
	last   uint32
	axes   int
	lines  uint64
	frames uint64
	err    error
}

// NewRecorder creates a text recorder writing to w
func NewRecorder(w io.Writer) *Recorder {
	return NewRecorderFormat(w, Text)
}

// NewRecorderFormat creates a recorder with the given encoding
func NewRecorderFormat(w io.Writer, format Format) *Recorder {
	r := &Recorder{w: w, format: format, buf: make([]byte, 0, 64)}
	if format == Binary {
		r.enc = protocol.NewEncoder(w)
	}
	return r
}

// Backend creates the step backend of the next axis
func (r *Recorder) Backend(name string) *Backend {
	b := &Backend{CountingBackend: core.CountingBackend{Name: name}, rec: r, axis: r.axes}
	r.axes++
	return b
}

// Lines returns the number of events recorded
func (r *Recorder) Lines() uint64 { return r.lines }

// Frames returns the number of binary frames written
func (r *Recorder) Frames() uint64 { return r.frames }

// Err returns the first write error; later steps are not recorded
func (r *Recorder) Err() error { return r.err }

// Flush writes the pending binary frame
func (r *Recorder) Flush() error {
	if r.err != nil || r.format != Binary || len(r.buf) == 0 {
		return r.err
	}
	if err := r.enc.WriteFrame(r.buf); err != nil {
		r.err = err
		return err
	}
	r.buf = r.buf[:0]
	r.frames++
	return nil
}

func (r *Recorder) record(b *Backend) {
	if r.err != nil {
		return
	}
	now := core.GetTime()
	if r.format == Binary {
		if len(r.buf)+eventMax > protocol.PayloadMax && r.Flush() != nil {
			return
		}
		r.buf = protocol.AppendUVLQ(r.buf, now-r.last)
		r.buf = protocol.AppendUVLQ(r.buf, uint32(b.axis))
		r.buf = protocol.AppendVLQ(r.buf, int32(b.Position))
		r.last = now
		r.lines++
		return
	}

	r.buf = strconv.AppendUint(r.buf[:0], uint64(now), 10)
	r.buf = append(r.buf, ' ')
	r.buf = append(r.buf, b.GetName()...)
	r.buf = append(r.buf, ' ')
	r.buf = strconv.AppendInt(r.buf, b.Position, 10)
	r.buf = append(r.buf, '\n')
	if _, err := r.w.Write(r.buf); err != nil {
		r.err = err
		return
	}
	r.lines++
}

// Backend is a core.StepperBackend that counts and records its steps
type Backend struct {
	core.CountingBackend
	rec  *Recorder
	axis int
}

// Axis returns the index written to binary traces
func (b *Backend) Axis() int { return b.axis }

// Step counts the step and records it
func (b *Backend) Step() {
	b.CountingBackend.Step()
	b.rec.record(b)
}

// Event is one decoded binary trace entry
type Event struct {
	Ticks    uint32
	Axis     int
	Position int64
}

// ReadBinary decodes a binary trace. Corrupt frames are skipped; the
// returned count says how many bytes were dropped.
func ReadBinary(r io.Reader) ([]Event, int, error) {
	dec := protocol.NewDecoder(r)
	var (
		events []Event
		ticks  uint32
	)
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return events, dec.Dropped, nil
		}
		if err != nil {
			return events, dec.Dropped, err
		}
		for len(payload) > 0 {
			delta, err := protocol.ReadUVLQ(&payload)
			if err != nil {
				return events, dec.Dropped, err
			}
			axis, err := protocol.ReadUVLQ(&payload)
			if err != nil {
				return events, dec.Dropped, err
			}
			pos, err := protocol.ReadVLQ(&payload)
			if err != nil {
				return events, dec.Dropped, err
			}
			ticks += delta
			events = append(events, Event{Ticks: ticks, Axis: int(axis), Position: int64(pos)})
		}
	}
}
