package protocol

import (
	"errors"
	"fmt"
	"io"
)

var ErrPayloadTooLarge = errors.New("payload does not fit in one frame")

// CRC16 is the CRC-16/MCRF4XX variant used by the frame trailer
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= byte(crc)
		b ^= b << 4
		w := uint16(b)
		crc = (w<<8 | crc>>8) ^ w>>4 ^ w<<3
	}
	return crc
}

// AppendFrame appends one complete frame carrying payload to dst
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > PayloadMax {
		return dst, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	start := len(dst)
	dst = append(dst, byte(len(payload)+FrameMin), SeqDest|seq&SeqMask)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), SyncByte), nil
}

// Encoder writes numbered frames to w
type Encoder struct {
	w   io.Writer
	seq uint8
	buf []byte
}

// NewEncoder creates an encoder whose first frame has sequence 0
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, buf: make([]byte, 0, FrameMax)}
}

// WriteFrame frames payload and writes it in a single Write call
func (e *Encoder) WriteFrame(payload []byte) error {
	frame, err := AppendFrame(e.buf[:0], e.seq, payload)
	if err != nil {
		return err
	}
	e.buf = frame
	if _, err := e.w.Write(frame); err != nil {
		return err
	}
	e.seq = (e.seq + 1) & SeqMask
	return nil
}

// Decoder reads frames from r. Corrupt bytes are skipped up to the next
// sync byte and counted in Dropped; sequence gaps are counted in Gaps.
type Decoder struct {
	r       io.Reader
	buf     []byte
	chunk   []byte
	synced  bool
	nextSeq uint8
	started bool
	eof     bool

	Dropped int
	Gaps    int
}

// NewDecoder creates a decoder over r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, chunk: make([]byte, 256), synced: true}
}

// ReadFrame returns a copy of the payload of the next valid frame. At the
// end of the stream it returns io.EOF; a trailing partial frame counts as
// dropped.
func (d *Decoder) ReadFrame() ([]byte, error) {
	for {
		if payload, ok := d.next(); ok {
			return payload, nil
		}
		if d.eof {
			if len(d.buf) > 0 {
				d.Dropped += len(d.buf)
				d.buf = d.buf[:0]
			}
			return nil, io.EOF
		}
		n, err := d.r.Read(d.chunk)
		d.buf = append(d.buf, d.chunk[:n]...)
		if errors.Is(err, io.EOF) {
			d.eof = true
		} else if err != nil {
			return nil, err
		}
	}
}

// next extracts one frame from the buffer when a complete one is there
func (d *Decoder) next() ([]byte, bool) {
	for len(d.buf) > 0 {
		if !d.synced {
			i := indexSync(d.buf)
			if i < 0 {
				d.Dropped += len(d.buf)
				d.buf = d.buf[:0]
				return nil, false
			}
			d.Dropped += i
			d.consume(i + 1)
			d.synced = true
			continue
		}
		if d.buf[0] == SyncByte {
			d.consume(1)
			continue
		}
		if len(d.buf) < FrameHeader {
			return nil, false
		}
		size := int(d.buf[0])
		if size < FrameMin || size > FrameMax || d.buf[1]&^SeqMask != SeqDest {
			d.synced = false
			continue
		}
		if len(d.buf) < size {
			return nil, false
		}
		frame := d.buf[:size]
		crc := uint16(frame[size-3])<<8 | uint16(frame[size-2])
		if frame[size-1] != SyncByte || crc != CRC16(frame[:size-FrameTrailer]) {
			d.synced = false
			continue
		}

		seq := frame[1] & SeqMask
		if d.started && seq != d.nextSeq {
			d.Gaps++
		}
		d.started = true
		d.nextSeq = (seq + 1) & SeqMask

		payload := append([]byte(nil), frame[FrameHeader:size-FrameTrailer]...)
		d.consume(size)
		return payload, true
	}
	return nil, false
}

func (d *Decoder) consume(n int) {
	d.buf = d.buf[:copy(d.buf, d.buf[n:])]
}

func indexSync(b []byte) int {
	for i, c := range b {
		if c == SyncByte {
			return i
		}
	}
	return -1
}
