package protocol

import "errors"

var (
	ErrInvalidVLQ = errors.New("invalid VLQ encoding")
	ErrShortVLQ   = errors.New("truncated VLQ")
)

// MaxVLQLen is the longest encoding of a 32 bit value
const MaxVLQLen = 5

// AppendVLQ appends the VLQ encoding of v to dst. Small negative values
// stay short: one byte covers -32..95.
func AppendVLQ(dst []byte, v int32) []byte {
	switch {
	case v < -(1<<26) || v >= 3<<26:
		dst = append(dst, byte(v>>28)&0x7F|0x80)
		fallthrough
	case v < -(1<<19) || v >= 3<<19:
		dst = append(dst, byte(v>>21)&0x7F|0x80)
		fallthrough
	case v < -(1<<12) || v >= 3<<12:
		dst = append(dst, byte(v>>14)&0x7F|0x80)
		fallthrough
	case v < -(1<<5) || v >= 3<<5:
		dst = append(dst, byte(v>>7)&0x7F|0x80)
	}
	return append(dst, byte(v)&0x7F)
}

// AppendUVLQ appends v as the VLQ of its two's complement
func AppendUVLQ(dst []byte, v uint32) []byte {
	return AppendVLQ(dst, int32(v))
}

// ReadVLQ decodes one value from the front of *data and advances it
func ReadVLQ(data *[]byte) (int32, error) {
	b := *data
	if len(b) == 0 {
		return 0, ErrShortVLQ
	}
	c := uint32(b[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	n := 1
	for ; c&0x80 != 0; n++ {
		if n >= len(b) {
			return 0, ErrShortVLQ
		}
		if n >= MaxVLQLen {
			return 0, ErrInvalidVLQ
		}
		c = uint32(b[n])
		v = v<<7 | c&0x7F
	}
	*data = b[n:]
	return int32(v), nil
}

// ReadUVLQ decodes an unsigned value written by AppendUVLQ
func ReadUVLQ(data *[]byte) (uint32, error) {
	v, err := ReadVLQ(data)
	return uint32(v), err
}
