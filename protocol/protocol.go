// Package protocol frames binary streams for serial links. A frame is
//
//	<len> <seq> <payload...> <crc hi> <crc lo> <0x7E>
//
// where len counts the whole frame, seq carries a 4 bit sequence number
// under the 0x10 destination marker and the CRC16 covers len, seq and the
// payload. Integers inside payloads are VLQ encoded.
package protocol

// Frame layout
const (
	FrameHeader  = 2
	FrameTrailer = 3
	FrameMin     = FrameHeader + FrameTrailer
	FrameMax     = 64
	PayloadMax   = FrameMax - FrameMin

	SyncByte = 0x7E
	SeqDest  = 0x10
	SeqMask  = 0x0F
)
