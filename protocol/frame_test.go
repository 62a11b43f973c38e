package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestCRC16(t *testing.T) {
	if got := CRC16([]byte("123456789")); got != 0x6F91 {
		t.Errorf("CRC16 check value = %04X, want 6F91", got)
	}
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = %04X, want FFFF", got)
	}
	if CRC16([]byte{1, 2, 3}) == CRC16([]byte{1, 2, 4}) {
		t.Error("CRC16 collision on a one bit change")
	}
}

func TestAppendFrame(t *testing.T) {
	frame, err := AppendFrame(nil, 3, []byte{0xAA, 0xBB})
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 7 || frame[0] != 7 || frame[1] != 0x13 || frame[6] != SyncByte {
		t.Fatalf("unexpected frame %x", frame)
	}
	crc := CRC16(frame[:4])
	if frame[4] != byte(crc>>8) || frame[5] != byte(crc) {
		t.Errorf("trailer %x does not carry crc %04X", frame[4:6], crc)
	}

	if _, err := AppendFrame(nil, 0, make([]byte, PayloadMax+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized payload: %v", err)
	}
}

func TestEncoderDecoder(t *testing.T) {
	var stream bytes.Buffer
	enc := NewEncoder(&stream)
	payloads := [][]byte{{}, {1}, bytes.Repeat([]byte{SyncByte}, PayloadMax)}
	for i := 0; i < 20; i++ {
		payloads = append(payloads, []byte{byte(i), byte(i * 3)})
	}
	for _, p := range payloads {
		if err := enc.WriteFrame(p); err != nil {
			t.Fatal(err)
		}
	}

	dec := NewDecoder(iotest.OneByteReader(&stream))
	for i, want := range payloads {
		got, err := dec.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %x, want %x", i, got, want)
		}
	}
	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Errorf("end of stream: %v", err)
	}
	if dec.Dropped != 0 || dec.Gaps != 0 {
		t.Errorf("clean stream: dropped=%d gaps=%d", dec.Dropped, dec.Gaps)
	}
}

func TestDecoderResync(t *testing.T) {
	good1, _ := AppendFrame(nil, 0, []byte{1, 2, 3})
	bad, _ := AppendFrame(nil, 1, []byte{4, 5, 6})
	bad[3] ^= 0xFF
	good2, _ := AppendFrame(nil, 2, []byte{7})

	var stream []byte
	stream = append(stream, 0x01, 0x02)
	stream = append(stream, SyncByte)
	stream = append(stream, good1...)
	stream = append(stream, bad...)
	stream = append(stream, good2...)
	stream = append(stream, 9, SeqDest)

	dec := NewDecoder(bytes.NewReader(stream))
	var got [][]byte
	for {
		p, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, p)
	}

	if len(got) != 2 || !bytes.Equal(got[0], []byte{1, 2, 3}) || !bytes.Equal(got[1], []byte{7}) {
		t.Fatalf("decoded %x", got)
	}
	if dec.Gaps != 1 {
		t.Errorf("gaps = %d, want 1", dec.Gaps)
	}
	if dec.Dropped == 0 {
		t.Error("corrupt bytes were not counted")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("unplugged") }

func TestEncoderWriteError(t *testing.T) {
	enc := NewEncoder(failWriter{})
	if err := enc.WriteFrame([]byte{1}); err == nil {
		t.Fatal("expected write error")
	}
	if enc.seq != 0 {
		t.Error("sequence advanced on a failed write")
	}
}
