package serial

import (
	"bytes"
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Buffer (for tests and dry runs)
type Port interface {
	io.ReadWriteCloser

	// Flush pushes buffered output to the device
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int

	// WriteBuffer is the size of the output buffer in bytes (0 = unbuffered)
	WriteBuffer int
}

// DefaultConfig returns a configuration suited to streaming step traces
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,  // 100ms read timeout
		WriteBuffer: 4096, // one trace burst
	}
}

// BufferPort is an in-memory Port
type BufferPort struct {
	In      bytes.Buffer
	Out     bytes.Buffer
	Flushes int
	Closed  bool
}

// Read reads queued input
func (p *BufferPort) Read(b []byte) (int, error) {
	if p.Closed {
		return 0, io.ErrClosedPipe
	}
	return p.In.Read(b)
}

// Write appends to the output buffer
func (p *BufferPort) Write(b []byte) (int, error) {
	if p.Closed {
		return 0, io.ErrClosedPipe
	}
	return p.Out.Write(b)
}

// Close marks the port closed
func (p *BufferPort) Close() error {
	p.Closed = true
	return nil
}

// Flush counts flushes
func (p *BufferPort) Flush() error {
	p.Flushes++
	return nil
}
