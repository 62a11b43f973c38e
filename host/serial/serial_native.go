//go:build !wasm

package serial

import (
	"bufio"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	out  *bufio.Writer
	cfg  *Config
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	p := &NativePort{
		port: port,
		cfg:  cfg,
	}
	if cfg.WriteBuffer > 0 {
		p.out = bufio.NewWriterSize(port, cfg.WriteBuffer)
	}
	return p, nil
}

// Read reads data from the serial port
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port, through the output buffer when
// one is configured
func (p *NativePort) Write(b []byte) (int, error) {
	if p.out != nil {
		return p.out.Write(b)
	}
	return p.port.Write(b)
}

// Close flushes pending output and closes the serial port
func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}
	flushErr := p.Flush()
	if err := p.port.Close(); err != nil {
		return err
	}
	return flushErr
}

// Flush writes buffered output to the device
func (p *NativePort) Flush() error {
	if p.out == nil {
		return nil
	}
	return p.out.Flush()
}
