package core

// StepperBackend defines the hardware abstraction for one actuator's
// step/direction outputs. Implementations can use GPIO, PIO, or other methods.
type StepperBackend interface {
	// Init initializes the stepper hardware
	// stepPin: GPIO pin for step pulses
	// dirPin: GPIO pin for direction signal
	// invertStep: invert step pin polarity
	// invertDir: invert direction pin polarity
	Init(stepPin, dirPin uint8, invertStep, invertDir bool) error

	// Step generates a single step pulse
	// Must handle pulse width timing internally
	// Should be fast (called from timer interrupt)
	Step()

	// SetDirection sets the direction output
	// dir: true = reverse, false = forward
	SetDirection(dir bool)

	// Stop immediately halts stepping
	Stop()

	// GetName returns backend implementation name
	GetName() string
}

// StepperBackendInfo provides information about available backends
type StepperBackendInfo struct {
	Name          string
	MaxStepRate   uint32 // Maximum steps/second per axis
	MinPulseNs    uint32 // Minimum step pulse width (ns)
	TypicalJitter uint32 // Typical timing jitter (ns)
	CPUOverhead   uint8  // CPU overhead percentage (0-100)
}

// InfoBackend is implemented by backends that can report their limits
type InfoBackend interface {
	GetInfo() StepperBackendInfo
}

// CountingBackend is a StepperBackend without hardware. It keeps a signed
// position, which makes it the backend of choice for simulation and tests.
type CountingBackend struct {
	Name     string
	Position int64
	Steps    uint32
	Reverse  bool
	Stopped  bool
}

// NewCountingBackend creates a CountingBackend labelled with name
func NewCountingBackend(name string) *CountingBackend {
	return &CountingBackend{Name: name}
}

func (b *CountingBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	return nil
}

func (b *CountingBackend) Step() {
	b.Steps++
	if b.Reverse {
		b.Position--
	} else {
		b.Position++
	}
}

func (b *CountingBackend) SetDirection(dir bool) {
	b.Reverse = dir
}

func (b *CountingBackend) Stop() {
	b.Stopped = true
}

func (b *CountingBackend) GetName() string {
	if b.Name == "" {
		return "counting"
	}
	return b.Name
}
