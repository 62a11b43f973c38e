//go:build tinygo

// Package drivers adapts TinyGo device drivers to core.StepperBackend.
package drivers

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/easystepper"

	"stepcore/core"
	"stepcore/motion/config"
	"stepcore/targets/pio"
)

// full-step coil sequence
var sequence = [4][4]bool{
	{true, false, false, false},
	{false, true, false, false},
	{false, false, true, false},
	{false, false, false, true},
}

// FourWire drives a unipolar stepper (ULN2003 style) from the actuation
// interrupt. easystepper configures and releases the coils, but its Move
// sleeps between steps, so Step advances the coil sequence directly.
type FourWire struct {
	dev     *easystepper.Device
	pins    [4]machine.Pin
	phase   int
	reverse bool
	invert  bool
}

// NewFourWire creates the backend for the coils in cfg
func NewFourWire(cfg easystepper.DeviceConfig) (*FourWire, error) {
	dev, err := easystepper.New(cfg)
	if err != nil {
		return nil, errors.New("error creating stepper: " + err.Error())
	}
	return &FourWire{
		dev:  dev,
		pins: [4]machine.Pin{cfg.Pin1, cfg.Pin2, cfg.Pin3, cfg.Pin4},
	}, nil
}

// Init configures the coil pins. The step and dir pin numbers are unused;
// invertDir swaps the rotation sense.
func (f *FourWire) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	f.dev.Configure()
	f.invert = invertDir
	f.phase = 0
	f.energize()
	return nil
}

// Step advances one phase
func (f *FourWire) Step() {
	if f.reverse != f.invert {
		f.phase = (f.phase + len(sequence) - 1) % len(sequence)
	} else {
		f.phase = (f.phase + 1) % len(sequence)
	}
	f.energize()
}

func (f *FourWire) energize() {
	for i, pin := range f.pins {
		pin.Set(sequence[f.phase][i])
	}
}

// SetDirection selects the sense of the next phase change
func (f *FourWire) SetDirection(dir bool) {
	f.reverse = dir
}

// Stop releases the coils
func (f *FourWire) Stop() {
	f.dev.Off()
}

// GetName returns the backend name
func (f *FourWire) GetName() string {
	return "easystepper"
}

// GetInfo returns backend performance information
func (f *FourWire) GetInfo() core.StepperBackendInfo {
	return core.StepperBackendInfo{
		Name:          f.GetName(),
		MaxStepRate:   1000, // geared 28BYJ-48 class motors
		MinPulseNs:    0,
		TypicalJitter: 20000,
		CPUOverhead:   1,
	}
}

// NewBackends creates and initialises a FourWire backend per configured
// axis
func NewBackends(cfg *config.MachineConfig) ([]core.StepperBackend, error) {
	backends := make([]core.StepperBackend, 0, len(cfg.Axes))
	for _, axis := range cfg.Axes {
		if len(axis.CoilPins) != 4 {
			return nil, errors.New("axis " + axis.Name + ": fourwire needs 4 coil pins")
		}
		var pins [4]machine.Pin
		for i, name := range axis.CoilPins {
			n, err := pio.ParsePin(name)
			if err != nil {
				return nil, err
			}
			pins[i] = machine.Pin(n)
		}

		backend, err := NewFourWire(easystepper.DeviceConfig{
			Pin1: pins[0], Pin2: pins[1], Pin3: pins[2], Pin4: pins[3],
			StepCount: 200,
			RPM:       15, // only paces easystepper's own Move
			Mode:      easystepper.ModeFour,
		})
		if err != nil {
			return nil, err
		}
		if err := backend.Init(0, 0, axis.InvertStep, axis.InvertDir); err != nil {
			return nil, err
		}
		backends = append(backends, backend)
	}
	return backends, nil
}
