//go:build rp2040

package pio

import (
	"stepcore/core"
	"stepcore/motion/config"
)

// NewBackends creates and initialises one step backend per configured
// axis. With the "pio" backend, axes fall back to GPIO once the state
// machines run out or when the step pin is inverted.
func NewBackends(cfg *config.MachineConfig) ([]core.StepperBackend, error) {
	backends := make([]core.StepperBackend, 0, len(cfg.Axes))
	for _, axis := range cfg.Axes {
		stepPin, err := ParsePin(axis.StepPin)
		if err != nil {
			return nil, err
		}
		dirPin, err := ParsePin(axis.DirPin)
		if err != nil {
			return nil, err
		}

		var backend core.StepperBackend
		if cfg.Backend == "pio" && !axis.InvertStep {
			if block, sm, ok := allocatePIO(); ok {
				backend = NewPIOBackend(block, sm)
			}
		}
		if backend == nil {
			backend = NewGPIOBackend()
		}

		if err := backend.Init(stepPin, dirPin, axis.InvertStep, axis.InvertDir); err != nil {
			return nil, err
		}
		core.DebugPrintln("[STEP] " + axis.Name + " on " + backend.GetName())
		backends = append(backends, backend)
	}
	return backends, nil
}
