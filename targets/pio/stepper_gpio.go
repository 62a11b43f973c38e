//go:build rp2040

package pio

import (
	"device/arm"
	"device/rp"
	"machine"
	"runtime/volatile"

	"stepcore/core"
)

// GPIOBackend pulses the step pin through SIO from the actuation
// interrupt. It is the fallback when no PIO state machine is free and the
// only backend supporting an inverted step pin.
type GPIOBackend struct {
	// active and idle write the step pin to its pulse and rest levels
	active, idle *volatile.Register32
	stepMask     uint32
	dirMask      uint32
	invertDir    bool
}

func NewGPIOBackend() *GPIOBackend {
	return &GPIOBackend{}
}

// Init configures both pins as outputs at their rest levels
func (b *GPIOBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	step, dir := machine.Pin(stepPin), machine.Pin(dirPin)
	step.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dir.Configure(machine.PinConfig{Mode: machine.PinOutput})

	b.stepMask = 1 << stepPin
	b.dirMask = 1 << dirPin
	b.invertDir = invertDir
	// an inverted step pin is active low
	b.active, b.idle = &rp.SIO.GPIO_OUT_SET, &rp.SIO.GPIO_OUT_CLR
	if invertStep {
		b.active, b.idle = b.idle, b.active
	}

	step.Set(invertStep)
	dir.Set(invertDir)
	return nil
}

// Step emits one pulse of about 104ns at 125MHz, the minimum width of
// Trinamic drivers
func (b *GPIOBackend) Step() {
	b.active.Set(b.stepMask)
	arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")
	b.idle.Set(b.stepMask)
}

// SetDirection drives the direction pin and waits out the 20ns
// dir-to-step setup time
func (b *GPIOBackend) SetDirection(reverse bool) {
	if reverse != b.invertDir {
		rp.SIO.GPIO_OUT_SET.Set(b.dirMask)
	} else {
		rp.SIO.GPIO_OUT_CLR.Set(b.dirMask)
	}
	arm.Asm("nop\nnop\nnop")
}

func (b *GPIOBackend) Stop() {
	if b.idle != nil {
		b.idle.Set(b.stepMask)
	}
}

func (b *GPIOBackend) GetName() string { return "gpio" }

func (b *GPIOBackend) GetInfo() core.StepperBackendInfo {
	return core.StepperBackendInfo{
		Name:          "gpio",
		MaxStepRate:   200000,
		MinPulseNs:    200,
		TypicalJitter: 500,
		CPUOverhead:   15,
	}
}
