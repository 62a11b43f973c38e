//go:build rp2040

package pio

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"stepcore/core"
)

const (
	// pulseClkDiv runs the state machines at 125MHz / 16
	pulseClkDiv = 16

	// pulseHighCycles is the high phase of one pulse in state machine
	// cycles, about 1us at pulseClkDiv
	pulseHighCycles = 8
)

var errInvertedPIOStep = errors.New("pio step program cannot invert the step pin")

// stepProgram consumes EncodeCommand words: pulse count into X, spacing
// into Y, one direction bit onto the out pin, then X+1 pulses.
func stepProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestX, 16).Encode(),
		asm.Out(rp2pio.OutDestY, 8).Encode(),
		asm.Out(rp2pio.OutDestPins, 1).Encode(),
		// pulse:
		asm.Set(rp2pio.SetDestPins, 1).Delay(pulseHighCycles - 1).Encode(),
		asm.Set(rp2pio.SetDestPins, 0).Encode(),
		// spacing:
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(),
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),
	}
}

// programs tracks where the step program sits in each PIO block; the four
// state machines of a block share one copy
var programs [2]struct {
	loaded bool
	offset uint8
}

func blockOf(n uint8) *rp2pio.PIO {
	if n == 0 {
		return rp2pio.PIO0
	}
	return rp2pio.PIO1
}

// PIOBackend emits every step as a one pulse command to a PIO state
// machine, which times the pulse in hardware.
type PIOBackend struct {
	block   *rp2pio.PIO
	blockNo uint8
	sm      rp2pio.StateMachine

	reverse   bool
	invertDir bool
}

// NewPIOBackend binds state machine sm (0-3) of PIO block (0-1)
func NewPIOBackend(block, sm uint8) *PIOBackend {
	pio := blockOf(block)
	return &PIOBackend{block: pio, blockNo: block, sm: pio.StateMachine(sm)}
}

func (b *PIOBackend) loadProgram() (uint8, error) {
	p := &programs[b.blockNo]
	if !p.loaded {
		offset, err := b.block.AddProgram(stepProgram(), 0)
		if err != nil {
			return 0, err
		}
		p.offset, p.loaded = offset, true
	}
	return p.offset, nil
}

// Init claims the state machine and starts the step program with both pins
// low
func (b *PIOBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	if invertStep {
		return errInvertedPIOStep
	}
	b.invertDir = invertDir
	b.sm.TryClaim()

	offset, err := b.loadProgram()
	if err != nil {
		return err
	}

	step, dir := machine.Pin(stepPin), machine.Pin(dirPin)
	step.Configure(machine.PinConfig{Mode: b.block.PinMode()})
	dir.Configure(machine.PinConfig{Mode: b.block.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(step, 1)
	cfg.SetOutPins(dir, 1)
	// explicit pull, shift right
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(stepProgram()))-1, offset)
	cfg.SetClkDivIntFrac(pulseClkDiv, 0)

	// pin directions only stick after Init
	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(step, 1, true)
	b.sm.SetPindirsConsecutive(dir, 1, true)
	b.sm.SetPinsConsecutive(step, 1, false)
	b.sm.SetPinsConsecutive(dir, 1, false)
	b.sm.SetEnabled(true)
	return nil
}

// Step queues one pulse in the current direction. The TX FIFO drains
// within one pulse, so the wait is bounded.
func (b *PIOBackend) Step() {
	cmd := EncodeCommand(1, 0, b.reverse != b.invertDir)
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(cmd)
}

// SetDirection latches the direction of the following pulses
func (b *PIOBackend) SetDirection(reverse bool) {
	b.reverse = reverse
}

// Stop drops queued pulses and restarts the program
func (b *PIOBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
}

func (b *PIOBackend) GetName() string { return "pio" }

func (b *PIOBackend) GetInfo() core.StepperBackendInfo {
	return core.StepperBackendInfo{
		Name:          "pio",
		MaxStepRate:   250000,
		MinPulseNs:    1024,
		TypicalJitter: 10,
		CPUOverhead:   1,
	}
}
