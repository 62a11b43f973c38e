// Package pio provides the RP2040 step backends: PIO state machines for
// jitter-free pulses and direct GPIO as the fallback.
package pio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxGPIO is the highest user GPIO of the RP2040
const MaxGPIO = 29

var ErrBadPin = errors.New("bad pin name")

// ParsePin converts a pin name ("gpio12", "GPIO12" or "12") to its number
func ParsePin(name string) (uint8, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > MaxGPIO {
		return 0, fmt.Errorf("%w: %q", ErrBadPin, name)
	}
	return uint8(n), nil
}

// Command word format of the PIO step program:
//
//	Bits 0-15:  pulse count minus one
//	Bits 16-23: delay cycles minus one (inter-pulse spacing)
//	Bit 24:     direction (0=forward, 1=reverse)
//
// The program shifts right: 16 bits into X, 8 into Y, then one bit onto the
// direction pin. Its jmp x-- and jmp y-- loops run one more time than the
// register value.
const dirBit = 24

// EncodeCommand builds the command word for count pulses (minimum 1)
// separated by delayCycles+1 delay loop iterations
func EncodeCommand(count uint16, delayCycles uint8, reverse bool) uint32 {
	if count == 0 {
		count = 1
	}
	cmd := uint32(count-1) | uint32(delayCycles)<<16
	if reverse {
		cmd |= 1 << dirBit
	}
	return cmd
}

// DecodeCommand splits a command word
func DecodeCommand(cmd uint32) (count uint16, delayCycles uint8, reverse bool) {
	return uint16(cmd) + 1, uint8(cmd >> 16), cmd&(1<<dirBit) != 0
}
