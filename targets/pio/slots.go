package pio

// The RP2040 has two PIO blocks of four state machines each; slot n is
// state machine n%4 of block n/4
const pioSlots = 8

var (
	pioUsed [pioSlots]bool
	pioNext int
)

// allocatePIO hands out free state machines round-robin across both blocks
func allocatePIO() (block, sm uint8, ok bool) {
	for range pioSlots {
		n := pioNext
		pioNext = (pioNext + 1) % pioSlots
		// even n take block 0, odd n block 1
		slot := (n%2)*4 + n/2
		if !pioUsed[slot] {
			pioUsed[slot] = true
			return uint8(slot / 4), uint8(slot % 4), true
		}
	}
	return 0, 0, false
}

// ResetPIOAllocations releases every state machine
func ResetPIOAllocations() {
	pioUsed = [pioSlots]bool{}
	pioNext = 0
}
