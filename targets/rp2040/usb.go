//go:build rp2040

package main

import "machine"

// InitUSB configures the CDC-ACM port TinyGo exposes as machine.Serial.
// The descriptors come from the runtime.
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// pumpUSB hands every buffered input byte to the console
func pumpUSB(c *Console) {
	for machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			return
		}
		c.ProcessByte(b)
	}
}

// writeUSB sends data to the host; output is lost while no host listens
func writeUSB(data []byte) {
	machine.Serial.Write(data)
}
