//go:build rp2040

package main

import (
	"machine"
	"time"

	"stepcore/core"
	"stepcore/motion"
	"stepcore/motion/config"
	"stepcore/targets/drivers"
	"stepcore/targets/pio"
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitClock()

	core.SetDebugWriter(func(s string) {
		writeUSB([]byte(s + "\n"))
	})

	cfg := config.DefaultCartesianConfig()
	var backends []core.StepperBackend
	if cfg.Backend == "fourwire" {
		backends, err = drivers.NewBackends(cfg)
	} else {
		backends, err = pio.NewBackends(cfg)
	}
	if err != nil {
		blinkForever(100 * time.Millisecond)
	}
	group, err := motion.NewGroup(cfg, backends)
	if err != nil {
		blinkForever(100 * time.Millisecond)
	}
	console := NewConsole(group)

	// Flash LED 3 times to indicate the motion core is ready
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(200 * time.Millisecond)
		led.Low()
		time.Sleep(200 * time.Millisecond)
	}

	for {
		poll(group, console)

		// Yield
		time.Sleep(10 * time.Microsecond)
	}
}

// poll runs one main loop pass. A fault halts the axis group and is
// reported; the loop keeps serving the console.
func poll(group *motion.Group, console *Console) {
	defer func() {
		if r := recover(); r != nil {
			group.Abort()
			if f, ok := r.(*core.Fault); ok {
				console.respond("fault: " + f.Error())
			} else {
				console.respond("panic")
			}
		}
	}()

	pumpUSB(console)

	SyncClock()
	core.ProcessTimers()

	if out := console.Output(); len(out) > 0 {
		writeUSB(out)
		console.Reset()
	}
}

func blinkForever(period time.Duration) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(period)
		led.Low()
		time.Sleep(period)
	}
}
