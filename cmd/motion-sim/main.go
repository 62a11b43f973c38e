// Command motion-sim runs a motion script through the motion core on
// simulated time and reports where every actuator ended up.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stepcore/core"
	"stepcore/host/script"
	"stepcore/host/serial"
	"stepcore/host/trace"
	"stepcore/motion"
	"stepcore/motion/config"
)

var (
	configPath = flag.String("config", "", "Machine configuration (.json, .yaml); built-in Cartesian machine when empty")
	scriptPath = flag.String("script", "-", "Motion script or G-code file (.gcode, .nc), - for stdin")
	device     = flag.String("device", "", "Serial device receiving the step trace")
	baud       = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	tracePath  = flag.String("trace", "", "Step trace file, - for stdout")
	traceFmt   = flag.String("trace-format", "", "Step trace encoding: text or binary (default binary on a serial device, text otherwise)")
	maxEvents  = flag.Int("max-events", 50000000, "Timer dispatch budget per wait (0: unbounded)")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	log := newLogger(*verbose)
	defer log.Sync()

	runID := uuid.New()
	log = log.With(zap.String("run", runID.String()))

	if err := run(log); err != nil {
		log.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func run(log *zap.Logger) error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Firmware diagnostics go through the structured logger
	core.SetDebugWriter(func(msg string) { log.Debug(strings.TrimSpace(msg), zap.String("src", "core")) })
	core.SetDebugEnabled(*verbose)
	core.SetTimerFrequency(cfg.TimerFrequency)
	core.SetTime(0)
	core.ResetTimers()
	core.ClearTimingRing()

	sink, closeSink, err := openTrace(*tracePath, *device, *baud)
	if err != nil {
		return err
	}
	defer closeSink()

	var rec *trace.Recorder
	backends := make([]core.StepperBackend, len(cfg.Axes))
	if sink != nil {
		format, err := traceFormat(*traceFmt, *device)
		if err != nil {
			return err
		}
		rec = trace.NewRecorderFormat(sink, format)
	}
	for i, axis := range cfg.Axes {
		if rec != nil {
			backends[i] = rec.Backend(axis.Name)
		} else {
			backends[i] = core.NewCountingBackend(axis.Name)
		}
	}

	group, err := motion.NewGroup(cfg, backends)
	if err != nil {
		return fmt.Errorf("building axis group: %w", err)
	}
	if slow := group.SlowAxes(); len(slow) > 0 {
		log.Warn("step backend slower than the target speed", zap.Strings("axes", slow))
	}

	cmds, err := readScript(*scriptPath, len(cfg.Axes))
	if err != nil {
		return err
	}
	log.Info("script loaded",
		zap.String("machine", cfg.Name),
		zap.String("geometry", cfg.Geometry),
		zap.String("model", cfg.Model),
		zap.Int("commands", len(cmds)))

	interp := script.NewInterpreter(group, log)
	interp.Wait = func() error {
		_, err := group.RunUntilIdle(*maxEvents)
		return err
	}
	if err := interp.Run(cmds); err != nil {
		return err
	}
	if err := interp.Wait(); err != nil {
		core.DumpTimingRing()
		return err
	}
	if rec != nil {
		if err := rec.Flush(); err != nil {
			return fmt.Errorf("writing trace: %w", err)
		}
	}

	stats := group.Stats()
	log.Info("simulation finished",
		zap.Float64("seconds", core.SecondsFromTicks(core.GetTime())),
		zap.Int64s("positions", group.Positions()),
		zap.Float64s("planned", group.Planned()),
		zap.Int("trajectories", interp.Submitted),
		zap.Int("skipped", interp.Skipped),
		zap.Int("blended_axes", interp.Blended),
		zap.Uint32("movements", stats.Actuation.Movements),
		zap.Uint32("rejections", stats.Controller.Rejections),
		zap.Uint32("underruns", stats.Controller.Underruns),
		zap.Uint32("steps", stats.Steps))
	return nil
}

func traceFormat(name, device string) (trace.Format, error) {
	if name == "" && device != "" {
		return trace.Binary, nil
	}
	return trace.ParseFormat(name)
}

func loadConfig(path string) (*config.MachineConfig, error) {
	if path == "" {
		return config.DefaultCartesianConfig(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func readScript(path string, axes int) ([]script.Command, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	if script.IsGCodePath(path) {
		return script.ParseGCode(r, axes)
	}
	return script.Parse(r)
}

// openTrace returns the step trace destination, nil when tracing is off
func openTrace(path, device string, baud int) (io.Writer, func(), error) {
	switch {
	case device != "":
		cfg := serial.DefaultConfig(device)
		cfg.Baud = baud
		port, err := serial.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return port, func() { port.Close() }, nil
	case path == "-":
		return os.Stdout, func() {}, nil
	case path != "":
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	return nil, func() {}, nil
}
