// Package config loads the machine description of one axis group.
//
// Distances are in user units (mm) and converted to steps with each axis'
// steps_per_unit; bounds are already in steps.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"stepcore/motion/geometry"
	"stepcore/motion/kinematics"
)

// AxisConfig describes one actuator
type AxisConfig struct {
	Name         string  `json:"name" yaml:"name"`
	StepsPerUnit float64 `json:"steps_per_unit" yaml:"steps_per_unit"` // steps per mm
	MaxAccel     float64 `json:"max_accel" yaml:"max_accel"`           // mm/s^2
	MaxDecel     float64 `json:"max_decel" yaml:"max_decel"`           // mm/s^2, defaults to MaxAccel
	JerkSpeed    float64 `json:"jerk_speed" yaml:"jerk_speed"`         // mm/s allowed at a jerk point
	TopSpeed     float64 `json:"top_speed" yaml:"top_speed"`           // mm/s, torque model only
	Incremental  bool    `json:"incremental" yaml:"incremental"`       // integrate the stop distance
	StepPin      string  `json:"step_pin" yaml:"step_pin"`
	DirPin       string  `json:"dir_pin" yaml:"dir_pin"`
	InvertStep   bool    `json:"invert_step" yaml:"invert_step"`
	InvertDir    bool    `json:"invert_dir" yaml:"invert_dir"`

	// CoilPins are the four coil outputs of a "fourwire" axis
	CoilPins []string `json:"coil_pins" yaml:"coil_pins"`
}

// MachineConfig describes one axis group
type MachineConfig struct {
	Name        string       `json:"name" yaml:"name"`
	Geometry    string       `json:"geometry" yaml:"geometry"` // "cartesian", "corexy"
	Model       string       `json:"model" yaml:"model"`       // "linear", "torque"
	TorqueFloor float64      `json:"torque_floor" yaml:"torque_floor"`
	Axes        []AxisConfig `json:"axes" yaml:"axes"`

	// TargetSpeed is the default path speed (mm/s)
	TargetSpeed float64 `json:"target_speed" yaml:"target_speed"`

	// Bounds of the actuator distance of one movement (steps)
	Bounds geometry.Bounds `json:"bounds" yaml:"bounds"`

	BufferSize     int    `json:"buffer_size" yaml:"buffer_size"`
	TimerFrequency uint32 `json:"timer_frequency" yaml:"timer_frequency"`

	// Backend selects the step generator on hardware targets: "pio",
	// "gpio" or "fourwire" (unipolar motors driven coil by coil)
	Backend string `json:"backend" yaml:"backend"`

	DisableAcceleration bool `json:"disable_acceleration" yaml:"disable_acceleration"`
	DisableDeceleration bool `json:"disable_deceleration" yaml:"disable_deceleration"`
	DisableJerk         bool `json:"disable_jerk" yaml:"disable_jerk"`
}

// LoadConfig parses a JSON configuration and applies defaults
func LoadConfig(jsonData []byte) (*MachineConfig, error) {
	var config MachineConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

// LoadYAML parses a YAML configuration and applies defaults
func LoadYAML(yamlData []byte) (*MachineConfig, error) {
	var config MachineConfig

	err := yaml.Unmarshal(yamlData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

// LoadFile reads a configuration file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func LoadFile(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *MachineConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		config, err = LoadYAML(data)
	default:
		config, err = LoadConfig(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *MachineConfig) {
	if config.Geometry == "" {
		config.Geometry = "cartesian"
	}
	if config.Model == "" {
		config.Model = "linear"
	}
	if config.TorqueFloor == 0 {
		config.TorqueFloor = 0.2
	}
	if config.TargetSpeed == 0 {
		config.TargetSpeed = 50.0 // 50 mm/s
	}
	if config.Bounds == (geometry.Bounds{}) {
		config.Bounds = geometry.Bounds{Target: 40, Min: 10, Max: 60}
	}
	if config.BufferSize == 0 {
		config.BufferSize = 16
	}
	if config.TimerFrequency == 0 {
		config.TimerFrequency = 12000000
	}
	if config.Backend == "" {
		config.Backend = "pio"
	}

	for i := range config.Axes {
		axis := &config.Axes[i]
		if axis.Name == "" {
			axis.Name = fmt.Sprintf("axis%d", i)
		}
		if axis.StepsPerUnit == 0 {
			axis.StepsPerUnit = 80.0
		}
		if axis.MaxAccel == 0 {
			axis.MaxAccel = 1000.0
		}
		if axis.MaxDecel == 0 {
			axis.MaxDecel = axis.MaxAccel
		}
		if axis.JerkSpeed == 0 {
			axis.JerkSpeed = 5.0
		}
		if axis.TopSpeed == 0 {
			axis.TopSpeed = 300.0
		}
	}
}

// Validate reports every problem of the configuration at once
func (c *MachineConfig) Validate() error {
	var err error

	switch c.Geometry {
	case "cartesian":
	case "corexy":
		if len(c.Axes) < 2 {
			err = multierr.Append(err, fmt.Errorf("corexy geometry needs at least 2 axes, got %d", len(c.Axes)))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported geometry %q", c.Geometry))
	}

	switch c.Model {
	case "linear":
	case "torque":
		if c.TorqueFloor <= 0 || c.TorqueFloor > 1 {
			err = multierr.Append(err, fmt.Errorf("torque_floor must be in (0, 1], got %g", c.TorqueFloor))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported kinematic model %q", c.Model))
	}

	if len(c.Axes) == 0 || len(c.Axes) > 32 {
		err = multierr.Append(err, fmt.Errorf("axis count must be between 1 and 32, got %d", len(c.Axes)))
	}
	if c.TargetSpeed <= 0 {
		err = multierr.Append(err, fmt.Errorf("target_speed must be positive, got %g", c.TargetSpeed))
	}
	if bErr := c.Bounds.Validate(); bErr != nil {
		err = multierr.Append(err, bErr)
	}
	if c.BufferSize < 2 {
		err = multierr.Append(err, fmt.Errorf("buffer_size must be at least 2, got %d", c.BufferSize))
	}
	switch c.Backend {
	case "pio", "gpio", "fourwire":
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported step backend %q", c.Backend))
	}

	seen := make(map[string]bool, len(c.Axes))
	for _, axis := range c.Axes {
		if seen[axis.Name] {
			err = multierr.Append(err, fmt.Errorf("axis %s: duplicate name", axis.Name))
		}
		seen[axis.Name] = true
		if axis.StepsPerUnit <= 0 {
			err = multierr.Append(err, fmt.Errorf("axis %s: steps_per_unit must be positive", axis.Name))
		}
		if axis.MaxAccel <= 0 || axis.MaxDecel <= 0 {
			err = multierr.Append(err, fmt.Errorf("axis %s: acceleration limits must be positive", axis.Name))
		}
		if axis.JerkSpeed <= 0 {
			err = multierr.Append(err, fmt.Errorf("axis %s: jerk_speed must be positive", axis.Name))
		}
		if axis.TopSpeed <= axis.JerkSpeed {
			err = multierr.Append(err, fmt.Errorf("axis %s: top_speed must exceed jerk_speed", axis.Name))
		}
		if c.Backend == "fourwire" && len(axis.CoilPins) != 4 {
			err = multierr.Append(err, fmt.Errorf("axis %s: fourwire backend needs 4 coil_pins, got %d",
				axis.Name, len(axis.CoilPins)))
		}
	}

	return err
}

// AxisIndex returns the actuator index of the named axis, or -1
func (c *MachineConfig) AxisIndex(name string) int {
	for i, axis := range c.Axes {
		if axis.Name == name {
			return i
		}
	}
	return -1
}

// StepsPerUnit returns the steps per unit of every axis
func (c *MachineConfig) StepsPerUnit() []float64 {
	out := make([]float64, len(c.Axes))
	for i, axis := range c.Axes {
		out[i] = axis.StepsPerUnit
	}
	return out
}

// SpeedScale converts a path speed in units/s into steps/s using the first
// axis. It sizes the engine default and curves without a fixed
// control-to-actuator ratio; lines are scaled by their own length ratio.
func (c *MachineConfig) SpeedScale() float64 {
	if len(c.Axes) == 0 {
		return 1
	}
	return c.Axes[0].StepsPerUnit
}

// AxisLimits converts the axis limits into steps
func (c *MachineConfig) AxisLimits() []kinematics.AxisLimits {
	out := make([]kinematics.AxisLimits, len(c.Axes))
	for i, axis := range c.Axes {
		s := axis.StepsPerUnit
		out[i] = kinematics.AxisLimits{
			Acceleration: axis.MaxAccel * s,
			Deceleration: axis.MaxDecel * s,
			JerkSpeed:    axis.JerkSpeed * s,
			TopSpeed:     axis.TopSpeed * s,
		}
	}
	return out
}

// Capabilities returns the enabled regulations
func (c *MachineConfig) Capabilities() kinematics.Capabilities {
	return kinematics.Capabilities{
		Acceleration: !c.DisableAcceleration,
		Deceleration: !c.DisableDeceleration,
		Jerk:         !c.DisableJerk,
	}
}

// IncrementalMask returns the per-axis incremental stop tracking bits
func (c *MachineConfig) IncrementalMask() uint32 {
	var mask uint32
	for i, axis := range c.Axes {
		if axis.Incremental {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// NewGeometry builds the configured control-to-actuator transform
func (c *MachineConfig) NewGeometry() (geometry.Geometry, error) {
	switch c.Geometry {
	case "cartesian":
		return geometry.NewCartesian(c.StepsPerUnit()), nil
	case "corexy":
		g, err := geometry.NewCoreXY(c.StepsPerUnit())
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported geometry %q", c.Geometry)
	}
}

// NewModel builds the configured kinematic model
func (c *MachineConfig) NewModel() (kinematics.Model, error) {
	switch c.Model {
	case "linear":
		return kinematics.NewLinear(c.AxisLimits()), nil
	case "torque":
		return kinematics.NewTorqueLimited(c.AxisLimits(), c.TorqueFloor), nil
	default:
		return nil, fmt.Errorf("unsupported kinematic model %q", c.Model)
	}
}

// DefaultCartesianConfig returns a three axis Cartesian machine
func DefaultCartesianConfig() *MachineConfig {
	return &MachineConfig{
		Name:        "cartesian",
		Geometry:    "cartesian",
		Model:       "linear",
		TorqueFloor: 0.2,
		Axes: []AxisConfig{
			{
				Name:         "x",
				StepsPerUnit: 80.0,
				MaxAccel:     3000.0,
				MaxDecel:     3000.0,
				JerkSpeed:    10.0,
				TopSpeed:     300.0,
				StepPin:      "gpio0",
				DirPin:       "gpio1",
			},
			{
				Name:         "y",
				StepsPerUnit: 80.0,
				MaxAccel:     3000.0,
				MaxDecel:     3000.0,
				JerkSpeed:    10.0,
				TopSpeed:     300.0,
				StepPin:      "gpio2",
				DirPin:       "gpio3",
			},
			{
				Name:         "z",
				StepsPerUnit: 400.0,
				MaxAccel:     100.0,
				MaxDecel:     100.0,
				JerkSpeed:    0.5,
				TopSpeed:     10.0,
				Incremental:  true,
				StepPin:      "gpio4",
				DirPin:       "gpio5",
			},
		},
		TargetSpeed:    50.0,
		Bounds:         geometry.Bounds{Target: 40, Min: 10, Max: 60},
		BufferSize:     16,
		TimerFrequency: 12000000,
		Backend:        "pio",
	}
}
