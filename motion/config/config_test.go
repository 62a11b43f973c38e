package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"stepcore/motion/geometry"
	"stepcore/motion/kinematics"
)

const yamlConfig = `
name: bench
geometry: corexy
model: torque
torque_floor: 0.3
target_speed: 120
bounds: {target: 30, min: 5, max: 50}
axes:
  - name: a
    steps_per_unit: 100
    max_accel: 2000
    jerk_speed: 8
    top_speed: 250
  - name: b
    steps_per_unit: 100
    max_accel: 2000
    max_decel: 1500
    incremental: true
`

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML([]byte(yamlConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "corexy", cfg.Geometry)
	assert.Equal(t, 0.3, cfg.TorqueFloor)
	assert.Equal(t, geometry.Bounds{Target: 30, Min: 5, Max: 50}, cfg.Bounds)
	assert.Equal(t, 16, cfg.BufferSize)
	assert.Equal(t, "pio", cfg.Backend)

	require.Len(t, cfg.Axes, 2)
	assert.Equal(t, 2000.0, cfg.Axes[0].MaxDecel)
	assert.Equal(t, 1500.0, cfg.Axes[1].MaxDecel)
	assert.Equal(t, 5.0, cfg.Axes[1].JerkSpeed)
	assert.Equal(t, uint32(0b10), cfg.IncrementalMask())
	assert.Equal(t, 1, cfg.AxisIndex("b"))
	assert.Equal(t, -1, cfg.AxisIndex("z"))

	g, err := cfg.NewGeometry()
	require.NoError(t, err)
	assert.IsType(t, &geometry.CoreXY{}, g)

	m, err := cfg.NewModel()
	require.NoError(t, err)
	tl, ok := m.(*kinematics.TorqueLimited)
	require.True(t, ok)
	assert.Equal(t, 0.3, tl.Floor)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"axes": [{"name": "x"}, {}]}`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "cartesian", cfg.Geometry)
	assert.Equal(t, "linear", cfg.Model)
	assert.Equal(t, 50.0, cfg.TargetSpeed)
	assert.Equal(t, geometry.Bounds{Target: 40, Min: 10, Max: 60}, cfg.Bounds)
	assert.Equal(t, uint32(12000000), cfg.TimerFrequency)
	assert.Equal(t, "axis1", cfg.Axes[1].Name)
	assert.Equal(t, 80.0, cfg.Axes[1].StepsPerUnit)
	assert.Equal(t, 80.0, cfg.SpeedScale())
	assert.Equal(t, kinematics.AllCapabilities(), cfg.Capabilities())
}

func TestLoadConfigBadJSON(t *testing.T) {
	_, err := LoadConfig([]byte(`{"axes": [`))
	assert.Error(t, err)
	_, err = LoadYAML([]byte("axes: [\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "machine.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlConfig), 0o644))
	jsonPath := filepath.Join(dir, "machine.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name": "j", "axes": [{}]}`), 0o644))

	cfg, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "bench", cfg.Name)

	cfg, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "j", cfg.Name)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "bad.json")
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultCartesianConfig()
	cfg.Geometry = "delta"
	cfg.TargetSpeed = -1
	cfg.BufferSize = 1
	cfg.Axes[1].Name = "x"
	cfg.Axes[2].StepsPerUnit = 0

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 5)
	assert.ErrorContains(t, err, "delta")
	assert.ErrorContains(t, err, "duplicate")
}

func TestValidateLimits(t *testing.T) {
	cfg := DefaultCartesianConfig()
	cfg.Axes[0].TopSpeed = cfg.Axes[0].JerkSpeed
	cfg.Model = "torque"
	cfg.TorqueFloor = 2
	assert.Len(t, multierr.Errors(cfg.Validate()), 2)

	cfg = DefaultCartesianConfig()
	cfg.Backend = "fourwire"
	cfg.Axes[0].CoilPins = []string{"gpio0", "gpio1", "gpio2", "gpio3"}
	assert.Len(t, multierr.Errors(cfg.Validate()), 2)

	cfg = DefaultCartesianConfig()
	cfg.Axes = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultCartesianConfig()
	cfg.Geometry = "corexy"
	cfg.Axes = cfg.Axes[:1]
	assert.Error(t, cfg.Validate())
}

func TestDefaultCartesianConfig(t *testing.T) {
	cfg := DefaultCartesianConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []float64{80, 80, 400}, cfg.StepsPerUnit())
	assert.Equal(t, uint32(0b100), cfg.IncrementalMask())

	limits := cfg.AxisLimits()
	assert.Equal(t, 240000.0, limits[0].Acceleration)
	assert.Equal(t, 800.0, limits[0].JerkSpeed)
	assert.Equal(t, 200.0, limits[2].JerkSpeed)

	g, err := cfg.NewGeometry()
	require.NoError(t, err)
	out := make([]float64, 3)
	g.Convert([]float64{1, 2, 0.5}, out)
	assert.Equal(t, []float64{80, 160, 200}, out)

	cfg.DisableJerk = true
	assert.False(t, cfg.Capabilities().Jerk)
	assert.True(t, cfg.Capabilities().Acceleration)
}

func TestNewGeometryUnknown(t *testing.T) {
	cfg := DefaultCartesianConfig()
	cfg.Geometry = "polar"
	g, err := cfg.NewGeometry()
	assert.Error(t, err)
	assert.Nil(t, g)

	cfg.Model = "scurve"
	_, err = cfg.NewModel()
	assert.Error(t, err)
}
