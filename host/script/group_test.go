package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stepcore/core"
	"stepcore/motion"
	"stepcore/motion/config"
)

const benchConfig = `
name: bench
geometry: cartesian
target_speed: 50
buffer_size: 8
backend: gpio
axes:
  - {name: x, steps_per_unit: 10, max_accel: 500, jerk_speed: 5, top_speed: 100}
  - {name: y, steps_per_unit: 10, max_accel: 500, jerk_speed: 5, top_speed: 100}
`

func newBenchGroup(t *testing.T) *motion.Group {
	t.Helper()
	core.SetTimerFrequency(1000000)
	core.SetTime(0)
	core.ResetTimers()
	t.Cleanup(func() {
		core.ResetTimers()
		core.SetTime(0)
		core.SetTimerFrequency(0)
	})

	cfg, err := config.LoadYAML([]byte(benchConfig))
	require.NoError(t, err)
	g, err := motion.NewGroup(cfg, []core.StepperBackend{core.NewCountingBackend("x"), core.NewCountingBackend("y")})
	require.NoError(t, err)
	return g
}

func TestGroupKeepsJerkPointBeforeShortLine(t *testing.T) {
	g := newBenchGroup(t)
	cmds, err := Parse(strings.NewReader("move 100 0\nmove 200 0\nmove 201.5 0\n"))
	require.NoError(t, err)

	in := NewInterpreter(g, zaptest.NewLogger(t))
	require.NoError(t, in.Run(cmds))
	// 15 steps cannot absorb a stop from 500 steps/s, so only the first
	// junction is blended
	assert.Equal(t, 1, in.Blended)
	assert.Equal(t, 3, in.Submitted)

	_, err = g.RunUntilIdle(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{2015, 0}, g.Positions())
	// the last movement is forced down from 500 steps/s
	assert.InDelta(t, 100, g.Engine().Speed(0), 1e-3)
}

func TestGroupStopFits(t *testing.T) {
	g := newBenchGroup(t)

	// 500 steps/s stops in 25 steps at 5000 steps/s², one 60 step movement
	// is held back
	assert.True(t, g.StopFits(0, 500, 1000))
	assert.True(t, g.StopFits(0, 500, 85))
	assert.False(t, g.StopFits(0, 500, 15))
	// zero selects the configured target speed
	assert.False(t, g.StopFits(0, 0, 60))
}
