package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"stepcore/motion"
	"stepcore/motion/geometry"
	"stepcore/motion/trajectory"
)

var testBounds = geometry.Bounds{Target: 40, Min: 10, Max: 60}

// fakeTarget records submitted trajectories instead of executing them
type fakeTarget struct {
	geom      *geometry.Cartesian
	planned   []float64
	submitted []*trajectory.Trajectory
	aborts    int
	submitErr error
	stopFits  func(axis int, speed, distance float64) bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{geom: geometry.NewCartesian([]float64{1, 1}), planned: make([]float64, 2)}
}

func (f *fakeTarget) Dimension() int              { return 2 }
func (f *fakeTarget) Geometry() geometry.Geometry { return f.geom }
func (f *fakeTarget) Planned() []float64          { return append([]float64(nil), f.planned...) }
func (f *fakeTarget) Abort()                      { f.aborts++ }

func (f *fakeTarget) SetPlanned(position []float64) error {
	copy(f.planned, position)
	return nil
}

func (f *fakeTarget) NewLine(to []float64, speed float64) (*trajectory.Trajectory, error) {
	l, err := geometry.NewLine(f.planned, to)
	if err != nil {
		return nil, err
	}
	base := geometry.Base{Curve: l, Geometry: f.geom, Bounds: testBounds}
	t, err := trajectory.New(base, true, 0)
	if err != nil {
		return nil, err
	}
	if t.Jerk.MaxDistance() <= testBounds.Min {
		t.Release()
		return nil, motion.ErrTooShort
	}
	t.Speed = speed
	copy(f.planned, to)
	return t, nil
}

func (f *fakeTarget) StopFits(axis int, speed, distance float64) bool {
	if f.stopFits == nil {
		return true
	}
	return f.stopFits(axis, speed, distance)
}

func (f *fakeTarget) Submit(t *trajectory.Trajectory) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, t)
	return nil
}

func run(t *testing.T, target *fakeTarget, src string) (*Interpreter, error) {
	t.Helper()
	cmds, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	in := NewInterpreter(target, zaptest.NewLogger(t))
	return in, in.Run(cmds)
}

func TestParseLine(t *testing.T) {
	cmd, err := ParseLine("  MOVE 10 -2.5   # to the corner")
	require.NoError(t, err)
	assert.Equal(t, OpMove, cmd.Op)
	assert.Equal(t, []float64{10, -2.5}, cmd.Args)

	for _, blank := range []string{"", "   ", "# only a comment"} {
		cmd, err = ParseLine(blank)
		assert.NoError(t, err)
		assert.Nil(t, cmd)
	}

	cmd, err = ParseLine("arc 0 0 -90")
	require.NoError(t, err)
	assert.Equal(t, OpArc, cmd.Op)
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{
		"jump 1",
		"move x",
		"move",
		"speed",
		"speed 0",
		"speed 1 2",
		"arc 1 2",
		"arc 0 0 90 0",
		"wait 1",
		"abort now",
		`move "1`,
	} {
		_, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}

func TestParseReportsEveryLine(t *testing.T) {
	cmds, err := Parse(strings.NewReader("move 1\nbogus\n\nspeed -1\nwait\n"))
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "line 2")
	assert.Contains(t, errs[1].Error(), "line 4")

	require.Len(t, cmds, 2)
	assert.Equal(t, 1, cmds[0].Line)
	assert.Equal(t, 5, cmds[1].Line)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "origin", OpOrigin.String())
	assert.Equal(t, "op(99)", Op(99).String())
}

func TestBlendKeepsDirectionChanges(t *testing.T) {
	target := newFakeTarget()
	in, err := run(t, target, "speed 30\nmove 100 0\nmove 200 0\nmove 200 100\n")
	require.NoError(t, err)

	require.Len(t, target.submitted, 3)
	// x keeps moving forward into the second line
	assert.Equal(t, uint32(0b10), target.submitted[0].Jerk.Mask)
	assert.Equal(t, uint32(0b11), target.submitted[1].Jerk.Mask)
	assert.Equal(t, uint32(0b11), target.submitted[2].Jerk.Mask)
	assert.Equal(t, 1, in.Blended)
	assert.Equal(t, 3, in.Submitted)
	assert.Equal(t, 30.0, target.submitted[0].Speed)
	assert.Equal(t, 30.0, in.Speed())
}

func TestReversalKeepsJerkPoint(t *testing.T) {
	target := newFakeTarget()
	_, err := run(t, target, "move 100 100\nmove 0 200\n")
	require.NoError(t, err)

	require.Len(t, target.submitted, 2)
	// x reverses, y continues
	assert.Equal(t, uint32(0b01), target.submitted[0].Jerk.Mask)
}

func TestShortNextLineKeepsJerkPoint(t *testing.T) {
	target := newFakeTarget()
	var speeds []float64
	target.stopFits = func(axis int, speed, distance float64) bool {
		speeds = append(speeds, speed)
		return distance >= 50
	}
	in, err := run(t, target, "speed 30\nmove 100 0\nspeed 60\nmove 200 0\nspeed 10\nmove 220 0\n")
	require.NoError(t, err)

	require.Len(t, target.submitted, 3)
	assert.Equal(t, uint32(0b10), target.submitted[0].Jerk.Mask)
	// 20 steps are not enough to slow x down after the second line
	assert.Equal(t, uint32(0b11), target.submitted[1].Jerk.Mask)
	assert.Equal(t, 1, in.Blended)
	// the fastest speed of the blended run is carried forward
	assert.Equal(t, []float64{60, 60}, speeds)
}

func TestRelativeAndShortMoves(t *testing.T) {
	target := newFakeTarget()
	in, err := run(t, target, "move 50 50\nrel 0.5\nrel -20 30\n")
	require.NoError(t, err)

	assert.Equal(t, 1, in.Skipped)
	assert.Len(t, target.submitted, 2)
	assert.Equal(t, []float64{30, 80}, target.planned)
}

func TestTooManyCoordinates(t *testing.T) {
	_, err := run(t, newFakeTarget(), "move 1 2 3\n")
	assert.ErrorContains(t, err, "line 1")
}

func TestArc(t *testing.T) {
	target := newFakeTarget()
	require.NoError(t, target.SetPlanned([]float64{100, 0}))

	_, err := run(t, target, "arc 0 0 90 4\n")
	require.NoError(t, err)
	assert.Len(t, target.submitted, 4)
	assert.InDelta(t, 0, target.planned[0], 1e-9)
	assert.InDelta(t, 100, target.planned[1], 1e-9)

	// default chord count: ceil(180/10)
	target = newFakeTarget()
	require.NoError(t, target.SetPlanned([]float64{200, 0}))
	_, err = run(t, target, "arc 0 0 -180\n")
	require.NoError(t, err)
	assert.Len(t, target.submitted, 18)
	assert.InDelta(t, -200, target.planned[0], 1e-9)

	_, err = run(t, newFakeTarget(), "arc 0 0 90\n")
	assert.ErrorContains(t, err, "center")
}

func TestWaitAndOrigin(t *testing.T) {
	target := newFakeTarget()
	cmds, err := Parse(strings.NewReader("move 100 0\nwait\nmove 200 0\norigin 5\n"))
	require.NoError(t, err)

	in := NewInterpreter(target, nil)
	waits := 0
	in.Wait = func() error {
		waits++
		return nil
	}
	require.NoError(t, in.Run(cmds))

	assert.Equal(t, 2, waits)
	require.Len(t, target.submitted, 2)
	// the wait flushed the first line before the second existed
	assert.Equal(t, uint32(0b11), target.submitted[0].Jerk.Mask)
	assert.Equal(t, []float64{5, 0}, target.planned)
}

func TestWaitError(t *testing.T) {
	target := newFakeTarget()
	cmds, err := Parse(strings.NewReader("move 100 0\nwait\n"))
	require.NoError(t, err)

	in := NewInterpreter(target, nil)
	in.Wait = func() error { return errors.New("stalled") }
	assert.ErrorContains(t, in.Run(cmds), "stalled")
}

func TestAbortDropsPending(t *testing.T) {
	target := newFakeTarget()
	cmds, err := Parse(strings.NewReader("move 100 0\nabort\n"))
	require.NoError(t, err)

	in := NewInterpreter(target, nil)
	require.NoError(t, in.Execute(&cmds[0]))
	pending := in.pending
	require.NotNil(t, pending)

	require.NoError(t, in.Execute(&cmds[1]))
	assert.True(t, pending.Released())
	assert.Equal(t, 1, target.aborts)
	require.NoError(t, in.Flush())
	assert.Empty(t, target.submitted)
}

func TestSubmitErrorReleases(t *testing.T) {
	target := newFakeTarget()
	target.submitErr = errors.New("queue closed")
	cmds, err := Parse(strings.NewReader("move 100 0\nmove 200 0\n"))
	require.NoError(t, err)

	in := NewInterpreter(target, nil)
	require.NoError(t, in.Execute(&cmds[0]))
	first := in.pending

	err = in.Run(cmds[1:])
	assert.ErrorContains(t, err, "queue closed")
	assert.ErrorContains(t, err, "line 2")
	assert.True(t, first.Released())
}
