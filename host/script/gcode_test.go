package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

func TestSplitWords(t *testing.T) {
	words, err := splitWords("N10 g1 x1.5 Y-2 (go) F3000 *71")
	require.NoError(t, err)
	assert.Equal(t, []word{{'G', 1}, {'X', 1.5}, {'Y', -2}, {'F', 3000}}, words)

	words, err = splitWords("; only a comment")
	require.NoError(t, err)
	assert.Empty(t, words)

	_, err = splitWords("G1 (open")
	assert.Error(t, err)
	_, err = splitWords("G1 X#1")
	assert.Error(t, err)
	_, err = splitWords("G1 X")
	assert.Error(t, err)
}

func TestParseGCodeMoves(t *testing.T) {
	src := strings.Join([]string{
		"G21",
		"G90",
		"G0 X10 Y5 F600",
		"G1 Y20",
		"G91",
		"G1 X-4 F600",
		"G92 X0",
		"G90",
		"G1 X3 F1200",
		"M104 S200",
		"M400",
		"M112",
	}, "\n")
	cmds, err := ParseGCode(strings.NewReader(src), 3)
	require.NoError(t, err)

	want := []Command{
		{Op: OpSpeed, Args: []float64{10}, Line: 3},
		{Op: OpMove, Args: []float64{10, 5, 0}, Line: 3},
		{Op: OpMove, Args: []float64{10, 20, 0}, Line: 4},
		{Op: OpMove, Args: []float64{6, 20, 0}, Line: 6},
		{Op: OpOrigin, Args: []float64{0, 20, 0}, Line: 7},
		{Op: OpSpeed, Args: []float64{20}, Line: 9},
		{Op: OpMove, Args: []float64{3, 20, 0}, Line: 9},
		{Op: OpWait, Line: 11},
		{Op: OpAbort, Line: 12},
	}
	assert.Equal(t, want, cmds)
}

func TestParseGCodeArc(t *testing.T) {
	src := "G1 X10 Y0\nG2 X-10 Y0 I-10 J0\nG3 X10 Y0 I10 J0\n"
	cmds, err := ParseGCode(strings.NewReader(src), 2)
	require.NoError(t, err)
	require.Len(t, cmds, 3)

	cw := cmds[1]
	assert.Equal(t, OpArc, cw.Op)
	assert.InDelta(t, 0, cw.Args[0], 1e-9)
	assert.InDelta(t, 0, cw.Args[1], 1e-9)
	assert.InDelta(t, -180, cw.Args[2], 1e-9)

	ccw := cmds[2]
	assert.InDelta(t, 180, ccw.Args[2], 1e-9)
}

func TestParseGCodeFullCircle(t *testing.T) {
	cmds, err := ParseGCode(strings.NewReader("G1 X10\nG3 X10 Y0 I-10\n"), 2)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.InDelta(t, 360, cmds[1].Args[2], 1e-9)
}

func TestParseGCodeErrors(t *testing.T) {
	src := strings.Join([]string{
		"G1 X1",
		"G28",
		"X5",
		"G1 Z1",
		"G2 X1 Y1",
		"G2 X1 Y1 R5",
	}, "\n")
	_, err := ParseGCode(strings.NewReader(src), 2)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0].Error(), "line 2")
	assert.Contains(t, errs[1].Error(), "line 3")
	assert.Contains(t, errs[2].Error(), "axis Z")
	assert.Contains(t, errs[3].Error(), "I or J")
	assert.Contains(t, errs[4].Error(), "radius")
}

func TestParseGCodeRuns(t *testing.T) {
	target := newFakeTarget()
	cmds, err := ParseGCode(strings.NewReader("G1 X100 F3000\nG1 Y100\nM400\n"), 2)
	require.NoError(t, err)

	interp := NewInterpreter(target, zaptest.NewLogger(t))
	require.NoError(t, interp.Run(cmds))
	assert.Equal(t, 2, interp.Submitted)
	assert.Len(t, target.submitted, 2)
	assert.Equal(t, []float64{100, 100}, target.Planned())
}

func TestIsGCodePath(t *testing.T) {
	assert.True(t, IsGCodePath("part.gcode"))
	assert.True(t, IsGCodePath("dir/PART.NC"))
	assert.False(t, IsGCodePath("square.txt"))
	assert.False(t, IsGCodePath("-"))
}
