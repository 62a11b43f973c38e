// Package script parses and runs motion scripts: one command per line,
// shell-style tokens, '#' starts a comment.
//
//	speed 40          # path speed in units/s
//	move 10 20        # absolute target, missing axes keep their position
//	rel 0 -5          # relative target
//	arc 0 0 90 12     # arc around (0,0) in the first two axes, 12 chords
//	wait              # block until the axis group is idle
//	origin 0 0        # redefine the current position (waits first)
//	abort             # stop immediately and drop pending moves
package script

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/multierr"
)

// Op is a script command
type Op uint8

const (
	OpSpeed Op = iota + 1
	OpMove
	OpRel
	OpArc
	OpWait
	OpOrigin
	OpAbort
)

var opNames = map[string]Op{
	"speed":  OpSpeed,
	"move":   OpMove,
	"rel":    OpRel,
	"arc":    OpArc,
	"wait":   OpWait,
	"origin": OpOrigin,
	"abort":  OpAbort,
}

// String returns the command keyword
func (o Op) String() string {
	for name, op := range opNames {
		if op == o {
			return name
		}
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Command is one parsed script line
type Command struct {
	Op   Op
	Args []float64
	Line int
}

// ParseLine parses one line. It returns nil for blank and comment lines.
func ParseLine(line string) (*Command, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	op, ok := opNames[strings.ToLower(tokens[0])]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", tokens[0])
	}

	cmd := &Command{Op: op, Args: make([]float64, 0, len(tokens)-1)}
	for _, tok := range tokens[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad argument %q", op, tok)
		}
		cmd.Args = append(cmd.Args, v)
	}

	if err := checkArity(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func checkArity(cmd *Command) error {
	n := len(cmd.Args)
	switch cmd.Op {
	case OpSpeed:
		if n != 1 {
			return fmt.Errorf("speed takes 1 argument, got %d", n)
		}
		if cmd.Args[0] <= 0 {
			return fmt.Errorf("speed must be positive, got %g", cmd.Args[0])
		}
	case OpMove, OpRel:
		if n == 0 {
			return fmt.Errorf("%s needs at least 1 coordinate", cmd.Op)
		}
	case OpArc:
		if n != 3 && n != 4 {
			return fmt.Errorf("arc takes 3 or 4 arguments, got %d", n)
		}
		if n == 4 && cmd.Args[3] < 1 {
			return fmt.Errorf("arc needs at least 1 segment, got %g", cmd.Args[3])
		}
	case OpWait, OpAbort:
		if n != 0 {
			return fmt.Errorf("%s takes no arguments", cmd.Op)
		}
	}
	return nil
}

// Parse reads a whole script. Every bad line is reported, not just the
// first one.
func Parse(r io.Reader) ([]Command, error) {
	var (
		cmds []Command
		errs error
	)
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		cmd, err := ParseLine(scanner.Text())
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		if cmd == nil {
			continue
		}
		cmd.Line = lineNo
		cmds = append(cmds, *cmd)
	}
	if err := scanner.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return cmds, errs
}
