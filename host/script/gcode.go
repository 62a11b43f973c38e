package script

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// gcodeAxes maps axis words to actuator order
const gcodeAxes = "XYZABC"

// word is one letter/value pair of a G-code line
type word struct {
	letter byte
	value  float64
}

// splitWords tokenizes a G-code line. Comments in parentheses or after ';'
// are dropped, as are the N line number and the '*' checksum.
func splitWords(line string) ([]word, error) {
	var words []word
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
			continue
		case c == ';':
			return words, nil
		case c == '*':
			return words, nil
		case c == '(':
			end := strings.IndexByte(line[i:], ')')
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment")
			}
			i += end + 1
			continue
		}
		if !isLetter(c) {
			return nil, fmt.Errorf("unexpected %q at column %d", c, i+1)
		}
		letter := toUpper(c)
		i++
		start := i
		for i < len(line) && isNumberByte(line[i]) {
			i++
		}
		value, err := strconv.ParseFloat(line[start:i], 64)
		if err != nil {
			return nil, fmt.Errorf("bad value for %c: %q", letter, line[start:i])
		}
		if letter != 'N' {
			words = append(words, word{letter, value})
		}
	}
	return words, nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// gcodeState tracks the modal state needed to turn G-code into commands
type gcodeState struct {
	axes     int
	relative bool
	pos      []float64
	feed     float64
}

// ParseGCode translates a G-code program for a machine with axes actuators
// into script commands. Supported: G0/G1 moves with F in units/min,
// G2/G3 arcs in the XY plane with I/J centers, G4 and M400 waits, G90/G91,
// G92, G21, M2/M30 and M112. Other M codes are ignored; unknown G codes
// are errors. Every bad line is reported.
func ParseGCode(r io.Reader, axes int) ([]Command, error) {
	st := &gcodeState{axes: axes, pos: make([]float64, axes)}
	var (
		cmds []Command
		errs error
	)
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		out, err := st.line(scanner.Text())
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		for _, cmd := range out {
			cmd.Line = lineNo
			cmds = append(cmds, cmd)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return cmds, errs
}

func (st *gcodeState) line(text string) ([]Command, error) {
	words, err := splitWords(text)
	if err != nil || len(words) == 0 {
		return nil, err
	}

	head := words[0]
	params := words[1:]
	if head.letter != 'G' && head.letter != 'M' {
		// a bare parameter line repeats the last move mode on most
		// controllers; require an explicit G word instead
		return nil, fmt.Errorf("line does not start with a G or M code")
	}
	code := int(head.value)
	if float64(code) != head.value {
		return nil, fmt.Errorf("unsupported code %c%g", head.letter, head.value)
	}

	if head.letter == 'M' {
		switch code {
		case 400, 2, 30:
			return []Command{{Op: OpWait}}, nil
		case 112:
			return []Command{{Op: OpAbort}}, nil
		}
		return nil, nil
	}

	switch code {
	case 0, 1:
		return st.move(params)
	case 2, 3:
		return st.arc(params, code == 2)
	case 4:
		return []Command{{Op: OpWait}}, nil
	case 21:
		return nil, nil
	case 90:
		st.relative = false
		return nil, nil
	case 91:
		st.relative = true
		return nil, nil
	case 92:
		return st.setOrigin(params)
	}
	return nil, fmt.Errorf("unsupported code G%d", code)
}

// axisIndex maps an axis word to its actuator, -1 for other letters
func (st *gcodeState) axisIndex(letter byte) (int, error) {
	i := strings.IndexByte(gcodeAxes, letter)
	if i < 0 {
		return -1, nil
	}
	if i >= st.axes {
		return -1, fmt.Errorf("axis %c on a %d axis machine", letter, st.axes)
	}
	return i, nil
}

// feedCommand emits a speed change when F differs from the current feed
func (st *gcodeState) feedCommand(params []word) []Command {
	for _, w := range params {
		if w.letter == 'F' && w.value > 0 && w.value != st.feed {
			st.feed = w.value
			return []Command{{Op: OpSpeed, Args: []float64{w.value / 60}}}
		}
	}
	return nil
}

func (st *gcodeState) target(params []word) ([]float64, error) {
	to := append([]float64(nil), st.pos...)
	for _, w := range params {
		i, err := st.axisIndex(w.letter)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			continue
		}
		if st.relative {
			to[i] += w.value
		} else {
			to[i] = w.value
		}
	}
	return to, nil
}

func (st *gcodeState) move(params []word) ([]Command, error) {
	to, err := st.target(params)
	if err != nil {
		return nil, err
	}
	cmds := st.feedCommand(params)
	cmds = append(cmds, Command{Op: OpMove, Args: to})
	st.pos = to
	return cmds, nil
}

func (st *gcodeState) arc(params []word, clockwise bool) ([]Command, error) {
	if st.axes < 2 {
		return nil, fmt.Errorf("arc needs at least 2 axes")
	}
	to, err := st.target(params)
	if err != nil {
		return nil, err
	}
	var di, dj float64
	for _, w := range params {
		switch w.letter {
		case 'I':
			di = w.value
		case 'J':
			dj = w.value
		case 'R':
			return nil, fmt.Errorf("radius arcs are not supported, use I/J")
		}
	}
	if di == 0 && dj == 0 {
		return nil, fmt.Errorf("arc needs an I or J center offset")
	}
	for i := 2; i < st.axes; i++ {
		if to[i] != st.pos[i] {
			return nil, fmt.Errorf("helical arcs are not supported")
		}
	}

	cx, cy := st.pos[0]+di, st.pos[1]+dj
	a0 := math.Atan2(st.pos[1]-cy, st.pos[0]-cx)
	a1 := math.Atan2(to[1]-cy, to[0]-cx)
	sweep := a1 - a0
	if clockwise {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	}

	cmds := st.feedCommand(params)
	cmds = append(cmds, Command{Op: OpArc, Args: []float64{cx, cy, sweep * 180 / math.Pi}})
	// the chords end on the circle; keep the modal position there too
	r := math.Hypot(st.pos[0]-cx, st.pos[1]-cy)
	st.pos[0] = cx + r*math.Cos(a0+sweep)
	st.pos[1] = cy + r*math.Sin(a0+sweep)
	return cmds, nil
}

func (st *gcodeState) setOrigin(params []word) ([]Command, error) {
	pos := append([]float64(nil), st.pos...)
	for _, w := range params {
		i, err := st.axisIndex(w.letter)
		if err != nil {
			return nil, err
		}
		if i >= 0 {
			pos[i] = w.value
		}
	}
	st.pos = pos
	return []Command{{Op: OpOrigin, Args: append([]float64(nil), pos...)}}, nil
}

// IsGCodePath reports whether path names a G-code file
func IsGCodePath(path string) bool {
	switch strings.ToLower(path[strings.LastIndexByte(path, '.')+1:]) {
	case "gcode", "gco", "gc", "nc", "ngc":
		return true
	}
	return false
}
