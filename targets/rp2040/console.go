//go:build rp2040

package main

import (
	"errors"
	"strconv"
	"strings"

	"stepcore/core"
	"stepcore/motion"
)

// Console assembles USB bytes into lines and runs them against the axis
// group:
//
//	move X Y Z   absolute target, missing axes keep their position
//	rel DX DY DZ relative target
//	speed S      path speed in units/s
//	abort        stop immediately
//	status       report positions and state
type Console struct {
	group  *motion.Group
	speed  float64
	line   []byte
	output []byte
}

// NewConsole creates a console for group
func NewConsole(group *motion.Group) *Console {
	return &Console{
		group:  group,
		line:   make([]byte, 0, 128),
		output: make([]byte, 0, 256),
	}
}

// ProcessByte processes a single byte of input
func (c *Console) ProcessByte(b byte) {
	if b != '\n' && b != '\r' {
		if len(c.line) < cap(c.line) {
			c.line = append(c.line, b)
		}
		return
	}

	line := strings.TrimSpace(string(c.line))
	c.line = c.line[:0]
	if line == "" || line[0] == '#' {
		return
	}
	if err := c.execute(line); err != nil {
		c.respond("error: " + err.Error())
		return
	}
	c.respond("ok")
}

func (c *Console) execute(line string) error {
	fields := strings.Fields(line)
	args := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return errors.New("bad argument " + f)
		}
		args = append(args, v)
	}

	switch fields[0] {
	case "move", "rel":
		if len(args) == 0 || len(args) > c.group.Dimension() {
			return errors.New("wrong coordinate count")
		}
		to := c.group.Planned()
		for axis, v := range args {
			if fields[0] == "rel" {
				to[axis] += v
			} else {
				to[axis] = v
			}
		}
		t, err := c.group.NewLine(to, c.speed)
		if errors.Is(err, motion.ErrTooShort) {
			return nil
		}
		if err != nil {
			return err
		}
		return c.group.Submit(t)
	case "speed":
		if len(args) != 1 || args[0] <= 0 {
			return errors.New("speed takes one positive value")
		}
		c.speed = args[0]
		return nil
	case "abort":
		c.group.Abort()
		return nil
	case "status":
		c.status()
		return nil
	default:
		return errors.New("unknown command " + fields[0])
	}
}

func (c *Console) status() {
	msg := c.group.Actuation().State().String() + " " + c.group.Controller().State().String()
	for _, p := range c.group.Positions() {
		msg += " " + strconv.FormatInt(p, 10)
	}
	msg += " steps=" + strconv.FormatUint(uint64(core.GetTotalStepCount()), 10)
	msg += " uptime=" + strconv.FormatUint(Uptime()/1000000, 10) + "s"
	c.respond(msg)
}

func (c *Console) respond(msg string) {
	c.output = append(c.output, msg...)
	c.output = append(c.output, '\n')
}

// Output returns pending output; call Reset once it was written
func (c *Console) Output() []byte {
	return c.output
}

// Reset drops pending output after it was written
func (c *Console) Reset() {
	c.output = c.output[:0]
}
