package geometry

import "errors"

var ErrCoreXYDimension = errors.New("corexy geometry needs at least two axes")

// Geometry converts control-space coordinates into actuator-space
// coordinates (steps). It must be deterministic and dimension-preserving.
type Geometry interface {
	// Dimension returns the number of axes converted
	Dimension() int

	// Convert writes the actuator position for control into actuator
	Convert(control, actuator []float64)
}

// Cartesian maps each control axis onto one actuator with a fixed scale
type Cartesian struct {
	stepsPerUnit []float64
}

// NewCartesian creates a Cartesian geometry; stepsPerUnit is copied
func NewCartesian(stepsPerUnit []float64) *Cartesian {
	return &Cartesian{stepsPerUnit: append([]float64(nil), stepsPerUnit...)}
}

func (c *Cartesian) Dimension() int { return len(c.stepsPerUnit) }

func (c *Cartesian) Convert(control, actuator []float64) {
	for i, s := range c.stepsPerUnit {
		actuator[i] = control[i] * s
	}
}

// CoreXY drives the first two actuators with the sum and difference of X
// and Y; the remaining axes are Cartesian.
type CoreXY struct {
	stepsPerUnit []float64
}

// NewCoreXY creates a CoreXY geometry; stepsPerUnit is copied
func NewCoreXY(stepsPerUnit []float64) (*CoreXY, error) {
	if len(stepsPerUnit) < 2 {
		return nil, ErrCoreXYDimension
	}
	return &CoreXY{stepsPerUnit: append([]float64(nil), stepsPerUnit...)}, nil
}

func (c *CoreXY) Dimension() int { return len(c.stepsPerUnit) }

func (c *CoreXY) Convert(control, actuator []float64) {
	x, y := control[0], control[1]
	actuator[0] = (x + y) * c.stepsPerUnit[0]
	actuator[1] = (x - y) * c.stepsPerUnit[1]
	for i := 2; i < len(c.stepsPerUnit); i++ {
		actuator[i] = control[i] * c.stepsPerUnit[i]
	}
}
