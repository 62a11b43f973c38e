// Package geometry evaluates parametric curves in control space and maps
// control-space coordinates to actuator space.
package geometry

import "errors"

var (
	ErrEmptyCurve         = errors.New("curve needs at least one dimension")
	ErrMismatchedEndpoint = errors.New("curve endpoints have different dimensions")
	ErrDegenerateIndex    = errors.New("curve initial and final index are equal")
)

// Curve maps a scalar index to a control-space position. Implementations
// are immutable and Evaluate must be side-effect free and bounded in time:
// it runs on the interrupt path.
type Curve interface {
	// Dimension returns the number of coordinates Evaluate writes
	Dimension() int

	// Evaluate writes the position at index into out[:Dimension()]
	Evaluate(index float64, out []float64)

	// Initial returns the index of the curve start
	Initial() float64

	// Final returns the index of the curve end
	Final() float64
}

// Line is the straight segment From -> To over the index range [0, 1]
type Line struct {
	from []float64
	to   []float64
}

// NewLine creates a straight segment. The endpoints are copied.
func NewLine(from, to []float64) (*Line, error) {
	if len(from) == 0 {
		return nil, ErrEmptyCurve
	}
	if len(from) != len(to) {
		return nil, ErrMismatchedEndpoint
	}
	l := &Line{
		from: append([]float64(nil), from...),
		to:   append([]float64(nil), to...),
	}
	return l, nil
}

func (l *Line) Dimension() int { return len(l.from) }

func (l *Line) Initial() float64 { return 0 }

func (l *Line) Final() float64 { return 1 }

func (l *Line) Evaluate(index float64, out []float64) {
	for i := range l.from {
		out[i] = l.from[i] + (l.to[i]-l.from[i])*index
	}
}

// From returns a copy of the start point
func (l *Line) From() []float64 { return append([]float64(nil), l.from...) }

// To returns a copy of the end point
func (l *Line) To() []float64 { return append([]float64(nil), l.to...) }

// EvalFunc is the signature of a configuration-supplied curve equation
type EvalFunc func(index float64, out []float64)

// Func adapts an EvalFunc into a Curve
type Func struct {
	dim            int
	eval           EvalFunc
	initial, final float64
}

// NewFunc wraps eval as a curve of the given dimension over [initial, final]
func NewFunc(dim int, initial, final float64, eval EvalFunc) (*Func, error) {
	if dim <= 0 {
		return nil, ErrEmptyCurve
	}
	if initial == final {
		return nil, ErrDegenerateIndex
	}
	return &Func{dim: dim, eval: eval, initial: initial, final: final}, nil
}

func (f *Func) Dimension() int { return f.dim }

func (f *Func) Initial() float64 { return f.initial }

func (f *Func) Final() float64 { return f.final }

func (f *Func) Evaluate(index float64, out []float64) { f.eval(index, out) }
