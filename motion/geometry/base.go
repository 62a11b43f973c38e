package geometry

import "fmt"

// Bounds expresses the desired and acceptable per-segment actuator step
// count: the builder aims at Target and keeps segments in (Min, Max).
type Bounds struct {
	Target float64 `json:"target" yaml:"target"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Validate checks 0 <= Min < Target < Max
func (b Bounds) Validate() error {
	if b.Min < 0 || !(b.Min < b.Target) || !(b.Target < b.Max) {
		return fmt.Errorf("bounds must satisfy 0 <= min < target < max, got min=%g target=%g max=%g",
			b.Min, b.Target, b.Max)
	}
	return nil
}

// Base bundles what evaluation helpers need. It is passed by value and
// owns no memory.
type Base struct {
	Curve    Curve
	Geometry Geometry
	Bounds   Bounds
}

// Dimension returns the curve dimension
func (b Base) Dimension() int {
	return b.Curve.Dimension()
}

// CheckDimensions reports a curve/geometry dimension mismatch
func (b Base) CheckDimensions() error {
	if b.Curve == nil || b.Geometry == nil {
		return fmt.Errorf("base needs both a curve and a geometry")
	}
	if b.Curve.Dimension() != b.Geometry.Dimension() {
		return fmt.Errorf("curve dimension %d does not match geometry dimension %d",
			b.Curve.Dimension(), b.Geometry.Dimension())
	}
	return nil
}

// Evaluate calls the curve directly; index is trusted
func Evaluate(curve Curve, index float64, out []float64) {
	curve.Evaluate(index, out)
}

// EvaluateAndConvert evaluates the curve at index and returns the actuator
// position. It allocates; interrupt-path callers use EvaluateAndConvertInto.
func EvaluateAndConvert(base Base, index float64) []float64 {
	dim := base.Dimension()
	scratch := make([]float64, dim)
	out := make([]float64, dim)
	EvaluateAndConvertInto(base, index, scratch, out)
	return out
}

// EvaluateAndConvertInto evaluates into the caller-owned scratch buffer and
// converts into out. Neither buffer may alias the other.
func EvaluateAndConvertInto(base Base, index float64, scratch, out []float64) {
	base.Curve.Evaluate(index, scratch)
	base.Geometry.Convert(scratch, out)
}
