package trajectory

import (
	"math"

	"stepcore/core"
	"stepcore/motion/geometry"
)

// Jerk is the jerk-point annotation of a trajectory. Mask flags the
// actuators that must be able to stop (down to their jerk speed) at the
// trajectory end. Distance is the per-actuator path distance, set once by
// Init. Offset is the deceleration distance reserved at the jerk point; it
// starts at zero and belongs to the kinematics engine afterwards.
type Jerk struct {
	Mask     uint32
	Distance []float64
	Offset   []float64
}

// AllAxes returns the mask with the first dim bits set
func AllAxes(dim int) uint32 {
	if dim >= 32 {
		return math.MaxUint32
	}
	return uint32(1)<<uint(dim) - 1
}

// Init fills the annotation for the trajectory described by base.
//
// Only affine trajectories are supported: their distance is the endpoint
// difference. Computing the distance of a general curve needs a traversal
// of the curve that is not implemented, so a non-affine trajectory halts
// with FaultNonAffine instead of being approximated.
func (j *Jerk) Init(base geometry.Base, initialIncrement float64, affine bool) {
	dim := base.Dimension()
	j.Mask = AllAxes(dim)
	j.Distance = make([]float64, dim)
	j.Offset = make([]float64, dim)

	if !affine {
		core.Fatal(core.FaultNonAffine, "jerk distance of a non-affine trajectory is not supported",
			base.Curve.Initial(), initialIncrement)
		return
	}

	start := geometry.EvaluateAndConvert(base, base.Curve.Initial())
	end := geometry.EvaluateAndConvert(base, base.Curve.Final())
	for axis := range j.Distance {
		j.Distance[axis] = math.Abs(end[axis] - start[axis])
	}
}

// Monitored reports whether axis must respect the jerk point
func (j *Jerk) Monitored(axis int) bool {
	return j.Mask&(1<<uint(axis)) != 0
}

// MaxDistance returns the largest per-actuator distance
func (j *Jerk) MaxDistance() float64 {
	max := 0.0
	for _, d := range j.Distance {
		if d > max {
			max = d
		}
	}
	return max
}

// Delete releases both arrays
func (j *Jerk) Delete() {
	j.Distance = nil
	j.Offset = nil
	j.Mask = 0
}
