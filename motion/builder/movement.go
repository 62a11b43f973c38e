package builder

// Movement is one discretised segment: per-actuator step counts, a
// direction bitmask (bit set when the actuator decreases) and the execution
// duration in seconds written once by the kinematics engine.
type Movement struct {
	Steps     []uint32
	Direction uint32
	Duration  float64
}

// NewMovement allocates a movement for dim actuators
func NewMovement(dim int) *Movement {
	return &Movement{Steps: make([]uint32, dim)}
}

// Reset clears the movement for reuse
func (m *Movement) Reset() {
	for i := range m.Steps {
		m.Steps[i] = 0
	}
	m.Direction = 0
	m.Duration = 0
}

// CopyFrom overwrites m with src; both must have the same dimension
func (m *Movement) CopyFrom(src *Movement) {
	copy(m.Steps, src.Steps)
	m.Direction = src.Direction
	m.Duration = src.Duration
}

// StepCount returns the largest per-actuator step count; this is the
// number of timer ticks the movement occupies.
func (m *Movement) StepCount() uint32 {
	var max uint32
	for _, s := range m.Steps {
		if s > max {
			max = s
		}
	}
	return max
}

// Reverse reports whether axis moves toward decreasing positions
func (m *Movement) Reverse(axis int) bool {
	return m.Direction&(1<<uint(axis)) != 0
}
