package builder

// IndexMonitor is the cursor used to walk a curve's parameter space. It is
// owned by one Builder and never shared.
type IndexMonitor struct {
	Index        float64
	Increment    float64
	Increasing   bool
	Limit        float64
	Candidate    float64
	LimitReached bool
}

// Init places the cursor at initial, heading toward final. The sign of
// increment is forced to match the direction.
func (m *IndexMonitor) Init(initial, final, increment float64) {
	m.Index = initial
	m.Limit = final
	m.Increasing = final >= initial
	m.Candidate = initial
	m.LimitReached = false
	if increment < 0 {
		increment = -increment
	}
	if !m.Increasing {
		increment = -increment
	}
	m.Increment = increment
}

// beyond reports whether index lies strictly past the limit in the
// direction of travel
func (m *IndexMonitor) beyond(index float64) bool {
	if m.Increasing {
		return index > m.Limit
	}
	return index < m.Limit
}

// ComputeIndex proposes the next index. When one more increment after the
// candidate would overshoot the limit, the candidate snaps exactly onto
// the limit so the walk always ends on the curve's final index.
func (m *IndexMonitor) ComputeIndex() {
	m.Candidate = m.Index + m.Increment
	m.LimitReached = false
	if m.beyond(m.Candidate + m.Increment) {
		m.Candidate = m.Limit
		m.LimitReached = true
	}
}

// Commit advances the cursor to the candidate
func (m *IndexMonitor) Commit() {
	m.Index = m.Candidate
}

// Scale multiplies the increment by a positive factor
func (m *IndexMonitor) Scale(factor float64) {
	m.Increment *= factor
}

// AtLimit reports whether the committed index is the limit
func (m *IndexMonitor) AtLimit() bool {
	return m.Index == m.Limit
}
