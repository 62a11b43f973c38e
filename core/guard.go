package core

// Guard is a scoped critical section. The zero Guard is inert.
//
// Typical use:
//
//	g := actuation.Pause()
//	defer g.Release()
//
// Release may be called more than once; only the first call runs the
// release function, so an explicit early Release followed by the deferred
// one is safe.
type Guard struct {
	release func()
}

// NewGuard wraps a release function into a Guard
func NewGuard(release func()) Guard {
	return Guard{release: release}
}

// Release ends the critical section
func (g *Guard) Release() {
	if g.release == nil {
		return
	}
	release := g.release
	g.release = nil
	release()
}

// Held reports whether Release has not yet run
func (g *Guard) Held() bool {
	return g.release != nil
}

// Critical masks interrupts until the returned Guard is released.
// Keep the section short: nothing inside may take non-constant time.
func Critical() Guard {
	state := disableInterrupts()
	return Guard{release: func() { restoreInterrupts(state) }}
}
