package core

import "testing"

func TestGuardReleaseOnce(t *testing.T) {
	calls := 0
	g := NewGuard(func() { calls++ })
	if !g.Held() {
		t.Error("New guard should be held")
	}
	g.Release()
	g.Release()
	if calls != 1 {
		t.Errorf("Expected release function to run once, ran %d times", calls)
	}
	if g.Held() {
		t.Error("Guard still held after Release")
	}
}

func TestZeroGuard(t *testing.T) {
	var g Guard
	if g.Held() {
		t.Error("Zero guard should not be held")
	}
	g.Release()
}

func TestCriticalNesting(t *testing.T) {
	base := CriticalDepth()

	outer := Critical()
	inner := Critical()
	if CriticalDepth() != base+2 {
		t.Errorf("Expected depth %d, got %d", base+2, CriticalDepth())
	}
	inner.Release()
	outer.Release()
	outer.Release()
	if CriticalDepth() != base {
		t.Errorf("Expected depth back to %d, got %d", base, CriticalDepth())
	}
}

func TestCriticalReleasedOnEarlyReturn(t *testing.T) {
	base := CriticalDepth()
	f := func(fail bool) bool {
		cs := Critical()
		defer cs.Release()
		if fail {
			return false
		}
		return true
	}
	f(true)
	f(false)
	if CriticalDepth() != base {
		t.Errorf("Critical section leaked: depth %d, want %d", CriticalDepth(), base)
	}
}
