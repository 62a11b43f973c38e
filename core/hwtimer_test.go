package core

import "testing"

func TestSchedTimerPeriodic(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	count := 0
	st := NewSchedTimer(func() { count++ })
	st.SetPeriod(100)
	st.InterruptEnable()
	st.Start()

	TimerDispatch(350)
	if count != 3 {
		t.Errorf("Expected 3 interrupts, got %d", count)
	}
	if st.Fired != 3 {
		t.Errorf("Expected Fired=3, got %d", st.Fired)
	}
	wake, ok := NextWake()
	if !ok || wake != 400 {
		t.Errorf("Expected next expiry at 400, got %d", wake)
	}
}

func TestSchedTimerMasked(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	count := 0
	st := NewSchedTimer(func() { count++ })
	st.SetPeriod(10)
	st.Start()

	TimerDispatch(25)
	if count != 0 {
		t.Errorf("Masked interrupt ran its handler %d times", count)
	}
	if st.Masked != 2 {
		t.Errorf("Expected 2 masked expiries, got %d", st.Masked)
	}
	if !st.Pending() {
		t.Error("Expected pending flag after a masked expiry")
	}
	st.InterruptFlagClear()
	if st.Pending() {
		t.Error("Expected pending flag cleared")
	}

	st.InterruptEnable()
	TimerDispatch(30)
	if count != 1 {
		t.Errorf("Expected handler to run once unmasked, got %d", count)
	}
}

func TestSchedTimerStopFromHandler(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	count := 0
	var st *SchedTimer
	st = NewSchedTimer(func() {
		count++
		if count == 2 {
			st.Stop()
		}
	})
	st.SetPeriod(10)
	st.InterruptEnable()
	st.Start()

	TimerDispatch(100)
	if count != 2 {
		t.Errorf("Expected 2 interrupts before stop, got %d", count)
	}
	if st.Running() {
		t.Error("Timer still running after Stop")
	}
	if _, ok := NextWake(); ok {
		t.Error("Stopped timer is still scheduled")
	}
}

func TestSchedTimerPeriodChange(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	var st *SchedTimer
	st = NewSchedTimer(func() { st.SetPeriod(50) })
	st.SetPeriod(10)
	st.InterruptEnable()
	st.Start()

	TimerDispatch(10)
	wake, ok := NextWake()
	if !ok || wake != 60 {
		t.Errorf("Expected new period to apply from the next expiry (60), got %d", wake)
	}

	st.SetPeriod(0)
	if st.Period() != 1 {
		t.Errorf("Expected minimum period of 1 tick, got %d", st.Period())
	}
}

func TestSchedTimerStopStart(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	st := NewSchedTimer(func() {})
	st.SetPeriod(10)
	st.Start()
	st.Start()
	st.Stop()
	if _, ok := NextWake(); ok {
		t.Fatal("Expected timer removed by Stop")
	}

	SetTime(100)
	st.Start()
	wake, ok := NextWake()
	if !ok || wake != 110 {
		t.Errorf("Expected restart one period from now (110), got %d", wake)
	}
}
