package core

import (
	"testing"
)

func resetClock(now uint32) {
	ResetTimers()
	SetTime(now)
}

func TestTimerDispatchOrder(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	var fired []uint32
	handler := func(tm *Timer) uint8 {
		fired = append(fired, tm.WakeTime)
		return SF_DONE
	}

	t30 := &Timer{WakeTime: 30, Handler: handler}
	t10 := &Timer{WakeTime: 10, Handler: handler}
	t20 := &Timer{WakeTime: 20, Handler: handler}
	ScheduleTimer(t30)
	ScheduleTimer(t10)
	ScheduleTimer(t20)

	TimerDispatch(25)
	if len(fired) != 2 || fired[0] != 10 || fired[1] != 20 {
		t.Fatalf("Expected timers 10 and 20 to fire in order, got %v", fired)
	}

	wake, ok := NextWake()
	if !ok || wake != 30 {
		t.Errorf("Expected next wake at 30, got %d (ok=%v)", wake, ok)
	}

	TimerDispatch(30)
	if len(fired) != 3 || fired[2] != 30 {
		t.Errorf("Expected timer 30 to fire, got %v", fired)
	}
	if _, ok := NextWake(); ok {
		t.Error("Expected empty timer list")
	}
}

func TestTimerEqualWakeTimesKeepInsertionOrder(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	var fired []int
	mk := func(id int) *Timer {
		return &Timer{WakeTime: 50, Handler: func(*Timer) uint8 {
			fired = append(fired, id)
			return SF_DONE
		}}
	}
	ScheduleTimer(mk(1))
	ScheduleTimer(mk(2))
	ScheduleTimer(mk(3))

	TimerDispatch(50)
	if len(fired) != 3 || fired[0] != 1 || fired[1] != 2 || fired[2] != 3 {
		t.Errorf("Expected FIFO order for equal wake times, got %v", fired)
	}
}

func TestTimerReschedule(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	count := 0
	timer := &Timer{WakeTime: 10, Handler: func(tm *Timer) uint8 {
		count++
		tm.WakeTime += 10
		return SF_RESCHEDULE
	}}
	ScheduleTimer(timer)

	TimerDispatch(35)
	if count != 3 {
		t.Errorf("Expected 3 expiries up to t=35, got %d", count)
	}
	wake, ok := NextWake()
	if !ok || wake != 40 {
		t.Errorf("Expected reschedule at 40, got %d", wake)
	}
}

func TestCancelTimer(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	called := false
	handler := func(*Timer) uint8 {
		called = true
		return SF_DONE
	}
	a := &Timer{WakeTime: 10, Handler: handler}
	b := &Timer{WakeTime: 20, Handler: handler}
	ScheduleTimer(a)
	ScheduleTimer(b)

	if !CancelTimer(b) {
		t.Fatal("Expected scheduled timer to be cancelled")
	}
	if CancelTimer(b) {
		t.Error("Cancelling twice should report false")
	}
	if !CancelTimer(a) {
		t.Fatal("Expected head timer to be cancelled")
	}

	TimerDispatch(100)
	if called {
		t.Error("Cancelled timer fired")
	}
}

func TestTimerClockWrap(t *testing.T) {
	resetClock(0xFFFFFFF0)
	defer ResetTimers()

	fired := false
	timer := &Timer{WakeTime: 0x10 /* 0xFFFFFFF0 + 0x20 wrapped */, Handler: func(*Timer) uint8 {
		fired = true
		return SF_DONE
	}}
	ScheduleTimer(timer)

	TimerDispatch(0xFFFFFFFF)
	if fired {
		t.Fatal("Timer past the wrap fired early")
	}
	TimerDispatch(0x10)
	if !fired {
		t.Error("Timer past the wrap did not fire")
	}
}

func TestDispatchLeavesNoCriticalSectionOpen(t *testing.T) {
	resetClock(0)
	defer ResetTimers()

	ScheduleTimer(&Timer{WakeTime: 1, Handler: func(*Timer) uint8 { return SF_DONE }})
	TimerDispatch(1)
	if CriticalDepth() != 0 {
		t.Errorf("Expected no open critical section, got depth %d", CriticalDepth())
	}
}

func TestTickConversions(t *testing.T) {
	SetTimerFrequency(1000000)
	defer SetTimerFrequency(DefaultTimerFreq)

	if got := TicksFromSeconds(0.0015); got != 1500 {
		t.Errorf("Expected 1500 ticks, got %d", got)
	}
	if got := TicksFromSeconds(-1); got != 0 {
		t.Errorf("Expected 0 ticks for negative durations, got %d", got)
	}
	if got := TicksFromSeconds(1e12); got != 4294967295 {
		t.Errorf("Expected saturation, got %d", got)
	}
	if got := SecondsFromTicks(250000); got != 0.25 {
		t.Errorf("Expected 0.25s, got %g", got)
	}
	if got := TimerFromUS(10); got != 10 {
		t.Errorf("Expected 10 ticks, got %d", got)
	}
}
