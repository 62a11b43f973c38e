package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var timerList *Timer

// timerBefore compares wake times modulo 2^32 so the list keeps working
// across clock wrap (about 358s at 12MHz).
func timerBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ScheduleTimer adds a timer to the schedule
func ScheduleTimer(t *Timer) {
	cs := Critical()
	defer cs.Release()

	insertTimer(t)
}

// CancelTimer removes a timer from the schedule. Returns false when the
// timer was not scheduled (for example while its handler is running).
func CancelTimer(t *Timer) bool {
	cs := Critical()
	defer cs.Release()

	if timerList == t {
		timerList = t.Next
		t.Next = nil
		return true
	}
	for cur := timerList; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return true
		}
	}
	return false
}

// insertTimer inserts a timer in sorted order by WakeTime
func insertTimer(t *Timer) {
	if timerList == nil || timerBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && !timerBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// NextWake returns the wake time of the earliest scheduled timer
func NextWake() (uint32, bool) {
	cs := Critical()
	defer cs.Release()

	if timerList == nil {
		return 0, false
	}
	return timerList.WakeTime, true
}

// TimerDispatch runs every timer with WakeTime <= now
func TimerDispatch(now uint32) {
	cs := Critical()
	defer cs.Release()

	for timerList != nil && !timerBefore(now, timerList.WakeTime) {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
}

// ResetTimers drops every scheduled timer
func ResetTimers() {
	cs := Critical()
	defer cs.Release()

	for timerList != nil {
		t := timerList
		timerList = t.Next
		t.Next = nil
	}
}
