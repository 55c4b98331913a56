package playback

import "time"

// Timer is a one-shot timer that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Clock creates the scheduler's look-ahead timers.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock backs timers with time.AfterFunc.
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Display shows the text of the active cue.
type Display interface {
	Show(text string)
	Clear()
}

type nopDisplay struct{}

func (nopDisplay) Show(string) {}
func (nopDisplay) Clear()      {}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
