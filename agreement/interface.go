package agreement

import "time"

// Clock is what the sequencer reads the time from. Tests inject a fixed one.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
