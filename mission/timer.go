package mission

import "time"

// Timer measures time since a mark on an injected clock.
type Timer struct {
	clock Clock
	mark  time.Time
}

// NewTimer returns a timer marked at the clock's current time.
func NewTimer(clock Clock) *Timer {
	return &Timer{clock: clock, mark: clock.Now()}
}

// Now returns the clock's current time.
func (t *Timer) Now() time.Time {
	return t.clock.Now()
}

// Reset moves the mark to now and returns it.
func (t *Timer) Reset() time.Time {
	t.mark = t.clock.Now()
	return t.mark
}

// Mark returns the current mark.
func (t *Timer) Mark() time.Time {
	return t.mark
}

// Elapsed returns the time since the mark.
func (t *Timer) Elapsed() time.Duration {
	return t.ElapsedSince(t.mark)
}

// ElapsedSince returns the time since mark.
func (t *Timer) ElapsedSince(mark time.Time) time.Duration {
	return t.clock.Now().Sub(mark)
}
