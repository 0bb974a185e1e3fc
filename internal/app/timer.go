package app

import "time"

// FlushTimer signals once per interval, repeating, from the moment it is
// started until it is stopped. Pushes never reset it, which bounds the time
// any operation can sit in the buffer to one interval.
type FlushTimer struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewFlushTimer creates a stopped timer. The interval must be positive.
func NewFlushTimer(interval time.Duration) *FlushTimer {
	return &FlushTimer{interval: interval}
}

// Start begins ticking. Calling Start on a running timer has no effect.
func (t *FlushTimer) Start() {
	if t.ticker != nil {
		return
	}
	t.ticker = time.NewTicker(t.interval)
}

// C returns the tick channel, or nil before Start. Receiving from a nil
// channel blocks forever, so a stopped timer never fires in a select.
func (t *FlushTimer) C() <-chan time.Time {
	if t.ticker == nil {
		return nil
	}
	return t.ticker.C
}

// Stop halts the timer.
func (t *FlushTimer) Stop() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	t.ticker = nil
}

// Interval returns the configured interval.
func (t *FlushTimer) Interval() time.Duration {
	return t.interval
}
