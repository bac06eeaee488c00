package socket

import "time"

// timer is a single-shot task that fires on the socket's event loop.
//
// Every arm or cancel bumps the generation, and a firing is honoured only if
// it carries the current generation. A stale time.Timer that already queued
// its callback therefore can never run fn after a rearm.
//
// All methods must be called from the event loop.
type timer struct {
	delay time.Duration
	post  func(func()) bool
	fn    func()

	t   *time.Timer
	gen uint64
}

func newTimer(delay time.Duration, post func(func()) bool, fn func()) *timer {
	return &timer{delay: delay, post: post, fn: fn}
}

// arm cancels any pending firing and starts a fresh countdown.
func (t *timer) arm() {
	t.cancel()
	gen := t.gen
	t.t = time.AfterFunc(t.delay, func() {
		t.post(func() { t.fire(gen) })
	})
}

// cancel stops the pending firing, if any.
func (t *timer) cancel() {
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.gen++
}

// pending reports whether the timer is armed.
func (t *timer) pending() bool {
	return t.t != nil
}

func (t *timer) fire(gen uint64) {
	if gen != t.gen || t.t == nil {
		return
	}
	t.t = nil
	t.fn()
}
