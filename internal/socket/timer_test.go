package socket

import (
	"testing"
	"time"
)

// testLoop runs posted functions on the test goroutine.
type testLoop struct {
	ch chan func()
}

func newTestLoop() *testLoop {
	return &testLoop{ch: make(chan func(), 16)}
}

func (l *testLoop) post(fn func()) bool {
	l.ch <- fn
	return true
}

// runFor executes posted functions until d elapses.
func (l *testLoop) runFor(d time.Duration) {
	deadline := time.After(d)
	for {
		select {
		case fn := <-l.ch:
			fn()
		case <-deadline:
			return
		}
	}
}

func TestTimer_Fires(t *testing.T) {
	loop := newTestLoop()
	fired := 0
	tm := newTimer(10*time.Millisecond, loop.post, func() { fired++ })

	tm.arm()
	if !tm.pending() {
		t.Fatal("pending() = false after arm")
	}
	loop.runFor(60 * time.Millisecond)

	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if tm.pending() {
		t.Error("pending() = true after firing")
	}
}

func TestTimer_CancelPreventsFiring(t *testing.T) {
	loop := newTestLoop()
	fired := 0
	tm := newTimer(10*time.Millisecond, loop.post, func() { fired++ })

	tm.arm()
	tm.cancel()
	loop.runFor(40 * time.Millisecond)

	if fired != 0 {
		t.Errorf("fired = %d after cancel, want 0", fired)
	}
}

func TestTimer_StaleFiringIgnored(t *testing.T) {
	loop := newTestLoop()
	fired := 0
	tm := newTimer(5*time.Millisecond, loop.post, func() { fired++ })

	tm.arm()
	// Let the first countdown queue its callback without running it.
	time.Sleep(20 * time.Millisecond)
	tm.arm()

	// The queued callback from the first arm is stale.
	fn := <-loop.ch
	fn()
	if fired != 0 {
		t.Fatalf("stale firing ran the task")
	}

	loop.runFor(40 * time.Millisecond)
	if fired != 1 {
		t.Errorf("fired = %d, want 1 from the rearmed countdown", fired)
	}
}

func TestTimer_RearmPostpones(t *testing.T) {
	loop := newTestLoop()
	fired := 0
	tm := newTimer(40*time.Millisecond, loop.post, func() { fired++ })

	tm.arm()
	for i := 0; i < 4; i++ {
		loop.runFor(20 * time.Millisecond)
		tm.arm()
	}
	if fired != 0 {
		t.Fatalf("fired = %d while being rearmed", fired)
	}

	loop.runFor(100 * time.Millisecond)
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}
