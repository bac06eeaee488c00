package socket

import (
	"reflect"
	"testing"
)

func TestStatus_WatchReceivesCurrentAndChanges(t *testing.T) {
	s := &Status{}

	var seen []bool
	cancel := s.Watch(func(c bool) { seen = append(seen, c) })

	s.set(true)
	s.set(true)
	s.set(false)
	cancel()
	s.set(true)

	want := []bool{false, true, false}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
	if !s.Connected() {
		t.Error("Connected() = false after final set(true)")
	}
}

func TestStatus_MultipleWatchers(t *testing.T) {
	s := &Status{}

	var a, b int
	cancelA := s.Watch(func(bool) { a++ })
	s.Watch(func(bool) { b++ })

	s.set(true)
	cancelA()
	cancelA()
	s.set(false)

	if a != 2 {
		t.Errorf("watcher a called %d times, want 2", a)
	}
	if b != 3 {
		t.Errorf("watcher b called %d times, want 3", b)
	}
}
