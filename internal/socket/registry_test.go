package socket

import (
	"reflect"
	"testing"
)

type mirrorRecorder struct {
	sent []Envelope
}

func (m *mirrorRecorder) mirror(env Envelope) {
	m.sent = append(m.sent, env)
}

func TestRegistry_SubscribeMirroring(t *testing.T) {
	rec := &mirrorRecorder{}
	r := NewRegistry(rec.mirror)

	stop1 := r.On("temperature", func(any) {})
	stop2 := r.On("temperature", func(any) {})

	want := []Envelope{{Event: EventSubscribe, Data: "temperature"}}
	if !reflect.DeepEqual(rec.sent, want) {
		t.Fatalf("after two registrations sent = %v, want %v", rec.sent, want)
	}

	stop1()
	if len(rec.sent) != 1 {
		t.Fatalf("removing one of two listeners sent %v", rec.sent[1:])
	}

	stop2()
	want = append(want, Envelope{Event: EventUnsubscribe, Data: "temperature"})
	if !reflect.DeepEqual(rec.sent, want) {
		t.Fatalf("after removing all sent = %v, want %v", rec.sent, want)
	}
	if r.Len("temperature") != 0 {
		t.Errorf("Len() = %d after removing all", r.Len("temperature"))
	}
}

func TestRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	rec := &mirrorRecorder{}
	r := NewRegistry(rec.mirror)

	stop := r.On("alarm", func(any) {})
	stop()
	stop()

	if len(rec.sent) != 2 {
		t.Errorf("sent %d envelopes, want 2 (subscribe, unsubscribe)", len(rec.sent))
	}
}

func TestRegistry_ReservedEventsNeverMirrored(t *testing.T) {
	rec := &mirrorRecorder{}
	r := NewRegistry(rec.mirror)

	for _, ev := range []string{EventOpen, EventClose, EventError, EventMessage, EventUnresponsive} {
		a := r.On(ev, func(any) {})
		b := r.On(ev, func(any) {})
		a()
		b()
		r.On(ev, func(any) {})
		r.Off(ev)
	}

	if len(rec.sent) != 0 {
		t.Errorf("reserved events produced control envelopes: %v", rec.sent)
	}
}

func TestRegistry_OffRemovesAll(t *testing.T) {
	rec := &mirrorRecorder{}
	r := NewRegistry(rec.mirror)

	stop := r.On("alarm", func(any) {})
	r.On("alarm", func(any) {})
	r.Off("alarm")
	r.Off("alarm")

	want := []Envelope{
		{Event: EventSubscribe, Data: "alarm"},
		{Event: EventUnsubscribe, Data: "alarm"},
	}
	if !reflect.DeepEqual(rec.sent, want) {
		t.Errorf("sent = %v, want %v", rec.sent, want)
	}

	// Handle from before Off must not unsubscribe again.
	stop()
	if len(rec.sent) != 2 {
		t.Errorf("stale unsubscribe handle sent %v", rec.sent[2:])
	}
}

func TestRegistry_ResubscribeAfterEmpty(t *testing.T) {
	rec := &mirrorRecorder{}
	r := NewRegistry(rec.mirror)

	r.On("alarm", func(any) {})()
	r.On("alarm", func(any) {})

	if len(rec.sent) != 3 || rec.sent[2].Event != EventSubscribe {
		t.Errorf("sent = %v, want subscribe/unsubscribe/subscribe", rec.sent)
	}
}

func TestRegistry_DispatchOrderAndPanicIsolation(t *testing.T) {
	r := NewRegistry(nil)

	var calls []string
	var panicked []string
	r.onPanic = func(event string) { panicked = append(panicked, event) }

	r.On("temperature", func(data any) {
		calls = append(calls, "first")
		panic("boom")
	})
	r.On("temperature", func(data any) {
		calls = append(calls, "second:"+data.(string))
	})

	n := r.Dispatch("temperature", "21.5")

	if n != 2 {
		t.Errorf("Dispatch() = %d, want 2", n)
	}
	want := []string{"first", "second:21.5"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if !reflect.DeepEqual(panicked, []string{"temperature"}) {
		t.Errorf("panicked = %v", panicked)
	}
}

func TestRegistry_MutationDuringDispatch(t *testing.T) {
	r := NewRegistry(nil)

	var calls []string
	var stopSecond func()
	r.On("tick", func(any) {
		calls = append(calls, "first")
		stopSecond()
		r.On("tick", func(any) { calls = append(calls, "late") })
	})
	stopSecond = r.On("tick", func(any) { calls = append(calls, "second") })

	r.Dispatch("tick", nil)

	want := []string{"first", "second"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("first dispatch calls = %v, want %v", calls, want)
	}

	calls = nil
	r.Dispatch("tick", nil)
	want = []string{"first", "late"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("second dispatch calls = %v, want %v", calls, want)
	}
}

func TestRegistry_Topics(t *testing.T) {
	r := NewRegistry(nil)
	r.On("zeta", func(any) {})
	r.On("alpha", func(any) {})
	r.On(EventOpen, func(any) {})

	want := []string{"alpha", "zeta"}
	if got := r.Topics(); !reflect.DeepEqual(got, want) {
		t.Errorf("Topics() = %v, want %v", got, want)
	}
}

func TestRegistry_DispatchWithoutListeners(t *testing.T) {
	r := NewRegistry(nil)
	if n := r.Dispatch("nobody", 1); n != 0 {
		t.Errorf("Dispatch() = %d, want 0", n)
	}
}

func TestRegistry_Replay(t *testing.T) {
	rec := &mirrorRecorder{}
	r := NewRegistry(rec.mirror)
	r.On("temperature", func(any) {})
	r.On("alarm", func(any) {})
	r.On(EventOpen, func(any) {})
	rec.sent = nil

	if r.Replay(func() bool { return false }) {
		t.Error("Replay() = true for a refused publish")
	}
	if len(rec.sent) != 0 {
		t.Fatalf("refused publish sent %v", rec.sent)
	}

	if !r.Replay(func() bool { return true }) {
		t.Error("Replay() = false")
	}
	want := []Envelope{
		{Event: EventSubscribe, Data: "alarm"},
		{Event: EventSubscribe, Data: "temperature"},
	}
	if !reflect.DeepEqual(rec.sent, want) {
		t.Errorf("replayed %v, want %v", rec.sent, want)
	}
}
