package reactor

import (
	"testing"
	"time"
)

func TestTimerOrdering(t *testing.T) {
	tl := newTimerList()
	var fired []string

	tl.insert(10*time.Millisecond, 0, 0, func() { fired = append(fired, "a") })
	tl.insert(5*time.Millisecond, 0, 0, func() { fired = append(fired, "b") })

	time.Sleep(15 * time.Millisecond)
	tl.runDue(time.Now())

	if len(fired) != 2 || fired[0] != "b" || fired[1] != "a" {
		t.Fatalf("fired = %v, want [b a]", fired)
	}
}

func TestTimerRepeatRequeues(t *testing.T) {
	tl := newTimerList()
	count := 0
	tl.insert(1*time.Millisecond, 1*time.Millisecond, 2, func() { count++ })

	for i := 0; i < 3; i++ {
		time.Sleep(2 * time.Millisecond)
		tl.runDue(time.Now())
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3 (one initial + 2 repeats)", count)
	}
	if len(tl.entries) != 0 {
		t.Fatalf("expected timer to be gone after repeats exhausted")
	}
}

func TestTimerAdjustReorders(t *testing.T) {
	tl := newTimerList()
	id := tl.insert(100*time.Millisecond, 0, 0, func() {})
	tl.insert(1*time.Millisecond, 0, 0, func() {})

	if !tl.adjust(id, 0) {
		t.Fatalf("adjust returned false")
	}
	if tl.entries[0].id != id {
		t.Fatalf("expected adjusted timer to move to front")
	}
}

func TestTimerRemove(t *testing.T) {
	tl := newTimerList()
	id := tl.insert(time.Millisecond, 0, 0, func() { t.Fatalf("removed timer should not fire") })
	if !tl.remove(id) {
		t.Fatalf("remove returned false")
	}
	time.Sleep(2 * time.Millisecond)
	tl.runDue(time.Now())
}

func TestReactorMarkDeadDefersReap(t *testing.T) {
	r := New()
	s := &Socket{}
	r.Register(s)

	r.MarkDead(s)
	if _, ok := r.sockets[s.id]; !ok {
		t.Fatalf("socket should still be present until the next reap")
	}

	r.reap()
	if _, ok := r.sockets[s.id]; ok {
		t.Fatalf("socket should be gone after reap")
	}
}
