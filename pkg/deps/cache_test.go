package deps

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCacheReserveOnce(t *testing.T) {
	c := NewCache()

	e1, first := c.Reserve("a")
	if !first {
		t.Fatal("first Reserve() = false, want true")
	}
	if got := e1.State(); got != Reserved {
		t.Errorf("State() = %v, want %v", got, Reserved)
	}

	e2, again := c.Reserve("a")
	if again {
		t.Error("second Reserve() = true, want false")
	}
	if e1 != e2 {
		t.Error("Reserve() returned a different entry for the same name")
	}
}

func TestCacheConcurrentReserve(t *testing.T) {
	c := NewCache()
	var owners atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.Reserve("shared"); ok {
				owners.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := owners.Load(); n != 1 {
		t.Errorf("owners = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestEntryTransitionsAreOneWay(t *testing.T) {
	c := NewCache()
	e, _ := c.Reserve("a")

	if !e.Resolve(&Package{Name: "a", Version: "1.0.0"}) {
		t.Fatal("Resolve() = false on reserved entry")
	}
	if e.Fail("late") {
		t.Error("Fail() after Resolve() changed the entry")
	}
	if e.Resolve(&Package{Name: "a", Version: "2.0.0"}) {
		t.Error("second Resolve() changed the entry")
	}
	if got := e.Package().Version; got != "1.0.0" {
		t.Errorf("Version = %q, want %q", got, "1.0.0")
	}
	if e.Marker() != nil {
		t.Error("Marker() on resolved entry should be nil")
	}

	f, _ := c.Reserve("b")
	f.Fail("not found")
	if f.State() != Failed {
		t.Errorf("State() = %v, want %v", f.State(), Failed)
	}
	if m := f.Marker(); m == nil || m.Name != "b" || m.Reason != "not found" {
		t.Errorf("Marker() = %+v", m)
	}
}

func TestCacheInsertIdempotent(t *testing.T) {
	c := NewCache()
	if !c.Insert(&Package{Name: "a", Version: "1.0.0"}) {
		t.Fatal("Insert() = false on empty cache")
	}
	if c.Insert(&Package{Name: "a", Version: "2.0.0"}) {
		t.Error("Insert() of present name = true, want false")
	}
	e, _ := c.Lookup("a")
	if got := e.Package().Version; got != "1.0.0" {
		t.Errorf("Version = %q, want %q", got, "1.0.0")
	}
}

func TestCacheStateAndCounts(t *testing.T) {
	c := NewCache()
	if got := c.State("missing"); got != Unrequested {
		t.Errorf("State(missing) = %v, want %v", got, Unrequested)
	}

	c.Insert(&Package{Name: "ok"})
	bad, _ := c.Reserve("bad")
	bad.Fail("boom")
	c.Reserve("slow")
	c.Reserve("slower")

	resolved, failed, pending := c.Counts()
	if resolved != 1 || failed != 1 || pending != 2 {
		t.Errorf("Counts() = %d, %d, %d, want 1, 1, 2", resolved, failed, pending)
	}

	if n := c.FailPending(ReasonTimedOut); n != 2 {
		t.Errorf("FailPending() = %d, want 2", n)
	}
	if m := c.entries["slow"].Marker(); m == nil || m.Reason != ReasonTimedOut {
		t.Errorf("slow marker = %+v, want timed out", m)
	}
	if c.State("ok") != Resolved {
		t.Error("FailPending() must not touch resolved entries")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Unrequested: "unrequested",
		Reserved:    "reserved",
		Resolved:    "resolved",
		Failed:      "failed",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}
