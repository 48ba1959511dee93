package deps

import "sync"

// State is the lifecycle stage of a package name within one run.
type State int

const (
	Unrequested State = iota // never seen
	Reserved                 // a fetch is owned by some caller
	Resolved                 // fetched successfully
	Failed                   // fetch failed, terminal for the run
)

func (s State) String() string {
	switch s {
	case Reserved:
		return "reserved"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unrequested"
	}
}

// Entry is the cache slot for one package name.
type Entry struct {
	name string

	mu     sync.Mutex
	state  State
	pkg    *Package
	marker *ErrorMarker
}

func newEntry(name string) *Entry {
	return &Entry{name: name, state: Reserved}
}

// Name returns the package name this entry belongs to.
func (e *Entry) Name() string { return e.name }

// State returns the current state.
func (e *Entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Package returns the resolved record, or nil unless the state is Resolved.
func (e *Entry) Package() *Package {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pkg
}

// Marker returns the failure marker, or nil unless the state is Failed.
func (e *Entry) Marker() *ErrorMarker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marker
}

// Resolve publishes pkg. Only the first settlement wins; it reports whether
// this call changed the entry.
func (e *Entry) Resolve(pkg *Package) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Reserved {
		return false
	}
	e.state = Resolved
	e.pkg = pkg
	return true
}

// Fail records a terminal failure. Only the first settlement wins.
func (e *Entry) Fail(reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Reserved {
		return false
	}
	e.state = Failed
	e.marker = &ErrorMarker{Name: e.name, Reason: reason}
	return true
}

// Cache maps package names to their entries for a single resolution run.
// It is the only shared mutable structure of a run; all methods are safe
// for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Reserve returns the entry for name, creating it in the Reserved state if
// absent. The boolean is true only for the caller that created the entry;
// that caller must eventually Resolve or Fail it.
func (c *Cache) Reserve(name string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[name]; ok {
		return e, false
	}
	e := newEntry(name)
	c.entries[name] = e
	return e, true
}

// Insert stores an already fetched package. Inserting a name that is
// present is a no-op and returns false.
func (c *Cache) Insert(pkg *Package) bool {
	e, reserved := c.Reserve(pkg.Name)
	if !reserved {
		return false
	}
	return e.Resolve(pkg)
}

// Lookup returns the entry for name without reserving it.
func (c *Cache) Lookup(name string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	return e, ok
}

// State returns the state of name, Unrequested when absent.
func (c *Cache) State(name string) State {
	if e, ok := c.Lookup(name); ok {
		return e.State()
	}
	return Unrequested
}

// FailPending marks every entry still Reserved as Failed with reason and
// returns how many entries changed.
func (c *Cache) FailPending(reason string) int {
	c.mu.Lock()
	pending := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		pending = append(pending, e)
	}
	c.mu.Unlock()

	n := 0
	for _, e := range pending {
		if e.Fail(reason) {
			n++
		}
	}
	return n
}

// Len returns the number of names seen in this run.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Counts returns how many entries are resolved, failed and still reserved.
func (c *Cache) Counts() (resolved, failed, pending int) {
	c.mu.Lock()
	entries := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	for _, e := range entries {
		switch e.State() {
		case Resolved:
			resolved++
		case Failed:
			failed++
		case Reserved:
			pending++
		}
	}
	return resolved, failed, pending
}
