package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/depgraph/pkg/errors"
	"github.com/matzehuels/depgraph/pkg/httputil"
	"github.com/matzehuels/depgraph/pkg/version"
)

type mockFetcher struct {
	packages map[string]*Package
	fail     map[string]error
	delay    map[string]time.Duration
	block    map[string]bool

	mu     sync.Mutex
	calls  map[string]int
	params map[string]string
}

func newMockFetcher(packages ...*Package) *mockFetcher {
	m := &mockFetcher{
		packages: make(map[string]*Package),
		fail:     make(map[string]error),
		delay:    make(map[string]time.Duration),
		block:    make(map[string]bool),
		calls:    make(map[string]int),
		params:   make(map[string]string),
	}
	for _, p := range packages {
		m.packages[p.Name] = p
	}
	return m
}

func (m *mockFetcher) Fetch(ctx context.Context, name, ver string) (*Package, error) {
	m.mu.Lock()
	m.calls[name]++
	m.params[name] = ver
	m.mu.Unlock()

	if m.block[name] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d := m.delay[name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.fail[name]; err != nil {
		return nil, err
	}
	if pkg, ok := m.packages[name]; ok {
		return pkg, nil
	}
	return nil, fmt.Errorf("%s@%s: package not found", name, ver)
}

func (m *mockFetcher) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// pkg builds a manifest whose dependencies are declared in argument order.
func pkg(name, ver string, deps ...string) *Package {
	p := &Package{Name: name, Version: ver, Dependencies: make(map[string]string)}
	for i := 0; i+1 < len(deps); i += 2 {
		p.Dependencies[deps[i]] = deps[i+1]
		p.Order = append(p.Order, deps[i])
	}
	return p
}

func resolve(t *testing.T, f Fetcher, opts Options, name, ver string) *Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := NewResolver(f, opts).Resolve(ctx, name, ver)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return res
}

func childNames(t *Tree) []string {
	names := make([]string, len(t.Children))
	for i, c := range t.Children {
		names[i] = c.Name
	}
	return names
}

func TestResolveConcreteScenario(t *testing.T) {
	f := newMockFetcher(
		pkg("root", "1.0.0", "dep-a", "^1.0.0"),
		pkg("dep-a", "1.0.0"),
	)
	res := resolve(t, f, Options{}, "root", "1.0.0")

	data, err := json.Marshal(res.Tree)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"name":"root","version":"1.0.0","children":[{"name":"dep-a","version":"1.0.0","children":[]}]}`
	if string(data) != want {
		t.Errorf("tree = %s\nwant %s", data, want)
	}
	if got := f.params["dep-a"]; got != "1.0.0" {
		t.Errorf("dep-a requested at %q, want %q", got, "1.0.0")
	}
}

func TestResolveDeclarationOrder(t *testing.T) {
	f := newMockFetcher(
		pkg("root", "1.0.0", "zeta", "1.0.0", "alpha", "1.0.0", "mid", "1.0.0"),
		pkg("zeta", "1.0.0"),
		pkg("alpha", "1.0.0"),
		pkg("mid", "1.0.0"),
	)
	// Finish in the reverse of declaration order.
	f.delay["zeta"] = 30 * time.Millisecond
	f.delay["alpha"] = 15 * time.Millisecond

	want := []string{"zeta", "alpha", "mid"}
	for i := range 3 {
		res := resolve(t, f, Options{}, "root", "1.0.0")
		got := childNames(res.Tree)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("run %d: children = %v, want %v", i, got, want)
		}
	}
}

func TestResolveAtMostOnceFetch(t *testing.T) {
	f := newMockFetcher(
		pkg("root", "1.0.0", "a", "1.0.0", "b", "1.0.0", "shared", "1.0.0", "root", "1.0.0"),
		pkg("a", "1.0.0", "shared", "^1.0.0", "a", "1.0.0"),
		pkg("b", "1.0.0", "shared", "~1.0.0"),
		pkg("shared", "1.0.0", "a", "1.0.0"),
	)
	res := resolve(t, f, Options{Concurrency: 4}, "root", "1.0.0")

	for _, name := range []string{"root", "a", "b", "shared"} {
		if n := f.callCount(name); n != 1 {
			t.Errorf("%s fetched %d times, want 1", name, n)
		}
	}
	if res.Stats.Fetches != 4 {
		t.Errorf("Stats.Fetches = %d, want 4", res.Stats.Fetches)
	}
	if res.Stats.Packages != 4 {
		t.Errorf("Stats.Packages = %d, want 4", res.Stats.Packages)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	f := newMockFetcher(
		pkg("a", "1.0.0", "b", "1.0.0"),
		pkg("b", "2.0.0", "a", "1.0.0"),
	)
	res := resolve(t, f, Options{}, "a", "1.0.0")

	b := res.Tree.Find("b")
	if b == nil || len(b.Children) != 1 {
		t.Fatalf("b = %+v, want one child", b)
	}
	again := b.Children[0]
	if again.Name != "a" || !again.Ref {
		t.Errorf("second a = %+v, want reference leaf", again)
	}
	if again.Version != "1.0.0" {
		t.Errorf("reference version = %q, want %q", again.Version, "1.0.0")
	}
	if again.Children != nil {
		t.Error("reference leaf must not be expanded")
	}
	if f.callCount("a") != 1 || f.callCount("b") != 1 {
		t.Errorf("calls a=%d b=%d, want 1 each", f.callCount("a"), f.callCount("b"))
	}
}

func TestResolveSelfReference(t *testing.T) {
	f := newMockFetcher(pkg("self", "1.0.0", "self", "^1.0.0"))
	res := resolve(t, f, Options{}, "self", "1.0.0")

	if len(res.Tree.Children) != 1 || !res.Tree.Children[0].Ref {
		t.Fatalf("children = %+v, want single reference", res.Tree.Children)
	}
	if n := f.callCount("self"); n != 1 {
		t.Errorf("self fetched %d times, want 1", n)
	}
}

func TestResolvePublishesRootInCache(t *testing.T) {
	f := newMockFetcher(pkg("root", "1.0.0", "dep", "1.0.0"), pkg("dep", "1.0.0"))
	res := resolve(t, f, Options{}, "root", "1.0.0")

	e, ok := res.Cache.Lookup("root")
	if !ok || e.State() != Resolved {
		t.Fatalf("root entry = %v, %v; want resolved", e, ok)
	}
	if e.Package() != res.Root {
		t.Error("cached root should be the record returned in Result.Root")
	}
	if res.Cache.Insert(&Package{Name: "root", Version: "9.9.9"}) {
		t.Error("Insert() over the root should be a no-op")
	}
}

func TestResolvePartialFailure(t *testing.T) {
	f := newMockFetcher(
		pkg("r", "1.0.0", "x", "1.0.0", "y", "1.0.0"),
		pkg("y", "1.0.0", "z", "1.0.0"),
		pkg("z", "1.0.0"),
	)
	f.fail["x"] = errors.New(errors.ErrCodePackageNotFound, "x@1.0.0 not found")

	res := resolve(t, f, Options{}, "r", "1.0.0")

	if res.Tree.Name != "r" {
		t.Errorf("root = %q, want r", res.Tree.Name)
	}
	got := childNames(res.Tree)
	if fmt.Sprint(got) != "[Error: x y]" {
		t.Fatalf("children = %v, want [Error: x y]", got)
	}
	x := res.Tree.Children[0]
	if !x.IsError() || x.Children != nil {
		t.Errorf("x = %+v, want error leaf", x)
	}
	if y := res.Tree.Children[1]; len(y.Children) != 1 || y.Children[0].Name != "z" {
		t.Errorf("y = %+v, want resolved child z", y)
	}
	if res.Stats.Failed != 1 {
		t.Errorf("Stats.Failed = %d, want 1", res.Stats.Failed)
	}
}

func TestResolveRootNotFound(t *testing.T) {
	f := newMockFetcher()
	_, err := NewResolver(f, Options{}).Resolve(context.Background(), "nonexistent-package", "1.0.0")
	if !errors.Is(err, errors.ErrCodeRootNotFound) {
		t.Fatalf("err = %v, want ROOT_NOT_FOUND", err)
	}
	if n := f.callCount("nonexistent-package"); n != 1 {
		t.Errorf("root fetched %d times, want 1", n)
	}
}

func TestResolveRootFailureIssuesNoChildFetches(t *testing.T) {
	f := newMockFetcher(pkg("child", "1.0.0"))
	f.fail["root"] = fmt.Errorf("boom")

	if _, err := NewResolver(f, Options{}).Resolve(context.Background(), "root", "1.0.0"); err == nil {
		t.Fatal("expected error")
	}
	if n := f.callCount("child"); n != 0 {
		t.Errorf("child fetched %d times, want 0", n)
	}
}

func TestResolveInvalidRoot(t *testing.T) {
	r := NewResolver(newMockFetcher(), Options{})

	if _, err := r.Resolve(context.Background(), "", "1.0.0"); !errors.Is(err, errors.ErrCodeInvalidPackage) {
		t.Errorf("empty name: err = %v, want INVALID_PACKAGE", err)
	}
	if _, err := r.Resolve(context.Background(), "pkg", ">=1.0.0"); !errors.Is(err, errors.ErrCodeInvalidVersionRange) {
		t.Errorf("bad version: err = %v, want INVALID_VERSION_RANGE", err)
	}
}

func TestResolveSkipsInvalidRanges(t *testing.T) {
	garbage := "this-is-not-a-version-and-it-is-far-too-long-to-ever-be-accepted"
	f := newMockFetcher(
		pkg("root", "1.0.0", "good", "^1.2.3", "junk", garbage, "wild", "*", "bad", "1.x"),
		pkg("good", "1.2.3"),
		pkg("wild", "9.9.9"),
	)
	res := resolve(t, f, Options{}, "root", "1.0.0")

	got := childNames(res.Tree)
	if fmt.Sprint(got) != "[good wild]" {
		t.Errorf("children = %v, want [good wild]", got)
	}
	if f.callCount("junk") != 0 || f.callCount("bad") != 0 {
		t.Error("rejected dependencies must not be fetched")
	}
	if f.params["wild"] != version.Latest {
		t.Errorf("wild requested at %q, want %q", f.params["wild"], version.Latest)
	}
	if res.Stats.Skipped != 2 {
		t.Errorf("Stats.Skipped = %d, want 2", res.Stats.Skipped)
	}
}

func TestResolvePolicy(t *testing.T) {
	tests := []struct {
		policy version.Policy
		want   string
	}{
		{version.PolicyLenient, "2.0.0"},
		{version.PolicyStrict, "2.0.0-beta.1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			f := newMockFetcher(
				pkg("root", "1.0.0", "beta", "~2.0.0-beta.1"),
				pkg("beta", tt.want),
			)
			resolve(t, f, Options{Policy: tt.policy}, "root", "1.0.0")
			if got := f.params["beta"]; got != tt.want {
				t.Errorf("beta requested at %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveMaxDepth(t *testing.T) {
	f := newMockFetcher(
		pkg("l0", "1.0.0", "l1", "1.0.0"),
		pkg("l1", "1.0.0", "l2", "1.0.0"),
		pkg("l2", "1.0.0", "l3", "1.0.0"),
		pkg("l3", "1.0.0"),
	)
	res := resolve(t, f, Options{MaxDepth: 1}, "l0", "1.0.0")

	if f.callCount("l2") != 0 {
		t.Error("l2 is beyond max depth and must not be fetched")
	}
	l1 := res.Tree.Find("l1")
	if l1 == nil || len(l1.Children) != 1 {
		t.Fatalf("l1 = %+v, want one stub child", l1)
	}
	stub := l1.Children[0]
	if stub.Name != "l2" || !stub.Truncated || stub.Children != nil {
		t.Errorf("stub = %+v, want truncated name-only l2", stub)
	}
}

func TestResolveTimeout(t *testing.T) {
	f := newMockFetcher(
		pkg("root", "1.0.0", "fast", "1.0.0", "slow", "1.0.0"),
		pkg("fast", "1.0.0", "later", "1.0.0"),
	)
	f.block["slow"] = true

	start := time.Now()
	res := resolve(t, f, Options{Timeout: 100 * time.Millisecond}, "root", "1.0.0")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Resolve() took %v, budget not enforced", elapsed)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}

	slow := res.Tree.Children[1]
	if slow.Name != "Error: slow" || slow.Error != ReasonTimedOut {
		t.Errorf("slow = %+v, want timed out error leaf", slow)
	}
	later := res.Tree.Find("later")
	if later == nil || !later.IsError() || later.Error != ReasonTimedOut {
		t.Errorf("later = %+v, want timed out error leaf", later)
	}
	if f.callCount("later") != 0 {
		t.Error("later must not be fetched after the budget expired")
	}
}

func TestResolveRetriesTransientErrors(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	f := FetcherFunc(func(ctx context.Context, name, ver string) (*Package, error) {
		if name == "root" {
			return pkg("root", "1.0.0", "flaky", "1.0.0"), nil
		}
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return nil, httputil.Retryable(fmt.Errorf("503"))
		}
		return pkg("flaky", "1.0.0"), nil
	})
	res := resolve(t, f, Options{Retries: 3, RetryDelay: time.Millisecond}, "root", "1.0.0")

	if got := res.Tree.Children[0]; got.IsError() {
		t.Errorf("flaky = %+v, want resolved after retry", got)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestResolveDoesNotMutateFetcherRecords(t *testing.T) {
	root := pkg("root", "1.0.0", "dep", "^1.0.0")
	f := newMockFetcher(root, pkg("dep", "1.0.0"))
	resolve(t, f, Options{}, "root", "1.0.0")

	if root.Children != nil {
		t.Errorf("fetcher record mutated: Children = %v", root.Children)
	}
}

func TestResolveIsolatedRuns(t *testing.T) {
	f := newMockFetcher(pkg("root", "1.0.0", "dep", "1.0.0"), pkg("dep", "1.0.0"))
	r := NewResolver(f, Options{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), "root", "1.0.0"); err != nil {
				t.Errorf("Resolve() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := f.callCount("dep"); n != 8 {
		t.Errorf("dep fetched %d times across 8 runs, want 8", n)
	}
}
