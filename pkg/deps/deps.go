package deps

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depgraph/pkg/version"
)

const (
	DefaultConcurrency = 16               // Default parallel fetches per level
	DefaultTimeout     = 30 * time.Second // Default budget for one run
	DefaultRetries     = 1                // Default attempts per fetch (no retry)
	DefaultRetryDelay  = 250 * time.Millisecond
	DefaultMaxNodes    = 10000 // Default node budget of an assembled tree
)

// Options configures dependency resolution behavior.
type Options struct {
	MaxDepth    int            // Deepest level to expand, root is 0 (0 = unbounded)
	MaxNodes    int            // Expanded nodes in the assembled tree (default: 10000)
	Concurrency int            // Parallel fetches per level (default: 16)
	Timeout     time.Duration  // Budget for the whole run (default: 30s, <0 disables)
	Retries     int            // Attempts per fetch for transient errors (default: 1)
	RetryDelay  time.Duration  // Initial backoff between attempts (default: 250ms)
	Policy      version.Policy // Pre-release handling (default: lenient)
	Logger      *log.Logger    // Structured logger (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Policy == "" {
		opts.Policy = version.PolicyLenient
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Fetcher retrieves one package manifest from a registry.
type Fetcher interface {
	// Fetch returns the manifest of name at version. Implementations perform
	// a single request and must not retry or cache.
	Fetch(ctx context.Context, name, version string) (*Package, error)
}

// FetcherFunc adapts a function to the [Fetcher] interface.
type FetcherFunc func(ctx context.Context, name, version string) (*Package, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, name, version string) (*Package, error) {
	return f(ctx, name, version)
}

// Package is a fetched manifest together with its normalized edges.
//
// Fetchers fill Name, Version, Dependencies and, when the source preserves
// it, Order. The resolver fills Children on its own copy before the record
// is published to the [Cache]; after that the record is never mutated.
type Package struct {
	Name         string            // Package name
	Version      string            // Concrete version served by the registry
	Dependencies map[string]string // Declared dependency ranges by name
	Order        []string          // Dependency names in manifest declaration order
	Children     []DependencyRef   // Normalized, request-ready edges
}

// DependencyNames returns the declared dependency names in declaration
// order. When the fetcher did not record an order that covers every
// dependency, names are returned sorted so output stays deterministic.
func (p *Package) DependencyNames() []string {
	if len(p.Order) == len(p.Dependencies) {
		complete := true
		for _, name := range p.Order {
			if _, ok := p.Dependencies[name]; !ok {
				complete = false
				break
			}
		}
		if complete {
			return slices.Clone(p.Order)
		}
	}
	names := make([]string, 0, len(p.Dependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DependencyRef is a normalized edge from a parent package to a child.
type DependencyRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String returns "name@version".
func (r DependencyRef) String() string { return r.Name + "@" + r.Version }

// ErrorMarker records that fetching Name failed during a run.
type ErrorMarker struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// toEdgeView projects a package record onto the fields that cross the
// resolver boundary.
func toEdgeView(p *Package) DependencyRef {
	return DependencyRef{Name: p.Name, Version: p.Version}
}
