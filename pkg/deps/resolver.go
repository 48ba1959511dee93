package deps

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depgraph/pkg/errors"
	"github.com/matzehuels/depgraph/pkg/httputil"
	"github.com/matzehuels/depgraph/pkg/observability"
	"github.com/matzehuels/depgraph/pkg/version"
)

// ReasonTimedOut is the failure reason recorded for packages that were not
// resolved before the run's budget expired.
const ReasonTimedOut = "timed out"

// Resolver builds dependency trees by expanding manifests fetched through a
// [Fetcher]. A Resolver holds no per-run state and may be shared.
type Resolver struct {
	fetcher Fetcher
	opts    Options
}

// NewResolver creates a Resolver that fetches manifests with f.
func NewResolver(f Fetcher, opts Options) *Resolver {
	return &Resolver{fetcher: f, opts: opts.WithDefaults()}
}

// Options returns the effective options, defaults applied.
func (r *Resolver) Options() Options { return r.opts }

// Result is the outcome of one resolution run.
type Result struct {
	RunID    string // Unique identifier of the run
	Root     *Package
	Tree     *Tree
	Cache    *Cache
	Stats    Stats
	TimedOut bool // The budget expired; unresolved packages are error leaves
}

// Stats summarizes a run.
type Stats struct {
	Packages int           // Distinct package names seen
	Resolved int           // Names fetched successfully
	Failed   int           // Names whose fetch failed or timed out
	Fetches  int           // Registry calls made, retries included
	Skipped  int           // Edges dropped because of unusable ranges
	Depth    int           // Deepest level expanded
	Duration time.Duration // Wall time of the run
}

// Resolve fetches name at version and every package reachable from it.
//
// The only error conditions are an invalid root request (INVALID_PACKAGE,
// INVALID_VERSION_RANGE) and a root that cannot be fetched (ROOT_NOT_FOUND).
// Every other failure is reported inside the returned tree.
func (r *Resolver) Resolve(ctx context.Context, name, ver string) (*Result, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	normalizer := version.NewNormalizer(r.opts.Policy)
	rootVersion, err := normalizer.Normalize(ver)
	if err != nil {
		return nil, err
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	rn := &run{
		id:         uuid.NewString(),
		opts:       r.opts,
		fetcher:    r.fetcher,
		normalizer: normalizer,
		cache:      NewCache(),
	}
	rn.logger = r.opts.Logger.With("run", rn.id[:8])

	start := time.Now()
	observability.Resolve().OnResolveStart(ctx, rn.id, name, rootVersion)

	res, err := rn.resolve(ctx, name, rootVersion)
	duration := time.Since(start)

	packages := 0
	if res != nil {
		res.Stats.Duration = duration
		packages = res.Stats.Packages
	}
	observability.Resolve().OnResolveComplete(ctx, rn.id, name, packages, duration, err)
	return res, err
}

type run struct {
	id         string
	opts       Options
	fetcher    Fetcher
	normalizer version.Normalizer
	cache      *Cache
	logger     *log.Logger

	fetches atomic.Int64
	skipped atomic.Int64
}

func (rn *run) resolve(ctx context.Context, name, ver string) (*Result, error) {
	root, err := rn.fetch(ctx, name, ver)
	if err != nil {
		rn.logger.Debug("root fetch failed", "package", name, "version", ver, "err", err)
		return nil, errors.Wrap(errors.ErrCodeRootNotFound, err, "fetch %s@%s", name, ver)
	}
	rn.cache.Insert(root)
	rn.logger.Debug("fetched root", "package", name, "version", root.Version, "deps", len(root.Children))

	frontier := []*Package{root}
	depth := 0
	for len(frontier) > 0 {
		if ctx.Err() != nil {
			rn.abandon(frontier, depth)
			break
		}
		if rn.opts.MaxDepth > 0 && depth >= rn.opts.MaxDepth {
			break
		}
		frontier = rn.expand(ctx, frontier)
		depth++
	}

	timedOut := ctx.Err() != nil
	if timedOut {
		n := rn.cache.FailPending(ReasonTimedOut)
		rn.logger.Warn("resolution budget exceeded", "unresolved", n)
	}

	tree := Assemble(rn.cache, name, AssembleOptions{MaxDepth: rn.opts.MaxDepth, MaxNodes: rn.opts.MaxNodes})

	resolved, failed, _ := rn.cache.Counts()
	res := &Result{
		RunID:    rn.id,
		Root:     root,
		Tree:     tree,
		Cache:    rn.cache,
		TimedOut: timedOut,
		Stats: Stats{
			Packages: rn.cache.Len(),
			Resolved: resolved,
			Failed:   failed,
			Fetches:  int(rn.fetches.Load()),
			Skipped:  int(rn.skipped.Load()),
			Depth:    depth,
		},
	}
	rn.logger.Info("resolved dependencies",
		"package", name,
		"packages", res.Stats.Packages,
		"failed", res.Stats.Failed,
		"skipped", res.Stats.Skipped,
		"depth", depth)
	return res, nil
}

type task struct {
	ref   DependencyRef
	entry *Entry
}

// expand fetches every not yet reserved child of level concurrently and
// returns the packages that resolved, in reservation order.
func (rn *run) expand(ctx context.Context, level []*Package) []*Package {
	var tasks []task
	for _, pkg := range level {
		for _, ref := range pkg.Children {
			entry, reserved := rn.cache.Reserve(ref.Name)
			if !reserved {
				observability.Cache().OnCacheHit(ctx, ref.Name)
				continue
			}
			observability.Cache().OnCacheMiss(ctx, ref.Name)
			tasks = append(tasks, task{ref: ref, entry: entry})
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	next := make([]*Package, len(tasks))
	var g errgroup.Group
	g.SetLimit(rn.opts.Concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			pkg, err := rn.fetch(ctx, t.ref.Name, t.ref.Version)
			if err != nil {
				reason := err.Error()
				if ctx.Err() != nil {
					reason = ReasonTimedOut
				}
				t.entry.Fail(reason)
				rn.logger.Warn("fetch failed", "package", t.ref.Name, "version", t.ref.Version, "err", err)
				return nil
			}
			t.entry.Resolve(pkg)
			next[i] = pkg
			return nil
		})
	}
	_ = g.Wait()

	resolved := next[:0]
	for _, pkg := range next {
		if pkg != nil {
			resolved = append(resolved, pkg)
		}
	}
	return resolved
}

// abandon records every edge of level that was never requested as timed out.
func (rn *run) abandon(level []*Package, depth int) {
	if rn.opts.MaxDepth > 0 && depth >= rn.opts.MaxDepth {
		return
	}
	for _, pkg := range level {
		for _, ref := range pkg.Children {
			if entry, reserved := rn.cache.Reserve(ref.Name); reserved {
				entry.Fail(ReasonTimedOut)
			}
		}
	}
}

// fetch retrieves one manifest and returns a private record with its
// normalized children. The fetcher's value is never mutated.
func (rn *run) fetch(ctx context.Context, name, ver string) (*Package, error) {
	var fetched *Package
	start := time.Now()
	backoff := httputil.Backoff{Attempts: rn.opts.Retries, Delay: rn.opts.RetryDelay}
	err := backoff.Do(ctx, func() error {
		rn.fetches.Add(1)
		p, err := rn.fetcher.Fetch(ctx, name, ver)
		if err != nil {
			return err
		}
		if p == nil {
			return errors.New(errors.ErrCodeInternal, "fetcher returned no package for %s@%s", name, ver)
		}
		fetched = p
		return nil
	})
	observability.Resolve().OnFetch(ctx, name, ver, time.Since(start), err)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s@%s", name, ver)
		}
		return nil, err
	}

	rec := &Package{
		Name:         name,
		Version:      fetched.Version,
		Dependencies: fetched.Dependencies,
		Order:        fetched.Order,
	}
	if rec.Version == "" {
		rec.Version = ver
	}
	rec.Children = rn.link(rec)
	return rec, nil
}

// link normalizes the declared ranges of pkg into edges, skipping and
// logging the ones that cannot be requested.
func (rn *run) link(pkg *Package) []DependencyRef {
	refs, rejected := rn.normalizer.NormalizeAll(pkg.Dependencies, pkg.DependencyNames())
	for _, r := range rejected {
		rn.skipped.Add(1)
		rn.logger.Warn("skipping dependency", "package", pkg.Name, "dependency", r.Name, "range", r.Range, "err", errors.UserMessage(r.Err))
	}

	children := make([]DependencyRef, 0, len(refs))
	for _, ref := range refs {
		if err := errors.ValidatePackageName(ref.Name); err != nil {
			rn.skipped.Add(1)
			rn.logger.Warn("skipping dependency", "package", pkg.Name, "dependency", ref.Name, "err", errors.UserMessage(err))
			continue
		}
		children = append(children, DependencyRef{Name: ref.Name, Version: ref.Version})
	}
	return children
}
