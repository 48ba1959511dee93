// Package deps builds dependency trees from package registry metadata.
//
// # Overview
//
// Given a root package name and version, a [Resolver] fetches the root
// manifest, normalizes every declared dependency range with
// [version.Normalizer], and expands the graph level by level until every
// reachable package name has been fetched exactly once. The result is an
// immutable [Tree] whose children follow manifest declaration order.
//
//	r := deps.NewResolver(registry.NewClient(registry.Options{}), deps.Options{
//	    MaxDepth: 0,                 // unbounded
//	    Timeout:  30 * time.Second,  // whole-run budget
//	})
//	res, err := r.Resolve(ctx, "express", "4.18.2")
//	if err != nil {
//	    // the root itself could not be fetched
//	}
//	fmt.Println(res.Tree.Name, len(res.Tree.Children))
//
// # Resolution runs
//
// Every call to [Resolver.Resolve] is one run with its own [Cache]. Nothing
// is shared between runs, so concurrent requests for different roots never
// observe each other's state.
//
// Within a run each package name moves one way through
// Unrequested -> Reserved -> (Resolved | Failed). The first caller to
// [Cache.Reserve] a name owns its fetch; everybody else reuses the entry.
// Because a name is fetched at most once and the set of names is finite,
// resolution terminates on cyclic graphs (a -> b -> a) and self-references.
//
// # Failures
//
//   - The root failing to fetch is fatal (code ROOT_NOT_FOUND).
//   - A dependency failing to fetch becomes an error leaf named
//     "Error: <name>"; siblings and ancestors are unaffected.
//   - A dependency with an unusable range is skipped and logged.
//   - When [Options.Timeout] expires, in-flight fetches are abandoned and
//     every package not yet resolved becomes a "timed out" error leaf. The
//     partial tree is still returned.
//
// # Tree shape
//
// [Assemble] walks the cache from the root. A package that is already an
// ancestor on the current path is emitted as a reference leaf (Ref) instead of
// being expanded again; packages below [Options.MaxDepth] are emitted as
// name-only stubs (Truncated).
package deps
