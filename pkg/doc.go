// Package pkg provides the core libraries for depgraph.
//
// # Overview
//
// depgraph builds the transitive dependency tree of an npm package by
// fetching manifests from a registry level by level. The pkg directory is
// organized as follows:
//
//  1. [deps] - Resolution engine (per-run cache, parallel fan-out, tree assembly)
//  2. [registry] - npm registry client implementing [deps.Fetcher]
//  3. [version] - Version range normalization
//  4. [render] - Graphviz DOT export of resolved trees
//  5. [errors], [httputil], [observability], [buildinfo] - Shared infrastructure
//
// # Architecture
//
// The data flow of one run:
//
//	name@range
//	     ↓
//	[version] normalize the range to a concrete version or dist-tag
//	     ↓
//	[deps.Resolver] fetch level by level through a [deps.Fetcher]
//	     ↓
//	[deps.Cache] each package fetched at most once
//	     ↓
//	[deps.Assemble] cycle-safe tree with error leaves
//	     ↓
//	JSON / tree / DOT output
//
// # Quick Start
//
//	client := registry.NewClient(registry.Options{})
//	resolver := deps.NewResolver(client, deps.Options{Timeout: 30 * time.Second})
//
//	res, err := resolver.Resolve(ctx, "express", "^4.18.0")
//	if err != nil {
//	    return err // invalid root or ROOT_NOT_FOUND
//	}
//	out, _ := json.Marshal(res.Tree)
//
// Any [deps.Fetcher] can stand in for the registry, which is how the tests
// drive the resolver with in-memory manifests.
//
// # Observability
//
// Register hooks once at startup to receive resolve, cache and HTTP events:
//
//	observability.SetResolveHooks(myMetrics)
//	observability.SetHTTPHooks(myTracer)
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/deps
// [registry]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/registry
// [version]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/version
// [render]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/render
// [errors]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/depgraph/pkg/buildinfo
package pkg
