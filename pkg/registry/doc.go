// Package registry fetches package manifests from an npm-compatible registry.
//
// [Client] implements [deps.Fetcher]: every call to [Client.Fetch] issues
// exactly one GET of {BaseURL}/{name}/{version} and decodes the manifest,
// keeping the declaration order of its "dependencies" object. The client
// never retries and never caches; both are the resolver's concern.
//
//	c := registry.NewClient(registry.Options{})
//	pkg, err := c.Fetch(ctx, "@types/node", "20.1.0")
//	if errors.Is(err, registry.ErrNotFound) {
//	    // 404 from the registry
//	}
//
// Failures wrap [ErrNotFound] or [ErrNetwork] and name the package and
// version that failed. Server errors and transport failures are also marked
// [httputil.RetryableError].
package registry
