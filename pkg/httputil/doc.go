// Package httputil provides retry helpers shared by registry clients and the
// resolver.
//
// Transport code marks transient failures (connection errors, 5xx responses)
// by wrapping them in [RetryableError]. Callers that are allowed to retry run
// the operation through [Backoff.Do]; everything that is not
// marked retryable is returned on the first attempt.
//
//	b := httputil.Backoff{Attempts: 3, Delay: 200 * time.Millisecond}
//	err := b.Do(ctx, func() error {
//	    _, err := client.Fetch(ctx, name, version)
//	    return err
//	})
package httputil
