package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/depgraph/pkg/buildinfo"
	"github.com/matzehuels/depgraph/pkg/deps"
	"github.com/matzehuels/depgraph/pkg/errors"
	"github.com/matzehuels/depgraph/pkg/httputil"
	"github.com/matzehuels/depgraph/pkg/observability"
)

const (
	DefaultBaseURL = "https://registry.npmjs.org"
	DefaultTimeout = 10 * time.Second

	maxManifestBytes = 8 << 20
)

var (
	// ErrNotFound is returned when the registry has no such package or version.
	ErrNotFound = stderrors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = stderrors.New("network error")

	// ErrMalformed is returned when a response body is not a valid manifest.
	ErrMalformed = stderrors.New("malformed manifest")
)

// Options configures a Client.
type Options struct {
	BaseURL    string            // Registry root (default: https://registry.npmjs.org)
	Timeout    time.Duration     // Per-request timeout (default: 10s)
	Headers    map[string]string // Extra headers sent with every request
	HTTPClient *http.Client      // Overrides the tuned default client
}

// Client fetches manifests from one registry. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	headers map[string]string
}

var _ deps.Fetcher = (*Client)(nil)

// NewClient creates a Client. Zero-valued options take their defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = NewHTTPClient(opts.Timeout)
	}
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": buildinfo.UserAgent(),
	}
	maps.Copy(headers, opts.Headers)
	return &Client{http: hc, baseURL: base, headers: headers}
}

// NewHTTPClient returns an HTTP client tuned for many small requests to a
// single registry host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// BaseURL returns the registry root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// URL returns the manifest URL of name at version. Scoped names keep their
// "@" and have the separating slash escaped ("@scope%2Fpkg").
func (c *Client) URL(name, version string) string {
	return c.baseURL + "/" + url.PathEscape(name) + "/" + url.PathEscape(version)
}

// Fetch retrieves the manifest of name at version with a single GET.
func (c *Client) Fetch(ctx context.Context, name, version string) (*deps.Package, error) {
	body, err := c.doRequest(ctx, c.URL(name, version))
	if err != nil {
		return nil, attribute(err, name, version)
	}
	defer body.Close()

	m, err := decodeManifest(io.LimitReader(body, maxManifestBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, fmt.Errorf("%w: %v", ErrMalformed, err), "%s@%s", name, version)
	}

	pkg := &deps.Package{
		Name:         m.Name,
		Version:      m.Version,
		Dependencies: m.Dependencies,
		Order:        m.Order,
	}
	if pkg.Name == "" {
		pkg.Name = name
	}
	if pkg.Version == "" {
		pkg.Version = version
	}
	return pkg, nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.EscapedPath()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, httputil.Retryable(fmt.Errorf("%w: %w", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// attribute tags err with the package it belongs to and a code. Retry
// marking is kept outermost.
func attribute(err error, name, version string) error {
	code := errors.ErrCodeNetwork
	switch {
	case stderrors.Is(err, ErrNotFound):
		code = errors.ErrCodePackageNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		code = errors.ErrCodeTimeout
	}
	wrapped := errors.Wrap(code, err, "%s@%s", name, version)
	if httputil.IsRetryable(err) {
		return httputil.Retryable(wrapped)
	}
	return wrapped
}
