package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/depgraph/pkg/errors"
)

// MaxRangeLength is the longest range accepted. Anything longer is treated as
// malformed registry metadata and never reaches the semver parser.
const MaxRangeLength = 50

// Latest is the dist-tag that wildcard ranges resolve to.
const Latest = "latest"

// Policy selects how pre-release suffixes are handled.
type Policy string

const (
	// PolicyLenient truncates at the first "-" ("2.0.0-beta.1" -> "2.0.0").
	PolicyLenient Policy = "lenient"
	// PolicyStrict keeps pre-release identifiers ("2.0.0-beta.1").
	PolicyStrict Policy = "strict"
)

// ParsePolicy converts a configuration string to a Policy.
// The empty string maps to [PolicyLenient].
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyLenient, nil
	case PolicyLenient, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown version policy %q (want %q or %q)", s, PolicyLenient, PolicyStrict)
	}
}

var distTagRegex = regexp.MustCompile(`^[a-z][a-z0-9._-]*$`)

// Normalizer reduces dependency ranges to concrete version tokens.
// The zero value uses [PolicyLenient]. A Normalizer is safe for concurrent use.
type Normalizer struct {
	Policy Policy
}

// NewNormalizer returns a Normalizer for the given policy.
func NewNormalizer(p Policy) Normalizer {
	return Normalizer{Policy: p}
}

// Normalize returns the version token to request for raw, or an
// INVALID_VERSION_RANGE error naming the original string.
func (n Normalizer) Normalize(raw string) (string, error) {
	if len(raw) > MaxRangeLength {
		return "", errors.New(errors.ErrCodeInvalidVersionRange,
			"range too long (%d > %d characters): %.20q...", len(raw), MaxRangeLength, raw)
	}

	token := strings.TrimSpace(raw)
	switch token {
	case "", "*", "x", "X", Latest:
		return Latest, nil
	}
	if distTagRegex.MatchString(token) {
		return token, nil
	}

	if token[0] == '^' || token[0] == '~' {
		token = token[1:]
	}

	if n.Policy != PolicyStrict {
		if i := strings.IndexByte(token, '-'); i >= 0 {
			token = strings.TrimSpace(token[:i])
		}
	}

	v, err := semver.StrictNewVersion(token)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidVersionRange, err, "not a semantic version: %q", raw)
	}
	return v.Original(), nil
}

// Ref is an accepted dependency with its normalized version token.
type Ref struct {
	Name    string
	Version string
}

// Rejection is a dependency whose range could not be normalized.
type Rejection struct {
	Name  string
	Range string
	Err   error
}

// NormalizeAll normalizes deps in the given order. Names in order that are
// missing from deps are ignored. Accepted refs keep the order; rejections
// are returned separately so the caller can log and skip them.
func (n Normalizer) NormalizeAll(deps map[string]string, order []string) ([]Ref, []Rejection) {
	refs := make([]Ref, 0, len(order))
	var rejected []Rejection
	for _, name := range order {
		raw, ok := deps[name]
		if !ok {
			continue
		}
		v, err := n.Normalize(raw)
		if err != nil {
			rejected = append(rejected, Rejection{Name: name, Range: raw, Err: err})
			continue
		}
		refs = append(refs, Ref{Name: name, Version: v})
	}
	return refs, rejected
}
