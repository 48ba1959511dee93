// Package version turns npm dependency ranges into request-safe version tokens.
//
// # Overview
//
// A package manifest declares its dependencies as ranges ("^1.2.3",
// "~2.0.0-beta.1", "*"). The registry endpoint used by the resolver only
// understands a concrete version or a dist-tag, so every range is reduced to
// one token before it is used to build a URL:
//
//	n := version.NewNormalizer(version.PolicyLenient)
//	v, err := n.Normalize("^1.2.3") // "1.2.3"
//	v, err = n.Normalize("*")       // "latest"
//
// # Rules
//
//  1. Ranges longer than [MaxRangeLength] bytes are rejected outright.
//  2. "", "*", "x", "X" and "latest" become the tag "latest".
//  3. Other dist-tags ("next", "beta") are passed through unvalidated.
//  4. A single leading "^" or "~" is stripped.
//  5. Under [PolicyLenient] everything from the first "-" onwards is dropped,
//     which removes pre-release identifiers and reduces hyphen ranges
//     ("1.0.0 - 2.0.0") to their lower bound. [PolicyStrict] keeps it.
//  6. The result must be a strict semantic version
//     (MAJOR.MINOR.PATCH[-prerelease][+build], no leading zeros).
//
// Rejected ranges return an error with code INVALID_VERSION_RANGE that
// carries the original string. Callers skip such edges; they are never fatal.
package version
