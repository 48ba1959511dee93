package errors

import (
	"strings"
	"unicode"
)

// maxPackageNameLength is npm's own limit on package name length.
const maxPackageNameLength = 214

// ValidatePackageName checks that name can be requested from an npm
// registry: "name" or "@scope/name", at most 214 bytes, no whitespace or
// control characters, no leading "." or "_" in either part, and nothing
// that escapes the registry path ("..", a backslash, a second "/").
//
// Uppercase letters are accepted. npm no longer allows them in new names,
// but legacy packages such as "JSONStream" still resolve.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}
	if len(name) > maxPackageNameLength {
		return New(ErrCodeInvalidPackage, "package name too long (max %d characters)", maxPackageNameLength)
	}
	if i := strings.IndexFunc(name, func(r rune) bool { return unicode.IsControl(r) || unicode.IsSpace(r) }); i >= 0 {
		return New(ErrCodeInvalidPackage, "package name contains whitespace or control characters: %q", name)
	}
	if strings.Contains(name, "..") || strings.ContainsRune(name, '\\') {
		return New(ErrCodeInvalidPackage, "package name contains a path sequence: %q", name)
	}

	bare := name
	if strings.HasPrefix(name, "@") {
		scope, rest, ok := strings.Cut(name[1:], "/")
		if !ok || scope == "" || rest == "" {
			return New(ErrCodeInvalidPackage, "scoped package name must look like @scope/name: %q", name)
		}
		if err := checkPart(name, scope); err != nil {
			return err
		}
		bare = rest
	}
	if strings.ContainsRune(bare, '/') {
		return New(ErrCodeInvalidPackage, "package name contains \"/\" outside a scope: %q", name)
	}
	return checkPart(name, bare)
}

func checkPart(name, part string) error {
	switch part[0] {
	case '.', '_':
		return New(ErrCodeInvalidPackage, "package name cannot start with %q: %q", part[:1], name)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
