// Package language decides which language code a recognition attempt sends
// to its backend, given an optional caller request, the host default, and
// the backend's declared supported list.
package language

import (
	"strings"

	"github.com/voxhaus/voxhaus/pkg/errorsx"
)

// Resolve picks the effective language for a recognition attempt.
//
// The candidate is the caller's request when present, the host default
// otherwise. A candidate matches a supported entry when the tags are equal
// or share a primary subtag, so "en" matches "en-US" and vice versa; the
// matched supported entry is returned. When the candidate does not match:
// an implicit candidate (no explicit request) silently falls back to the
// first supported entry, while an explicit request fails hard with
// unsupported_language. The hard failure also covers an empty supported
// list, even for the implicit default.
func Resolve(requested, hostDefault string, supported []string) (string, error) {
	candidate := strings.TrimSpace(requested)
	explicit := candidate != ""
	if !explicit {
		candidate = strings.TrimSpace(hostDefault)
	}

	if match, ok := bestMatch(candidate, supported); ok {
		return match, nil
	}
	if !explicit && len(supported) > 0 {
		return supported[0], nil
	}
	return "", errorsx.New(errorsx.ReasonUnsupportedLanguage,
		"language %q is not supported (supported: %s)", candidate, strings.Join(supported, ", "))
}

// bestMatch prefers an exact tag match over a primary-subtag match.
func bestMatch(candidate string, supported []string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	for _, entry := range supported {
		if strings.EqualFold(candidate, entry) {
			return entry, true
		}
	}
	base := primarySubtag(candidate)
	for _, entry := range supported {
		if strings.EqualFold(base, primarySubtag(entry)) {
			return entry, true
		}
	}
	return "", false
}

func primarySubtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}
