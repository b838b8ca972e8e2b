package coords

import (
	"fmt"
	"strings"
)

// SanitizeGroup maps a dotted Maven group id onto a registry-legal repository
// segment: lowercase, dots and underscores become hyphens, anything outside the
// legal character set is dropped, and separator runs collapse to a single
// hyphen. The mapping is deterministic and idempotent but not reversible.
func SanitizeGroup(group string) (string, error) {
	if group == "" {
		return "", fmt.Errorf("group must not be empty")
	}

	var b strings.Builder
	b.Grow(len(group))
	lastSep := false
	for _, r := range strings.ToLower(group) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		case r == '.', r == '-', r == '_':
			if !lastSep {
				b.WriteByte('-')
				lastSep = true
			}
		default:
			// Not representable in a registry name. Dropped.
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "", fmt.Errorf("group %q contains no registry-legal characters", group)
	}
	return out, nil
}

// ReverseGroup approximates the original dotted group for a sanitized segment.
// The sanitization is lossy, so the result is suitable for display and
// diagnostics only, never for lookups.
func ReverseGroup(segment string) string {
	return strings.ReplaceAll(segment, "-", ".")
}

// IsValidRepositorySegment reports whether s is already a legal sanitized
// segment: nonempty, lowercase alphanumerics and single hyphens, with
// alphanumerics at both ends.
func IsValidRepositorySegment(s string) bool {
	if s == "" {
		return false
	}
	prevHyphen := false
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			prevHyphen = false
		case r == '-':
			if i == 0 || i == len(s)-1 || prevHyphen {
				return false
			}
			prevHyphen = true
		default:
			return false
		}
	}
	return true
}
