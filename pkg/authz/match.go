package authz

import (
	"slices"
	"strings"
)

const (
	wildcard  = "*"
	delimiter = ":"
)

// Matches reports whether permission satisfies pattern. A pattern is an
// exact permission ("projects:read"), the global wildcard "*", or a
// namespace wildcard ("projects:*") covering every action on a resource.
func Matches(permission, pattern string) bool {
	if permission == pattern || pattern == wildcard {
		return true
	}
	if strings.HasSuffix(pattern, wildcard) {
		prefix := strings.TrimSuffix(pattern, wildcard)
		prefix = strings.TrimSuffix(prefix, delimiter)
		return strings.HasPrefix(permission, prefix+delimiter)
	}
	return false
}

// hasPermission reports whether any granted pattern covers permission.
func hasPermission(granted []string, permission string) bool {
	for _, g := range granted {
		if Matches(permission, g) {
			return true
		}
	}
	return false
}

// normalize deduplicates, trims, and sorts a permission list. Empty
// entries are dropped.
func normalize(perms []string) []string {
	if len(perms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
