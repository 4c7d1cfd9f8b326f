package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FilterAction says what happens to a metadata field that matches a rule.
type FilterAction string

const (
	// FilterRemove drops the field entirely.
	FilterRemove FilterAction = "remove"
	// FilterHash replaces the value with its SHA-256 hex digest, keeping
	// correlation possible without exposing the value.
	FilterHash FilterAction = "hash"
	// FilterMask keeps only the edges of the value visible.
	FilterMask FilterAction = "mask"
)

// Credentials are removed outright; identifiers that are useful for
// correlation are hashed; numbers a human may need to recognize are masked.
var defaultRules = map[string]FilterAction{
	"password":      FilterRemove,
	"secret":        FilterRemove,
	"token":         FilterRemove,
	"api_key":       FilterRemove,
	"access_token":  FilterRemove,
	"refresh_token": FilterRemove,
	"private_key":   FilterRemove,
	"cvv":           FilterRemove,
	"email":         FilterHash,
	"date_of_birth": FilterHash,
	"ssn":           FilterMask,
	"credit_card":   FilterMask,
	"card_number":   FilterMask,
	"phone":         FilterMask,
}

// MetadataFilter scrubs sensitive values out of event metadata before it
// reaches storage. Matching is by lowercased key; a pattern wrapped in
// asterisks matches any key containing it.
type MetadataFilter struct {
	rules    map[string]FilterAction
	allowed  map[string]bool
	defaults bool
}

// FilterOption configures a MetadataFilter.
type FilterOption func(*MetadataFilter)

// WithRule adds or overrides a filtering rule for a key or *pattern*.
func WithRule(key string, action FilterAction) FilterOption {
	return func(f *MetadataFilter) {
		f.rules[strings.ToLower(key)] = action
	}
}

// WithAllowed exempts a key from all filtering.
func WithAllowed(key string) FilterOption {
	return func(f *MetadataFilter) {
		f.allowed[strings.ToLower(key)] = true
	}
}

// WithoutDefaults starts from an empty rule set instead of the built-in
// sensitive-field list.
func WithoutDefaults() FilterOption {
	return func(f *MetadataFilter) { f.defaults = false }
}

// NewMetadataFilter builds a filter with the default sensitive-field rules.
func NewMetadataFilter(opts ...FilterOption) *MetadataFilter {
	f := &MetadataFilter{
		rules:    make(map[string]FilterAction),
		allowed:  make(map[string]bool),
		defaults: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter returns a scrubbed copy of metadata. The input map is not modified.
func (f *MetadataFilter) Filter(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if f.allowed[lower] {
			out[key] = value
			continue
		}
		action, matched := f.lookup(lower)
		if !matched {
			out[key] = value
			continue
		}
		if scrubbed := apply(action, value); scrubbed != nil {
			out[key] = scrubbed
		}
	}
	return out
}

func (f *MetadataFilter) lookup(key string) (FilterAction, bool) {
	if action, ok := f.rules[key]; ok {
		return action, true
	}
	if action, ok := matchContains(key, f.rules); ok {
		return action, true
	}
	if f.defaults {
		if action, ok := defaultRules[key]; ok {
			return action, true
		}
		if action, ok := matchContains(key, defaultRules); ok {
			return action, true
		}
	}
	return "", false
}

func matchContains(key string, rules map[string]FilterAction) (FilterAction, bool) {
	for pattern, action := range rules {
		if len(pattern) > 2 && strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") {
			if strings.Contains(key, pattern[1:len(pattern)-1]) {
				return action, true
			}
		}
	}
	return "", false
}

func apply(action FilterAction, value any) any {
	switch action {
	case FilterRemove:
		return nil
	case FilterHash:
		sum := sha256.Sum256(fmt.Append(nil, value))
		return hex.EncodeToString(sum[:])
	case FilterMask:
		return mask(fmt.Sprint(value))
	default:
		return value
	}
}

func mask(s string) string {
	switch n := len(s); {
	case n <= 4:
		return strings.Repeat("*", n)
	case n <= 8:
		return s[:1] + strings.Repeat("*", n-2) + s[n-1:]
	default:
		return s[:2] + strings.Repeat("*", n-4) + s[n-2:]
	}
}
