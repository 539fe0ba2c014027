package auth

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ScopeSet is the canonical representation of granted scopes. Credentials
// arrive with scopes as comma-separated strings, JSON arrays or claim
// lists; everything is normalized into this one type at the boundary and
// internal logic never sees the raw forms.
//
// Normalization trims whitespace and drops empties but never folds case:
// "Write" and "write" are distinct scopes.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from the given scope tokens, normalizing each.
func NewScopeSet(scopes ...string) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		set[scope] = struct{}{}
	}
	return set
}

// Contains reports membership of a single scope.
func (s ScopeSet) Contains(scope string) bool {
	_, ok := s[scope]
	return ok
}

// ContainsAll reports whether every required scope is present. An empty
// requirement is always satisfied.
func (s ScopeSet) ContainsAll(required ScopeSet) bool {
	for scope := range required {
		if _, ok := s[scope]; !ok {
			return false
		}
	}
	return true
}

// Values returns the scopes as a sorted slice, for logging and responses.
func (s ScopeSet) Values() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// NormalizeScopeClaim converts a raw scope claim into a ScopeSet. A string
// is split on commas; a list is stringified element-wise; anything else
// yields the empty set.
func NormalizeScopeClaim(claim any) ScopeSet {
	switch v := claim.(type) {
	case nil:
		return ScopeSet{}
	case string:
		return ParseScopeList(v)
	case []string:
		return NewScopeSet(v...)
	case []any:
		scopes := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			scopes = append(scopes, fmt.Sprint(item))
		}
		return NewScopeSet(scopes...)
	default:
		return ScopeSet{}
	}
}

// ParseScopeList splits a comma-separated scope string into a set.
func ParseScopeList(raw string) ScopeSet {
	return NewScopeSet(strings.Split(raw, ",")...)
}

// parseStoredScopes handles the scope column of a stored API key, which
// historically holds either a JSON-encoded array or a comma-separated
// string. An unparseable or empty value yields an empty set.
func parseStoredScopes(raw string) ScopeSet {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ScopeSet{}
	}
	if strings.HasPrefix(raw, "[") {
		var items []any
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return NormalizeScopeClaim(items)
		}
	}
	return ParseScopeList(raw)
}
