// Package rbac implements role-based document access control: a mutable
// role catalog, per-document policy evaluation, and compilation of the
// same policy into a filter expression pushed down to the search index.
package rbac

import (
	"errors"
	"sort"
	"sync"
)

// WildcardDepartment grants access to every department.
const WildcardDepartment = "*"

// Role defines a named privilege tier. Level is a global ordinal used as
// the ceiling for document security levels.
type Role struct {
	Name           string   `json:"name"`
	Level          int      `json:"level"`
	Departments    []string `json:"departments"`
	SecurityLevels []int    `json:"security_levels"`
	Permissions    []string `json:"permissions"`
}

// Catalog holds the role definitions consulted during access checks.
// It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	roles map[string]Role
}

// NewCatalog returns a catalog seeded with the default role set.
func NewCatalog() *Catalog {
	c := &Catalog{roles: make(map[string]Role)}
	for _, role := range defaultRoles() {
		c.roles[role.Name] = role
	}
	return c
}

func defaultRoles() []Role {
	return []Role{
		{
			Name:           "admin",
			Level:          4,
			Departments:    []string{WildcardDepartment},
			SecurityLevels: []int{1, 2, 3, 4},
			Permissions:    []string{"read", "write", "delete", "admin"},
		},
		{
			Name:           "manager",
			Level:          3,
			Departments:    []string{"engineering", "sales", "marketing"},
			SecurityLevels: []int{1, 2, 3},
			Permissions:    []string{"read", "write"},
		},
		{
			Name:           "analyst",
			Level:          2,
			Departments:    []string{"engineering", "data"},
			SecurityLevels: []int{1, 2},
			Permissions:    []string{"read"},
		},
		{
			Name:           "viewer",
			Level:          1,
			Departments:    []string{"engineering"},
			SecurityLevels: []int{1},
			Permissions:    []string{"read"},
		},
	}
}

// Add inserts or replaces a role definition.
func (c *Catalog) Add(role Role) error {
	if role.Name == "" {
		return errors.New("rbac: role name is required")
	}
	if role.Level < 1 {
		return errors.New("rbac: role level must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[role.Name] = role
	return nil
}

// Remove deletes a role definition. Removing an unknown role is a no-op.
func (c *Catalog) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roles, name)
}

// Get returns the named role definition.
func (c *Catalog) Get(name string) (Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	role, ok := c.roles[name]
	return role, ok
}

// List returns all role definitions, highest level first.
func (c *Catalog) List() []Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Role, 0, len(c.roles))
	for _, role := range c.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MaxLevel returns the highest catalog level among the given role names.
// Roles absent from the catalog are ignored; with no catalog role at all
// the result is 0, which denies every security level.
func (c *Catalog) MaxLevel(roles []string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	max := 0
	for _, name := range roles {
		if role, ok := c.roles[name]; ok && role.Level > max {
			max = role.Level
		}
	}
	return max
}

// Departments returns the union of departments granted to the given role
// names, in stable order. A wildcard in any role collapses the result to
// the wildcard alone.
func (c *Catalog) Departments(roles []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, name := range roles {
		role, ok := c.roles[name]
		if !ok {
			continue
		}
		for _, dept := range role.Departments {
			if dept == WildcardDepartment {
				return []string{WildcardDepartment}
			}
			if _, dup := seen[dept]; dup {
				continue
			}
			seen[dept] = struct{}{}
			out = append(out, dept)
		}
	}
	sort.Strings(out)
	return out
}

// defaultScopeTable maps authentication-time role names to their default
// scope grants. Kept next to the catalog so the key validator and the
// policy engine share one source of role defaults.
var defaultScopeTable = map[string][]string{
	"super_admin":   {"read", "write", "admin", "delete"},
	"admin":         {"read", "write", "admin"},
	"developer":     {"read", "write"},
	"viewer":        {"read"},
	"authenticated": {"read"},
}

// DefaultScopesForRole returns the default scopes granted to a role when a
// credential carries none of its own. Unknown roles get read-only access.
func DefaultScopesForRole(role string) []string {
	if scopes, ok := defaultScopeTable[role]; ok {
		out := make([]string, len(scopes))
		copy(out, scopes)
		return out
	}
	return []string{"read"}
}
