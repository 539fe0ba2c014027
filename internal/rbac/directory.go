package rbac

import "sync"

// Directory resolves an external user identifier to the roles and
// departments it carries. The mapping's source of truth lives outside this
// package; the engine only consumes the result.
type Directory interface {
	UserRoles(userID string) []string
	UserDepartments(userID string) []string
}

// StaticDirectory is an in-memory Directory with explicit per-user
// bindings and configurable fallbacks for unknown users.
type StaticDirectory struct {
	mu          sync.RWMutex
	roles       map[string][]string
	departments map[string][]string

	fallbackRoles       []string
	fallbackDepartments []string
}

// NewStaticDirectory returns a directory where unknown users resolve to
// the viewer role in the general department.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		roles:               make(map[string][]string),
		departments:         make(map[string][]string),
		fallbackRoles:       []string{"viewer"},
		fallbackDepartments: []string{"general"},
	}
}

// Bind records the roles and departments carried by a user.
func (d *StaticDirectory) Bind(userID string, roles, departments []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[userID] = append([]string(nil), roles...)
	d.departments[userID] = append([]string(nil), departments...)
}

// UserRoles returns the bound roles, or the fallback for unknown users.
func (d *StaticDirectory) UserRoles(userID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if roles, ok := d.roles[userID]; ok {
		return append([]string(nil), roles...)
	}
	return append([]string(nil), d.fallbackRoles...)
}

// UserDepartments returns the bound departments, or the fallback.
func (d *StaticDirectory) UserDepartments(userID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if departments, ok := d.departments[userID]; ok {
		return append([]string(nil), departments...)
	}
	return append([]string(nil), d.fallbackDepartments...)
}

var _ Directory = (*StaticDirectory)(nil)
