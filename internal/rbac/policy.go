package rbac

import "slices"

// Security levels attached to documents at index time.
const (
	LevelPublic       = 1
	LevelInternal     = 2
	LevelConfidential = 3
	LevelSecret       = 4
)

// DocumentPolicy is the access-control metadata stored alongside a document
// in the search index. It is written by the ingest side and consumed
// read-only here.
type DocumentPolicy struct {
	DocumentID    string         `json:"document_id"`
	DocumentType  string         `json:"document_type"`
	Department    string         `json:"department"`
	SecurityLevel int            `json:"security_level"`
	OwnerID       string         `json:"owner_id"`
	AllowedRoles  []string       `json:"allowed_roles"`
	AllowedUsers  []string       `json:"allowed_users"`
	Tags          []string       `json:"tags"`
	Custom        map[string]any `json:"custom_metadata,omitempty"`
}

// Engine evaluates document access and compiles equivalent index filters.
type Engine struct {
	catalog   *Catalog
	directory Directory
}

// NewEngine builds an engine over the given catalog. Directory may be nil
// when callers always pass explicit role/department bindings.
func NewEngine(catalog *Catalog, directory Directory) *Engine {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Engine{catalog: catalog, directory: directory}
}

// Catalog exposes the engine's role catalog for operational changes.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// CanAccess reports whether a requester with the given roles and
// departments may read the document described by policy.
func (e *Engine) CanAccess(roles, departments []string, userID string, policy DocumentPolicy) bool {
	allowed, _ := e.Decide(roles, departments, userID, policy)
	return allowed
}

// Decide applies the four policy checks in order and returns the first
// failing dimension, for diagnostics. All checks must pass.
func (e *Engine) Decide(roles, departments []string, userID string, policy DocumentPolicy) (bool, string) {
	if policy.SecurityLevel > e.catalog.MaxLevel(roles) {
		return false, "security_level"
	}
	if !slices.Contains(departments, WildcardDepartment) && !slices.Contains(departments, policy.Department) {
		return false, "department"
	}
	if len(policy.AllowedRoles) > 0 && !intersects(policy.AllowedRoles, roles) {
		return false, "allowed_roles"
	}
	if len(policy.AllowedUsers) > 0 && !slices.Contains(policy.AllowedUsers, userID) {
		return false, "allowed_users"
	}
	return true, ""
}

// CanAccessUser resolves the requester's bindings through the directory
// and evaluates the policy.
func (e *Engine) CanAccessUser(userID string, policy DocumentPolicy) bool {
	roles, departments := e.bindings(userID)
	return e.CanAccess(roles, departments, userID, policy)
}

// CompileFilterForUser resolves directory bindings and compiles the filter.
func (e *Engine) CompileFilterForUser(userID string) Expr {
	roles, departments := e.bindings(userID)
	return e.CompileFilter(roles, departments, userID)
}

// RoleDepartments resolves the departments the given roles grant.
func (e *Engine) RoleDepartments(roles []string) []string {
	return e.catalog.Departments(roles)
}

func (e *Engine) bindings(userID string) (roles, departments []string) {
	if e.directory == nil {
		return nil, nil
	}
	return e.directory.UserRoles(userID), e.directory.UserDepartments(userID)
}

func intersects(a, b []string) bool {
	for _, v := range b {
		if slices.Contains(a, v) {
			return true
		}
	}
	return false
}
