package rbac

import (
	"fmt"
	"slices"
	"strings"
)

// Expr is a boolean filter expression over document policy fields. It can
// be rendered into the search index's filter syntax with String, and
// evaluated in-process with Eval; the two must agree for any document
// satisfying the policy schema.
type Expr interface {
	Eval(policy DocumentPolicy) bool
	String() string
}

// CompileFilter produces a filter expression equivalent to CanAccess for
// the given requester: push-down evaluation inside the index replaces
// post-hoc filtering of results.
func (e *Engine) CompileFilter(roles, departments []string, userID string) Expr {
	clauses := andExpr{levelAtMost(e.catalog.MaxLevel(roles))}

	if !slices.Contains(departments, WildcardDepartment) {
		if len(departments) == 0 {
			clauses = append(clauses, matchNone{})
		} else {
			or := make(orExpr, 0, len(departments))
			for _, department := range departments {
				or = append(or, departmentIs(department))
			}
			clauses = append(clauses, or)
		}
	}

	roleClause := orExpr{noRoleRestriction{}}
	for _, role := range roles {
		roleClause = append(roleClause, roleAllowed(role))
	}
	clauses = append(clauses, roleClause)

	clauses = append(clauses, orExpr{noUserRestriction{}, userAllowed(userID)})

	return clauses
}

// FilterExpression is a convenience wrapper returning the rendered filter.
func (e *Engine) FilterExpression(roles, departments []string, userID string) string {
	return e.CompileFilter(roles, departments, userID).String()
}

type andExpr []Expr

func (x andExpr) Eval(policy DocumentPolicy) bool {
	for _, clause := range x {
		if !clause.Eval(policy) {
			return false
		}
	}
	return true
}

func (x andExpr) String() string {
	parts := make([]string, len(x))
	for i, clause := range x {
		parts[i] = clause.String()
	}
	return strings.Join(parts, " AND ")
}

type orExpr []Expr

func (x orExpr) Eval(policy DocumentPolicy) bool {
	for _, clause := range x {
		if clause.Eval(policy) {
			return true
		}
	}
	return false
}

func (x orExpr) String() string {
	parts := make([]string, len(x))
	for i, clause := range x {
		parts[i] = clause.String()
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

type levelAtMost int

func (l levelAtMost) Eval(policy DocumentPolicy) bool {
	return policy.SecurityLevel <= int(l)
}

func (l levelAtMost) String() string {
	return fmt.Sprintf("security_level <= %d", int(l))
}

type departmentIs string

func (d departmentIs) Eval(policy DocumentPolicy) bool {
	return policy.Department == string(d)
}

func (d departmentIs) String() string {
	return fmt.Sprintf("department == %s", quote(string(d)))
}

// roleAllowed matches documents whose allowed_roles list names the role.
// The ingest side stores list fields as JSON-encoded strings, hence the
// JSON_CONTAINS rendering.
type roleAllowed string

func (r roleAllowed) Eval(policy DocumentPolicy) bool {
	return slices.Contains(policy.AllowedRoles, string(r))
}

func (r roleAllowed) String() string {
	return fmt.Sprintf("JSON_CONTAINS(allowed_roles, %s)", quote(string(r)))
}

type userAllowed string

func (u userAllowed) Eval(policy DocumentPolicy) bool {
	return slices.Contains(policy.AllowedUsers, string(u))
}

func (u userAllowed) String() string {
	return fmt.Sprintf("JSON_CONTAINS(allowed_users, %s)", quote(string(u)))
}

// noRoleRestriction passes when a document declares no allowed_roles; an
// empty list serializes to "[]" in the index.
type noRoleRestriction struct{}

func (noRoleRestriction) Eval(policy DocumentPolicy) bool {
	return len(policy.AllowedRoles) == 0
}

func (noRoleRestriction) String() string {
	return `allowed_roles == "[]"`
}

type noUserRestriction struct{}

func (noUserRestriction) Eval(policy DocumentPolicy) bool {
	return len(policy.AllowedUsers) == 0
}

func (noUserRestriction) String() string {
	return `allowed_users == "[]"`
}

// matchNone is emitted when a requester carries no departments at all.
// Schema security levels start at 1, so the rendered form never matches.
type matchNone struct{}

func (matchNone) Eval(policy DocumentPolicy) bool {
	return false
}

func (matchNone) String() string {
	return "security_level < 1"
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}
