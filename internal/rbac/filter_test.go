package rbac

import (
	"math/rand"
	"strings"
	"testing"
)

func TestFilterExpressionRendering(t *testing.T) {
	e := NewEngine(NewCatalog(), nil)

	got := e.FilterExpression([]string{"analyst"}, []string{"engineering"}, "u-1")
	for _, fragment := range []string{
		"security_level <= 2",
		`department == "engineering"`,
		`allowed_roles == "[]"`,
		`JSON_CONTAINS(allowed_roles, "analyst")`,
		`allowed_users == "[]"`,
		`JSON_CONTAINS(allowed_users, "u-1")`,
	} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected fragment %q in %q", fragment, got)
		}
	}
}

func TestFilterWildcardDepartmentOmitsClause(t *testing.T) {
	e := NewEngine(NewCatalog(), nil)
	got := e.FilterExpression([]string{"admin"}, []string{WildcardDepartment}, "u-1")
	if strings.Contains(got, "department ==") {
		t.Fatalf("wildcard department must omit the department clause: %q", got)
	}
	if !strings.Contains(got, "security_level <= 4") {
		t.Fatalf("expected admin ceiling in %q", got)
	}
}

func TestFilterNoDepartmentsMatchesNothing(t *testing.T) {
	e := NewEngine(NewCatalog(), nil)
	expr := e.CompileFilter([]string{"analyst"}, nil, "u-1")
	if !strings.Contains(expr.String(), "security_level < 1") {
		t.Fatalf("expected match-nothing clause in %q", expr.String())
	}
	if expr.Eval(testPolicy(nil)) {
		t.Fatal("no departments must match no document")
	}
}

func TestFilterQuotesEmbeddedQuotes(t *testing.T) {
	e := NewEngine(NewCatalog(), nil)
	got := e.FilterExpression([]string{"analyst"}, []string{`eng"neering`}, `u"1`)
	if !strings.Contains(got, `department == "eng\"neering"`) {
		t.Fatalf("expected escaped department in %q", got)
	}
	if !strings.Contains(got, `JSON_CONTAINS(allowed_users, "u\"1")`) {
		t.Fatalf("expected escaped user in %q", got)
	}
}

// The compiled filter and the in-process decision must agree on every
// document: whatever the index would return is exactly what post-hoc
// evaluation would keep.
func TestFilterEquivalentToDecide(t *testing.T) {
	e := NewEngine(NewCatalog(), nil)
	rng := rand.New(rand.NewSource(1))

	roleNames := []string{"admin", "manager", "analyst", "viewer", "stranger"}
	departmentNames := []string{"engineering", "sales", "data", "finance", WildcardDepartment}
	userIDs := []string{"u-1", "u-2", "u-3", ""}

	pick := func(pool []string, max int) []string {
		n := rng.Intn(max + 1)
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, pool[rng.Intn(len(pool))])
		}
		return out
	}

	for i := 0; i < 2000; i++ {
		roles := pick(roleNames, 3)
		departments := pick(departmentNames, 3)
		userID := userIDs[rng.Intn(len(userIDs))]

		policy := DocumentPolicy{
			Department:    departmentNames[rng.Intn(len(departmentNames)-1)],
			SecurityLevel: 1 + rng.Intn(4),
			AllowedRoles:  pick(roleNames[:4], 2),
			AllowedUsers:  pick(userIDs[:3], 2),
		}

		want := e.CanAccess(roles, departments, userID, policy)
		expr := e.CompileFilter(roles, departments, userID)
		if got := expr.Eval(policy); got != want {
			t.Fatalf("filter and decision disagree\nroles=%v departments=%v user=%q\npolicy=%+v\nfilter=%q\ndecide=%v eval=%v",
				roles, departments, userID, policy, expr.String(), want, got)
		}
	}
}

func TestCompileFilterForUser(t *testing.T) {
	dir := NewStaticDirectory()
	dir.Bind("u-analyst", []string{"analyst"}, []string{"engineering"})
	e := NewEngine(NewCatalog(), dir)

	expr := e.CompileFilterForUser("u-analyst")
	if !strings.Contains(expr.String(), "security_level <= 2") {
		t.Fatalf("expected analyst ceiling in %q", expr.String())
	}
	if !expr.Eval(testPolicy(nil)) {
		t.Fatal("bound analyst filter must match internal engineering doc")
	}
}
