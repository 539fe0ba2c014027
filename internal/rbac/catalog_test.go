package rbac

import (
	"reflect"
	"testing"
)

func TestCatalogDefaults(t *testing.T) {
	c := NewCatalog()

	admin, ok := c.Get("admin")
	if !ok {
		t.Fatal("expected seeded admin role")
	}
	if admin.Level != 4 {
		t.Fatalf("expected admin level 4, got %d", admin.Level)
	}
	if !reflect.DeepEqual(admin.Departments, []string{WildcardDepartment}) {
		t.Fatalf("expected admin wildcard departments, got %v", admin.Departments)
	}

	list := c.List()
	if len(list) != 4 {
		t.Fatalf("expected 4 default roles, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Level < list[i].Level {
			t.Fatalf("list must be ordered by level desc: %v", list)
		}
	}
}

func TestCatalogAddValidation(t *testing.T) {
	c := NewCatalog()
	if err := c.Add(Role{Name: "", Level: 1}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := c.Add(Role{Name: "intern", Level: 0}); err == nil {
		t.Fatal("expected error for non-positive level")
	}
	if err := c.Add(Role{Name: "intern", Level: 1, Departments: []string{"support"}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := c.Get("intern"); !ok {
		t.Fatal("expected intern to be added")
	}
}

func TestCatalogRemove(t *testing.T) {
	c := NewCatalog()
	c.Remove("viewer")
	if _, ok := c.Get("viewer"); ok {
		t.Fatal("expected viewer removed")
	}
	// Removing an unknown role is a no-op.
	c.Remove("viewer")
}

func TestMaxLevel(t *testing.T) {
	c := NewCatalog()

	if got := c.MaxLevel([]string{"viewer", "manager"}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := c.MaxLevel([]string{"viewer", "nonexistent"}); got != 1 {
		t.Fatalf("unknown roles must be ignored, got %d", got)
	}
	if got := c.MaxLevel([]string{"nonexistent"}); got != 0 {
		t.Fatalf("no catalog role must yield 0, got %d", got)
	}
	if got := c.MaxLevel(nil); got != 0 {
		t.Fatalf("no roles must yield 0, got %d", got)
	}
}

func TestCatalogDepartments(t *testing.T) {
	c := NewCatalog()

	got := c.Departments([]string{"analyst", "viewer"})
	want := []string{"data", "engineering"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if got := c.Departments([]string{"admin", "viewer"}); !reflect.DeepEqual(got, []string{WildcardDepartment}) {
		t.Fatalf("wildcard must collapse the union, got %v", got)
	}
	if got := c.Departments([]string{"nonexistent"}); len(got) != 0 {
		t.Fatalf("unknown roles grant nothing, got %v", got)
	}
}

func TestDefaultScopesForRole(t *testing.T) {
	cases := map[string][]string{
		"super_admin":   {"read", "write", "admin", "delete"},
		"admin":         {"read", "write", "admin"},
		"developer":     {"read", "write"},
		"viewer":        {"read"},
		"authenticated": {"read"},
		"mystery":       {"read"},
	}
	for role, want := range cases {
		if got := DefaultScopesForRole(role); !reflect.DeepEqual(got, want) {
			t.Fatalf("role %q: expected %v, got %v", role, want, got)
		}
	}

	// Returned slices must be private copies.
	scopes := DefaultScopesForRole("admin")
	scopes[0] = "mutated"
	if DefaultScopesForRole("admin")[0] != "read" {
		t.Fatal("default scope table must not be mutable through results")
	}
}
