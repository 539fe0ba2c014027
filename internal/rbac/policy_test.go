package rbac

import "testing"

func testPolicy(mut func(*DocumentPolicy)) DocumentPolicy {
	p := DocumentPolicy{
		DocumentID:    "doc-1",
		DocumentType:  "report",
		Department:    "engineering",
		SecurityLevel: LevelInternal,
	}
	if mut != nil {
		mut(&p)
	}
	return p
}

func TestDecide(t *testing.T) {
	e := NewEngine(NewCatalog(), nil)

	cases := []struct {
		name        string
		roles       []string
		departments []string
		userID      string
		policy      DocumentPolicy
		allowed     bool
		reason      string
	}{
		{
			name:        "analyst reads internal engineering doc",
			roles:       []string{"analyst"},
			departments: []string{"engineering"},
			policy:      testPolicy(nil),
			allowed:     true,
		},
		{
			name:        "viewer blocked by security level",
			roles:       []string{"viewer"},
			departments: []string{"engineering"},
			policy:      testPolicy(nil),
			allowed:     false,
			reason:      "security_level",
		},
		{
			name:        "department mismatch",
			roles:       []string{"analyst"},
			departments: []string{"sales"},
			policy:      testPolicy(nil),
			allowed:     false,
			reason:      "department",
		},
		{
			name:        "wildcard department",
			roles:       []string{"admin"},
			departments: []string{WildcardDepartment},
			policy:      testPolicy(func(p *DocumentPolicy) { p.Department = "finance" }),
			allowed:     true,
		},
		{
			name:        "allowed roles restriction",
			roles:       []string{"analyst"},
			departments: []string{"engineering"},
			policy:      testPolicy(func(p *DocumentPolicy) { p.AllowedRoles = []string{"manager"} }),
			allowed:     false,
			reason:      "allowed_roles",
		},
		{
			name:        "allowed roles match",
			roles:       []string{"analyst"},
			departments: []string{"engineering"},
			policy:      testPolicy(func(p *DocumentPolicy) { p.AllowedRoles = []string{"manager", "analyst"} }),
			allowed:     true,
		},
		{
			name:        "allowed users restriction",
			roles:       []string{"analyst"},
			departments: []string{"engineering"},
			userID:      "u-2",
			policy:      testPolicy(func(p *DocumentPolicy) { p.AllowedUsers = []string{"u-1"} }),
			allowed:     false,
			reason:      "allowed_users",
		},
		{
			name:        "allowed users match",
			roles:       []string{"analyst"},
			departments: []string{"engineering"},
			userID:      "u-1",
			policy:      testPolicy(func(p *DocumentPolicy) { p.AllowedUsers = []string{"u-1"} }),
			allowed:     true,
		},
		{
			name:        "unknown role denies every level",
			roles:       []string{"stranger"},
			departments: []string{"engineering"},
			policy:      testPolicy(func(p *DocumentPolicy) { p.SecurityLevel = LevelPublic }),
			allowed:     false,
			reason:      "security_level",
		},
		{
			name:    "no departments",
			roles:   []string{"analyst"},
			policy:  testPolicy(nil),
			allowed: false,
			reason:  "department",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, reason := e.Decide(tc.roles, tc.departments, tc.userID, tc.policy)
			if allowed != tc.allowed {
				t.Fatalf("expected allowed=%v, got %v (reason %q)", tc.allowed, allowed, reason)
			}
			if reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, reason)
			}
			if got := e.CanAccess(tc.roles, tc.departments, tc.userID, tc.policy); got != tc.allowed {
				t.Fatalf("CanAccess disagrees with Decide")
			}
		})
	}
}

func TestCanAccessUserUsesDirectory(t *testing.T) {
	dir := NewStaticDirectory()
	dir.Bind("u-analyst", []string{"analyst"}, []string{"engineering"})
	e := NewEngine(NewCatalog(), dir)

	if !e.CanAccessUser("u-analyst", testPolicy(nil)) {
		t.Fatal("bound analyst must read internal engineering doc")
	}

	// Unknown users fall back to viewer in general.
	if e.CanAccessUser("u-unknown", testPolicy(nil)) {
		t.Fatal("fallback viewer must not read internal doc")
	}
	public := testPolicy(func(p *DocumentPolicy) {
		p.Department = "general"
		p.SecurityLevel = LevelPublic
	})
	if !e.CanAccessUser("u-unknown", public) {
		t.Fatal("fallback viewer must read public general doc")
	}
}

func TestNewEngineNilCatalog(t *testing.T) {
	e := NewEngine(nil, nil)
	if e.Catalog() == nil {
		t.Fatal("nil catalog must be replaced with defaults")
	}
	if _, ok := e.Catalog().Get("admin"); !ok {
		t.Fatal("expected default roles")
	}
}
