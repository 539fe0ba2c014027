package httpapi

import (
	"net/http"
	"strings"

	"raggate.org/internal/auth"
	"raggate.org/internal/rbac"
)

type accessCheckRequest struct {
	UserID      string              `json:"user_id"`
	Roles       []string            `json:"roles"`
	Departments []string            `json:"departments"`
	Policy      rbac.DocumentPolicy `json:"policy"`
}

type accessCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type filterRequest struct {
	UserID      string   `json:"user_id"`
	Roles       []string `json:"roles"`
	Departments []string `json:"departments"`
}

type filterResponse struct {
	Filter string `json:"filter"`
}

func (a *API) handleRBACCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req accessCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	roles, departments, userID := a.requestBindings(r, req.UserID, req.Roles, req.Departments)
	allowed, reason := a.engine.Decide(roles, departments, userID, req.Policy)
	writeJSON(w, http.StatusOK, accessCheckResponse{Allowed: allowed, Reason: reason})
}

func (a *API) handleRBACFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req filterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	roles, departments, userID := a.requestBindings(r, req.UserID, req.Roles, req.Departments)
	expr := a.engine.CompileFilter(roles, departments, userID)
	writeJSON(w, http.StatusOK, filterResponse{Filter: expr.String()})
}

// requestBindings fills in unspecified fields from the calling principal:
// a caller checking its own access may omit user_id and roles entirely.
func (a *API) requestBindings(r *http.Request, userID string, roles, departments []string) ([]string, []string, string) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if userID == "" && ok {
		userID = principal.UserID
	}
	if len(roles) == 0 && ok && principal.Role != "" {
		roles = []string{principal.Role}
	}
	if len(departments) == 0 {
		departments = a.engine.RoleDepartments(roles)
	}
	return roles, departments, userID
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.guarded(readRequirement, a.listRoles)(w, r)
	case http.MethodPost:
		a.guarded(adminRequirement, a.createRole)(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"roles": a.catalog.List()})
}

func (a *API) createRole(w http.ResponseWriter, r *http.Request) {
	var role rbac.Role
	if err := decodeJSON(w, r, &role); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.catalog.Add(role); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/rbac/roles/"), "/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.guarded(readRequirement, func(w http.ResponseWriter, r *http.Request) {
			role, ok := a.catalog.Get(name)
			if !ok {
				writeError(w, r, http.StatusNotFound, "role not found")
				return
			}
			writeJSON(w, http.StatusOK, role)
		})(w, r)
	case http.MethodDelete:
		a.guarded(adminRequirement, func(w http.ResponseWriter, r *http.Request) {
			a.catalog.Remove(name)
			w.WriteHeader(http.StatusNoContent)
		})(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}
