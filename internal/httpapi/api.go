package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"raggate.org/internal/auth"
	"raggate.org/internal/obs"
	"raggate.org/internal/rbac"
)

const serviceName = "raggate-api"

// ReadyProbe reports whether the backing identity store is reachable.
type ReadyProbe struct {
	Store auth.IdentityStore
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.HealthCheck(ctx)
}

// API is the HTTP layer over the authentication and policy services.
type API struct {
	mux     *http.ServeMux
	guard   *auth.Guard
	engine  *rbac.Engine
	catalog *rbac.Catalog
	probe   ReadyProbe
	version string
}

func New(guard *auth.Guard, engine *rbac.Engine, catalog *rbac.Catalog, probe ReadyProbe, version string) *API {
	a := &API{
		mux:     http.NewServeMux(),
		guard:   guard,
		engine:  engine,
		catalog: catalog,
		probe:   probe,
		version: version,
	}

	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReadyz)
	a.mux.HandleFunc("/v1/info", a.handleInfo)

	a.mux.HandleFunc("/v1/auth/whoami", a.guarded(auth.Requirement{}, a.handleWhoami))

	a.mux.HandleFunc("/v1/rbac/check", a.guarded(readRequirement, a.handleRBACCheck))
	a.mux.HandleFunc("/v1/rbac/filter", a.guarded(readRequirement, a.handleRBACFilter))
	a.mux.HandleFunc("/v1/rbac/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/rbac/roles/", a.handleRoleResource)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

var (
	readRequirement  = auth.Requirement{Scopes: auth.NewScopeSet("read")}
	adminRequirement = auth.Requirement{Scopes: auth.NewScopeSet("admin")}
)

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

// guarded enforces the requirement before invoking the handler. The
// resolved principal travels on the request context.
func (a *API) guarded(req auth.Requirement, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, _, rej := a.guard.Require(r.Context(), auth.HeadersFromHTTP(r.Header), req)
		if rej != nil {
			writeRejection(w, r, rej)
			return
		}
		next(w, r.WithContext(ctx))
	}
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.probe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleWhoami(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"principal": principal,
		"scopes":    principal.Scopes.Values(),
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func writeRejection(w http.ResponseWriter, r *http.Request, rej *auth.Rejection) {
	payload := rej.Payload()
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, rej.Code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
