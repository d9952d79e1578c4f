package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/shopplan/internal/api/middleware"
	"github.com/kiranshivaraju/shopplan/internal/api/response"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	TriggerPlanHandler http.HandlerFunc
	GetPlanHandler     http.HandlerFunc

	ListAssignments    http.HandlerFunc
	SetupComplete      http.HandlerFunc
	EditAssignment     http.HandlerFunc
	MachineLoadHandler http.HandlerFunc
	MachineDaysHandler http.HandlerFunc
	ListAlertsHandler  http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/plans/{runID}", orNotImplemented(deps.GetPlanHandler))
		r.Get("/api/v1/assignments", orNotImplemented(deps.ListAssignments))
		r.Get("/api/v1/analytics/machine-load", orNotImplemented(deps.MachineLoadHandler))
		r.Get("/api/v1/analytics/machines/{machine}/days", orNotImplemented(deps.MachineDaysHandler))
		r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlertsHandler))

		// Planning routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopePlan))

			r.Post("/api/v1/plans", orNotImplemented(deps.TriggerPlanHandler))
			r.Post("/api/v1/assignments/{id}/setup-complete", orNotImplemented(deps.SetupComplete))
			r.Patch("/api/v1/assignments/{id}", orNotImplemented(deps.EditAssignment))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
