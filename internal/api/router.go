package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "punchcard/internal/api/context"
	"punchcard/internal/api/handlers"
	"punchcard/internal/api/middleware"
)

type Dependencies struct {
	AuthHandler     *handlers.AuthHandler
	EmployeeHandler *handlers.EmployeeHandler
	HealthHandler   *handlers.HealthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	RateLimiter     *middleware.RateLimiter
	AuthPerMinute   int
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware
	authLimit := deps.RateLimiter.Limit("auth", deps.AuthPerMinute)

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Authentication routes
	router.POST("/api/v1/auth/login", chain(deps.AuthHandler.Login, authLimit))
	router.POST("/api/v1/auth/refresh", wrap(deps.AuthHandler.Refresh))
	router.POST("/api/v1/auth/logout", wrap(deps.AuthHandler.Logout))
	router.POST("/api/v1/auth/setup-account", chain(deps.AuthHandler.SetupAccount, authLimit))

	// API token management
	router.POST("/api/v1/auth/api-token",
		chain(deps.AuthHandler.CreateAPIToken, authMid.Handle, middleware.RequireAdmin))
	router.GET("/api/v1/auth/api-tokens",
		chain(deps.AuthHandler.ListAPITokens, authMid.Handle))
	router.DELETE("/api/v1/auth/api-token/:id",
		chain(deps.AuthHandler.RevokeAPIToken, authMid.Handle))

	// Employee management. Creating an employee always goes through an
	// invitation, so POST on the collection is the invite. httprouter
	// rejects a static child next to the :id wildcard, so no static
	// segments may follow /employees/.
	router.GET("/api/v1/employees",
		chain(deps.EmployeeHandler.List, authMid.Handle, middleware.RequireAdmin))
	router.POST("/api/v1/employees",
		chain(deps.EmployeeHandler.Invite, authMid.Handle, middleware.RequireAdmin))
	router.POST("/api/v1/employees/:id/deactivate",
		chain(deps.EmployeeHandler.Deactivate, authMid.Handle, middleware.RequireAdmin,
			middleware.RequireSameOrganization("organization_id")))
	router.POST("/api/v1/employees/:id/reactivate",
		chain(deps.EmployeeHandler.Reactivate, authMid.Handle, middleware.RequireAdmin,
			middleware.RequireSameOrganization("organization_id")))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
