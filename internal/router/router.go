// package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cvidalr/bus-trip-booking/internal/handler"
	"github.com/cvidalr/bus-trip-booking/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.  The
// health check is used by load balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and the
// token-protected /v1/me route.  Unauthenticated operations live under
// /v1/auth; everything else in the API relies on the same JWT secret.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}
