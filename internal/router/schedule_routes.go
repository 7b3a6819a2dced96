package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cvidalr/bus-trip-booking/internal/handler"
	"github.com/cvidalr/bus-trip-booking/internal/middleware"
)

// ScheduleDeps carries everything the schedule routes need beyond the
// handlers themselves.  Redis is optional; a nil client disables the
// cache and rate-limit middleware without changing the route table.
type ScheduleDeps struct {
	JWTSecret    string
	Redis        *redis.Client
	CacheTTL     time.Duration
	RateCapacity int
	RateWindow   time.Duration
}

// RegisterSchedule registers route-template and layout administration,
// schedule generation, and the public service browsing endpoints.
//
// Write operations and generation require the superAdmin role.  Browsing
// only requires a valid token; the filter and detail endpoints carry the
// response cache and a per-IP rate limit since they take the brunt of
// public traffic.
func RegisterSchedule(e *echo.Echo, rh *handler.RouteHandler, lh *handler.LayoutHandler, sh *handler.ServiceHandler, deps ScheduleDeps) {
	admin := e.Group("/v1", middleware.JWTAuth(deps.JWTSecret), middleware.RequireRole("superAdmin"))
	admin.POST("/routes", rh.Create)
	admin.PUT("/routes/:id", rh.Update)
	admin.DELETE("/routes/:id", rh.Delete)
	admin.POST("/layouts", lh.Create)
	admin.POST("/services/generate", sh.Generate)
	admin.POST("/services/generate-all", sh.GenerateAll)

	browse := e.Group("/v1", middleware.JWTAuth(deps.JWTSecret))
	browse.GET("/routes", rh.List)
	browse.GET("/routes/:id", rh.Get)
	browse.GET("/layouts", lh.List)
	browse.GET("/layouts/:id", lh.Get)
	browse.GET("/services", sh.List)

	hot := e.Group("/v1/services",
		middleware.JWTAuth(deps.JWTSecret),
		middleware.RateLimit(deps.Redis, deps.RateCapacity, deps.RateWindow),
		middleware.ResponseCache(deps.Redis, deps.CacheTTL),
	)
	hot.GET("/filter", sh.Filter)
	hot.GET("/:id", sh.Get)
}
