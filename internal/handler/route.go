// This file defines the admin CRUD for route templates.  Templates are
// plain configuration records; the interesting validation here is the
// one the expander depends on: a usable timing rule and a stop list
// whose order values are unique and strictly increasing.  A malformed
// template is rejected at write time, never silently corrected later.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cvidalr/bus-trip-booking/internal/model"
	"github.com/cvidalr/bus-trip-booking/internal/repository"
)

// RouteHandler bundles repositories for route-template management.
type RouteHandler struct {
	Routes  *repository.RouteRepo
	Layouts *repository.LayoutRepo
}

func NewRouteHandler(routes *repository.RouteRepo, layouts *repository.LayoutRepo) *RouteHandler {
	return &RouteHandler{Routes: routes, Layouts: layouts}
}

// ----- DTOs -----

type stopReq struct {
	Order         uint32 `json:"order" validate:"required"`
	Name          string `json:"name" validate:"required"`
	OffsetMinutes int    `json:"offset_minutes" validate:"min=0"`
	PriceCents    uint32 `json:"price_cents"`
}

type routeReq struct {
	Name              string    `json:"name" validate:"required"`
	Origin            string    `json:"origin" validate:"required"`
	Destination       string    `json:"destination" validate:"required"`
	Direction         string    `json:"direction"`
	BaseDepartureTime *string   `json:"base_departure_time" validate:"omitempty,datetime=15:04"`
	StartMinutes      *int      `json:"start_minutes" validate:"omitempty,min=0,max=1439"`
	LayoutID          *uint64   `json:"layout_id"`
	ScheduleActive    bool      `json:"schedule_active"`
	ScheduleDays      []int     `json:"schedule_days" validate:"omitempty,dive,min=1,max=7"`
	Stops             []stopReq `json:"stops" validate:"required,min=1,dive"`
}

type routeView struct {
	ID                uint64     `json:"id"`
	Name              string     `json:"name"`
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	Direction         string     `json:"direction"`
	BaseDepartureTime *string    `json:"base_departure_time,omitempty"`
	StartMinutes      *int       `json:"start_minutes,omitempty"`
	LayoutID          *uint64    `json:"layout_id,omitempty"`
	ScheduleActive    bool       `json:"schedule_active"`
	ScheduleDays      []int      `json:"schedule_days"`
	Stops             []stopView `json:"stops"`
}

type stopView struct {
	Order         uint32 `json:"order"`
	Name          string `json:"name"`
	OffsetMinutes int    `json:"offset_minutes"`
	PriceCents    uint32 `json:"price_cents"`
}

func toRouteView(rt model.RouteTemplate) routeView {
	stops := make([]stopView, 0, len(rt.Stops))
	for _, s := range rt.Stops {
		stops = append(stops, stopView(s))
	}
	days := rt.Schedule.Days
	if days == nil {
		days = []int{}
	}
	return routeView{
		ID:                rt.ID,
		Name:              rt.Name,
		Origin:            rt.Origin,
		Destination:       rt.Destination,
		Direction:         rt.Direction,
		BaseDepartureTime: rt.BaseDepartureTime,
		StartMinutes:      rt.StartMinutes,
		LayoutID:          rt.LayoutID,
		ScheduleActive:    rt.Schedule.Active,
		ScheduleDays:      days,
		Stops:             stops,
	}
}

// checkRouteReq applies the cross-field rules the validator tags cannot
// express.  It returns a human-readable message, or "" when valid.
func checkRouteReq(req routeReq) string {
	hasClock := req.BaseDepartureTime != nil
	hasMinutes := req.StartMinutes != nil
	if hasClock == hasMinutes {
		return "exactly one of base_departure_time or start_minutes must be set"
	}
	var prev uint32
	for i, s := range req.Stops {
		if i > 0 && s.Order <= prev {
			return "stop orders must be unique and strictly increasing"
		}
		prev = s.Order
	}
	return ""
}

func (h *RouteHandler) bindRoute(c echo.Context) (routeReq, string) {
	var req routeReq
	if err := c.Bind(&req); err != nil {
		return req, "invalid body"
	}
	if err := validate.Struct(req); err != nil {
		return req, "missing or malformed fields: " + err.Error()
	}
	if msg := checkRouteReq(req); msg != "" {
		return req, msg
	}
	return req, ""
}

func reqToTemplate(req routeReq) model.RouteTemplate {
	stops := make([]model.StopTemplate, 0, len(req.Stops))
	for _, s := range req.Stops {
		stops = append(stops, model.StopTemplate(s))
	}
	return model.RouteTemplate{
		Name:              req.Name,
		Origin:            req.Origin,
		Destination:       req.Destination,
		Direction:         req.Direction,
		BaseDepartureTime: req.BaseDepartureTime,
		StartMinutes:      req.StartMinutes,
		LayoutID:          req.LayoutID,
		Schedule:          model.ScheduleRule{Active: req.ScheduleActive, Days: req.ScheduleDays},
		Stops:             stops,
	}
}

// Create handles POST /v1/routes.
func (h *RouteHandler) Create(c echo.Context) error {
	req, msg := h.bindRoute(c)
	if msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if req.LayoutID != nil {
		if _, err := h.Layouts.GetByID(ctx, *req.LayoutID); err != nil {
			if err == repository.ErrLayoutNotFound {
				return jsonError(c, http.StatusBadRequest, "layout_id references an unknown layout")
			}
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
	}

	rt := reqToTemplate(req)
	if err := h.Routes.Create(ctx, &rt); err != nil {
		return jsonError(c, http.StatusInternalServerError, "create route failed")
	}
	return c.JSON(http.StatusCreated, toRouteView(rt))
}

// List handles GET /v1/routes.
func (h *RouteHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	routes, err := h.Routes.ListAll(ctx)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	out := make([]routeView, 0, len(routes))
	for _, rt := range routes {
		out = append(out, toRouteView(rt))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/routes/:id.
func (h *RouteHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, err := h.Routes.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRouteNotFound {
			return jsonError(c, http.StatusNotFound, "route not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, toRouteView(rt))
}

// Update handles PUT /v1/routes/:id, replacing the template including
// its stop list.  Existing generated services keep their snapshot.
func (h *RouteHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	req, msg := h.bindRoute(c)
	if msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt := reqToTemplate(req)
	rt.ID = id
	if err := h.Routes.Update(ctx, &rt); err != nil {
		if err == repository.ErrRouteNotFound {
			return jsonError(c, http.StatusNotFound, "route not found")
		}
		return jsonError(c, http.StatusInternalServerError, "update route failed")
	}
	return c.JSON(http.StatusOK, toRouteView(rt))
}

// Delete handles DELETE /v1/routes/:id.
func (h *RouteHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Routes.Delete(ctx, id); err != nil {
		if err == repository.ErrRouteNotFound {
			return jsonError(c, http.StatusNotFound, "route not found")
		}
		return jsonError(c, http.StatusInternalServerError, "delete route failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "route deleted"})
}
