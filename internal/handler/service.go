package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cvidalr/bus-trip-booking/internal/config"
	"github.com/cvidalr/bus-trip-booking/internal/model"
	"github.com/cvidalr/bus-trip-booking/internal/repository"
	"github.com/cvidalr/bus-trip-booking/internal/schedule"
)

// ServiceHandler exposes schedule expansion and the public browsing
// endpoints over generated service instances.
type ServiceHandler struct {
	Cfg      config.Config
	Routes   *repository.RouteRepo
	Layouts  *repository.LayoutRepo
	Services *repository.ServiceRepo
	Seats    *repository.SeatRepo
	Expander *schedule.Expander
	Query    *schedule.Query
}

func NewServiceHandler(cfg config.Config, routes *repository.RouteRepo, layouts *repository.LayoutRepo, services *repository.ServiceRepo, seats *repository.SeatRepo, exp *schedule.Expander, q *schedule.Query) *ServiceHandler {
	return &ServiceHandler{
		Cfg:      cfg,
		Routes:   routes,
		Layouts:  layouts,
		Services: services,
		Seats:    seats,
		Expander: exp,
		Query:    q,
	}
}

type generateReq struct {
	RouteID    uint64 `json:"route_id" validate:"required"`
	StartDate  string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	DaysOfWeek []int  `json:"days_of_week" validate:"omitempty,dive,min=1,max=7"`
}

type serviceView struct {
	ID          uint64                   `json:"id"`
	RouteID     uint64                   `json:"route_id"`
	TravelDate  string                   `json:"travel_date"`
	Direction   string                   `json:"direction"`
	Origin      string                   `json:"origin"`
	Destination string                   `json:"destination"`
	Departures  []schedule.DepartureView `json:"departures"`
	SeatCount   int                      `json:"seat_count"`
}

func (h *ServiceHandler) toServiceView(svc model.ServiceInstance, seatCount int) serviceView {
	return serviceView{
		ID:          svc.ID,
		RouteID:     svc.RouteID,
		TravelDate:  svc.TravelDate.In(h.Cfg.Location).Format("2006-01-02"),
		Direction:   svc.Direction,
		Origin:      svc.Origin,
		Destination: svc.Destination,
		Departures:  schedule.RenderDepartures(svc.Departures, h.Cfg.Location),
		SeatCount:   seatCount,
	}
}

// resolveLayout loads the layout a route references.  A route without a
// layout yields nil and the expander will generate services with
// no seat inventory.
func (h *ServiceHandler) resolveLayout(ctx context.Context, rt model.RouteTemplate) (*model.LayoutTemplate, error) {
	if rt.LayoutID == nil {
		return nil, nil
	}
	lt, err := h.Layouts.GetByID(ctx, *rt.LayoutID)
	if err != nil {
		if err == repository.ErrLayoutNotFound {
			// The expander reports the broken reference as a
			// configuration error for this route.
			return nil, nil
		}
		return nil, err
	}
	return &lt, nil
}

// Generate handles POST /v1/services/generate for one route.  Defaults:
// start date is today in the business timezone, weekdays come from the
// route's schedule rule.
func (h *ServiceHandler) Generate(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, http.StatusBadRequest, "missing or malformed fields: "+err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	rt, err := h.Routes.GetByID(ctx, req.RouteID)
	if err != nil {
		if err == repository.ErrRouteNotFound {
			return jsonError(c, http.StatusNotFound, "route not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	if !rt.Schedule.Active {
		return jsonError(c, http.StatusBadRequest, "route schedule is not active")
	}

	layout, err := h.resolveLayout(ctx, rt)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}

	startDate := req.StartDate
	if startDate == "" {
		startDate = h.Expander.Today()
	}
	days := req.DaysOfWeek
	if len(days) == 0 {
		days = rt.Schedule.Days
	}

	services, err := h.Expander.Expand(ctx, &rt, layout, startDate, days)
	if err != nil {
		return jsonError(c, scheduleErrorStatus(err), err.Error())
	}

	out := make([]serviceView, 0, len(services))
	for _, svc := range services {
		out = append(out, h.toServiceView(svc, len(svc.SeatIDs)))
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"services_count": len(services),
		"services":       out,
	})
}

// GenerateAll handles POST /v1/services/generate-all: one expansion run
// over every schedule-active route, starting today with each route's own
// weekday rule.  Per-route failures land in the report, never abort the
// run.
func (h *ServiceHandler) GenerateAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	routes, err := h.Routes.ListActive(ctx)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}

	today := h.Expander.Today()
	items := make([]schedule.RouteExpansion, 0, len(routes))
	for i := range routes {
		layout, err := h.resolveLayout(ctx, routes[i])
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
		items = append(items, schedule.RouteExpansion{
			Route:     &routes[i],
			Layout:    layout,
			StartDate: today,
			Days:      routes[i].Schedule.Days,
		})
	}

	report := h.Expander.ExpandAll(ctx, items)
	return c.JSON(http.StatusCreated, report)
}

// List handles GET /v1/services.
func (h *ServiceHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	services, err := h.Services.ListAll(ctx)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	out := make([]serviceView, 0, len(services))
	for _, svc := range services {
		count, err := h.Seats.CountByService(ctx, svc.ID)
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
		out = append(out, h.toServiceView(svc, count))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Filter handles GET /v1/services/filter?date=&origin=&destination=.
func (h *ServiceHandler) Filter(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	summaries, err := h.Query.FilterByDate(ctx,
		c.QueryParam("date"),
		c.QueryParam("origin"),
		c.QueryParam("destination"),
	)
	if err != nil {
		return jsonError(c, scheduleErrorStatus(err), err.Error())
	}

	out := make([]serviceView, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, h.toServiceView(s.Service, s.SeatCount))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/services/:id, returning the instance together
// with its seat map when the service was generated from a layout.
func (h *ServiceHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	svc, err := h.Services.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrServiceNotFound {
			return jsonError(c, http.StatusNotFound, "service not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}

	seats, err := h.Seats.ListByService(ctx, svc.ID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}

	resp := echo.Map{
		"service": h.toServiceView(svc, len(seats)),
	}
	if svc.LayoutID != nil {
		lt, err := h.Layouts.GetByID(ctx, *svc.LayoutID)
		if err == nil {
			resp["seat_map"] = schedule.ProjectSeatMap(&lt, seats)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
