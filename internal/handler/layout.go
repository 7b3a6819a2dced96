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

// LayoutHandler manages bus layout templates.  Layouts are immutable
// after creation so generated seat inventories always match the grid
// they were built from; there is no update endpoint on purpose.
type LayoutHandler struct {
	Layouts *repository.LayoutRepo
}

func NewLayoutHandler(layouts *repository.LayoutRepo) *LayoutHandler {
	return &LayoutHandler{Layouts: layouts}
}

type floorReq struct {
	SeatClass string     `json:"seat_class"`
	Grid      [][]string `json:"grid"`
}

type layoutReq struct {
	Name   string    `json:"name" validate:"required"`
	Floor1 *floorReq `json:"floor1" validate:"required"`
	Floor2 *floorReq `json:"floor2"`
}

// checkGrid rejects grids whose rows have uneven widths and grids that
// hold no seats at all.  Empty strings are aisles and carry no seat.
func checkGrid(fp model.FloorPlan) string {
	width, seats := -1, 0
	for _, row := range fp.Grid {
		if width == -1 {
			width = len(row)
		} else if len(row) != width {
			return "all grid rows must have the same length"
		}
		for _, code := range row {
			if code != "" {
				seats++
			}
		}
	}
	if len(fp.Grid) > 0 && seats == 0 {
		return "grid contains no seats"
	}
	return ""
}

// Create handles POST /v1/layouts.
func (h *LayoutHandler) Create(c echo.Context) error {
	var req layoutReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, http.StatusBadRequest, "missing or malformed fields: "+err.Error())
	}

	lt := model.LayoutTemplate{Name: req.Name}
	lt.Floor1 = model.FloorPlan{SeatClass: req.Floor1.SeatClass, Grid: req.Floor1.Grid}
	if req.Floor2 != nil {
		lt.Floor2 = model.FloorPlan{SeatClass: req.Floor2.SeatClass, Grid: req.Floor2.Grid}
	}
	if msg := checkGrid(lt.Floor1); msg != "" {
		return jsonError(c, http.StatusBadRequest, "floor1: "+msg)
	}
	if msg := checkGrid(lt.Floor2); msg != "" {
		return jsonError(c, http.StatusBadRequest, "floor2: "+msg)
	}
	if len(lt.Floor1.Grid) == 0 && len(lt.Floor2.Grid) == 0 {
		return jsonError(c, http.StatusBadRequest, "layout must define at least one floor with seats")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Layouts.Create(ctx, &lt); err != nil {
		return jsonError(c, http.StatusInternalServerError, "create layout failed")
	}
	return c.JSON(http.StatusCreated, lt)
}

// List handles GET /v1/layouts.
func (h *LayoutHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	layouts, err := h.Layouts.ListAll(ctx)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": layouts})
}

// Get handles GET /v1/layouts/:id.
func (h *LayoutHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lt, err := h.Layouts.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrLayoutNotFound {
			return jsonError(c, http.StatusNotFound, "layout not found")
		}
		return jsonError(c, http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, lt)
}
