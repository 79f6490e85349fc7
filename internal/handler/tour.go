package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/repository"
)

// TourHandler serves tour browsing and the admin CRUD.
type TourHandler struct {
	Tours *repository.TourRepo
}

func NewTourHandler(tours *repository.TourRepo) *TourHandler {
	return &TourHandler{Tours: tours}
}

type tourReq struct {
	Name         string  `json:"name" validate:"required"`
	Duration     int     `json:"duration" validate:"required,min=1"`
	MaxGroupSize int     `json:"maxGroupSize" validate:"required,min=1"`
	Difficulty   string  `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	Price        float64 `json:"price" validate:"required,min=1"`
	Summary      string  `json:"summary" validate:"required"`
	Description  string  `json:"description"`
	ImageCover   string  `json:"imageCover"`
}

type tourUpdateReq struct {
	Name         string  `json:"name"`
	Duration     int     `json:"duration"`
	MaxGroupSize int     `json:"maxGroupSize"`
	Difficulty   string  `json:"difficulty" validate:"omitempty,oneof=easy medium difficult"`
	Price        float64 `json:"price"`
	Summary      string  `json:"summary"`
	Description  string  `json:"description"`
	ImageCover   string  `json:"imageCover"`
}

func tourFilterFromQuery(c echo.Context) repository.TourFilter {
	f := repository.TourFilter{
		Difficulty: c.QueryParam("difficulty"),
		Sort:       c.QueryParam("sort"),
	}
	f.PriceGTE, _ = strconv.ParseFloat(c.QueryParam("price[gte]"), 64)
	f.PriceLTE, _ = strconv.ParseFloat(c.QueryParam("price[lte]"), 64)
	f.Duration, _ = strconv.Atoi(c.QueryParam("duration"))
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	return f
}

// ListTours returns tours matching the filter/sort/pagination query.
func (h *TourHandler) ListTours(c echo.Context) error {
	tours, err := h.Tours.List(c.Request().Context(), tourFilterFromQuery(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{
		"results": len(tours),
		"data":    echo.Map{"tours": tours},
	})
}

// TopCheapTours is the preset "5 best cheap tours" alias.
func (h *TourHandler) TopCheapTours(c echo.Context) error {
	tours, err := h.Tours.List(c.Request().Context(), repository.TourFilter{
		Sort:  "-ratingsAverage",
		Limit: 5,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{
		"results": len(tours),
		"data":    echo.Map{"tours": tours},
	})
}

// TourStats returns the per-difficulty aggregation.
func (h *TourHandler) TourStats(c echo.Context) error {
	stats, err := h.Tours.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"stats": stats}})
}

// GetTour returns one tour by id.
func (h *TourHandler) GetTour(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	tour, err := h.Tours.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No tour found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"tour": tour}})
}

// CreateTour inserts a tour (admin / lead-guide).
func (h *TourHandler) CreateTour(c echo.Context) error {
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	tour, err := h.Tours.Create(c.Request().Context(), repository.Tour{
		Name:         req.Name,
		Duration:     req.Duration,
		MaxGroupSize: req.MaxGroupSize,
		Difficulty:   req.Difficulty,
		Price:        req.Price,
		Summary:      req.Summary,
		Description:  req.Description,
		ImageCover:   req.ImageCover,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"data": echo.Map{"tour": tour}})
}

// UpdateTour applies a partial update.
func (h *TourHandler) UpdateTour(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req tourUpdateReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	tour, err := h.Tours.Update(c.Request().Context(), id, repository.Tour{
		Name:         req.Name,
		Duration:     req.Duration,
		MaxGroupSize: req.MaxGroupSize,
		Difficulty:   req.Difficulty,
		Price:        req.Price,
		Summary:      req.Summary,
		Description:  req.Description,
		ImageCover:   req.ImageCover,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No tour found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"tour": tour}})
}

// DeleteTour removes a tour.
func (h *TourHandler) DeleteTour(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Tours.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No tour found with that ID")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
