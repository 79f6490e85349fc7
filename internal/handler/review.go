package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/middleware"
	"github.com/roamly/tour-booking/internal/repository"
)

// ReviewHandler serves review CRUD, standalone and nested under tours.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
}

func NewReviewHandler(reviews *repository.ReviewRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

type reviewReq struct {
	Review string `json:"review" validate:"required"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	TourID uint64 `json:"tour"`
}

type reviewUpdateReq struct {
	Review string `json:"review"`
	Rating int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

// ListReviews lists reviews, scoped to a tour when nested.
func (h *ReviewHandler) ListReviews(c echo.Context) error {
	var tourID uint64
	if raw := c.Param("tourId"); raw != "" {
		var err error
		if tourID, err = paramID(c, "tourId"); err != nil {
			return err
		}
	}
	reviews, err := h.Reviews.List(c.Request().Context(), tourID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{
		"results": len(reviews),
		"data":    echo.Map{"reviews": reviews},
	})
}

// GetReview returns one review.
func (h *ReviewHandler) GetReview(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	review, err := h.Reviews.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No review found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"review": review}})
}

// CreateReview inserts a review. Tour id comes from the nested route when
// absent from the body; the author is always the authenticated user.
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.TourID == 0 {
		if raw := c.Param("tourId"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return apperr.MalformedID("tourId", raw)
			}
			req.TourID = id
		}
	}
	if req.TourID == 0 {
		return apperr.ValidationFailed("A review must belong to a tour")
	}

	user, _ := middleware.CurrentUser(c)
	review, err := h.Reviews.Create(c.Request().Context(), req.Review, req.Rating, req.TourID, user.ID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"data": echo.Map{"review": review}})
}

// UpdateReview edits body and/or rating.
func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req reviewUpdateReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	review, err := h.Reviews.Update(c.Request().Context(), id, req.Review, req.Rating)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No review found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"review": review}})
}

// DeleteReview removes a review.
func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Reviews.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No review found with that ID")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
