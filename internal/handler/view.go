package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/middleware"
	"github.com/roamly/tour-booking/internal/repository"
)

// ViewHandler renders the server-side HTML pages.
type ViewHandler struct {
	Tours    *repository.TourRepo
	Reviews  *repository.ReviewRepo
	Bookings *repository.BookingRepo
}

func NewViewHandler(tours *repository.TourRepo, reviews *repository.ReviewRepo,
	bookings *repository.BookingRepo) *ViewHandler {
	return &ViewHandler{Tours: tours, Reviews: reviews, Bookings: bookings}
}

// viewData assembles the template context shared by every page: the page
// payload, the optional logged-in user and the optional alert banner.
func viewData(c echo.Context, title string, data echo.Map) echo.Map {
	out := echo.Map{"Title": title}
	for k, v := range data {
		out[k] = v
	}
	if user, okUser := middleware.CurrentUser(c); okUser {
		out["User"] = user
	}
	if alert, okAlert := c.Get("alert").(string); okAlert {
		out["Alert"] = alert
	}
	return out
}

// Alert turns the ?alert=booking query into a banner message.
func Alert(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.QueryParam("alert") == "booking" {
			c.Set("alert", "Your booking was successful! Please check your email for confirmation. "+
				"If it is not shown here immediately then please try again later.")
		}
		return next(c)
	}
}

// Overview renders the landing page with every tour.
func (h *ViewHandler) Overview(c echo.Context) error {
	tours, err := h.Tours.List(c.Request().Context(), repository.TourFilter{})
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "overview", viewData(c, "All Tours", echo.Map{"Tours": tours}))
}

// TourDetail renders one tour with its reviews.
func (h *ViewHandler) TourDetail(c echo.Context) error {
	tour, err := h.Tours.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("There is no tour with that name.")
		}
		return err
	}
	reviews, err := h.Reviews.List(c.Request().Context(), tour.ID)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "tour", viewData(c, tour.Name+" Tour", echo.Map{
		"Tour":    tour,
		"Reviews": reviews,
	}))
}

// LoginForm renders the login page.
func (h *ViewHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "login", viewData(c, "Log in to your account", nil))
}

// SignupForm renders the signup page.
func (h *ViewHandler) SignupForm(c echo.Context) error {
	return c.Render(http.StatusOK, "signup", viewData(c, "Create your account", nil))
}

// Account renders the logged-in user's settings page.
func (h *ViewHandler) Account(c echo.Context) error {
	return c.Render(http.StatusOK, "account", viewData(c, "Your Account Settings", nil))
}

// MyBookings renders the tours the user has booked.
func (h *ViewHandler) MyBookings(c echo.Context) error {
	user, _ := middleware.CurrentUser(c)
	tours, err := h.Bookings.ToursByUser(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "overview", viewData(c, "My Bookings", echo.Map{"Tours": tours}))
}
