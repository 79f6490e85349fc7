package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/middleware"
	"github.com/roamly/tour-booking/internal/payment"
	"github.com/roamly/tour-booking/internal/queue"
	"github.com/roamly/tour-booking/internal/repository"
)

// BookingStore is the persistence surface for bookings.
type BookingStore interface {
	Create(ctx context.Context, tourID, userID uint64, price float64) (uint64, error)
	List(ctx context.Context) ([]repository.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]repository.Booking, error)
	GetByID(ctx context.Context, id uint64) (repository.Booking, error)
	Update(ctx context.Context, id uint64, price float64, paid bool) (repository.Booking, error)
	Delete(ctx context.Context, id uint64) error
}

// TourGetter is the slice of the tour store checkout needs.
type TourGetter interface {
	GetByID(ctx context.Context, id uint64) (repository.Tour, error)
	GetBySlug(ctx context.Context, slug string) (repository.Tour, error)
}

// Payments is the payment-processor collaborator.
type Payments interface {
	CreateCheckoutSession(p payment.CheckoutParams) (payment.Session, error)
	ParseWebhook(payload []byte, signature string) (payment.Event, error)
}

// EventPublisher emits booking.confirmed events after a paid checkout.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// BookingHandler serves checkout, the payment webhook and booking CRUD.
type BookingHandler struct {
	Bookings BookingStore
	Tours    TourGetter
	Users    UserStore
	Pay      Payments
	Events   EventPublisher
	Logger   zerolog.Logger
}

func NewBookingHandler(bookings BookingStore, tours TourGetter, users UserStore,
	pay Payments, events EventPublisher, logger zerolog.Logger) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Tours: tours, Users: users,
		Pay: pay, Events: events, Logger: logger}
}

// CheckoutSession starts a Stripe checkout for the given tour.
func (h *BookingHandler) CheckoutSession(c echo.Context) error {
	tourID, err := paramID(c, "tourId")
	if err != nil {
		return err
	}
	tour, err := h.Tours.GetByID(c.Request().Context(), tourID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No tour found with that ID")
		}
		return err
	}
	user, _ := middleware.CurrentUser(c)

	base := fmt.Sprintf("%s://%s", requestScheme(c), c.Request().Host)
	session, err := h.Pay.CreateCheckoutSession(payment.CheckoutParams{
		Tour:       tour,
		UserEmail:  user.Email,
		SuccessURL: base + "/bookings?alert=booking",
		CancelURL:  base + "/tour/" + tour.Slug,
		ImageURL:   base + "/img/tours/" + tour.ImageCover,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"session": session})
}

// Webhook records a booking for a completed checkout. The raw body is
// verified against the webhook secret; a bad signature is rejected before
// anything is written.
func (h *BookingHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.ValidationFailed("Unreadable webhook payload")
	}

	event, err := h.Pay.ParseWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return apperr.New(apperr.CodeValidationFailed, http.StatusBadRequest,
			fmt.Sprintf("Webhook error: %v", err))
	}
	if !event.Completed {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	ctx := c.Request().Context()
	user, err := h.Users.GetByEmail(ctx, event.Email)
	if err != nil {
		return err
	}
	bookingID, err := h.Bookings.Create(ctx, event.TourID, user.ID, event.Amount)
	if err != nil {
		return err
	}

	tour, err := h.Tours.GetByID(ctx, event.TourID)
	if err != nil {
		tour = repository.Tour{ID: event.TourID}
	}
	if pubErr := h.Events.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
		BookingID: bookingID,
		TourID:    event.TourID,
		TourName:  tour.Name,
		UserID:    user.ID,
		Email:     user.Email,
		Price:     event.Amount,
		BookedAt:  time.Now().UTC(),
	}); pubErr != nil {
		h.Logger.Warn().Err(pubErr).Uint64("booking_id", bookingID).
			Msg("booking event publish failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// ----- admin CRUD -----

type bookingUpdateReq struct {
	Price float64 `json:"price"`
	Paid  *bool   `json:"paid"`
}

// ListBookings returns every booking.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	bookings, err := h.Bookings.List(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{
		"results": len(bookings),
		"data":    echo.Map{"bookings": bookings},
	})
}

// GetBooking returns one booking.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	booking, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No booking found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"booking": booking}})
}

// UpdateBooking edits price/paid.
func (h *BookingHandler) UpdateBooking(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req bookingUpdateReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	paid := true
	if req.Paid != nil {
		paid = *req.Paid
	}
	booking, err := h.Bookings.Update(c.Request().Context(), id, req.Price, paid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No booking found with that ID")
		}
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"data": echo.Map{"booking": booking}})
}

// DeleteBooking removes a booking.
func (h *BookingHandler) DeleteBooking(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Bookings.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("No booking found with that ID")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
