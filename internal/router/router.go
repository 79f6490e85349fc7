// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/config"
	"github.com/roamly/tour-booking/internal/handler"
	"github.com/roamly/tour-booking/internal/middleware"
	"github.com/roamly/tour-booking/internal/repository"
	"github.com/roamly/tour-booking/internal/token"
)

// Deps carries everything route registration needs.
type Deps struct {
	Tokens   *token.Service
	Users    *repository.UserRepo
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Tour     *handler.TourHandler
	Review   *handler.ReviewHandler
	Booking  *handler.BookingHandler
	View     *handler.ViewHandler
	Redis    *redis.Client
	RateCfg  config.RateLimitConfig
	CacheCfg config.CacheConfig
}

// Register mounts every route. Protected groups run the auth chain; role
// gates run after it.
func Register(e *echo.Echo, d Deps) {
	protect := middleware.Protect(d.Tokens, d.Users)
	loggedIn := middleware.IsLoggedIn(d.Tokens, d.Users)

	e.GET("/healthz", handler.Health)

	// Stripe posts here with a signed raw body; it lives outside /api so the
	// rate limiter never drops a payment notification.
	e.POST("/webhook-checkout", d.Booking.Webhook)

	// ----- HTML views -----
	views := e.Group("", handler.Alert)
	views.GET("/", d.View.Overview, loggedIn)
	views.GET("/login", d.View.LoginForm, loggedIn)
	views.GET("/signup", d.View.SignupForm, loggedIn)
	views.GET("/tour/:slug", d.View.TourDetail, loggedIn)
	views.GET("/me", d.View.Account, protect)
	views.GET("/bookings", d.View.MyBookings, protect)

	// ----- API -----
	api := e.Group("/api", middleware.RateLimit(d.RateCfg, d.Redis))

	users := api.Group("/v1/users")
	users.POST("/signup", d.Auth.Signup)
	users.POST("/login", d.Auth.Login)
	users.GET("/logout", d.Auth.Logout)
	users.POST("/forgotPassword", d.Auth.ForgotPassword)
	users.PATCH("/resetPassword/:token", d.Auth.ResetPassword)

	usersAuth := users.Group("", protect)
	usersAuth.PATCH("/updateMyPassword", d.Auth.UpdatePassword)
	usersAuth.GET("/me", d.User.Me)
	usersAuth.PATCH("/updateMe", d.User.UpdateMe)
	usersAuth.DELETE("/deleteMe", d.User.DeleteMe)

	usersAdmin := users.Group("", protect, middleware.RequireRole(repository.RoleAdmin))
	usersAdmin.GET("", d.User.ListUsers)
	usersAdmin.POST("", d.User.CreateUser)
	usersAdmin.GET("/:id", d.User.GetUser)
	usersAdmin.PATCH("/:id", d.User.UpdateUser)
	usersAdmin.DELETE("/:id", d.User.DeleteUser)

	tours := api.Group("/v1/tours")
	tours.GET("", d.Tour.ListTours, middleware.CacheList(d.CacheCfg, d.Redis))
	tours.GET("/top-5-cheap", d.Tour.TopCheapTours)
	tours.GET("/stats", d.Tour.TourStats)
	tours.GET("/:id", d.Tour.GetTour)

	toursMut := tours.Group("", protect,
		middleware.RequireRole(repository.RoleAdmin, repository.RoleLeadGuide))
	toursMut.POST("", d.Tour.CreateTour)
	toursMut.PATCH("/:id", d.Tour.UpdateTour)
	toursMut.DELETE("/:id", d.Tour.DeleteTour)

	// Reviews nested under a tour.
	tours.GET("/:tourId/reviews", d.Review.ListReviews)
	tours.POST("/:tourId/reviews", d.Review.CreateReview, protect,
		middleware.RequireRole(repository.RoleUser))

	reviews := api.Group("/v1/reviews", protect)
	reviews.GET("", d.Review.ListReviews)
	reviews.GET("/:id", d.Review.GetReview)
	reviews.POST("", d.Review.CreateReview, middleware.RequireRole(repository.RoleUser))
	reviews.PATCH("/:id", d.Review.UpdateReview,
		middleware.RequireRole(repository.RoleUser, repository.RoleAdmin))
	reviews.DELETE("/:id", d.Review.DeleteReview,
		middleware.RequireRole(repository.RoleUser, repository.RoleAdmin))

	bookings := api.Group("/v1/bookings", protect)
	bookings.GET("/checkout-session/:tourId", d.Booking.CheckoutSession)

	bookingsAdmin := bookings.Group("",
		middleware.RequireRole(repository.RoleAdmin, repository.RoleLeadGuide))
	bookingsAdmin.GET("", d.Booking.ListBookings)
	bookingsAdmin.GET("/:id", d.Booking.GetBooking)
	bookingsAdmin.PATCH("/:id", d.Booking.UpdateBooking)
	bookingsAdmin.DELETE("/:id", d.Booking.DeleteBooking)

	// Anything unmatched funnels into the central error handler.
	e.RouteNotFound("/*", func(c echo.Context) error {
		return apperr.NotFound(fmt.Sprintf("Can't find %s on this server!", c.Request().URL.Path))
	})
}
