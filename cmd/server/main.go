package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/roamly/tour-booking/internal/config"
	"github.com/roamly/tour-booking/internal/database"
	"github.com/roamly/tour-booking/internal/handler"
	"github.com/roamly/tour-booking/internal/mailer"
	"github.com/roamly/tour-booking/internal/payment"
	"github.com/roamly/tour-booking/internal/queue"
	"github.com/roamly/tour-booking/internal/repository"
	"github.com/roamly/tour-booking/internal/router"
	"github.com/roamly/tour-booking/internal/token"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := newLogger(cfg)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn().Msg("redis unavailable, rate limiting and caching disabled")
	}

	tokens := token.NewService(cfg.JWTSecret, cfg.JWTExpires)
	mail := mailer.New(cfg, logger)
	pay := payment.NewClient(cfg)
	events := queue.NewPublisher(cfg.RabbitURL, logger)

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)
	bookings := repository.NewBookingRepo(db)

	go queue.StartBookingConsumer(cfg.RabbitURL, logger)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.NewErrorHandler(cfg.IsProduction(), logger)
	e.Validator = handler.NewValidator()

	renderer, err := handler.NewRenderer("web/templates/*.html")
	if err != nil {
		logger.Fatal().Err(err).Msg("template parsing failed")
	}
	e.Renderer = renderer

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.Gzip())
	e.Use(echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == "/api/v1/users/updateMe" },
		Limit:   "10K",
	}))
	e.Use(requestLogger(logger))
	e.Static("/img", "web/static/img")
	e.Static("/css", "web/static/css")

	router.Register(e, router.Deps{
		Tokens: tokens,
		Users:  users,
		Auth:   handler.NewAuthHandler(cfg, users, tokens, mail, logger),
		User:   handler.NewUserHandler(users, "web/static/img/users"),
		Tour:   handler.NewTourHandler(tours),
		Review: handler.NewReviewHandler(reviews),
		Booking: handler.NewBookingHandler(bookings, tours, users, pay, events,
			logger),
		View:     handler.NewViewHandler(tours, reviews, bookings),
		Redis:    rdb,
		RateCfg:  config.LoadRateLimitConfig(),
		CacheCfg: config.LoadCacheConfig(),
	})

	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// newLogger builds the process logger: human-readable console output in
// development, JSON in production.
func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.IsProduction() {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// requestLogger logs one line per request through zerolog.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
