package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/config"
	"github.com/roamly/tour-booking/internal/middleware"
	"github.com/roamly/tour-booking/internal/repository"
	"github.com/roamly/tour-booking/internal/token"
)

// UserStore is the credential-store surface the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, name, email, password string, cost int) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uint64) (repository.User, error)
	GetByResetToken(ctx context.Context, hash string, now time.Time) (repository.User, error)
	SetResetToken(ctx context.Context, id uint64, hash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// Mailer is the notification collaborator.
type Mailer interface {
	SendWelcome(user repository.User, url string) error
	SendPasswordReset(user repository.User, url string) error
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens *token.Service
	Mail   Mailer
	Logger zerolog.Logger
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens *token.Service, mail Mailer, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Mail: mail, Logger: logger}
}

// ----- DTOs -----

type signupReq struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordReq struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordReq struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type updatePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Signup creates the account, sends the welcome email and logs the user in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Users.Create(c.Request().Context(), req.Name, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}

	// Welcome email is best-effort; a broken SMTP server must not block signup.
	url := fmt.Sprintf("%s://%s/me", requestScheme(c), c.Request().Host)
	if err := h.Mail.SendWelcome(user, url); err != nil {
		h.Logger.Warn().Err(err).Str("email", user.Email).Msg("welcome email failed")
	}

	return h.sendToken(c, user, http.StatusCreated)
}

// Login verifies credentials and issues a fresh session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.ValidationFailed("Email and password is required!")
	}

	user, err := h.Users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same rejection as a wrong password: no credential oracle.
			return apperr.Unauthenticated("Email or Password is invalid!")
		}
		return err
	}
	if !repository.PasswordMatches(user.PasswordHash, req.Password) {
		return apperr.Unauthenticated("Email or Password is invalid!")
	}

	return h.sendToken(c, user, http.StatusOK)
}

// Logout replaces the session cookie with a short-lived placeholder.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "Logged out",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ok(c, http.StatusOK, nil)
}

// ForgotPassword starts the reset flow: store a hashed single-use secret and
// mail the raw one. A mail failure rolls the stored state back so the
// account returns to its idle state.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found with this email!")
		}
		return err
	}

	raw, hash, err := token.NewResetSecret()
	if err != nil {
		return err
	}
	expires := time.Now().UTC().Add(h.Cfg.ResetTokenTTL)
	if err := h.Users.SetResetToken(ctx, user.ID, hash, expires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s://%s/api/v1/users/resetPassword/%s",
		requestScheme(c), c.Request().Host, raw)
	if err := h.Mail.SendPasswordReset(user, resetURL); err != nil {
		if clearErr := h.Users.ClearResetToken(ctx, user.ID); clearErr != nil {
			h.Logger.Error().Err(clearErr).Uint64("user_id", user.ID).
				Msg("failed to roll back reset token")
		}
		return apperr.NotificationFailed()
	}

	return ok(c, http.StatusOK, echo.Map{"message": "Token sent to email"})
}

// ResetPassword consumes a reset secret: one lookup covers both the match
// and the expiry so a wrong secret and a stale one are indistinguishable.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	hash := token.HashResetSecret(c.Param("token"))
	user, err := h.Users.GetByResetToken(ctx, hash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.InvalidOrExpiredResetToken()
		}
		return err
	}

	newHash, err := repository.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	// Clears both reset fields and bumps password_changed_at, so every
	// previously issued token goes stale.
	if err := h.Users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return err
	}

	return h.sendToken(c, user, http.StatusOK)
}

// UpdatePassword changes the password of an authenticated user after
// checking the current one.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationFailed("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, okUser := middleware.CurrentUser(c)
	if !okUser {
		return apperr.SubjectGone()
	}
	if !repository.PasswordMatches(user.PasswordHash, req.CurrentPassword) {
		return apperr.WrongCurrentPassword()
	}

	newHash, err := repository.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := h.Users.UpdatePassword(c.Request().Context(), user.ID, newHash); err != nil {
		return err
	}

	return h.sendToken(c, user, http.StatusOK)
}

// sendToken issues an identity token, sets the session cookie and writes the
// uniform auth response. The user's secret columns never serialize.
func (h *AuthHandler) sendToken(c echo.Context, user repository.User, status int) error {
	signed, err := h.Tokens.Issue(user.ID)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(h.Cfg.JWTCookieDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	return ok(c, status, echo.Map{
		"token": signed,
		"data":  echo.Map{"user": user},
	})
}
