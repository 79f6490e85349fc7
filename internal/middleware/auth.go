// Package middleware provides the request-scoped checks applied in front of
// handlers: session authentication, role authorization, rate limiting and
// response caching.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/repository"
	"github.com/roamly/tour-booking/internal/token"
)

// userKey is the echo context key holding the authenticated user.
const userKey = "user"

// SessionCookie is the name of the identity-token cookie.
const SessionCookie = "jwt"

// UserStore is the subset of the credential store the auth chain needs.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (repository.User, error)
}

// Protect authenticates a request by running the ordered pipeline:
// extract token -> verify signature/expiry -> resolve subject -> check
// password freshness. The first failing step short-circuits with its
// specific rejection; on success the resolved user is attached to the
// request context for downstream handlers.
func Protect(tokens *token.Service, users UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authenticate(c, tokens, users)
			if err != nil {
				return err
			}
			c.Set(userKey, user)
			return next(c)
		}
	}
}

// IsLoggedIn runs the same pipeline but never rejects: any failure leaves
// the request anonymous. Used by HTML views that render differently for
// logged-in visitors. Only the cookie is consulted; API clients carrying a
// Bearer header have no use for optional identity.
func IsLoggedIn(tokens *token.Service, users UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := c.Cookie(SessionCookie); err == nil {
				if user, err := authenticate(c, tokens, users); err == nil {
					c.Set(userKey, user)
				}
			}
			return next(c)
		}
	}
}

// RequireRole rejects authenticated requests whose subject's role is not in
// the allowed set. It must run after Protect has populated the context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok || !allowed[user.Role] {
				return apperr.Forbidden()
			}
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user attached by Protect or
// IsLoggedIn, if any.
func CurrentUser(c echo.Context) (repository.User, bool) {
	u, ok := c.Get(userKey).(repository.User)
	return u, ok
}

func authenticate(c echo.Context, tokens *token.Service, users UserStore) (repository.User, error) {
	// 1. Extraction: Authorization header wins over the session cookie.
	raw := extractToken(c)
	if raw == "" {
		return repository.User{}, apperr.Unauthenticated("You are not logged in! Please log in to continue.")
	}

	// 2. Signature and expiry.
	claims, err := tokens.Verify(raw)
	if err != nil {
		return repository.User{}, err
	}

	// 3. Subject must still exist (covers deleted and deactivated accounts).
	user, err := users.GetByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, apperr.SubjectGone()
		}
		return repository.User{}, err
	}

	// 4. Freshness: a password change invalidates every earlier token.
	if user.PasswordChangedAfter(claims.IssuedAt) {
		return repository.User{}, apperr.StalePassword()
	}

	return user, nil
}

func extractToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
