// Package handler implements the HTTP endpoints and the central error
// handler every request failure funnels through.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/repository"
)

// NewErrorHandler builds the echo HTTPErrorHandler. Every failure is first
// normalized into an *apperr.Error, then rendered according to deployment
// mode (verbose outside production, guarded in production) and request path
// (JSON for /api, an HTML error page otherwise).
func NewErrorHandler(production bool, logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ae := Normalize(err)
		if !ae.Operational {
			// Internals are always logged, whatever the mode.
			logger.Error().Err(ae.Err).Str("path", c.Request().URL.Path).Msg("unexpected error")
		}

		if strings.HasPrefix(c.Request().URL.Path, "/api") {
			sendAPIError(c, ae, production)
			return
		}
		sendViewError(c, ae, production)
	}
}

// Normalize classifies any failure into the closed taxonomy. Known
// collaborator failure shapes are promoted to operational errors with
// tailored messages; everything else becomes a masked internal error.
func Normalize(err error) *apperr.Error {
	if ae, ok := apperr.As(err); ok {
		return ae
	}

	// Uniqueness violation from the persistence driver.
	if value, ok := repository.AsDuplicate(err); ok {
		return apperr.DuplicateValue(value)
	}

	// Schema validation failure: one message concatenating every field.
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fieldMessage(fe))
		}
		return apperr.ValidationFailed("Invalid input data. " + strings.Join(parts, ". "))
	}

	// Token failures reaching here unadapted.
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperr.ExpiredToken()
	}
	if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperr.InvalidToken()
	}

	// Echo's own errors (unmatched routes, bind failures) are operational.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := apperr.CodeInternal
		operational := true
		msg := fmt.Sprintf("%v", he.Message)
		switch he.Code {
		case http.StatusNotFound:
			code = apperr.CodeNotFound
		case http.StatusMethodNotAllowed, http.StatusBadRequest, http.StatusRequestEntityTooLarge:
			code = apperr.CodeValidationFailed
		default:
			if he.Code >= 500 {
				return apperr.Internal(err)
			}
		}
		e := apperr.New(code, he.Code, msg)
		e.Operational = operational
		return e
	}

	return apperr.Internal(err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("A value for '%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("'%s' must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("'%s' must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("'%s' must be at most %s characters", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("'%s' must match '%s'", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("'%s' failed the '%s' rule", fe.Field(), fe.Tag())
	}
}

func statusWord(status int) string {
	if status >= 500 {
		return "error"
	}
	return "fail"
}

func sendAPIError(c echo.Context, ae *apperr.Error, production bool) {
	if !production {
		// Verbose mode: full detail regardless of classification.
		_ = c.JSON(ae.Status, echo.Map{
			"status":  statusWord(ae.Status),
			"message": ae.Message,
			"error":   ae.Error(),
			"stack":   string(debug.Stack()),
		})
		return
	}
	if ae.Operational {
		_ = c.JSON(ae.Status, echo.Map{
			"status":  statusWord(ae.Status),
			"message": ae.Message,
		})
		return
	}
	_ = c.JSON(http.StatusInternalServerError, echo.Map{
		"status":  "error",
		"message": "Something went very wrong!",
	})
}

func sendViewError(c echo.Context, ae *apperr.Error, production bool) {
	msg := ae.Message
	if production && !ae.Operational {
		msg = "Please try again later"
	}
	err := c.Render(ae.Status, "error", echo.Map{
		"Title":   "Something went wrong!",
		"Message": msg,
	})
	if err != nil {
		// No renderer configured (or render failure): plain text fallback.
		_ = c.String(ae.Status, msg)
	}
}
