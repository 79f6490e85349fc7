package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking/internal/apperr"
)

// ok writes the uniform success envelope used by every API endpoint.
func ok(c echo.Context, status int, data echo.Map) error {
	body := echo.Map{"status": "success"}
	for k, v := range data {
		body[k] = v
	}
	return c.JSON(status, body)
}

// paramID parses a numeric path parameter, failing with the operational
// malformed-id error naming the offending value.
func paramID(c echo.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.MalformedID(name, raw)
	}
	return id, nil
}

// requestScheme prefers the forwarded proto when running behind a proxy and
// falls back to the direct scheme.
func requestScheme(c echo.Context) string {
	if proto := c.Request().Header.Get(echo.HeaderXForwardedProto); proto != "" {
		return proto
	}
	return c.Scheme()
}

// Validator adapts go-playground/validator to echo's Validate hook. The raw
// validator.ValidationErrors pass through so the error handler can build the
// concatenated field message.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (val *Validator) Validate(i interface{}) error { return val.v.Struct(i) }
