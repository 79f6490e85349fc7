package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamly/tour-booking/internal/apperr"
)

func execErrorHandler(t *testing.T, err error, production bool, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewErrorHandler(production, zerolog.New(io.Discard))(err, c)

	var body map[string]any
	if rec.Header().Get(echo.HeaderContentType) == echo.MIMEApplicationJSONCharsetUTF8 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestNormalizePromotions(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    apperr.Code
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "duplicate value from driver",
			err:         &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.com' for key 'users.email'"},
			wantCode:    apperr.CodeDuplicateValue,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Duplicate field value: a@b.com. Please use another value!",
		},
		{
			name:        "malformed identifier",
			err:         apperr.MalformedID("id", "abc"),
			wantCode:    apperr.CodeMalformedID,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid id: abc",
		},
		{
			name:       "operational app error passes through",
			err:        apperr.NotFound("No tour found with that ID"),
			wantCode:   apperr.CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "echo 404 is operational",
			err:        echo.NewHTTPError(http.StatusNotFound, "Not Found"),
			wantCode:   apperr.CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown error is masked",
			err:        errors.New("pq: connection reset by peer"),
			wantCode:   apperr.CodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := Normalize(tt.err)
			assert.Equal(t, tt.wantCode, ae.Code)
			assert.Equal(t, tt.wantStatus, ae.Status)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, ae.Message)
			}
			assert.Equal(t, tt.wantCode != apperr.CodeInternal, ae.Operational)
		})
	}
}

func TestNormalizeValidationErrors(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&struct {
		Name  string `validate:"required"`
		Email string `validate:"required,email"`
	}{Email: "not-an-email"})
	require.Error(t, err)

	ae := Normalize(err)
	assert.Equal(t, apperr.CodeValidationFailed, ae.Code)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Contains(t, ae.Message, "Invalid input data.")
	assert.Contains(t, ae.Message, "Name")
	assert.Contains(t, ae.Message, "Email")
}

func TestGuardedModeMasksInternals(t *testing.T) {
	secret := errors.New("dial tcp 10.0.0.5:3306: connect: connection refused")

	rec, body := execErrorHandler(t, secret, true, "/api/v1/tours")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Something went very wrong!", body["message"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Nil(t, body["stack"])
}

func TestGuardedModeExposesOperational(t *testing.T) {
	rec, body := execErrorHandler(t, apperr.Unauthenticated("Email or Password is invalid!"), true, "/api/v1/users/login")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Email or Password is invalid!", body["message"])
	assert.Nil(t, body["stack"])
}

func TestVerboseModeIncludesDetail(t *testing.T) {
	rec, body := execErrorHandler(t, errors.New("boom with internals"), false, "/api/v1/tours")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "boom with internals")
	assert.NotEmpty(t, body["stack"])
}

func TestErrorHandlerIdempotence(t *testing.T) {
	// The same malformed-identifier failure always yields the same response.
	mk := func() error { return apperr.MalformedID("id", "xyz") }

	rec1, body1 := execErrorHandler(t, mk(), true, "/api/v1/tours/xyz")
	rec2, body2 := execErrorHandler(t, mk(), true, "/api/v1/tours/xyz")
	assert.Equal(t, rec1.Code, rec2.Code)
	assert.Equal(t, body1, body2)
	assert.Equal(t, http.StatusBadRequest, rec1.Code)
	assert.Equal(t, "Invalid id: xyz", body1["message"])
}

func TestNonAPIPathRendersHTML(t *testing.T) {
	rec, _ := execErrorHandler(t, apperr.NotFound("There is no tour with that name."), true, "/tour/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	// No renderer is registered in this test, so the plain-text fallback
	// carries the message; either way the body is not the JSON envelope.
	assert.NotContains(t, rec.Body.String(), `"status"`)
	assert.Contains(t, rec.Body.String(), "There is no tour with that name.")
}

func TestNonAPIPathMasksInternals(t *testing.T) {
	rec, _ := execErrorHandler(t, errors.New("secret driver state"), true, "/tour/ghost")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please try again later")
	assert.NotContains(t, rec.Body.String(), "secret driver state")
}
