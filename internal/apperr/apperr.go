// Package apperr defines the application's closed failure taxonomy. Every
// error a handler or middleware returns is either an *Error from this
// package (operational, safe to describe to the client) or an arbitrary
// error that the central error handler masks before it reaches a response.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one failure kind in the taxonomy.
type Code string

const (
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodeInvalidToken          Code = "INVALID_TOKEN"
	CodeExpiredToken          Code = "EXPIRED_TOKEN"
	CodeSubjectGone           Code = "SUBJECT_GONE"
	CodeStalePassword         Code = "STALE_PASSWORD"
	CodeForbidden             Code = "FORBIDDEN"
	CodeNotFound              Code = "NOT_FOUND"
	CodeDuplicateValue        Code = "DUPLICATE_VALUE"
	CodeValidationFailed      Code = "VALIDATION_FAILED"
	CodeWrongCurrentPassword  Code = "WRONG_CURRENT_PASSWORD"
	CodeInvalidOrExpiredToken Code = "INVALID_OR_EXPIRED_RESET_TOKEN"
	CodeNotificationFailed    Code = "NOTIFICATION_FAILED"
	CodeMalformedID           Code = "MALFORMED_ID"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeInternal              Code = "INTERNAL"
)

// Error is a tagged failure carrying the HTTP status and a message that is
// safe to return verbatim when Operational is true.
type Error struct {
	Code        Code
	Status      int
	Message     string
	Operational bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an operational error with an explicit status and message.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Operational: true}
}

// Internal wraps an unexpected failure. It is the only non-operational
// constructor; its message never reaches clients in guarded mode.
func Internal(err error) *Error {
	return &Error{
		Code:        CodeInternal,
		Status:      http.StatusInternalServerError,
		Message:     "Something went very wrong!",
		Operational: false,
		Err:         err,
	}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, http.StatusUnauthorized, message)
}

func InvalidToken() *Error {
	return New(CodeInvalidToken, http.StatusUnauthorized, "Invalid token. Please login again!")
}

func ExpiredToken() *Error {
	return New(CodeExpiredToken, http.StatusUnauthorized, "Your token expired. Please login again!")
}

func SubjectGone() *Error {
	return New(CodeSubjectGone, http.StatusUnauthorized, "User of this token does not exist!")
}

func StalePassword() *Error {
	return New(CodeStalePassword, http.StatusUnauthorized, "User recently changed the password. Please login again!")
}

func Forbidden() *Error {
	return New(CodeForbidden, http.StatusForbidden, "You don't have permission to perform this action!")
}

func NotFound(message string) *Error {
	return New(CodeNotFound, http.StatusNotFound, message)
}

func DuplicateValue(value string) *Error {
	message := fmt.Sprintf("Duplicate field value: %s. Please use another value!", value)
	return New(CodeDuplicateValue, http.StatusBadRequest, message)
}

func ValidationFailed(message string) *Error {
	return New(CodeValidationFailed, http.StatusBadRequest, message)
}

func WrongCurrentPassword() *Error {
	return New(CodeWrongCurrentPassword, http.StatusBadRequest, "Current password incorrect! You have 3 more tries.")
}

func InvalidOrExpiredResetToken() *Error {
	return New(CodeInvalidOrExpiredToken, http.StatusBadRequest, "Token invalid or expired!")
}

func NotificationFailed() *Error {
	return New(CodeNotificationFailed, http.StatusInternalServerError,
		"There was an error sending the reset token! Please try again later.")
}

func MalformedID(field, value string) *Error {
	return New(CodeMalformedID, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", field, value))
}

func RateLimited() *Error {
	return New(CodeRateLimited, http.StatusTooManyRequests,
		"Too many requests from this IP, please try again in an hour!")
}
