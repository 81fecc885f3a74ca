/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error
interface and carries a business code, a user-friendly message, and the HTTP status
the remote service reported (when the error originated from a REST call).
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"splitroom/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code associated with this error, when one applies.
	Status int
}

// Error implements the standard Go error interface. It returns a formatted
// error string containing the error code, HTTP status, and message.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError constructs and returns a new *CustomError instance based on a predefined
// error code. The optional details parameter supplies printf-style arguments for the
// message template. An unknown code falls back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(
				originalErr,
				"Handling ErrUnknown with underlying error",
			)
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
			)
		}
	}

	return &customErr
}

// codeOf extracts the business code from err, or 0 when err carries none.
func codeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return 0
}

// IsAuth reports whether err is a credential error (missing, invalid, or expired).
// Callers should redirect to re-authentication rather than retry.
func IsAuth(err error) bool {
	code := codeOf(err)
	return code >= 3000 && code < 4000
}

// IsNotFound reports whether err indicates the requested room does not exist
// for the presented credential.
func IsNotFound(err error) bool {
	return codeOf(err) == ErrRoomNotFound
}

// IsTransport reports whether err is a retryable network or parse failure on the
// REST surface or the live channel.
func IsTransport(err error) bool {
	code := codeOf(err)
	return code >= 4000 && code < 5000
}

// IsUpload reports whether err came from the proof upload path, including the
// client-side file validation that runs before any bytes are sent.
func IsUpload(err error) bool {
	switch codeOf(err) {
	case ErrUploadFailed, ErrFileSizeTooLarge, ErrFileTypeInvalid:
		return true
	}
	return false
}
