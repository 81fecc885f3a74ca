/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize error construction and reporting.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application
// error code. The key is the error code (int), and the value contains the user
// message and, where relevant, the associated HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid parameters."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "You are sending messages too quickly. Please slow down.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Content Business Logic Errors
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrRoomCodeInvalid:       {Code: ErrRoomCodeInvalid, Message: "Invalid room code."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message is empty."},

	// 3xxx: Credential and Session Errors
	ErrUnauthorized:   {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrTokenExpired:   {Code: ErrTokenExpired, Message: "Your session has expired. Please sign in again.", Status: http.StatusUnauthorized},
	ErrTokenMalformed: {Code: ErrTokenMalformed, Message: "Invalid credential.", Status: http.StatusUnauthorized},

	// 4xxx: Transport Errors
	ErrTransport:     {Code: ErrTransport, Message: "Connection problem. Please try again."},
	ErrChannelClosed: {Code: ErrChannelClosed, Message: "Live connection lost."},
	ErrSendQueueFull: {Code: ErrSendQueueFull, Message: "Connection is busy. Please try again."},

	// 5xxx: Upload and Internal Errors
	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrUploadFailed:     {Code: ErrUploadFailed, Message: "File upload failed. Please try again."},
	ErrFileSizeTooLarge: {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrFileTypeInvalid:  {Code: ErrFileTypeInvalid, Message: "Only JPEG, PNG, WebP, and GIF images are accepted."},
}
