/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the client
and when interpreting responses from the remote service.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that input parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that outgoing sends exceeded the local throttle.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Room and Content Business Logic Errors
const (
	// ErrRoomNotFound indicates that the requested room does not exist for this credential.
	ErrRoomNotFound = 2103

	// ErrRoomCodeInvalid indicates that the supplied room code is malformed.
	ErrRoomCodeInvalid = 2105

	// ErrMessageContentTooLong indicates that the message body exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrMessageEmpty indicates an attempt to send a message with no body.
	ErrMessageEmpty = 2202
)

// 3xxx: Credential and Session Errors
const (
	// ErrUnauthorized indicates a missing, invalid, or rejected credential.
	ErrUnauthorized = 3101

	// ErrTokenExpired indicates that the credential expired before or during the session.
	ErrTokenExpired = 3102

	// ErrTokenMalformed indicates that the credential could not be decoded at all.
	ErrTokenMalformed = 3103
)

// 4xxx: Transport Errors
const (
	// ErrTransport indicates a network or parse failure on a REST call.
	ErrTransport = 4001

	// ErrChannelClosed indicates that the live channel disconnected or was never opened.
	ErrChannelClosed = 4002

	// ErrSendQueueFull indicates that an outgoing command was dropped because the
	// channel's send queue was full.
	ErrSendQueueFull = 4003
)

// 5xxx: Upload and Internal Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrUploadFailed indicates that the proof upload request failed.
	ErrUploadFailed = 5102

	// ErrFileSizeTooLarge indicates that the proof file exceeds the size limit.
	ErrFileSizeTooLarge = 5103

	// ErrFileTypeInvalid indicates that the proof file is not an accepted image type.
	ErrFileTypeInvalid = 5104
)
