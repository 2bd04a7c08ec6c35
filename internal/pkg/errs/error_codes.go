/*
Package errs provides custom error types and application-level error code constants.

These error codes identify why an inbound frame or HTTP request was rejected. Frame
errors are only ever logged; HTTP errors are written back through the resp package.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a frame or request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Frame Validation Errors
const (
	// ErrUnsupportedMessageType indicates a frame whose type field is unknown or empty.
	ErrUnsupportedMessageType = 2001

	// ErrMissingUserID indicates a frame that requires a userId but carried none.
	ErrMissingUserID = 2002

	// ErrMissingPosition indicates a location update without both lat and lng.
	ErrMissingPosition = 2003

	// ErrMissingClickTarget indicates a click without a sender or recipient id.
	ErrMissingClickTarget = 2004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
