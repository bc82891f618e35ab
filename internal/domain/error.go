package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These classify every remote and local failure and determine user-facing messages.
const (
	ESTOCK        = "stock_exceeded" // Server rejected a quantity as exceeding stock
	EUNAUTHORIZED = "unauthorized"   // Missing/expired credential, 401 or 403
	ENETWORK      = "network"        // Request sent but no response received
	ESERVER       = "server"         // Any other non-2xx response
	ESTALE        = "stale"          // Response for a query that is no longer live (never shown)
	EINVALID      = "invalid"        // Local precondition failed before any network call
	ENOTFOUND     = "not_found"      // Unknown entity in local state
	EINTERNAL     = "internal"       // Bug or unexpected decode failure (hide details)
)

// User-facing messages for codes that must not leak details.
const (
	MessageStockExceeded = "Sorry, the requested quantity exceeds the available stock."
	MessageOutOfStock    = "Sorry, this item is currently out of stock."
	MessageUnauthorized  = "You do not have permission to update the cart. Please try logging in again."
	MessageNetwork       = "No response from server. Please check your internet connection."
	MessageGeneric       = "An error occurred. Please try again."
)

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., ESTOCK, EUNAUTHORIZED).
	Code string

	// Message is a human-readable error message safe to show to users.
	Message string

	// Op is the operation where the error occurred (e.g., "cart.add_item").
	// Used for debugging and logging, not shown to users.
	Op string

	// Status is the HTTP status returned by the remote service, if any.
	Status int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for non-domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorMessage extracts a user-facing message from an error.
// Stock and auth failures get specific text; network and server failures
// get a generic one.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return MessageGeneric
	}

	switch e.Code {
	case ESTOCK:
		if e.Message != "" {
			return e.Message
		}
		return MessageStockExceeded
	case EUNAUTHORIZED:
		return MessageUnauthorized
	case ENETWORK:
		return MessageNetwork
	case ESERVER, EINTERNAL, ESTALE:
		return MessageGeneric
	default:
		return e.Message
	}
}

// ErrorOp extracts the operation from an error (for logging).
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// ErrorStatus extracts the remote HTTP status from an error, or 0.
func ErrorStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "cart.update_quantity", "quantity %d exceeds stock %d", q, s)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with a domain error code and operation.
// Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// WithOp returns err with its Op replaced when err is a domain error.
// Non-domain errors are wrapped as EINTERNAL.
func WithOp(err error, op string) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.Op = op
		return &cp
	}

	return Internal(err, op, "unexpected failure")
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// IsRetryable reports whether a manual retry may succeed.
// Nothing in this package retries automatically.
func IsRetryable(err error) bool {
	return IsCode(err, ENETWORK)
}

// =============================================================================
// Common errors (convenience)
// =============================================================================

// Unauthorized creates an auth error.
// Example: domain.Unauthorized("cart.resolve", "no access token")
func Unauthorized(op, message string) error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Invalid creates a local precondition error.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("cart.remove_item", "cart item", itemID)
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// StockExceeded creates a stock rejection with the given user-facing
// message. status is the HTTP status, or 0 for a local check.
func StockExceeded(op string, status int, message string) error {
	return &Error{
		Code:    ESTOCK,
		Op:      op,
		Status:  status,
		Message: message,
	}
}

// Network creates a transient transport error.
func Network(err error, op string) error {
	return &Error{
		Code:    ENETWORK,
		Op:      op,
		Message: "no response from remote service",
		Err:     err,
	}
}

// Server creates an error for a non-2xx response that is not otherwise classified.
func Server(op string, status int, message string) error {
	return &Error{
		Code:    ESERVER,
		Op:      op,
		Status:  status,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrStaleResponse marks a page response whose query is no longer live.
// It is discarded silently and never reaches a notifier.
var ErrStaleResponse = &Error{Code: ESTALE, Message: "response for superseded query discarded"}
