package errcode

import "fmt"

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Is matches by code, so a wrapped error still satisfies errors.Is
// against its catalog entry.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam   = New(1001, "invalid parameter")
	ErrInternalServer = New(1002, "internal server error")
	ErrUnauthorized   = New(1003, "unauthorized")
	ErrForbidden      = New(1004, "forbidden")
	ErrNotFound       = New(1005, "not found")

	// Auth errors (2xxx)
	ErrTokenInvalid = New(2001, "token invalid")
	ErrTokenExpired = New(2002, "token expired")
	ErrTokenMissing = New(2003, "token missing")

	// Conversation errors (3xxx)
	ErrConvNotFound = New(3001, "conversation not found")
	ErrConvNotOpen  = New(3002, "no conversation open")

	// Message errors (4xxx)
	ErrBlankMessage   = New(4001, "message body is blank")
	ErrSendFailed     = New(4002, "message send failed")
	ErrLoadFailed     = New(4003, "message load failed")
	ErrMarkReadFailed = New(4004, "mark read failed")

	// Channel errors (5xxx)
	ErrConnFailed     = New(5001, "connection failed")
	ErrInvalidEvent   = New(5003, "invalid event payload")
	ErrRetryExhausted = New(5004, "reconnect attempts exhausted")
)
