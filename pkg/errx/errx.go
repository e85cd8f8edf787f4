package errx

import (
	"fmt"
	"net/http"
)

// Type classifies an error for transport mapping and logging
type Type string

const (
	TypeValidation    Type = "VALIDATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeBusiness      Type = "BUSINESS"
	TypeInternal      Type = "INTERNAL"
	TypeExternal      Type = "EXTERNAL"
)

// defaultStatus maps an error type to its default HTTP status
func defaultStatus(t Type) int {
	switch t {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeAuthorization:
		return http.StatusForbidden
	case TypeBusiness:
		return http.StatusUnprocessableEntity
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the application error carried across layers.
// Code identifies the error for clients, Details carry structured context,
// Err keeps the underlying cause for logs.
type Error struct {
	Type       Type           `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches structured context and returns the error for chaining
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithStatus overrides the HTTP status
func (e *Error) WithStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// New creates an ad-hoc error with the default status for its type
func New(message string, t Type) *Error {
	return &Error{
		Type:       t,
		Code:       string(t) + "_ERROR",
		Message:    message,
		HTTPStatus: defaultStatus(t),
	}
}

// Wrap annotates an underlying error without losing it
func Wrap(err error, message string, t Type) *Error {
	return &Error{
		Type:       t,
		Code:       string(t) + "_ERROR",
		Message:    message,
		HTTPStatus: defaultStatus(t),
		Err:        err,
	}
}

// ============================================================================
// Error Registry
// ============================================================================

// ErrorCode is a registered error definition. Registries hand these out so
// every domain error keeps a stable, prefixed code.
type ErrorCode struct {
	Code       string
	Type       Type
	HTTPStatus int
	Message    string
}

// Registry registers domain error codes under a common prefix
type Registry struct {
	prefix string
	codes  map[string]ErrorCode
}

// NewRegistry creates a registry for one domain (e.g. "CHAT", "EXAM")
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		codes:  make(map[string]ErrorCode),
	}
}

// Register defines an error code. The full code is PREFIX_CODE.
func (r *Registry) Register(code string, t Type, httpStatus int, message string) ErrorCode {
	ec := ErrorCode{
		Code:       r.prefix + "_" + code,
		Type:       t,
		HTTPStatus: httpStatus,
		Message:    message,
	}
	r.codes[ec.Code] = ec
	return ec
}

// New instantiates a fresh error from a registered code
func (r *Registry) New(code ErrorCode) *Error {
	return &Error{
		Type:       code.Type,
		Code:       code.Code,
		Message:    code.Message,
		HTTPStatus: code.HTTPStatus,
	}
}

// NewWithErr instantiates a registered error that keeps its underlying cause
func (r *Registry) NewWithErr(code ErrorCode, err error) *Error {
	e := r.New(code)
	e.Err = err
	return e
}

// IsCode reports whether err is an *Error carrying the given registered code
func IsCode(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code.Code
	}
	return false
}
