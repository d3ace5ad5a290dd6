package errx

import "fmt"

// ErrorCode is one registered code: the template every Error minted for it
// is stamped from.
type ErrorCode struct {
	Code       string
	Type       Type
	HTTPStatus int
	Message    string
}

// Registry namespaces the error codes one package may produce. Each package
// creates its own in a var block and registers codes alongside it, so the
// full code space is fixed at init time.
type Registry struct {
	prefix string
	codes  map[string]*ErrorCode
}

// NewRegistry creates a registry whose codes are prefixed "<prefix>_".
func NewRegistry(prefix string) *Registry {
	return &Registry{prefix: prefix, codes: make(map[string]*ErrorCode)}
}

// Register adds a code to the registry and returns its handle. Registering
// the same code twice is a programming error and panics.
func (r *Registry) Register(code string, errType Type, httpStatus int, message string) *ErrorCode {
	if _, exists := r.codes[code]; exists {
		panic(fmt.Sprintf("errx: code %s_%s registered twice", r.prefix, code))
	}
	ec := &ErrorCode{
		Code:       fmt.Sprintf("%s_%s", r.prefix, code),
		Type:       errType,
		HTTPStatus: httpStatus,
		Message:    message,
	}
	r.codes[code] = ec
	return ec
}

// New mints an Error for a registered code.
func (r *Registry) New(code *ErrorCode) *Error {
	return &Error{
		Code:       code.Code,
		Message:    code.Message,
		Type:       code.Type,
		HTTPStatus: code.HTTPStatus,
	}
}

// NewWithCause mints an Error wrapping an underlying cause.
func (r *Registry) NewWithCause(code *ErrorCode, cause error) *Error {
	e := r.New(code)
	e.Err = cause
	return e
}
