package vault

import "errors"

// Error kinds. Match them with errors.Is; the concrete error is always *Error.
var (
	ErrValidation     = errors.New("validation error")
	ErrFormat         = errors.New("format error")
	ErrAuthentication = errors.New("authentication error")
	ErrPayload        = errors.New("payload error")
	ErrNotFound       = errors.New("not found")
	ErrPathSafety     = errors.New("path safety error")
	ErrIO             = errors.New("io error")
	ErrKDF            = errors.New("kdf error")
)

// Error is returned by every vault operation. Msg is safe to show to a user;
// Err keeps the underlying cause for logging.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error of the given kind.
func NewError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Validation reports caller input that failed a check; msg is shown verbatim.
func Validation(msg string) *Error { return NewError(ErrValidation, msg, nil) }

// NotFound reports a missing vault, folder or credential.
func NotFound(msg string) *Error { return NewError(ErrNotFound, msg, nil) }

// IOFailure hides OS detail behind a generic message.
func IOFailure(msg string, cause error) *Error { return NewError(ErrIO, msg, cause) }

// KindName returns a short label for err's kind, used in logs and the journal.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrPayload):
		return "payload"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPathSafety):
		return "path_safety"
	case errors.Is(err, ErrKDF):
		return "kdf"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "internal"
	}
}
