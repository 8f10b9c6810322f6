package llms

import "fmt"

// ErrorKind classifies a failure returned by a Client so the reasoning
// loop and Task retry logic can treat them uniformly without inspecting
// provider-specific error types.
type ErrorKind string

const (
	ErrAuthentication ErrorKind = "authentication"
	ErrRateLimited    ErrorKind = "rate_limited"
	ErrModelNotFound  ErrorKind = "model_not_found"
	ErrBadRequest     ErrorKind = "bad_request"
	ErrServer         ErrorKind = "server_error"
	ErrTransport      ErrorKind = "transport"
)

// Error wraps a provider failure with a Kind the caller can branch on
// without parsing message strings. It is always treated as an iteration
// failure by the Agent; Task retry semantics decide whether to re-run.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llms: %s (%s): %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("llms: %s (%s): %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a Client error of the given kind.
func NewError(kind ErrorKind, provider, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Err: cause}
}
