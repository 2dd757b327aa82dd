package agent

import (
	"errors"
	"fmt"
)

// AttemptKind tags the result of one generation attempt.
type AttemptKind int

const (
	// AttemptLegal produced a move legal in the position.
	AttemptLegal AttemptKind = iota
	// AttemptIllegal produced well-formed notation the position does not allow.
	AttemptIllegal
	// AttemptFormatRejected produced text longer than the notation limit.
	AttemptFormatRejected
	// AttemptFailed covers any other retryable problem: unparseable or empty text.
	AttemptFailed
	// AttemptProviderFault is a failed call to the model provider. It ends generation.
	AttemptProviderFault
	// AttemptExhausted is reported once after the last attempt failed.
	AttemptExhausted
)

func (k AttemptKind) String() string {
	switch k {
	case AttemptLegal:
		return "legal"
	case AttemptIllegal:
		return "illegal"
	case AttemptFormatRejected:
		return "format_rejected"
	case AttemptFailed:
		return "failed"
	case AttemptProviderFault:
		return "provider_fault"
	case AttemptExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("attempt_kind(%d)", int(k))
	}
}

// Attempt describes one round trip to the model.
type Attempt struct {
	Number int
	Model  string
	Prompt string
	Text   string
	Kind   AttemptKind
	Err    error
	// Rejected is the rejected-candidate list after this attempt.
	Rejected []string
}

// AttemptHook observes attempts as they happen.
type AttemptHook func(Attempt)

// ProviderError wraps a failed model call. Generation stops at the first one.
type ProviderError struct {
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("model provider error (model=%s): %v", e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err carries a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

var errEmptyResponse = errors.New("empty response")
