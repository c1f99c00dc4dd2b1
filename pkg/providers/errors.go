package providers

import "fmt"

// TransportError wraps a network or timeout failure talking to a vendor API.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamStatusError reports a non-2xx vendor response with a body snippet.
type UpstreamStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d body: %s", e.Provider, e.StatusCode, e.Body)
}

// DecodeError reports a malformed vendor payload (invalid JSON or XML).
type DecodeError struct {
	Provider string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode vendor payload: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
