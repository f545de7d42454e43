package nasa

import "fmt"

// TransportError covers connection failures and timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "nasa power transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("nasa power upstream status %d: %s", e.Status, e.Body)
}

// UpstreamShapeError means the body did not match the expected schema.
type UpstreamShapeError struct {
	Reason string
	Err    error
}

func (e *UpstreamShapeError) Error() string {
	if e.Err != nil {
		return "nasa power response shape: " + e.Reason + ": " + e.Err.Error()
	}
	return "nasa power response shape: " + e.Reason
}

func (e *UpstreamShapeError) Unwrap() error { return e.Err }
