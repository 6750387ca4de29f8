package cortex

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when an RPC is attempted with no live
// connection to the device-control endpoint.
var ErrNotConnected = errors.New("not connected to cortex endpoint")

// ErrNoHeadsets is returned when queryHeadsets comes back empty. The device
// is likely off or out of range.
var ErrNoHeadsets = errors.New("no headsets found")

// RemoteError is a protocol-level rejection carried in a reply's error
// member.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("cortex api error (code %d): %s", e.Code, e.Message)
}

// TimeoutError means no reply arrived for a request within the configured
// bound. For requestAccess this usually means the approval prompt in the
// launcher was never accepted.
type TimeoutError struct {
	RequestID int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %d timed out waiting for a reply", e.RequestID)
}
