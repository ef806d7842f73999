package notify

import "fmt"

// Kind classifies a dispatch failure. The distinction is logged
// server-side; clients only ever see a generic message.
type Kind int

const (
	// KindGeneric covers send failures with no more specific cause.
	KindGeneric Kind = iota
	// KindAuth means the relay rejected our credentials.
	KindAuth
	// KindNetwork means the relay could not be reached in time.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	default:
		return "generic"
	}
}

// DispatchError wraps an email delivery failure with its class.
type DispatchError struct {
	Kind Kind
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("notify: dispatch failed (%s): %v", e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
