package dingtalk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is an invalid parameter error
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNilParameter is a nil parameter error
	ErrNilParameter = errors.New("nil parameter")

	// ErrMissingCorpID is returned by corp-scoped operations when the client
	// has no corporate id configured.  See Client.SetCorpID.
	ErrMissingCorpID = errors.New("corporate id not configured")

	// ErrInvalidCACert is an invalid CA certificate error
	ErrInvalidCACert = errors.New("invalid CA certificate")

	// ErrIDGeneratorFailed is an id generation error
	ErrIDGeneratorFailed = errors.New("id generation failed")

	// ErrTransport is a network/connection failure while calling the
	// platform.  The underlying error's text is preserved in the message.
	ErrTransport = errors.New("transport failure")

	// ErrTokenFetch is returned when the platform rejects a credential
	// exchange at the token endpoint.
	ErrTokenFetch = errors.New("token fetch failed")

	// ErrIdentityLookup is returned when the platform rejects an identity
	// call.  The wrapped *ApiError carries the platform code and message.
	ErrIdentityLookup = errors.New("identity lookup failed")
)

// ApiError represents an error response from the platform itself: either a
// non-zero errcode in a legacy endpoint's envelope, or a non-2xx status
// from a v1.0 endpoint.  Use errors.As to recover it from a wrapped error
// and inspect the platform's code/message.
type ApiError struct {
	// Code is the platform error code from the response envelope.  Zero
	// when the failure was status-only.
	Code int

	// HTTPStatus is the response status.  200 for legacy envelope errors.
	HTTPStatus int

	// Message is the platform's error message
	Message string
}

func (e *ApiError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("platform error (status %d): %s", e.HTTPStatus, e.Message)
	}
}
