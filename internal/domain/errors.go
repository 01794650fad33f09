package domain

import "errors"

// ErrEmptyResponse is returned by a gateway when the reply has no content blocks.
var ErrEmptyResponse = errors.New("empty response from assistant")

type ErrorKind string

const (
	ErrorCaptureUnavailable        ErrorKind = "capture_unavailable"
	ErrorCapture                   ErrorKind = "capture_error"
	ErrorGatewayAuth               ErrorKind = "gateway_auth"
	ErrorGatewayRateLimited        ErrorKind = "gateway_rate_limited"
	ErrorGatewayTimeout            ErrorKind = "gateway_timeout"
	ErrorGatewayNetworkUnreachable ErrorKind = "gateway_network_unreachable"
	ErrorGatewayEmptyResponse      ErrorKind = "gateway_empty_response"
	ErrorGatewayOther              ErrorKind = "gateway_other"
)

// GatewayError is the single failure type surfaced by a message gateway.
// It does not interpret the failure; Message carries whatever the transport
// or the remote endpoint reported.
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ConversationError is a classified failure together with the text shown to the user.
type ConversationError struct {
	Kind        ErrorKind
	UserMessage string
	Err         error
}

func (e *ConversationError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.UserMessage
}

func (e *ConversationError) Unwrap() error {
	return e.Err
}
