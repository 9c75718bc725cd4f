package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrUnknownGateway     = errors.New("unknown payment gateway")
	ErrCredentialsInvalid = errors.New("gateway credentials invalid")
	ErrInvalidParams      = errors.New("payment params invalid")
	ErrUnsupported        = errors.New("operation not supported by gateway")
	ErrRequestFailed      = errors.New("gateway request failed")
	ErrAmbiguous          = errors.New("gateway request outcome unknown")
	ErrResponseInvalid    = errors.New("gateway response invalid")
	ErrSignatureInvalid   = errors.New("webhook signature invalid")
)

// UnknownGatewayError is returned for any code outside the supported set.
type UnknownGatewayError struct {
	Code string
}

func (e *UnknownGatewayError) Error() string {
	return fmt.Sprintf("unknown payment gateway: %q", e.Code)
}

// Is lets errors.Is(err, ErrUnknownGateway) match.
func (e *UnknownGatewayError) Is(target error) bool {
	return target == ErrUnknownGateway
}

// UnsupportedError names an operation a provider does not expose over its API
// and the manual process that replaces it.
type UnsupportedError struct {
	Gateway   Code
	Operation string
	Hint      string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("%s does not support %s", e.Gateway, e.Operation)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// Is lets errors.Is(err, ErrUnsupported) match.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// classifyTransportError maps a transport failure to ErrAmbiguous when the
// provider may have received the request, ErrRequestFailed otherwise.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrAmbiguous, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}
