package rabbit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker independent errors returned by RabbitClient. TranslateError wraps
// AMQP and network errors with one of them.
var (
	ErrConnectionFailed   = errors.New("connection failed")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrChannelClosed      = errors.New("channel closed")
	ErrAccessDenied       = errors.New("access denied")
	ErrNotFound           = errors.New("exchange or queue not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrResourceLocked     = errors.New("resource locked")
	ErrMessageTooLarge    = errors.New("message too large")
	ErrPublishFailed      = errors.New("publish failed")
	ErrMessageNacked      = errors.New("message nacked by broker")
	ErrNetworkError       = errors.New("network error")
	ErrTimeout            = errors.New("timeout")
	ErrServerError        = errors.New("server error")
	ErrClientClosed       = errors.New("client is shut down")
)

// ErrorCategory groups errors by how a caller should react to them.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryConnection
	CategoryPermission
	CategoryResource
	CategoryMessage
	CategoryServer
	CategoryTimeout
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryConnection:
		return "connection"
	case CategoryPermission:
		return "permission"
	case CategoryResource:
		return "resource"
	case CategoryMessage:
		return "message"
	case CategoryServer:
		return "server"
	case CategoryTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// TranslateError wraps err with the matching package error. Errors that
// match nothing are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	var amqpErr *amqp.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		sentinel = ErrTimeout
	case errors.Is(err, amqp.ErrClosed):
		sentinel = ErrChannelClosed
	case errors.As(err, &amqpErr):
		sentinel = translateAMQPError(amqpErr)
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			sentinel = ErrTimeout
		} else {
			sentinel = ErrNetworkError
		}
	}

	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func translateAMQPError(amqpErr *amqp.Error) error {
	switch amqpErr.Code {
	case amqp.ConnectionForced:
		return ErrConnectionClosed
	case amqp.AccessRefused:
		return ErrAccessDenied
	case amqp.NotFound:
		return ErrNotFound
	case amqp.ResourceLocked:
		return ErrResourceLocked
	case amqp.PreconditionFailed:
		return ErrPreconditionFailed
	case amqp.ContentTooLarge:
		return ErrMessageTooLarge
	case amqp.NoRoute, amqp.NoConsumers:
		return ErrPublishFailed
	case amqp.ChannelError:
		return ErrChannelClosed
	case amqp.InternalError, amqp.ResourceError, amqp.NotImplemented:
		return ErrServerError
	}

	reason := strings.ToLower(amqpErr.Reason)
	switch {
	case strings.Contains(reason, "access refused"), strings.Contains(reason, "login refused"):
		return ErrAccessDenied
	case strings.Contains(reason, "not found"):
		return ErrNotFound
	case strings.Contains(reason, "timeout"):
		return ErrTimeout
	}
	return nil
}

// GetErrorCategory returns the category of err.
func GetErrorCategory(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrConnectionClosed),
		errors.Is(err, ErrChannelClosed), errors.Is(err, ErrNetworkError), errors.Is(err, ErrClientClosed):
		return CategoryConnection
	case errors.Is(err, ErrAccessDenied):
		return CategoryPermission
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPreconditionFailed), errors.Is(err, ErrResourceLocked):
		return CategoryResource
	case errors.Is(err, ErrMessageTooLarge), errors.Is(err, ErrPublishFailed), errors.Is(err, ErrMessageNacked):
		return CategoryMessage
	case errors.Is(err, ErrServerError):
		return CategoryServer
	case errors.Is(err, ErrTimeout):
		return CategoryTimeout
	default:
		return CategoryUnknown
	}
}

// IsRetryableError reports whether publishing again may succeed.
func IsRetryableError(err error) bool {
	if errors.Is(err, ErrClientClosed) {
		return false
	}
	switch GetErrorCategory(err) {
	case CategoryConnection, CategoryServer, CategoryTimeout:
		return true
	}
	return errors.Is(err, ErrMessageNacked) || errors.Is(err, ErrResourceLocked)
}
