package mqtt

import "errors"

var (
	// ErrNotConnected is returned while the broker connection is down.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectionFailed wraps a failed first connection.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("mqtt: timed out waiting for broker")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrPayloadTooLarge is returned for snapshots or lines over 1 MiB.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	// ErrUnexpectedTopic is returned by a route that received a message on a
	// topic it cannot decode.
	ErrUnexpectedTopic = errors.New("mqtt: unexpected topic")
)
