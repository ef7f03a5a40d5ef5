package mqtt5

import "errors"

var (
	// ErrNotConnected is returned when publishing without a session.
	ErrNotConnected = errors.New("mqtt5: client not connected")

	// ErrConnectionFailed wraps dial and CONNACK failures.
	ErrConnectionFailed = errors.New("mqtt5: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt5: publish failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	ErrInvalidQoS = errors.New("mqtt5: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt5: topic cannot be empty")

	// ErrServerDisconnect is reported when the broker sends DISCONNECT.
	ErrServerDisconnect = errors.New("mqtt5: disconnected by server")
)
