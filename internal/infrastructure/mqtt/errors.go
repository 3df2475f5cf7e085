package mqtt

import "errors"

// Sentinel errors for broker operations. Wrapped errors carry the
// underlying cause; match with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: no broker connection")
	ErrConnectionFailed  = errors.New("mqtt: broker connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	ErrInvalidTopic = errors.New("mqtt: empty topic")
	ErrTimeout      = errors.New("mqtt: operation timed out")
)
