package influxdb

import "errors"

// Sentinel errors for the metrics client; match with errors.Is.
var (
	ErrNotConnected     = errors.New("influxdb: no connection")
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed covers synchronous write rejections. Batched writes
	// fail asynchronously and surface through the SetOnError callback
	// instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled is returned by Connect when the metrics section of the
	// config turns InfluxDB off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
