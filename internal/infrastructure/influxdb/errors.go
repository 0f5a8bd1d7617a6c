package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrNoConstruct is returned by Connect without a construct ID to tag
	// points with.
	ErrNoConstruct = errors.New("influxdb: construct id required")

	// ErrConnectionFailed indicates the server did not answer the initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrUnhealthy indicates the server answered a ping but reported itself
	// unhealthy.
	ErrUnhealthy = errors.New("influxdb: server not healthy")

	// ErrClosed is returned by HealthCheck after Close.
	ErrClosed = errors.New("influxdb: client closed")
)
