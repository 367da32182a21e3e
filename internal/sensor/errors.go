package sensor

import "codeberg.org/mutker/sensoragent/internal/errors"

const (
	ErrSensorUnavailable = errors.ErrorCode("sensor_unavailable")
	ErrAlreadySubscribed = errors.ErrorCode("sensor_already_subscribed")
	ErrReadFailed        = errors.ErrorCode("sensor_read_failed")
)
