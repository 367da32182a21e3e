package collector

import "codeberg.org/mutker/sensoragent/internal/errors"

const (
	ErrNoSensors      = errors.ErrorCode("collector_no_sensors")
	ErrAlreadyStarted = errors.ErrorCode("collector_already_started")
	ErrEncodeSample   = errors.ErrorCode("collector_encode_sample_failed")
)
