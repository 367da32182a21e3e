package transport

import "codeberg.org/mutker/sensoragent/internal/errors"

const (
	ErrNotOpen       = errors.ErrorCode("transport_not_open")
	ErrDialFailed    = errors.ErrorCode("transport_dial_failed")
	ErrWriteFailed   = errors.ErrorCode("transport_write_failed")
	ErrEncodeFailed  = errors.ErrorCode("transport_encode_failed")
	ErrAlreadyDialed = errors.ErrorCode("transport_already_dialed")
)
