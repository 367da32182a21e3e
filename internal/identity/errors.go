package identity

import "codeberg.org/mutker/sensoragent/internal/errors"

const (
	ErrHashUnavailable = errors.ErrorCode("identity_hash_unavailable")
	ErrHostInfo        = errors.ErrorCode("identity_host_info_failed")
)
