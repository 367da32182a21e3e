package perfbench

import "codeberg.org/mutker/sensoragent/internal/errors"

const (
	ErrRunFailed = errors.ErrorCode("perfbench_run_failed")
	ErrClockSkew = errors.ErrorCode("perfbench_clock_skew")
)
