// Package perfbench runs a coarse CPU and clock probe used to fingerprint a
// device's performance class. Each run executes five micro-workloads bounded
// by both an iteration cap and a small wall-clock budget.
package perfbench

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
)

const (
	// DefaultRuns is the number of runs in a suite.
	DefaultRuns = 10

	// Fields is the width of one result tuple.
	Fields = 9

	maxIterations = 1000000
	budgetMillis  = 2
	checkEvery    = 100

	modDividend = 4508713
)

// Clock reports elapsed milliseconds from an arbitrary fixed origin.
type Clock interface {
	UptimeMillis() int64
}

type monotonicClock struct {
	origin time.Time
}

func (c monotonicClock) UptimeMillis() int64 {
	return time.Since(c.origin).Milliseconds()
}

// SystemClock is backed by the runtime's monotonic clock.
func SystemClock() Clock {
	return monotonicClock{origin: time.Now()}
}

// Result is the outcome of one run. A failed run keeps Err and reports the
// sentinel tuple.
type Result struct {
	Values [Fields]int
	Err    error
}

// Failed reports whether the run hit an internal failure.
func (r Result) Failed() bool {
	return r.Err != nil
}

// String renders the comma-joined tuple sent on the wire:
// modHits, modThroughput, floatHits, floatThroughput, sqrtHits,
// sqrtThroughput, trigHits, trigThroughput, noopIterations.
func (r Result) String() string {
	values := r.Values
	if r.Failed() {
		values = sentinel()
	}
	parts := make([]string, Fields)
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func sentinel() [Fields]int {
	var s [Fields]int
	for i := range s {
		s[i] = -1
	}
	return s
}

// Runner executes benchmark runs against a clock.
type Runner struct {
	clock Clock
	log   logger.Logger
	fault error
}

// New returns a Runner. A nil clock uses SystemClock.
func New(clock Clock) *Runner {
	if clock == nil {
		clock = SystemClock()
	}
	return &Runner{
		clock: clock,
		log:   logger.Component("perfbench"),
	}
}

// RunSuite executes n independent runs and returns their tuples in run order.
func (r *Runner) RunSuite(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		res := r.Run()
		if res.Failed() {
			r.log.Warn().Err(res.Err).Int("run", i).Msg("Benchmark run failed")
		}
		out = append(out, res.String())
	}
	return out
}

// Run executes one run. It never panics; failures produce a sentinel result.
func (r *Runner) Run() (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Values: sentinel(), Err: errors.New().WithData(ErrRunFailed, fmt.Sprint(p))}
		}
	}()

	r.fault = nil
	modHits, modIters := r.modSearch()
	floatHits, floatIters := r.floatAccumulate()
	sqrtHits, sqrtIters := r.sqrtThreshold()
	trigHits, trigIters := r.trigThreshold()
	noop := r.noopLoop()

	if r.fault != nil {
		return Result{Values: sentinel(), Err: r.fault}
	}

	return Result{Values: [Fields]int{
		modHits, modIters / checkEvery,
		floatHits, floatIters / checkEvery,
		sqrtHits, sqrtIters / checkEvery,
		trigHits, trigIters / checkEvery,
		noop,
	}}
}

// expired reports whether the budget since start is spent. A clock that
// reads earlier than start ends the workload and fails the run.
func (r *Runner) expired(start int64) bool {
	now := r.clock.UptimeMillis()
	if now < start {
		if r.fault == nil {
			r.fault = errors.New().WithData(ErrClockSkew, struct {
				Start int64
				Now   int64
			}{
				Start: start,
				Now:   now,
			})
		}
		return true
	}
	return now-start > budgetMillis
}

func (r *Runner) modSearch() (hits, iters int) {
	start := r.clock.UptimeMillis()
	for i := 1; i < maxIterations; i++ {
		if ((modDividend%i)*11)%i == 0 {
			hits++
		}
		if i%checkEvery == 0 && r.expired(start) {
			break
		}
		iters++
	}
	return hits, iters
}

func (r *Runner) floatAccumulate() (hits, iters int) {
	start := r.clock.UptimeMillis()
	f := float32(33.34)
	for i := 1; i < maxIterations; i++ {
		f += float32(i)
		if (19.239*f)/3.56 < 10000.0 {
			hits++
		}
		if i%checkEvery == 0 && r.expired(start) {
			break
		}
		iters++
	}
	return hits, iters
}

func (r *Runner) sqrtThreshold() (hits, iters int) {
	start := r.clock.UptimeMillis()
	for d := 0.0; d < maxIterations; d++ {
		if math.Sqrt(d) > 30.0 {
			hits++
		}
		if int(d)%checkEvery == 0 && r.expired(start) {
			break
		}
		iters++
	}
	return hits, iters
}

func (r *Runner) trigThreshold() (hits, iters int) {
	start := r.clock.UptimeMillis()
	for i := 1; i < maxIterations; i++ {
		x := float64(i) / maxIterations
		if math.Acos(x)+math.Asin(x)+math.Atan(x) > 1.5 {
			hits++
		}
		if i%checkEvery == 0 && r.expired(start) {
			break
		}
		iters++
	}
	return hits, iters
}

func (r *Runner) noopLoop() (iters int) {
	start := r.clock.UptimeMillis()
	for i := 1; i < maxIterations && !r.expired(start); i++ {
		iters++
	}
	return iters
}
