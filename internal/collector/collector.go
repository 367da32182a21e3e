// Package collector subscribes to the configured sensor streams, throttles
// each stream to one sample per ThrottleWindow, forwards accepted samples
// and stops once every stream has reached its Quota.
package collector

import (
	"sync"
	"time"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
	"codeberg.org/mutker/sensoragent/internal/sensor"
)

const eventBuffer = 64

// State is the collector lifecycle. Stopped is terminal.
type State int

const (
	StateIdle State = iota
	StateListening
	StateDraining
	StateStopped
)

func (s State) String() string {
	return [...]string{"IDLE", "LISTENING", "DRAINING", "STOPPED"}[s]
}

// Stop reasons reported in Summary.
const (
	ReasonQuota     = "quota_reached"
	ReasonTimeout   = "session_timeout"
	ReasonRequested = "stop_requested"
	ReasonNoSensors = "no_sensors"
)

// Sender delivers serialized messages. Send failures are not acted upon.
type Sender interface {
	Send(msg []byte) error
	Close() error
}

// Recorder receives per-event counters. See the metrics package.
type Recorder interface {
	RawEvent(t sensor.Type)
	Accepted(t sensor.Type)
	Throttled(t sensor.Type)
	CollectorState(s State)
}

type nopRecorder struct{}

func (nopRecorder) RawEvent(sensor.Type)  {}
func (nopRecorder) Accepted(sensor.Type)  {}
func (nopRecorder) Throttled(sensor.Type) {}
func (nopRecorder) CollectorState(State)  {}

// Options tune a Collector. Zero values select the defaults.
type Options struct {
	// Types to collect, DefaultTypes when empty.
	Types []sensor.Type
	// Rate hint passed on subscription.
	Rate sensor.Rate
	// Timeout ends the session early, disabled when zero.
	Timeout  time.Duration
	Recorder Recorder
}

// Summary describes a finished session.
type Summary struct {
	Started  time.Time
	Stopped  time.Time
	Reason   string
	Types    []sensor.Type
	Raw      map[sensor.Type]int
	Accepted map[sensor.Type]int
}

// Collector runs one collection session. It is not restartable.
type Collector struct {
	deviceID string
	registry sensor.Registry
	sender   Sender
	opts     Options
	recorder Recorder
	log      logger.Logger

	mu         sync.Mutex
	state      State
	subscribed []sensor.Type
	reason     string
	started    time.Time

	events   chan sensor.Event
	stopping chan struct{} // closed when shutdown begins
	stopped  chan struct{} // closed when unsubscribe and close are done
	done     chan struct{} // closed when the worker has exited
	stopOnce sync.Once
	summary  Summary
}

// New returns an idle collector tagging samples with deviceID.
func New(deviceID string, registry sensor.Registry, sender Sender, opts Options) *Collector {
	if len(opts.Types) == 0 {
		opts.Types = sensor.DefaultTypes
	}
	if opts.Rate <= 0 {
		opts.Rate = sensor.RateNormal
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Collector{
		deviceID: deviceID,
		registry: registry,
		sender:   sender,
		opts:     opts,
		recorder: recorder,
		log:      logger.Component("collector"),
		state:    StateIdle,
		events:   make(chan sensor.Event, eventBuffer),
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start subscribes to every configured type and returns without waiting
// for sampling. Types the registry refuses are logged and excluded from
// the quota. Start fails when no type could be subscribed.
func (c *Collector) Start() error {
	errFactory := errors.New()

	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return errFactory.WithData(ErrAlreadyStarted, state.String())
	}

	for _, t := range c.opts.Types {
		if err := c.registry.Subscribe(t, c.opts.Rate, c.deliver); err != nil {
			c.log.Warn().Err(err).Str("sensor", t.String()).Msg("Sensor unavailable, excluded from quota")
			continue
		}
		c.subscribed = append(c.subscribed, t)
	}

	if len(c.subscribed) == 0 {
		c.mu.Unlock()
		c.shutdown(ReasonNoSensors)
		return errFactory.New(ErrNoSensors)
	}

	c.started = time.Now()
	c.setState(StateListening)
	quota := append([]sensor.Type(nil), c.subscribed...)
	c.mu.Unlock()

	c.log.Info().
		Int("sensors", len(quota)).
		Int("quota", Quota).
		Dur("throttle", time.Duration(ThrottleWindow)).
		Msg("Collection started")

	go c.run(quota)
	return nil
}

// deliver is the registry callback. It hands the event to the worker and
// returns immediately once shutdown has begun.
func (c *Collector) deliver(e sensor.Event) {
	select {
	case c.events <- e:
	case <-c.stopping:
	}
}

func (c *Collector) run(quota []sensor.Type) {
	session := newSessionState()
	defer func() {
		<-c.stopped
		c.mu.Lock()
		c.summary = Summary{
			Started:  c.started,
			Stopped:  time.Now(),
			Reason:   c.reason,
			Types:    quota,
			Raw:      copyCounts(session.raw),
			Accepted: copyCounts(session.accepted),
		}
		c.mu.Unlock()
		close(c.done)
	}()

	var timeout <-chan time.Time
	if c.opts.Timeout > 0 {
		timer := time.NewTimer(c.opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-c.stopping:
			return
		case <-timeout:
			c.log.Warn().Dur("timeout", c.opts.Timeout).Msg("Session timed out before quota was reached")
			c.shutdown(ReasonTimeout)
			return
		case e := <-c.events:
			// Nothing is processed once shutdown has begun
			select {
			case <-c.stopping:
				return
			default:
			}

			if c.handle(session, e) && session.quotaReached(quota) {
				c.log.Info().Msg("Quota reached for every sensor")
				c.shutdown(ReasonQuota)
				return
			}
		}
	}
}

// handle processes one raw event and reports whether it was accepted.
func (c *Collector) handle(session *sessionState, e sensor.Event) bool {
	sample := NewSample(c.deviceID, e)
	c.recorder.RawEvent(sample.SensorType)

	if !session.offer(sample) {
		c.recorder.Throttled(sample.SensorType)
		return false
	}
	c.recorder.Accepted(sample.SensorType)

	msg, err := sample.Marshal()
	if err != nil {
		c.log.ErrorWithCode(errors.New().Wrap(ErrEncodeSample, err)).
			Str("sensor", sample.SensorType.String()).
			Msg("Dropping sample")
		return true
	}

	c.log.Debug().
		Str("sensor", sample.SensorType.String()).
		Int64("timestamp", sample.Timestamp).
		Int("accepted", session.accepted[sample.SensorType]).
		Msg("Sending sensor event")

	// Delivery failures are logged by the transport
	_ = c.sender.Send(msg)
	return true
}

// Stop ends the session: it unsubscribes every stream, closes the sender
// and waits for the worker to exit. It is idempotent.
func (c *Collector) Stop() {
	c.shutdown(ReasonRequested)
	<-c.done
}

// Done is closed once the session has fully stopped.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// State returns the current lifecycle state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Summary returns the session summary. ok is false until Done is closed.
func (c *Collector) Summary() (summary Summary, ok bool) {
	select {
	case <-c.done:
	default:
		return Summary{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary, true
}

func (c *Collector) shutdown(reason string) {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		idle := c.state == StateIdle
		if !idle {
			c.setState(StateDraining)
		}
		c.reason = reason
		subscribed := c.subscribed
		c.mu.Unlock()

		close(c.stopping)
		for _, t := range subscribed {
			c.registry.Unsubscribe(t)
		}
		if err := c.sender.Close(); err != nil {
			c.log.Warn().Err(err).Msg("Failed to close transport")
		}

		c.mu.Lock()
		c.setState(StateStopped)
		if idle {
			// No worker was started, so nothing else closes done
			c.summary = Summary{Reason: reason, Types: subscribed}
		}
		c.mu.Unlock()
		close(c.stopped)

		c.log.Info().Str("reason", reason).Msg("Collection stopped")
		if idle {
			close(c.done)
		}
	})
}

// setState must be called with mu held.
func (c *Collector) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("State change")
	c.state = s
	c.recorder.CollectorState(s)
}
