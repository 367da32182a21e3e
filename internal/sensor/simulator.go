package sensor

import (
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
)

// Simulator produces synthetic motion readings for a fixed set of types.
// Each subscription runs its own ticker goroutine at the requested rate.
type Simulator struct {
	types []Type
	start time.Time
	log   logger.Logger

	mu     sync.Mutex
	active map[Type]chan struct{}
	wg     sync.WaitGroup
}

// NewSimulator returns a registry reporting the given types as present.
func NewSimulator(types ...Type) *Simulator {
	if len(types) == 0 {
		types = DefaultTypes
	}
	return &Simulator{
		types:  append([]Type(nil), types...),
		start:  time.Now(),
		log:    logger.Component("sensor").With("source", "simulated"),
		active: make(map[Type]chan struct{}),
	}
}

func (s *Simulator) Enumerate() []Type {
	return append([]Type(nil), s.types...)
}

func (s *Simulator) Subscribe(t Type, rate Rate, h Handler) error {
	errFactory := errors.New()

	if !s.present(t) {
		return errFactory.WithData(ErrSensorUnavailable, t.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[t]; ok {
		return errFactory.WithData(ErrAlreadySubscribed, t.String())
	}

	period := time.Duration(rate)
	if period <= 0 {
		period = time.Duration(RateNormal)
	}

	stop := make(chan struct{})
	s.active[t] = stop
	s.wg.Add(1)
	go s.run(t, period, h, stop)

	s.log.Debug().Str("sensor", t.String()).Dur("period", period).Msg("Subscribed")
	return nil
}

func (s *Simulator) Unsubscribe(t Type) {
	s.mu.Lock()
	stop, ok := s.active[t]
	delete(s.active, t)
	s.mu.Unlock()

	if ok {
		close(stop)
		s.log.Debug().Str("sensor", t.String()).Msg("Unsubscribed")
	}
}

// Close unsubscribes everything and waits for the generators to exit.
func (s *Simulator) Close() {
	s.mu.Lock()
	for t, stop := range s.active {
		close(stop)
		delete(s.active, t)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Simulator) present(t Type) bool {
	for _, known := range s.types {
		if known == t {
			return true
		}
	}
	return false
}

func (s *Simulator) run(t Type, period time.Duration, h Handler, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(s.start)
			h(Event{
				Type:      t,
				Timestamp: elapsed.Nanoseconds(),
				Accuracy:  3,
				Values:    synthesize(t, elapsed.Seconds()),
			})
		}
	}
}

// synthesize returns a slow rotation around the z axis, scaled per type.
func synthesize(t Type, sec float64) []float32 {
	phase := 2 * math.Pi * 0.25 * sec
	switch t {
	case Accelerometer:
		return []float32{float32(0.3 * math.Sin(phase)), float32(0.3 * math.Cos(phase)), 9.81}
	case Gravity:
		return []float32{0, 0, 9.81}
	case MagneticField:
		return []float32{float32(22 * math.Cos(phase)), float32(-22 * math.Sin(phase)), -40}
	case Gyroscope:
		return []float32{0, 0, float32(2 * math.Pi * 0.25)}
	default:
		return []float32{float32(math.Sin(phase)), float32(math.Cos(phase)), 0}
	}
}
