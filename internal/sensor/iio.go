package sensor

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
)

// iioChannels maps IIO channel prefixes onto sensor types.
var iioChannels = []struct {
	prefix string
	typ    Type
}{
	{"accel", Accelerometer},
	{"magn", MagneticField},
	{"anglvel", Gyroscope},
	{"gravity", Gravity},
}

type iioSource struct {
	dir    string
	prefix string
}

// IIORegistry polls Linux industrial I/O devices through sysfs. Each
// subscription reads in_<chan>_{x,y,z}_raw at the requested rate and applies
// the channel's offset and scale.
type IIORegistry struct {
	root  string
	start time.Time
	log   logger.Logger

	sources map[Type]iioSource
	order   []Type

	mu     sync.Mutex
	active map[Type]chan struct{}
	wg     sync.WaitGroup
}

// NewIIORegistry scans root (usually /sys/bus/iio/devices) for devices
// exposing three-axis channels.
func NewIIORegistry(root string) (*IIORegistry, error) {
	errFactory := errors.New()

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errFactory.Wrap(ErrSensorUnavailable, err)
	}

	r := &IIORegistry{
		root:    root,
		start:   time.Now(),
		log:     logger.Component("sensor").With("source", "iio"),
		sources: make(map[Type]iioSource),
		active:  make(map[Type]chan struct{}),
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "iio:device") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		dir := filepath.Join(root, name)
		for _, ch := range iioChannels {
			if _, err := os.Stat(filepath.Join(dir, "in_"+ch.prefix+"_x_raw")); err != nil {
				continue
			}
			// First device wins when several expose the same channel
			if _, dup := r.sources[ch.typ]; dup {
				continue
			}
			r.sources[ch.typ] = iioSource{dir: dir, prefix: ch.prefix}
			r.order = append(r.order, ch.typ)
			r.log.Debug().Str("device", name).Str("sensor", ch.typ.String()).Msg("Found IIO channel")
		}
	}

	return r, nil
}

func (r *IIORegistry) Enumerate() []Type {
	return append([]Type(nil), r.order...)
}

func (r *IIORegistry) Subscribe(t Type, rate Rate, h Handler) error {
	errFactory := errors.New()

	src, ok := r.sources[t]
	if !ok {
		return errFactory.WithData(ErrSensorUnavailable, t.String())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[t]; ok {
		return errFactory.WithData(ErrAlreadySubscribed, t.String())
	}

	period := time.Duration(rate)
	if period <= 0 {
		period = time.Duration(RateNormal)
	}

	stop := make(chan struct{})
	r.active[t] = stop
	r.wg.Add(1)
	go r.poll(t, src, period, h, stop)

	return nil
}

func (r *IIORegistry) Unsubscribe(t Type) {
	r.mu.Lock()
	stop, ok := r.active[t]
	delete(r.active, t)
	r.mu.Unlock()

	if ok {
		close(stop)
	}
}

// Close unsubscribes everything and waits for pollers to exit.
func (r *IIORegistry) Close() {
	r.mu.Lock()
	for t, stop := range r.active {
		close(stop)
		delete(r.active, t)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *IIORegistry) poll(t Type, src iioSource, period time.Duration, h Handler, stop <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			values, err := src.read()
			if err != nil {
				r.log.Warn().Err(err).Str("sensor", t.String()).Msg("Failed to read IIO channel")
				continue
			}
			h(Event{
				Type:      t,
				Timestamp: monotonicNanos(r.start),
				Accuracy:  3,
				Values:    values,
			})
		}
	}
}

// read returns (raw + offset) * scale for the x, y and z axes.
func (s iioSource) read() ([]float32, error) {
	scale := s.attr("scale", 1)
	offset := s.attr("offset", 0)

	values := make([]float32, 0, 3)
	for _, axis := range []string{"x", "y", "z"} {
		raw, err := readFloat(filepath.Join(s.dir, "in_"+s.prefix+"_"+axis+"_raw"))
		if err != nil {
			return nil, errors.New().Wrap(ErrReadFailed, err)
		}
		axisScale := s.axisAttr(axis, "scale", scale)
		axisOffset := s.axisAttr(axis, "offset", offset)
		values = append(values, float32((raw+axisOffset)*axisScale))
	}
	return values, nil
}

func (s iioSource) attr(name string, fallback float64) float64 {
	v, err := readFloat(filepath.Join(s.dir, "in_"+s.prefix+"_"+name))
	if err != nil {
		return fallback
	}
	return v
}

func (s iioSource) axisAttr(axis, name string, fallback float64) float64 {
	v, err := readFloat(filepath.Join(s.dir, "in_"+s.prefix+"_"+axis+"_"+name))
	if err != nil {
		return fallback
	}
	return v
}

func readFloat(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}
