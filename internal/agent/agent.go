// Package agent wires one collection session together: it connects the
// transport, announces the device profile and streams sensor samples until
// the collector stops.
package agent

import (
	"context"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/sensoragent/internal/collector"
	"codeberg.org/mutker/sensoragent/internal/config"
	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/identity"
	"codeberg.org/mutker/sensoragent/internal/logger"
	"codeberg.org/mutker/sensoragent/internal/metrics"
	"codeberg.org/mutker/sensoragent/internal/perfbench"
	"codeberg.org/mutker/sensoragent/internal/sensor"
	"codeberg.org/mutker/sensoragent/internal/telemetry"
	"codeberg.org/mutker/sensoragent/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// DefaultOpenWait bounds how long the profile waits for the handshake.
	DefaultOpenWait = 2 * time.Second

	journalTimeout = 5 * time.Second

	// SessionHeader carries the session id on the handshake.
	SessionHeader = "X-Sensoragent-Session"
)

// Options replace the collaborators Run would otherwise build from the
// configuration. The zero value uses the real host.
type Options struct {
	Registry   sensor.Registry
	Host       identity.Host
	BenchClock perfbench.Clock
	// Prometheus registry for agent metrics, a private one when nil.
	Metrics *prometheus.Registry
	// OpenWait is how long to wait for the connection before sending the
	// profile. Zero sends immediately, dropping it if the handshake is
	// still in flight.
	OpenWait time.Duration
}

// Agent runs a single session. It is not reusable.
type Agent struct {
	cfg  *config.Config
	opts Options
	log  logger.Logger
}

// Result describes a finished session.
type Result struct {
	SessionID string
	DeviceID  string
	Summary   collector.Summary
}

func New(cfg *config.Config, opts Options) *Agent {
	return &Agent{
		cfg:  cfg,
		opts: opts,
		log:  logger.Component("agent"),
	}
}

// Run blocks until the collector stops on its own or ctx is canceled. A
// canceled ctx is a normal shutdown, not an error.
func (a *Agent) Run(ctx context.Context) (*Result, error) {
	errFactory := errors.New()
	sessionID := telemetry.NewSessionID()
	log := a.log.With("session", sessionID)

	registry, err := a.registry()
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	if closer, ok := registry.(interface{ Close() }); ok && a.opts.Registry == nil {
		defer closer.Close()
	}

	host, err := a.host()
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrBuildIdentity, err)
	}

	promReg := a.opts.Metrics
	if promReg == nil {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	recorder := metrics.New(promReg)

	if a.cfg.MetricsListen != "" {
		srv, err := metrics.Serve(a.cfg.MetricsListen, promReg)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to stop metrics server")
			}
		}()
	}

	journal, err := telemetry.NewJournal(telemetry.Config{
		DBPath:  a.cfg.JournalDB,
		Enabled: a.cfg.Journal,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session journal")
		}
	}()

	settled := newSignal()
	client := transport.New(a.cfg.Endpoint,
		transport.WithRecorder(recorder),
		transport.WithHeader(http.Header{SessionHeader: []string{sessionID}}),
		transport.WithObserver(transport.Observer{
			OnOpen:  settled.fire,
			OnError: func(error) { settled.fire() },
			OnClose: func(int, string, bool) { settled.fire() },
		}),
	)

	if err := client.Connect(ctx); err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	// The benchmark runs while the handshake is in flight
	id, err := identity.Build(host, registry, identity.Options{BenchClock: a.opts.BenchClock})
	if err != nil {
		client.Close()
		return nil, errFactory.Wrap(errors.ErrBuildIdentity, err)
	}

	a.waitOpen(ctx, settled)
	a.sendProfile(client, id)

	col := collector.New(id.ID, registry, client, collector.Options{
		Timeout:  a.cfg.SessionTimeout,
		Recorder: recorder,
	})
	if err := col.Start(); err != nil {
		return nil, errFactory.Wrap(errors.ErrStartSession, err)
	}

	select {
	case <-col.Done():
	case <-ctx.Done():
		log.Info().Msg("Shutdown requested, stopping collection")
		col.Stop()
	}

	summary, _ := col.Summary()
	recorder.SessionFinished(summary.Reason, summary.Stopped.Sub(summary.Started))
	a.journal(journal, sessionID, id.ID, summary)

	log.Info().
		Str("reason", summary.Reason).
		Dur("duration", summary.Stopped.Sub(summary.Started)).
		Msg("Session finished")

	return &Result{SessionID: sessionID, DeviceID: id.ID, Summary: summary}, nil
}

func (a *Agent) registry() (sensor.Registry, error) {
	if a.opts.Registry != nil {
		return a.opts.Registry, nil
	}

	switch a.cfg.SensorSource {
	case config.SensorSourceIIO:
		return sensor.NewIIORegistry(a.cfg.IIORoot)
	default:
		return sensor.NewSimulator(sensor.DefaultTypes...), nil
	}
}

func (a *Agent) host() (identity.Host, error) {
	if a.opts.Host != nil {
		return a.opts.Host, nil
	}
	return identity.NewLinuxHost(a.cfg.Device)
}

func (a *Agent) waitOpen(ctx context.Context, settled *signal) {
	if a.opts.OpenWait <= 0 {
		return
	}

	timer := time.NewTimer(a.opts.OpenWait)
	defer timer.Stop()

	select {
	case <-settled.done:
	case <-timer.C:
		a.log.Warn().Dur("wait", a.opts.OpenWait).Msg("Connection not open yet, profile may be dropped")
	case <-ctx.Done():
	}
}

// sendProfile sends the identity once. A closed transport drops it.
func (a *Agent) sendProfile(client *transport.Client, id *identity.Identity) {
	msg, err := id.MarshalProfile()
	if err != nil {
		a.log.ErrorWithCode(errors.New().Wrap(errors.ErrBuildIdentity, err)).Msg("Failed to encode profile")
		return
	}
	if err := client.Send(msg); err == nil {
		a.log.Info().Int("bytes", len(msg)).Msg("Profile sent")
	}
}

func (a *Agent) journal(j telemetry.Journal, sessionID, deviceID string, s collector.Summary) {
	session := &telemetry.SessionSummary{
		ID:       sessionID,
		DeviceID: deviceID,
		Endpoint: a.cfg.Endpoint,
		Started:  s.Started,
		Stopped:  s.Stopped,
		Reason:   s.Reason,
	}
	for _, t := range s.Types {
		session.Sensors = append(session.Sensors, telemetry.SensorCount{
			Type:     int(t),
			Raw:      s.Raw[t],
			Accepted: s.Accepted[t],
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := j.RecordSession(ctx, session); err != nil {
		a.log.Warn().Err(err).Msg("Failed to record session")
	}
}

// signal is closed by the first fire call.
type signal struct {
	once sync.Once
	done chan struct{}
}

func newSignal() *signal {
	return &signal{done: make(chan struct{})}
}

func (s *signal) fire() {
	s.once.Do(func() { close(s.done) })
}
