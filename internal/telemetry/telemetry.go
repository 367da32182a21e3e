// Package telemetry keeps an optional on-disk journal of finished
// collection sessions.
package telemetry

import (
	"context"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
	"github.com/google/uuid"
)

type service struct {
	repo Repository
	log  logger.Logger
}

// No-op implementation
type noopJournal struct{}

func NewJournal(cfg Config) (Journal, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Session journal disabled, using no-op journal")
		return &noopJournal{}, nil
	}

	log := logger.Component("journal")
	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &service{repo: repo, log: log}, nil
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

func (s *service) RecordSession(ctx context.Context, session *SessionSummary) error {
	errFactory := errors.New()

	if session == nil || session.DeviceID == "" {
		return errFactory.New(ErrInvalidSession)
	}
	if session.ID == "" {
		session.ID = NewSessionID()
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	if err := s.repo.Store(ctx, session); err != nil {
		return errFactory.Wrap(ErrRecordSession, err)
	}

	s.log.Info().
		Str("session", session.ID).
		Str("reason", session.Reason).
		Msg("Session recorded")
	return nil
}

func (s *service) Close() error {
	return s.repo.Close()
}

func (*noopJournal) RecordSession(context.Context, *SessionSummary) error {
	return nil
}

func (*noopJournal) Close() error {
	return nil
}
