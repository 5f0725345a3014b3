package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"residence-backend/config"
	"residence-backend/internal/allocation"
)

// Engine is the part of the allocation engine the reconciler drives.
type Engine interface {
	Refresh(ctx context.Context) error
	Reconcile(ctx context.Context) (allocation.ReconcileReport, error)
	Status() allocation.Status
}

// Service periodically repairs drift between rooms, beds and guests and retries failed snapshot loads.
type Service struct {
	cfg    *config.AllocationConfig
	engine Engine
	log    *zap.Logger
}

// NewService creates a reconciler for engine.
func NewService(cfg *config.AllocationConfig, engine Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, engine: engine, log: log.Named("reconciler")}
}

// Run executes ReconcileOnce immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.ReconcileEnabled {
		s.log.Info("reconciler is disabled; not starting")
		return
	}
	s.log.Info("starting reconciler", zap.Duration("interval", s.cfg.ReconcileInterval))

	s.ReconcileOnce(ctx)

	timer := time.NewTimer(s.cfg.ReconcileInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconciler shutting down")
			return
		case <-timer.C:
			s.ReconcileOnce(ctx)
			timer.Reset(s.cfg.ReconcileInterval)
		}
	}
}

// ReconcileOnce reloads a snapshot whose last refresh failed, then runs one reconcile pass.
func (s *Service) ReconcileOnce(ctx context.Context) {
	if st := s.engine.Status(); st.Error != "" {
		s.log.Info("retrying failed snapshot load", zap.String("last_error", st.Error))
		if err := s.engine.Refresh(ctx); err != nil {
			s.log.Warn("snapshot load still failing; skipping reconcile", zap.Error(err))
			return
		}
	}

	report, err := s.engine.Reconcile(ctx)
	if err != nil {
		s.log.Error("reconcile pass failed", zap.Error(err))
		return
	}
	for _, msg := range report.Unresolved {
		s.log.Warn("reconcile left drift in place", zap.String("detail", msg))
	}
	if report.Changes() == 0 {
		s.log.Debug("reconcile pass found no drift")
		return
	}
	s.log.Info("reconcile pass repaired drift",
		zap.Int("beds_created", report.BedsCreated),
		zap.Int("beds_removed", report.BedsRemoved),
		zap.Int("occupants_cleared", report.OccupantsCleared),
		zap.Int("guests_repaired", report.GuestsRepaired))
}
