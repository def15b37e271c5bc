// Package scheduler drives the sync engine in the background: periodic
// resync while online, periodic reconnect attempts while offline.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	syncpkg "github.com/kimhsiao/feedbacksync/internal/sync"
)

// Scheduler manages background sync operations.
type Scheduler struct {
	engine           syncpkg.EngineInterface
	resyncInterval   time.Duration
	probeInterval    time.Duration
	stopCh           chan struct{}
	triggerCh        chan struct{}
	wg               sync.WaitGroup
	mu               sync.RWMutex
	isRunning        bool
	stopped          bool
	lastResyncTime   time.Time
	resyncInProgress bool
	probeInProgress  bool
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	ResyncInterval time.Duration // How often to resync while online (default: 30 seconds)
	ProbeInterval  time.Duration // How often to try reconnecting while offline (default: 15 seconds)
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		ResyncInterval: 30 * time.Second,
		ProbeInterval:  15 * time.Second,
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(engine syncpkg.EngineInterface, config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	def := DefaultSchedulerConfig()
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = def.ResyncInterval
	}
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = def.ProbeInterval
	}

	return &Scheduler{
		engine:         engine,
		resyncInterval: config.ResyncInterval,
		probeInterval:  config.ProbeInterval,
		stopCh:         make(chan struct{}),
		triggerCh:      make(chan struct{}, 1),
	}
}

// Start starts the background loops. A stopped scheduler cannot be
// restarted.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning || s.stopped {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(2)

	// Resync loop, also serving triggered resyncs
	go s.periodicResyncLoop(ctx)

	// Reconnect loop
	go s.reconnectLoop(ctx)

	logging.Info("Background sync scheduler started", map[string]interface{}{
		"resync_interval": s.resyncInterval.String(),
		"probe_interval":  s.probeInterval.String(),
	})
}

// Stop stops the background loops and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.stopped = true
	s.mu.Unlock()

	// Signal stop to all goroutines
	close(s.stopCh)

	// Wait for goroutines to finish
	s.wg.Wait()

	logging.Info("Background sync scheduler stopped", nil)
}

// periodicResyncLoop resyncs on every tick and on every trigger while the
// engine is online. Resyncs run inline so at most one is in flight.
func (s *Scheduler) periodicResyncLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runResync(ctx, "periodic")
		case <-s.triggerCh:
			s.runResync(ctx, "triggered")
		}
	}
}

// reconnectLoop attempts to reconnect while the engine is offline.
func (s *Scheduler) reconnectLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.engine.IsOnline() {
				continue
			}
			s.runReconnect(ctx)
		}
	}
}

// runResync executes one resync if the engine is online.
func (s *Scheduler) runResync(ctx context.Context, reason string) {
	// Resyncs stop while offline; the reconnect loop brings them back
	if !s.engine.IsOnline() {
		logging.Debug("Skipping resync - engine is offline", nil)
		return
	}

	s.mu.Lock()
	s.resyncInProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.resyncInProgress = false
		s.mu.Unlock()
	}()

	changed, err := s.engine.Resync(ctx)
	if err != nil {
		logging.ErrorWithCode("Resync failed", string(errors.ErrSyncFailed), err,
			map[string]interface{}{"reason": reason})
		return
	}

	s.mu.Lock()
	s.lastResyncTime = time.Now()
	s.mu.Unlock()

	if changed {
		logging.Info("Resync adopted remote changes", map[string]interface{}{"reason": reason})
	} else {
		logging.Debug("Resync found no changes", map[string]interface{}{"reason": reason})
	}
}

// runReconnect executes one reconnect attempt.
func (s *Scheduler) runReconnect(ctx context.Context) {
	s.mu.Lock()
	s.probeInProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.probeInProgress = false
		s.mu.Unlock()
	}()

	if err := s.engine.Reconnect(ctx); err != nil {
		logging.Debug("Reconnect attempt failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.lastResyncTime = time.Now()
	s.mu.Unlock()

	logging.Info("Reconnected to remote", nil)
}

// TriggerResync requests an immediate resync, typically because the change
// feed reported a remote write. Returns false if one is already pending.
func (s *Scheduler) TriggerResync() bool {
	select {
	case s.triggerCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// SchedulerStatus is the current status of the scheduler.
type SchedulerStatus struct {
	IsRunning        bool
	ResyncInterval   time.Duration
	ProbeInterval    time.Duration
	LastResyncTime   *time.Time
	ResyncInProgress bool
	ProbeInProgress  bool
	Engine           syncpkg.Status
}

// GetStatus returns the current status of the scheduler.
func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	status := SchedulerStatus{
		IsRunning:        s.isRunning,
		ResyncInterval:   s.resyncInterval,
		ProbeInterval:    s.probeInterval,
		ResyncInProgress: s.resyncInProgress,
		ProbeInProgress:  s.probeInProgress,
	}
	if !s.lastResyncTime.IsZero() {
		t := s.lastResyncTime
		status.LastResyncTime = &t
	}
	s.mu.RUnlock()

	status.Engine = s.engine.Status()
	return status
}

// SyncNow resyncs when online or reconnects when offline, and waits for the
// result. Both paths push ready outbox entries first.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	if !s.engine.IsOnline() {
		if err := s.engine.Reconnect(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.lastResyncTime = time.Now()
		s.mu.Unlock()
		logging.Info("Manual sync reconnected", nil)
		return nil
	}

	changed, err := s.engine.Resync(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastResyncTime = time.Now()
	s.mu.Unlock()

	logging.Info("Manual sync completed", map[string]interface{}{"changed": changed})
	return nil
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
