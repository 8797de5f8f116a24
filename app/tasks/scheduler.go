package tasks

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/classmind/classmind/app/cfg"
	appsync "github.com/classmind/classmind/app/sync"
)

var _ SchedulerInterface = (*Scheduler)(nil)
var _ RunnerInterface = (*appsync.Engine)(nil)
var _ MonitorInterface = (*appsync.Monitor)(nil)

// Scheduler runs reconciliation passes on a fixed interval and on demand.
// Passes never overlap: the ticker, manual triggers and the startup pass
// all funnel through one goroutine.
type Scheduler struct {
	engine   RunnerInterface
	monitor  MonitorInterface
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       stdsync.WaitGroup
	trigger  chan struct{}
}

func NewScheduler(engine RunnerInterface, monitor MonitorInterface) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	appCfg := cfg.Get()

	return &Scheduler{
		engine:   engine,
		monitor:  monitor,
		interval: time.Duration(appCfg.SyncInterval) * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("Scheduler started", "interval", s.interval)

		s.runPass()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runPass()
			case <-s.trigger:
				s.runPass()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

// TriggerSync requests an immediate pass. Returns false when a manual
// trigger is already pending.
func (s *Scheduler) TriggerSync() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) runPass() {
	_, err := s.engine.Run(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		if rerr := s.monitor.RecordFailure(s.ctx, err); rerr != nil {
			slog.Error("Failed to record pass failure", "error", rerr)
		}
		return
	}

	if rerr := s.monitor.RecordSuccess(s.ctx); rerr != nil {
		slog.Error("Failed to record pass success", "error", rerr)
	}
}
