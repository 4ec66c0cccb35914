package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"listing_pulse/config"
)

// Runner is the batch pipeline the scheduler drives.
type Runner interface {
	RunAnalysis(ctx context.Context) error
}

// Triggerable allows background workers to be triggered manually
type Triggerable interface {
	Trigger()
}

type Scheduler struct {
	cfg    *config.Config
	runner Runner
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}

	exportWorker Triggerable
}

func New(cfg *config.Config, runner Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

// SetWorkers registers background workers for post-run triggering
func (s *Scheduler) SetWorkers(export Triggerable) {
	s.exportWorker = export
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runOnce(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runOnce(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon idle until signaled")
	}

	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.runner.RunAnalysis(ctx); err != nil {
		log.Printf("Scheduled run error: %v", err)
		return
	}
	if s.exportWorker != nil {
		s.exportWorker.Trigger()
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.runner.RunAnalysis(ctx)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
