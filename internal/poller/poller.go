package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one named refresh job.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 1m)
	Concurrency int           // Max tasks in flight (default: 4)
	Timeout     time.Duration // Per-task timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Poller periodically runs its tasks.
type Poller struct {
	cfg    Config
	tasks  []Task
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, tasks []Task, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		tasks:  tasks,
		logger: logger.With("component", "poller"),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"tasks", len(p.tasks),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.RunOnce(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(p.ctx)
		}
	}
}

// RunOnce runs every task once and returns the number that failed.
func (p *Poller) RunOnce(ctx context.Context) int {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Concurrency > 0 {
		g.SetLimit(p.cfg.Concurrency)
	}

	var failed atomic.Int64
	for _, task := range p.tasks {
		g.Go(func() error {
			if err := p.runTask(gctx, task); err != nil {
				// Other tasks keep running; a failure only counts.
				p.logger.Warn("poll task failed",
					"task", task.Name,
					"err", err,
				)
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	p.logger.Debug("poll cycle complete",
		"tasks", len(p.tasks),
		"errors", failed.Load(),
		"duration", time.Since(start),
	)

	return int(failed.Load())
}

// runTask runs a single task under the per-task timeout.
func (p *Poller) runTask(ctx context.Context, task Task) error {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	return task.Run(ctx)
}
