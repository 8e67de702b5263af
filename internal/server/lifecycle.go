// Package server provides run lifecycle management: jobs executed under
// signal handling with ordered cleanup.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one unit of work run by a Lifecycle. Run must return promptly once
// ctx is cancelled.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function into the Job interface.
type JobFunc func(ctx context.Context) error

// Run calls f.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Lifecycle runs named jobs and releases registered resources afterwards.
// Jobs start in the order they are added; closers run in reverse order.
type Lifecycle struct {
	logger   *zap.Logger
	parallel int
	mu       sync.Mutex
	jobs     []namedJob
	closers  []namedCloser
	closed   bool
}

type namedJob struct {
	name string
	job  Job
}

type namedCloser struct {
	name  string
	close func()
}

// NewLifecycle creates a new Lifecycle running at most parallel jobs at
// once; parallel <= 0 runs them one at a time.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, parallel int) *Lifecycle {
	if parallel <= 0 {
		parallel = 1
	}
	return &Lifecycle{
		logger:   logger,
		parallel: parallel,
	}
}

// Add registers a named job.
//
// Precondition: name must be non-empty; job must be non-nil.
func (l *Lifecycle) Add(name string, job Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs = append(l.jobs, namedJob{name: name, job: job})
}

// OnShutdown registers fn to run after every job has finished.
func (l *Lifecycle) OnShutdown(name string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closers = append(l.closers, namedCloser{name: name, close: fn})
}

// Run executes every job and blocks until all have finished, one fails, or
// a termination signal (SIGINT or SIGTERM) arrives. The first failure
// cancels the jobs still running; jobs not yet started are skipped.
//
// Postcondition: Every closer has run when this method returns. Returns the
// first job error, or the context error if a signal or cancellation
// interrupted the run.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer l.Close()

	l.mu.Lock()
	jobs := append([]namedJob(nil), l.jobs...)
	l.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallel)
	for _, nj := range jobs {
		if gctx.Err() != nil {
			l.logger.Info("skipping job", zap.String("job", nj.name))
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			l.logger.Info("starting job", zap.String("job", nj.name))
			jobStart := time.Now()
			if err := nj.job.Run(gctx); err != nil {
				l.logger.Error("job failed",
					zap.String("job", nj.name),
					zap.Error(err),
					zap.Duration("elapsed", time.Since(jobStart)),
				)
				return fmt.Errorf("job %s: %w", nj.name, err)
			}
			l.logger.Info("job finished",
				zap.String("job", nj.name),
				zap.Duration("elapsed", time.Since(jobStart)),
			)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	l.logger.Info("all jobs finished",
		zap.Int("count", len(jobs)),
		zap.Duration("total", time.Since(start)),
		zap.Bool("interrupted", ctx.Err() != nil),
	)
	return err
}

// Close runs the registered closers in reverse order. Only the first call
// has any effect, so callers may defer Close to cover setup failures that
// happen before Run.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	closers := append([]namedCloser(nil), l.closers...)
	l.mu.Unlock()

	shutdownStart := time.Now()
	for i := len(closers) - 1; i >= 0; i-- {
		nc := closers[i]
		l.logger.Info("releasing resource", zap.String("resource", nc.name))
		nc.close()
	}
	l.logger.Info("all resources released",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
