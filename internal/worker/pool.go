package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("worker pool stopped")

// Job is a unit of work, usually one store interaction started by the shell.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool runs submitted jobs on a fixed set of goroutines so the caller's loop
// never waits on the network.
type Pool struct {
	logger *zap.Logger
	count  int
	jobs   chan Job
	quit   chan struct{}

	wg       sync.WaitGroup // workers
	inflight sync.WaitGroup // submitted, not yet finished jobs
	pending  atomic.Int64

	mu       sync.RWMutex
	started  bool
	stopped  bool
	quitOnce sync.Once
}

func NewPool(logger *zap.Logger, count int) *Pool {
	if count < 1 {
		count = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		logger: logger.Named("worker"),
		count:  count,
		jobs:   make(chan Job, count*16),
		quit:   make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.Debug("Starting worker pool", zap.Int("workers", p.count))
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Submit queues a job. It blocks while the queue is full, until Stop is
// called.
func (p *Pool) Submit(name string, run func(ctx context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	p.inflight.Add(1)
	p.pending.Add(1)
	select {
	case p.jobs <- Job{Name: name, Run: run}:
		return nil
	case <-p.quit:
		p.pending.Add(-1)
		p.inflight.Done()
		return ErrStopped
	}
}

// Pending reports jobs queued or running.
func (p *Pool) Pending() int {
	return int(p.pending.Load())
}

// Wait blocks until every job submitted so far has finished.
func (p *Pool) Wait() {
	p.inflight.Wait()
}

// Stop refuses new jobs, lets queued ones finish and waits for the workers.
func (p *Pool) Stop() {
	// отпускаем Submit, ждущие места в очереди, иначе Lock не получить
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	if !started {
		// Никто не вычитает очередь: сбрасываем её сами
		for range p.jobs {
			p.pending.Add(-1)
			p.inflight.Done()
		}
		return
	}

	p.logger.Debug("Stopping worker pool...")
	p.wg.Wait()
	p.logger.Debug("Worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(ctx, id, job)
	}
}

func (p *Pool) run(ctx context.Context, workerID int, job Job) {
	defer p.inflight.Done()
	defer p.pending.Add(-1)

	started := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return job.Run(ctx)
	}()

	if err != nil {
		p.logger.Warn("job failed",
			zap.Int("worker", workerID),
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(started)),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("job finished",
		zap.Int("worker", workerID),
		zap.String("job", job.Name),
		zap.Duration("took", time.Since(started)),
	)
}
