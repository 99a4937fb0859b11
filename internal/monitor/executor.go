package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"walletMonitor/internal/metrics"
)

const (
	DefaultWorkers     = 4
	DefaultQueueSize   = 256
	DefaultTaskTimeout = 2 * time.Minute
)

type ExecutorConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type task struct {
	name string
	fn   func(ctx context.Context)
}

// Executor runs post-insert work on a fixed worker pool. Submit never
// blocks: when the queue is full the task is dropped.
type Executor struct {
	tasks   chan task
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewExecutor(cfg ExecutorConfig, logger *zap.Logger, m *metrics.Metrics) *Executor {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		tasks:   make(chan task, cfg.QueueSize),
		timeout: cfg.TaskTimeout,
		logger:  logger,
		metrics: m,
	}
	e.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go e.worker()
	}
	return e
}

// Submit queues fn and reports whether it was accepted.
func (e *Executor) Submit(name string, fn func(ctx context.Context)) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.logger.Warn("executor closed, task dropped", zap.String("task", name))
		e.metrics.TaskDropped()
		return false
	}
	select {
	case e.tasks <- task{name: name, fn: fn}:
		return true
	default:
		e.logger.Warn("executor full, task dropped", zap.String("task", name))
		e.metrics.TaskDropped()
		return false
	}
}

// Pending returns the number of queued tasks.
func (e *Executor) Pending() int {
	return len(e.tasks)
}

// Close stops intake and waits for queued and running tasks.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for t := range e.tasks {
		e.run(t)
	}
}

func (e *Executor) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panic", zap.String("task", t.name), zap.Error(fmt.Errorf("%v", r)))
		}
		e.metrics.ObserveTask(time.Since(start).Seconds())
	}()
	t.fn(ctx)
}
