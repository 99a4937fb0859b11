package reqqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by futures that were still queued at shutdown.
var ErrClosed = errors.New("request queue closed")

const (
	defaultInterval  = time.Second
	defaultBatchSize = 5
	defaultTTL       = 30 * time.Second
)

// Producer computes the value for a key.
type Producer[V any] func(ctx context.Context) (V, error)

// Config controls drain pacing and caching.
type Config struct {
	Interval  time.Duration
	BatchSize int
	TTL       time.Duration
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending int
	Queued  int
	Cached  int
}

type entry[V any] struct {
	key        string
	producer   Producer[V]
	future     *Future[V]
	enqueuedAt time.Time
}

// Queue runs at most one producer per key, caches results for a short TTL
// and executes queued producers in bounded batches.
//
// A key is either cached, pending or absent. Pending entries stay in the
// pending map until their producer returns, so callers arriving during
// execution share the same future. mu guards the pending map and the cache
// together; the cache never refreshes TTL on reads.
type Queue[V any] struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*entry[V]
	order   []*entry[V]
	cache   *ttlcache.Cache[string, V]
	closed  bool
}

// New builds a Queue. Zero config values fall back to 1s / 5 / 30s.
func New[V any](cfg Config, logger *zap.Logger) *Queue[V] {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := ttlcache.New[string, V](
		ttlcache.WithTTL[string, V](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
	return &Queue[V]{
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]*entry[V]),
		cache:   cache,
	}
}

// AddRequest returns a future for key. A fresh cached value resolves it
// immediately, a pending key returns the existing future, otherwise the
// producer is queued for the next drain cycle.
func (q *Queue[V]) AddRequest(key string, producer Producer[V]) *Future[V] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return rejected[V](ErrClosed)
	}

	if item := q.cache.Get(key); item != nil {
		return resolved(item.Value())
	}

	if e, ok := q.pending[key]; ok {
		return e.future
	}

	e := &entry[V]{
		key:        key,
		producer:   producer,
		future:     newFuture[V](),
		enqueuedAt: time.Now(),
	}
	q.pending[key] = e
	q.order = append(q.order, e)
	return e.future
}

// Drain executes up to BatchSize queued producers and waits for them.
// It returns the number of producers executed.
func (q *Queue[V]) Drain(ctx context.Context) int {
	q.mu.Lock()
	n := len(q.order)
	if n > q.cfg.BatchSize {
		n = q.cfg.BatchSize
	}
	batch := make([]*entry[V], n)
	copy(batch, q.order[:n])
	q.order = append(q.order[:0:0], q.order[n:]...)
	q.mu.Unlock()

	if n == 0 {
		return 0
	}

	var g errgroup.Group
	for _, e := range batch {
		e := e
		g.Go(func() error {
			q.execute(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return n
}

func (q *Queue[V]) execute(ctx context.Context, e *entry[V]) {
	value, err := q.call(ctx, e)

	q.mu.Lock()
	if err == nil {
		q.cache.Set(e.key, value, ttlcache.DefaultTTL)
	}
	delete(q.pending, e.key)
	q.mu.Unlock()

	if err != nil {
		q.logger.Debug("request failed", zap.String("key", e.key), zap.Error(err))
	}
	e.future.resolve(value, err)
}

func (q *Queue[V]) call(ctx context.Context, e *entry[V]) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic for %s: %v", e.key, r)
		}
	}()
	return e.producer(ctx)
}

// Sweep removes expired cache entries and returns how many were removed.
func (q *Queue[V]) Sweep() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	before := q.cache.Len()
	q.cache.DeleteExpired()
	return before - q.cache.Len()
}

// Run drains the queue every Interval until ctx is done, then closes it.
func (q *Queue[V]) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rejectedCount := q.Close()
			q.logger.Info("request queue stopped", zap.Int("rejected", rejectedCount))
			return ctx.Err()
		case <-ticker.C:
			if n := q.Drain(ctx); n > 0 {
				q.logger.Debug("drain cycle", zap.Int("executed", n))
			}
			q.Sweep()
		}
	}
}

// Close rejects every queued future with ErrClosed and refuses new
// requests. It returns the number of rejected entries.
func (q *Queue[V]) Close() int {
	q.mu.Lock()
	q.closed = true
	queued := q.order
	q.order = nil
	for _, e := range queued {
		delete(q.pending, e.key)
	}
	q.mu.Unlock()

	var zero V
	for _, e := range queued {
		e.future.resolve(zero, ErrClosed)
	}
	return len(queued)
}

// Stats returns current queue sizes.
func (q *Queue[V]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending: len(q.pending),
		Queued:  len(q.order),
		Cached:  q.cache.Len(),
	}
}
