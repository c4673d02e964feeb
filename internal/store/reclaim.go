package store

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Thresholds holds, per container type, the element count above which an
// unlinked value is released on a background worker instead of inline.
type Thresholds struct {
	List int
	Hash int
	Set  int
	ZSet int
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{List: 64, Hash: 64, Set: 64, ZSet: 64}
}

func (t Thresholds) limit(k Kind) (int, bool) {
	switch k {
	case KindList:
		return t.List, true
	case KindHash:
		return t.Hash, true
	case KindSet:
		return t.Set, true
	case KindZSet:
		return t.ZSet, true
	default:
		return 0, false
	}
}

// ReclaimStats reports reclaimer activity.
type ReclaimStats struct {
	Queued   int64 // values handed to a worker
	Released int64 // values a worker finished releasing
	Inline   int64 // values at or below threshold, left to the collector
	Overflow int64 // values that found their worker queue full
}

// Pending returns the number of handed-off values not yet released.
func (s ReclaimStats) Pending() int64 { return s.Queued - s.Released }

type reclaimJob struct {
	key   string
	value Value
}

// Reclaimer releases large unlinked values off the command path. Each key
// hashes to one worker, so values unlinked under the same key are released
// in unlink order.
type Reclaimer struct {
	thresholds Thresholds
	workers    []chan reclaimJob
	logger     *slog.Logger

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool
	wg     sync.WaitGroup

	queued   atomic.Int64
	released atomic.Int64
	inline   atomic.Int64
	overflow atomic.Int64
}

// NewReclaimer starts workers goroutines, each with a queue of queueSize.
func NewReclaimer(t Thresholds, workers, queueSize int, logger *slog.Logger) *Reclaimer {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reclaimer{
		thresholds: t,
		workers:    make([]chan reclaimJob, workers),
		logger:     logger,
	}
	for i := range r.workers {
		ch := make(chan reclaimJob, queueSize)
		r.workers[i] = ch
		r.wg.Add(1)
		go r.run(ch)
	}
	return r
}

func (r *Reclaimer) run(jobs <-chan reclaimJob) {
	defer r.wg.Done()
	for job := range jobs {
		job.value.release()
		r.released.Add(1)
	}
}

// Release takes ownership of v, which must already be unreachable from the
// keyspace. It reports whether the value was handed to a background worker.
func (r *Reclaimer) Release(key string, v Value) bool {
	limit, container := r.thresholds.limit(v.Kind())
	if !container || v.Elements() <= limit {
		r.inline.Add(1)
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		v.release()
		r.inline.Add(1)
		return false
	}

	idx := xxhash.Sum64String(key) % uint64(len(r.workers))
	select {
	case r.workers[idx] <- reclaimJob{key: key, value: v}:
		r.queued.Add(1)
		return true
	default:
		r.overflow.Add(1)
		r.logger.Warn("reclaim queue full, leaving value to the collector",
			slog.String("key", key), slog.Int("elements", v.Elements()))
		return false
	}
}

// Stats returns a snapshot of the counters.
func (r *Reclaimer) Stats() ReclaimStats {
	return ReclaimStats{
		Queued:   r.queued.Load(),
		Released: r.released.Load(),
		Inline:   r.inline.Load(),
		Overflow: r.overflow.Load(),
	}
}

// Close stops accepting work and waits until every queued value has been
// released.
func (r *Reclaimer) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, ch := range r.workers {
		close(ch)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
