// Package engine executes commands against the keyspace. Every command goes
// through one dispatch path: arity and option validation, locking, the type
// handler, then statistics. Connections, transactions and scripts all enter
// through it.
package engine

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flashdb/flashkv/internal/cmdstats"
	"github.com/flashdb/flashkv/internal/store"
)

// Options tunes the background machinery of an Engine.
type Options struct {
	// ExpireHz is the number of active expire cycles per second. Zero
	// disables the background sweep; lazy expiration still applies.
	ExpireHz         int
	ExpireSampleSize int
	ExpireMaxRounds  int

	ReclaimEnabled bool
	ReclaimWorkers int
	ReclaimQueue   int
	Thresholds     store.Thresholds
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		ExpireHz:         10,
		ExpireSampleSize: 20,
		ExpireMaxRounds:  4,
		ReclaimEnabled:   true,
		ReclaimWorkers:   4,
		ReclaimQueue:     1024,
		Thresholds:       store.DefaultThresholds(),
	}
}

// Stats holds engine statistics.
type Stats struct {
	StartTime     time.Time
	TotalCommands int64
	ExpiredKeys   int64
	Keys          int
	Volatile      int
	Reclaim       store.ReclaimStats
}

// Engine owns the keyspace and serialises access to it.
// It is safe for concurrent use by multiple goroutines.
type Engine struct {
	mu        sync.RWMutex
	db        *store.Keyspace
	reclaimer *store.Reclaimer
	commands  map[string]*Command

	opts   Options
	logger *slog.Logger
	now    func() time.Time
	stats  *cmdstats.Tracker

	startTime     time.Time
	totalCommands atomic.Int64
	expiredKeys   atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithOptions replaces the default Options.
func WithOptions(o Options) Option {
	return func(e *Engine) { e.opts = o }
}

// WithClock overrides the time source used for expiration.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStats records per-command statistics into t.
func WithStats(t *cmdstats.Tracker) Option {
	return func(e *Engine) { e.stats = t }
}

// New creates an Engine and starts its background expire cycle.
func New(opts ...Option) *Engine {
	e := &Engine{
		commands:  make(map[string]*Command),
		opts:      DefaultOptions(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		startTime: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stats == nil {
		e.stats = cmdstats.New(0)
	}

	var ksOpts []store.Option
	if e.opts.ReclaimEnabled {
		e.reclaimer = store.NewReclaimer(e.opts.Thresholds, e.opts.ReclaimWorkers, e.opts.ReclaimQueue, e.logger)
		ksOpts = append(ksOpts, store.WithReleaser(e.reclaimer))
	}
	e.db = store.New(ksOpts...)

	registerBuiltins(e)

	if e.opts.ExpireHz > 0 {
		go e.expireLoop(time.Second / time.Duration(e.opts.ExpireHz))
	} else {
		close(e.done)
	}
	return e
}

// Close stops the expire cycle and waits for pending reclamation.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.stop)
		<-e.done
		if e.reclaimer != nil {
			e.reclaimer.Close()
		}
	})
	return nil
}

func (e *Engine) expireLoop(interval time.Duration) {
	defer close(e.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			n := e.db.ExpireCycle(e.now(), e.opts.ExpireSampleSize, e.opts.ExpireMaxRounds)
			e.mu.Unlock()
			if n > 0 {
				e.expiredKeys.Add(int64(n))
				e.logger.Debug("active expire", "removed", n)
			}
		}
	}
}

// Register adds cmd to the command table, replacing any command with the
// same name.
func (e *Engine) Register(cmd *Command) {
	e.commands[cmd.Name] = cmd
}

// Do runs a single command outside of any connection.
func (e *Engine) Do(name string, args ...[]byte) Reply {
	return e.Handle(nil, name, args)
}

// DoStrings is Do with string arguments.
func (e *Engine) DoStrings(name string, args ...string) Reply {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return e.Handle(nil, name, raw)
}

// Handle runs a command for a connection whose transaction state is tx.
// A nil tx behaves like a connection that never entered MULTI.
func (e *Engine) Handle(tx *Tx, name string, args [][]byte) Reply {
	cmd, ok := e.lookupCommand(name)
	if !ok {
		return ErrReply(ErrInvalidArgs)
	}
	if tx == nil {
		tx = &Tx{}
	}
	if cmd.Flags&FlagTx != 0 {
		return e.handleTx(tx, cmd, args)
	}
	if tx.queuing {
		return tx.enqueue(cmd, args)
	}
	return e.run(cmd, args)
}

// run takes the lock a single command needs and executes it.
func (e *Engine) run(cmd *Command, args [][]byte) Reply {
	if cmd.exclusive() {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.invoke(e.writeCtx(), cmd, args)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.invoke(&Ctx{e: e, db: e.db, now: e.now()}, cmd, args)
}

// writeCtx builds a context for exclusive access. Keys that readers found
// expired are removed first.
func (e *Engine) writeCtx() *Ctx {
	now := e.now()
	if n := e.db.DrainStale(now); n > 0 {
		e.expiredKeys.Add(int64(n))
	}
	return &Ctx{e: e, db: e.db, now: now, write: true}
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	keys, volatile := e.db.LiveLen(e.now()), e.db.Volatile()
	e.mu.RUnlock()

	st := Stats{
		StartTime:     e.startTime,
		TotalCommands: e.totalCommands.Load(),
		ExpiredKeys:   e.expiredKeys.Load(),
		Keys:          keys,
		Volatile:      volatile,
	}
	if e.reclaimer != nil {
		st.Reclaim = e.reclaimer.Stats()
	}
	return st
}

// CommandStats returns the per-command tracker.
func (e *Engine) CommandStats() *cmdstats.Tracker {
	return e.stats
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
