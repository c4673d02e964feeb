// Package store provides the ordered in-memory keyspace for FlashKV: typed
// values, per-key expiration and hand-off of large values to a reclaimer.
//
// None of the types in this package lock. The engine serialises writers and
// only lets readers in concurrently through the read-side methods
// (Lookup, Ascend, Scan) which never change the tree.
package store

import (
	"sync"
	"time"

	"github.com/google/btree"
)

const treeDegree = 32

// Entry represents a value with optional expiration.
type Entry struct {
	Value     Value
	ExpireAt  time.Time
	HasExpire bool
}

// Expired reports whether the entry is logically gone at now.
func (e *Entry) Expired(now time.Time) bool {
	return e.HasExpire && !now.Before(e.ExpireAt)
}

type item struct {
	key   string
	entry *Entry
}

func lessItem(a, b *item) bool { return a.key < b.key }

// Releaser takes ownership of values that were unlinked from the keyspace.
type Releaser interface {
	Release(key string, v Value) bool
}

// TTLState classifies a key for TTL/PTTL.
type TTLState int

const (
	TTLMissing TTLState = iota
	TTLPersistent
	TTLVolatile
)

// Keyspace is the ordered mapping from key to Entry.
type Keyspace struct {
	tree     *btree.BTreeG[*item]
	expires  map[string]struct{}
	releaser Releaser

	// stale collects expired keys noticed by readers; writers drain it.
	staleMu sync.Mutex
	stale   map[string]struct{}
}

// Option configures a Keyspace.
type Option func(*Keyspace)

// WithReleaser routes every unlinked value through r.
func WithReleaser(r Releaser) Option {
	return func(ks *Keyspace) { ks.releaser = r }
}

// New creates an empty Keyspace.
func New(opts ...Option) *Keyspace {
	ks := &Keyspace{
		tree:    btree.NewG[*item](treeDegree, lessItem),
		expires: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(ks)
	}
	return ks
}

func (ks *Keyspace) get(key string) (*Entry, bool) {
	it, ok := ks.tree.Get(&item{key: key})
	if !ok {
		return nil, false
	}
	return it.entry, true
}

// Lookup returns the live entry for key. An expired entry is reported absent
// and remembered so the next write-side pass removes it.
func (ks *Keyspace) Lookup(key string, now time.Time) (*Entry, bool) {
	e, ok := ks.get(key)
	if !ok {
		return nil, false
	}
	if e.Expired(now) {
		ks.markStale(key)
		return nil, false
	}
	return e, true
}

// LookupWrite is Lookup for callers holding exclusive access: an expired
// entry is removed before absence is reported.
func (ks *Keyspace) LookupWrite(key string, now time.Time) (*Entry, bool) {
	e, ok := ks.get(key)
	if !ok {
		return nil, false
	}
	if e.Expired(now) {
		ks.unlink(key)
		return nil, false
	}
	return e, true
}

// Contains reports whether key holds a live entry.
func (ks *Keyspace) Contains(key string, now time.Time) bool {
	_, ok := ks.Lookup(key, now)
	return ok
}

// Put stores e under key, replacing and releasing any previous value.
func (ks *Keyspace) Put(key string, e *Entry) {
	old, replaced := ks.tree.ReplaceOrInsert(&item{key: key, entry: e})
	if e.HasExpire {
		ks.expires[key] = struct{}{}
	} else {
		delete(ks.expires, key)
	}
	if replaced {
		ks.release(key, old.entry.Value)
	}
}

// Remove unlinks key. It reports whether an entry (live or not) was present.
func (ks *Keyspace) Remove(key string) bool {
	return ks.unlink(key)
}

func (ks *Keyspace) unlink(key string) bool {
	it, ok := ks.tree.Delete(&item{key: key})
	if !ok {
		return false
	}
	delete(ks.expires, key)
	ks.release(key, it.entry.Value)
	return true
}

func (ks *Keyspace) release(key string, v Value) {
	if ks.releaser != nil {
		ks.releaser.Release(key, v)
	}
}

// SetExpire sets an absolute expiry on an existing key.
func (ks *Keyspace) SetExpire(key string, at time.Time) bool {
	e, ok := ks.get(key)
	if !ok {
		return false
	}
	e.ExpireAt = at
	e.HasExpire = true
	ks.expires[key] = struct{}{}
	return true
}

// Persist removes the expiry of key and reports whether one was present.
func (ks *Keyspace) Persist(key string) bool {
	e, ok := ks.get(key)
	if !ok || !e.HasExpire {
		return false
	}
	e.HasExpire = false
	e.ExpireAt = time.Time{}
	delete(ks.expires, key)
	return true
}

// TTL returns the remaining lifetime of key.
func (ks *Keyspace) TTL(key string, now time.Time) (time.Duration, TTLState) {
	e, ok := ks.Lookup(key, now)
	if !ok {
		return 0, TTLMissing
	}
	if !e.HasExpire {
		return 0, TTLPersistent
	}
	return e.ExpireAt.Sub(now), TTLVolatile
}

// Len returns the number of stored keys, including expired keys that have
// not been removed yet.
func (ks *Keyspace) Len() int {
	return ks.tree.Len()
}

// LiveLen returns the number of keys not yet expired at now. Only volatile
// keys are inspected.
func (ks *Keyspace) LiveLen(now time.Time) int {
	n := ks.tree.Len()
	for key := range ks.expires {
		if e, ok := ks.get(key); ok && e.Expired(now) {
			n--
		}
	}
	return n
}

// Volatile returns the number of keys carrying an expiry.
func (ks *Keyspace) Volatile() int {
	return len(ks.expires)
}

// Flush removes every key.
func (ks *Keyspace) Flush() {
	old := ks.tree
	ks.tree = btree.NewG[*item](treeDegree, lessItem)
	ks.expires = make(map[string]struct{})
	old.Ascend(func(it *item) bool {
		ks.release(it.key, it.entry.Value)
		return true
	})
}

// Ascend visits entries in key order starting strictly after after ("" means
// from the first key) until fn returns false. Expired entries are visited
// too; callers decide how to treat them.
func (ks *Keyspace) Ascend(after string, fn func(key string, e *Entry) bool) {
	if after == "" {
		ks.tree.Ascend(func(it *item) bool {
			return fn(it.key, it.entry)
		})
		return
	}
	ks.tree.AscendGreaterOrEqual(&item{key: after}, func(it *item) bool {
		if it.key == after {
			return true
		}
		return fn(it.key, it.entry)
	})
}

func (ks *Keyspace) markStale(key string) {
	ks.staleMu.Lock()
	if ks.stale == nil {
		ks.stale = make(map[string]struct{})
	}
	ks.stale[key] = struct{}{}
	ks.staleMu.Unlock()
}

// StaleCount returns the number of distinct keys waiting for DrainStale.
func (ks *Keyspace) StaleCount() int {
	ks.staleMu.Lock()
	defer ks.staleMu.Unlock()
	return len(ks.stale)
}

// DrainStale removes keys that readers found expired. It must run with
// exclusive access.
func (ks *Keyspace) DrainStale(now time.Time) int {
	ks.staleMu.Lock()
	keys := ks.stale
	ks.stale = nil
	ks.staleMu.Unlock()

	removed := 0
	for key := range keys {
		if e, ok := ks.get(key); ok && e.Expired(now) {
			ks.unlink(key)
			removed++
		}
	}
	return removed
}

// ExpireCycle removes expired keys Redis-style: sample up to sampleSize keys
// from the expiry index, delete the expired ones, and repeat while more than
// a quarter of the sample was expired, for at most maxRounds rounds.
// It must run with exclusive access.
func (ks *Keyspace) ExpireCycle(now time.Time, sampleSize, maxRounds int) int {
	const expiredRatio = 0.25

	total := ks.DrainStale(now)
	for round := 0; round < maxRounds; round++ {
		if len(ks.expires) == 0 {
			break
		}

		sampled, expired := 0, 0
		// Map iteration order is randomised, which is the sample.
		for key := range ks.expires {
			if sampled >= sampleSize {
				break
			}
			sampled++
			if e, ok := ks.get(key); !ok || e.Expired(now) {
				ks.unlink(key)
				delete(ks.expires, key)
				expired++
			}
		}
		total += expired

		if sampled == 0 || float64(expired)/float64(sampled) < expiredRatio {
			break
		}
	}
	return total
}
