// Package cmdstats tracks per-command call counts, failures and cumulative
// latency, and reports the busiest commands.
package cmdstats

import (
	"container/heap"
	"sort"
	"sync"
	"time"
)

// Entry is the accumulated statistics of one command.
type Entry struct {
	Name   string `json:"name"`
	Calls  int64  `json:"calls"`
	Failed int64  `json:"failed_calls"`
	Usec   int64  `json:"usec"`
}

// UsecPerCall returns the mean latency in microseconds.
func (e Entry) UsecPerCall() float64 {
	if e.Calls == 0 {
		return 0
	}
	return float64(e.Usec) / float64(e.Calls)
}

type counters struct {
	calls  int64
	failed int64
	usec   int64
}

// Tracker accumulates statistics per command name.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	byName  map[string]*counters
	topN    int
	started time.Time
}

// New creates a tracker whose Top defaults to topN entries.
func New(topN int) *Tracker {
	if topN <= 0 {
		topN = 100
	}
	return &Tracker{
		byName:  make(map[string]*counters),
		topN:    topN,
		started: time.Now(),
	}
}

// Record records one call of the named command.
func (t *Tracker) Record(name string, d time.Duration, failed bool) {
	t.mu.Lock()
	c, ok := t.byName[name]
	if !ok {
		c = &counters{}
		t.byName[name] = c
	}
	c.calls++
	c.usec += d.Microseconds()
	if failed {
		c.failed++
	}
	t.mu.Unlock()
}

// Get returns the statistics of one command.
func (t *Tracker) Get(name string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byName[name]
	if !ok {
		return Entry{}, false
	}
	return Entry{Name: name, Calls: c.calls, Failed: c.failed, Usec: c.usec}, true
}

// All returns every tracked command sorted by name.
func (t *Tracker) All() []Entry {
	t.mu.Lock()
	result := make([]Entry, 0, len(t.byName))
	for name, c := range t.byName {
		result = append(result, Entry{Name: name, Calls: c.calls, Failed: c.failed, Usec: c.usec})
	}
	t.mu.Unlock()
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Top returns the top-N commands by call count, sorted descending.
func (t *Tracker) Top(n int) []Entry {
	if n <= 0 {
		n = t.topN
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	h := &entryHeap{}
	heap.Init(h)

	for name, c := range t.byName {
		e := Entry{Name: name, Calls: c.calls, Failed: c.failed, Usec: c.usec}
		if h.Len() < n {
			heap.Push(h, e)
		} else if (*h)[0].Calls < e.Calls {
			(*h)[0] = e
			heap.Fix(h, 0)
		}
	}

	result := make([]Entry, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(Entry)
	}
	return result
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.byName = make(map[string]*counters)
	t.started = time.Now()
	t.mu.Unlock()
}

// Size returns the number of tracked commands.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byName)
}

// --- min-heap for top-N selection ---

type entryHeap []Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].Calls < h[j].Calls }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(Entry)) }

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
