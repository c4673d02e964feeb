// Package store - List data type implementation for FlashKV
//
// A List is a double-ended queue of byte values stored under a single key.
// Push/Pop at either end is O(1) amortised; index-based operations are O(1)
// for reads and O(N) for structural edits (insert, remove, trim).
package store

import "bytes"

// List is a growable ring buffer of byte values.
// The List itself is NOT thread-safe; concurrency is managed by the engine.
type List struct {
	buf  [][]byte
	head int
	n    int
}

// NewList creates a new empty List.
func NewList() *List {
	return &List{buf: make([][]byte, 8)}
}

func (l *List) grow() {
	size := len(l.buf) * 2
	if size == 0 {
		size = 8
	}
	buf := make([][]byte, size)
	for i := 0; i < l.n; i++ {
		buf[i] = l.at(i)
	}
	l.buf = buf
	l.head = 0
}

func (l *List) at(i int) []byte {
	return l.buf[(l.head+i)%len(l.buf)]
}

func (l *List) slot(i int) int {
	return (l.head + i) % len(l.buf)
}

// LPush prepends values one at a time, so LPUSH k a b c leaves c at the head.
// Returns the new length of the list.
func (l *List) LPush(values ...[]byte) int {
	for _, v := range values {
		if l.n == len(l.buf) {
			l.grow()
		}
		l.head = (l.head - 1 + len(l.buf)) % len(l.buf)
		l.buf[l.head] = cloneBytes(v)
		l.n++
	}
	return l.n
}

// RPush appends one or more values to the list.
// Returns the new length of the list.
func (l *List) RPush(values ...[]byte) int {
	for _, v := range values {
		if l.n == len(l.buf) {
			l.grow()
		}
		l.buf[l.slot(l.n)] = cloneBytes(v)
		l.n++
	}
	return l.n
}

// LPop removes and returns the first element.
func (l *List) LPop() ([]byte, bool) {
	if l.n == 0 {
		return nil, false
	}
	val := l.buf[l.head]
	l.buf[l.head] = nil
	l.head = (l.head + 1) % len(l.buf)
	l.n--
	return val, true
}

// RPop removes and returns the last element.
func (l *List) RPop() ([]byte, bool) {
	if l.n == 0 {
		return nil, false
	}
	idx := l.slot(l.n - 1)
	val := l.buf[idx]
	l.buf[idx] = nil
	l.n--
	return val, true
}

// Len returns the number of elements in the list.
func (l *List) Len() int {
	return l.n
}

// Index returns the element at the given index.
// Negative indices count from the end (-1 is the last element).
func (l *List) Index(index int) ([]byte, bool) {
	idx := l.resolveIndex(index)
	if idx < 0 || idx >= l.n {
		return nil, false
	}
	return cloneBytes(l.at(idx)), true
}

// Set replaces the element at index. It reports false when the index is out
// of range.
func (l *List) Set(index int, value []byte) bool {
	idx := l.resolveIndex(index)
	if idx < 0 || idx >= l.n {
		return false
	}
	l.buf[l.slot(idx)] = cloneBytes(value)
	return true
}

// Range returns elements from start to stop (inclusive), supporting negative indices.
func (l *List) Range(start, stop int) [][]byte {
	s, e, ok := l.clampRange(start, stop)
	if !ok {
		return [][]byte{}
	}
	result := make([][]byte, e-s+1)
	for i := s; i <= e; i++ {
		result[i-s] = cloneBytes(l.at(i))
	}
	return result
}

// Insert inserts value before or after the first element equal to pivot.
// Returns the new length, or -1 if the pivot was not found.
func (l *List) Insert(before bool, pivot, value []byte) int {
	for i := 0; i < l.n; i++ {
		if !bytes.Equal(l.at(i), pivot) {
			continue
		}
		pos := i
		if !before {
			pos = i + 1
		}
		items := l.items()
		items = append(items, nil)
		copy(items[pos+1:], items[pos:])
		items[pos] = cloneBytes(value)
		l.reset(items)
		return l.n
	}
	return -1
}

// Rem removes count occurrences of elements equal to value.
//   - count > 0: Remove first count occurrences (head to tail)
//   - count < 0: Remove last |count| occurrences (tail to head)
//   - count == 0: Remove all occurrences
//
// Returns the number of removed elements.
func (l *List) Rem(count int, value []byte) int {
	if l.n == 0 {
		return 0
	}
	limit := count
	if limit < 0 {
		limit = -limit
	}

	items := l.items()
	drop := make([]bool, len(items))
	removed := 0
	if count >= 0 {
		for i := 0; i < len(items); i++ {
			if (count == 0 || removed < limit) && bytes.Equal(items[i], value) {
				drop[i] = true
				removed++
			}
		}
	} else {
		for i := len(items) - 1; i >= 0 && removed < limit; i-- {
			if bytes.Equal(items[i], value) {
				drop[i] = true
				removed++
			}
		}
	}
	if removed == 0 {
		return 0
	}

	kept := make([][]byte, 0, len(items)-removed)
	for i, item := range items {
		if !drop[i] {
			kept = append(kept, item)
		}
	}
	l.reset(kept)
	return removed
}

// Trim trims the list to only contain elements between start and stop (inclusive).
func (l *List) Trim(start, stop int) {
	s, e, ok := l.clampRange(start, stop)
	if !ok {
		l.reset(nil)
		return
	}
	items := l.items()
	l.reset(items[s : e+1])
}

// clampRange resolves a possibly-negative inclusive range against the
// current length.
func (l *List) clampRange(start, stop int) (int, int, bool) {
	if l.n == 0 {
		return 0, 0, false
	}
	s := l.resolveIndex(start)
	e := l.resolveIndex(stop)
	if s < 0 {
		s = 0
	}
	if e >= l.n {
		e = l.n - 1
	}
	if s > e || s >= l.n {
		return 0, 0, false
	}
	return s, e, true
}

// resolveIndex converts a possibly-negative index to a non-negative one.
func (l *List) resolveIndex(index int) int {
	if index < 0 {
		return l.n + index
	}
	return index
}

// items returns the elements in order without copying the values.
func (l *List) items() [][]byte {
	out := make([][]byte, l.n)
	for i := 0; i < l.n; i++ {
		out[i] = l.at(i)
	}
	return out
}

func (l *List) reset(items [][]byte) {
	size := 8
	for size < len(items) {
		size *= 2
	}
	buf := make([][]byte, size)
	copy(buf, items)
	l.buf = buf
	l.head = 0
	l.n = len(items)
}

func (l *List) clear() {
	for i := range l.buf {
		l.buf[i] = nil
	}
	l.buf = nil
	l.head = 0
	l.n = 0
}

// Helper: deep clone bytes
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
