// Package store - Hash data type implementation for FlashKV
//
// A Hash is a map of field→value pairs stored under a single key. Fields are
// reported in insertion order; re-setting an existing field keeps its slot.
// Single-field operations are O(1); deletes leave a tombstone that is
// compacted once tombstones outnumber live fields.
package store

// HashFieldValue represents a field-value pair in a hash.
type HashFieldValue struct {
	Field string
	Value []byte
}

type hashSlot struct {
	field string
	value []byte
	live  bool
}

// Hash represents an insertion-ordered hash.
// The Hash itself is NOT thread-safe; concurrency is managed by the engine.
type Hash struct {
	slots []hashSlot
	index map[string]int
	dead  int
}

// NewHash creates a new empty Hash.
func NewHash() *Hash {
	return &Hash{index: make(map[string]int)}
}

// Set sets field to value. Returns true if the field is new (didn't exist before).
func (h *Hash) Set(field string, value []byte) bool {
	if i, ok := h.index[field]; ok {
		h.slots[i].value = cloneBytes(value)
		return false
	}
	h.index[field] = len(h.slots)
	h.slots = append(h.slots, hashSlot{field: field, value: cloneBytes(value), live: true})
	return true
}

// Get returns the value of a field.
func (h *Hash) Get(field string) ([]byte, bool) {
	i, ok := h.index[field]
	if !ok {
		return nil, false
	}
	return cloneBytes(h.slots[i].value), true
}

// Del removes one or more fields. Returns the number of fields removed.
func (h *Hash) Del(fields ...string) int {
	removed := 0
	for _, f := range fields {
		i, ok := h.index[f]
		if !ok {
			continue
		}
		delete(h.index, f)
		h.slots[i] = hashSlot{}
		h.dead++
		removed++
	}
	if h.dead > len(h.index) {
		h.compact()
	}
	return removed
}

func (h *Hash) compact() {
	slots := make([]hashSlot, 0, len(h.index))
	for _, s := range h.slots {
		if s.live {
			h.index[s.field] = len(slots)
			slots = append(slots, s)
		}
	}
	h.slots = slots
	h.dead = 0
}

// Exists returns whether a field exists in the hash.
func (h *Hash) Exists(field string) bool {
	_, ok := h.index[field]
	return ok
}

// Len returns the number of fields in the hash.
func (h *Hash) Len() int {
	return len(h.index)
}

// GetAll returns all field-value pairs in insertion order.
func (h *Hash) GetAll() []HashFieldValue {
	result := make([]HashFieldValue, 0, len(h.index))
	for _, s := range h.slots {
		if s.live {
			result = append(result, HashFieldValue{Field: s.field, Value: cloneBytes(s.value)})
		}
	}
	return result
}

// Keys returns all field names in insertion order.
func (h *Hash) Keys() []string {
	keys := make([]string, 0, len(h.index))
	for _, s := range h.slots {
		if s.live {
			keys = append(keys, s.field)
		}
	}
	return keys
}

// Vals returns all values in field insertion order.
func (h *Hash) Vals() [][]byte {
	vals := make([][]byte, 0, len(h.index))
	for _, s := range h.slots {
		if s.live {
			vals = append(vals, cloneBytes(s.value))
		}
	}
	return vals
}

func (h *Hash) clear() {
	h.slots = nil
	h.index = make(map[string]int)
	h.dead = 0
}
