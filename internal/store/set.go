package store

import "math/rand"

// Set is an unordered collection of unique members. Members live in a dense
// slice with a position index, so membership, removal and random picks are
// all O(1) per member. Not safe for concurrent mutation.
type Set struct {
	items []string
	pos   map[string]int
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{pos: make(map[string]int)}
}

// Add inserts members and returns how many were new.
func (s *Set) Add(members ...string) int {
	n := 0
	for _, m := range members {
		if _, ok := s.pos[m]; ok {
			continue
		}
		s.pos[m] = len(s.items)
		s.items = append(s.items, m)
		n++
	}
	return n
}

// Rem deletes members and returns how many were present.
func (s *Set) Rem(members ...string) int {
	n := 0
	for _, m := range members {
		if i, ok := s.pos[m]; ok {
			s.removeAt(i)
			n++
		}
	}
	return n
}

// removeAt swaps the last member into slot i.
func (s *Set) removeAt(i int) string {
	m := s.items[i]
	last := len(s.items) - 1
	if i != last {
		moved := s.items[last]
		s.items[i] = moved
		s.pos[moved] = i
	}
	s.items[last] = ""
	s.items = s.items[:last]
	delete(s.pos, m)
	return m
}

func (s *Set) IsMember(member string) bool {
	_, ok := s.pos[member]
	return ok
}

func (s *Set) Card() int { return len(s.items) }

// Members returns a copy of all members in no particular order.
func (s *Set) Members() []string {
	return append([]string(nil), s.items...)
}

// RandMember picks members without removing them. A positive count returns
// up to count distinct members; a negative count returns exactly -count
// members, possibly repeated. The set is not modified, so it is safe under
// a shared read lock.
func (s *Set) RandMember(count int) []string {
	n := len(s.items)
	if n == 0 || count == 0 {
		return []string{}
	}

	if count < 0 {
		out := make([]string, -count)
		for i := range out {
			out[i] = s.items[rand.Intn(n)]
		}
		return out
	}

	if count >= n {
		return s.Members()
	}
	// Floyd's sampling: count distinct indices in O(count).
	chosen := make(map[int]struct{}, count)
	out := make([]string, 0, count)
	for j := n - count; j < n; j++ {
		t := rand.Intn(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, s.items[t])
	}
	return out
}

// Pop removes and returns up to count random members.
func (s *Set) Pop(count int) []string {
	if len(s.items) == 0 || count <= 0 {
		return []string{}
	}
	if count > len(s.items) {
		count = len(s.items)
	}
	out := make([]string, count)
	for i := range out {
		out[i] = s.removeAt(rand.Intn(len(s.items)))
	}
	return out
}

func (s *Set) clear() {
	s.items = nil
	s.pos = make(map[string]int)
}
