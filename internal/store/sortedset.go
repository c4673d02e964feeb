// Package store - Sorted Set implementation for FlashKV
package store

import (
	"math"

	"github.com/google/btree"
)

// ScoredMember represents a member with its score in a sorted set.
type ScoredMember struct {
	Member string
	Score  float64
}

func lessScored(a, b ScoredMember) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Member < b.Member
}

// ScoreBound is one end of a score interval.
type ScoreBound struct {
	Value     float64
	Exclusive bool
}

func (b ScoreBound) admitsMin(score float64) bool {
	if b.Exclusive {
		return score > b.Value
	}
	return score >= b.Value
}

func (b ScoreBound) admitsMax(score float64) bool {
	if b.Exclusive {
		return score < b.Value
	}
	return score <= b.Value
}

// SortedSet keeps members ordered by (score, member) in a B-tree with a
// member→score index for O(1) score lookups.
// The SortedSet itself is NOT thread-safe; concurrency is managed by the engine.
type SortedSet struct {
	members map[string]float64
	tree    *btree.BTreeG[ScoredMember]
}

// NewSortedSet creates a new sorted set.
func NewSortedSet() *SortedSet {
	return &SortedSet{
		members: make(map[string]float64),
		tree:    btree.NewG[ScoredMember](16, lessScored),
	}
}

// Add sets the score of member. It reports whether the member was newly
// added and whether its score changed (always true for new members).
func (z *SortedSet) Add(member string, score float64) (added, changed bool) {
	old, exists := z.members[member]
	if exists {
		if old == score {
			return false, false
		}
		z.tree.Delete(ScoredMember{Member: member, Score: old})
	}
	z.members[member] = score
	z.tree.ReplaceOrInsert(ScoredMember{Member: member, Score: score})
	return !exists, true
}

// Score returns the score of a member.
func (z *SortedSet) Score(member string) (float64, bool) {
	score, exists := z.members[member]
	return score, exists
}

// IncrBy increments the score of a member. Creates member if not exists.
func (z *SortedSet) IncrBy(member string, increment float64) float64 {
	score := z.members[member] + increment
	z.Add(member, score)
	return score
}

// Remove removes members from the set. Returns number removed.
func (z *SortedSet) Remove(members ...string) int {
	removed := 0
	for _, m := range members {
		if score, exists := z.members[m]; exists {
			delete(z.members, m)
			z.tree.Delete(ScoredMember{Member: m, Score: score})
			removed++
		}
	}
	return removed
}

// Card returns the cardinality (number of elements) of the sorted set.
func (z *SortedSet) Card() int {
	return len(z.members)
}

// Rank returns the rank of a member (0-based, ascending by score).
func (z *SortedSet) Rank(member string) (int, bool) {
	score, exists := z.members[member]
	if !exists {
		return -1, false
	}
	target := ScoredMember{Member: member, Score: score}
	rank := 0
	z.tree.Ascend(func(item ScoredMember) bool {
		if !lessScored(item, target) {
			return false
		}
		rank++
		return true
	})
	return rank, true
}

// RevRank returns the rank of a member (0-based, descending by score).
func (z *SortedSet) RevRank(member string) (int, bool) {
	rank, ok := z.Rank(member)
	if !ok {
		return -1, false
	}
	return len(z.members) - 1 - rank, true
}

// Count returns the number of elements with scores inside [min, max].
func (z *SortedSet) Count(min, max ScoreBound) int {
	count := 0
	z.ascendScores(min, max, func(ScoredMember) bool {
		count++
		return true
	})
	return count
}

// ascendScores visits members with scores inside [min, max] in ascending order.
func (z *SortedSet) ascendScores(min, max ScoreBound, fn func(ScoredMember) bool) {
	z.tree.AscendGreaterOrEqual(ScoredMember{Score: min.Value}, func(item ScoredMember) bool {
		if !min.admitsMin(item.Score) {
			return true
		}
		if !max.admitsMax(item.Score) {
			return false
		}
		return fn(item)
	})
}

// descendScores visits members with scores inside [min, max] in descending order.
func (z *SortedSet) descendScores(min, max ScoreBound, fn func(ScoredMember) bool) {
	pivot := ScoredMember{Score: math.Nextafter(max.Value, math.Inf(1))}
	visit := func(item ScoredMember) bool {
		if !max.admitsMax(item.Score) {
			return true
		}
		if !min.admitsMin(item.Score) {
			return false
		}
		return fn(item)
	}
	if math.IsInf(max.Value, 1) {
		z.tree.Descend(visit)
		return
	}
	z.tree.DescendLessOrEqual(pivot, visit)
}

// normalizeRange resolves a possibly-negative inclusive index range.
func (z *SortedSet) normalizeRange(start, stop int) (int, int, bool) {
	n := len(z.members)
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

// Range returns members by index range (inclusive, 0-based, ascending).
// Supports negative indices (-1 = last element).
func (z *SortedSet) Range(start, stop int) []ScoredMember {
	start, stop, ok := z.normalizeRange(start, stop)
	if !ok {
		return []ScoredMember{}
	}
	result := make([]ScoredMember, 0, stop-start+1)
	i := 0
	z.tree.Ascend(func(item ScoredMember) bool {
		if i > stop {
			return false
		}
		if i >= start {
			result = append(result, item)
		}
		i++
		return true
	})
	return result
}

// RevRange returns members by index range in descending order.
func (z *SortedSet) RevRange(start, stop int) []ScoredMember {
	start, stop, ok := z.normalizeRange(start, stop)
	if !ok {
		return []ScoredMember{}
	}
	result := make([]ScoredMember, 0, stop-start+1)
	i := 0
	z.tree.Descend(func(item ScoredMember) bool {
		if i > stop {
			return false
		}
		if i >= start {
			result = append(result, item)
		}
		i++
		return true
	})
	return result
}

// RangeByScore returns members with scores in [min, max] ascending, skipping
// offset matches and returning at most count (count < 0 means no limit).
func (z *SortedSet) RangeByScore(min, max ScoreBound, offset, count int) []ScoredMember {
	result := []ScoredMember{}
	skipped := 0
	z.ascendScores(min, max, func(item ScoredMember) bool {
		if skipped < offset {
			skipped++
			return true
		}
		if count >= 0 && len(result) >= count {
			return false
		}
		result = append(result, item)
		return true
	})
	return result
}

// RevRangeByScore is RangeByScore in descending order.
func (z *SortedSet) RevRangeByScore(min, max ScoreBound, offset, count int) []ScoredMember {
	result := []ScoredMember{}
	skipped := 0
	z.descendScores(min, max, func(item ScoredMember) bool {
		if skipped < offset {
			skipped++
			return true
		}
		if count >= 0 && len(result) >= count {
			return false
		}
		result = append(result, item)
		return true
	})
	return result
}

// RemoveRangeByRank removes members by rank range (inclusive).
func (z *SortedSet) RemoveRangeByRank(start, stop int) int {
	doomed := z.Range(start, stop)
	for _, m := range doomed {
		z.Remove(m.Member)
	}
	return len(doomed)
}

// RemoveRangeByScore removes members with scores in the given range.
func (z *SortedSet) RemoveRangeByScore(min, max ScoreBound) int {
	doomed := z.RangeByScore(min, max, 0, -1)
	for _, m := range doomed {
		z.Remove(m.Member)
	}
	return len(doomed)
}

// PopMin removes and returns up to count members with the lowest scores.
func (z *SortedSet) PopMin(count int) []ScoredMember {
	result := []ScoredMember{}
	for i := 0; i < count; i++ {
		item, ok := z.tree.DeleteMin()
		if !ok {
			break
		}
		delete(z.members, item.Member)
		result = append(result, item)
	}
	return result
}

// PopMax removes and returns up to count members with the highest scores.
func (z *SortedSet) PopMax(count int) []ScoredMember {
	result := []ScoredMember{}
	for i := 0; i < count; i++ {
		item, ok := z.tree.DeleteMax()
		if !ok {
			break
		}
		delete(z.members, item.Member)
		result = append(result, item)
	}
	return result
}

func (z *SortedSet) clear() {
	z.tree.Clear(false)
	z.members = make(map[string]float64)
}
