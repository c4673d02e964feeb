package store

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_AddRem(t *testing.T) {
	s := NewSet()
	assert.Equal(t, 2, s.Add("a", "b", "a"))
	assert.Equal(t, 0, s.Add("a"))
	assert.Equal(t, 2, s.Card())
	assert.True(t, s.IsMember("a"))
	assert.False(t, s.IsMember("c"))

	assert.Equal(t, 1, s.Rem("a", "c"))
	assert.ElementsMatch(t, []string{"b"}, s.Members())
}

func TestSet_RandMember(t *testing.T) {
	s := NewSet()
	for i := 0; i < 10; i++ {
		s.Add(strconv.Itoa(i))
	}

	unique := s.RandMember(5)
	assert.Len(t, unique, 5)
	seen := map[string]bool{}
	for _, m := range unique {
		assert.False(t, seen[m])
		seen[m] = true
		assert.True(t, s.IsMember(m))
	}

	assert.Len(t, s.RandMember(50), 10)
	assert.Len(t, s.RandMember(-30), 30)
	assert.Empty(t, NewSet().RandMember(3))
	assert.Equal(t, 10, s.Card(), "RandMember must not remove")
}

func TestSet_Pop(t *testing.T) {
	s := NewSet()
	for i := 0; i < 200; i++ {
		s.Add(strconv.Itoa(i))
	}
	popped := s.Pop(37)
	assert.Len(t, popped, 37)
	assert.Equal(t, 163, s.Card())
	for _, m := range popped {
		assert.False(t, s.IsMember(m))
	}

	assert.Len(t, s.Pop(1000), 163)
	assert.Equal(t, 0, s.Card())
}

func TestSet_RemKeepsIndexConsistent(t *testing.T) {
	s := NewSet()
	for i := 0; i < 50; i++ {
		s.Add(strconv.Itoa(i))
	}
	for i := 0; i < 50; i += 3 {
		assert.Equal(t, 1, s.Rem(strconv.Itoa(i)))
	}
	for i := 0; i < 50; i++ {
		assert.Equal(t, i%3 != 0, s.IsMember(strconv.Itoa(i)), i)
	}
	assert.Len(t, s.Members(), s.Card())

	// Re-adding after removals reuses the dense slice.
	assert.Equal(t, 1, s.Add("0"))
	assert.True(t, s.IsMember("0"))
	assert.Equal(t, 1, s.Rem("0"))
}
