package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReleaser struct {
	keys []string
}

func (r *recordingReleaser) Release(key string, v Value) bool {
	r.keys = append(r.keys, key)
	return false
}

func putString(ks *Keyspace, key, val string) {
	ks.Put(key, &Entry{Value: StringValue([]byte(val))})
}

func TestKeyspace_PutLookup(t *testing.T) {
	ks := New()
	now := time.Now()

	putString(ks, "key1", "value1")
	e, ok := ks.Lookup("key1", now)
	require.True(t, ok)
	assert.Equal(t, KindString, e.Value.Kind())
	assert.Equal(t, []byte("value1"), e.Value.Str())

	_, ok = ks.Lookup("nonexistent", now)
	assert.False(t, ok)
	assert.True(t, ks.Contains("key1", now))
}

func TestKeyspace_Remove(t *testing.T) {
	rel := &recordingReleaser{}
	ks := New(WithReleaser(rel))

	putString(ks, "key1", "value1")
	assert.True(t, ks.Remove("key1"))
	assert.False(t, ks.Remove("key1"))
	assert.Equal(t, []string{"key1"}, rel.keys)
	assert.Equal(t, 0, ks.Len())
}

func TestKeyspace_PutReleasesReplacedValue(t *testing.T) {
	rel := &recordingReleaser{}
	ks := New(WithReleaser(rel))

	l := NewList()
	l.RPush([]byte("a"))
	ks.Put("k", &Entry{Value: ListValue(l)})
	putString(ks, "k", "v")

	assert.Equal(t, []string{"k"}, rel.keys)
}

func TestKeyspace_LazyExpiration(t *testing.T) {
	rel := &recordingReleaser{}
	ks := New(WithReleaser(rel))
	now := time.Now()

	ks.Put("k", &Entry{Value: StringValue([]byte("v")), ExpireAt: now.Add(time.Second), HasExpire: true})

	_, ok := ks.Lookup("k", now)
	assert.True(t, ok)

	later := now.Add(time.Second)
	_, ok = ks.Lookup("k", later)
	assert.False(t, ok, "entry expiring at now must be absent")
	assert.Equal(t, 1, ks.Len(), "read path must not change the tree")

	assert.Equal(t, 1, ks.DrainStale(later))
	assert.Equal(t, 0, ks.Len())
	assert.Equal(t, []string{"k"}, rel.keys)
}

func TestKeyspace_RepeatedReadsMarkStaleOnce(t *testing.T) {
	ks := New()
	now := time.Now()
	ks.Put("k", &Entry{Value: StringValue([]byte("v")), ExpireAt: now, HasExpire: true})
	ks.Put("p", &Entry{Value: StringValue([]byte("v"))})

	for i := 0; i < 100; i++ {
		_, ok := ks.Lookup("k", now)
		require.False(t, ok)
	}
	assert.Equal(t, 1, ks.StaleCount())
	assert.Equal(t, 2, ks.Len())
	assert.Equal(t, 1, ks.LiveLen(now))

	assert.Equal(t, 1, ks.DrainStale(now))
	assert.Zero(t, ks.StaleCount())
	assert.Equal(t, 1, ks.LiveLen(now))
}

func TestKeyspace_LookupWriteRemovesExpired(t *testing.T) {
	ks := New()
	now := time.Now()
	ks.Put("k", &Entry{Value: StringValue([]byte("v")), ExpireAt: now, HasExpire: true})

	_, ok := ks.LookupWrite("k", now)
	assert.False(t, ok)
	assert.Equal(t, 0, ks.Len())
	assert.Equal(t, 0, ks.Volatile())
}

func TestKeyspace_ExpirePersistTTL(t *testing.T) {
	ks := New()
	now := time.Now()
	putString(ks, "k", "v")

	_, state := ks.TTL("k", now)
	assert.Equal(t, TTLPersistent, state)
	assert.False(t, ks.Persist("k"))

	assert.True(t, ks.SetExpire("k", now.Add(5*time.Second)))
	ttl, state := ks.TTL("k", now)
	assert.Equal(t, TTLVolatile, state)
	assert.Equal(t, 5*time.Second, ttl)
	assert.Equal(t, 1, ks.Volatile())

	assert.True(t, ks.Persist("k"))
	_, state = ks.TTL("k", now)
	assert.Equal(t, TTLPersistent, state)
	assert.Equal(t, 0, ks.Volatile())

	assert.False(t, ks.SetExpire("missing", now))
	_, state = ks.TTL("missing", now)
	assert.Equal(t, TTLMissing, state)
}

func TestKeyspace_ExpireCycle(t *testing.T) {
	ks := New()
	now := time.Now()
	for i := 0; i < 100; i++ {
		ks.Put(fmt.Sprintf("gone%03d", i), &Entry{Value: StringValue([]byte("v")), ExpireAt: now, HasExpire: true})
	}
	for i := 0; i < 10; i++ {
		putString(ks, fmt.Sprintf("keep%03d", i), "v")
	}

	removed := 0
	for i := 0; i < 50 && ks.Volatile() > 0; i++ {
		removed += ks.ExpireCycle(now, 20, 4)
	}
	assert.Equal(t, 100, removed)
	assert.Equal(t, 10, ks.Len())
}

func TestKeyspace_AscendOrder(t *testing.T) {
	ks := New()
	for _, k := range []string{"c", "a", "d", "b"} {
		putString(ks, k, k)
	}

	var seen []string
	ks.Ascend("", func(key string, e *Entry) bool {
		seen = append(seen, key)
		return true
	})
	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)

	seen = nil
	ks.Ascend("b", func(key string, e *Entry) bool {
		seen = append(seen, key)
		return true
	})
	assert.Equal(t, []string{"c", "d"}, seen)
}

func TestKeyspace_Flush(t *testing.T) {
	rel := &recordingReleaser{}
	ks := New(WithReleaser(rel))
	putString(ks, "a", "1")
	putString(ks, "b", "2")

	ks.Flush()
	assert.Equal(t, 0, ks.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, rel.keys)
}

func TestValue_Kinds(t *testing.T) {
	assert.Equal(t, "string", StringValue(nil).Kind().String())
	assert.Equal(t, "list", ListValue(NewList()).Kind().String())
	assert.Equal(t, "hash", HashValue(NewHash()).Kind().String())
	assert.Equal(t, "set", SetValue(NewSet()).Kind().String())
	assert.Equal(t, "zset", ZSetValue(NewSortedSet()).Kind().String())
	assert.Equal(t, "none", Value{}.Kind().String())

	assert.True(t, ListValue(NewList()).Empty())
	assert.False(t, StringValue(nil).Empty())
}
