package engine

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashes_Basic(t *testing.T) {
	e := newTestEngine(t)

	assertInt(t, 1, do(e, "hset", "h", "f1", "v1"))
	assertInt(t, 2, do(e, "hset", "h", "f2", "v2", "f3", "v3"))
	assertInt(t, 0, do(e, "hset", "h", "f1", "again"))
	requireOK(t, do(e, "hmset", "h", "f4", "v4"))

	assertBulk(t, "again", do(e, "hget", "h", "f1"))
	assertNil(t, do(e, "hget", "h", "nope"))
	assertNil(t, do(e, "hget", "missing", "f"))
	assertInt(t, 4, do(e, "hlen", "h"))
	assertInt(t, 1, do(e, "hexists", "h", "f2"))
	assertInt(t, 0, do(e, "hexists", "h", "zz"))
	assertInt(t, 5, do(e, "hstrlen", "h", "f1"))
	assertInt(t, 0, do(e, "hstrlen", "h", "zz"))

	assert.Equal(t, []string{"f1", "f2", "f3", "f4"}, arrayStrings(t, do(e, "hkeys", "h")))
	assert.Equal(t, []string{"again", "v2", "v3", "v4"}, arrayStrings(t, do(e, "hvals", "h")))
	assert.Equal(t, []string{"f1", "again", "f2", "v2", "f3", "v3", "f4", "v4"}, arrayStrings(t, do(e, "hgetall", "h")))

	r := do(e, "hmget", "h", "f2", "zz", "f3")
	require.Len(t, r.Array, 3)
	assertBulk(t, "v2", r.Array[0])
	assertNil(t, r.Array[1])
	assertBulk(t, "v3", r.Array[2])
}

func TestHashes_DelRemovesEmptyKey(t *testing.T) {
	e := newTestEngine(t)
	do(e, "hset", "h", "a", "1", "b", "2")
	assertInt(t, 1, do(e, "hdel", "h", "a", "zz"))
	assertInt(t, 1, do(e, "hdel", "h", "b"))
	assertInt(t, 0, do(e, "exists", "h"))
	assertInt(t, 0, do(e, "hdel", "h", "b"))
}

func TestHashes_HIncrBy(t *testing.T) {
	e := newTestEngine(t)
	assertInt(t, 5, do(e, "hincrby", "h", "n", "5"))
	assertInt(t, 2, do(e, "hincrby", "h", "n", "-3"))
	do(e, "hset", "h", "s", "text")
	assertErr(t, ErrHashNotInt, do(e, "hincrby", "h", "s", "1"))
	assertErr(t, ErrInvalidArgs, do(e, "hincrby", "h", "n", "x"))
	assertErr(t, ErrInvalidArgs, do(e, "hincrby", "fresh", "n", "x"))
	assertErr(t, ErrInvalidArgs, do(e, "hincrby", "k", "value1", "value2"))
	assertInt(t, 0, do(e, "exists", "fresh"))
}

func TestLists_PushPopOrder(t *testing.T) {
	e := newTestEngine(t)
	args := []string{"k"}
	for i := 0; i < 200; i++ {
		args = append(args, fmt.Sprint(i))
	}
	assertInt(t, 200, do(e, "lpush", args...))
	for i := 0; i < 200; i++ {
		assertBulk(t, fmt.Sprint(i), do(e, "rpop", "k"))
	}
	assertNil(t, do(e, "rpop", "k"))
	assertInt(t, 0, do(e, "exists", "k"))
}

func TestLists_IndexRangeSet(t *testing.T) {
	e := newTestEngine(t)
	assertInt(t, 5, do(e, "rpush", "l", "a", "b", "c", "d", "e"))

	assertBulk(t, "a", do(e, "lindex", "l", "0"))
	assertBulk(t, "e", do(e, "lindex", "l", "-1"))
	assertNil(t, do(e, "lindex", "l", "5"))

	assert.Equal(t, []string{"b", "c", "d"}, arrayStrings(t, do(e, "lrange", "l", "1", "-2")))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, arrayStrings(t, do(e, "lrange", "l", "-100", "100")))
	assert.Empty(t, arrayStrings(t, do(e, "lrange", "l", "3", "1")))
	assert.Empty(t, arrayStrings(t, do(e, "lrange", "missing", "0", "-1")))

	requireOK(t, do(e, "lset", "l", "-1", "E"))
	assertBulk(t, "E", do(e, "lindex", "l", "4"))
	assertErr(t, ErrOutOfRange, do(e, "lset", "l", "10", "x"))
	assertErr(t, ErrNoSuchKey, do(e, "lset", "missing", "0", "x"))
	assertErr(t, ErrNotInteger, do(e, "lindex", "l", "one"))
}

func TestLists_TrimRemInsert(t *testing.T) {
	e := newTestEngine(t)
	do(e, "rpush", "l", "a", "x", "b", "x", "c", "x")

	assertInt(t, 2, do(e, "lrem", "l", "2", "x"))
	assert.Equal(t, []string{"a", "b", "c", "x"}, arrayStrings(t, do(e, "lrange", "l", "0", "-1")))
	assertInt(t, 1, do(e, "lrem", "l", "-5", "x"))

	assertInt(t, 4, do(e, "linsert", "l", "BEFORE", "b", "B"))
	assertInt(t, 5, do(e, "linsert", "l", "after", "c", "C"))
	assert.Equal(t, []string{"a", "B", "b", "c", "C"}, arrayStrings(t, do(e, "lrange", "l", "0", "-1")))
	assertInt(t, -1, do(e, "linsert", "l", "BEFORE", "zz", "v"))
	assertInt(t, 0, do(e, "linsert", "missing", "BEFORE", "a", "v"))

	requireOK(t, do(e, "ltrim", "l", "1", "2"))
	assert.Equal(t, []string{"B", "b"}, arrayStrings(t, do(e, "lrange", "l", "0", "-1")))
	requireOK(t, do(e, "ltrim", "l", "5", "10"))
	assertInt(t, 0, do(e, "exists", "l"))
}

func TestLists_PopWithCount(t *testing.T) {
	e := newTestEngine(t)
	do(e, "rpush", "l", "a", "b", "c")
	assert.Equal(t, []string{"a", "b"}, arrayStrings(t, do(e, "lpop", "l", "2")))
	assert.Equal(t, []string{"c"}, arrayStrings(t, do(e, "rpop", "l", "5")))
	assertInt(t, 0, do(e, "exists", "l"))
	assertNil(t, do(e, "lpop", "l", "2"))
	assertErr(t, ErrInvalidArgs, do(e, "lpop", "l", "-1"))
}

func TestSets_Basic(t *testing.T) {
	e := newTestEngine(t)
	assertInt(t, 3, do(e, "sadd", "s", "a", "b", "c", "a"))
	assertInt(t, 0, do(e, "sadd", "s", "a"))
	assertInt(t, 3, do(e, "scard", "s"))
	assertInt(t, 1, do(e, "sismember", "s", "b"))
	assertInt(t, 0, do(e, "sismember", "s", "z"))
	assertInt(t, 0, do(e, "sismember", "missing", "z"))

	r := do(e, "smismember", "s", "a", "z", "c")
	require.Len(t, r.Array, 3)
	assertInt(t, 1, r.Array[0])
	assertInt(t, 0, r.Array[1])
	assertInt(t, 1, r.Array[2])

	members := arrayStrings(t, do(e, "smembers", "s"))
	sort.Strings(members)
	assert.Equal(t, []string{"a", "b", "c"}, members)

	assertInt(t, 2, do(e, "srem", "s", "a", "b", "z"))
	assertInt(t, 1, do(e, "srem", "s", "c"))
	assertInt(t, 0, do(e, "exists", "s"))
}

func TestSets_RandMemberAndPop(t *testing.T) {
	e := newTestEngine(t)
	do(e, "sadd", "s", "a", "b", "c")

	one := do(e, "srandmember", "s")
	assert.Contains(t, []string{"a", "b", "c"}, string(one.Str))
	assert.Len(t, arrayStrings(t, do(e, "srandmember", "s", "2")), 2)
	assert.Len(t, arrayStrings(t, do(e, "srandmember", "s", "10")), 3)
	assert.Len(t, arrayStrings(t, do(e, "srandmember", "s", "-7")), 7)
	assertNil(t, do(e, "srandmember", "missing"))
	assertInt(t, 3, do(e, "scard", "s"))

	popped := arrayStrings(t, do(e, "spop", "s", "2"))
	assert.Len(t, popped, 2)
	assertInt(t, 1, do(e, "scard", "s"))
	last := do(e, "spop", "s")
	assert.NotContains(t, popped, string(last.Str))
	assertInt(t, 0, do(e, "exists", "s"))
	assertNil(t, do(e, "spop", "s"))
}

func TestZSets_AddFlags(t *testing.T) {
	e := newTestEngine(t)
	assertInt(t, 2, do(e, "zadd", "z", "1", "a", "2", "b"))

	// NX never touches existing members.
	assertInt(t, 1, do(e, "zadd", "z", "NX", "10", "a", "3", "c"))
	assertBulk(t, "1", do(e, "zscore", "z", "a"))

	// XX never creates.
	assertInt(t, 0, do(e, "zadd", "z", "XX", "5", "a", "4", "d"))
	assertBulk(t, "5", do(e, "zscore", "z", "a"))
	assertNil(t, do(e, "zscore", "z", "d"))
	assertInt(t, 0, do(e, "zadd", "nokey", "XX", "1", "a"))
	assertInt(t, 0, do(e, "exists", "nokey"))

	// CH counts changed scores, not members touched.
	assertInt(t, 2, do(e, "zadd", "z", "CH", "5", "a", "7", "b", "8", "e"))
	assertInt(t, 1, do(e, "zadd", "z", "XX", "CH", "5", "a", "9", "b"))

	assertErr(t, ErrInvalidArgs, do(e, "zadd", "z", "NX", "XX", "1", "a"))
	assertErr(t, ErrNotFloat, do(e, "zadd", "z", "abc", "a"))
	assertErr(t, ErrInvalidArgs, do(e, "zadd", "z", "1", "a", "2"))

	assertBulk(t, "6", do(e, "zadd", "z", "INCR", "1", "a"))
}

func TestZSets_RangesAndRanks(t *testing.T) {
	e := newTestEngine(t)
	do(e, "zadd", "z", "1", "a", "2", "b", "2", "c", "3.5", "d")

	assertInt(t, 4, do(e, "zcard", "z"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, arrayStrings(t, do(e, "zrange", "z", "0", "-1")))
	assert.Equal(t, []string{"a", "1", "b", "2"}, arrayStrings(t, do(e, "zrange", "z", "0", "1", "WITHSCORES")))
	assert.Equal(t, []string{"d", "c"}, arrayStrings(t, do(e, "zrevrange", "z", "0", "1")))
	assertErr(t, ErrInvalidArgs, do(e, "zrange", "z", "0", "1", "WITHSCOREZ"))

	assertInt(t, 0, do(e, "zrank", "z", "a"))
	assertInt(t, 2, do(e, "zrank", "z", "c"))
	assertInt(t, 0, do(e, "zrevrank", "z", "d"))
	assertNil(t, do(e, "zrank", "z", "zz"))

	assert.Equal(t, []string{"b", "c", "d"}, arrayStrings(t, do(e, "zrangebyscore", "z", "2", "+inf")))
	assert.Equal(t, []string{"d"}, arrayStrings(t, do(e, "zrangebyscore", "z", "(2", "+inf")))
	assert.Equal(t, []string{"c", "2"}, arrayStrings(t, do(e, "zrangebyscore", "z", "-inf", "3", "WITHSCORES", "LIMIT", "2", "1")))
	assert.Equal(t, []string{"d", "c", "b"}, arrayStrings(t, do(e, "zrevrangebyscore", "z", "+inf", "(1")))
	assert.Empty(t, arrayStrings(t, do(e, "zrangebyscore", "z", "3", "1")))

	assertInt(t, 2, do(e, "zcount", "z", "2", "2"))
	assertInt(t, 4, do(e, "zcount", "z", "-inf", "+inf"))
	r := do(e, "zcount", "z", "x", "1")
	assert.True(t, r.IsError())
}

func TestZSets_RemoveAndPop(t *testing.T) {
	e := newTestEngine(t)
	do(e, "zadd", "z", "1", "a", "2", "b", "3", "c", "4", "d", "5", "e")

	assertInt(t, 1, do(e, "zrem", "z", "a", "zz"))
	assertInt(t, 2, do(e, "zremrangebyscore", "z", "2", "(4"))
	assert.Equal(t, []string{"d", "e"}, arrayStrings(t, do(e, "zrange", "z", "0", "-1")))

	do(e, "zadd", "z", "6", "f", "7", "g")
	assertInt(t, 2, do(e, "zremrangebyrank", "z", "0", "1"))
	assert.Equal(t, []string{"f", "g"}, arrayStrings(t, do(e, "zrange", "z", "0", "-1")))

	assert.Equal(t, []string{"f", "6"}, arrayStrings(t, do(e, "zpopmin", "z")))
	assert.Equal(t, []string{"g", "7"}, arrayStrings(t, do(e, "zpopmax", "z", "3")))
	assertInt(t, 0, do(e, "exists", "z"))
	assert.Empty(t, arrayStrings(t, do(e, "zpopmin", "z")))
}

func TestZSets_IncrBy(t *testing.T) {
	e := newTestEngine(t)
	assertBulk(t, "2.5", do(e, "zincrby", "z", "2.5", "m"))
	assertBulk(t, "1", do(e, "zincrby", "z", "-1.5", "m"))
	assertBulk(t, "inf", do(e, "zincrby", "z", "inf", "m"))
	r := do(e, "zincrby", "z", "-inf", "m")
	assert.True(t, r.IsError())
	assertErr(t, ErrNotFloat, do(e, "zincrby", "z", "x", "m"))
}
