package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrings_SetOptions(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, WithClock(clock.Now))

	requireOK(t, do(e, "set", "k", "v1"))
	assertNil(t, do(e, "set", "k", "v2", "NX"))
	assertBulk(t, "v1", do(e, "get", "k"))

	requireOK(t, do(e, "set", "k", "v3", "XX"))
	assertBulk(t, "v3", do(e, "get", "k"))
	assertNil(t, do(e, "set", "missing", "v", "XX"))
	assertInt(t, 0, do(e, "exists", "missing"))

	requireOK(t, do(e, "set", "ttl", "v", "PX", "1500"))
	assertInt(t, 1500, do(e, "pttl", "ttl"))
	requireOK(t, do(e, "set", "ttl", "v"))
	assertInt(t, -1, do(e, "ttl", "ttl"))

	assertErr(t, ErrInvalidArgs, do(e, "set", "k", "v", "NX", "XX"))
	assertErr(t, ErrInvalidArgs, do(e, "set", "k", "v", "EX"))
	assertErr(t, ErrInvalidArgs, do(e, "set", "k", "v", "EX", "1", "PX", "1"))
	assertErr(t, ErrNotInteger, do(e, "set", "k", "v", "EX", "soon"))
	assertErr(t, ErrInvalidExpire, do(e, "set", "k", "v", "EX", "0"))
	assertErr(t, ErrInvalidArgs, do(e, "set", "k", "v", "KEEP"))
}

func TestStrings_SetOverwritesOtherTypes(t *testing.T) {
	e := newTestEngine(t)
	assertInt(t, 1, do(e, "sadd", "k", "m"))
	requireOK(t, do(e, "set", "k", "v"))
	assertBulk(t, "v", do(e, "get", "k"))
}

func TestStrings_SetNXAndSetEX(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, WithClock(clock.Now))

	assertInt(t, 1, do(e, "setnx", "k", "a"))
	assertInt(t, 0, do(e, "setnx", "k", "b"))
	assertBulk(t, "a", do(e, "get", "k"))

	requireOK(t, do(e, "setex", "e", "10", "v"))
	assertInt(t, 10, do(e, "ttl", "e"))
	clock.Advance(11 * time.Second)
	assertNil(t, do(e, "get", "e"))

	r := do(e, "setex", "e", "0", "v")
	assert.True(t, r.IsError())
	assertErr(t, ErrInvalidArgs, do(e, "setex", "e", "x", "v"))
	assertErr(t, ErrInvalidArgs, do(e, "setex", "k", "value1", "value2"))
	assertErr(t, ErrInvalidArgs, do(e, "psetex", "k", "value1", "value2"))
}

func TestStrings_MSetMGet(t *testing.T) {
	e := newTestEngine(t)
	requireOK(t, do(e, "mset", "a", "1", "b", "2"))
	do(e, "rpush", "l", "x")

	r := do(e, "mget", "a", "missing", "b", "l")
	assert.Len(t, r.Array, 4)
	assertBulk(t, "1", r.Array[0])
	assertNil(t, r.Array[1])
	assertBulk(t, "2", r.Array[2])
	assertNil(t, r.Array[3])
}

func TestStrings_IncrDecr(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, WithClock(clock.Now))

	assertInt(t, 1, do(e, "incr", "n"))
	assertInt(t, 11, do(e, "incrby", "n", "10"))
	assertInt(t, 10, do(e, "decr", "n"))
	assertInt(t, -5, do(e, "decrby", "n", "15"))
	assertInt(t, -1, do(e, "decr", "fresh"))
	assertBulk(t, "-5", do(e, "get", "n"))

	requireOK(t, do(e, "set", "s", "abc"))
	assertErr(t, ErrNotInteger, do(e, "incr", "s"))
	assertErr(t, ErrNotInteger, do(e, "incrby", "n", "1.5"))
	assertBulk(t, "abc", do(e, "get", "s"))

	requireOK(t, do(e, "set", "max", "9223372036854775807"))
	assertErr(t, ErrOverflow, do(e, "incr", "max"))

	requireOK(t, do(e, "set", "v", "1", "EX", "100"))
	assertInt(t, 2, do(e, "incr", "v"))
	assertInt(t, 100, do(e, "ttl", "v"))
}

func TestStrings_AppendStrlenGetSetGetDel(t *testing.T) {
	e := newTestEngine(t)

	assertInt(t, 5, do(e, "append", "k", "hello"))
	assertInt(t, 11, do(e, "append", "k", " world"))
	assertBulk(t, "hello world", do(e, "get", "k"))
	assertInt(t, 11, do(e, "strlen", "k"))
	assertInt(t, 0, do(e, "strlen", "missing"))

	assertBulk(t, "hello world", do(e, "getset", "k", "new"))
	assertNil(t, do(e, "getset", "other", "x"))
	assertBulk(t, "new", do(e, "get", "k"))

	assertBulk(t, "new", do(e, "getdel", "k"))
	assertNil(t, do(e, "getdel", "k"))
	assertInt(t, 0, do(e, "exists", "k"))
}
