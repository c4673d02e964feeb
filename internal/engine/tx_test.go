package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(e *Engine, tx *Tx, name string, args ...string) Reply {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return e.Handle(tx, name, raw)
}

func TestTx_QueueAndExec(t *testing.T) {
	e := newTestEngine(t)
	tx := &Tx{}

	requireOK(t, handle(e, tx, "multi"))
	assert.True(t, tx.Queuing())
	assert.Equal(t, "QUEUED", string(handle(e, tx, "set", "a", "1").Str))
	assert.Equal(t, "QUEUED", string(handle(e, tx, "incr", "a").Str))
	assert.Equal(t, "QUEUED", string(handle(e, tx, "get", "a").Str))
	assert.Equal(t, 3, tx.Len())

	// Nothing ran yet.
	assertInt(t, 0, do(e, "exists", "a"))

	r := handle(e, tx, "exec")
	require.Equal(t, ReplyArray, r.Kind)
	require.Len(t, r.Array, 3)
	requireOK(t, r.Array[0])
	assertInt(t, 2, r.Array[1])
	assertBulk(t, "2", r.Array[2])
	assert.False(t, tx.Queuing())
}

func TestTx_EmptyExec(t *testing.T) {
	e := newTestEngine(t)
	tx := &Tx{}
	requireOK(t, handle(e, tx, "multi"))
	r := handle(e, tx, "exec")
	require.Equal(t, ReplyArray, r.Kind)
	assert.Empty(t, r.Array)
}

func TestTx_StateErrors(t *testing.T) {
	e := newTestEngine(t)
	tx := &Tx{}

	assertErr(t, ErrExecNoMulti, handle(e, tx, "exec"))
	assertErr(t, ErrDiscardNoMulti, handle(e, tx, "discard"))

	requireOK(t, handle(e, tx, "multi"))
	handle(e, tx, "set", "a", "1")
	assertErr(t, ErrNestedMulti, handle(e, tx, "multi"))
	assert.True(t, tx.Queuing())
	assert.Equal(t, 1, tx.Len(), "nested MULTI leaves the queue intact")

	requireOK(t, handle(e, tx, "discard"))
	assert.False(t, tx.Queuing())
	assertInt(t, 0, do(e, "exists", "a"))
}

func TestTx_InvalidCommandRejectedAtQueueTime(t *testing.T) {
	e := newTestEngine(t)
	tx := &Tx{}
	requireOK(t, handle(e, tx, "multi"))
	handle(e, tx, "set", "a", "1")

	assertErr(t, ErrInvalidArgs, handle(e, tx, "get"))
	assertErr(t, ErrInvalidArgs, handle(e, tx, "bogus"))
	assertErr(t, ErrInvalidArgs, handle(e, tx, "set", "a", "1", "NX", "XX"))
	assertErr(t, ErrInvalidArgs, handle(e, tx, "hincrby", "h", "f", "x"))
	assertErr(t, ErrInvalidArgs, handle(e, tx, "setex", "s", "x", "v"))
	assert.True(t, tx.Queuing())
	assert.Equal(t, 1, tx.Len())

	r := handle(e, tx, "exec")
	require.Len(t, r.Array, 1)
	assertBulk(t, "1", do(e, "get", "a"))
}

func TestTx_RuntimeErrorDoesNotAbortBatch(t *testing.T) {
	e := newTestEngine(t)
	tx := &Tx{}
	do(e, "set", "s", "text")

	requireOK(t, handle(e, tx, "multi"))
	handle(e, tx, "incr", "s")
	handle(e, tx, "set", "after", "ok")
	r := handle(e, tx, "exec")

	require.Len(t, r.Array, 2)
	assertErr(t, ErrNotInteger, r.Array[0])
	requireOK(t, r.Array[1])
	assertBulk(t, "ok", do(e, "get", "after"))
}

func TestTx_NilTxBehavesLikeFreshConnection(t *testing.T) {
	e := newTestEngine(t)
	assertErr(t, ErrExecNoMulti, do(e, "exec"))
	requireOK(t, do(e, "multi"))
	requireOK(t, do(e, "set", "a", "1"))
}

func TestTx_ReaderNeverSeesPartialBatch(t *testing.T) {
	e := newTestEngine(t)
	const rounds = 200

	var torn atomic.Int64
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			r := do(e, "mget", "a", "b")
			a, b := r.Array[0], r.Array[1]
			if a.Kind != b.Kind || string(a.Str) != string(b.Str) {
				torn.Add(1)
			}
		}
	}()

	tx := &Tx{}
	for i := 0; i < rounds; i++ {
		v := fmt.Sprint(i)
		handle(e, tx, "multi")
		handle(e, tx, "set", "a", v)
		handle(e, tx, "set", "b", v)
		handle(e, tx, "exec")
	}
	close(stop)
	wg.Wait()
	assert.Zero(t, torn.Load())
}
