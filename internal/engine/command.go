package engine

import (
	"strings"
	"time"

	"github.com/flashdb/flashkv/internal/store"
)

// Flag describes how a command is scheduled.
type Flag uint16

const (
	// FlagWrite commands mutate the keyspace and run under the write lock.
	FlagWrite Flag = 1 << iota
	// FlagReadOnly commands share the read lock with other readers.
	FlagReadOnly
	// FlagNoScript commands cannot be issued through redis.call.
	FlagNoScript
	// FlagTx marks MULTI, EXEC and DISCARD.
	FlagTx
	// FlagExclusive commands take the write lock even if they only read.
	FlagExclusive
)

// Handler executes a validated command.
type Handler func(c *Ctx, args [][]byte) (Reply, error)

// Command is one entry of the command table. Arity counts arguments after
// the command name; MaxArgs < 0 means unbounded.
type Command struct {
	Name    string
	MinArgs int
	MaxArgs int
	Flags   Flag
	// Check validates option syntax without touching the keyspace. It runs
	// before queueing inside MULTI and before execution.
	Check func(args [][]byte) error
	Run   Handler
}

func (cmd *Command) validate(args [][]byte) error {
	if len(args) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(args) > cmd.MaxArgs) {
		return ErrInvalidArgs
	}
	if cmd.Check != nil {
		return cmd.Check(args)
	}
	return nil
}

func (cmd *Command) exclusive() bool {
	return cmd.Flags&(FlagWrite|FlagExclusive) != 0
}

// Ctx is the view of the keyspace handed to a running command. It is only
// valid while the lock taken for the command is held.
type Ctx struct {
	e      *Engine
	db     *store.Keyspace
	now    time.Time
	write  bool
	script bool
}

// Now returns the instant the command (or batch) started.
func (c *Ctx) Now() time.Time { return c.now }

// Call runs another command on behalf of a script. The caller already holds
// exclusive access, so no lock is taken.
func (c *Ctx) Call(name string, args [][]byte) Reply {
	cmd, ok := c.e.lookupCommand(name)
	if !ok {
		return ErrReply(ErrInvalidArgs)
	}
	if cmd.Flags&(FlagNoScript|FlagTx) != 0 {
		return ErrReply(ErrNotFromScript)
	}
	inner := *c
	inner.script = true
	return c.e.invoke(&inner, cmd, args)
}

func (c *Ctx) lookup(key []byte) (*store.Entry, bool) {
	if c.write {
		return c.db.LookupWrite(string(key), c.now)
	}
	return c.db.Lookup(string(key), c.now)
}

func (c *Ctx) lookupKind(key []byte, kind store.Kind) (*store.Entry, error) {
	e, ok := c.lookup(key)
	if !ok {
		return nil, nil
	}
	if e.Value.Kind() != kind {
		return nil, ErrWrongType
	}
	return e, nil
}

func (c *Ctx) str(key []byte) ([]byte, bool, error) {
	e, err := c.lookupKind(key, store.KindString)
	if err != nil || e == nil {
		return nil, false, err
	}
	return e.Value.Str(), true, nil
}

func (c *Ctx) list(key []byte) (*store.List, error) {
	e, err := c.lookupKind(key, store.KindList)
	if err != nil || e == nil {
		return nil, err
	}
	return e.Value.List(), nil
}

func (c *Ctx) listOrCreate(key []byte) (*store.List, error) {
	l, err := c.list(key)
	if err != nil || l != nil {
		return l, err
	}
	l = store.NewList()
	c.db.Put(string(key), &store.Entry{Value: store.ListValue(l)})
	return l, nil
}

func (c *Ctx) hash(key []byte) (*store.Hash, error) {
	e, err := c.lookupKind(key, store.KindHash)
	if err != nil || e == nil {
		return nil, err
	}
	return e.Value.Hash(), nil
}

func (c *Ctx) hashOrCreate(key []byte) (*store.Hash, error) {
	h, err := c.hash(key)
	if err != nil || h != nil {
		return h, err
	}
	h = store.NewHash()
	c.db.Put(string(key), &store.Entry{Value: store.HashValue(h)})
	return h, nil
}

func (c *Ctx) set(key []byte) (*store.Set, error) {
	e, err := c.lookupKind(key, store.KindSet)
	if err != nil || e == nil {
		return nil, err
	}
	return e.Value.Set(), nil
}

func (c *Ctx) setOrCreate(key []byte) (*store.Set, error) {
	s, err := c.set(key)
	if err != nil || s != nil {
		return s, err
	}
	s = store.NewSet()
	c.db.Put(string(key), &store.Entry{Value: store.SetValue(s)})
	return s, nil
}

func (c *Ctx) zset(key []byte) (*store.SortedSet, error) {
	e, err := c.lookupKind(key, store.KindZSet)
	if err != nil || e == nil {
		return nil, err
	}
	return e.Value.ZSet(), nil
}

func (c *Ctx) zsetOrCreate(key []byte) (*store.SortedSet, error) {
	z, err := c.zset(key)
	if err != nil || z != nil {
		return z, err
	}
	z = store.NewSortedSet()
	c.db.Put(string(key), &store.Entry{Value: store.ZSetValue(z)})
	return z, nil
}

// dropIfEmpty deletes key once a removal left its container empty.
func (c *Ctx) dropIfEmpty(key []byte, n int) {
	if n == 0 {
		c.db.Remove(string(key))
	}
}

// setString stores a string value, keeping the old expiry if keepTTL.
func (c *Ctx) setString(key []byte, value []byte, keepTTL bool) {
	entry := &store.Entry{Value: store.StringValue(value)}
	if keepTTL {
		if old, ok := c.lookup(key); ok && old.HasExpire {
			entry.ExpireAt = old.ExpireAt
			entry.HasExpire = true
		}
	}
	c.db.Put(string(key), entry)
}

func (e *Engine) lookupCommand(name string) (*Command, bool) {
	cmd, ok := e.commands[strings.ToLower(name)]
	return cmd, ok
}

// invoke validates and runs cmd with the lock already held.
func (e *Engine) invoke(c *Ctx, cmd *Command, args [][]byte) Reply {
	start := time.Now()
	reply := e.call(c, cmd, args)
	e.totalCommands.Add(1)
	e.stats.Record(cmd.Name, time.Since(start), reply.IsError())
	if reply.IsError() {
		e.logger.Debug("command failed", "cmd", cmd.Name, "kind", reply.Err.Kind.String(), "error", reply.Err.Msg)
	}
	return reply
}

func (e *Engine) call(c *Ctx, cmd *Command, args [][]byte) Reply {
	if err := cmd.validate(args); err != nil {
		return ErrReply(AsError(err))
	}
	reply, err := cmd.Run(c, args)
	if err != nil {
		return ErrReply(AsError(err))
	}
	return reply
}
