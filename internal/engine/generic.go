package engine

import (
	"time"

	"github.com/flashdb/flashkv/internal/store"
)

func registerGeneric(e *Engine) {
	e.Register(&Command{Name: "ping", MinArgs: 0, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdPing})
	e.Register(&Command{Name: "echo", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdEcho})
	e.Register(&Command{Name: "del", MinArgs: 1, MaxArgs: -1, Flags: FlagWrite, Run: cmdDel})
	e.Register(&Command{Name: "exists", MinArgs: 1, MaxArgs: -1, Flags: FlagReadOnly, Run: cmdExists})
	e.Register(&Command{Name: "type", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdType})
	e.Register(&Command{Name: "expire", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: expireCommand("expire", time.Second, false)})
	e.Register(&Command{Name: "pexpire", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: expireCommand("pexpire", time.Millisecond, false)})
	e.Register(&Command{Name: "expireat", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: expireCommand("expireat", time.Second, true)})
	e.Register(&Command{Name: "pexpireat", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: expireCommand("pexpireat", time.Millisecond, true)})
	e.Register(&Command{Name: "ttl", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: ttlCommand(time.Second)})
	e.Register(&Command{Name: "pttl", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: ttlCommand(time.Millisecond)})
	e.Register(&Command{Name: "persist", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Run: cmdPersist})
	e.Register(&Command{Name: "scan", MinArgs: 1, MaxArgs: 5, Flags: FlagReadOnly, Check: checkScan, Run: cmdScan})
	e.Register(&Command{Name: "dbsize", MinArgs: 0, MaxArgs: 0, Flags: FlagReadOnly, Run: cmdDBSize})
	e.Register(&Command{Name: "flushdb", MinArgs: 0, MaxArgs: 1, Flags: FlagWrite, Run: cmdFlushDB})
	e.Register(&Command{Name: "info", MinArgs: 0, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdInfo})
}

func cmdPing(c *Ctx, args [][]byte) (Reply, error) {
	if len(args) == 1 {
		return BulkReply(args[0]), nil
	}
	return StatusReply("PONG"), nil
}

func cmdEcho(c *Ctx, args [][]byte) (Reply, error) {
	return BulkReply(args[0]), nil
}

func cmdDel(c *Ctx, args [][]byte) (Reply, error) {
	var n int64
	for _, key := range args {
		if _, ok := c.lookup(key); ok {
			c.db.Remove(string(key))
			n++
		}
	}
	return IntReply(n), nil
}

// EXISTS counts repeated keys once per occurrence.
func cmdExists(c *Ctx, args [][]byte) (Reply, error) {
	var n int64
	for _, key := range args {
		if _, ok := c.lookup(key); ok {
			n++
		}
	}
	return IntReply(n), nil
}

func cmdType(c *Ctx, args [][]byte) (Reply, error) {
	e, ok := c.lookup(args[0])
	if !ok {
		return StatusReply(store.KindNone.String()), nil
	}
	return StatusReply(e.Value.Kind().String()), nil
}

// expireCommand builds EXPIRE, PEXPIRE, EXPIREAT and PEXPIREAT. A deadline
// at or before now deletes the key right away.
func expireCommand(name string, unit time.Duration, absolute bool) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		n, err := parseInt(args[1])
		if err != nil {
			return Reply{}, err
		}
		d, ok := scaleExpire(n, unit)
		if !ok {
			return Reply{}, invalidExpire(name)
		}
		if _, ok := c.lookup(args[0]); !ok {
			return IntReply(0), nil
		}

		var at time.Time
		if absolute {
			at = time.Unix(0, 0).Add(d)
		} else {
			at = c.now.Add(d)
		}

		key := string(args[0])
		if !at.After(c.now) {
			c.db.Remove(key)
			return IntReply(1), nil
		}
		c.db.SetExpire(key, at)
		return IntReply(1), nil
	}
}

// ttlCommand builds TTL and PTTL: -2 for a missing key, -1 for a key
// without expiry.
func ttlCommand(unit time.Duration) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		d, state := c.db.TTL(string(args[0]), c.now)
		switch state {
		case store.TTLMissing:
			return IntReply(-2), nil
		case store.TTLPersistent:
			return IntReply(-1), nil
		}
		ms := d.Milliseconds()
		if unit == time.Second {
			return IntReply((ms + 500) / 1000), nil
		}
		return IntReply(ms), nil
	}
}

func cmdPersist(c *Ctx, args [][]byte) (Reply, error) {
	if _, ok := c.lookup(args[0]); !ok {
		return IntReply(0), nil
	}
	return BoolReply(c.db.Persist(string(args[0]))), nil
}

type scanArgs struct {
	cursor  string
	pattern string
	count   int
}

func parseScan(args [][]byte) (scanArgs, error) {
	sa := scanArgs{cursor: string(args[0]), count: 10}
	for i := 1; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return sa, ErrInvalidArgs
		}
		switch {
		case argIs(args[i], "MATCH"):
			sa.pattern = string(args[i+1])
		case argIs(args[i], "COUNT"):
			n, err := parseInt(args[i+1])
			if err != nil {
				return sa, err
			}
			if n <= 0 {
				return sa, ErrInvalidArgs
			}
			sa.count = int(n)
		default:
			return sa, ErrInvalidArgs
		}
	}
	return sa, nil
}

func checkScan(args [][]byte) error {
	_, err := parseScan(args)
	return err
}

// SCAN cursor [MATCH pattern] [COUNT n]. The cursor is the last key of the
// previous page; "" starts a walk and marks its end.
func cmdScan(c *Ctx, args [][]byte) (Reply, error) {
	sa, err := parseScan(args)
	if err != nil {
		return Reply{}, err
	}
	page := c.db.Scan(sa.cursor, sa.count, sa.pattern, c.now)
	return ArrayReply([]Reply{BulkString(page.Next), KeyStrings(page.Keys)}), nil
}

// DBSIZE leaves out keys that are expired but not yet removed.
func cmdDBSize(c *Ctx, args [][]byte) (Reply, error) {
	return IntReply(int64(c.db.LiveLen(c.now))), nil
}

func cmdFlushDB(c *Ctx, args [][]byte) (Reply, error) {
	if len(args) == 1 && !argIs(args[0], "ASYNC") && !argIs(args[0], "SYNC") {
		return Reply{}, ErrInvalidArgs
	}
	c.db.Flush()
	return OK(), nil
}
