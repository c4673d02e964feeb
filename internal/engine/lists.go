package engine

import "github.com/flashdb/flashkv/internal/store"

func registerLists(e *Engine) {
	e.Register(&Command{Name: "lpush", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Run: pushCommand(true)})
	e.Register(&Command{Name: "rpush", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Run: pushCommand(false)})
	e.Register(&Command{Name: "lpop", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Check: checkPopCount, Run: popCommand(true)})
	e.Register(&Command{Name: "rpop", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Check: checkPopCount, Run: popCommand(false)})
	e.Register(&Command{Name: "llen", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdLLen})
	e.Register(&Command{Name: "lindex", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: cmdLIndex})
	e.Register(&Command{Name: "lrange", MinArgs: 3, MaxArgs: 3, Flags: FlagReadOnly, Run: cmdLRange})
	e.Register(&Command{Name: "lset", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Run: cmdLSet})
	e.Register(&Command{Name: "ltrim", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Run: cmdLTrim})
	e.Register(&Command{Name: "lrem", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Run: cmdLRem})
	e.Register(&Command{Name: "linsert", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Check: checkLInsert, Run: cmdLInsert})
}

func pushCommand(left bool) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		l, err := c.listOrCreate(args[0])
		if err != nil {
			return Reply{}, err
		}
		var n int
		if left {
			n = l.LPush(args[1:]...)
		} else {
			n = l.RPush(args[1:]...)
		}
		return IntReply(int64(n)), nil
	}
}

func checkPopCount(args [][]byte) error {
	if len(args) == 2 {
		n, err := parseInt(args[1])
		if err != nil {
			return err
		}
		if n < 0 {
			return ErrInvalidArgs
		}
	}
	return nil
}

// popCommand builds LPOP and RPOP. Without a count the reply is a single
// bulk value; with one it is an array.
func popCommand(left bool) Handler {
	pop := func(l *store.List) ([]byte, bool) {
		if left {
			return l.LPop()
		}
		return l.RPop()
	}
	return func(c *Ctx, args [][]byte) (Reply, error) {
		l, err := c.list(args[0])
		if err != nil {
			return Reply{}, err
		}
		if len(args) == 1 {
			if l == nil {
				return NilReply(), nil
			}
			v, _ := pop(l)
			c.dropIfEmpty(args[0], l.Len())
			return BulkReply(v), nil
		}

		count, _ := parseInt(args[1])
		if l == nil {
			return NilReply(), nil
		}
		if count > int64(l.Len()) {
			count = int64(l.Len())
		}
		items := make([]Reply, 0, count)
		for i := int64(0); i < count; i++ {
			v, ok := pop(l)
			if !ok {
				break
			}
			items = append(items, BulkReply(v))
		}
		c.dropIfEmpty(args[0], l.Len())
		return ArrayReply(items), nil
	}
}

func cmdLLen(c *Ctx, args [][]byte) (Reply, error) {
	l, err := c.list(args[0])
	if err != nil || l == nil {
		return IntReply(0), err
	}
	return IntReply(int64(l.Len())), nil
}

func cmdLIndex(c *Ctx, args [][]byte) (Reply, error) {
	idx, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	l, err := c.list(args[0])
	if err != nil || l == nil {
		return NilReply(), err
	}
	v, ok := l.Index(idx)
	if !ok {
		return NilReply(), nil
	}
	return BulkReply(v), nil
}

func cmdLRange(c *Ctx, args [][]byte) (Reply, error) {
	start, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return Reply{}, err
	}
	l, err := c.list(args[0])
	if err != nil || l == nil {
		return ArrayReply(nil), err
	}
	return BulkStrings(l.Range(start, stop)), nil
}

// LSET distinguishes a missing key from an index outside the list.
func cmdLSet(c *Ctx, args [][]byte) (Reply, error) {
	idx, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	l, err := c.list(args[0])
	if err != nil {
		return Reply{}, err
	}
	if l == nil {
		return Reply{}, ErrNoSuchKey
	}
	if !l.Set(idx, args[2]) {
		return Reply{}, ErrOutOfRange
	}
	return OK(), nil
}

func cmdLTrim(c *Ctx, args [][]byte) (Reply, error) {
	start, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return Reply{}, err
	}
	l, err := c.list(args[0])
	if err != nil || l == nil {
		return OK(), err
	}
	l.Trim(start, stop)
	c.dropIfEmpty(args[0], l.Len())
	return OK(), nil
}

func cmdLRem(c *Ctx, args [][]byte) (Reply, error) {
	count, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	l, err := c.list(args[0])
	if err != nil || l == nil {
		return IntReply(0), err
	}
	n := l.Rem(count, args[2])
	c.dropIfEmpty(args[0], l.Len())
	return IntReply(int64(n)), nil
}

func checkLInsert(args [][]byte) error {
	if !argIs(args[1], "BEFORE") && !argIs(args[1], "AFTER") {
		return ErrInvalidArgs
	}
	return nil
}

// LINSERT answers -1 when the pivot is absent and 0 when the key is.
func cmdLInsert(c *Ctx, args [][]byte) (Reply, error) {
	l, err := c.list(args[0])
	if err != nil || l == nil {
		return IntReply(0), err
	}
	n := l.Insert(argIs(args[1], "BEFORE"), args[2], args[3])
	return IntReply(int64(n)), nil
}
