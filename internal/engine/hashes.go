package engine

import (
	"math"
	"strconv"
)

func registerHashes(e *Engine) {
	e.Register(&Command{Name: "hget", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: cmdHGet})
	e.Register(&Command{Name: "hset", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Check: checkPairs(1), Run: cmdHSet})
	e.Register(&Command{Name: "hmset", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Check: checkPairs(1), Run: cmdHMSet})
	e.Register(&Command{Name: "hmget", MinArgs: 2, MaxArgs: -1, Flags: FlagReadOnly, Run: cmdHMGet})
	e.Register(&Command{Name: "hdel", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Run: cmdHDel})
	e.Register(&Command{Name: "hlen", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdHLen})
	e.Register(&Command{Name: "hexists", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: cmdHExists})
	e.Register(&Command{Name: "hstrlen", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: cmdHStrLen})
	e.Register(&Command{Name: "hkeys", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdHKeys})
	e.Register(&Command{Name: "hvals", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdHVals})
	e.Register(&Command{Name: "hgetall", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdHGetAll})
	e.Register(&Command{Name: "hincrby", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Check: checkHIncrBy, Run: cmdHIncrBy})
}

func cmdHGet(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return NilReply(), err
	}
	v, ok := h.Get(string(args[1]))
	if !ok {
		return NilReply(), nil
	}
	return BulkReply(v), nil
}

func hsetPairs(c *Ctx, args [][]byte) (int64, error) {
	h, err := c.hashOrCreate(args[0])
	if err != nil {
		return 0, err
	}
	var added int64
	for i := 1; i+1 < len(args); i += 2 {
		if h.Set(string(args[i]), args[i+1]) {
			added++
		}
	}
	return added, nil
}

// HSET answers the number of fields that were created.
func cmdHSet(c *Ctx, args [][]byte) (Reply, error) {
	added, err := hsetPairs(c, args)
	if err != nil {
		return Reply{}, err
	}
	return IntReply(added), nil
}

func cmdHMSet(c *Ctx, args [][]byte) (Reply, error) {
	if _, err := hsetPairs(c, args); err != nil {
		return Reply{}, err
	}
	return OK(), nil
}

func cmdHMGet(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil {
		return Reply{}, err
	}
	items := make([]Reply, len(args)-1)
	for i, field := range args[1:] {
		items[i] = NilReply()
		if h == nil {
			continue
		}
		if v, ok := h.Get(string(field)); ok {
			items[i] = BulkReply(v)
		}
	}
	return ArrayReply(items), nil
}

func cmdHDel(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return IntReply(0), err
	}
	fields := make([]string, len(args)-1)
	for i, f := range args[1:] {
		fields[i] = string(f)
	}
	n := h.Del(fields...)
	c.dropIfEmpty(args[0], h.Len())
	return IntReply(int64(n)), nil
}

func cmdHLen(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return IntReply(0), err
	}
	return IntReply(int64(h.Len())), nil
}

func cmdHExists(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return IntReply(0), err
	}
	return BoolReply(h.Exists(string(args[1]))), nil
}

func cmdHStrLen(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return IntReply(0), err
	}
	v, _ := h.Get(string(args[1]))
	return IntReply(int64(len(v))), nil
}

func cmdHKeys(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return ArrayReply(nil), err
	}
	return KeyStrings(h.Keys()), nil
}

func cmdHVals(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return ArrayReply(nil), err
	}
	return BulkStrings(h.Vals()), nil
}

func cmdHGetAll(c *Ctx, args [][]byte) (Reply, error) {
	h, err := c.hash(args[0])
	if err != nil || h == nil {
		return ArrayReply(nil), err
	}
	pairs := h.GetAll()
	items := make([]Reply, 0, 2*len(pairs))
	for _, p := range pairs {
		items = append(items, BulkString(p.Field), BulkReply(p.Value))
	}
	return ArrayReply(items), nil
}

// The increment must parse; a stored field that does not is ErrHashNotInt.
func checkHIncrBy(args [][]byte) error {
	if _, err := parseInt(args[2]); err != nil {
		return ErrInvalidArgs
	}
	return nil
}

func cmdHIncrBy(c *Ctx, args [][]byte) (Reply, error) {
	delta, err := parseInt(args[2])
	if err != nil {
		return Reply{}, ErrInvalidArgs
	}
	h, err := c.hash(args[0])
	if err != nil {
		return Reply{}, err
	}

	field := string(args[1])
	var n int64
	if h != nil {
		if cur, ok := h.Get(field); ok {
			n, err = strconv.ParseInt(string(cur), 10, 64)
			if err != nil {
				return Reply{}, ErrHashNotInt
			}
		}
	}
	if (delta > 0 && n > math.MaxInt64-delta) || (delta < 0 && n < math.MinInt64-delta) {
		return Reply{}, ErrOverflow
	}
	n += delta

	if h == nil {
		if h, err = c.hashOrCreate(args[0]); err != nil {
			return Reply{}, err
		}
	}
	h.Set(field, formatInt(n))
	return IntReply(n), nil
}
