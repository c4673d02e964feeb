package engine

import (
	"math"
	"time"

	"github.com/flashdb/flashkv/internal/store"
)

func registerStrings(e *Engine) {
	e.Register(&Command{Name: "get", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdGet})
	e.Register(&Command{Name: "set", MinArgs: 2, MaxArgs: 6, Flags: FlagWrite, Check: checkSet, Run: cmdSet})
	e.Register(&Command{Name: "setnx", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: cmdSetNX})
	e.Register(&Command{Name: "setex", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Check: checkSetEx("setex", time.Second), Run: setExCommand("setex", time.Second)})
	e.Register(&Command{Name: "psetex", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Check: checkSetEx("psetex", time.Millisecond), Run: setExCommand("psetex", time.Millisecond)})
	e.Register(&Command{Name: "mget", MinArgs: 1, MaxArgs: -1, Flags: FlagReadOnly, Run: cmdMGet})
	e.Register(&Command{Name: "mset", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Check: checkPairs(0), Run: cmdMSet})
	e.Register(&Command{Name: "getset", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: cmdGetSet})
	e.Register(&Command{Name: "getdel", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Run: cmdGetDel})
	e.Register(&Command{Name: "append", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: cmdAppend})
	e.Register(&Command{Name: "strlen", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdStrLen})
	e.Register(&Command{Name: "incr", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Run: incrCommand(1, false)})
	e.Register(&Command{Name: "decr", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Run: incrCommand(-1, false)})
	e.Register(&Command{Name: "incrby", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: incrCommand(1, true)})
	e.Register(&Command{Name: "decrby", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Run: incrCommand(-1, true)})
}

// checkPairs validates that the arguments after skip come in pairs.
func checkPairs(skip int) func([][]byte) error {
	return func(args [][]byte) error {
		if (len(args)-skip)%2 != 0 || len(args) == skip {
			return ErrInvalidArgs
		}
		return nil
	}
}

func cmdGet(c *Ctx, args [][]byte) (Reply, error) {
	v, ok, err := c.str(args[0])
	if err != nil {
		return Reply{}, err
	}
	if !ok {
		return NilReply(), nil
	}
	return BulkReply(v), nil
}

type setOptions struct {
	ttl time.Duration
	nx  bool
	xx  bool
}

// parseSet reads SET key value [EX seconds | PX milliseconds] [NX | XX].
func parseSet(args [][]byte) (setOptions, error) {
	var opts setOptions
	expireSet := false
	for i := 2; i < len(args); i++ {
		switch {
		case argIs(args[i], "EX"), argIs(args[i], "PX"):
			if expireSet || i+1 >= len(args) {
				return opts, ErrInvalidArgs
			}
			n, err := parseInt(args[i+1])
			if err != nil {
				return opts, err
			}
			unit := time.Second
			if argIs(args[i], "PX") {
				unit = time.Millisecond
			}
			ttl, ok := scaleExpire(n, unit)
			if n <= 0 || !ok {
				return opts, ErrInvalidExpire
			}
			opts.ttl = ttl
			expireSet = true
			i++
		case argIs(args[i], "NX"):
			if opts.nx {
				return opts, ErrInvalidArgs
			}
			opts.nx = true
		case argIs(args[i], "XX"):
			if opts.xx {
				return opts, ErrInvalidArgs
			}
			opts.xx = true
		default:
			return opts, ErrInvalidArgs
		}
	}
	if opts.nx && opts.xx {
		return opts, ErrInvalidArgs
	}
	return opts, nil
}

func checkSet(args [][]byte) error {
	_, err := parseSet(args)
	return err
}

// SET replaces a value of any type and clears the previous expiry.
func cmdSet(c *Ctx, args [][]byte) (Reply, error) {
	opts, err := parseSet(args)
	if err != nil {
		return Reply{}, err
	}
	_, exists := c.lookup(args[0])
	if (opts.nx && exists) || (opts.xx && !exists) {
		return NilReply(), nil
	}

	entry := &store.Entry{Value: store.StringValue(args[1])}
	if opts.ttl > 0 {
		entry.ExpireAt = c.now.Add(opts.ttl)
		entry.HasExpire = true
	}
	c.db.Put(string(args[0]), entry)
	return OK(), nil
}

func cmdSetNX(c *Ctx, args [][]byte) (Reply, error) {
	if _, exists := c.lookup(args[0]); exists {
		return IntReply(0), nil
	}
	c.setString(args[0], args[1], false)
	return IntReply(1), nil
}

// parseSetEx reads the SETEX/PSETEX ttl. A ttl that is not an integer is
// an argument error, not a value error.
func parseSetEx(name string, unit time.Duration, arg []byte) (time.Duration, error) {
	n, err := parseInt(arg)
	if err != nil {
		return 0, ErrInvalidArgs
	}
	ttl, ok := scaleExpire(n, unit)
	if n <= 0 || !ok {
		return 0, invalidExpire(name)
	}
	return ttl, nil
}

func checkSetEx(name string, unit time.Duration) func([][]byte) error {
	return func(args [][]byte) error {
		_, err := parseSetEx(name, unit, args[1])
		return err
	}
}

func setExCommand(name string, unit time.Duration) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		ttl, err := parseSetEx(name, unit, args[1])
		if err != nil {
			return Reply{}, err
		}
		c.db.Put(string(args[0]), &store.Entry{
			Value:     store.StringValue(args[2]),
			ExpireAt:  c.now.Add(ttl),
			HasExpire: true,
		})
		return OK(), nil
	}
}

// MGET answers nil for missing keys and keys of another type.
func cmdMGet(c *Ctx, args [][]byte) (Reply, error) {
	items := make([]Reply, len(args))
	for i, key := range args {
		e, ok := c.lookup(key)
		if !ok || e.Value.Kind() != store.KindString {
			items[i] = NilReply()
			continue
		}
		items[i] = BulkReply(e.Value.Str())
	}
	return ArrayReply(items), nil
}

func cmdMSet(c *Ctx, args [][]byte) (Reply, error) {
	for i := 0; i+1 < len(args); i += 2 {
		c.setString(args[i], args[i+1], false)
	}
	return OK(), nil
}

func cmdGetSet(c *Ctx, args [][]byte) (Reply, error) {
	old, ok, err := c.str(args[0])
	if err != nil {
		return Reply{}, err
	}
	reply := NilReply()
	if ok {
		reply = BulkReply(old)
	}
	c.setString(args[0], args[1], false)
	return reply, nil
}

func cmdGetDel(c *Ctx, args [][]byte) (Reply, error) {
	v, ok, err := c.str(args[0])
	if err != nil {
		return Reply{}, err
	}
	if !ok {
		return NilReply(), nil
	}
	c.db.Remove(string(args[0]))
	return BulkReply(v), nil
}

func cmdAppend(c *Ctx, args [][]byte) (Reply, error) {
	old, _, err := c.str(args[0])
	if err != nil {
		return Reply{}, err
	}
	joined := make([]byte, 0, len(old)+len(args[1]))
	joined = append(append(joined, old...), args[1]...)
	c.setString(args[0], joined, true)
	return IntReply(int64(len(joined))), nil
}

func cmdStrLen(c *Ctx, args [][]byte) (Reply, error) {
	v, _, err := c.str(args[0])
	if err != nil {
		return Reply{}, err
	}
	return IntReply(int64(len(v))), nil
}

// incrCommand builds INCR, DECR, INCRBY and DECRBY. A missing key counts as
// zero and the expiry of an existing key is kept.
func incrCommand(sign int64, hasDelta bool) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		delta := int64(1)
		if hasDelta {
			n, err := parseInt(args[1])
			if err != nil {
				return Reply{}, err
			}
			delta = n
		}
		if sign < 0 {
			if delta == math.MinInt64 {
				return Reply{}, ErrOverflow
			}
			delta = -delta
		}

		cur, ok, err := c.str(args[0])
		if err != nil {
			return Reply{}, err
		}
		var n int64
		if ok {
			if n, err = parseInt(cur); err != nil {
				return Reply{}, err
			}
		}
		if (delta > 0 && n > math.MaxInt64-delta) || (delta < 0 && n < math.MinInt64-delta) {
			return Reply{}, ErrOverflow
		}
		n += delta
		c.setString(args[0], formatInt(n), true)
		return IntReply(n), nil
	}
}
