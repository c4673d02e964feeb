package engine

import (
	"math"

	"github.com/flashdb/flashkv/internal/store"
)

var errScoreNaN = NewError(KindNotNumber, "ERR resulting score is not a number (NaN)")

func registerZSets(e *Engine) {
	e.Register(&Command{Name: "zadd", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Check: checkZAdd, Run: cmdZAdd})
	e.Register(&Command{Name: "zincrby", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Run: cmdZIncrBy})
	e.Register(&Command{Name: "zcard", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdZCard})
	e.Register(&Command{Name: "zscore", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: cmdZScore})
	e.Register(&Command{Name: "zrem", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Run: cmdZRem})
	e.Register(&Command{Name: "zrank", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: rankCommand(false)})
	e.Register(&Command{Name: "zrevrank", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: rankCommand(true)})
	e.Register(&Command{Name: "zcount", MinArgs: 3, MaxArgs: 3, Flags: FlagReadOnly, Run: cmdZCount})
	e.Register(&Command{Name: "zrange", MinArgs: 3, MaxArgs: 4, Flags: FlagReadOnly, Check: checkWithScores, Run: rangeCommand(false)})
	e.Register(&Command{Name: "zrevrange", MinArgs: 3, MaxArgs: 4, Flags: FlagReadOnly, Check: checkWithScores, Run: rangeCommand(true)})
	e.Register(&Command{Name: "zrangebyscore", MinArgs: 3, MaxArgs: 7, Flags: FlagReadOnly, Check: checkRangeByScore, Run: rangeByScoreCommand(false)})
	e.Register(&Command{Name: "zrevrangebyscore", MinArgs: 3, MaxArgs: 7, Flags: FlagReadOnly, Check: checkRangeByScore, Run: rangeByScoreCommand(true)})
	e.Register(&Command{Name: "zremrangebyscore", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Run: cmdZRemRangeByScore})
	e.Register(&Command{Name: "zremrangebyrank", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Run: cmdZRemRangeByRank})
	e.Register(&Command{Name: "zpopmin", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Check: checkPopCount, Run: zpopCommand(false)})
	e.Register(&Command{Name: "zpopmax", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Check: checkPopCount, Run: zpopCommand(true)})
}

type zaddArgs struct {
	nx, xx, ch, incr bool
	pairs            []store.ScoredMember
}

// parseZAdd reads ZADD key [NX|XX] [CH] [INCR] score member [score member ...].
// All scores are parsed before anything is written.
func parseZAdd(args [][]byte) (zaddArgs, error) {
	var za zaddArgs
	i := 1
flags:
	for ; i < len(args); i++ {
		switch {
		case argIs(args[i], "NX"):
			za.nx = true
		case argIs(args[i], "XX"):
			za.xx = true
		case argIs(args[i], "CH"):
			za.ch = true
		case argIs(args[i], "INCR"):
			za.incr = true
		default:
			break flags
		}
	}
	rest := args[i:]
	if za.nx && za.xx {
		return za, ErrInvalidArgs
	}
	if len(rest) == 0 || len(rest)%2 != 0 {
		return za, ErrInvalidArgs
	}
	if za.incr && len(rest) != 2 {
		return za, ErrInvalidArgs
	}
	za.pairs = make([]store.ScoredMember, 0, len(rest)/2)
	for j := 0; j < len(rest); j += 2 {
		score, err := parseFloat(rest[j])
		if err != nil {
			return za, err
		}
		za.pairs = append(za.pairs, store.ScoredMember{Member: string(rest[j+1]), Score: score})
	}
	return za, nil
}

func checkZAdd(args [][]byte) error {
	_, err := parseZAdd(args)
	return err
}

// ZADD: NX only creates, XX only updates, CH counts changed scores as well
// as new members.
func cmdZAdd(c *Ctx, args [][]byte) (Reply, error) {
	za, err := parseZAdd(args)
	if err != nil {
		return Reply{}, err
	}
	z, err := c.zset(args[0])
	if err != nil {
		return Reply{}, err
	}
	if z == nil {
		if za.xx {
			if za.incr {
				return NilReply(), nil
			}
			return IntReply(0), nil
		}
		if z, err = c.zsetOrCreate(args[0]); err != nil {
			return Reply{}, err
		}
	}

	if za.incr {
		p := za.pairs[0]
		_, exists := z.Score(p.Member)
		if (za.nx && exists) || (za.xx && !exists) {
			c.dropIfEmpty(args[0], z.Card())
			return NilReply(), nil
		}
		cur, _ := z.Score(p.Member)
		next := cur + p.Score
		if math.IsNaN(next) {
			c.dropIfEmpty(args[0], z.Card())
			return Reply{}, errScoreNaN
		}
		z.Add(p.Member, next)
		return BulkString(formatFloat(next)), nil
	}

	var counted int64
	for _, p := range za.pairs {
		_, exists := z.Score(p.Member)
		if (za.nx && exists) || (za.xx && !exists) {
			continue
		}
		added, changed := z.Add(p.Member, p.Score)
		if added || (za.ch && changed) {
			counted++
		}
	}
	c.dropIfEmpty(args[0], z.Card())
	return IntReply(counted), nil
}

func cmdZIncrBy(c *Ctx, args [][]byte) (Reply, error) {
	incr, err := parseFloat(args[1])
	if err != nil {
		return Reply{}, err
	}
	z, err := c.zset(args[0])
	if err != nil {
		return Reply{}, err
	}
	member := string(args[2])
	if z != nil {
		cur, _ := z.Score(member)
		if math.IsNaN(cur + incr) {
			return Reply{}, errScoreNaN
		}
	}
	if z == nil {
		if z, err = c.zsetOrCreate(args[0]); err != nil {
			return Reply{}, err
		}
	}
	return BulkString(formatFloat(z.IncrBy(member, incr))), nil
}

func cmdZCard(c *Ctx, args [][]byte) (Reply, error) {
	z, err := c.zset(args[0])
	if err != nil || z == nil {
		return IntReply(0), err
	}
	return IntReply(int64(z.Card())), nil
}

func cmdZScore(c *Ctx, args [][]byte) (Reply, error) {
	z, err := c.zset(args[0])
	if err != nil || z == nil {
		return NilReply(), err
	}
	score, ok := z.Score(string(args[1]))
	if !ok {
		return NilReply(), nil
	}
	return BulkString(formatFloat(score)), nil
}

func cmdZRem(c *Ctx, args [][]byte) (Reply, error) {
	z, err := c.zset(args[0])
	if err != nil || z == nil {
		return IntReply(0), err
	}
	n := z.Remove(members(args[1:])...)
	c.dropIfEmpty(args[0], z.Card())
	return IntReply(int64(n)), nil
}

func rankCommand(reverse bool) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		z, err := c.zset(args[0])
		if err != nil || z == nil {
			return NilReply(), err
		}
		var (
			rank int
			ok   bool
		)
		if reverse {
			rank, ok = z.RevRank(string(args[1]))
		} else {
			rank, ok = z.Rank(string(args[1]))
		}
		if !ok {
			return NilReply(), nil
		}
		return IntReply(int64(rank)), nil
	}
}

func parseBounds(minArg, maxArg []byte) (store.ScoreBound, store.ScoreBound, error) {
	min, err := parseBound(minArg)
	if err != nil {
		return min, store.ScoreBound{}, err
	}
	max, err := parseBound(maxArg)
	return min, max, err
}

func cmdZCount(c *Ctx, args [][]byte) (Reply, error) {
	min, max, err := parseBounds(args[1], args[2])
	if err != nil {
		return Reply{}, err
	}
	z, err := c.zset(args[0])
	if err != nil || z == nil {
		return IntReply(0), err
	}
	return IntReply(int64(z.Count(min, max))), nil
}

func checkWithScores(args [][]byte) error {
	if len(args) == 4 && !argIs(args[3], "WITHSCORES") {
		return ErrInvalidArgs
	}
	return nil
}

func rangeCommand(reverse bool) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		start, err := parseIndex(args[1])
		if err != nil {
			return Reply{}, err
		}
		stop, err := parseIndex(args[2])
		if err != nil {
			return Reply{}, err
		}
		z, err := c.zset(args[0])
		if err != nil || z == nil {
			return ArrayReply(nil), err
		}
		var out []store.ScoredMember
		if reverse {
			out = z.RevRange(start, stop)
		} else {
			out = z.Range(start, stop)
		}
		return scoredReply(out, len(args) == 4), nil
	}
}

type byScoreArgs struct {
	withScores    bool
	offset, count int
}

func parseByScore(args [][]byte) (byScoreArgs, error) {
	bs := byScoreArgs{count: -1}
	for i := 3; i < len(args); i++ {
		switch {
		case argIs(args[i], "WITHSCORES"):
			bs.withScores = true
		case argIs(args[i], "LIMIT"):
			if i+2 >= len(args) {
				return bs, ErrInvalidArgs
			}
			off, err := parseIndex(args[i+1])
			if err != nil {
				return bs, err
			}
			cnt, err := parseIndex(args[i+2])
			if err != nil {
				return bs, err
			}
			bs.offset, bs.count = off, cnt
			i += 2
		default:
			return bs, ErrInvalidArgs
		}
	}
	return bs, nil
}

func checkRangeByScore(args [][]byte) error {
	_, err := parseByScore(args)
	return err
}

// rangeByScoreCommand builds ZRANGEBYSCORE key min max and
// ZREVRANGEBYSCORE key max min, both with [WITHSCORES] [LIMIT offset count].
func rangeByScoreCommand(reverse bool) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		bs, err := parseByScore(args)
		if err != nil {
			return Reply{}, err
		}
		minArg, maxArg := args[1], args[2]
		if reverse {
			minArg, maxArg = maxArg, minArg
		}
		min, max, err := parseBounds(minArg, maxArg)
		if err != nil {
			return Reply{}, err
		}
		z, err := c.zset(args[0])
		if err != nil || z == nil {
			return ArrayReply(nil), err
		}
		if bs.offset < 0 {
			return ArrayReply(nil), nil
		}
		var out []store.ScoredMember
		if reverse {
			out = z.RevRangeByScore(min, max, bs.offset, bs.count)
		} else {
			out = z.RangeByScore(min, max, bs.offset, bs.count)
		}
		return scoredReply(out, bs.withScores), nil
	}
}

func cmdZRemRangeByScore(c *Ctx, args [][]byte) (Reply, error) {
	min, max, err := parseBounds(args[1], args[2])
	if err != nil {
		return Reply{}, err
	}
	z, err := c.zset(args[0])
	if err != nil || z == nil {
		return IntReply(0), err
	}
	n := z.RemoveRangeByScore(min, max)
	c.dropIfEmpty(args[0], z.Card())
	return IntReply(int64(n)), nil
}

func cmdZRemRangeByRank(c *Ctx, args [][]byte) (Reply, error) {
	start, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return Reply{}, err
	}
	z, err := c.zset(args[0])
	if err != nil || z == nil {
		return IntReply(0), err
	}
	n := z.RemoveRangeByRank(start, stop)
	c.dropIfEmpty(args[0], z.Card())
	return IntReply(int64(n)), nil
}

// zpopCommand builds ZPOPMIN and ZPOPMAX. The reply is a flat
// member, score, member, score... array.
func zpopCommand(max bool) Handler {
	return func(c *Ctx, args [][]byte) (Reply, error) {
		count := 1
		if len(args) == 2 {
			n, err := parseIndex(args[1])
			if err != nil {
				return Reply{}, err
			}
			count = n
		}
		z, err := c.zset(args[0])
		if err != nil || z == nil {
			return ArrayReply(nil), err
		}
		var popped []store.ScoredMember
		if max {
			popped = z.PopMax(count)
		} else {
			popped = z.PopMin(count)
		}
		c.dropIfEmpty(args[0], z.Card())
		return scoredReply(popped, true), nil
	}
}
