package script

import (
	"strconv"
	"strings"

	"github.com/flashdb/flashkv/internal/engine"
)

// Register adds EVAL, EVALSHA and SCRIPT to e, backed by r.
func Register(e *engine.Engine, r *Runner) {
	e.Register(&engine.Command{
		Name: "eval", MinArgs: 2, MaxArgs: -1,
		Flags: engine.FlagExclusive | engine.FlagNoScript,
		Check: checkNumKeys,
		Run:   r.cmdEval,
	})
	e.Register(&engine.Command{
		Name: "evalsha", MinArgs: 2, MaxArgs: -1,
		Flags: engine.FlagExclusive | engine.FlagNoScript,
		Check: checkNumKeys,
		Run:   r.cmdEvalSHA,
	})
	e.Register(&engine.Command{
		Name: "script", MinArgs: 1, MaxArgs: -1,
		Flags: engine.FlagReadOnly | engine.FlagNoScript,
		Check: checkScript,
		Run:   r.cmdScript,
	})
}

// checkNumKeys validates "<body|sha> numkeys key... arg...".
func checkNumKeys(args [][]byte) error {
	_, err := splitKeys(args)
	return err
}

func splitKeys(args [][]byte) (int, error) {
	n, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return 0, engine.ErrNotInteger
	}
	if n < 0 || n > int64(len(args)-2) {
		return 0, engine.ErrInvalidArgs
	}
	return int(n), nil
}

func (r *Runner) cmdEval(c *engine.Ctx, args [][]byte) (engine.Reply, error) {
	_, proto, err := r.Load(args[0])
	if err != nil {
		return engine.Reply{}, err
	}
	n, err := splitKeys(args)
	if err != nil {
		return engine.Reply{}, err
	}
	return r.Run(c, proto, args[2:2+n], args[2+n:]), nil
}

func (r *Runner) cmdEvalSHA(c *engine.Ctx, args [][]byte) (engine.Reply, error) {
	proto, ok := r.cache.Get(string(args[0]))
	if !ok {
		return engine.Reply{}, engine.ErrNoScript
	}
	n, err := splitKeys(args)
	if err != nil {
		return engine.Reply{}, err
	}
	return r.Run(c, proto, args[2:2+n], args[2+n:]), nil
}

func checkScript(args [][]byte) error {
	rest := len(args) - 1
	switch strings.ToLower(string(args[0])) {
	case "load":
		if rest != 1 {
			return engine.ErrInvalidArgs
		}
	case "exists":
		if rest < 1 {
			return engine.ErrInvalidArgs
		}
	case "flush":
		if rest > 1 {
			return engine.ErrInvalidArgs
		}
		if rest == 1 {
			mode := strings.ToLower(string(args[1]))
			if mode != "async" && mode != "sync" {
				return engine.ErrInvalidArgs
			}
		}
	default:
		return engine.ErrInvalidArgs
	}
	return nil
}

func (r *Runner) cmdScript(c *engine.Ctx, args [][]byte) (engine.Reply, error) {
	switch strings.ToLower(string(args[0])) {
	case "load":
		sha, _, err := r.Load(args[1])
		if err != nil {
			return engine.Reply{}, err
		}
		return engine.BulkString(sha), nil
	case "exists":
		items := make([]engine.Reply, 0, len(args)-1)
		for _, sha := range args[1:] {
			items = append(items, engine.BoolReply(r.cache.Exists(string(sha))))
		}
		return engine.ArrayReply(items), nil
	default:
		n := r.cache.Len()
		r.cache.Flush()
		r.logger.Debug("script cache flushed", "scripts", n)
		return engine.OK(), nil
	}
}
