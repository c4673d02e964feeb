package script

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/flashdb/flashkv/internal/engine"
)

// Caller executes a command on behalf of a running script.
type Caller interface {
	Call(name string, args [][]byte) engine.Reply
}

const (
	errNoArgs   = "ERR Please specify at least one argument for this redis lib call"
	errBadArg   = "ERR Lua redis lib command arguments must be strings or integers"
	errBadLevel = "ERR Invalid debug level."
)

// Log levels accepted by redis.log.
const (
	LogDebug = iota
	LogVerbose
	LogNotice
	LogWarning
)

// Runner executes scripts. Every invocation gets a fresh Lua state, so
// globals and the random generator never leak between calls.
type Runner struct {
	cache   *Cache
	logger  *slog.Logger
	maxBody uint64
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger routes redis.log output and compile failures to l.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithMaxBody rejects script bodies larger than n bytes. Zero means no limit.
func WithMaxBody(n uint64) RunnerOption {
	return func(r *Runner) { r.maxBody = n }
}

// WithCache shares a script cache between runners.
func WithCache(c *Cache) RunnerOption {
	return func(r *Runner) { r.cache = c }
}

// NewRunner creates a Runner with an empty cache.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCache()
	}
	return r
}

// Cache returns the script cache.
func (r *Runner) Cache() *Cache { return r.cache }

// Load checks the size limit and compiles src into the cache.
func (r *Runner) Load(src []byte) (string, *lua.FunctionProto, error) {
	if r.maxBody > 0 && uint64(len(src)) > r.maxBody {
		return "", nil, ErrScriptTooLarge
	}
	sha, proto, err := r.cache.Load(src)
	if err != nil {
		r.logger.Debug("script compile failed", "sha", Sum(src), "error", err)
	}
	return sha, proto, err
}

// Run executes proto with KEYS and ARGV bound. Commands issued by the
// script go through c. Mutations made before a failure are kept.
func (r *Runner) Run(c Caller, proto *lua.FunctionProto, keys, argv [][]byte) engine.Reply {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	if err := r.openLibs(L); err != nil {
		return engine.ErrReply(engine.NewError(engine.KindScript, "ERR "+err.Error()))
	}
	L.SetGlobal("KEYS", stringArray(L, keys))
	L.SetGlobal("ARGV", stringArray(L, argv))
	r.registerRedis(L, c)

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return engine.ErrReply(scriptError(err))
	}
	ret := L.Get(-1)
	L.Pop(1)
	return FromLua(ret)
}

// scriptError turns an error escaping the script into a reply error. An
// error table raised by redis.call keeps its message; anything else is a
// runtime failure.
func scriptError(err error) *engine.Error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if t, ok := apiErr.Object.(*lua.LTable); ok {
			if msg := t.RawGetString("err"); msg != lua.LNil {
				return engine.NewError(engine.KindScript, msg.String())
			}
		}
		if apiErr.Object != nil && apiErr.Object != lua.LNil {
			return engine.NewError(engine.KindScript, "ERR "+oneLine(apiErr.Object.String()))
		}
	}
	return engine.NewError(engine.KindScript, "ERR "+oneLine(err.Error()))
}

func (r *Runner) openLibs(L *lua.LState) error {
	libs := []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return err
		}
	}
	for _, name := range []string{"dofile", "loadfile", "module", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	installRandom(L)
	return nil
}

// installRandom replaces math.random and math.randomseed with versions
// backed by a generator private to L. The generator starts from a fixed
// seed, so a script produces the same sequence on every run.
func installRandom(L *lua.LState) {
	src := rand.New(rand.NewSource(0))
	mathTbl, ok := L.GetGlobal(lua.MathLibName).(*lua.LTable)
	if !ok {
		return
	}
	L.SetField(mathTbl, "randomseed", L.NewFunction(func(L *lua.LState) int {
		src.Seed(int64(L.CheckNumber(1)))
		return 0
	}))
	L.SetField(mathTbl, "random", L.NewFunction(func(L *lua.LState) int {
		switch L.GetTop() {
		case 0:
			L.Push(lua.LNumber(src.Float64()))
		case 1:
			n := L.CheckInt(1)
			if n < 1 {
				L.ArgError(1, "interval is empty")
			}
			L.Push(lua.LNumber(src.Intn(n) + 1))
		default:
			lo, hi := L.CheckInt(1), L.CheckInt(2)
			if lo > hi {
				L.ArgError(2, "interval is empty")
			}
			L.Push(lua.LNumber(lo + src.Intn(hi-lo+1)))
		}
		return 1
	}))
}

func (r *Runner) registerRedis(L *lua.LState, c Caller) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"call":  func(L *lua.LState) int { return redisCall(L, c, false) },
		"pcall": func(L *lua.LState) int { return redisCall(L, c, true) },
		"sha1hex": func(L *lua.LState) int {
			L.Push(lua.LString(Sum([]byte(L.CheckString(1)))))
			return 1
		},
		"error_reply": func(L *lua.LState) int {
			L.Push(errorTable(L, L.CheckString(1)))
			return 1
		},
		"status_reply": func(L *lua.LState) int {
			t := L.CreateTable(0, 1)
			t.RawSetString("ok", lua.LString(L.CheckString(1)))
			L.Push(t)
			return 1
		},
		"log": func(L *lua.LState) int { return r.redisLog(L) },
	})
	mod.RawSetString("LOG_DEBUG", lua.LNumber(LogDebug))
	mod.RawSetString("LOG_VERBOSE", lua.LNumber(LogVerbose))
	mod.RawSetString("LOG_NOTICE", lua.LNumber(LogNotice))
	mod.RawSetString("LOG_WARNING", lua.LNumber(LogWarning))
	L.SetGlobal("redis", mod)
}

// redisCall implements redis.call and redis.pcall. call raises command
// errors as {err = msg}; pcall returns that table instead.
func redisCall(L *lua.LState, c Caller, protected bool) int {
	n := L.GetTop()
	if n == 0 {
		L.Error(errorTable(L, errNoArgs), 1)
		return 0
	}
	args := make([][]byte, n)
	for i := 1; i <= n; i++ {
		s, ok := argString(L.Get(i))
		if !ok {
			L.Error(errorTable(L, errBadArg), 1)
			return 0
		}
		args[i-1] = []byte(s)
	}

	reply := c.Call(string(args[0]), args[1:])
	if reply.IsError() && !protected {
		L.Error(errorTable(L, reply.Err.Msg), 1)
		return 0
	}
	L.Push(ToLua(L, reply))
	return 1
}

func (r *Runner) redisLog(L *lua.LState) int {
	if L.GetTop() < 2 {
		L.Error(errorTable(L, "ERR redis.log() requires two arguments or more."), 1)
		return 0
	}
	level := L.CheckInt(1)
	parts := make([]string, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	msg := strings.Join(parts, " ")

	switch level {
	case LogDebug, LogVerbose:
		r.logger.Debug(msg, "source", "script")
	case LogNotice:
		r.logger.Info(msg, "source", "script")
	case LogWarning:
		r.logger.Warn(msg, "source", "script")
	default:
		L.Error(errorTable(L, errBadLevel), 1)
	}
	return 0
}

func stringArray(L *lua.LState, items [][]byte) *lua.LTable {
	t := L.CreateTable(len(items), 0)
	for i, item := range items {
		t.RawSetInt(i+1, lua.LString(item))
	}
	return t
}
