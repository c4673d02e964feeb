package script

import (
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/flashdb/flashkv/internal/engine"
)

// ToLua converts a command reply into the value a script sees:
//
//	nil    -> false
//	int    -> number
//	bulk   -> string
//	status -> {ok = "..."}
//	error  -> {err = "..."}
//	array  -> array table, converted recursively
func ToLua(L *lua.LState, r engine.Reply) lua.LValue {
	switch r.Kind {
	case engine.ReplyInt:
		return lua.LNumber(r.Int)
	case engine.ReplyBulk:
		return lua.LString(r.Str)
	case engine.ReplyStatus:
		t := L.CreateTable(0, 1)
		t.RawSetString("ok", lua.LString(r.Str))
		return t
	case engine.ReplyError:
		return errorTable(L, r.Err.Msg)
	case engine.ReplyArray:
		t := L.CreateTable(len(r.Array), 0)
		for i, item := range r.Array {
			t.RawSetInt(i+1, ToLua(L, item))
		}
		return t
	default:
		return lua.LFalse
	}
}

// FromLua converts a script value into a command reply:
//
//	string          -> bulk
//	number          -> integer, truncated toward zero
//	true            -> 1
//	false, nil      -> nil
//	{ok = "..."}    -> status
//	{err = "..."}   -> error, message kept as is
//	array table     -> array, up to the first nil, converted recursively
func FromLua(v lua.LValue) engine.Reply {
	switch v := v.(type) {
	case lua.LString:
		return engine.BulkString(string(v))
	case lua.LNumber:
		return engine.IntReply(int64(v))
	case lua.LBool:
		if v {
			return engine.IntReply(1)
		}
		return engine.NilReply()
	case *lua.LTable:
		if errv := v.RawGetString("err"); errv != lua.LNil {
			return engine.ErrReply(engine.NewError(engine.KindScript, errv.String()))
		}
		if okv := v.RawGetString("ok"); okv != lua.LNil {
			return engine.StatusReply(okv.String())
		}
		var items []engine.Reply
		for i := 1; ; i++ {
			item := v.RawGetInt(i)
			if item == lua.LNil {
				break
			}
			items = append(items, FromLua(item))
		}
		return engine.ArrayReply(items)
	default:
		return engine.NilReply()
	}
}

func errorTable(L *lua.LState, msg string) *lua.LTable {
	t := L.CreateTable(0, 1)
	t.RawSetString("err", lua.LString(msg))
	return t
}

// argString renders a command argument passed from Lua. Numbers use the
// %.17g form.
func argString(v lua.LValue) (string, bool) {
	switch v := v.(type) {
	case lua.LString:
		return string(v), true
	case lua.LNumber:
		return strconv.FormatFloat(float64(v), 'g', 17, 64), true
	default:
		return "", false
	}
}
