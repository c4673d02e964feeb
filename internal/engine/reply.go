package engine

import (
	"strconv"
	"strings"
)

// ReplyKind tags the variant held by a Reply.
type ReplyKind uint8

const (
	ReplyNil ReplyKind = iota
	ReplyInt
	ReplyBulk
	ReplyStatus
	ReplyArray
	ReplyError
)

// Reply is the typed result of a command. Direct clients and scripts see
// the same value.
type Reply struct {
	Kind  ReplyKind
	Int   int64
	Str   []byte
	Array []Reply
	Err   *Error
}

var (
	nilReply    = Reply{Kind: ReplyNil}
	okReply     = Reply{Kind: ReplyStatus, Str: []byte("OK")}
	queuedReply = Reply{Kind: ReplyStatus, Str: []byte("QUEUED")}
)

func NilReply() Reply { return nilReply }

func OK() Reply { return okReply }

func IntReply(n int64) Reply { return Reply{Kind: ReplyInt, Int: n} }

func BoolReply(b bool) Reply {
	if b {
		return IntReply(1)
	}
	return IntReply(0)
}

func BulkReply(b []byte) Reply { return Reply{Kind: ReplyBulk, Str: b} }

func BulkString(s string) Reply { return Reply{Kind: ReplyBulk, Str: []byte(s)} }

func StatusReply(s string) Reply { return Reply{Kind: ReplyStatus, Str: []byte(s)} }

func ArrayReply(items []Reply) Reply {
	if items == nil {
		items = []Reply{}
	}
	return Reply{Kind: ReplyArray, Array: items}
}

func ErrReply(err *Error) Reply { return Reply{Kind: ReplyError, Err: err} }

// BulkStrings builds an array of bulk replies from raw values.
func BulkStrings(values [][]byte) Reply {
	items := make([]Reply, len(values))
	for i, v := range values {
		items[i] = BulkReply(v)
	}
	return ArrayReply(items)
}

// KeyStrings builds an array of bulk replies from strings.
func KeyStrings(values []string) Reply {
	items := make([]Reply, len(values))
	for i, v := range values {
		items[i] = BulkString(v)
	}
	return ArrayReply(items)
}

// IsError reports whether the reply carries an error.
func (r Reply) IsError() bool { return r.Kind == ReplyError }

// String renders the reply the way redis-cli does. Used by the CLI and in
// test failure messages.
func (r Reply) String() string {
	var b strings.Builder
	r.format(&b, "")
	return b.String()
}

func (r Reply) format(b *strings.Builder, indent string) {
	switch r.Kind {
	case ReplyNil:
		b.WriteString("(nil)")
	case ReplyInt:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(r.Int, 10))
	case ReplyBulk:
		b.WriteString(strconv.Quote(string(r.Str)))
	case ReplyStatus:
		b.Write(r.Str)
	case ReplyError:
		b.WriteString("(error) ")
		b.WriteString(r.Err.Msg)
	case ReplyArray:
		if len(r.Array) == 0 {
			b.WriteString("(empty array)")
			return
		}
		for i, item := range r.Array {
			if i > 0 {
				b.WriteString("\n")
				b.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			b.WriteString(prefix)
			item.format(b, indent+strings.Repeat(" ", len(prefix)))
		}
	}
}
