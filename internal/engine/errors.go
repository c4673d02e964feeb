package engine

import "errors"

// ErrorKind classifies command failures.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindArity
	KindWrongType
	KindNotNumber
	KindNoSuchKey
	KindTx
	KindScript
)

func (k ErrorKind) String() string {
	switch k {
	case KindArity:
		return "arity"
	case KindWrongType:
		return "wrongtype"
	case KindNotNumber:
		return "notnumber"
	case KindNoSuchKey:
		return "nosuchkey"
	case KindTx:
		return "tx"
	case KindScript:
		return "script"
	default:
		return "generic"
	}
}

// Error is a command-level failure. Msg is sent to clients exactly as is.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// NewError returns an *Error of the given kind.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrInvalidArgs    = NewError(KindArity, "Invalid arguments")
	ErrWrongType      = NewError(KindWrongType, "WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger     = NewError(KindNotNumber, "ERR value is not an integer or out of range")
	ErrNotFloat       = NewError(KindNotNumber, "ERR value is not a valid float")
	ErrHashNotInt     = NewError(KindNotNumber, "ERR hash value is not an integer")
	ErrOverflow       = NewError(KindNotNumber, "ERR increment or decrement would overflow")
	ErrNoSuchKey      = NewError(KindNoSuchKey, "ERR no such key")
	ErrOutOfRange     = NewError(KindGeneric, "ERR index out of range")
	ErrInvalidExpire  = NewError(KindArity, "ERR invalid expire time in 'set' command")
	ErrNestedMulti    = NewError(KindTx, "ERR MULTI calls can not be nested")
	ErrExecNoMulti    = NewError(KindTx, "ERR EXEC without MULTI")
	ErrDiscardNoMulti = NewError(KindTx, "ERR DISCARD without MULTI")
	ErrNotAllowedInTx = NewError(KindTx, "ERR Command not allowed inside a transaction")
	ErrNoScript       = NewError(KindScript, "NOSCRIPT No matching script. Please use EVAL.")
	ErrNotFromScript  = NewError(KindScript, "ERR This Redis command is not allowed from script")
)

// AsError converts err to an *Error, wrapping unknown errors as KindGeneric.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(KindGeneric, "ERR "+err.Error())
}
