// Package protocol reads and writes RESP2, the Redis wire format.
package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
)

var (
	// ErrInvalidProtocol is returned for malformed input. The connection
	// cannot be resynchronised after it.
	ErrInvalidProtocol = errors.New("protocol: invalid RESP format")
	// ErrEmptyCommand is returned for a request with no words, such as a
	// blank inline line or "*0".
	ErrEmptyCommand = errors.New("protocol: empty command")
)

// Value is one decoded RESP value. Bulk strings keep their bytes in Bulk;
// simple strings and errors use Str.
type Value struct {
	Type  byte
	Str   string
	Bulk  []byte
	Num   int64
	Array []Value
	Null  bool
}

// Text returns the payload of a string-like value.
func (v Value) Text() string {
	if v.Type == TypeBulkString {
		return string(v.Bulk)
	}
	return v.Str
}

// RESP type bytes.
const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

const (
	maxBulkLength  = 512 * 1024 * 1024
	maxArrayLength = 1_000_000
	maxInlineSize  = 64 * 1024
	bufSize        = 64 * 1024
)

var (
	crlf      = []byte("\r\n")
	nullBulk  = []byte("$-1\r\n")
	nullArray = []byte("*-1\r\n")
	okStatus  = []byte("+OK\r\n")
)

var scratchPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 20)
		return &b
	},
}

// Reader decodes RESP from a stream.
type Reader struct {
	rd *bufio.Reader
}

// NewReader wraps r with a 64 KiB buffer.
func NewReader(r io.Reader) *Reader {
	return &Reader{rd: bufio.NewReaderSize(r, bufSize)}
}

// Buffered reports how many bytes can be read without blocking. The server
// uses it to detect pipelined requests.
func (r *Reader) Buffered() int {
	return r.rd.Buffered()
}

// ReadCommand reads one request. Clients normally send an array of bulk
// strings; a plain text line split on whitespace is accepted as well.
func (r *Reader) ReadCommand() ([][]byte, error) {
	b, err := r.rd.Peek(1)
	if err != nil {
		return nil, err
	}
	if b[0] != TypeArray {
		return r.readInline()
	}

	v, err := r.ReadValue()
	if err != nil {
		return nil, err
	}
	if v.Null || len(v.Array) == 0 {
		return nil, ErrEmptyCommand
	}
	words := make([][]byte, len(v.Array))
	for i, item := range v.Array {
		switch item.Type {
		case TypeBulkString:
			words[i] = item.Bulk
		case TypeSimpleString:
			words[i] = []byte(item.Str)
		case TypeInteger:
			words[i] = strconv.AppendInt(nil, item.Num, 10)
		default:
			return nil, fmt.Errorf("%w: command word of type %c", ErrInvalidProtocol, item.Type)
		}
	}
	return words, nil
}

func (r *Reader) readInline() ([][]byte, error) {
	line, err := r.rd.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) || len(line) > maxInlineSize {
		return nil, fmt.Errorf("%w: inline request too long", ErrInvalidProtocol)
	}
	if err != nil {
		return nil, err
	}
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	words := make([][]byte, len(fields))
	for i, f := range fields {
		words[i] = append([]byte(nil), f...)
	}
	return words, nil
}

// ReadValue reads a single RESP value.
func (r *Reader) ReadValue() (Value, error) {
	t, err := r.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch t {
	case TypeSimpleString, TypeError:
		line, err := r.line()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Str: line}, nil
	case TypeInteger:
		n, err := r.number()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Num: n}, nil
	case TypeBulkString:
		return r.bulk()
	case TypeArray:
		return r.array()
	default:
		return Value{}, fmt.Errorf("%w: unknown type %q", ErrInvalidProtocol, t)
	}
}

func (r *Reader) line() (string, error) {
	s, err := r.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(s) < 2 || s[len(s)-2] != '\r' {
		return "", fmt.Errorf("%w: missing CRLF", ErrInvalidProtocol)
	}
	return s[:len(s)-2], nil
}

func (r *Reader) number() (int64, error) {
	s, err := r.line()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrInvalidProtocol, s)
	}
	return n, nil
}

func (r *Reader) bulk() (Value, error) {
	n, err := r.number()
	if err != nil {
		return Value{}, err
	}
	switch {
	case n == -1:
		return Value{Type: TypeBulkString, Null: true}, nil
	case n < 0:
		return Value{}, fmt.Errorf("%w: negative bulk length", ErrInvalidProtocol)
	case n > maxBulkLength:
		return Value{}, fmt.Errorf("%w: bulk string too large", ErrInvalidProtocol)
	}

	data := make([]byte, n+2)
	if _, err := io.ReadFull(r.rd, data); err != nil {
		return Value{}, err
	}
	if data[n] != '\r' || data[n+1] != '\n' {
		return Value{}, fmt.Errorf("%w: bulk string not terminated", ErrInvalidProtocol)
	}
	return Value{Type: TypeBulkString, Bulk: data[:n:n]}, nil
}

func (r *Reader) array() (Value, error) {
	n, err := r.number()
	if err != nil {
		return Value{}, err
	}
	switch {
	case n == -1:
		return Value{Type: TypeArray, Null: true}, nil
	case n < 0:
		return Value{}, fmt.Errorf("%w: negative array length", ErrInvalidProtocol)
	case n > maxArrayLength:
		return Value{}, fmt.Errorf("%w: array too large", ErrInvalidProtocol)
	}

	items := make([]Value, n)
	for i := range items {
		if items[i], err = r.ReadValue(); err != nil {
			return Value{}, err
		}
	}
	return Value{Type: TypeArray, Array: items}, nil
}

// Writer encodes RESP replies. Each Write* call flushes unless auto flush
// is turned off, in which case the caller flushes once per batch.
type Writer struct {
	wr        *bufio.Writer
	autoFlush bool
}

// NewWriter wraps w with a 64 KiB buffer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{wr: bufio.NewWriterSize(w, bufSize), autoFlush: true}
}

// SetAutoFlush toggles flushing after every write.
func (w *Writer) SetAutoFlush(on bool) { w.autoFlush = on }

// Flush writes out buffered data.
func (w *Writer) Flush() error { return w.wr.Flush() }

func (w *Writer) done() error {
	if w.autoFlush {
		return w.wr.Flush()
	}
	return nil
}

// header writes a type byte, a decimal number and CRLF.
func (w *Writer) header(t byte, n int64) error {
	bp := scratchPool.Get().(*[]byte)
	b := append((*bp)[:0], t)
	b = strconv.AppendInt(b, n, 10)
	b = append(b, crlf...)
	_, err := w.wr.Write(b)
	*bp = b
	scratchPool.Put(bp)
	return err
}

func (w *Writer) line(t byte, s string) error {
	if err := w.wr.WriteByte(t); err != nil {
		return err
	}
	if _, err := w.wr.WriteString(s); err != nil {
		return err
	}
	_, err := w.wr.Write(crlf)
	return err
}

func (w *Writer) bulk(b []byte) error {
	if err := w.header(TypeBulkString, int64(len(b))); err != nil {
		return err
	}
	if _, err := w.wr.Write(b); err != nil {
		return err
	}
	_, err := w.wr.Write(crlf)
	return err
}

// WriteSimpleString writes a status reply.
func (w *Writer) WriteSimpleString(s string) error {
	var err error
	if s == "OK" {
		_, err = w.wr.Write(okStatus)
	} else {
		err = w.line(TypeSimpleString, s)
	}
	if err != nil {
		return err
	}
	return w.done()
}

// WriteError writes msg as an error reply. msg already carries its code
// ("ERR", "WRONGTYPE", ...) and is sent unchanged. Line breaks are replaced
// so the reply stays one line.
func (w *Writer) WriteError(msg string) error {
	if bytes.ContainsAny([]byte(msg), "\r\n") {
		msg = string(bytes.Map(func(r rune) rune {
			if r == '\r' || r == '\n' {
				return ' '
			}
			return r
		}, []byte(msg)))
	}
	if err := w.line(TypeError, msg); err != nil {
		return err
	}
	return w.done()
}

// WriteInteger writes an integer reply.
func (w *Writer) WriteInteger(n int64) error {
	if err := w.header(TypeInteger, n); err != nil {
		return err
	}
	return w.done()
}

// WriteBulkString writes a bulk string reply.
func (w *Writer) WriteBulkString(b []byte) error {
	if err := w.bulk(b); err != nil {
		return err
	}
	return w.done()
}

// WriteNull writes a null bulk string.
func (w *Writer) WriteNull() error {
	if _, err := w.wr.Write(nullBulk); err != nil {
		return err
	}
	return w.done()
}

// WriteNullArray writes a null array.
func (w *Writer) WriteNullArray() error {
	if _, err := w.wr.Write(nullArray); err != nil {
		return err
	}
	return w.done()
}

// WriteArrayHeader starts an array of count elements. The elements follow
// as separate writes.
func (w *Writer) WriteArrayHeader(count int) error {
	if err := w.header(TypeArray, int64(count)); err != nil {
		return err
	}
	return w.done()
}

// WriteArray writes an array of bulk strings.
func (w *Writer) WriteArray(items [][]byte) error {
	if err := w.header(TypeArray, int64(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := w.bulk(item); err != nil {
			return err
		}
	}
	return w.done()
}

// WriteCommand sends a request the way clients do: an array of bulk strings.
func (w *Writer) WriteCommand(words ...string) error {
	if err := w.header(TypeArray, int64(len(words))); err != nil {
		return err
	}
	for _, word := range words {
		if err := w.header(TypeBulkString, int64(len(word))); err != nil {
			return err
		}
		if _, err := w.wr.WriteString(word); err != nil {
			return err
		}
		if _, err := w.wr.Write(crlf); err != nil {
			return err
		}
	}
	return w.done()
}
