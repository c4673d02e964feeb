// flashkv-cli sends one command to a flashkv server and prints the reply.
//
// Usage:
//
//	flashkv-cli [-addr host:port] [-a password] command [arg ...]
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flashdb/flashkv/internal/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "Server address")
	password := flag.String("a", "", "Password sent with AUTH before the command")
	timeout := flag.Duration("timeout", 5*time.Second, "Dial and I/O timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: flashkv-cli [-addr host:port] [-a password] command [arg ...]")
		os.Exit(2)
	}

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(*timeout))

	r := protocol.NewReader(conn)
	w := protocol.NewWriter(conn)

	if *password != "" {
		v, err := roundTrip(r, w, "AUTH", *password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "AUTH failed: %v\n", err)
			os.Exit(1)
		}
		if v.Type == protocol.TypeError {
			fmt.Println(format(v, ""))
			os.Exit(1)
		}
	}

	v, err := roundTrip(r, w, flag.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(format(v, ""))
	if v.Type == protocol.TypeError {
		os.Exit(1)
	}
}

func roundTrip(r *protocol.Reader, w *protocol.Writer, words ...string) (protocol.Value, error) {
	if err := w.WriteCommand(words...); err != nil {
		return protocol.Value{}, err
	}
	return r.ReadValue()
}

// format renders v the way redis-cli does.
func format(v protocol.Value, indent string) string {
	switch v.Type {
	case protocol.TypeSimpleString:
		return v.Str
	case protocol.TypeError:
		return "(error) " + v.Str
	case protocol.TypeInteger:
		return "(integer) " + strconv.FormatInt(v.Num, 10)
	case protocol.TypeBulkString:
		if v.Null {
			return "(nil)"
		}
		return strconv.Quote(v.Text())
	case protocol.TypeArray:
		if v.Null {
			return "(nil)"
		}
		if len(v.Array) == 0 {
			return "(empty array)"
		}
		var b strings.Builder
		for i, item := range v.Array {
			if i > 0 {
				b.WriteString("\n")
				b.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			b.WriteString(prefix)
			b.WriteString(format(item, indent+strings.Repeat(" ", len(prefix))))
		}
		return b.String()
	}
	return ""
}
