// flashkv-benchmark drives load against a flashkv server.
//
// Usage:
//
//	flashkv-benchmark [flags]
//
// Flags:
//
//	-addr string     Server address (default "localhost:6379")
//	-clients int     Number of parallel clients (default 50)
//	-requests int    Total number of requests (default 100000)
//	-pipeline int    Requests written before reading replies (default 1)
//	-test string     Workload: set, get, mixed, incr, lpush, zadd, eval, multi (default "mixed")
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/flashdb/flashkv/internal/protocol"
)

const incrScript = "return redis.call('incrby', KEYS[1], ARGV[1])"

// workload returns the request(s) that make up request j of client id.
// Every element is one command.
type workload func(id, j int) [][]string

var workloads = map[string]workload{
	"set": func(id, j int) [][]string {
		return [][]string{{"SET", key(id, j), value(id, j)}}
	},
	"get": func(id, j int) [][]string {
		return [][]string{{"GET", key(id, j)}}
	},
	"mixed": func(id, j int) [][]string {
		if j%2 == 0 {
			return [][]string{{"SET", key(id, j), value(id, j)}}
		}
		return [][]string{{"GET", key(id, j-1)}}
	},
	"incr": func(id, j int) [][]string {
		return [][]string{{"INCR", "counter:" + strconv.Itoa(id)}}
	},
	"lpush": func(id, j int) [][]string {
		return [][]string{{"LPUSH", "list:" + strconv.Itoa(id), value(id, j)}}
	},
	"zadd": func(id, j int) [][]string {
		return [][]string{{"ZADD", "zset:" + strconv.Itoa(id), strconv.Itoa(j), key(id, j)}}
	},
	"eval": func(id, j int) [][]string {
		return [][]string{{"EVAL", incrScript, "1", "script:" + strconv.Itoa(id), "1"}}
	},
	"multi": func(id, j int) [][]string {
		k := "tx:" + strconv.Itoa(id)
		return [][]string{{"MULTI"}, {"INCR", k}, {"EXPIRE", k, "60"}, {"EXEC"}}
	},
}

func key(id, j int) string   { return fmt.Sprintf("key:%d:%d", id, j) }
func value(id, j int) string { return fmt.Sprintf("value:%d:%d", id, j) }

type result struct {
	completed atomic.Int64
	failed    atomic.Int64 // transport failures
	errReply  atomic.Int64 // error replies from the server
}

func main() {
	addr := flag.String("addr", "localhost:6379", "Server address")
	clients := flag.Int("clients", 50, "Number of parallel clients")
	requests := flag.Int("requests", 100000, "Total number of requests")
	pipeline := flag.Int("pipeline", 1, "Requests written before reading replies")
	testType := flag.String("test", "mixed", "Workload: set, get, mixed, incr, lpush, zadd, eval, multi")
	flag.Parse()

	wl, ok := workloads[*testType]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown workload %q\n", *testType)
		os.Exit(2)
	}
	if *clients <= 0 || *pipeline <= 0 {
		fmt.Fprintln(os.Stderr, "clients and pipeline must be positive")
		os.Exit(2)
	}

	fmt.Println("====== flashkv benchmark ======")
	fmt.Printf("Server:   %s\n", *addr)
	fmt.Printf("Clients:  %d\n", *clients)
	fmt.Printf("Requests: %s\n", humanize.Comma(int64(*requests)))
	fmt.Printf("Pipeline: %d\n", *pipeline)
	fmt.Printf("Test:     %s\n\n", *testType)

	var res result
	perClient := *requests / *clients

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(*addr, id, perClient, *pipeline, wl, &res)
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	done := res.completed.Load()
	fmt.Println("====== Results ======")
	fmt.Printf("Total time:    %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Completed:     %s\n", humanize.Comma(done))
	fmt.Printf("Failed:        %s\n", humanize.Comma(res.failed.Load()))
	fmt.Printf("Error replies: %s\n", humanize.Comma(res.errReply.Load()))
	if done > 0 {
		fmt.Printf("Requests/sec:  %s\n", humanize.CommafWithDigits(float64(done)/elapsed.Seconds(), 2))
		fmt.Printf("Avg latency:   %.3f ms\n", float64(elapsed.Microseconds())/1000/float64(done)*float64(*clients))
	}
}

func runClient(addr string, id, n, pipeline int, wl workload, res *result) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		res.failed.Add(int64(n))
		return
	}
	defer conn.Close()

	w := protocol.NewWriter(conn)
	r := protocol.NewReader(conn)
	w.SetAutoFlush(false)

	for j := 0; j < n; j += pipeline {
		batch := min(pipeline, n-j)
		replies := 0
		for k := 0; k < batch; k++ {
			for _, cmd := range wl(id, j+k) {
				if err := w.WriteCommand(cmd...); err != nil {
					res.failed.Add(int64(n - j))
					return
				}
				replies++
			}
		}
		if err := w.Flush(); err != nil {
			res.failed.Add(int64(n - j))
			return
		}
		for k := 0; k < replies; k++ {
			v, err := r.ReadValue()
			if err != nil {
				res.failed.Add(int64(n - j))
				return
			}
			if v.Type == protocol.TypeError {
				res.errReply.Add(1)
			}
		}
		res.completed.Add(int64(batch))
	}
}
