package engine

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/flashdb/flashkv/internal/version"
)

var infoSections = []string{"server", "keyspace", "stats", "reclaim", "commandstats"}

// INFO [section] renders engine statistics in the usual "# Section" /
// "field:value" text form.
func cmdInfo(c *Ctx, args [][]byte) (Reply, error) {
	want := "all"
	if len(args) == 1 {
		want = strings.ToLower(string(args[0]))
	}
	if want != "all" && want != "default" && !contains(infoSections, want) {
		return BulkString(""), nil
	}

	e := c.e
	var b strings.Builder
	for _, section := range infoSections {
		if want != "all" && want != "default" && want != section {
			continue
		}
		if want == "default" && section == "commandstats" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\r\n")
		}
		switch section {
		case "server":
			uptime := time.Since(e.startTime)
			fmt.Fprintf(&b, "# Server\r\n")
			fmt.Fprintf(&b, "flashkv_version:%s\r\n", version.Version)
			fmt.Fprintf(&b, "go_version:%s\r\n", runtime.Version())
			fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(uptime.Seconds()))
			fmt.Fprintf(&b, "started:%s\r\n", humanize.Time(e.startTime))
		case "keyspace":
			fmt.Fprintf(&b, "# Keyspace\r\n")
			if n := c.db.LiveLen(c.now); n > 0 {
				fmt.Fprintf(&b, "db0:keys=%d,expires=%d\r\n", n, c.db.Volatile())
			}
		case "stats":
			fmt.Fprintf(&b, "# Stats\r\n")
			fmt.Fprintf(&b, "total_commands_processed:%d\r\n", e.totalCommands.Load())
			fmt.Fprintf(&b, "expired_keys:%d\r\n", e.expiredKeys.Load())
			fmt.Fprintf(&b, "expire_hz:%d\r\n", e.opts.ExpireHz)
		case "reclaim":
			fmt.Fprintf(&b, "# Reclaim\r\n")
			fmt.Fprintf(&b, "reclaim_enabled:%d\r\n", boolInt(e.reclaimer != nil))
			if e.reclaimer != nil {
				st := e.reclaimer.Stats()
				fmt.Fprintf(&b, "reclaim_queued:%d\r\n", st.Queued)
				fmt.Fprintf(&b, "reclaim_released:%d\r\n", st.Released)
				fmt.Fprintf(&b, "reclaim_pending:%d\r\n", st.Pending())
				fmt.Fprintf(&b, "reclaim_inline:%d\r\n", st.Inline)
				fmt.Fprintf(&b, "reclaim_overflow:%d\r\n", st.Overflow)
			}
		case "commandstats":
			fmt.Fprintf(&b, "# Commandstats\r\n")
			for _, s := range e.stats.All() {
				fmt.Fprintf(&b, "cmdstat_%s:calls=%d,usec=%d,usec_per_call=%.2f,failed_calls=%d\r\n",
					s.Name, s.Calls, s.Usec, s.UsecPerCall(), s.Failed)
			}
		}
	}
	return BulkString(b.String()), nil
}

// Summary is a one-line human readable digest for logs.
func (e *Engine) Summary() string {
	st := e.Stats()
	return fmt.Sprintf("%s keys, %s commands, %s expired",
		humanize.Comma(int64(st.Keys)), humanize.Comma(st.TotalCommands), humanize.Comma(st.ExpiredKeys))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
