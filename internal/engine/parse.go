package engine

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/flashdb/flashkv/internal/store"
)

var errBoundNotFloat = NewError(KindNotNumber, "ERR min or max is not a float")

func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// scaleExpire converts n units to a Duration, failing when the product does
// not fit in an int64 of nanoseconds.
func scaleExpire(n int64, unit time.Duration) (time.Duration, bool) {
	limit := int64(math.MaxInt64 / unit)
	if n > limit || n < -limit {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

func invalidExpire(cmd string) *Error {
	return NewError(KindArity, "ERR invalid expire time in '"+cmd+"' command")
}

func parseIndex(b []byte) (int, error) {
	n, err := parseInt(b)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	} else if n < math.MinInt32 {
		n = math.MinInt32
	}
	return int(n), nil
}

func parseFloat(b []byte) (float64, error) {
	s := string(b)
	switch strings.ToLower(s) {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, ErrNotFloat
	}
	return f, nil
}

// parseBound reads a score range endpoint: a float, -inf/+inf, optionally
// prefixed with '(' for an exclusive bound.
func parseBound(b []byte) (store.ScoreBound, error) {
	var bound store.ScoreBound
	if len(b) > 0 && b[0] == '(' {
		bound.Exclusive = true
		b = b[1:]
	}
	f, err := parseFloat(b)
	if err != nil {
		return bound, errBoundNotFloat
	}
	bound.Value = f
	return bound, nil
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatInt(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

func argIs(b []byte, word string) bool {
	return bytes.EqualFold(b, []byte(word))
}

// scoredReply flattens members, adding scores when withScores.
func scoredReply(members []store.ScoredMember, withScores bool) Reply {
	n := len(members)
	if withScores {
		n *= 2
	}
	items := make([]Reply, 0, n)
	for _, m := range members {
		items = append(items, BulkString(m.Member))
		if withScores {
			items = append(items, BulkString(formatFloat(m.Score)))
		}
	}
	return ArrayReply(items)
}
