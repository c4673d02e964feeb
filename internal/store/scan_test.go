package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func seedKeys(ks *Keyspace, n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("key:%03d", i)
		putString(ks, keys[i], "v")
	}
	return keys
}

func TestScan_SinglePage(t *testing.T) {
	ks := New()
	keys := seedKeys(ks, 50)

	page := ks.Scan("", 50, "", time.Now())
	assert.Equal(t, keys, page.Keys)
	assert.Equal(t, "", page.Next)
}

func TestScan_ResumesWithoutDuplicates(t *testing.T) {
	ks := New()
	keys := seedKeys(ks, 47)
	now := time.Now()

	var got []string
	cursor := ""
	for i := 0; i < 100; i++ {
		page := ks.Scan(cursor, 10, "", now)
		assert.LessOrEqual(t, len(page.Keys), 10)
		got = append(got, page.Keys...)
		if page.Next == "" {
			break
		}
		assert.Equal(t, page.Keys[len(page.Keys)-1], page.Next)
		cursor = page.Next
	}
	assert.Equal(t, keys, got)
}

func TestScan_MatchDoesNotConsumeCount(t *testing.T) {
	ks := New()
	for i := 0; i < 20; i++ {
		putString(ks, fmt.Sprintf("a%02d", i), "v")
		putString(ks, fmt.Sprintf("b%02d", i), "v")
	}

	page := ks.Scan("", 5, "b*", time.Now())
	assert.Equal(t, []string{"b00", "b01", "b02", "b03", "b04"}, page.Keys)
	assert.Equal(t, "b04", page.Next)
}

func TestScan_SkipsExpired(t *testing.T) {
	ks := New()
	now := time.Now()
	putString(ks, "a", "v")
	ks.Put("b", &Entry{Value: StringValue([]byte("v")), ExpireAt: now, HasExpire: true})
	putString(ks, "c", "v")

	page := ks.Scan("", 10, "", now)
	assert.Equal(t, []string{"a", "c"}, page.Keys)
	assert.Equal(t, 1, ks.DrainStale(now))
}
