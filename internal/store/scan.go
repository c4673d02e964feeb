package store

import "time"

// ScanPage is one step of a keyspace walk.
type ScanPage struct {
	Keys []string
	// Next is the last key in Keys, or "" when the walk reached the end.
	Next string
}

// Scan collects up to count live keys in key order, starting strictly after
// cursor ("" starts from the first key). Keys not matching pattern are
// skipped without using up count; an empty pattern matches everything.
func (ks *Keyspace) Scan(cursor string, count int, pattern string, now time.Time) ScanPage {
	page := ScanPage{Keys: []string{}}
	if count <= 0 {
		count = 10
	}

	more := false
	ks.Ascend(cursor, func(key string, e *Entry) bool {
		if e.Expired(now) {
			ks.markStale(key)
			return true
		}
		if len(page.Keys) == count {
			more = true
			return false
		}
		if pattern != "" && !Match(pattern, key) {
			return true
		}
		page.Keys = append(page.Keys, key)
		return true
	})

	if more {
		page.Next = page.Keys[len(page.Keys)-1]
	}
	return page
}
