// Package index maps attribute values to the ordered list of store positions
// that held the value when they were indexed. Buckets only grow: a position is
// never removed from a bucket, so readers must re-verify candidates against the
// current record.
package index

import "iter"

var (
	_ Index[int64]  = (*Reverse[int64])(nil)
	_ Index[string] = (*Sorted)(nil)
)

type Index[K comparable] interface {
	// Put appends pos to the bucket for key, creating the bucket on first use.
	Put(key K, pos int)

	// Get returns a copy of the bucket for key.
	Get(key K) ([]int, bool)

	// Keys iterates the distinct keys. Every call starts a fresh iteration.
	Keys() iter.Seq[K]

	// Clear drops every bucket.
	Clear()

	// Len is the number of distinct keys.
	Len() int
}

func clone(bucket []int) []int {
	out := make([]int, len(bucket))
	copy(out, bucket)
	return out
}
