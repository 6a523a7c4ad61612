package index

import (
	"iter"

	"github.com/tidwall/tinybtree"
)

// Sorted is an Index over string keys kept in ascending key order, so Keys
// and Match walk values lexicographically.
type Sorted struct {
	tree tinybtree.BTree
}

func NewSorted() *Sorted {
	return &Sorted{}
}

func (s *Sorted) Put(key string, pos int) {
	if v, ok := s.tree.Get(key); ok {
		b := v.(*[]int)
		*b = append(*b, pos)
		return
	}
	s.tree.Set(key, &[]int{pos})
}

func (s *Sorted) Get(key string) ([]int, bool) {
	v, ok := s.tree.Get(key)
	if !ok {
		return nil, false
	}
	return clone(*v.(*[]int)), true
}

func (s *Sorted) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		s.tree.Scan(func(key string, _ interface{}) bool {
			return yield(key)
		})
	}
}

// Match calls fn with the bucket of every key accepted by pred, in key order.
// Buckets handed to fn are owned by the index and must not be retained.
func (s *Sorted) Match(pred func(key string) bool, fn func(key string, bucket []int) bool) {
	s.tree.Scan(func(key string, v interface{}) bool {
		if !pred(key) {
			return true
		}
		return fn(key, *v.(*[]int))
	})
}

func (s *Sorted) Clear() {
	s.tree = tinybtree.BTree{}
}

func (s *Sorted) Len() int {
	return s.tree.Len()
}
