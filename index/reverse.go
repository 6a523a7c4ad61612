package index

import "iter"

// Reverse is a hash-backed Index. Key iteration order is unspecified.
type Reverse[K comparable] struct {
	buckets map[K][]int
}

func NewReverse[K comparable]() *Reverse[K] {
	return &Reverse[K]{buckets: make(map[K][]int)}
}

func (r *Reverse[K]) Put(key K, pos int) {
	if r.buckets == nil {
		r.buckets = make(map[K][]int)
	}
	r.buckets[key] = append(r.buckets[key], pos)
}

func (r *Reverse[K]) Get(key K) ([]int, bool) {
	bucket, ok := r.buckets[key]
	if !ok {
		return nil, false
	}
	return clone(bucket), true
}

func (r *Reverse[K]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range r.buckets {
			if !yield(k) {
				return
			}
		}
	}
}

func (r *Reverse[K]) Clear() {
	clear(r.buckets)
}

func (r *Reverse[K]) Len() int {
	return len(r.buckets)
}
