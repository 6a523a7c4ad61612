// Package paged provides an append-biased collection laid out as a sequence of
// fixed-capacity pages. Growing the collection allocates one new page at a
// time and never moves pages that were already written, while positions keep
// O(1) random access through the page/slot mapping.
package paged

import (
	"errors"
	"iter"
)

const DefaultBlockSize = 1000

var (
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrOutOfRange       = errors.New("out-of-range error")
)

// Store is not safe for concurrent mutation; callers serialize writers.
type Store[T any] struct {
	blockSize int
	pages     [][]T
	page      int // cursor page
	slot      int // cursor slot, the next free slot in page
	length    int
}

// New returns an empty Store. blockSize must be positive.
func New[T any](blockSize int) (*Store[T], error) {
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	return &Store[T]{blockSize: blockSize}, nil
}

// Must is like New but panics on an invalid block size.
func Must[T any](blockSize int) *Store[T] {
	s, err := New[T](blockSize)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store[T]) Len() int {
	return s.length
}

func (s *Store[T]) BlockSize() int {
	return s.blockSize
}

// Pages is the number of allocated pages.
func (s *Store[T]) Pages() int {
	return len(s.pages)
}

// Append writes v to the next free slot and returns its position.
func (s *Store[T]) Append(v T) int {
	if s.slot == 0 && s.page == len(s.pages) {
		s.pages = append(s.pages, make([]T, s.blockSize))
	}
	s.pages[s.page][s.slot] = v
	pos := s.length
	s.forward()
	return pos
}

// forward moves the cursor to the next slot, wrapping to the start of the
// next page at the end of the current one.
func (s *Store[T]) forward() {
	if s.slot < s.blockSize-1 {
		s.slot++
	} else {
		s.slot = 0
		s.page++
	}
	s.length++
}

// Get returns the value at pos, or false when pos was never appended to.
func (s *Store[T]) Get(pos int) (T, bool) {
	if pos < 0 || pos >= s.length {
		var zero T
		return zero, false
	}
	return s.pages[pos/s.blockSize][pos%s.blockSize], true
}

// Set replaces the value at an already written position.
func (s *Store[T]) Set(pos int, v T) error {
	if pos < 0 || pos >= s.length {
		return ErrOutOfRange
	}
	s.pages[pos/s.blockSize][pos%s.blockSize] = v
	return nil
}

// resolve maps a slicing index onto [0, length]. Negative values count back
// from the end.
func (s *Store[T]) resolve(i int) int {
	if i < 0 {
		i += s.length
		if i < 0 {
			return 0
		}
		return i
	}
	if i > s.length {
		return s.length
	}
	return i
}

// Slice copies the values in [start, end) into a new slice. Indices follow
// the usual slicing rules with negative values counting back from Len().
func (s *Store[T]) Slice(start, end int) []T {
	lo, hi := s.resolve(start), s.resolve(end)
	if lo >= hi {
		return []T{}
	}
	var (
		out   = make([]T, 0, hi-lo)
		first = lo / s.blockSize
		last  = (hi - 1) / s.blockSize
	)
	for p := first; p <= last; p++ {
		from, to := 0, s.blockSize
		if p == first {
			from = lo % s.blockSize
		}
		if p == last {
			to = (hi-1)%s.blockSize + 1
		}
		out = append(out, s.pages[p][from:to]...)
	}
	return out
}

// SliceFrom is Slice(start, Len()).
func (s *Store[T]) SliceFrom(start int) []T {
	return s.Slice(start, s.length)
}

// ToArray flattens every full page and the filled part of the live page.
func (s *Store[T]) ToArray() []T {
	out := make([]T, 0, s.length)
	for p := 0; p < s.page; p++ {
		out = append(out, s.pages[p]...)
	}
	if s.slot > 0 {
		out = append(out, s.pages[s.page][:s.slot]...)
	}
	return out
}

// All iterates positions and values in append order without flattening.
func (s *Store[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for pos := 0; pos < s.length; pos++ {
			if !yield(pos, s.pages[pos/s.blockSize][pos%s.blockSize]) {
				return
			}
		}
	}
}

// Range calls fn for each position in append order until fn returns false.
func (s *Store[T]) Range(fn func(pos int, v T) bool) {
	for pos, v := range s.All() {
		if !fn(pos, v) {
			return
		}
	}
}
