// Package engine holds the current state of every order seen on the event
// stream. A single writer applies batches; any number of readers list,
// look up and filter the records concurrently.
package engine

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/tidwall/match"
	"github.com/tidwall/rhh"

	"github.com/moontrade/orderflow/index"
	"github.com/moontrade/orderflow/order"
	"github.com/moontrade/orderflow/storage/paged"
)

const DefaultFilterCacheSize = 128

var (
	ErrMalformedBatch = errors.New("malformed batch")
	ErrInvariant      = errors.New("store invariant violated")
)

type Options struct {
	BlockSize       int
	FilterCacheSize int
	Metrics         Metrics
}

type Engine struct {
	mu       sync.RWMutex
	store    *paged.Store[order.Order]
	ids      *rhh.Map
	prices   *index.Reverse[int64]
	statuses *index.Sorted
	revision uint64

	criteria    order.Criteria
	filtered    []order.Order
	hasFiltered bool

	cache   *lru.Cache
	metrics Metrics
	subs    subscribers
}

func New(opts Options) (*Engine, error) {
	if opts.BlockSize == 0 {
		opts.BlockSize = paged.DefaultBlockSize
	}
	if opts.FilterCacheSize <= 0 {
		opts.FilterCacheSize = DefaultFilterCacheSize
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	store, err := paged.New[order.Order](opts.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	cache, err := lru.New(opts.FilterCacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: filter cache: %w", err)
	}
	return &Engine{
		store:    store,
		ids:      rhh.New(opts.BlockSize),
		prices:   index.NewReverse[int64](),
		statuses: index.NewSorted(),
		cache:    cache,
		metrics:  opts.Metrics,
		subs:     subscribers{subs: make(map[*Subscription]struct{})},
	}, nil
}

func (e *Engine) Revision() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.revision
}

func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Len()
}

// List copies every record in arrival order of their first event.
func (e *Engine) List() []order.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.ToArray()
}

// Slice copies the records in [start, end) with negative indexes counting
// back from the end.
func (e *Engine) Slice(start, end int) []order.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Slice(start, end)
}

func (e *Engine) Get(id string) (order.Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pos, ok := e.position(id)
	if !ok {
		return order.Order{}, false
	}
	return e.store.Get(pos)
}

func (e *Engine) position(id string) (int, bool) {
	v, ok := e.ids.Get(id)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// IDs lists the identities matching the glob pattern in store order. An
// empty pattern matches everything.
func (e *Engine) IDs(pattern string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0)
	for _, o := range e.store.All() {
		if pattern == "" || match.Match(o.ID, pattern) {
			out = append(out, o.ID)
		}
	}
	return out
}

// Criteria returns the criteria installed by SetFilterCriteria.
func (e *Engine) Criteria() order.Criteria {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.criteria
}

// View is the list a presentation client currently shows: the filtered list
// while criteria are active, every record otherwise.
type View struct {
	e *Engine
}

func (e *Engine) View() View {
	return View{e: e}
}

func (v View) Len() int {
	v.e.mu.RLock()
	defer v.e.mu.RUnlock()
	if v.e.hasFiltered {
		return len(v.e.filtered)
	}
	return v.e.store.Len()
}

func (v View) Slice(start, end int) []order.Order {
	v.e.mu.RLock()
	defer v.e.mu.RUnlock()
	if !v.e.hasFiltered {
		return v.e.store.Slice(start, end)
	}
	n := len(v.e.filtered)
	start, end = clamp(start, n), clamp(end, n)
	if start >= end {
		return []order.Order{}
	}
	return append([]order.Order{}, v.e.filtered[start:end]...)
}

func clamp(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}
