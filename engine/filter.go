package engine

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/moontrade/orderflow/order"
)

// FilterBy selects the records matching every active entry of c. It returns
// false when c has no active entry, meaning no filtering applies, and an
// empty list when entries are active but nothing matches.
func (e *Engine) FilterBy(c order.Criteria) ([]order.Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out, ok := e.filterLocked(c)
	if !ok {
		return nil, false
	}
	return slices.Clone(out), true
}

// SetFilterCriteria installs c as the active criteria and returns the new
// filtered list. Inactive criteria clear filtering.
func (e *Engine) SetFilterCriteria(c order.Criteria) ([]order.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.criteria = c
	e.filtered, e.hasFiltered = e.filterLocked(c)
	if !e.hasFiltered {
		return nil, false
	}
	return slices.Clone(e.filtered), true
}

// Filtered returns the list computed for the active criteria, kept current
// as batches are applied.
func (e *Engine) Filtered() ([]order.Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.hasFiltered {
		return nil, false
	}
	return slices.Clone(e.filtered), true
}

func (e *Engine) cacheKey(c order.Criteria) string {
	return strconv.FormatUint(e.revision, 10) + ":" + c.Key()
}

// filterLocked must be called with e.mu held. The returned slice is shared
// with the cache and must not be modified.
func (e *Engine) filterLocked(c order.Criteria) ([]order.Order, bool) {
	if !c.Active() {
		return nil, false
	}
	start := time.Now()
	key := e.cacheKey(c)
	if v, ok := e.cache.Get(key); ok {
		e.metrics.FilterObserved(time.Since(start), true)
		return v.([]order.Order), true
	}

	out := make([]order.Order, 0)
	positions, indexed := e.candidates(c)
	if indexed {
		for _, pos := range positions {
			o, _ := e.store.Get(pos)
			if c.Match(&o) {
				out = append(out, o)
			}
		}
	} else {
		for _, o := range e.store.All() {
			if c.Match(&o) {
				out = append(out, o)
			}
		}
	}
	e.cache.Add(key, out)
	e.metrics.FilterObserved(time.Since(start), false)
	return out, true
}

// candidates narrows the positions worth checking through the price and
// status indexes. The result is sorted and free of duplicates. indexed is
// false when no indexed attribute is active and every record must be
// scanned.
func (e *Engine) candidates(c order.Criteria) (positions []int, indexed bool) {
	if c.Price != 0 {
		bucket, _ := e.prices.Get(c.Price)
		positions = normalize(bucket)
		indexed = true
	}
	if c.Status != "" {
		var matched []int
		e.statuses.Match(func(key string) bool {
			return strings.Contains(key, c.Status)
		}, func(_ string, bucket []int) bool {
			matched = append(matched, bucket...)
			return true
		})
		matched = normalize(matched)
		if indexed {
			positions = intersect(positions, matched)
		} else {
			positions = matched
		}
		indexed = true
	}
	return positions, indexed
}

func normalize(positions []int) []int {
	slices.Sort(positions)
	return slices.Compact(positions)
}

// intersect merges two sorted position lists.
func intersect(a, b []int) []int {
	out := make([]int, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
