package engine

import (
	"sync"

	"github.com/moontrade/orderflow/order"
)

// Snapshot announces a committed revision.
type Snapshot struct {
	Revision uint64
	Count    int
	e        *Engine
}

// Orders copies the records that existed at the revision. Records updated
// by later batches are returned in their latest state.
func (s Snapshot) Orders() []order.Order {
	if s.e == nil {
		return []order.Order{}
	}
	return s.e.Slice(0, s.Count)
}

// Subscription delivers a Snapshot for committed revisions. A subscriber
// that falls behind skips intermediate snapshots but always receives the
// latest one.
type Subscription struct {
	subs *subscribers
	c    chan Snapshot
}

func (s *Subscription) C() <-chan Snapshot {
	return s.c
}

func (s *Subscription) Stop() {
	s.subs.mu.Lock()
	defer s.subs.mu.Unlock()
	if _, ok := s.subs.subs[s]; ok {
		delete(s.subs.subs, s)
		close(s.c)
	}
}

type subscribers struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func (e *Engine) Subscribe() *Subscription {
	s := &Subscription{subs: &e.subs, c: make(chan Snapshot, 1)}
	e.subs.mu.Lock()
	e.subs.subs[s] = struct{}{}
	e.subs.mu.Unlock()
	return s
}

// Subscribers is the number of active subscriptions.
func (e *Engine) Subscribers() int {
	e.subs.mu.Lock()
	defer e.subs.mu.Unlock()
	return len(e.subs.subs)
}

func (ss *subscribers) publish(snap Snapshot) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for s := range ss.subs {
		select {
		case s.c <- snap:
			continue
		default:
		}
		// Replace the stale snapshot nobody consumed yet.
		select {
		case <-s.c:
		default:
		}
		select {
		case s.c <- snap:
		default:
		}
	}
}
