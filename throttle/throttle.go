// Package throttle rate limits calls to a function with leading and trailing
// edge debouncing. A call inside the wait window replaces the argument of the
// pending trailing invocation, so the most recent argument always wins.
package throttle

import (
	"errors"
	"sync"
	"time"
)

var ErrInvalidWait = errors.New("wait must not be negative")

type Options struct {
	// Wait is the quiet period after the last call before a trailing
	// invocation.
	Wait time.Duration
	// Leading invokes on the first call of a burst.
	Leading bool
	// Trailing invokes with the last argument once the burst settles.
	Trailing bool
	// MaxWait bounds how long invocations can be postponed by a continuous
	// burst. Zero disables it; otherwise it is raised to at least Wait.
	MaxWait time.Duration
	Clock   Clock
}

// Func wraps fn. Invocations of fn are serialized and run outside the
// internal state lock; fn must not call back into the same Func.
type Func[T any] struct {
	fn      func(T)
	wait    time.Duration
	maxWait time.Duration
	leading bool
	trail   bool
	maxing  bool
	clock   Clock

	invoke sync.Mutex

	mu         sync.Mutex
	timer      Stopper
	gen        uint64
	called     bool
	lastCall   time.Time
	lastInvoke time.Time
	arg        T
	hasArg     bool
}

// Debounce returns fn wrapped according to opts.
func Debounce[T any](fn func(T), opts Options) (*Func[T], error) {
	if opts.Wait < 0 || opts.MaxWait < 0 {
		return nil, ErrInvalidWait
	}
	f := &Func[T]{
		fn:      fn,
		wait:    opts.Wait,
		leading: opts.Leading,
		trail:   opts.Trailing,
		maxing:  opts.MaxWait > 0,
		clock:   opts.Clock,
	}
	if f.maxing {
		f.maxWait = max(opts.MaxWait, opts.Wait)
	}
	if f.clock == nil {
		f.clock = SystemClock
	}
	return f, nil
}

// Throttle invokes fn at most once per wait, on both edges.
func Throttle[T any](fn func(T), wait time.Duration, clock Clock) (*Func[T], error) {
	return Debounce(fn, Options{
		Wait:     wait,
		Leading:  true,
		Trailing: true,
		MaxWait:  wait,
		Clock:    clock,
	})
}

// Call records arg as the latest argument and invokes fn when an edge is due.
func (f *Func[T]) Call(arg T) {
	f.mu.Lock()
	now := f.clock.Now()
	invoking := f.shouldInvoke(now)
	f.arg, f.hasArg = arg, true
	f.called, f.lastCall = true, now

	if invoking {
		if f.timer == nil {
			f.leadingEdge(now)
			return
		}
		if f.maxing {
			f.schedule(f.wait)
			f.invokeLocked(now)
			return
		}
	}
	if f.timer == nil {
		f.schedule(f.wait)
	}
	f.mu.Unlock()
}

// Flush runs a pending trailing invocation immediately.
func (f *Func[T]) Flush() {
	f.mu.Lock()
	if f.timer == nil {
		f.mu.Unlock()
		return
	}
	f.timer.Stop()
	f.trailingEdge(f.clock.Now())
}

// Pending reports whether a timer is armed.
func (f *Func[T]) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timer != nil
}

func (f *Func[T]) shouldInvoke(now time.Time) bool {
	if !f.called {
		return true
	}
	sinceCall := now.Sub(f.lastCall)
	sinceInvoke := now.Sub(f.lastInvoke)
	return sinceCall >= f.wait || sinceCall < 0 || (f.maxing && sinceInvoke >= f.maxWait)
}

// leadingEdge, timerExpired, trailingEdge and invokeLocked are entered with
// f.mu held and release it before returning.

func (f *Func[T]) leadingEdge(now time.Time) {
	f.lastInvoke = now
	f.schedule(f.wait)
	if f.leading {
		f.invokeLocked(now)
		return
	}
	f.mu.Unlock()
}

func (f *Func[T]) schedule(d time.Duration) {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	f.timer = f.clock.AfterFunc(d, func() { f.timerExpired(gen) })
}

func (f *Func[T]) timerExpired(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || f.timer == nil {
		f.mu.Unlock()
		return
	}
	now := f.clock.Now()
	if f.shouldInvoke(now) {
		f.trailingEdge(now)
		return
	}
	f.timer = nil
	f.schedule(f.remainingWait(now))
	f.mu.Unlock()
}

func (f *Func[T]) remainingWait(now time.Time) time.Duration {
	waiting := f.wait - now.Sub(f.lastCall)
	if f.maxing {
		return min(waiting, f.maxWait-now.Sub(f.lastInvoke))
	}
	return waiting
}

func (f *Func[T]) trailingEdge(now time.Time) {
	f.timer = nil
	f.gen++
	if f.trail && f.hasArg {
		f.invokeLocked(now)
		return
	}
	var zero T
	f.arg, f.hasArg = zero, false
	f.mu.Unlock()
}

func (f *Func[T]) invokeLocked(now time.Time) {
	arg := f.arg
	var zero T
	f.arg, f.hasArg = zero, false
	f.lastInvoke = now
	f.invoke.Lock()
	f.mu.Unlock()
	defer f.invoke.Unlock()
	f.fn(arg)
}
