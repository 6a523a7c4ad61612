package viewport

import "sync"

// Lister is a positional source of items, such as a store or a filtered list.
type Lister[T any] interface {
	Len() int
	Slice(start, end int) []T
}

type Holder interface {
	Hold() bool
}

// HoldFunc adapts a func to Holder.
type HoldFunc func() bool

func (f HoldFunc) Hold() bool { return f() }

// Window exposes a growing prefix of a Lister. Every Reveal extends the
// prefix by a fixed step unless the Holder asks to hold.
type Window[T any] struct {
	src    Lister[T]
	holder Holder
	step   int

	mu       sync.Mutex
	revealed int
}

func NewWindow[T any](src Lister[T], holder Holder, step int) *Window[T] {
	if step <= 0 {
		step = DefaultStep
	}
	if holder == nil {
		holder = HoldFunc(func() bool { return false })
	}
	return &Window[T]{src: src, holder: holder, step: step}
}

// Reveal grows the window by one step when not held and returns the number
// of revealed items.
func (w *Window[T]) Reveal() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := w.src.Len()
	if w.revealed > total {
		w.revealed = total
	}
	if w.revealed < total && !w.holder.Hold() {
		w.revealed = min(w.revealed+w.step, total)
	}
	return w.revealed
}

// Reset collapses the window, for example after the source was replaced by
// a different filter result.
func (w *Window[T]) Reset() {
	w.mu.Lock()
	w.revealed = 0
	w.mu.Unlock()
}

// Revealed is the current window size, bounded by the source length.
func (w *Window[T]) Revealed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return min(w.revealed, w.src.Len())
}

// Items copies the revealed prefix.
func (w *Window[T]) Items() []T {
	return w.src.Slice(0, w.Revealed())
}

// Complete is true once the whole source is revealed.
func (w *Window[T]) Complete() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.revealed >= w.src.Len()
}
