package viewport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moontrade/orderflow/logger"
	"github.com/moontrade/orderflow/throttle"
)

var ErrClosed = errors.New("scheduler closed")

// Signal kinds.
type Kind int

const (
	Scroll Kind = iota
	Mutation
)

func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "scroll"
}

type Signal struct {
	Kind    Kind
	Extents Extents
}

type Options struct {
	// Interval is the minimum time between classifications.
	Interval time.Duration
	// Buffer is the capacity of the signal channel.
	Buffer int
	Clock  throttle.Clock
	// OnChange is called after every classification with the new position.
	OnChange func(Position)
}

// Scheduler receives scroll and content mutation signals from separate
// producers through a single channel. Run drains the channel into a throttle
// so classification happens at a bounded rate however fast signals arrive.
type Scheduler struct {
	signals  chan Signal
	done     chan struct{}
	once     sync.Once
	classify *throttle.Func[Extents]
	onChange func(Position)

	mu        sync.RWMutex
	pos       Position
	received  uint64
	evaluated uint64
}

func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	s := &Scheduler{
		signals:  make(chan Signal, opts.Buffer),
		done:     make(chan struct{}),
		onChange: opts.OnChange,
		pos:      Initial,
	}
	f, err := throttle.Throttle(s.evaluate, opts.Interval, opts.Clock)
	if err != nil {
		return nil, err
	}
	s.classify = f
	return s, nil
}

// Scrolled is the scroll signal producer.
func (s *Scheduler) Scrolled(e Extents) error {
	return s.send(Signal{Kind: Scroll, Extents: e})
}

// ContentChanged is the content mutation signal producer.
func (s *Scheduler) ContentChanged(e Extents) error {
	return s.send(Signal{Kind: Mutation, Extents: e})
}

func (s *Scheduler) send(sig Signal) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.signals <- sig:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Run consumes signals until ctx is done or Close is called. A pending
// trailing classification is flushed before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.classify.Flush()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-s.done:
			return nil
		case sig := <-s.signals:
			logger.Trace("kind", sig.Kind.String(), "viewport", sig.Extents.Viewport,
				"content", sig.Extents.Content, "offset", sig.Extents.Offset, "viewport signal")
			s.classify.Call(sig.Extents)
			s.mu.Lock()
			s.received++
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Scheduler) evaluate(e Extents) {
	p := e.Classify()
	s.mu.Lock()
	s.pos = p
	s.evaluated++
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(p)
	}
}

func (s *Scheduler) Position() Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos
}

// Hold is true while the last classification was Far.
func (s *Scheduler) Hold() bool {
	return s.Position().Hold()
}

// Stats returns the number of signals consumed and classifications made.
func (s *Scheduler) Stats() (received, evaluated uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.received, s.evaluated
}
