package transport

import (
	"context"
	"sync"
)

// Memory is an in-process Source fed through Push.
type Memory struct {
	batches chan []byte
	done    chan struct{}
	once    sync.Once

	mu         sync.Mutex
	handshakes []Handshake
}

func NewMemory(buffer int) *Memory {
	return &Memory{
		batches: make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

// Push queues a batch, blocking while the buffer is full.
func (m *Memory) Push(ctx context.Context, batch []byte) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.batches <- batch:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	if len(m.handshakes) == 0 {
		m.handshakes = append(m.handshakes, NewHandshake())
	}
	return nil
}

// Handshakes returns the handshakes performed so far.
func (m *Memory) Handshakes() []Handshake {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Handshake(nil), m.handshakes...)
}

func (m *Memory) Receive(ctx context.Context, fn Handler) error {
	for {
		select {
		case <-m.done:
			return ErrClosed
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		case batch := <-m.batches:
			if err := fn(batch); err != nil {
				return err
			}
		}
	}
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
