package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/moontrade/orderflow/logger"
)

type RedisOptions struct {
	Addr           string
	Auth           string
	TLS            *tls.Config
	EventChannel   string
	ConnectChannel string
	DialTimeout    time.Duration
}

// Redis subscribes to the event channel of a Redis-protocol server and
// publishes the handshake on the connect channel.
type Redis struct {
	opts      RedisOptions
	pool      *redis.Pool
	handshake Handshake

	ready     chan struct{} // closed once a Receive loop is subscribed
	readyOnce sync.Once
	done      chan struct{}

	mu        sync.Mutex
	connected bool
	closed    bool
	subs      map[redis.Conn]struct{}
}

func NewRedis(opts RedisOptions) *Redis {
	if opts.EventChannel == "" {
		opts.EventChannel = EventChannel
	}
	if opts.ConnectChannel == "" {
		opts.ConnectChannel = ConnectChannel
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	r := &Redis{
		opts:      opts,
		handshake: NewHandshake(),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		subs:      make(map[redis.Conn]struct{}),
	}
	r.pool = &redis.Pool{
		MaxIdle:     2,
		IdleTimeout: time.Minute,
		Dial:        r.dial,
	}
	return r
}

func (r *Redis) dial() (redis.Conn, error) {
	options := []redis.DialOption{redis.DialConnectTimeout(r.opts.DialTimeout)}
	if r.opts.TLS != nil {
		options = append(options, redis.DialUseTLS(true), redis.DialTLSConfig(r.opts.TLS))
	}
	if r.opts.Auth != "" {
		options = append(options, redis.DialPassword(r.opts.Auth))
	}
	return redis.Dial("tcp", r.opts.Addr, options...)
}

// Handshake is the session announced by Connect.
func (r *Redis) Handshake() Handshake {
	return r.handshake
}

// Connect publishes the handshake once the event channel subscription of a
// Receive loop is confirmed, so batches sent in reply are not lost.
func (r *Redis) Connect(ctx context.Context) error {
	select {
	case <-r.ready:
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.connected {
		return nil
	}
	payload, err := r.handshake.MarshalJSON()
	if err != nil {
		return err
	}
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", r.opts.Addr, err)
	}
	defer conn.Close()
	if _, err = conn.Do("PUBLISH", r.opts.ConnectChannel, payload); err != nil {
		return fmt.Errorf("transport: handshake: %w", err)
	}
	r.connected = true
	logger.Info("addr", r.opts.Addr, "socketId", r.handshake.SocketID, "connected to order flow")
	return nil
}

func (r *Redis) Receive(ctx context.Context, fn Handler) error {
	conn, err := r.dial()
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", r.opts.Addr, err)
	}
	if !r.track(conn) {
		conn.Close()
		return ErrClosed
	}
	defer r.untrack(conn)

	psc := redis.PubSubConn{Conn: conn}
	if err := psc.Subscribe(r.opts.EventChannel); err != nil {
		return fmt.Errorf("transport: subscribe: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		switch v := psc.Receive().(type) {
		case redis.Message:
			if err := fn(v.Data); err != nil {
				return err
			}
		case redis.Subscription:
			logger.Debug("kind", v.Kind, "channel", v.Channel, "count", v.Count, "subscription changed")
			if v.Count == 0 {
				return nil
			}
			r.readyOnce.Do(func() { close(r.ready) })
		case error:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.isClosed() {
				return ErrClosed
			}
			return fmt.Errorf("transport: receive: %w", v)
		}
	}
}

func (r *Redis) track(conn redis.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.subs[conn] = struct{}{}
	return true
}

func (r *Redis) untrack(conn redis.Conn) {
	r.mu.Lock()
	delete(r.subs, conn)
	r.mu.Unlock()
	conn.Close()
}

func (r *Redis) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	for conn := range r.subs {
		conn.Close()
	}
	r.mu.Unlock()
	return r.pool.Close()
}
