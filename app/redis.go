package app

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/redcon"

	"github.com/moontrade/orderflow/logger"
)

type client struct {
	addr       string
	authorized bool
}

func redisCommandToArgs(cmd redcon.Command) []string {
	args := make([]string, len(cmd.Args))
	args[0] = strings.ToLower(string(cmd.Args[0]))
	for i := 1; i < len(cmd.Args); i++ {
		args[i] = string(cmd.Args[i])
	}
	return args
}

type redisQuitClose struct{}

// redisSubscribe asks the handler to move the connection into pub/sub mode.
type redisSubscribe []string

// Hijack is a function type that can be used to "hijack" a service client
// connection and allowing to perform I/O operations outside the standard
// network loop.
type Hijack func(s *Service, conn HijackedConn)

func (s *Service) execArgs(c *client, conn redcon.Conn, args [][]string) {
	for _, args := range args {
		start := time.Now()
		resp, err := s.dispatch(c, args)
		elapsed := time.Since(start)
		if err != nil {
			conn.WriteError(respError(err))
		} else {
			switch v := resp.(type) {
			case redisQuitClose:
				conn.WriteString("OK")
				conn.Close()
			case redisSubscribe:
				for _, ch := range v {
					s.ps.Subscribe(conn, ch)
				}
			case Hijack:
				hc := newRedisHijackedConn(conn.Detach())
				go v(s, hc)
			default:
				writeAny(conn, v)
			}
		}
		// broadcast the request to all observers
		s.mon.Send(Message{
			Addr:    c.addr,
			Args:    args,
			Err:     err,
			Elapsed: elapsed,
		})
		switch resp.(type) {
		case redisQuitClose, redisSubscribe, Hijack:
			// the connection left the command loop
			return
		}
	}
}

func (s *Service) dispatch(c *client, args []string) (interface{}, error) {
	switch args[0] {
	case "quit":
		return redisQuitClose{}, nil
	case "auth":
		if len(args) != 2 {
			return nil, ErrWrongNumArgs
		}
		if err := s.auth(args[1]); err != nil {
			c.authorized = false
			return nil, err
		}
		c.authorized = true
		return redcon.SimpleString("OK"), nil
	}
	if !c.authorized {
		if err := s.auth(""); err != nil {
			return nil, err
		}
		c.authorized = true
	}
	switch args[0] {
	case "ping":
		switch len(args) {
		case 1:
			return redcon.SimpleString("PONG"), nil
		case 2:
			return args[1], nil
		}
		return nil, ErrWrongNumArgs
	case "echo":
		if len(args) != 2 {
			return nil, ErrWrongNumArgs
		}
		return args[1], nil
	case "subscribe":
		if len(args) < 2 {
			return nil, ErrWrongNumArgs
		}
		for _, ch := range args[1:] {
			if ch != RevisionsChannel {
				return nil, ErrInvalid
			}
		}
		return redisSubscribe(args[1:]), nil
	case "monitor":
		if len(args) != 1 {
			return nil, ErrWrongNumArgs
		}
		return Hijack(monitorHijack), nil
	}
	return s.exec(c, args)
}

func writeAny(conn redcon.Conn, v interface{}) {
	switch v := v.(type) {
	case []string:
		conn.WriteArray(len(v))
		for _, s := range v {
			conn.WriteBulkString(s)
		}
	case []interface{}:
		conn.WriteArray(len(v))
		for _, e := range v {
			writeAny(conn, e)
		}
	case uint64:
		conn.WriteUint64(v)
	case int:
		conn.WriteInt(v)
	case string:
		conn.WriteBulkString(v)
	case []byte:
		conn.WriteBulk(v)
	case nil:
		conn.WriteNull()
	default:
		conn.WriteAny(v)
	}
}

// Serve accepts Redis protocol connections on ln until ctx is done.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	s.baseCtx = ctx
	go s.publishRevisions(ctx)

	srv := redcon.NewServerNetwork(ln.Addr().Network(), ln.Addr().String(),
		// handle commands
		func(conn redcon.Conn, cmd redcon.Command) {
			c := conn.Context().(*client)
			var args [][]string
			args = append(args, redisCommandToArgs(cmd))
			for _, cmd := range conn.ReadPipeline() {
				args = append(args, redisCommandToArgs(cmd))
			}
			s.execArgs(c, conn, args)
		},
		// handle opened connection
		func(conn redcon.Conn) bool {
			conn.SetContext(&client{addr: conn.RemoteAddr()})
			return true
		},
		// handle closed connection
		func(conn redcon.Conn, err error) {
			c, ok := conn.Context().(*client)
			if !ok {
				return
			}
			s.closeSession(c)
		},
	)

	served := make(chan struct{})
	defer close(served)
	go func() {
		select {
		case <-ctx.Done():
		case <-served:
			return
		}
		// Close fails until Serve has taken the listener.
		for srv.Close() != nil {
			select {
			case <-served:
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}()

	err := srv.Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func monitorHijack(s *Service, conn HijackedConn) {
	o := s.mon.NewObserver()
	conn.WriteAny(redcon.SimpleString("OK"))
	if err := conn.Flush(); err != nil {
		o.Stop()
		conn.Close()
		return
	}
	go func() {
		// Any input, including QUIT, ends the monitor.
		conn.ReadCommand()
		o.Stop()
	}()
	for msg := range o.C() {
		var b strings.Builder
		b.WriteString(strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 6, 64))
		b.WriteString(" [")
		b.WriteString(msg.Addr)
		b.WriteString("]")
		for _, arg := range msg.Args {
			b.WriteString(" ")
			b.WriteString(strconv.Quote(arg))
		}
		conn.WriteAny(redcon.SimpleString(b.String()))
		if err := conn.Flush(); err != nil {
			logger.Debug(err, "addr", conn.RemoteAddr(), "monitor closed")
			o.Stop()
			break
		}
	}
	conn.Close()
}

// HijackedConn is a connection that has been detached from the main service
// network loop. It's entirely up to the hijacker to performs all I/O
// operations. The Write* functions buffer write data and the Flush must be
// called to do the actual sending of the data to the connection.
// Close the connection to when done.
type HijackedConn interface {
	// RemoteAddr is the connection remote tcp address.
	RemoteAddr() string
	// ReadCommand reads one command at a time.
	ReadCommand() (args []string, err error)
	// WriteAny writes any type to the write buffer.
	WriteAny(v interface{})
	// Flush the write write buffer and send data to the connection.
	Flush() error
	// Close the connection
	Close() error
}

type redisHijackConn struct {
	dconn redcon.DetachedConn
	cmds  []redcon.Command
}

func newRedisHijackedConn(dconn redcon.DetachedConn) *redisHijackConn {
	return &redisHijackConn{dconn: dconn}
}

func (conn *redisHijackConn) ReadCommand() ([]string, error) {
	if len(conn.cmds) == 0 {
		cmd, err := conn.dconn.ReadCommand()
		if err != nil {
			return nil, err
		}
		conn.cmds = conn.dconn.ReadPipeline()
		return redisCommandToArgs(cmd), nil
	}
	cmd := conn.cmds[0]
	conn.cmds = conn.cmds[1:]
	return redisCommandToArgs(cmd), nil
}

func (conn *redisHijackConn) WriteAny(v interface{}) {
	conn.dconn.WriteAny(v)
}

func (conn *redisHijackConn) Flush() error {
	return conn.dconn.Flush()
}

func (conn *redisHijackConn) Close() error {
	return conn.dconn.Close()
}

func (conn *redisHijackConn) RemoteAddr() string {
	return conn.dconn.RemoteAddr()
}
