package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moontrade/orderflow/compress"
	"github.com/moontrade/orderflow/engine"
	"github.com/moontrade/orderflow/order"
	"github.com/moontrade/orderflow/transport"
)

type testServer struct {
	svc  *Service
	eng  *engine.Engine
	addr string
}

func startService(t *testing.T, conf Config, src transport.Source) *testServer {
	t.Helper()
	eng, err := engine.New(engine.Options{BlockSize: 16})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc := NewService(conf, eng, src, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return &testServer{svc: svc, eng: eng, addr: ln.Addr().String()}
}

func (ts *testServer) dial(t *testing.T) redis.Conn {
	t.Helper()
	conn, err := redis.Dial("tcp", ts.addr, redis.DialReadTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func orders(from, to int, status order.Status) string {
	parts := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		parts = append(parts, fmt.Sprintf(
			`{"id":"o%03d","customer":"customer %d","destination":"%d Main St","event_name":%q,"item":"item %d","price":%d,"sent_at_second":%d}`,
			i, i, i, status, i%3, 100+i%5, i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func decodeList(t *testing.T, data []byte) []order.Order {
	t.Helper()
	var out []order.Order
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPing(t *testing.T) {
	conn := startService(t, Config{}, nil).dial(t)

	pong, err := redis.String(conn.Do("PING"))
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)

	echo, err := redis.String(conn.Do("PING", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", echo)

	echo, err = redis.String(conn.Do("ECHO", "there"))
	require.NoError(t, err)
	assert.Equal(t, "there", echo)

	_, err = conn.Do("NOPE")
	assert.EqualError(t, err, "ERR unknown command 'nope'")

	_, err = conn.Do("COUNT", "extra")
	assert.EqualError(t, err, "ERR wrong number of arguments")
}

func TestAuth(t *testing.T) {
	conn := startService(t, Config{Auth: "secret"}, nil).dial(t)

	_, err := conn.Do("COUNT")
	assert.EqualError(t, err, "ERR unauthorized")

	_, err = conn.Do("AUTH", "wrong")
	assert.EqualError(t, err, "ERR unauthorized")

	ok, err := redis.String(conn.Do("AUTH", "secret"))
	require.NoError(t, err)
	assert.Equal(t, "OK", ok)

	n, err := redis.Int(conn.Do("COUNT"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIngestAndQuery(t *testing.T) {
	ts := startService(t, Config{}, nil)
	conn := ts.dial(t)

	res, err := redis.Int64s(conn.Do("INGEST", orders(0, 20, order.Created)))
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 0, 0, 1}, res)

	batch := `[{"id":"o003","event_name":"COOKED","sent_at_second":50},{"id":""},{"id":"o020","event_name":"CREATED","price":7}]`
	res, err = redis.Int64s(conn.Do("INGEST", batch))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 1, 2}, res)

	_, err = conn.Do("INGEST", "[{")
	assert.EqualError(t, err, "ERR malformed batch")

	n, err := redis.Int(conn.Do("COUNT"))
	require.NoError(t, err)
	assert.Equal(t, 21, n)

	rev, err := redis.Uint64(conn.Do("REVISION"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)

	data, err := redis.Bytes(conn.Do("LIST"))
	require.NoError(t, err)
	all := decodeList(t, data)
	require.Len(t, all, 21)
	assert.Equal(t, "o000", all[0].ID)
	assert.Equal(t, order.Cooked, all[3].Status)
	assert.Equal(t, "customer 3", all[3].Customer)
	assert.Equal(t, "o020", all[20].ID)

	data, err = redis.Bytes(conn.Do("LIST", "-2"))
	require.NoError(t, err)
	assert.Equal(t, all[19:], decodeList(t, data))

	data, err = redis.Bytes(conn.Do("LIST", "2", "5"))
	require.NoError(t, err)
	assert.Equal(t, all[2:5], decodeList(t, data))

	_, err = conn.Do("LIST", "a")
	assert.EqualError(t, err, "ERR syntax error")

	data, err = redis.Bytes(conn.Do("GET", "o003"))
	require.NoError(t, err)
	var o order.Order
	require.NoError(t, o.UnmarshalJSON(data))
	assert.Equal(t, all[3], o)

	_, err = redis.Bytes(conn.Do("GET", "missing"))
	assert.ErrorIs(t, err, redis.ErrNil)

	ids, err := redis.Strings(conn.Do("IDS", "o01*"))
	require.NoError(t, err)
	assert.Len(t, ids, 10)
	assert.Equal(t, "o010", ids[0])

	ids, err = redis.Strings(conn.Do("IDS"))
	require.NoError(t, err)
	assert.Len(t, ids, 21)
}

func TestFilterCommands(t *testing.T) {
	ts := startService(t, Config{}, nil)
	conn := ts.dial(t)

	_, err := conn.Do("INGEST", orders(0, 10, order.Created))
	require.NoError(t, err)

	_, err = redis.Bytes(conn.Do("FILTERED"))
	assert.ErrorIs(t, err, redis.ErrNil)

	n, err := redis.Int(conn.Do("FILTER", "price", "102"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = conn.Do("INGEST", `[{"id":"o004","price":102},{"id":"o099","price":102}]`)
	require.NoError(t, err)

	data, err := redis.Bytes(conn.Do("FILTERED"))
	require.NoError(t, err)
	got := decodeList(t, data)
	ids := make([]string, 0, len(got))
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"o002", "o004", "o007", "o099"}, ids)

	n, err = redis.Int(conn.Do("FILTER", "status", "CREA", "customer", "customer 1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = conn.Do("FILTER", "price", "1x")
	assert.Error(t, err)
	_, err = conn.Do("FILTER", "price")
	assert.EqualError(t, err, "ERR wrong number of arguments")

	ok, err := redis.String(conn.Do("FILTER"))
	require.NoError(t, err)
	assert.Equal(t, "OK", ok)
	_, err = redis.Bytes(conn.Do("FILTERED"))
	assert.ErrorIs(t, err, redis.ErrNil)
}

func TestDump(t *testing.T) {
	ts := startService(t, Config{}, nil)
	conn := ts.dial(t)
	_, err := conn.Do("INGEST", orders(0, 40, order.Delivered))
	require.NoError(t, err)

	want, err := order.MarshalList(ts.eng.List())
	require.NoError(t, err)

	for _, codec := range []string{"", "none", "snappy", "lz4"} {
		args := []interface{}{}
		if codec != "" {
			args = append(args, codec)
		}
		frame, err := redis.Bytes(conn.Do("DUMP", args...))
		require.NoError(t, err, codec)
		data, err := compress.Decode(frame)
		require.NoError(t, err, codec)
		assert.Equal(t, want, data, codec)
	}

	_, err = conn.Do("DUMP", "zstd")
	assert.Error(t, err)
}

func TestSubscribeRevisions(t *testing.T) {
	ts := startService(t, Config{}, nil)
	require.Eventually(t, func() bool { return ts.eng.Subscribers() == 1 }, time.Second, time.Millisecond)

	psc := redis.PubSubConn{Conn: ts.dial(t)}
	require.NoError(t, psc.Subscribe(RevisionsChannel))
	switch v := psc.Receive().(type) {
	case redis.Subscription:
		assert.Equal(t, RevisionsChannel, v.Channel)
	default:
		t.Fatalf("unexpected reply %v", v)
	}

	conn := ts.dial(t)
	_, err := conn.Do("INGEST", orders(0, 3, order.Created))
	require.NoError(t, err)

	switch v := psc.Receive().(type) {
	case redis.Message:
		assert.Equal(t, "1:3", string(v.Data))
	default:
		t.Fatalf("unexpected reply %v", v)
	}

	_, err = conn.Do("SUBSCRIBE", "other")
	assert.EqualError(t, err, "ERR invalid")
}

func TestConnect(t *testing.T) {
	conn := startService(t, Config{}, nil).dial(t)
	_, err := conn.Do("CONNECT")
	assert.EqualError(t, err, "ERR no transport configured")

	src := transport.NewMemory(1)
	conn = startService(t, Config{}, src).dial(t)
	for i := 0; i < 2; i++ {
		ok, err := redis.String(conn.Do("CONNECT"))
		require.NoError(t, err)
		assert.Equal(t, "OK", ok)
	}
	hs := src.Handshakes()
	require.Len(t, hs, 1)
	assert.Len(t, hs[0].TokenID, transport.HandshakeTokenLength)
}

func TestViewportSession(t *testing.T) {
	conf := Config{Viewport: ViewportConfig{Interval: 5 * time.Millisecond, Step: 50}}
	ts := startService(t, conf, nil)
	conn := ts.dial(t)

	window := func() int {
		data, err := redis.Bytes(conn.Do("WINDOW"))
		require.NoError(t, err)
		return len(decodeList(t, data))
	}

	// a window opened on an empty list fills once records arrive
	assert.Equal(t, 0, window())
	_, err := conn.Do("INGEST", orders(0, 120, order.Created))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return window() == 50 }, time.Second, 5*time.Millisecond)

	// far from the bottom holds the window
	ok, err := redis.String(conn.Do("VIEWPORT", "100", "10000", "0"))
	require.NoError(t, err)
	assert.Equal(t, "OK", ok)
	require.Eventually(t, func() bool {
		v, err := redis.Values(conn.Do("HOLD"))
		require.NoError(t, err)
		var hold, top int
		var dist string
		_, err = redis.Scan(v, &hold, &top, &dist)
		require.NoError(t, err)
		return hold == 1 && top == 1 && dist == "far"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 50, window())

	// reaching the bottom reveals the next step
	_, err = conn.Do("MUTATED", "100", "1000", "850")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return window() == 100 }, time.Second, 5*time.Millisecond)

	_, err = conn.Do("VIEWPORT", "100", "x", "0")
	assert.EqualError(t, err, "ERR syntax error")
	_, err = conn.Do("VIEWPORT", "100")
	assert.EqualError(t, err, "ERR wrong number of arguments")

	// new criteria restart the window on the filtered list
	n, err := redis.Int(conn.Do("FILTER", "item", "item 1"))
	require.NoError(t, err)
	assert.Equal(t, 40, n)
	assert.Equal(t, 40, window())
}

func TestSessionClosedWithConnection(t *testing.T) {
	ts := startService(t, Config{}, nil)
	conn, err := redis.Dial("tcp", ts.addr)
	require.NoError(t, err)
	_, err = conn.Do("WINDOW")
	require.NoError(t, err)

	ts.svc.sessMu.Lock()
	assert.Len(t, ts.svc.sessions, 1)
	ts.svc.sessMu.Unlock()

	ok, err := redis.String(conn.Do("QUIT"))
	require.NoError(t, err)
	assert.Equal(t, "OK", ok)
	conn.Close()

	require.Eventually(t, func() bool {
		ts.svc.sessMu.Lock()
		defer ts.svc.sessMu.Unlock()
		return len(ts.svc.sessions) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMonitorCommand(t *testing.T) {
	ts := startService(t, Config{}, nil)
	mon := ts.dial(t)
	ok, err := redis.String(mon.Do("MONITOR"))
	require.NoError(t, err)
	assert.Equal(t, "OK", ok)
	require.Eventually(t, func() bool { return ts.svc.mon.observers() == 1 }, time.Second, time.Millisecond)

	conn := ts.dial(t)
	_, err = conn.Do("COUNT")
	require.NoError(t, err)

	line, err := redis.String(mon.Receive())
	require.NoError(t, err)
	assert.Contains(t, line, `"count"`)
	assert.Contains(t, line, "[127.0.0.1:")
}

func TestServeStopsOnCancel(t *testing.T) {
	eng, err := engine.New(engine.Options{})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	svc := NewService(Config{}, eng, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()

	conn, err := redis.Dial("tcp", addr, redis.DialReadTimeout(time.Second))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Do("PING")
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve still running after cancel")
	}

	// open connections go down with the server
	_, err = conn.Do("PING")
	assert.Error(t, err)
	_, err = net.Dial("tcp", addr)
	assert.Error(t, err)
}

func TestServeCancelledBeforeStart(t *testing.T) {
	eng, err := engine.New(engine.Options{})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() { done <- NewService(Config{}, eng, nil, nil).Serve(ctx, ln) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve still running after cancel")
	}
}
