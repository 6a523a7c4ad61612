package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tidwall/redcon"

	"github.com/moontrade/orderflow/compress"
	"github.com/moontrade/orderflow/engine"
	"github.com/moontrade/orderflow/logger"
	"github.com/moontrade/orderflow/order"
	"github.com/moontrade/orderflow/transport"
	"github.com/moontrade/orderflow/viewport"
)

// RevisionsChannel is the pub/sub channel announcing "revision:count" for
// every committed revision.
const RevisionsChannel = "revisions"

// SessionMetrics counts viewport sessions. metrics.Collector implements it.
type SessionMetrics interface {
	SessionOpened()
	SessionClosed()
}

type nopSessionMetrics struct{}

func (nopSessionMetrics) SessionOpened() {}
func (nopSessionMetrics) SessionClosed() {}

type command func(s *Service, c *client, args []string) (interface{}, error)

// Service answers the Redis protocol on top of an Engine.
type Service struct {
	conf     Config
	engine   *engine.Engine
	source   transport.Source
	metrics  SessionMetrics
	mon      *monitor
	ps       redcon.PubSub
	cmds     map[string]command
	baseCtx  context.Context
	sessMu   sync.Mutex
	sessions map[*client]*session
}

// NewService returns a Service. src may be nil, in which case CONNECT fails
// and batches only arrive through INGEST.
func NewService(conf Config, eng *engine.Engine, src transport.Source, sm SessionMetrics) *Service {
	conf.def()
	if sm == nil {
		sm = nopSessionMetrics{}
	}
	s := &Service{
		conf:     conf,
		engine:   eng,
		source:   src,
		metrics:  sm,
		mon:      newMonitor(),
		baseCtx:  context.Background(),
		sessions: make(map[*client]*session),
	}
	s.cmds = map[string]command{
		"count":    cmdCount,
		"revision": cmdRevision,
		"list":     cmdList,
		"get":      cmdGet,
		"ids":      cmdIDs,
		"filter":   cmdFilter,
		"filtered": cmdFiltered,
		"ingest":   cmdIngest,
		"connect":  cmdConnect,
		"dump":     cmdDump,
		"viewport": cmdViewport,
		"mutated":  cmdMutated,
		"window":   cmdWindow,
		"hold":     cmdHold,
	}
	return s
}

// Monitor allows for observing all incoming commands from all clients.
func (s *Service) Monitor() Monitor {
	return s.mon
}

func (s *Service) auth(auth string) error {
	if s.conf.Auth != auth {
		return ErrUnauthorized
	}
	return nil
}

// exec runs one registered command.
func (s *Service) exec(c *client, args []string) (interface{}, error) {
	cmd, ok := s.cmds[args[0]]
	if !ok {
		return nil, errUnknownCommand(args)
	}
	return cmd(s, c, args)
}

// publishRevisions forwards committed revisions to SUBSCRIBE clients.
func (s *Service) publishRevisions(ctx context.Context) {
	sub := s.engine.Subscribe()
	defer sub.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			s.ps.Publish(RevisionsChannel, strconv.FormatUint(snap.Revision, 10)+":"+strconv.Itoa(snap.Count))
			// Windows opened on an empty list show the first step as soon
			// as records exist.
			s.sessMu.Lock()
			for _, sess := range s.sessions {
				if sess.window.Revealed() == 0 {
					sess.window.Reveal()
				}
			}
			s.sessMu.Unlock()
		}
	}
}

func cmdCount(s *Service, _ *client, args []string) (interface{}, error) {
	if len(args) != 1 {
		return nil, ErrWrongNumArgs
	}
	return s.engine.Count(), nil
}

func cmdRevision(s *Service, _ *client, args []string) (interface{}, error) {
	if len(args) != 1 {
		return nil, ErrWrongNumArgs
	}
	return s.engine.Revision(), nil
}

func marshalOrders(orders []order.Order) (interface{}, error) {
	data, err := order.MarshalList(orders)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func cmdList(s *Service, _ *client, args []string) (interface{}, error) {
	switch len(args) {
	case 1:
		return marshalOrders(s.engine.List())
	case 2:
		start, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, ErrSyntax
		}
		return marshalOrders(s.engine.Slice(start, s.engine.Count()))
	case 3:
		start, err1 := strconv.Atoi(args[1])
		end, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return nil, ErrSyntax
		}
		return marshalOrders(s.engine.Slice(start, end))
	}
	return nil, ErrWrongNumArgs
}

func cmdGet(s *Service, _ *client, args []string) (interface{}, error) {
	if len(args) != 2 {
		return nil, ErrWrongNumArgs
	}
	o, ok := s.engine.Get(args[1])
	if !ok {
		return nil, nil
	}
	return o.MarshalJSON()
}

func cmdIDs(s *Service, _ *client, args []string) (interface{}, error) {
	switch len(args) {
	case 1:
		return s.engine.IDs(""), nil
	case 2:
		return s.engine.IDs(args[1]), nil
	}
	return nil, ErrWrongNumArgs
}

// cmdFilter installs the criteria given as field/value pairs and replies
// with the number of matches. Without pairs filtering is cleared.
func cmdFilter(s *Service, _ *client, args []string) (interface{}, error) {
	if len(args)%2 != 1 {
		return nil, ErrWrongNumArgs
	}
	var c order.Criteria
	for i := 1; i < len(args); i += 2 {
		if err := c.Set(args[i], args[i+1]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	filtered, ok := s.engine.SetFilterCriteria(c)
	s.resetWindows()
	if !ok {
		return redcon.SimpleString("OK"), nil
	}
	return len(filtered), nil
}

func cmdFiltered(s *Service, _ *client, args []string) (interface{}, error) {
	if len(args) != 1 {
		return nil, ErrWrongNumArgs
	}
	filtered, ok := s.engine.Filtered()
	if !ok {
		return nil, nil
	}
	return marshalOrders(filtered)
}

func cmdIngest(s *Service, _ *client, args []string) (interface{}, error) {
	if len(args) != 2 {
		return nil, ErrWrongNumArgs
	}
	res, err := s.engine.Apply([]byte(args[1]))
	if err != nil {
		return nil, err
	}
	return []interface{}{res.Inserted, res.Updated, res.Rejected, res.Revision}, nil
}

func cmdConnect(s *Service, _ *client, args []string) (interface{}, error) {
	if len(args) != 1 {
		return nil, ErrWrongNumArgs
	}
	if s.source == nil {
		return nil, ErrNoTransport
	}
	if err := s.source.Connect(s.baseCtx); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func cmdDump(s *Service, _ *client, args []string) (interface{}, error) {
	var name string
	switch len(args) {
	case 1:
	case 2:
		name = args[1]
	default:
		return nil, ErrWrongNumArgs
	}
	codec, err := compress.ParseCodec(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	data, err := order.MarshalList(s.engine.List())
	if err != nil {
		return nil, err
	}
	return compress.Encode(codec, data)
}

func parseExtents(args []string) (viewport.Extents, error) {
	if len(args) != 4 {
		return viewport.Extents{}, ErrWrongNumArgs
	}
	var v [3]float64
	for i := range v {
		f, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil || f < 0 {
			return viewport.Extents{}, ErrSyntax
		}
		v[i] = f
	}
	return viewport.Extents{Viewport: v[0], Content: v[1], Offset: v[2]}, nil
}

func cmdViewport(s *Service, c *client, args []string) (interface{}, error) {
	e, err := parseExtents(args)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(c)
	if err != nil {
		return nil, err
	}
	if err := sess.sched.Scrolled(e); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func cmdMutated(s *Service, c *client, args []string) (interface{}, error) {
	e, err := parseExtents(args)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(c)
	if err != nil {
		return nil, err
	}
	if err := sess.sched.ContentChanged(e); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func cmdWindow(s *Service, c *client, args []string) (interface{}, error) {
	if len(args) != 1 {
		return nil, ErrWrongNumArgs
	}
	sess, err := s.session(c)
	if err != nil {
		return nil, err
	}
	return marshalOrders(sess.window.Items())
}

// cmdHold replies with the hold flag followed by the position: at-top flag
// and distance to the bottom.
func cmdHold(s *Service, c *client, args []string) (interface{}, error) {
	if len(args) != 1 {
		return nil, ErrWrongNumArgs
	}
	sess, err := s.session(c)
	if err != nil {
		return nil, err
	}
	p := sess.sched.Position()
	return []interface{}{boolInt(p.Hold()), boolInt(p.AtTop), p.ToBottom.String()}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type session struct {
	sched  *viewport.Scheduler
	window *viewport.Window[order.Order]
	cancel context.CancelFunc
}

// session returns the viewport session of c, starting it on first use.
func (s *Service) session(c *client) (*session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if sess, ok := s.sessions[c]; ok {
		return sess, nil
	}
	sess := &session{}
	sched, err := viewport.NewScheduler(viewport.Options{
		Interval: s.conf.Viewport.Interval,
		OnChange: func(viewport.Position) { sess.window.Reveal() },
	})
	if err != nil {
		return nil, err
	}
	sess.sched = sched
	sess.window = viewport.NewWindow[order.Order](s.engine.View(), sched, s.conf.Viewport.Step)
	sess.window.Reveal()

	ctx, cancel := context.WithCancel(s.baseCtx)
	sess.cancel = cancel
	go sched.Run(ctx)

	s.sessions[c] = sess
	s.metrics.SessionOpened()
	logger.Debug("addr", c.addr, "viewport session opened")
	return sess, nil
}

func (s *Service) closeSession(c *client) {
	s.sessMu.Lock()
	sess, ok := s.sessions[c]
	delete(s.sessions, c)
	s.sessMu.Unlock()
	if !ok {
		return
	}
	sess.cancel()
	s.metrics.SessionClosed()
	logger.Debug("addr", c.addr, "viewport session closed")
}

// resetWindows collapses every session window after the criteria changed,
// then reveals the first step of the new list.
func (s *Service) resetWindows() {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	for _, sess := range s.sessions {
		sess.window.Reset()
		sess.window.Reveal()
	}
}
