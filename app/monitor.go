package app

import (
	"sync"
	"time"
)

// A Message describes one command processed by the Service, as delivered to
// an Observer.
type Message struct {
	// Args are the original command arguments.
	Args []string
	// Err is the command error, if not successful.
	Err error
	// Elapsed is the amount of time that the command took to process.
	Elapsed time.Duration
	// Addr is the remote TCP address of the connection that generated
	// this message.
	Addr string
}

// An Observer holds a channel that delivers the messages for all commands
// processed by a Service.
type Observer interface {
	Stop()
	C() <-chan Message
}

type observer struct {
	mon  *monitor
	msgC chan Message
}

func (o *observer) C() <-chan Message {
	return o.msgC
}

func (o *observer) Stop() {
	o.mon.obMu.Lock()
	defer o.mon.obMu.Unlock()
	if _, ok := o.mon.obs[o]; ok {
		delete(o.mon.obs, o)
		close(o.msgC)
	}
}

// Monitor fans command messages out to observers.
type Monitor interface {
	// Send a message to observers
	Send(msg Message)
	// NewObserver returns a new Observer containing a channel that will send
	// the messages for every command processed by the service.
	// Stop the observer to release associated resources.
	NewObserver() Observer
}

type monitor struct {
	obMu sync.Mutex
	obs  map[*observer]struct{}
}

func newMonitor() *monitor {
	m := &monitor{}
	m.obs = make(map[*observer]struct{})
	return m
}

// Send never blocks; an observer with a full channel misses the message.
func (m *monitor) Send(msg Message) {
	if len(msg.Args) > 0 {
		// do not echo credentials or the monitor's own commands
		switch msg.Args[0] {
		case "auth", "monitor":
			return
		}
	}

	m.obMu.Lock()
	defer m.obMu.Unlock()
	for o := range m.obs {
		select {
		case o.msgC <- msg:
		default:
		}
	}
}

func (m *monitor) NewObserver() Observer {
	o := new(observer)
	o.mon = m
	o.msgC = make(chan Message, 64)
	m.obMu.Lock()
	m.obs[o] = struct{}{}
	m.obMu.Unlock()
	return o
}

func (m *monitor) observers() int {
	m.obMu.Lock()
	defer m.obMu.Unlock()
	return len(m.obs)
}
