// Package transport receives order event batches from an upstream
// publisher and performs the session handshake that starts the flow.
package transport

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mailru/easyjson/jwriter"
)

const (
	EventChannel   = "order_event"
	ConnectChannel = "connect_order_flow"
	// HandshakeTokenLength is the length of the tokenId sent on connect.
	HandshakeTokenLength = 10
)

var ErrClosed = errors.New("transport closed")

// Handler receives every batch payload in arrival order. Returning an error
// stops Receive.
type Handler func(batch []byte) error

type Source interface {
	// Connect announces the session upstream. Only the first successful
	// call performs the handshake. Sources that drop messages nobody listens
	// to wait until Receive is subscribed before announcing.
	Connect(ctx context.Context) error
	// Receive delivers batches to fn until ctx is done, the source is
	// closed or fn fails.
	Receive(ctx context.Context, fn Handler) error
	Close() error
}

var (
	_ Source = (*Redis)(nil)
	_ Source = (*Memory)(nil)
)

// Handshake is the payload published on ConnectChannel.
type Handshake struct {
	SocketID string `json:"socketId"`
	TokenID  string `json:"tokenId"`
}

func NewHandshake() Handshake {
	return Handshake{
		SocketID: uuid.NewString(),
		TokenID:  Token(HandshakeTokenLength),
	}
}

func (h Handshake) MarshalJSON() ([]byte, error) {
	var w jwriter.Writer
	w.RawString(`{"socketId":`)
	w.String(h.SocketID)
	w.RawString(`,"tokenId":`)
	w.String(h.TokenID)
	w.RawByte('}')
	return w.BuildBytes()
}
