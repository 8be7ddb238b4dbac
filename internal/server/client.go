package server

import (
	"github.com/deckforge/deckforge/internal/core/protocol"
)

// Status is the connectivity state of an endpoint.
type Status int32

const (
	StatusOffline Status = iota
	StatusOnline
)

func (s Status) String() string {
	if s == StatusOnline {
		return "ONLINE"
	}
	return "OFFLINE"
}

// Wire converts the status to its protocol representation.
func (s Status) Wire() protocol.UserStatusValue {
	if s == StatusOnline {
		return protocol.StatusOnline
	}
	return protocol.StatusOffline
}

// ClientIO is one endpoint the server can route messages to: a remote
// connection or an in-process synthetic player. Send never blocks; slow
// remote consumers are disconnected instead of stalling the caller.
type ClientIO interface {
	ID() int64
	Name() string
	SetName(name string)
	Status() Status
	Send(msg protocol.Message) error
	Close() error
}

// MessageConn is the transport-facing half of a remote client: a framed,
// typed message pipe. Both the websocket and the QUIC transport implement it.
type MessageConn interface {
	ReadMessage() (protocol.Message, error)
	WriteMessage(msg protocol.Message) error
	RemoteAddr() string
	Close() error
}
