package server

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/deckforge/deckforge/internal/core/observability/log"
	"github.com/deckforge/deckforge/internal/core/protocol"
)

var _ ClientIO = (*RemoteClient)(nil)

// RemoteClient binds one transport connection to the server. A reader
// goroutine feeds inbound messages to the router; a writer goroutine drains
// the outbound queue so Send never blocks a match's serialization point.
type RemoteClient struct {
	id   int64
	srv  *Server
	conn MessageConn
	log  log.Log

	nameMu sync.RWMutex
	name   string

	status    atomic.Int32
	out       chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newRemoteClient(srv *Server, conn MessageConn, id int64, queueSize int, logger log.Log) *RemoteClient {
	if queueSize <= 0 {
		queueSize = 64
	}
	c := &RemoteClient{
		id:   id,
		srv:  srv,
		conn: conn,
		log:  logger.With(log.Int64("user", id), log.String("remote_addr", conn.RemoteAddr())),
		out:  make(chan protocol.Message, queueSize),
		done: make(chan struct{}),
	}
	c.status.Store(int32(StatusOnline))
	return c
}

func (c *RemoteClient) ID() int64 { return c.id }

func (c *RemoteClient) Name() string {
	c.nameMu.RLock()
	defer c.nameMu.RUnlock()
	return c.name
}

func (c *RemoteClient) SetName(name string) {
	c.nameMu.Lock()
	c.name = name
	c.nameMu.Unlock()
}

func (c *RemoteClient) Status() Status {
	return Status(c.status.Load())
}

// Send enqueues a message for the writer goroutine. A full queue means the
// consumer cannot keep up with the match; the client is dropped so the other
// players are not held back.
func (c *RemoteClient) Send(msg protocol.Message) error {
	if c.Status() != StatusOnline {
		return ErrClientOffline
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return ErrClientOffline
	default:
		c.log.Warn("outbound queue overflow, dropping client")
		go c.srv.Disconnect(c, ErrSendQueueFull)
		return ErrSendQueueFull
	}
}

// Close tears the connection down. Idempotent.
func (c *RemoteClient) Close() error {
	c.closeOnce.Do(func() {
		c.status.Store(int32(StatusOffline))
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

// run starts the reader and writer goroutines.
func (c *RemoteClient) run() {
	go c.readLoop()
	go c.writeLoop()
}

func (c *RemoteClient) readLoop() {
	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			// Undecodable input is dropped; only transport failures take
			// the connection down.
			if errors.Is(err, protocol.ErrUnknownKind) || errors.Is(err, protocol.ErrDeserializationFailed) {
				c.log.Warn("undecodable message dropped", log.Error(err))
				continue
			}
			if c.Status() == StatusOnline {
				c.srv.Disconnect(c, err)
			}
			return
		}
		c.srv.Handle(c, msg)
	}
}

func (c *RemoteClient) writeLoop() {
	for {
		select {
		case msg := <-c.out:
			if err := c.conn.WriteMessage(msg); err != nil {
				if c.Status() == StatusOnline {
					c.srv.Disconnect(c, err)
				}
				return
			}
		case <-c.done:
			return
		}
	}
}
