package server

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/deckforge/deckforge/internal/core/observability/log"
	"github.com/deckforge/deckforge/internal/core/protocol"
)

const quicALPN = "deckforge"

var _ Acceptor = (*QUICAcceptor)(nil)

// QUICAcceptor serves the QUIC transport. Each client opens one
// bidirectional stream carrying length-delimited message frames.
type QUICAcceptor struct {
	srv      *Server
	addr     string
	tlsConf  *tls.Config
	listener *quic.Listener
	cancel   context.CancelFunc
	log      log.Log
}

func newQUICAcceptor(srv *Server, addr, certFile, keyFile string, logger log.Log) (*QUICAcceptor, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "load tls key pair")
	}
	return &QUICAcceptor{
		srv:  srv,
		addr: addr,
		tlsConf: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{quicALPN},
		},
		log: logger.With(log.String("transport", "quic")),
	}, nil
}

func (a *QUICAcceptor) Start(ctx context.Context) error {
	listener, err := quic.ListenAddr(a.addr, a.tlsConf, nil)
	if err != nil {
		return errors.Wrap(err, "quic listen")
	}
	a.listener = listener

	ctx, a.cancel = context.WithCancel(ctx)
	go a.acceptLoop(ctx)
	a.log.Info("listening", log.String("addr", a.addr))
	return nil
}

func (a *QUICAcceptor) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.listener == nil {
		return nil
	}
	return a.listener.Close()
}

func (a *QUICAcceptor) acceptLoop(ctx context.Context) {
	for {
		conn, err := a.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				a.log.Error("accept failed", log.Error(err))
			}
			return
		}
		go a.handleConn(ctx, conn)
	}
}

func (a *QUICAcceptor) handleConn(ctx context.Context, conn *quic.Conn) {
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		a.log.Warn("no stream from client", log.Error(err))
		_ = conn.CloseWithError(0, "no stream")
		return
	}
	a.srv.Accept(&quicConn{conn: conn, stream: stream})
}

var _ MessageConn = (*quicConn)(nil)

// quicConn adapts one QUIC stream to the typed message pipe using the
// length-delimited framing.
type quicConn struct {
	conn    *quic.Conn
	stream  *quic.Stream
	codec   protocol.JSONCodec
	writeMu sync.Mutex
}

func (c *quicConn) ReadMessage() (protocol.Message, error) {
	payload, err := protocol.ReadFrame(c.stream)
	if err != nil {
		return nil, errors.Wrap(err, "quic read")
	}
	return c.codec.Decode(payload)
}

func (c *quicConn) WriteMessage(msg protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return errors.Wrap(protocol.WriteFrame(c.stream, data), "quic write")
}

func (c *quicConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *quicConn) Close() error {
	_ = c.stream.Close()
	return c.conn.CloseWithError(0, "closed")
}
