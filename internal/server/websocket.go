package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/deckforge/deckforge/internal/core/observability/log"
	"github.com/deckforge/deckforge/internal/core/protocol"
)

// Acceptor is one listening transport feeding connections into the server.
type Acceptor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

var _ Acceptor = (*WebSocketAcceptor)(nil)

// WebSocketAcceptor serves the websocket transport on /ws plus a health
// endpoint.
type WebSocketAcceptor struct {
	srv    *Server
	addr   string
	server *http.Server
	log    log.Log
}

func newWebSocketAcceptor(srv *Server, addr string, logger log.Log) *WebSocketAcceptor {
	return &WebSocketAcceptor{
		srv:  srv,
		addr: addr,
		log:  logger.With(log.String("transport", "websocket")),
	}
}

func (a *WebSocketAcceptor) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	a.server = &http.Server{
		Addr:              a.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("listener failed", log.Error(err))
		}
	}()
	a.log.Info("listening", log.String("addr", a.addr))
	return nil
}

func (a *WebSocketAcceptor) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *WebSocketAcceptor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("upgrade failed", log.Error(err))
		return
	}
	a.srv.Accept(&wsConn{conn: conn})
}

var _ MessageConn = (*wsConn)(nil)

// wsConn adapts a websocket connection to the typed message pipe. Writes are
// serialized with a mutex; gorilla/websocket allows one concurrent writer.
type wsConn struct {
	conn    *websocket.Conn
	codec   protocol.JSONCodec
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() (protocol.Message, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "websocket read")
	}
	return c.codec.Decode(data)
}

func (c *wsConn) WriteMessage(msg protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return errors.Wrap(c.conn.WriteMessage(websocket.TextMessage, data), "websocket write")
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
