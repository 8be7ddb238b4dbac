package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/deckforge/deckforge/internal/core/ai"
	"github.com/deckforge/deckforge/internal/core/ecs"
	"github.com/deckforge/deckforge/internal/core/observability/log"
	"github.com/deckforge/deckforge/internal/core/protocol"
	"github.com/deckforge/deckforge/internal/game"
	"github.com/deckforge/deckforge/pkg/sequence"
)

// Config holds server configuration.
type Config struct {
	// Network settings
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	QUICPort int    `yaml:"quic_port"` // 0 disables the QUIC transport
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// Client settings
	MaxClients    int `yaml:"max_clients"`
	OutboundQueue int `yaml:"outbound_queue"`
	ClientShards  int `yaml:"client_shards"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          4242,
		QUICPort:      0,
		MaxClients:    1024,
		OutboundQueue: 64,
		ClientShards:  16,
	}
}

// pendingStart is one matchmaking queue entry. Cancellation is a flag, not a
// removal: a disconnecting client marks its entry and the matcher skips it.
type pendingStart struct {
	client    ClientIO
	mod       string
	cancelled bool
}

// Server is the routing layer: it owns the endpoint table, the match
// registry and the matchmaking queue, and dispatches every inbound message
// to the lobby or to the addressed match session.
type Server struct {
	config Config
	logger log.Log
	mods   *game.Registry

	clients *clientTable

	gamesMu sync.RWMutex
	games   map[int64]*Match

	queueMu sync.Mutex
	queue   *sequence.Queue[*pendingStart]
	pending map[int64]*pendingStart

	nextUserID atomic.Int64
	nextGameID atomic.Int64

	acceptors []Acceptor
	running   atomic.Bool
	closed    atomic.Bool
}

// NewServer builds a server and seats the configured synthetic players in
// the lobby. Profiles referencing an unknown scorer are skipped with a log
// line rather than failing startup.
func NewServer(config Config, logger log.Log, mods *game.Registry, profiles []ai.Profile) *Server {
	s := &Server{
		config:  config,
		logger:  logger.With(log.String("component", "server")),
		mods:    mods,
		clients: newClientTable(config.ClientShards),
		games:   make(map[int64]*Match),
		queue:   sequence.NewQueue[*pendingStart](),
		pending: make(map[int64]*pendingStart),
	}

	for _, p := range profiles {
		strategy, err := ai.NewStrategy(p.Scorer)
		if err != nil {
			s.logger.Warn("skipping ai profile", log.String("name", p.Name), log.Error(err))
			continue
		}
		agent := NewAgentClient(s.nextUserID.Add(1), p.Name, strategy, p.Delay)
		s.clients.Put(agent)
		s.logger.Info("ai player seated",
			log.Int64("user", agent.ID()),
			log.String("name", agent.Name()),
			log.String("scorer", p.Scorer))
	}
	return s
}

// Start brings the transports up.
func (s *Server) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	wsAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.acceptors = append(s.acceptors, newWebSocketAcceptor(s, wsAddr, s.logger))

	if s.config.QUICPort > 0 {
		quicAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.QUICPort)
		qa, err := newQUICAcceptor(s, quicAddr, s.config.CertFile, s.config.KeyFile, s.logger)
		if err != nil {
			s.running.Store(false)
			return errors.Wrap(err, "quic transport")
		}
		s.acceptors = append(s.acceptors, qa)
	}

	for _, a := range s.acceptors {
		if err := a.Start(ctx); err != nil {
			s.running.Store(false)
			return errors.Wrap(err, "start acceptor")
		}
	}

	s.logger.Info("server started",
		log.String("ws_addr", wsAddr),
		log.Int("quic_port", s.config.QUICPort),
		log.Int("lobby", s.clients.Len()))
	return nil
}

// Stop shuts the transports down and disconnects every remote client. Match
// sessions are left to their onEnd cleanup.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.closed.Store(true)

	g, ctx := errgroup.WithContext(ctx)
	for _, a := range s.acceptors {
		a := a
		g.Go(func() error { return a.Stop(ctx) })
	}
	err := g.Wait()

	s.clients.Range(func(c ClientIO) {
		_ = c.Close()
	})

	s.logger.Info("server stopped")
	return err
}

// Accept registers a fresh transport connection and starts its pump
// goroutines. The client is anonymous until it logs in.
func (s *Server) Accept(conn MessageConn) {
	if !s.running.Load() {
		_ = conn.Close()
		return
	}
	if s.clients.Len() >= s.config.MaxClients {
		s.logger.Warn("client limit reached, rejecting connection",
			log.String("remote_addr", conn.RemoteAddr()))
		_ = conn.Close()
		return
	}

	c := newRemoteClient(s, conn, s.nextUserID.Add(1), s.config.OutboundQueue, s.logger)
	s.clients.Put(c)
	c.run()
	s.logger.Info("client connected",
		log.Int64("user", c.ID()),
		log.String("remote_addr", conn.RemoteAddr()))
}

// Handle routes one inbound message. Rejections are answered with an error
// message to the sender; the addressed state is unchanged.
func (s *Server) Handle(c ClientIO, msg protocol.Message) {
	if err := s.dispatch(c, msg); err != nil {
		s.logger.Warn("request rejected",
			log.Int64("user", c.ID()),
			log.String("kind", string(msg.MessageKind())),
			log.Error(err))
		_ = c.Send(&protocol.Error{Message: err.Error()})
	}
}

func (s *Server) dispatch(c ClientIO, msg protocol.Message) error {
	if _, ok := msg.(*protocol.Login); !ok && c.Name() == "" {
		return errors.Wrapf(ErrNotLoggedIn, "%s", msg.MessageKind())
	}

	switch m := msg.(type) {
	case *protocol.Login:
		return s.login(c, m)
	case *protocol.StartGame:
		return s.requestStart(c, m)
	case *protocol.UseAbility:
		match, err := s.game(m.GameID)
		if err != nil {
			return err
		}
		return match.HandleUseAbility(c, m)
	case *protocol.RequestTargets:
		match, err := s.game(m.GameID)
		if err != nil {
			return err
		}
		return match.HandleRequestTargets(c, m)
	case *protocol.Chat:
		return s.chat(c, m)
	case *protocol.ServerQuery:
		return s.query(c, m)
	default:
		s.logger.Warn("unsupported message dropped",
			log.Int64("user", c.ID()),
			log.String("kind", string(msg.MessageKind())))
		return nil
	}
}

// login names the endpoint and announces it to the lobby. An empty username
// is denied in-band with a Welcome, not with an error message.
func (s *Server) login(c ClientIO, m *protocol.Login) error {
	if m.Username == "" {
		return c.Send(&protocol.Welcome{Status: protocol.WelcomeDenied, Message: "username required"})
	}
	c.SetName(m.Username)

	if err := c.Send(&protocol.Welcome{
		Status:  protocol.WelcomeOK,
		UserID:  c.ID(),
		Message: "Welcome to the lobby",
	}); err != nil {
		return err
	}
	_ = c.Send(&protocol.AvailableMods{Mods: s.mods.Mods()})

	s.broadcastOthers(c.ID(),
		&protocol.UserStatus{UserID: c.ID(), Name: c.Name(), Status: StatusOnline.Wire()},
		&protocol.Chat{From: "Server", Message: c.Name() + " joined the lobby"},
	)
	s.logger.Info("user logged in", log.Int64("user", c.ID()), log.String("name", c.Name()))
	return nil
}

// requestStart handles a StartGame: a direct challenge seats the named
// opponent, AnyOpponent pairs through the FIFO queue or leaves the
// requester waiting.
func (s *Server) requestStart(c ClientIO, m *protocol.StartGame) error {
	if _, err := s.mods.New(m.Mod); err != nil {
		return err
	}

	if m.Opponent != protocol.AnyOpponent {
		return s.startDirect(c, m)
	}

	s.queueMu.Lock()
	for {
		entry, ok := s.queue.Peek()
		if !ok {
			break
		}
		if entry.cancelled {
			s.queue.Dequeue()
			continue
		}
		if entry.mod != m.Mod || entry.client.ID() == c.ID() {
			// Head of queue wants a different mod (or is the requester);
			// leave it waiting and queue behind it.
			break
		}
		s.queue.Dequeue()
		delete(s.pending, entry.client.ID())
		s.queueMu.Unlock()
		return s.startMatch(entry.client, c, m.Mod)
	}
	if _, waiting := s.pending[c.ID()]; !waiting {
		entry := &pendingStart{client: c, mod: m.Mod}
		s.queue.Enqueue(entry)
		s.pending[c.ID()] = entry
	}
	s.queueMu.Unlock()
	return c.Send(&protocol.Wait{Message: "Waiting for opponent"})
}

func (s *Server) startDirect(c ClientIO, m *protocol.StartGame) error {
	opp, ok := s.clients.Get(m.Opponent)
	if !ok {
		return errors.Wrapf(ErrUnknownUser, "%d", m.Opponent)
	}
	if opp.ID() == c.ID() {
		return errors.Wrap(ErrOpponentUnavailable, "cannot play against yourself")
	}
	if _, isAgent := opp.(*AgentClient); isAgent {
		return s.startMatch(c, opp, m.Mod)
	}

	// A human opponent has to have asked for a game first.
	s.queueMu.Lock()
	entry, waiting := s.pending[opp.ID()]
	if waiting && !entry.cancelled && entry.mod == m.Mod {
		entry.cancelled = true
		delete(s.pending, opp.ID())
		s.queueMu.Unlock()
		return s.startMatch(opp, c, m.Mod)
	}
	s.queueMu.Unlock()
	return errors.Wrapf(ErrOpponentUnavailable, "user %d is not waiting for a %s game", m.Opponent, m.Mod)
}

// startMatch creates and starts a session for two seated endpoints.
func (s *Server) startMatch(first, second ClientIO, mod string) error {
	rules, err := s.mods.New(mod)
	if err != nil {
		return err
	}
	id := s.nextGameID.Add(1)
	match := newMatch(id, ecs.NewStore(), rules, s.logger, s.removeMatch)

	s.gamesMu.Lock()
	s.games[id] = match
	s.gamesMu.Unlock()

	if err := match.Start([]ClientIO{first, second}); err != nil {
		s.removeMatch(match)
		return errors.Wrap(err, "start match")
	}
	return nil
}

// removeMatch drops an ended session from the registry. Safe to call twice.
func (s *Server) removeMatch(m *Match) {
	s.gamesMu.Lock()
	delete(s.games, m.ID())
	remaining := len(s.games)
	s.gamesMu.Unlock()
	s.logger.Info("match removed", log.Int64("game", m.ID()), log.Int("active_games", remaining))
}

func (s *Server) game(id int64) (*Match, error) {
	s.gamesMu.RLock()
	match, ok := s.games[id]
	s.gamesMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMatch, "%d", id)
	}
	return match, nil
}

func (s *Server) chat(c ClientIO, m *protocol.Chat) error {
	out := &protocol.Chat{From: c.Name(), Message: m.Message}
	s.clients.Range(func(other ClientIO) {
		if other.Status() == StatusOnline {
			_ = other.Send(out)
		}
	})
	return nil
}

func (s *Server) query(c ClientIO, m *protocol.ServerQuery) error {
	switch m.Request {
	case protocol.QueryUsers:
		s.clients.Range(func(other ClientIO) {
			if other.Status() != StatusOnline || other.Name() == "" {
				return
			}
			_ = c.Send(&protocol.UserStatus{
				UserID: other.ID(),
				Name:   other.Name(),
				Status: other.Status().Wire(),
			})
		})
		return nil
	case protocol.QueryMods:
		return c.Send(&protocol.AvailableMods{Mods: s.mods.Mods()})
	default:
		return errors.Errorf("unknown query %q", m.Request)
	}
}

// Disconnect removes an endpoint: presence goes out to the lobby, its queue
// entry is cancelled, and any match it sits in keeps running without it.
func (s *Server) Disconnect(c ClientIO, cause error) {
	if _, ok := s.clients.Remove(c.ID()); !ok {
		return
	}
	wasNamed := c.Name() != ""
	_ = c.Close()

	s.queueMu.Lock()
	if entry, ok := s.pending[c.ID()]; ok {
		entry.cancelled = true
		delete(s.pending, c.ID())
	}
	s.queueMu.Unlock()

	if wasNamed {
		s.broadcastOthers(c.ID(),
			&protocol.UserStatus{UserID: c.ID(), Name: c.Name(), Status: StatusOffline.Wire()},
			&protocol.Chat{From: "Server", Message: c.Name() + " left the lobby"},
		)
	}
	fields := []log.Field{log.Int64("user", c.ID()), log.String("name", c.Name())}
	if cause != nil {
		fields = append(fields, log.Error(cause))
	}
	s.logger.Info("client disconnected", fields...)
}

func (s *Server) broadcastOthers(except int64, msgs ...protocol.Message) {
	s.clients.Range(func(c ClientIO) {
		if c.ID() == except || c.Status() != StatusOnline {
			return
		}
		for _, msg := range msgs {
			_ = c.Send(msg)
		}
	})
}

// Stats is a point-in-time view of server load.
type Stats struct {
	Clients     int
	ActiveGames int
	Running     bool
}

func (s *Server) GetStats() Stats {
	s.gamesMu.RLock()
	games := len(s.games)
	s.gamesMu.RUnlock()
	return Stats{
		Clients:     s.clients.Len(),
		ActiveGames: games,
		Running:     s.running.Load(),
	}
}
