package channel

import (
	"context"
	"errors"
	"io"
	"net"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relieflab/reliefd/internal/observability"
)

// Channel endpoint configuration. Immutable once the server is constructed.
type Config struct {
	Host        string
	Port        int
	Backlog     int
	ReadTimeout time.Duration // zero keeps the compatible no-timeout behavior
	Concurrent  bool          // off by default: one connection drained at a time
}

// Channel defaults matching the historical wire contract.
func DefaultConfig() Config {
	return Config{
		Host:    "127.0.0.1",
		Port:    65535,
		Backlog: 5,
	}
}

// Addr returns the host:port bind address for the configured endpoint.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Request is one assembled payload plus the handle needed to address a
// response back to its originating connection.
type Request struct {
	Payload string
	Remote  string
	conn    net.Conn
}

// Respond writes the completion marker and result line to the originating
// connection. The connection itself stays owned by the server.
func (r *Request) Respond(result string) error {
	return WriteResponse(r.conn, result)
}

// Handler consumes assembled request payloads.
type Handler interface {
	HandleRequest(ctx context.Context, req *Request)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request)

func (f HandlerFunc) HandleRequest(ctx context.Context, req *Request) { f(ctx, req) }

// Stats is a point-in-time snapshot of channel counters.
type Stats struct {
	ActiveConnections int64  `json:"active_connections"`
	TotalConnections  uint64 `json:"total_connections"`
	Requests          uint64 `json:"requests"`
	FramingErrors     uint64 `json:"framing_errors"`
}

// Server owns the listening socket, the accept loop, and every connection's
// framing/assembly lifecycle. Per-connection failures are isolated and
// logged; only setup failures abort the server.
type Server struct {
	cfg     Config
	handler Handler

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	listenerMu sync.Mutex
	listener   net.Listener

	closeOnce sync.Once

	activeConns   atomic.Int64
	totalConns    atomic.Uint64
	requests      atomic.Uint64
	framingErrors atomic.Uint64
}

func NewServer(cfg Config, handler Handler) *Server {
	if cfg.Host == "" {
		cfg.Host = DefaultConfig().Host
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultConfig().Port
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultConfig().Backlog
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen binds the configured endpoint. A bind failure is a setup failure:
// it is logged and returned, and the server never starts accepting.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		log.Error().Str("addr", s.cfg.Addr()).Err(err).Msg("channel listen failed")
		return nil, err
	}
	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	log.Info().Str("addr", ln.Addr().String()).Int("backlog", s.cfg.Backlog).Msg("channel listening")
	return ln, nil
}

// Run binds the endpoint and serves until SIGINT or SIGTERM.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
//
// In the default sequential mode one connection is drained to completion
// before the next queued connection is accepted. Concurrent mode handles
// each connection in its own goroutine, capped at Backlog in-flight
// connections; Go's net stack does not expose the kernel listen backlog, so
// the cap is applied here instead.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	var sem chan struct{}
	if s.cfg.Concurrent {
		sem = make(chan struct{}, s.cfg.Backlog)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Msg("channel accept error")
			continue
		}
		s.trackConn(conn)

		if s.cfg.Concurrent {
			sem <- struct{}{}
			go func(conn net.Conn) {
				defer func() { <-sem }()
				s.handleConn(ctx, conn)
			}(conn)
		} else {
			s.handleConn(ctx, conn)
		}
	}
}

// Close shuts down the listener and every tracked connection. Safe to call
// any number of times; the second and later calls are no-ops, and errors
// from already-closed sockets are swallowed.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.listenerMu.Lock()
		ln := s.listener
		s.listenerMu.Unlock()
		if ln != nil {
			_ = ln.Close()
		}
		s.closeAllConns()
		log.Info().Msg("channel closed")
	})
}

// Stats returns current channel counters.
func (s *Server) Stats() Stats {
	return Stats{
		ActiveConnections: s.activeConns.Load(),
		TotalConnections:  s.totalConns.Load(),
		Requests:          s.requests.Load(),
		FramingErrors:     s.framingErrors.Load(),
	}
}

// handleConn drains one connection's request sequence through its end signal
// or disconnect, handing each completed payload to the handler in arrival
// order.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)

	remote := conn.RemoteAddr().String()
	s.totalConns.Add(1)
	active := s.activeConns.Add(1)
	observability.RecordChannelConnection()
	log.Info().Str("remote", remote).Int64("active_conns", active).Msg("channel client connected")
	defer func() {
		remaining := s.activeConns.Add(-1)
		log.Info().Str("remote", remote).Int64("active_conns", remaining).Msg("channel client disconnected")
	}()

	asm := NewAssembler(conn)
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		payload, err := asm.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Clean end of transmission: stop reads and writes before close.
				if tc, ok := conn.(*net.TCPConn); ok {
					_ = tc.CloseWrite()
				}
				return
			}
			s.framingErrors.Add(1)
			observability.RecordChannelFramingError()
			log.Warn().Str("remote", remote).Err(err).Msg("channel connection aborted, partial payload discarded")
			return
		}

		s.requests.Add(1)
		observability.RecordChannelRequest(len(payload))
		log.Info().Str("remote", remote).Int("payload_bytes", len(payload)).Msg("channel request assembled")
		if s.handler != nil {
			s.handler.HandleRequest(ctx, &Request{Payload: payload, Remote: remote, conn: conn})
		}
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
