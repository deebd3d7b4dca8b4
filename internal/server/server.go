package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/miniredis-go/internal/processor"
	"github.com/yndnr/miniredis-go/internal/resp"
	"github.com/yndnr/miniredis-go/internal/telemetry/metric"
)

// Config holds the TCP server configuration.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string
	// IdleTimeout closes connections idle for this long (0 = off).
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per IP
	// (0 = off).
	RateLimit int
	// Limits are the RESP protocol bounds applied per connection.
	Limits resp.Limits
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "127.0.0.1:6379",
		Limits: resp.DefaultLimits(),
	}
}

// Server accepts connections and runs one session per connection. All
// sessions funnel command execution through a single strand owning the
// processor.
type Server struct {
	cfg     *Config
	proc    *processor.Processor
	logger  *slog.Logger
	metrics *metric.Registry

	strand  *strand
	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// New creates a server; Start makes it listen.
func New(cfg *Config, proc *processor.Processor, logger *slog.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		proc:     proc,
		logger:   logger,
		metrics:  metrics,
		strand:   newStrand(),
		conns:    make(map[net.Conn]struct{}),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Start begins listening and accepting in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	s.logger.Info("server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ln); err != nil && s.running.Load() {
			s.logger.Error("accept loop failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, for tests using port 0.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes live connections, and waits for
// sessions and the strand to finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.strand.stop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	s.trackConn(conn, true)
	s.metrics.ConnOpened()
	defer func() {
		_ = conn.Close()
		s.trackConn(conn, false)
		s.metrics.ConnClosed()
	}()

	logger := s.logger.With(
		"conn_id", ulid.Make().String(),
		"remote", conn.RemoteAddr().String(),
	)
	logger.Debug("connection accepted")

	sess := &session{
		srv:     s,
		conn:    conn,
		parser:  resp.NewParser(s.cfg.Limits),
		logger:  logger,
		limiter: s.limiterFor(conn.RemoteAddr()),
	}
	sess.run()
	logger.Debug("connection closed")
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// limiterFor returns the per-IP command rate limiter, or nil when rate
// limiting is off.
func (s *Server) limiterFor(addr net.Addr) *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return nil
	}
	ip := addr.String()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	limiter, ok := s.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateLimit)
		s.limiters[ip] = limiter
	}
	return limiter
}
