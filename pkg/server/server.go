// Package server implements the per-node shard server: a TCP endpoint that
// decodes wire frames, dispatches them to the shard's engine, and encodes
// the resulting status (plus payload for read-style operations) back.
//
// One process serves one shard. Both external opcodes and the internal
// peer-query opcodes (Exists, ChildExists, ListChildren) are answered on the
// same port; guarding the internal ones against untrusted callers is a
// deployment concern (network policy) and is not enforced here.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/internal/ratelimiter"
	"github.com/shardfs/shardfs/pkg/engine"
	"github.com/shardfs/shardfs/pkg/wire"
)

// Config holds the server's network settings. Zero values select defaults.
type Config struct {
	// Addr is the listen address, normally the topology entry for this
	// shard. Required.
	Addr string

	// MaxConnections caps concurrent client connections. 0 = unlimited.
	MaxConnections int

	// MaxMessageSize caps total_length on received frames.
	MaxMessageSize uint32

	// AcceptRate limits accepted connections per second. 0 = unlimited.
	AcceptRate uint

	// AcceptBurst is the token-bucket burst for AcceptRate.
	AcceptBurst uint

	// ReadTimeout bounds reading one complete request frame.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one response frame.
	WriteTimeout time.Duration

	// IdleTimeout closes connections with no traffic between requests.
	IdleTimeout time.Duration

	// ShutdownTimeout bounds the graceful drain; connections still open
	// afterwards are force-closed.
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Server is one shard's network endpoint.
type Server struct {
	config Config
	engine *engine.Engine

	listener net.Listener
	limiter  *ratelimiter.RateLimiter

	// connSemaphore bounds concurrent connections when MaxConnections > 0.
	connSemaphore chan struct{}

	// shutdown closes when graceful shutdown starts.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// shutdownCtx cancels in-flight request handling during shutdown.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// openConns tracks live net.Conns for force-closure after the drain
	// deadline.
	openConns sync.Map
}

func New(config Config, eng *engine.Engine) (*Server, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("server requires a listen address")
	}
	if eng == nil {
		return nil, fmt.Errorf("server requires an engine")
	}
	config.applyDefaults()

	var semaphore chan struct{}
	if config.MaxConnections > 0 {
		semaphore = make(chan struct{}, config.MaxConnections)
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &Server{
		config:         config,
		engine:         eng,
		limiter:        ratelimiter.New(config.AcceptRate, config.AcceptBurst),
		connSemaphore:  semaphore,
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}, nil
}

// Listen binds the listener. Split from Serve so callers (tests, the
// daemon) can observe the bound address before serving.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then drains. Calls
// Listen first when the caller has not.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	logger.Info("shard server listening on %s", s.listener.Addr())

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.drain()
			}
		}

		nc, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				return s.drain()
			default:
				logger.Debug("accept error: %v", err)
				continue
			}
		}

		if !s.limiter.Allow() {
			logger.Warn("accept rate exceeded, rejecting %s", nc.RemoteAddr())
			_ = nc.Close()
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			continue
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)
		addr := nc.RemoteAddr().String()
		s.openConns.Store(addr, nc)
		logger.Debug("connection accepted from %s (active: %d)", addr, s.connCount.Load())

		c := &conn{server: s, nc: nc}
		go func() {
			defer func() {
				s.openConns.Delete(addr)
				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
				logger.Debug("connection closed from %s (active: %d)", addr, s.connCount.Load())
			}()
			c.serve(s.shutdownCtx)
		}()
	}
}

// Stop initiates shutdown and waits for the drain. Safe to call more than
// once and concurrently with Serve.
func (s *Server) Stop() error {
	s.initiateShutdown()
	return s.drain()
}

// ActiveConnections reports the connections currently being served.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("shard server shutdown initiated")
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.cancelRequests()
	})
}

// drain waits for active connections up to ShutdownTimeout, then
// force-closes what remains.
func (s *Server) drain() error {
	active := s.connCount.Load()
	logger.Info("shard server draining %d connection(s) (timeout: %v)", active, s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shard server drained")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		s.openConns.Range(func(_, value any) bool {
			_ = value.(net.Conn).Close()
			return true
		})
		return fmt.Errorf("shutdown timeout: %d connection(s) force-closed", remaining)
	}
}
