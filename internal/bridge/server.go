package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d2verb/podbridge/internal/auth"
	"github.com/d2verb/podbridge/internal/protocol"
	"github.com/d2verb/podbridge/internal/ratelimit"
)

const (
	// MaxRequestSize caps one request line.
	MaxRequestSize = 64 << 10

	readTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// ServerConfig configures the listener.
type ServerConfig struct {
	// SocketName is the logical socket name, or an absolute path.
	SocketName  string
	MaxRequests int
	Window      time.Duration
	Logger      *slog.Logger
}

// Server accepts bridge connections on a local unix socket.
type Server struct {
	name       string
	auth       *auth.Authenticator
	limiter    *ratelimit.Limiter
	dispatcher *Dispatcher
	logger     *slog.Logger

	listener net.Listener
	cleanup  func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server with a fresh session secret.
func NewServer(cfg ServerConfig, dispatcher *Dispatcher) (*Server, error) {
	a, err := auth.New()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		name:       cfg.SocketName,
		auth:       a,
		limiter:    ratelimit.New(cfg.MaxRequests, cfg.Window),
		dispatcher: dispatcher,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}, nil
}

// SessionKey exports the session secret for provisioning the agent.
// It must not be logged or persisted.
func (s *Server) SessionKey() string {
	return s.auth.SessionKey()
}

// Addr returns the address clients dial.
func (s *Server) Addr() string {
	return Address(s.name)
}

// Start begins accepting connections. Handlers see a context that is
// cancelled by Stop or when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, cleanup, err := listen(s.name)
	if err != nil {
		return err
	}
	s.listener = listener
	s.cleanup = cleanup
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.acceptLoop()
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		s.listener.Close()
	}()

	s.logger.Info("bridge listening", "address", s.Addr())
	return nil
}

// Stop closes the listener, cancels in-flight handlers, closes every open
// connection and waits for their goroutines. Unsent responses are dropped.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	s.cancel()
	err := s.listener.Close()

	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	if s.cleanup != nil {
		s.cleanup()
	}
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			return
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	line, err := readLine(conn)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			s.writeResponse(conn, protocol.NewMalformedResponse(uuid.NewString()))
		}
		return
	}

	var req protocol.Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Debug("malformed request", "error", err)
		s.writeResponse(conn, protocol.NewMalformedResponse(uuid.NewString()))
		return
	}

	resp := s.handleRequest(s.ctx, &req)
	s.writeResponse(conn, resp)
}

var errTooLarge = errors.New("request exceeds size limit")

// readLine reads one newline-terminated line of at most MaxRequestSize bytes.
// A final line without newline is accepted at EOF.
func readLine(r io.Reader) ([]byte, error) {
	reader := bufio.NewReader(io.LimitReader(r, MaxRequestSize+1))
	line, err := reader.ReadBytes('\n')
	if len(line) > MaxRequestSize {
		return nil, errTooLarge
	}
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return line, nil
}

// handleRequest authenticates, rate-limits and dispatches req.
func (s *Server) handleRequest(ctx context.Context, req *protocol.Request) *protocol.Response {
	start := time.Now()

	var resp *protocol.Response
	switch {
	case s.auth.Verify(req) != nil:
		resp = protocol.NewErrorResponse(req, protocol.StatusUnauthorized, protocol.MsgAuthFailed)
	case !s.limiter.Allow():
		resp = protocol.NewErrorResponse(req, protocol.StatusError, protocol.MsgRateLimited)
	default:
		resp = s.dispatcher.Dispatch(ctx, req)
	}

	s.logger.Info("request",
		"id", req.ID,
		"action", req.Action,
		"status", string(resp.Status),
		"duration", time.Since(start))
	return resp
}

func (s *Server) writeResponse(conn net.Conn, resp *protocol.Response) {
	if s.ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode response", "error", err)
		return
	}
	data = append(data, '\n')
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, _ = conn.Write(data)
}
