package clipmirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trypsynth/clipmirror/clipboard"
)

// Kind classifies a failed request.
type Kind int

const (
	KindTransport Kind = iota
	KindProtocol
	KindClipboard
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindClipboard:
		return "clipboard"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RequestError is a per-connection failure. The server reports it and moves on
// to the next connection.
type RequestError struct {
	Kind Kind
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Server serves requests against a clipboard it owns. Connections are handled
// one at a time, so the clipboard never sees concurrent calls.
type Server struct {
	board           clipboard.Capability
	logger          zerolog.Logger
	metrics         *Metrics
	maxRequestBytes int64
	readTimeout     time.Duration
}

const acceptBackoff = 50 * time.Millisecond

type ServerOption func(*Server)

func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithMaxRequestBytes bounds the size of a request frame. Zero means no limit.
func WithMaxRequestBytes(n int64) ServerOption {
	return func(s *Server) { s.maxRequestBytes = n }
}

// WithReadTimeout bounds how long a client may take to finish its request.
// Zero, the default, waits forever.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.readTimeout = d }
}

func NewServer(board clipboard.Capability, opts ...ServerOption) *Server {
	s := &Server{
		board:  board,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled or ln is closed.
// Failed requests are logged and never end the loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.logger.Info().Str("address", ln.Addr().String()).Msg("server listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error().Err(err).Msg("connection accept error")
			time.Sleep(acceptBackoff)
			continue
		}
		s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	start := time.Now()
	logger := s.logger.With().
		Str("conn", uuid.NewString()).
		Str("peer", conn.RemoteAddr().String()).
		Logger()
	logger.Debug().Msg("received connection")

	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug().Err(err).Msg("close connection")
		}
	}()

	req, err := s.handle(conn, logger)
	s.metrics.observe(req, err, time.Since(start))
	if err != nil {
		logger.Error().Err(err).Msg("error handling request")
		return
	}
	logger.Debug().Dur("elapsed", time.Since(start)).Msg("request complete")
}

// handle runs one connection through read, decode and dispatch. The returned
// request is nil if decoding did not get that far.
func (s *Server) handle(conn net.Conn, logger zerolog.Logger) (*Request, error) {
	buf, err := s.readRequest(conn)
	if err != nil {
		return nil, err
	}
	req, err := DecodeRequest(buf)
	if err != nil {
		return nil, &RequestError{Kind: KindProtocol, Err: err}
	}
	logger.Info().Stringer("request", req).Msg("decoded request")

	switch req.Operation {
	case OperationRead:
		return &req, s.dispatchRead(conn, req)
	default:
		return &req, s.dispatchWrite(req)
	}
}

func (s *Server) readRequest(conn net.Conn) ([]byte, error) {
	if s.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return nil, &RequestError{Kind: KindTransport, Err: err}
		}
	}
	var r io.Reader = conn
	if s.maxRequestBytes > 0 {
		r = io.LimitReader(conn, s.maxRequestBytes+1)
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, Err: fmt.Errorf("read request: %w", err)}
	}
	if s.maxRequestBytes > 0 && int64(len(buf)) > s.maxRequestBytes {
		return nil, &RequestError{Kind: KindProtocol, Err: ErrFrameTooLarge}
	}
	return buf, nil
}

func (s *Server) dispatchRead(conn net.Conn, req Request) error {
	sel := req.Targets()[0]
	text, err := s.board.Get(sel)
	if err != nil {
		return &RequestError{Kind: KindClipboard, Err: err}
	}
	if _, err := io.WriteString(conn, text); err != nil {
		return &RequestError{Kind: KindTransport, Err: fmt.Errorf("write response: %w", err)}
	}
	return nil
}

// dispatchWrite applies the text to each target in order and stops at the
// first failure. Slots already written keep the new text.
func (s *Server) dispatchWrite(req Request) error {
	for _, sel := range req.Targets() {
		if err := s.board.Set(sel, req.Text); err != nil {
			return &RequestError{Kind: KindClipboard, Err: err}
		}
	}
	return nil
}
