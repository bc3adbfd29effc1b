package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/bastro/http"

var ErrServerClosed = errors.New("http: server closed")

type ServerOption func(server *Server)

func WithRouter(router *Router) ServerOption {
	return func(server *Server) {
		server.Router = router
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(server *Server) {
		server.Logger = logger
	}
}

// WithIdleTimeout bounds how long a connection that never got a response is
// kept open. Zero keeps it open until the client goes away.
func WithIdleTimeout(timeout time.Duration) ServerOption {
	return func(server *Server) {
		server.IdleTimeout = timeout
	}
}

func WithTracerProvider(provider trace.TracerProvider) ServerOption {
	return func(server *Server) {
		server.tracerProvider = provider
	}
}

func WithMeterProvider(provider metric.MeterProvider) ServerOption {
	return func(server *Server) {
		server.meterProvider = provider
	}
}

// Server is the raw TCP transport: one request per connection, dispatched
// through Router.
type Server struct {
	Name        string
	Host        string
	Port        int
	Router      *Router
	Logger      *slog.Logger
	IdleTimeout time.Duration

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	requests       metric.Int64Counter
	duration       metric.Float64Histogram

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   atomic.Bool
}

// NewServer allocates a server; nothing is bound until Start.
func NewServer(port int, host string, options ...ServerOption) *Server {
	server := &Server{
		Name:           "bastro",
		Host:           host,
		Port:           port,
		Router:         NewRouter(),
		Logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		conns:          make(map[net.Conn]struct{}),
	}

	for _, option := range options {
		option(server)
	}

	server.tracer = server.tracerProvider.Tracer(instrumentationName)
	server.initInstruments()

	return server
}

func (s *Server) initInstruments() {
	meter := s.meterProvider.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	var err error
	s.requests, err = meter.Int64Counter("bastro.server.requests",
		metric.WithDescription("Requests dispatched, by method and outcome"),
		metric.WithUnit("{request}"))
	if err != nil {
		s.Logger.Error("creating request counter failed", "error", err)
		s.requests, _ = fallback.Int64Counter("bastro.server.requests")
	}

	s.duration, err = meter.Float64Histogram("bastro.server.duration",
		metric.WithDescription("Time spent dispatching a request"),
		metric.WithUnit("s"))
	if err != nil {
		s.Logger.Error("creating duration histogram failed", "error", err)
		s.duration, _ = fallback.Float64Histogram("bastro.server.duration")
	}
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Start binds and serves until the server is shut down. A bind failure is
// returned before anything is logged as ready.
func (s *Server) Start() error {
	return s.ListenAndServe(context.Background())
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("http: bind %s: %w", s.Addr(), err)
	}

	s.Logger.InfoContext(ctx, "server ready", "name", s.Name, "addr", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		if err := s.Shutdown(context.Background()); err != nil {
			s.Logger.Error("shutdown failed", "error", err)
		}
	})
	defer stop()

	return s.Serve(listener)
}

func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	if s.closed.Load() {
		listener.Close()
		return ErrServerClosed
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			s.Logger.Error("failed to accept connection", "error", err)
			continue
		}

		go s.ServeConn(conn)
	}
}

// ServeConn handles exactly one request. When nothing gets sent the
// connection is drained until the client leaves, a late Send closes it, or
// IdleTimeout expires.
func (s *Server) ServeConn(conn net.Conn) {
	connID := uuid.NewString()
	if !s.track(conn, true) {
		return
	}
	defer s.track(conn, false)
	defer conn.Close()

	defer func() {
		if recovered := recover(); recovered != nil {
			s.Logger.Error("request handling panicked", "conn", connID, "panic", recovered)
		}
	}()

	br := bufio.NewReaderSize(conn, DefaultReadBufferSize)
	req, err := ReadRequest(br)
	if err != nil {
		if err != io.EOF {
			s.Logger.Debug("discarding unreadable request", "conn", connID, "error", err)
		}
		return
	}

	res := NewConnResponse(conn)
	outcome := s.dispatch(req, res)

	s.Logger.Debug("request dispatched", "conn", connID, "method", string(req.Method), "url", req.URL, "outcome", outcome.String())

	if !res.Sent() {
		s.linger(conn, br)
	}
}

func (s *Server) dispatch(req *Request, res *ConnResponse) Outcome {
	start := time.Now()
	method := methodAttribute(req.Method)

	ctx, span := s.tracer.Start(context.Background(), "bastro.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(method, attribute.String("url.path", req.URL)))
	defer span.End()

	outcome := s.Router.Dispatch(req.WithContext(ctx), res)

	outcomeAttr := attribute.String("bastro.outcome", outcome.String())
	span.SetAttributes(outcomeAttr)
	if status := res.Status(); status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	s.requests.Add(ctx, 1, metric.WithAttributes(method, outcomeAttr))
	s.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(method, outcomeAttr))

	return outcome
}

func (s *Server) linger(conn net.Conn, br *bufio.Reader) {
	if s.IdleTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
	}
	io.Copy(io.Discard, br)
}

// track adds or removes conn from the open set. Adding after Shutdown
// closes conn instead and reports false.
func (s *Server) track(conn net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !add {
		delete(s.conns, conn)
		return true
	}
	if s.closed.Load() {
		conn.Close()
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

// Shutdown stops accepting and closes every open connection, including the
// ones still waiting for a response.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func methodAttribute(method Method) attribute.KeyValue {
	if !method.Supported() {
		return attribute.String("http.request.method", "_OTHER")
	}
	return attribute.String("http.request.method", string(method))
}
