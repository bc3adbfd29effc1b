package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	bastro "github.com/freekieb7/bastro/http"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server serves a bastro router through the standard library HTTP server.
// Dispatch semantics are identical to the raw TCP server.
type Server struct {
	Addr        string
	Router      *bastro.Router
	Logger      *slog.Logger
	IdleTimeout time.Duration

	server *http.Server
}

func NewServer(addr string, router *bastro.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		Addr:   addr,
		Router: router,
		Logger: logger,
	}
	s.server = &http.Server{
		Addr:     addr,
		Handler:  s.Handler(),
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return s
}

// Handler is the instrumented http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(http.HandlerFunc(s.serveHTTP), "bastro.dispatch")
}

func (s *Server) serveHTTP(writer http.ResponseWriter, request *http.Request) {
	res := newResponse(writer)
	outcome := s.Router.Dispatch(NewRequest(request), res)

	s.Logger.Debug("request dispatched", "method", request.Method, "url", request.RequestURI, "outcome", outcome.String())

	var timeout <-chan time.Time
	if s.IdleTimeout > 0 {
		timer := time.NewTimer(s.IdleTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-res.done:
	case <-request.Context().Done():
	case <-timeout:
	}

	if !res.finish() {
		// Close the connection without writing a status line.
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("http: bind %s: %w", s.Addr, err)
	}

	s.Logger.InfoContext(ctx, "server ready", "addr", listener.Addr().String(), "transport", "net/http")

	stop := context.AfterFunc(ctx, func() {
		if err := s.Shutdown(context.Background()); err != nil {
			s.Logger.Error("shutdown failed", "error", err)
		}
	})
	defer stop()

	if err := s.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return bastro.ErrServerClosed
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Close()
}
