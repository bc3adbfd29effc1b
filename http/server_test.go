package http_test

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/freekieb7/bastro/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// serve runs one connection through srv and returns everything the server
// wrote before closing.
func serve(t *testing.T, srv *http.Server, raw string) string {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(serverConn)
	}()

	_, err := clientConn.Write([]byte(raw))
	require.NoError(t, err)

	data, err := io.ReadAll(clientConn)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeConn did not return")
	}

	return string(data)
}

func parse(t *testing.T, raw string) (*nethttp.Response, string) {
	t.Helper()

	resp, err := nethttp.ReadResponse(bufio.NewReader(bytes.NewBufferString(raw)), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func newTestServer(options ...http.ServerOption) *http.Server {
	options = append([]http.ServerOption{
		http.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		http.WithIdleTimeout(50 * time.Millisecond),
	}, options...)

	return http.NewServer(0, "127.0.0.1", options...)
}

func TestServeConn_Routed(t *testing.T) {
	srv := newTestServer()
	require.NoError(t, srv.Router.GET("/", http.StaticHandler(http.StatusOK, "Hi")))

	for i := 0; i < 3; i++ {
		resp, body := parse(t, serve(t, srv, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
		assert.Equal(t, "Hi", body)
	}
}

func TestServeConn_DefaultNotFoundBytes(t *testing.T) {
	srv := newTestServer()

	raw := serve(t, srv, "GET /missing HTTP/1.1\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\ncontent-type: text/html\r\ncontent-length: 0\r\n\r\n", raw)
}

func TestServeConn_NotFound(t *testing.T) {
	srv := newTestServer()
	require.NoError(t, srv.Router.GET("/", http.StaticHandler(http.StatusOK, "Hi")))

	resp, body := parse(t, serve(t, srv, "GET /missing HTTP/1.1\r\n\r\n"))
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)

	srv.Router.AddNotFoundHandler(http.StaticHandler(http.StatusNotFound, "<h1>Page not found</h1>"))

	resp, body = parse(t, serve(t, srv, "GET /missing HTTP/1.1\r\n\r\n"))
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "<h1>Page not found</h1>", body)
}

func TestServeConn_NoResponse(t *testing.T) {
	srv := newTestServer()
	require.NoError(t, srv.Router.GET("/x", http.StaticHandler(http.StatusOK, "x")))

	var fallback int
	srv.Router.AddNotFoundHandler(func(req *http.Request, res http.Response) {
		fallback++
		res.Send(http.StatusNotFound, "")
	})

	tests := []struct {
		name string
		raw  string
	}{
		{name: "UnsupportedMethod", raw: "DELETE /x HTTP/1.1\r\n\r\n"},
		{name: "MissingURL", raw: "GET\r\n\r\n"},
		{name: "MethodMismatch", raw: "POST /x HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc"},
		{name: "Garbage", raw: "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, serve(t, srv, tt.raw))
		})
	}
	assert.Equal(t, 0, fallback)
}

func TestServeConn_LateSend(t *testing.T) {
	srv := http.NewServer(0, "127.0.0.1", http.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, srv.Router.GET("/slow", func(req *http.Request, res http.Response) {
		go func() {
			time.Sleep(20 * time.Millisecond)
			res.Send(http.StatusOK, "eventually")
		}()
	}))

	resp, body := parse(t, serve(t, srv, "GET /slow HTTP/1.1\r\n\r\n"))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "eventually", body)
}

func TestServeConn_PanicIsContained(t *testing.T) {
	srv := newTestServer()
	srv.Router.AddHandler(func(req *http.Request, res http.Response) {
		panic("boom")
	})

	assert.Empty(t, serve(t, srv, "GET / HTTP/1.1\r\n\r\n"))
}

func TestServeConn_RejectsOversizedRequestLine(t *testing.T) {
	srv := newTestServer()
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(serverConn)
	}()

	written := make(chan int, 1)
	go func() {
		chunk := bytes.Repeat([]byte("a"), 64*1024)
		total := 0
		for i := 0; i < 32; i++ {
			n, err := clientConn.Write(chunk)
			total += n
			if err != nil {
				break
			}
		}
		written <- total
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeConn kept reading a request line without newline")
	}

	select {
	case total := <-written:
		assert.Less(t, total, 32*64*1024)
	case <-time.After(2 * time.Second):
		t.Fatal("client write did not fail after the server closed")
	}
}

func TestServeConn_AfterShutdown(t *testing.T) {
	srv := newTestServer()
	require.NoError(t, srv.Shutdown(context.Background()))

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(serverConn)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeConn registered a connection after Shutdown")
	}

	_, err := clientConn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestServeConn_Telemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	srv := newTestServer(http.WithMeterProvider(meterProvider), http.WithTracerProvider(tracerProvider))
	require.NoError(t, srv.Router.GET("/", http.StaticHandler(http.StatusOK, "Hi")))

	serve(t, srv, "GET / HTTP/1.1\r\n\r\n")
	serve(t, srv, "GET /missing HTTP/1.1\r\n\r\n")
	serve(t, srv, "DELETE / HTTP/1.1\r\n\r\n")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "bastro.server.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, point := range sum.DataPoints {
				outcome, _ := point.Attributes.Value(attribute.Key("bastro.outcome"))
				counts[outcome.AsString()] += point.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"routed": 1, "not_found": 1, "dropped": 1}, counts)

	ended := spans.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "bastro.dispatch", ended[0].Name())
}

func TestStart_BindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	logs := &bytes.Buffer{}
	port := occupied.Addr().(*net.TCPAddr).Port
	srv := http.NewServer(port, "127.0.0.1", http.WithLogger(slog.New(slog.NewTextHandler(logs, nil))))

	assert.Error(t, srv.Start())
	assert.NotContains(t, logs.String(), "server ready")
}

func TestListenAndServe_Shutdown(t *testing.T) {
	logs := &bytes.Buffer{}
	srv := http.NewServer(0, "127.0.0.1", http.WithLogger(slog.New(slog.NewTextHandler(logs, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_OverTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := newTestServer()
	require.NoError(t, srv.Router.GET("/about", http.StaticHandler(http.StatusOK, "About")))

	go srv.Serve(listener)
	defer srv.Shutdown(context.Background())

	resp, err := nethttp.Get("http://" + listener.Addr().String() + "/about")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "About", string(body))
}

func BenchmarkServeConn(b *testing.B) {
	srv := newTestServer()
	srv.Router.GET("/", http.StaticHandler(http.StatusOK, "OK"))

	reqStr := []byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serverConn, clientConn := net.Pipe()
		go srv.ServeConn(serverConn)

		if _, err := clientConn.Write(reqStr); err != nil {
			b.Fatalf("write error: %v", err)
		}
		io.Copy(io.Discard, clientConn)
		clientConn.Close()
	}
}
