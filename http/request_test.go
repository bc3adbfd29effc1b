package http_test

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/freekieb7/bastro/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequest(t *testing.T) {
	reqMsg := "GET /test?x=1 HTTP/1.1\r\nAccept: text/css\r\nX-Multi: a\r\nx-multi: b\r\nConnection: keep-alive\r\n\r\n"

	req, err := http.ReadRequest(bufio.NewReader(strings.NewReader(reqMsg)))
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/test?x=1", req.URL)
	assert.Equal(t, "HTTP/1.1", req.Protocol)

	h, found := req.Headers.Get("Connection")
	assert.True(t, found)
	assert.Equal(t, "keep-alive", h)
	assert.Equal(t, []string{"a", "b"}, req.Headers.Values("x-multi"))
	assert.NotNil(t, req.Context())
}

func TestReadRequest_KeepsUnsupportedMethodAndMissingURL(t *testing.T) {
	req, err := http.ReadRequest(bufio.NewReader(strings.NewReader("DELETE /x HTTP/1.1\r\n\r\n")))
	require.NoError(t, err)
	assert.Equal(t, http.Method("DELETE"), req.Method)
	assert.False(t, req.Method.Supported())

	req, err = http.ReadRequest(bufio.NewReader(strings.NewReader("GET\r\n\r\n")))
	require.NoError(t, err)
	assert.Empty(t, req.URL)
}

func TestReadRequest_Errors(t *testing.T) {
	_, err := http.ReadRequest(bufio.NewReader(strings.NewReader("")))
	assert.ErrorIs(t, err, io.EOF)

	_, err = http.ReadRequest(bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\nHost: x\r\n")))
	assert.Error(t, err, "headers cut short")

	_, err = http.ReadRequest(bufio.NewReader(strings.NewReader("GET / HTTP/1.1")))
	assert.ErrorIs(t, err, http.ErrMalformedRequest)

	var sb strings.Builder
	sb.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i <= http.MaxRequestHeaders; i++ {
		sb.WriteString("X-H: v\r\n")
	}
	sb.WriteString("\r\n")
	_, err = http.ReadRequest(bufio.NewReader(strings.NewReader(sb.String())))
	assert.ErrorIs(t, err, http.ErrTooManyHeaders)

	longLine := "GET /" + strings.Repeat("a", http.MaxRequestLineSize)
	_, err = http.ReadRequest(bufio.NewReader(strings.NewReader(longLine)))
	assert.ErrorIs(t, err, http.ErrMalformedRequest, "request line without newline")

	_, err = http.ReadRequest(bufio.NewReader(strings.NewReader(longLine + " HTTP/1.1\r\n\r\n")))
	assert.ErrorIs(t, err, http.ErrMalformedRequest, "request line over the limit")

	longHeader := "GET / HTTP/1.1\r\nX-Long: " + strings.Repeat("a", http.MaxRequestLineSize) + "\r\n\r\n"
	_, err = http.ReadRequest(bufio.NewReader(strings.NewReader(longHeader)))
	assert.ErrorIs(t, err, http.ErrMalformedRequest, "header line over the limit")
}

// endlessLine never produces a newline and counts what was taken from it.
type endlessLine struct {
	consumed int
}

func (line *endlessLine) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	line.consumed += len(p)
	return len(p), nil
}

func TestReadRequest_StopsAtLineLimit(t *testing.T) {
	source := &endlessLine{}

	_, err := http.ReadRequest(bufio.NewReaderSize(source, http.DefaultReadBufferSize))
	assert.ErrorIs(t, err, http.ErrMalformedRequest)
	assert.LessOrEqual(t, source.consumed, http.MaxRequestLineSize+http.DefaultReadBufferSize)
}

func BenchmarkReadRequest(b *testing.B) {
	reqMsg := "GET /test HTTP/1.1\r\nAccept: text/css\r\nConnection: keep-alive\r\nContent-Length: 0\r\n\r\n"
	reader := strings.NewReader(reqMsg)
	br := bufio.NewReader(reader)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reader.Reset(reqMsg)
		br.Reset(reader)

		if _, err := http.ReadRequest(br); err != nil {
			b.Error(err)
		}
	}
}
