package http

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"sync"
)

var ErrResponseSent = errors.New("http: response already sent")

// Response is single use: the first Send writes and finalizes, any later
// call returns ErrResponseSent.
type Response interface {
	Send(status int, body string) error
}

// ConnResponse writes the response straight onto a connection and closes it
// once the body is flushed.
type ConnResponse struct {
	mu     sync.Mutex
	writer *bufio.Writer
	closer io.Closer
	status int
	sent   bool
	done   chan struct{}
}

func NewConnResponse(conn io.WriteCloser) *ConnResponse {
	return &ConnResponse{
		writer: bufio.NewWriterSize(conn, DefaultWriteBufferSize),
		closer: conn,
		done:   make(chan struct{}),
	}
}

func (res *ConnResponse) Send(status int, body string) error {
	res.mu.Lock()
	defer res.mu.Unlock()

	if res.sent {
		return ErrResponseSent
	}
	res.sent = true
	res.status = status
	defer close(res.done)

	err := WriteResponse(res.writer, status, body)
	if closeErr := res.closer.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (res *ConnResponse) Sent() bool {
	res.mu.Lock()
	defer res.mu.Unlock()
	return res.sent
}

// Status is zero until Send has been called.
func (res *ConnResponse) Status() int {
	res.mu.Lock()
	defer res.mu.Unlock()
	return res.status
}

// Done is closed after the first Send.
func (res *ConnResponse) Done() <-chan struct{} {
	return res.done
}

// WriteResponse encodes a complete text/html response and flushes it.
func WriteResponse(bw *bufio.Writer, status int, body string) error {
	var scratch [20]byte

	bw.WriteString("HTTP/1.1 ")
	bw.Write(strconv.AppendInt(scratch[:0], int64(status), 10))
	bw.WriteByte(' ')
	bw.WriteString(StatusText(status))
	bw.Write(crlf)

	bw.Write(headerContentType)
	bw.WriteString(ContentTypeHTML)
	bw.Write(crlf)

	bw.Write(headerContentLength)
	bw.Write(strconv.AppendInt(scratch[:0], int64(len(body)), 10))
	bw.Write(crlf)

	bw.Write(crlf)
	bw.WriteString(body)

	return bw.Flush()
}
