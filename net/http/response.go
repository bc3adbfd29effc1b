package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	bastro "github.com/freekieb7/bastro/http"
)

var ErrHandlerFinished = errors.New("http: request already finished")

type response struct {
	mu       sync.Mutex
	writer   http.ResponseWriter
	sent     bool
	finished bool
	done     chan struct{}
}

func newResponse(writer http.ResponseWriter) *response {
	return &response{
		writer: writer,
		done:   make(chan struct{}),
	}
}

func (res *response) Send(status int, body string) error {
	res.mu.Lock()
	defer res.mu.Unlock()

	if res.sent {
		return bastro.ErrResponseSent
	}
	if res.finished {
		return ErrHandlerFinished
	}
	res.sent = true
	defer close(res.done)

	header := res.writer.Header()
	header.Set("Content-Type", bastro.ContentTypeHTML)
	header.Set("Content-Length", strconv.Itoa(len(body)))

	res.writer.WriteHeader(status)
	_, err := io.WriteString(res.writer, body)
	return err
}

// finish marks the writer unusable and reports whether anything was sent.
func (res *response) finish() bool {
	res.mu.Lock()
	defer res.mu.Unlock()

	res.finished = true
	return res.sent
}
