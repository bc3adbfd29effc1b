package test

import (
	"context"
	"sync"

	"github.com/freekieb7/bastro/http"
)

// Recorder is an in-memory http.Response.
type Recorder struct {
	mu     sync.Mutex
	status int
	body   string
	calls  int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (recorder *Recorder) Send(status int, body string) error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	recorder.calls++
	if recorder.calls > 1 {
		return http.ErrResponseSent
	}
	recorder.status = status
	recorder.body = body
	return nil
}

func (recorder *Recorder) Status() int {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.status
}

func (recorder *Recorder) Body() string {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.body
}

// Calls counts every Send, including rejected ones.
func (recorder *Recorder) Calls() int {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.calls
}

// Get dispatches a GET for url through router and records the result.
func Get(router *http.Router, url string) (*Recorder, http.Outcome) {
	return Do(router, http.MethodGet, url)
}

func Do(router *http.Router, method http.Method, url string) (*Recorder, http.Outcome) {
	recorder := NewRecorder()
	outcome := router.Dispatch(http.NewRequest(context.Background(), method, url, nil), recorder)
	return recorder, outcome
}
