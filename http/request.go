package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrMalformedRequest = errors.New("http: malformed request")
	ErrTooManyHeaders   = errors.New("http: too many request headers")
)

// Request is built once per inbound request and never modified afterwards.
// Method is taken verbatim from the wire, so it may hold an unsupported
// value; the router drops such requests.
type Request struct {
	Method   Method
	URL      string
	Protocol string
	Headers  Headers

	ctx context.Context
}

func NewRequest(ctx context.Context, method Method, url string, headers Headers) *Request {
	if headers == nil {
		headers = Headers{}
	}

	return &Request{
		Method:   method,
		URL:      url,
		Protocol: "HTTP/1.1",
		Headers:  headers,
		ctx:      ctx,
	}
}

func (req *Request) Context() context.Context {
	if req.ctx == nil {
		return context.Background()
	}
	return req.ctx
}

// WithContext returns a shallow copy of req carrying ctx.
func (req *Request) WithContext(ctx context.Context) *Request {
	clone := *req
	clone.ctx = ctx
	return &clone
}

// ReadRequest parses the request line and headers. The body, if any, is left
// unread on the reader.
func ReadRequest(reader *bufio.Reader) (*Request, error) {
	requestLine, err := readLine(reader)
	if err != nil {
		if err == io.EOF && strings.TrimSpace(requestLine) != "" {
			return nil, ErrMalformedRequest
		}
		return nil, err
	}

	parts := strings.Fields(requestLine)
	if len(parts) == 0 {
		return nil, io.EOF
	}

	req := &Request{
		Method:  Method(parts[0]),
		Headers: Headers{},
	}
	if len(parts) > 1 {
		req.URL = parts[1]
	}
	if len(parts) > 2 {
		req.Protocol = parts[2]
	}

	for count := 0; ; count++ {
		line, err := readLine(reader)
		if err != nil {
			if err == ErrMalformedRequest {
				return nil, err
			}
			return nil, fmt.Errorf("http: header read error: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break // end of headers
		}
		if count >= MaxRequestHeaders {
			return nil, ErrTooManyHeaders
		}
		if i := strings.Index(line, ":"); i >= 0 {
			req.Headers.Add(strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]))
		}
	}

	return req, nil
}

// readLine reads up to and including '\n'. A line longer than
// MaxRequestLineSize is rejected as soon as the limit is crossed, before the
// rest of it arrives.
func readLine(reader *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(line)+len(chunk) > MaxRequestLineSize {
			return "", ErrMalformedRequest
		}
		line = append(line, chunk...)

		if err == bufio.ErrBufferFull {
			continue
		}
		return string(line), err
	}
}
