package http

import "strings"

const (
	DefaultReadBufferSize  = 4096 // 4kB
	DefaultWriteBufferSize = 4096 // 4kB
	MaxRequestHeaders      = 255
	MaxRequestLineSize     = 8 * 1024 // 8kB
)

// Handler performs exactly one terminal action per request: either it calls
// res.Send or it deliberately leaves the response alone (logging handlers).
type Handler func(req *Request, res Response)

type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

func (method Method) Supported() bool {
	return method == MethodGet || method == MethodPost
}

func (method Method) String() string {
	return string(method)
}

// ParseMethod accepts registration-style names such as "get" or "Post".
// Inbound requests are never parsed through here, the wire method is taken verbatim.
func ParseMethod(name string) (Method, error) {
	method := Method(strings.ToUpper(strings.TrimSpace(name)))
	if !method.Supported() {
		return "", ErrUnsupportedMethod
	}
	return method, nil
}

const ContentTypeHTML = "text/html"

var (
	headerContentType   = []byte("content-type: ")
	headerContentLength = []byte("content-length: ")
	crlf                = []byte("\r\n")
)

type Headers map[string][]string

func (headers Headers) Get(name string) (string, bool) {
	values, found := headers[strings.ToLower(name)]
	if !found || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (headers Headers) Values(name string) []string {
	return headers[strings.ToLower(name)]
}

func (headers Headers) Add(name, value string) {
	key := strings.ToLower(name)
	headers[key] = append(headers[key], value)
}
