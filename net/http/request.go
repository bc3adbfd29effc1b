package http

import (
	"net/http"
	"strings"

	bastro "github.com/freekieb7/bastro/http"
)

// NewRequest converts a standard library request. The URL is the request
// target exactly as received.
func NewRequest(request *http.Request) *bastro.Request {
	headers := make(bastro.Headers, len(request.Header))
	for name, values := range request.Header {
		key := strings.ToLower(name)
		headers[key] = append(headers[key], values...)
	}

	req := bastro.NewRequest(request.Context(), bastro.Method(request.Method), request.RequestURI, headers)
	req.Protocol = request.Proto
	return req
}
