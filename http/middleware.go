package http

import "log/slog"

// RequestLogger returns a global handler that logs "METHOD url" for every
// dispatched request and never responds.
func RequestLogger(logger *slog.Logger) Handler {
	return func(req *Request, res Response) {
		logger.InfoContext(req.Context(), req.Method.String()+" "+req.URL)
	}
}

// StaticHandler always sends the same status and body.
func StaticHandler(status int, body string) Handler {
	return func(req *Request, res Response) {
		res.Send(status, body)
	}
}
