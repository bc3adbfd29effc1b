package http

type Route struct {
	Method  Method
	URL     string
	Handler Handler
}

type routeKey struct {
	method Method
	url    string
}

// NotFoundHandler is the fallback until Router.AddNotFoundHandler replaces
// it: a 404 with an empty body. Like every Send it still carries the fixed
// content type and a zero content length.
func NotFoundHandler(req *Request, res Response) {
	res.Send(StatusNotFound, "")
}
