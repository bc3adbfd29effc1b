package http

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedMethod = errors.New("http: unsupported method")
	ErrDuplicateRoute    = errors.New("http: route already registered")
	ErrInvalidURL        = errors.New("http: route url must not be empty")
	ErrNilHandler        = errors.New("http: handler must not be nil")
)

// MethodMismatch decides what happens to a request whose URL has a route
// under another method only.
type MethodMismatch int

const (
	// MethodMismatchHang sends nothing and skips the fallback; the connection
	// stays open until the transport gives up on it.
	MethodMismatchHang MethodMismatch = iota
	// MethodMismatchNotFound hands the request to the not-found handler.
	MethodMismatchNotFound
)

func (mismatch MethodMismatch) String() string {
	switch mismatch {
	case MethodMismatchHang:
		return "hang"
	case MethodMismatchNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("MethodMismatch(%d)", int(mismatch))
	}
}

func ParseMethodMismatch(name string) (MethodMismatch, error) {
	switch name {
	case "", "hang":
		return MethodMismatchHang, nil
	case "not_found":
		return MethodMismatchNotFound, nil
	default:
		return 0, fmt.Errorf("http: unknown method mismatch policy %q", name)
	}
}

// Outcome reports what Dispatch did with a request.
type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeRouted
	OutcomeNotFound
	OutcomeUnanswered
)

func (outcome Outcome) String() string {
	switch outcome {
	case OutcomeDropped:
		return "dropped"
	case OutcomeRouted:
		return "routed"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnanswered:
		return "unanswered"
	default:
		return fmt.Sprintf("Outcome(%d)", int(outcome))
	}
}

type RouterOptions struct {
	MethodMismatch MethodMismatch
}

// Router holds the listener chain. Registration is not synchronized and must
// be finished before the first Dispatch; afterwards the router is read only.
type Router struct {
	Options RouterOptions

	handlers    []Handler
	routes      map[routeKey]Route
	handledURLs map[string]struct{}
	notFound    Handler
}

func NewRouter(options ...RouterOptions) *Router {
	router := &Router{
		routes:      make(map[routeKey]Route),
		handledURLs: make(map[string]struct{}),
		notFound:    NotFoundHandler,
	}
	if len(options) > 0 {
		router.Options = options[0]
	}
	return router
}

// AddHandler registers a listener that runs for every dispatched request,
// before any route. It never suppresses routing.
func (router *Router) AddHandler(handler Handler) {
	if handler == nil {
		return
	}
	router.handlers = append(router.handlers, handler)
}

// AddRoute registers an exact match. The url counts as handled from now on
// for every method, not only the one given here.
func (router *Router) AddRoute(method Method, url string, handler Handler) error {
	if !method.Supported() {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if url == "" {
		return ErrInvalidURL
	}
	if handler == nil {
		return ErrNilHandler
	}

	key := routeKey{method: method, url: url}
	if _, exists := router.routes[key]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, method, url)
	}

	router.routes[key] = Route{
		Method:  method,
		URL:     url,
		Handler: handler,
	}
	router.handledURLs[url] = struct{}{}

	return nil
}

func (router *Router) GET(url string, handler Handler) error {
	return router.AddRoute(MethodGet, url, handler)
}

func (router *Router) POST(url string, handler Handler) error {
	return router.AddRoute(MethodPost, url, handler)
}

// AddNotFoundHandler replaces the active fallback. Passing nil restores the
// bare 404.
func (router *Router) AddNotFoundHandler(handler Handler) {
	if handler == nil {
		handler = NotFoundHandler
	}
	router.notFound = handler
}

func (router *Router) Handled(url string) bool {
	_, found := router.handledURLs[url]
	return found
}

// Routes returns a snapshot of the route table in no particular order.
func (router *Router) Routes() []Route {
	routes := make([]Route, 0, len(router.routes))
	for _, route := range router.routes {
		routes = append(routes, route)
	}
	return routes
}

// Dispatch runs one request through the chain: global handlers, the exact
// route, then the fallback for urls that were never registered.
func (router *Router) Dispatch(req *Request, res Response) Outcome {
	if !req.Method.Supported() || req.URL == "" {
		return OutcomeDropped
	}

	for _, handler := range router.handlers {
		handler(req, res)
	}

	if route, found := router.routes[routeKey{method: req.Method, url: req.URL}]; found {
		route.Handler(req, res)
		return OutcomeRouted
	}

	if router.Handled(req.URL) && router.Options.MethodMismatch == MethodMismatchHang {
		return OutcomeUnanswered
	}

	router.notFound(req, res)
	return OutcomeNotFound
}
