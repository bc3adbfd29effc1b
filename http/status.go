package http

const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusNoContent           = 204
	StatusMovedPermanently    = 301
	StatusFound               = 302
	StatusNotModified         = 304
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusRequestTimeout      = 408
	StatusGone                = 410
	StatusTeapot              = 418
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
	StatusServiceUnavailable  = 503
)

var (
	unknownStatusCode = "Unknown Status Code"

	statusMessages = map[int]string{
		StatusOK:                  "OK",
		StatusCreated:             "Created",
		StatusNoContent:           "No Content",
		StatusMovedPermanently:    "Moved Permanently",
		StatusFound:               "Found",
		StatusNotModified:         "Not Modified",
		StatusBadRequest:          "Bad Request",
		StatusUnauthorized:        "Unauthorized",
		StatusForbidden:           "Forbidden",
		StatusNotFound:            "Not Found",
		StatusMethodNotAllowed:    "Method Not Allowed",
		StatusRequestTimeout:      "Request Timeout",
		StatusGone:                "Gone",
		StatusTeapot:              "I'm a teapot",
		StatusInternalServerError: "Internal Server Error",
		StatusNotImplemented:      "Not Implemented",
		StatusServiceUnavailable:  "Service Unavailable",
	}
)

// StatusText falls back to a generic reason phrase; callers may send any code.
func StatusText(status int) string {
	if message, found := statusMessages[status]; found {
		return message
	}
	return unknownStatusCode
}
