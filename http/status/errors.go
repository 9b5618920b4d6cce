package status

// HTTPError is a protocol error. Code is the status which would describe the error best,
// however the engine never responds on protocol errors, it just drops the connection.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrMethodNotImplemented    = NewError(NotImplemented, "request method is not supported")
	ErrBadRequestLine          = NewError(BadRequest, "malformed request line")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrBadHeader               = NewError(BadRequest, "malformed header field")
	ErrBadContentLength        = NewError(BadRequest, "malformed Content-Length value")
	ErrBadChunk                = NewError(BadRequest, "malformed chunk-encoded data")
	ErrURITooLong              = NewError(RequestURITooLong, "request URI too long")
	ErrHeaderNameTooLong       = NewError(RequestHeaderFieldsTooLarge, "header name too long")
	ErrHeaderValueTooLong      = NewError(RequestHeaderFieldsTooLarge, "header value too long")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrValueWithoutName        = NewError(BadRequest, "header value without a name")
	ErrNoURL                   = NewError(BadRequest, "headers completed without URL")
	ErrPipelining              = NewError(BadRequest, "only one request per connection is supported")
	ErrParserIsDead            = NewError(BadRequest, "parser is dead")
)
