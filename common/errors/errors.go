package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind classifies an application error.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindInvalidState    Kind = "invalid_state"
	KindInvalidArgument Kind = "invalid_argument"
	KindUpstream        Kind = "upstream"
	KindInternalProxy   Kind = "internal_proxy"
)

// AuthRequiredMessage is returned to the browser when no bearer token is sent.
const AuthRequiredMessage = "Authentication required. Provide a Bearer token in the Authorization header."

// Error represents an application error
type Error struct {
	Code    int         `json:"-"`
	Kind    Kind        `json:"-"`
	Message string      `json:"error"`
	Detail  interface{} `json:"detail,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *Error {
	if message == "" {
		message = AuthRequiredMessage
	}
	return New(http.StatusUnauthorized, KindUnauthenticated, message, nil)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, KindNotFound, fmt.Sprintf(format, args...), nil)
}

func InvalidState(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, KindInvalidState, fmt.Sprintf(format, args...), nil)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, KindInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// Upstream reports a non-2xx response from a downstream service. The upstream
// status is kept so it can be propagated to the browser.
func Upstream(status int, message string, detail interface{}) *Error {
	if status < 400 {
		status = http.StatusBadGateway
	}
	return &Error{Code: status, Kind: KindUpstream, Message: message, Detail: detail}
}

// InternalProxy reports a transport or decoding failure. The cause is kept
// for server-side logging and never serialised.
func InternalProxy(err error) *Error {
	return New(http.StatusInternalServerError, KindInternalProxy, "Internal proxy error", err)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// StatusCode returns the HTTP status mapped to err.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err. Errors outside the
// taxonomy collapse to the generic internal proxy message.
func Message(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return "Internal proxy error"
}

// Respond writes err as the uniform `{error, detail?}` envelope.
func Respond(c *gin.Context, err error) {
	appErr, ok := As(err)
	if !ok {
		appErr = InternalProxy(err)
	}

	if appErr.Kind == KindInternalProxy {
		zap.L().Error("internal proxy error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	body := gin.H{"error": appErr.Message}
	if appErr.Kind == KindUpstream {
		body["status"] = appErr.Code
	}
	if appErr.Detail != nil {
		body["detail"] = appErr.Detail
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}

// ErrorMiddleware renders the last error attached with c.Error when the
// handler did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Respond(c, c.Errors.Last().Err)
	}
}
