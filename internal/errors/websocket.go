package errors

import (
	"github.com/gorilla/websocket"
)

// WSCloseCode returns the WebSocket close code for any error, used when a
// failure terminates the connection rather than traveling in an error
// envelope.
func WSCloseCode(err error) int {
	if err == nil {
		return websocket.CloseNormalClosure
	}

	var customErr *Error
	if As(err, &customErr) {
		return customErr.Code.CloseCode()
	}

	return websocket.CloseInternalServerErr
}

// CloseCode returns the corresponding WebSocket close code
func (c Code) CloseCode() int {
	switch c {
	case CodeOK:
		return websocket.CloseNormalClosure
	case CodeCanceled, CodeDeadlineExceeded:
		return websocket.CloseGoingAway
	case CodeInvalidArgument,
		CodeNotFound,
		CodeAlreadyExists,
		CodePermissionDenied,
		CodeFailedPrecondition,
		CodeAborted,
		CodeOutOfRange,
		CodeUnauthenticated:
		return websocket.ClosePolicyViolation
	case CodeResourceExhausted, CodeUnavailable:
		return websocket.CloseTryAgainLater
	case CodeUnimplemented:
		return websocket.CloseUnsupportedData
	default:
		return websocket.CloseInternalServerErr
	}
}
