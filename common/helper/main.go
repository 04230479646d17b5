package helper

import (
	"fmt"

	"github.com/adcanvas/adcanvas/common/random"
)

const RequestIdKey = "X-Adcanvas-Request-Id"

// GenRequestID generates a sortable per-request identifier.
func GenRequestID() string {
	return GetTimeString() + random.GetRandomString(8)
}

// MessageWithRequestId appends the request id to a user-facing message so clients
// can quote it in bug reports.
func MessageWithRequestId(message string, id string) string {
	if id == "" {
		return message
	}
	return fmt.Sprintf("%s (request id: %s)", message, id)
}
