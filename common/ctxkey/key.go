package ctxkey

const (
	// RequestId is a per-request unique identifier (also used for logging/metrics).
	// Set in: middleware.RequestId. Read by handlers when composing diagnostics.
	// Note: the literal value matches the response header name for consistency.
	RequestId = "X-Adcanvas-Request-Id"
)
