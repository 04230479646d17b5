package model

type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
	// RawError preserves the original upstream or internal error for diagnostics.
	// Omitted from JSON to avoid leaking provider internals.
	RawError error `json:"-"`
}

type ErrorWithStatusCode struct {
	Error
	StatusCode int `json:"status_code"`
}
