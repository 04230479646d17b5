package openai

import (
	"github.com/adcanvas/adcanvas/relay/model"
)

func ErrorWrapper(err error, code string, statusCode int) *model.ErrorWithStatusCode {
	// Avoid using global logger here; callers should log with request-scoped logger.
	Error := model.Error{
		Message:  err.Error(),
		Type:     "adcanvas_error",
		Code:     code,
		RawError: err,
	}
	return &model.ErrorWithStatusCode{
		Error:      Error,
		StatusCode: statusCode,
	}
}
