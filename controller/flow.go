package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/adcanvas/adcanvas/common/ctxkey"
	"github.com/adcanvas/adcanvas/common/helper"
	"github.com/adcanvas/adcanvas/common/logger"
	"github.com/adcanvas/adcanvas/dto"
	"github.com/adcanvas/adcanvas/monitor"
	"github.com/adcanvas/adcanvas/relay/validator"
)

// FlowRunner executes one validated image-flow request.
type FlowRunner interface {
	Run(ctx context.Context, req *validator.PipelineRequest) (int, *dto.PipelineResponse)
}

// Flow handles POST /api/image-flow.
type Flow struct {
	pipeline FlowRunner
}

func NewFlow(p FlowRunner) *Flow {
	return &Flow{pipeline: p}
}

func (f *Flow) Handle(c *gin.Context) {
	req, rej := validator.Parse(c)
	if rej != nil {
		logger.Logger.Info("image-flow request rejected",
			zap.String("request_id", c.GetString(ctxkey.RequestId)),
			zap.String("message", rej.Message))
		monitor.RecordPipelineOutcome(monitor.OutcomeValidation)
		c.JSON(http.StatusBadRequest, rej.Response())
		return
	}

	start := time.Now()
	status, resp := f.pipeline.Run(c.Request.Context(), req)
	if status != http.StatusOK {
		logger.Logger.Warn("image-flow request failed",
			zap.String("request_id", c.GetString(ctxkey.RequestId)),
			zap.Int("status", status),
			zap.Int64("elapsed_ms", helper.CalcElapsedTime(start)),
			zap.String("error", resp.Error))
	} else {
		logger.Logger.Info("image-flow request completed",
			zap.String("request_id", c.GetString(ctxkey.RequestId)),
			zap.Int64("elapsed_ms", helper.CalcElapsedTime(start)))
	}
	c.JSON(status, resp)
}
