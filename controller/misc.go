package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adcanvas/adcanvas/common/ctxkey"
	"github.com/adcanvas/adcanvas/common/helper"
	"github.com/adcanvas/adcanvas/relay/model"
)

// Health reports liveness for load balancers and uptime checks.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func abortWithError(c *gin.Context, werr *model.ErrorWithStatusCode) {
	werr.Error.Message = helper.MessageWithRequestId(werr.Error.Message, c.GetString(ctxkey.RequestId))
	c.AbortWithStatusJSON(werr.StatusCode, gin.H{"error": werr.Error})
}
