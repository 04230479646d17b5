package controller

import (
	"io"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/adcanvas/adcanvas/common/ctxkey"
	"github.com/adcanvas/adcanvas/common/logger"
	"github.com/adcanvas/adcanvas/monitor"
	"github.com/adcanvas/adcanvas/relay/adaptor/openai"
)

// Proxy streams stored images from the public bucket endpoint so browsers can
// load them from the API origin with long-lived caching headers.
type Proxy struct {
	publicBase string
	httpClient *http.Client
}

// NewProxy builds the handler for GET /api/image-proxy. publicBase is the
// public bucket URL every proxied asset must live under.
func NewProxy(publicBase string, httpClient *http.Client) *Proxy {
	return &Proxy{
		publicBase: strings.TrimSuffix(publicBase, "/"),
		httpClient: httpClient,
	}
}

func (p *Proxy) Handle(c *gin.Context) {
	key := c.Query("key")
	rawURL := c.Query("url")

	if (key == "") == (rawURL == "") {
		monitor.RecordProxyResult("bad_request")
		abortWithError(c, openai.ErrorWrapper(
			errors.New("exactly one of key or url must be provided"),
			"invalid_proxy_request", http.StatusBadRequest))
		return
	}

	target := rawURL
	if key != "" {
		target = p.publicBase + "/" + strings.TrimPrefix(key, "/")
	} else if !strings.HasPrefix(rawURL, p.publicBase+"/") {
		// Never proxy arbitrary origins.
		monitor.RecordProxyResult("forbidden")
		abortWithError(c, openai.ErrorWrapper(
			errors.Errorf("url is outside the configured storage origin"),
			"forbidden_proxy_target", http.StatusForbidden))
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
	if err != nil {
		monitor.RecordProxyResult("bad_request")
		abortWithError(c, openai.ErrorWrapper(
			errors.Wrap(err, "build upstream request"),
			"invalid_proxy_request", http.StatusBadRequest))
		return
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		monitor.RecordProxyResult("upstream_error")
		logger.Logger.Warn("image proxy fetch failed",
			zap.String("request_id", c.GetString(ctxkey.RequestId)),
			zap.Error(err))
		abortWithError(c, openai.ErrorWrapper(
			errors.Wrap(err, "fetch stored image"),
			"proxy_upstream_error", http.StatusBadGateway))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		monitor.RecordProxyResult("upstream_error")
		c.Status(resp.StatusCode)
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			c.Header("Content-Type", ct)
		}
		_, _ = io.Copy(c.Writer, resp.Body)
		return
	}

	monitor.RecordProxyResult("hit")
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("Access-Control-Allow-Origin", "*")
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Header("Content-Type", ct)
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		c.Header("Content-Length", cl)
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logger.Logger.Warn("image proxy stream interrupted",
			zap.String("request_id", c.GetString(ctxkey.RequestId)),
			zap.Error(err))
	}
}
