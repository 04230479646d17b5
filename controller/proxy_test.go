package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func proxyRouter(publicBase string) *gin.Engine {
	r := gin.New()
	p := NewProxy(publicBase, &http.Client{})
	r.GET("/api/image-proxy", p.Handle)
	return r
}

func TestProxyByKey(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internaluse/outputs/abc.png", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngbytes"))
	}))
	defer upstream.Close()

	router := proxyRouter(upstream.URL)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?key=internaluse/outputs/abc.png", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pngbytes", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", w.Header().Get("Cache-Control"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestProxyByURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("webpbytes"))
	}))
	defer upstream.Close()

	router := proxyRouter(upstream.URL)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+upstream.URL+"/internaluse/inputs/x.webp", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "webpbytes", w.Body.String())
	assert.Equal(t, "image/webp", w.Header().Get("Content-Type"))
}

func TestProxyRejectsForeignOrigin(t *testing.T) {
	router := proxyRouter("https://cdn.example.com")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url=https://evil.example.com/a.png", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "storage origin")
}

func TestProxyRequiresExactlyOneSelector(t *testing.T) {
	router := proxyRouter("https://cdn.example.com")

	for _, query := range []string{"", "?key=a&url=https://cdn.example.com/a"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/image-proxy"+query, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestProxyMirrorsUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such key", http.StatusNotFound)
	}))
	defer upstream.Close()

	router := proxyRouter(upstream.URL)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?key=internaluse/outputs/missing.png", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no such key")
}

func TestProxyUnreachableUpstream(t *testing.T) {
	router := proxyRouter("http://127.0.0.1:1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?key=x.png", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
