package vertexai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
}

func TestGenerateImage(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	var captured map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{
					{"text": "here is your image"},
					{"inlineData": map[string]any{
						"mimeType": "image/png",
						"data":     base64.StdEncoding.EncodeToString(imageBytes),
					}},
				}}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClientWith(srv.URL, staticToken(), nil)
	got, err := c.GenerateImage(context.Background(), "a mug", "16:9")
	require.NoError(t, err)
	assert.Equal(t, imageBytes, got)

	gc := captured["generationConfig"].(map[string]any)
	assert.Equal(t, "16:9", gc["imageConfig"].(map[string]any)["aspectRatio"])
}

func TestGenerateImageOmittedAspectRatio(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"inlineData": map[string]any{"mimeType": "image/png", "data": "AQI="}},
				}}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	_, err := NewClientWith(srv.URL, staticToken(), nil).GenerateImage(context.Background(), "a mug", "")
	require.NoError(t, err)
	gc := captured["generationConfig"].(map[string]any)
	assert.Nil(t, gc["imageConfig"])
}

func TestGenerateImageNoInlineData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "no image, sorry"}}}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	_, err := NewClientWith(srv.URL, staticToken(), nil).GenerateImage(context.Background(), "a mug", "1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no inline image data")
	assert.False(t, IsQuotaExhausted(err))
}

func TestGenerateImageQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "Quota exceeded for aiplatform.googleapis.com", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := NewClientWith(srv.URL, staticToken(), nil).GenerateImage(context.Background(), "a mug", "1:1")
	require.Error(t, err)
	assert.True(t, IsQuotaExhausted(err))
}

func TestIsQuotaExhaustedClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"grpc code 8", &APIError{Code: codeResourceExhausted, Message: "out of quota"}, true},
		{"status field", &APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, true},
		{"message substring", &APIError{Code: 429, Message: "quota exceeded for model"}, true},
		{"details substring", &APIError{Code: 429, Details: `["RESOURCE_EXHAUSTED"]`}, true},
		{"plain 500", &APIError{Code: 500, Status: "INTERNAL", Message: "boom"}, false},
		{"wrapped", errors.Wrap(&APIError{Status: "RESOURCE_EXHAUSTED"}, "generate"), true},
		{"not api error", errors.New("dial tcp: connection refused"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsQuotaExhausted(tc.err), tc.name)
	}
}

func TestParseAPIErrorUnstructuredBody(t *testing.T) {
	err := parseAPIError(http.StatusServiceUnavailable, []byte("upstream unavailable"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPCode)
	assert.False(t, IsQuotaExhausted(err))
}
