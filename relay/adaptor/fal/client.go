package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/adcanvas/adcanvas/common/client"
	"github.com/adcanvas/adcanvas/common/config"
	relaymodel "github.com/adcanvas/adcanvas/relay/model"
)

// ErrUnavailable is returned when the fallback is needed but no API key is
// configured. The synthesis client surfaces it instead of silently degrading.
var ErrUnavailable = errors.New("fallback image generator unavailable: FAL_API_KEY is not configured")

type generateRequest struct {
	Prompt       string `json:"prompt"`
	NumImages    int    `json:"num_images"`
	AspectRatio  string `json:"aspect_ratio"`
	OutputFormat string `json:"output_format"`
}

type generateResponse struct {
	Images []struct {
		Url         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"images"`
	Detail any `json:"detail,omitempty"`
}

// Client generates images through fal.ai's synchronous HTTP API.
type Client struct {
	apiKey             string
	endpoint           string
	modelID            string
	defaultAspectRatio string
	outputFormat       string
	httpClient         *http.Client
}

// NewClient builds a client from the process configuration.
func NewClient() *Client {
	return NewClientWith(config.FalGeminiEndpoint, config.FalAPIKey, config.FalGeminiModelID,
		config.FalGeminiAspectRatio, config.ImageOutputFormat, client.HTTPClient)
}

// NewClientWith builds a client with explicit endpoints; used by tests.
func NewClientWith(endpoint, apiKey, modelID, defaultAspectRatio, outputFormat string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:             apiKey,
		endpoint:           strings.TrimSuffix(endpoint, "/"),
		modelID:            strings.Trim(modelID, "/"),
		defaultAspectRatio: defaultAspectRatio,
		outputFormat:       outputFormat,
		httpClient:         httpClient,
	}
}

// Configured reports whether the fallback can be used at all.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// normalizeAspectRatio coerces values outside the closed enumeration to the
// configured default before speaking to the provider.
func (c *Client) normalizeAspectRatio(ratio string) string {
	if relaymodel.IsValidAspectRatio(ratio) {
		return ratio
	}
	if relaymodel.IsValidAspectRatio(c.defaultAspectRatio) {
		return c.defaultAspectRatio
	}
	return relaymodel.DefaultAspectRatio
}

// Generate submits the prompt and downloads the first returned image.
func (c *Client) Generate(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	if !c.Configured() {
		return nil, errors.WithStack(ErrUnavailable)
	}

	payload, err := json.Marshal(generateRequest{
		Prompt:       prompt,
		NumImages:    1,
		AspectRatio:  c.normalizeAspectRatio(aspectRatio),
		OutputFormat: c.outputFormat,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal fal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/"+c.modelID, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build fal request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call fal")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read fal response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fal returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, errors.Wrap(err, "unmarshal fal response")
	}
	if len(genResp.Images) == 0 || genResp.Images[0].Url == "" {
		return nil, errors.New("fal reply carries no image references")
	}

	return c.download(ctx, genResp.Images[0].Url)
}

// download fetches the generated image from the provider's short-lived URL.
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build image download request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download generated image %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("image download returned %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
