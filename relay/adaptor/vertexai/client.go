package vertexai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/Laisky/errors/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/adcanvas/adcanvas/common/client"
	"github.com/adcanvas/adcanvas/common/config"
)

// grpc ResourceExhausted; Vertex reports it in error bodies alongside HTTP 429.
const codeResourceExhausted = 8

// APIError is a structured Vertex AI error body.
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Status   string `json:"status"`
	Details  string `json:"-"`
	HTTPCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vertex ai error %d (%s): %s", e.Code, e.Status, e.Message)
}

// IsQuotaExhausted reports whether err represents the provider's quota-exhaustion
// condition, the only case that may route to the fallback generator.
func IsQuotaExhausted(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == codeResourceExhausted {
		return true
	}
	if apiErr.Status == "RESOURCE_EXHAUSTED" {
		return true
	}
	combined := strings.ToUpper(apiErr.Details + apiErr.Message)
	return strings.Contains(combined, "RESOURCE_EXHAUSTED") || strings.Contains(combined, "QUOTA")
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Status  string          `json:"status"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// Client generates images through the Vertex AI generateContent REST API.
type Client struct {
	endpoint    string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// NewClient builds a client from the process configuration, loading the OAuth2
// token source from the configured service-account credentials file.
func NewClient(ctx context.Context) (*Client, error) {
	data, err := os.ReadFile(config.GoogleApplicationCredentials)
	if err != nil {
		return nil, errors.Wrap(err, "read google credentials file")
	}
	creds, err := google.CredentialsFromJSON(ctx, data, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, errors.Wrap(err, "parse google credentials")
	}

	endpoint := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		config.VertexLocation, config.VertexProjectID, config.VertexLocation, config.VertexImageModel)

	return NewClientWith(endpoint, creds.TokenSource, client.HTTPClient), nil
}

// NewClientWith builds a client with an explicit endpoint and token source; used
// by NewClient and by tests.
func NewClientWith(endpoint string, tokenSource oauth2.TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:    endpoint,
		tokenSource: tokenSource,
		httpClient:  httpClient,
	}
}

// GenerateImage submits the prompt and returns the raw bytes of the first inline
// image in the reply. aspectRatio is forwarded via the generation config when set.
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	genReq := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	if aspectRatio != "" {
		genReq.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: aspectRatio}
	}

	payload, err := json.Marshal(genReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal generate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokenSource.Token()
	if err != nil {
		return nil, errors.Wrap(err, "obtain access token")
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call vertex ai")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read vertex ai response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, errors.Wrap(err, "unmarshal vertex ai response")
	}
	if len(genResp.Candidates) == 0 {
		return nil, errors.New("vertex ai returned no candidates")
	}
	for _, p := range genResp.Candidates[0].Content.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		image, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, errors.Wrap(err, "decode inline image data")
		}
		return image, nil
	}
	return nil, errors.New("vertex ai reply carries no inline image data")
}

// parseAPIError decodes a non-2xx Vertex error body, preserving the structured
// fields needed for quota classification. Undecodable bodies still yield an
// APIError so classification can run on the raw text.
func parseAPIError(httpCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" && errResp.Error.Code == 0 {
		return errors.WithStack(&APIError{
			Message:  strings.TrimSpace(string(body)),
			HTTPCode: httpCode,
		})
	}
	return errors.WithStack(&APIError{
		Code:     errResp.Error.Code,
		Message:  errResp.Error.Message,
		Status:   errResp.Error.Status,
		Details:  string(errResp.Error.Details),
		HTTPCode: httpCode,
	})
}
