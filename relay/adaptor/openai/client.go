package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/adcanvas/adcanvas/common/client"
	"github.com/adcanvas/adcanvas/common/config"
	img "github.com/adcanvas/adcanvas/common/image"
	relaymodel "github.com/adcanvas/adcanvas/relay/model"
)

// Outcome is the structured result of a vision/text model call. Generated is false
// when the model refused or returned unusable content; in that case Prompt carries
// the refusal text for diagnostics.
type Outcome struct {
	Prompt    string `json:"prompt"`
	Generated bool   `json:"isPromptGenerated"`
}

// Reference is a reference image attached to a prompt-edit call.
type Reference struct {
	Data     []byte
	MimeType string
}

// refusalMarkers classify a free-text reply as a content refusal. This is a coarse
// safety net; the JSON-mode path relies primarily on the structured flag.
var refusalMarkers = []string{
	"i'm sorry",
	"i can't assist",
	"can't help",
	"cannot",
	"unable to",
}

func isRefusal(reply string) bool {
	lowered := strings.ToLower(reply)
	for _, marker := range refusalMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	apiKey           string
	baseURL          string
	model            string
	understandPrompt string
	editorPrompt     string
	httpClient       *http.Client
}

// NewClient builds a client from the process configuration.
func NewClient() *Client {
	return NewClientWith(config.OpenAIBaseURL, config.OpenAIAPIKey, config.OpenAIVisionModel,
		config.SystemPromptImageUnderstand, config.SystemPromptPromptEditor, client.HTTPClient)
}

// NewClientWith builds a client with explicit endpoints; used by tests.
func NewClientWith(baseURL, apiKey, model, understandPrompt, editorPrompt string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:           apiKey,
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		model:            model,
		understandPrompt: understandPrompt,
		editorPrompt:     editorPrompt,
		httpClient:       httpClient,
	}
}

// ReconstructPrompt asks the vision model for a faithful re-creation prompt of the
// image. The reply is free text, so refusals are detected heuristically.
func (c *Client) ReconstructPrompt(ctx context.Context, image []byte, mimeType string) (Outcome, error) {
	req := &relaymodel.ChatRequest{
		Model: c.model,
		Messages: []relaymodel.Message{
			{Role: "system", Content: c.understandPrompt},
			{Role: "user", Content: []relaymodel.MessageContent{
				{
					Type:     relaymodel.ContentTypeImageURL,
					ImageURL: &relaymodel.ImageURL{Url: img.ToDataURI(image, mimeType)},
				},
			}},
		},
	}

	reply, err := c.chat(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	reply = strings.TrimSpace(reply)
	if isRefusal(reply) {
		return Outcome{Prompt: reply, Generated: false}, nil
	}
	return Outcome{Prompt: reply, Generated: true}, nil
}

// jsonDirective is appended to the last user fragment of a prompt-edit call so the
// model returns a parseable object even on refusal.
const jsonDirective = `Return your answer strictly as a JSON object of the form {"prompt": string, "isPromptGenerated": boolean}. Set "isPromptGenerated" to false and explain why in "prompt" if you cannot produce the requested prompt.`

// ApplyInstructions rewrites basePrompt with the user's instructions, optionally
// grounded by reference images, using JSON mode.
func (c *Client) ApplyInstructions(ctx context.Context, basePrompt, instructions string, refs []Reference) (Outcome, error) {
	parts := []relaymodel.MessageContent{
		{
			Type: relaymodel.ContentTypeText,
			Text: fmt.Sprintf("Base prompt:\n%s\n\nModification instructions:\n%s", basePrompt, instructions),
		},
	}
	for i, ref := range refs {
		parts = append(parts,
			relaymodel.MessageContent{
				Type: relaymodel.ContentTypeText,
				Text: fmt.Sprintf("Reference image #%d", i+1),
			},
			relaymodel.MessageContent{
				Type:     relaymodel.ContentTypeImageURL,
				ImageURL: &relaymodel.ImageURL{Url: img.ToDataURI(ref.Data, ref.MimeType)},
			},
		)
	}
	parts = augmentWithDirective(parts)

	req := &relaymodel.ChatRequest{
		Model: c.model,
		Messages: []relaymodel.Message{
			{Role: "system", Content: c.editorPrompt},
			{Role: "user", Content: parts},
		},
		ResponseFormat: &relaymodel.ResponseFormat{Type: "json_object"},
	}

	reply, err := c.chat(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	if outcome, ok := parseOutcome(reply); ok {
		outcome.Prompt = strings.TrimSpace(outcome.Prompt)
		return outcome, nil
	}

	// Model ignored JSON mode; fall back to the free-text heuristic.
	reply = strings.TrimSpace(reply)
	if isRefusal(reply) {
		return Outcome{Prompt: reply, Generated: false}, nil
	}
	return Outcome{Prompt: reply, Generated: true}, nil
}

// augmentWithDirective attaches the JSON schema directive to the last user content
// fragment: appended to the text when the fragment is text, added as a trailing
// text fragment when the fragment is an image.
func augmentWithDirective(parts []relaymodel.MessageContent) []relaymodel.MessageContent {
	last := len(parts) - 1
	if parts[last].Type == relaymodel.ContentTypeText {
		parts[last].Text += "\n\n" + jsonDirective
		return parts
	}
	return append(parts, relaymodel.MessageContent{
		Type: relaymodel.ContentTypeText,
		Text: jsonDirective,
	})
}

// parseOutcome extracts the first {...} block from the reply and decodes it.
func parseOutcome(reply string) (Outcome, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Outcome{}, false
	}

	var raw struct {
		Prompt    *string `json:"prompt"`
		Generated *bool   `json:"isPromptGenerated"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return Outcome{}, false
	}
	if raw.Prompt == nil || raw.Generated == nil {
		return Outcome{}, false
	}
	return Outcome{Prompt: *raw.Prompt, Generated: *raw.Generated}, true
}

// chat posts the request and returns the first choice's content. Non-2xx replies
// surface as transport errors, never as refusals.
func (c *Client) chat(ctx context.Context, chatReq *relaymodel.ChatRequest) (string, error) {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call chat completions")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read chat response")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", errors.Errorf("chat completions returned %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var chatResp relaymodel.ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", errors.Wrap(err, "unmarshal chat response")
	}
	if chatResp.Error != nil && chatResp.Error.Message != "" {
		return "", errors.Errorf("chat completions error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("chat completions returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
