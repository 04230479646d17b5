package model

// Message is a chat-completions message. Content is either a plain string or a
// slice of content parts when images are attached.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// MessageContent is a single multimodal content part.
type MessageContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image reference; the pipeline always embeds data URIs.
type ImageURL struct {
	Url string `json:"url"`
}

const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// ResponseFormat enables JSON mode on chat-completions requests.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the wire request to an OpenAI-compatible chat-completions endpoint.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse is the subset of a chat-completions reply the pipeline consumes.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *Error `json:"error,omitempty"`
}
