package config

import (
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/adcanvas/adcanvas/common/env"
)

var (
	// ServerPort overrides the --port flag when running inside container or PaaS environments.
	ServerPort = strings.TrimSpace(env.String("PORT", ""))
	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))

	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)

	// OnlyOneLogFile merges all rotated logs into a single file when true.
	OnlyOneLogFile = env.Bool("ONLY_ONE_LOG_FILE", false)

	// ShutdownTimeoutSec specifies the graceful shutdown timeout (seconds) for the HTTP server.
	ShutdownTimeoutSec = env.Int("SHUTDOWN_TIMEOUT", 30)

	// RelayTimeout bounds upstream model HTTP requests (seconds) before aborting them (0 disables).
	RelayTimeout = env.Int("RELAY_TIMEOUT", 0)
	// UserContentRequestTimeout limits fetch time (seconds) for stored assets served by the proxy.
	UserContentRequestTimeout = env.Int("USER_CONTENT_REQUEST_TIMEOUT", 30)

	// OpenAIAPIKey authenticates against the vision/text model. Required.
	OpenAIAPIKey = strings.TrimSpace(env.String("OPENAI_API_KEY", ""))
	// OpenAIBaseURL points at an OpenAI-compatible chat-completions host.
	OpenAIBaseURL = strings.TrimSuffix(strings.TrimSpace(env.String("OPENAI_BASE_URL", "https://api.openai.com/v1")), "/")
	// OpenAIVisionModel is the chat model used for prompt reconstruction and editing.
	OpenAIVisionModel = env.String("OPENAI_VISION_MODEL", "gpt-4o")

	// VertexProjectID selects the Google Cloud project hosting the primary image model.
	VertexProjectID = strings.TrimSpace(env.String("GOOGLE_VERTEX_PROJECT_ID", ""))
	// VertexLocation selects the Vertex AI region for the primary image model.
	VertexLocation = strings.TrimSpace(env.String("GOOGLE_VERTEX_LOCATION", "us-central1"))
	// VertexImageModel is the publisher model id used for primary image generation.
	VertexImageModel = env.String("GOOGLE_VERTEX_IMAGE_MODEL", "gemini-2.5-flash-image-preview")
	// GoogleApplicationCredentials is the service-account credentials file path; resolved to absolute in init.
	GoogleApplicationCredentials = strings.TrimSpace(env.String("GOOGLE_APPLICATION_CREDENTIALS", ""))

	// FalAPIKey authenticates against the fallback image generator. Its absence is only
	// an error when the fallback is actually needed.
	FalAPIKey = strings.TrimSpace(env.String("FAL_API_KEY", ""))
	// FalGeminiEndpoint is the synchronous generation endpoint of the fallback provider.
	FalGeminiEndpoint = strings.TrimSuffix(strings.TrimSpace(env.String("FAL_GEMINI_ENDPOINT", "https://fal.run")), "/")
	// FalGeminiModelID selects the fallback provider's model route.
	FalGeminiModelID = env.String("FAL_GEMINI_MODEL_ID", "fal-ai/gemini-25-flash-image")
	// FalGeminiAspectRatio is the aspect ratio used when the caller omits one.
	FalGeminiAspectRatio = env.String("FAL_GEMINI_ASPECT_RATIO", "1:1")

	// S3AccessKey is the access key id for the S3-compatible object store.
	S3AccessKey = strings.TrimSpace(env.String("S3_ACCESS_KEY", ""))
	// S3SecretKey is the secret access key for the S3-compatible object store.
	S3SecretKey = strings.TrimSpace(env.String("S3_SECRET_KEY", ""))
	// S3BucketName names the bucket that stores pipeline inputs and outputs.
	S3BucketName = strings.TrimSpace(env.String("S3_BUCKET_NAME", ""))
	// S3EndpointURL points at the S3-compatible API endpoint.
	S3EndpointURL = strings.TrimSuffix(strings.TrimSpace(env.String("S3_ENDPOINT_URL", "")), "/")
	// S3Folder prefixes every stored object key.
	S3Folder = strings.Trim(strings.TrimSpace(env.String("S3_FOLDER", "internaluse")), "/")
	// S3PublicLink is the public base URL that keys resolve against.
	S3PublicLink = strings.TrimSpace(env.String("S3_PUBLIC_LINK", ""))

	// ImageOutputFormat is the file extension (and image/<fmt> MIME) for generated images.
	ImageOutputFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(env.String("IMAGE_OUTPUT_FORMAT", "png"))), ".")

	// MaxReferenceImages caps the number of reference images accepted per request.
	MaxReferenceImages = func() int {
		v := env.Int("MAX_REFERENCE_IMAGES", 2)
		if v < 0 {
			panic("MAX_REFERENCE_IMAGES must not be negative")
		}
		return v
	}()

	// MaxUploadSizeMB limits both the per-file and aggregate size of uploaded images (MB).
	MaxUploadSizeMB = func() int {
		v := env.Int("MAX_UPLOAD_SIZE_MB", 50)
		if v <= 0 {
			panic("MAX_UPLOAD_SIZE_MB must be positive")
		}
		return v
	}()
)

// DefaultSystemPromptImageUnderstand instructs the vision model to emit a faithful
// re-creation prompt for the base image. Overridable via SYSTEM_PROMPT_IMAGE_UNDERSTAND.
const DefaultSystemPromptImageUnderstand = `You are an expert prompt engineer for image generation models. You will be shown a single marketing image.

Describe the image as a single detailed generation prompt that would let an image model recreate it as faithfully as possible. Cover the subject, composition and framing, setting and background, lighting, color palette, camera angle and lens feel, mood, and any visible text or logos (quote text exactly and describe its placement and typography).

Write the prompt as plain descriptive text. Do not address the user, do not explain what you are doing, and do not add headings, lists, or commentary of any kind. Output the prompt and nothing else.`

// DefaultSystemPromptPromptEditor instructs the model to rewrite a base prompt with the
// user's modification instructions. Overridable via SYSTEM_PROMPT_PROMPT_EDITOR.
const DefaultSystemPromptPromptEditor = `You are an expert prompt editor for image generation models. You will receive an existing generation prompt that describes a marketing image, a set of modification instructions from the user, and optionally one or more reference images.

Rewrite the prompt so that it incorporates every requested modification while preserving everything the instructions do not touch: keep the original subject, composition, lighting, palette, and any text or branding exactly as described unless the user asks to change them. When reference images are provided, fold the relevant style or content cues from each reference into the rewritten prompt where the instructions call for them.

If the requested modification cannot be applied to the prompt, say so briefly instead of inventing an unrelated image. Never output anything except the requested result.`

var (
	// SystemPromptImageUnderstand is the effective Stage-1 system prompt.
	SystemPromptImageUnderstand = env.String("SYSTEM_PROMPT_IMAGE_UNDERSTAND", DefaultSystemPromptImageUnderstand)
	// SystemPromptPromptEditor is the effective Stage-2 system prompt.
	SystemPromptPromptEditor = env.String("SYSTEM_PROMPT_PROMPT_EDITOR", DefaultSystemPromptPromptEditor)
)

func init() {
	if GoogleApplicationCredentials != "" {
		abs, err := filepath.Abs(GoogleApplicationCredentials)
		if err == nil {
			GoogleApplicationCredentials = abs
		}
	}
}

// Validate checks the startup-required configuration. The fallback provider's key is
// deliberately not checked here; its absence only matters when the fallback is needed.
func Validate() error {
	if OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if S3AccessKey == "" || S3SecretKey == "" {
		return errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	}
	if S3BucketName == "" {
		return errors.New("S3_BUCKET_NAME is required")
	}
	if S3EndpointURL == "" {
		return errors.New("S3_ENDPOINT_URL is required")
	}
	if S3PublicLink == "" {
		return errors.New("S3_PUBLIC_LINK is required")
	}
	if VertexProjectID == "" {
		return errors.New("GOOGLE_VERTEX_PROJECT_ID is required")
	}
	if GoogleApplicationCredentials == "" {
		return errors.New("GOOGLE_APPLICATION_CREDENTIALS is required")
	}
	return nil
}
