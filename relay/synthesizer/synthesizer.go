package synthesizer

import (
	"context"

	"github.com/Laisky/zap"

	"github.com/adcanvas/adcanvas/common/logger"
	"github.com/adcanvas/adcanvas/monitor"
	"github.com/adcanvas/adcanvas/relay/adaptor/vertexai"
)

// PrimaryGenerator is the Vertex AI image client surface.
type PrimaryGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
}

// FallbackGenerator is the fal.ai client surface.
type FallbackGenerator interface {
	Generate(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
}

// Client implements the provider-fallback policy: exactly one primary attempt and,
// only on quota exhaustion, at most one fallback attempt. Any other primary error
// propagates unchanged.
type Client struct {
	primary            PrimaryGenerator
	fallback           FallbackGenerator
	defaultAspectRatio string
}

// New wires a synthesis client. defaultAspectRatio substitutes for an omitted
// aspect ratio before either provider is called.
func New(primary PrimaryGenerator, fallback FallbackGenerator, defaultAspectRatio string) *Client {
	return &Client{
		primary:            primary,
		fallback:           fallback,
		defaultAspectRatio: defaultAspectRatio,
	}
}

// Generate produces image bytes for the prompt.
func (c *Client) Generate(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	if aspectRatio == "" {
		aspectRatio = c.defaultAspectRatio
	}

	image, err := c.primary.GenerateImage(ctx, prompt, aspectRatio)
	if err == nil {
		return image, nil
	}
	if !vertexai.IsQuotaExhausted(err) {
		return nil, err
	}

	logger.Logger.Warn("primary image generator quota exhausted, using fallback",
		zap.String("aspect_ratio", aspectRatio),
		zap.Error(err))
	monitor.RecordProviderFallback()

	return c.fallback.Generate(ctx, prompt, aspectRatio)
}
