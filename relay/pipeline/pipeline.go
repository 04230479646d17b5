package pipeline

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adcanvas/adcanvas/common/logger"
	"github.com/adcanvas/adcanvas/common/storage"
	"github.com/adcanvas/adcanvas/dto"
	"github.com/adcanvas/adcanvas/monitor"
	"github.com/adcanvas/adcanvas/relay/adaptor/openai"
	"github.com/adcanvas/adcanvas/relay/validator"
)

// Uploader is the blob-store surface the pipeline needs.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mimeType, prefix, ext string) (key string, url string, err error)
}

// PromptClient is the vision/text model surface.
type PromptClient interface {
	ReconstructPrompt(ctx context.Context, image []byte, mimeType string) (openai.Outcome, error)
	ApplyInstructions(ctx context.Context, basePrompt, instructions string, refs []openai.Reference) (openai.Outcome, error)
}

// Synthesizer is the image-generation surface (fallback handled inside).
type Synthesizer interface {
	Generate(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
}

// Pipeline runs the three-stage image flow with strict short-circuit semantics.
// Every terminal response carries whatever partial state is available.
type Pipeline struct {
	store        Uploader
	prompts      PromptClient
	synth        Synthesizer
	outputFormat string
}

// New wires the pipeline. outputFormat is the extension (and image/<fmt> MIME)
// for generated images.
func New(store Uploader, prompts PromptClient, synth Synthesizer, outputFormat string) *Pipeline {
	return &Pipeline{
		store:        store,
		prompts:      prompts,
		synth:        synth,
		outputFormat: outputFormat,
	}
}

// A generated prompt shorter than this is treated as unusable.
const minPromptLength = 3

// Run executes the pipeline for one validated request and returns the HTTP status
// plus the response body. Partial artifacts already uploaded stay referenced in
// the response even on failure; nothing is deleted.
func (p *Pipeline) Run(ctx context.Context, req *validator.PipelineRequest) (int, *dto.PipelineResponse) {
	resp := &dto.PipelineResponse{
		ReferenceImageUrls: []string{},
		ReferenceImageKeys: []string{},
	}

	// Upload inputs: base image first, then references concurrently.
	start := time.Now()
	if status, ok := p.uploadInputs(ctx, req, resp); !ok {
		monitor.RecordPipelineOutcome(monitor.OutcomeStorage)
		return status, resp
	}
	monitor.RecordStageDuration("upload_inputs", start)

	// Stage 1: reconstruct a prompt from the base image.
	start = time.Now()
	outcome, err := p.prompts.ReconstructPrompt(ctx, req.BaseImage.Data, req.BaseImage.MimeType)
	monitor.RecordStageDuration("reconstruct", start)
	if err != nil {
		logger.Logger.Warn("prompt reconstruction failed", zap.Error(err))
		resp.Error = "prompt reconstruction failed: " + err.Error()
		monitor.RecordPipelineOutcome(monitor.OutcomeUpstream)
		return http.StatusBadGateway, resp
	}
	prompt1 := strings.TrimSpace(outcome.Prompt)
	if !outcome.Generated {
		resp.Prompt1 = &prompt1
		resp.Error = "the vision model declined to describe the base image"
		monitor.RecordPipelineOutcome(monitor.OutcomeRefusal)
		return http.StatusBadGateway, resp
	}
	if len(prompt1) < minPromptLength {
		resp.Prompt1 = &prompt1
		resp.Error = "the vision model returned an invalid prompt"
		monitor.RecordPipelineOutcome(monitor.OutcomeRefusal)
		return http.StatusBadGateway, resp
	}
	resp.Prompt1 = &prompt1

	// Stage 2: apply user instructions, only when any were provided.
	prompt2 := prompt1
	if req.UserPrompt != "" {
		refs := make([]openai.Reference, 0, len(req.ReferenceImages))
		for _, ref := range req.ReferenceImages {
			refs = append(refs, openai.Reference{Data: ref.Data, MimeType: ref.MimeType})
		}

		start = time.Now()
		outcome, err := p.prompts.ApplyInstructions(ctx, prompt1, req.UserPrompt, refs)
		monitor.RecordStageDuration("apply_instructions", start)
		resp.Step2Executed = true
		if err != nil {
			logger.Logger.Warn("prompt edit failed", zap.Error(err))
			resp.Error = "prompt edit failed: " + err.Error()
			monitor.RecordPipelineOutcome(monitor.OutcomeUpstream)
			return http.StatusBadGateway, resp
		}
		edited := strings.TrimSpace(outcome.Prompt)
		resp.Prompt2 = &edited
		if !outcome.Generated {
			resp.Error = "the vision model declined to apply the requested modifications"
			monitor.RecordPipelineOutcome(monitor.OutcomeRefusal)
			return http.StatusBadGateway, resp
		}
		if len(edited) < minPromptLength {
			resp.Error = "the vision model returned an invalid edited prompt"
			monitor.RecordPipelineOutcome(monitor.OutcomeRefusal)
			return http.StatusBadGateway, resp
		}
		prompt2 = edited
	} else {
		resp.Prompt2 = &prompt2
	}

	// Stage 3: synthesize; provider fallback happens inside the synthesizer.
	start = time.Now()
	image, err := p.synth.Generate(ctx, prompt2, req.AspectRatio)
	monitor.RecordStageDuration("synthesize", start)
	if err != nil {
		logger.Logger.Warn("image synthesis failed", zap.Error(err))
		resp.Error = "image synthesis failed: " + err.Error()
		monitor.RecordPipelineOutcome(monitor.OutcomeUpstream)
		return http.StatusBadGateway, resp
	}

	// Upload the output under the configured format.
	start = time.Now()
	key, url, err := p.store.Upload(ctx, image, "image/"+p.outputFormat, storage.PrefixOutputs, p.outputFormat)
	monitor.RecordStageDuration("upload_output", start)
	if err != nil {
		logger.Logger.Error("output upload failed", zap.Error(err))
		resp.Error = "failed to store the generated image: " + err.Error()
		monitor.RecordPipelineOutcome(monitor.OutcomeStorage)
		return http.StatusInternalServerError, resp
	}
	resp.OutputImageKey = &key
	resp.OutputImageUrl = &url
	resp.IsPromptGenerated = true

	monitor.RecordPipelineOutcome(monitor.OutcomeSuccess)
	return http.StatusOK, resp
}

// uploadInputs stores the base image and then the reference images concurrently.
// All uploads must succeed; the first failure aborts the request with 500.
func (p *Pipeline) uploadInputs(ctx context.Context, req *validator.PipelineRequest, resp *dto.PipelineResponse) (int, bool) {
	baseKey, baseURL, err := p.store.Upload(ctx, req.BaseImage.Data, req.BaseImage.MimeType, storage.PrefixInputs, "")
	if err != nil {
		logger.Logger.Error("base image upload failed", zap.Error(err))
		resp.Error = "failed to store the base image: " + err.Error()
		return http.StatusInternalServerError, false
	}
	resp.BaseImageKey = baseKey
	resp.BaseImageUrl = baseURL

	if len(req.ReferenceImages) == 0 {
		return 0, true
	}

	keys := make([]string, len(req.ReferenceImages))
	urls := make([]string, len(req.ReferenceImages))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range req.ReferenceImages {
		g.Go(func() error {
			key, url, err := p.store.Upload(gctx, ref.Data, ref.MimeType, storage.PrefixInputs, "")
			if err != nil {
				return err
			}
			keys[i] = key
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Logger.Error("reference image upload failed", zap.Error(err))
		resp.Error = "failed to store a reference image: " + err.Error()
		return http.StatusInternalServerError, false
	}
	resp.ReferenceImageKeys = keys
	resp.ReferenceImageUrls = urls

	return 0, true
}
