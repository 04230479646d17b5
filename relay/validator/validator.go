package validator

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/adcanvas/adcanvas/common/config"
	img "github.com/adcanvas/adcanvas/common/image"
	"github.com/adcanvas/adcanvas/common/logger"
	"github.com/adcanvas/adcanvas/dto"
	relaymodel "github.com/adcanvas/adcanvas/relay/model"
)

// File is one validated uploaded image.
type File struct {
	Data     []byte
	MimeType string
	Size     int64
	Filename string
}

// PipelineRequest is the validated, normalized input of one pipeline run.
// UserPrompt is trimmed; empty means "not provided". AspectRatio is always a
// member of the closed enumeration.
type PipelineRequest struct {
	BaseImage       File
	ReferenceImages []File
	UserPrompt      string
	AspectRatio     string
}

// Rejection carries the structured 400 payload for an invalid submission.
type Rejection struct {
	Message string
	Issues  []dto.ValidationIssue
}

func (r *Rejection) Response() dto.ValidationErrorResponse {
	issues := r.Issues
	if issues == nil {
		issues = []dto.ValidationIssue{}
	}
	return dto.ValidationErrorResponse{Message: r.Message, Issues: issues}
}

func reject(message string, issues ...dto.ValidationIssue) *Rejection {
	return &Rejection{Message: message, Issues: issues}
}

type flowForm struct {
	UserPrompt  string `form:"userPrompt"`
	AspectRatio string `form:"aspectRatio" validate:"omitempty,oneof=21:9 16:9 3:2 4:3 5:4 1:1 4:5 3:4 2:3 9:16"`
}

var validate = validator.New()

// Parse decodes and validates the multipart submission of POST /api/image-flow.
func Parse(c *gin.Context) (*PipelineRequest, *Rejection) {
	maxBytes := int64(config.MaxUploadSizeMB) * 1024 * 1024

	form, err := c.MultipartForm()
	if err != nil {
		return nil, reject("invalid multipart form",
			dto.ValidationIssue{Field: "body", Reason: err.Error()})
	}

	var fields flowForm
	if err := c.ShouldBind(&fields); err != nil {
		return nil, reject("invalid form fields",
			dto.ValidationIssue{Field: "body", Reason: err.Error()})
	}
	if err := validate.Struct(&fields); err != nil {
		return nil, reject("invalid form fields",
			dto.ValidationIssue{Field: "aspectRatio", Reason: fmt.Sprintf("must be one of the supported aspect ratios, got %q", fields.AspectRatio)})
	}

	baseHeaders := form.File["baseImage"]
	if len(baseHeaders) == 0 {
		return nil, reject("baseImage is required",
			dto.ValidationIssue{Field: "baseImage", Reason: "exactly one file is required"})
	}
	if len(baseHeaders) > 1 {
		return nil, reject("baseImage must be a single file",
			dto.ValidationIssue{Field: "baseImage", Reason: fmt.Sprintf("got %d files, want 1", len(baseHeaders))})
	}

	refHeaders := form.File["referenceImages"]
	if len(refHeaders) > config.MaxReferenceImages {
		return nil, reject("too many reference images",
			dto.ValidationIssue{
				Field:  "referenceImages",
				Reason: fmt.Sprintf("got %d files, at most %d allowed", len(refHeaders), config.MaxReferenceImages),
			})
	}

	base, rej := readFile(baseHeaders[0], "baseImage", maxBytes)
	if rej != nil {
		return nil, rej
	}

	total := base.Size
	refs := make([]File, 0, len(refHeaders))
	for i, header := range refHeaders {
		field := fmt.Sprintf("referenceImages[%d]", i)
		ref, rej := readFile(header, field, maxBytes)
		if rej != nil {
			return nil, rej
		}
		total += ref.Size
		refs = append(refs, *ref)
	}
	if total > maxBytes {
		return nil, reject("combined upload size exceeds the limit",
			dto.ValidationIssue{
				Field:  "body",
				Reason: fmt.Sprintf("total size %d bytes exceeds the %dMB limit", total, config.MaxUploadSizeMB),
			})
	}

	aspectRatio := fields.AspectRatio
	if aspectRatio == "" {
		aspectRatio = relaymodel.DefaultAspectRatio
	}

	return &PipelineRequest{
		BaseImage:       *base,
		ReferenceImages: refs,
		UserPrompt:      strings.TrimSpace(fields.UserPrompt),
		AspectRatio:     aspectRatio,
	}, nil
}

// readFile enforces per-file constraints and loads the bytes. The MIME contract is
// declarative: the declared Content-Type is checked against the allowlist, and the
// payload is only sniffed for logging.
func readFile(header *multipart.FileHeader, field string, maxBytes int64) (*File, *Rejection) {
	mimeType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if !img.IsAllowedMimeType(mimeType) {
		return nil, reject("unsupported image format",
			dto.ValidationIssue{
				Field:  field,
				Reason: fmt.Sprintf("file %q has unsupported type %q", header.Filename, mimeType),
			})
	}
	if header.Size > maxBytes {
		return nil, reject("image file too large",
			dto.ValidationIssue{
				Field:  field,
				Reason: fmt.Sprintf("file %q is %d bytes, the limit is %dMB", header.Filename, header.Size, config.MaxUploadSizeMB),
			})
	}

	fd, err := header.Open()
	if err != nil {
		return nil, reject("cannot read uploaded file",
			dto.ValidationIssue{Field: field, Reason: err.Error()})
	}
	defer fd.Close()

	data, err := io.ReadAll(fd)
	if err != nil {
		return nil, reject("cannot read uploaded file",
			dto.ValidationIssue{Field: field, Reason: err.Error()})
	}

	if w, h, err := img.DecodeConfig(data); err != nil {
		logger.Logger.Warn("uploaded file does not decode as an image",
			zap.String("field", field),
			zap.String("filename", header.Filename),
			zap.String("mime", mimeType))
	} else {
		logger.Logger.Debug("uploaded image",
			zap.String("field", field),
			zap.Int("width", w),
			zap.Int("height", h))
	}

	return &File{
		Data:     data,
		MimeType: mimeType,
		Size:     header.Size,
		Filename: header.Filename,
	}, nil
}
