package dto

// PipelineResponse is the wire shape returned by POST /api/image-flow for both
// full runs (200) and short-circuited runs (502). Nullable fields reflect how far
// the pipeline got.
type PipelineResponse struct {
	BaseImageUrl       string   `json:"baseImageUrl"`
	BaseImageKey       string   `json:"baseImageKey"`
	ReferenceImageUrls []string `json:"referenceImageUrls"`
	ReferenceImageKeys []string `json:"referenceImageKeys"`
	Prompt1            *string  `json:"prompt1"`
	Prompt2            *string  `json:"prompt2"`
	OutputImageUrl     *string  `json:"outputImageUrl"`
	OutputImageKey     *string  `json:"outputImageKey"`
	Step2Executed      bool     `json:"step2Executed"`
	IsPromptGenerated  bool     `json:"isPromptGenerated"`
	Error              string   `json:"error,omitempty"`
}

// ValidationIssue pinpoints one rejected field of a multipart submission.
type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationErrorResponse is the 400 envelope for rejected submissions.
type ValidationErrorResponse struct {
	Message string            `json:"message"`
	Issues  []ValidationIssue `json:"issues"`
}
