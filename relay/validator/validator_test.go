package validator

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcanvas/adcanvas/common/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	field    string
	filename string
	mime     string
	data     []byte
}

func buildContext(t *testing.T, uploads []upload, fields map[string]string) *gin.Context {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, u := range uploads {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			`form-data; name="`+u.field+`"; filename="`+u.filename+`"`)
		header.Set("Content-Type", u.mime)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/image-flow", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func pngUpload(field string, size int) upload {
	return upload{field: field, filename: field + ".png", mime: "image/png", data: bytes.Repeat([]byte{0xab}, size)}
}

func TestParseMinimalRequest(t *testing.T) {
	c := buildContext(t, []upload{pngUpload("baseImage", 64)}, nil)

	req, rej := Parse(c)
	require.Nil(t, rej)
	assert.Equal(t, "image/png", req.BaseImage.MimeType)
	assert.Equal(t, int64(64), req.BaseImage.Size)
	assert.Empty(t, req.ReferenceImages)
	assert.Empty(t, req.UserPrompt)
	assert.Equal(t, "1:1", req.AspectRatio)
}

func TestParseFullRequest(t *testing.T) {
	uploads := []upload{
		pngUpload("baseImage", 128),
		{field: "referenceImages", filename: "ref1.jpg", mime: "image/jpeg", data: []byte("jpegdata1")},
		{field: "referenceImages", filename: "ref2.jpg", mime: "image/jpeg", data: []byte("jpegdata2")},
	}
	c := buildContext(t, uploads, map[string]string{
		"userPrompt":  "  move the cup to her right hand  ",
		"aspectRatio": "16:9",
	})

	req, rej := Parse(c)
	require.Nil(t, rej)
	require.Len(t, req.ReferenceImages, 2)
	assert.Equal(t, "move the cup to her right hand", req.UserPrompt)
	assert.Equal(t, "16:9", req.AspectRatio)
	assert.Equal(t, []byte("jpegdata2"), req.ReferenceImages[1].Data)
}

func TestParseWhitespacePromptTreatedAsAbsent(t *testing.T) {
	c := buildContext(t, []upload{pngUpload("baseImage", 16)}, map[string]string{"userPrompt": "   "})

	req, rej := Parse(c)
	require.Nil(t, rej)
	assert.Empty(t, req.UserPrompt)
}

func TestParseMissingBaseImage(t *testing.T) {
	c := buildContext(t, []upload{{field: "referenceImages", filename: "r.png", mime: "image/png", data: []byte("x")}}, nil)

	_, rej := Parse(c)
	require.NotNil(t, rej)
	assert.Equal(t, "baseImage is required", rej.Message)
	require.Len(t, rej.Issues, 1)
	assert.Equal(t, "baseImage", rej.Issues[0].Field)
}

func TestParseUnsupportedMime(t *testing.T) {
	c := buildContext(t, []upload{{field: "baseImage", filename: "b.bmp", mime: "image/bmp", data: []byte("x")}}, nil)

	_, rej := Parse(c)
	require.NotNil(t, rej)
	assert.Equal(t, "unsupported image format", rej.Message)
	assert.Contains(t, rej.Issues[0].Reason, "image/bmp")
	assert.Contains(t, rej.Issues[0].Reason, "b.bmp")
}

func TestParseInvalidAspectRatio(t *testing.T) {
	c := buildContext(t, []upload{pngUpload("baseImage", 16)}, map[string]string{"aspectRatio": "auto"})

	_, rej := Parse(c)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Issues[0].Reason, "auto")
}

func TestParseTooManyReferences(t *testing.T) {
	orig := config.MaxReferenceImages
	config.MaxReferenceImages = 2
	defer func() { config.MaxReferenceImages = orig }()

	uploads := []upload{pngUpload("baseImage", 16)}
	for range 3 {
		uploads = append(uploads, upload{field: "referenceImages", filename: "r.png", mime: "image/png", data: []byte("x")})
	}
	c := buildContext(t, uploads, nil)

	_, rej := Parse(c)
	require.NotNil(t, rej)
	assert.Equal(t, "too many reference images", rej.Message)
	assert.Contains(t, rej.Issues[0].Reason, "got 3")
}

func TestParsePerFileSizeLimit(t *testing.T) {
	orig := config.MaxUploadSizeMB
	config.MaxUploadSizeMB = 1
	defer func() { config.MaxUploadSizeMB = orig }()

	c := buildContext(t, []upload{pngUpload("baseImage", 1024*1024+1)}, nil)

	_, rej := Parse(c)
	require.NotNil(t, rej)
	assert.Equal(t, "image file too large", rej.Message)
}

func TestParseAggregateSizeLimit(t *testing.T) {
	orig := config.MaxUploadSizeMB
	config.MaxUploadSizeMB = 1
	defer func() { config.MaxUploadSizeMB = orig }()

	// Each file is under the per-file limit; together they exceed it.
	uploads := []upload{
		pngUpload("baseImage", 1024*1024),
		{field: "referenceImages", filename: "r.png", mime: "image/png", data: []byte("x")},
	}
	c := buildContext(t, uploads, nil)

	_, rej := Parse(c)
	require.NotNil(t, rej)
	assert.Equal(t, "combined upload size exceeds the limit", rej.Message)
}

func TestParseExactLimitPasses(t *testing.T) {
	orig := config.MaxUploadSizeMB
	config.MaxUploadSizeMB = 1
	defer func() { config.MaxUploadSizeMB = orig }()

	c := buildContext(t, []upload{pngUpload("baseImage", 1024*1024)}, nil)

	_, rej := Parse(c)
	require.Nil(t, rej)
}
