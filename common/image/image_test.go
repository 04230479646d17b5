package image

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedMimeType(t *testing.T) {
	for _, mime := range []string{"image/png", "image/jpeg", "image/jpg", "image/webp", "image/gif"} {
		assert.True(t, IsAllowedMimeType(mime), mime)
	}
	assert.True(t, IsAllowedMimeType(" IMAGE/PNG "))
	assert.False(t, IsAllowedMimeType("image/bmp"))
	assert.False(t, IsAllowedMimeType("application/pdf"))
	assert.False(t, IsAllowedMimeType(""))
}

func TestExtensionFromMimeType(t *testing.T) {
	assert.Equal(t, "png", ExtensionFromMimeType("image/png"))
	assert.Equal(t, "jpeg", ExtensionFromMimeType("image/jpeg"))
	assert.Equal(t, "webp", ExtensionFromMimeType("IMAGE/WEBP"))
	assert.Equal(t, "svg", ExtensionFromMimeType("image/svg+xml"))
	assert.Equal(t, "", ExtensionFromMimeType("application/json"))
}

func TestToDataURI(t *testing.T) {
	uri := ToDataURI([]byte{0x1, 0x2}, "image/png")
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	assert.Equal(t, "data:image/png;base64,AQI=", uri)
}

func TestDecodeConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 5))))

	w, h, err := DecodeConfig(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, w)
	assert.Equal(t, 5, h)

	_, _, err = DecodeConfig([]byte("not an image"))
	assert.Error(t, err)
}
