package image

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/Laisky/errors/v2"
	_ "golang.org/x/image/webp"
)

// AllowedMimeTypes enumerates the upload formats the pipeline accepts. GIFs are
// accepted declaratively; animation frames are not inspected.
var AllowedMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
	"image/gif":  true,
}

// IsAllowedMimeType reports whether the declared MIME type is accepted for upload.
func IsAllowedMimeType(mimeType string) bool {
	return AllowedMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// ExtensionFromMimeType derives a file extension from an image MIME type, e.g.
// "image/png" -> "png". Returns an empty string for non-image types.
func ExtensionFromMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	ext, found := strings.CutPrefix(mimeType, "image/")
	if !found {
		return ""
	}
	if idx := strings.IndexAny(ext, ";+"); idx >= 0 {
		ext = ext[:idx]
	}
	return ext
}

// ToDataURI encodes raw image bytes as a base64 data URI suitable for chat-message
// image_url content parts.
func ToDataURI(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeConfig sniffs the image header and returns its dimensions. Supports the
// same formats as AllowedMimeTypes via registered decoders.
func DecodeConfig(data []byte) (width int, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, errors.Wrap(err, "decode image config")
	}
	return cfg.Width, cfg.Height, nil
}
