package extract

import (
	"bytes"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	// visionMaxTokens caps the length of a generated image description.
	visionMaxTokens = 500

	// maxImageEdge bounds the payload sent to the vision model; larger images
	// are downscaled before encoding.
	maxImageEdge = 2048

	visionPrompt = "Provide a detailed textual description of this image, including any visible text."
)

// normalizeImage prepares image bytes for the vision call. Oversized images
// are downscaled and re-encoded as JPEG; undecodable bytes pass through
// untouched so the remote model gets a chance at formats we can't parse.
func normalizeImage(content []byte, mimeType string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return content, mimeType
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxImageEdge && bounds.Dy() <= maxImageEdge {
		return content, mimeType
	}

	resized := imaging.Fit(img, maxImageEdge, maxImageEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return content, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}
