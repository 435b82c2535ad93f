package sniffer

import (
	"bytes"
	"errors"
	"strings"
)

// Format is an image encoding recognised from its leading bytes.
type Format struct {
	Name      string
	Extension string
	MIME      string
}

var (
	JPEG = Format{Name: "jpeg", Extension: "jpg", MIME: "image/jpeg"}
	PNG  = Format{Name: "png", Extension: "png", MIME: "image/png"}
	GIF  = Format{Name: "gif", Extension: "gif", MIME: "image/gif"}
	WEBP = Format{Name: "webp", Extension: "webp", MIME: "image/webp"}
	AVIF = Format{Name: "avif", Extension: "avif", MIME: "image/avif"}
	SVG  = Format{Name: "svg", Extension: "svg", MIME: "image/svg+xml"}
)

var ErrUnknownFormat = errors.New("unknown image format")

// HeadSize is how many leading bytes Detect looks at.
const HeadSize = 512

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func Detect(data []byte) (Format, error) {
	head := data
	if len(head) > HeadSize {
		head = head[:HeadSize]
	}

	switch {
	case len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff:
		return JPEG, nil
	case bytes.HasPrefix(head, pngMagic):
		return PNG, nil
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return GIF, nil
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return WEBP, nil
	case len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")) && bytes.Contains(head[8:], []byte("avif")):
		return AVIF, nil
	case looksLikeSVG(head):
		return SVG, nil
	}
	return Format{}, ErrUnknownFormat
}

func looksLikeSVG(head []byte) bool {
	text := strings.ToLower(strings.TrimSpace(string(bytes.TrimPrefix(head, []byte{0xef, 0xbb, 0xbf}))))
	if strings.HasPrefix(text, "<svg") {
		return true
	}
	return strings.HasPrefix(text, "<?xml") && strings.Contains(text, "<svg")
}

// NormalizeMIME strips parameters from a Content-Type value and folds known
// aliases.
func NormalizeMIME(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch contentType {
	case "image/jpg", "image/pjpeg":
		return JPEG.MIME
	case "application/octet-stream":
		return ""
	}
	return contentType
}

// Matches reports whether a client-declared content type agrees with the
// detected format. An empty declaration matches anything.
func Matches(declared string, detected Format) bool {
	declared = NormalizeMIME(declared)
	return declared == "" || declared == detected.MIME
}
