package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := map[string]struct {
		data []byte
		want Format
	}{
		"jpeg": {[]byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, JPEG},
		"png":  {append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, 0, 0), PNG},
		"gif":  {[]byte("GIF89a......"), GIF},
		"webp": {[]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), WEBP},
		"avif": {[]byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00"), AVIF},
		"svg":  {[]byte("  <svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"), SVG},
		"xml":  {[]byte("<?xml version=\"1.0\"?>\n<svg></svg>"), SVG},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Detect(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectRejectsUnknown(t *testing.T) {
	_, err := Detect([]byte("%PDF-1.7"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Detect(nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Detect([]byte("<?xml version=\"1.0\"?><note/>"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("", PNG))
	assert.True(t, Matches("image/png; charset=binary", PNG))
	assert.True(t, Matches("image/jpg", JPEG))
	assert.True(t, Matches("application/octet-stream", GIF))
	assert.False(t, Matches("image/png", JPEG))
}
