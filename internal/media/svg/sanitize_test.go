package svg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeStripsActiveContent(t *testing.T) {
	input := []byte(`<svg xmlns="http://www.w3.org/2000/svg" onload="alert(1)">` +
		`<script>alert(2)</script>` +
		`<a href="javascript:alert(3)"><rect width='10' onclick='x()'/></a>` +
		`<foreignObject><body>hi</body></foreignObject>` +
		`<circle r="4"/></svg>`)

	out, err := Sanitize(input)
	require.NoError(t, err)

	s := string(out)
	assert.NotContains(t, s, "script")
	assert.NotContains(t, s, "onload")
	assert.NotContains(t, s, "onclick")
	assert.NotContains(t, s, "javascript:")
	assert.NotContains(t, s, "foreignObject")
	assert.Contains(t, s, `<circle r="4"/>`)
	assert.Contains(t, s, `<rect width='10'/>`)
}

func TestSanitizeRejectsOtherDocuments(t *testing.T) {
	_, err := Sanitize([]byte("<html></html>"))
	assert.ErrorIs(t, err, ErrNotSVG)
}
