package localdump_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toothbrush/site-mirror/localdump"
)

func TestPageFileKeepsContentVerbatim(t *testing.T) {
	content := "<p>one</p>\n---\n<p>two</p>\n\n"
	h := localdump.PageHeader{
		Title:     "Release: notes --- v2",
		Kind:      "webpage",
		ID:        "https://sites.example.test/feeds/content/ws/123",
		Revision:  4,
		Updated:   time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Ancestors: []string{"Home"},
	}

	data, err := localdump.EncodePage(h, content)
	require.NoError(t, err)

	decoded, body, err := localdump.DecodePage(data)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
	assert.Equal(t, content, body)
}

func TestPageFileWithoutFrontMatter(t *testing.T) {
	_, body, err := localdump.DecodePage([]byte("<p>hand written</p>"))
	assert.ErrorIs(t, err, localdump.ErrNoFrontMatter)
	assert.Equal(t, "<p>hand written</p>", body)

	_, _, err = localdump.DecodePage([]byte("---\ntitle: x\n"))
	assert.ErrorContains(t, err, "unterminated")
}
