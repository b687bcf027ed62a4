package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParse_PlainText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "Hello world.")

	doc, err := NewParser().Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", doc.Text)
	assert.Equal(t, "notes.txt", doc.Metadata["filename"])
	assert.Equal(t, "txt", doc.Metadata["extension"])
	assert.Empty(t, doc.Images)
}

func TestParse_MarkdownImages(t *testing.T) {
	dir := t.TempDir()
	content := "Intro.\n\n![a cat](images/cat.png)\n\n![](https://example.com/dog.jpg)\n"
	path := writeFile(t, dir, "doc.md", content)

	doc, err := NewParser().Parse(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Images, 2)

	// Relative references resolve against the document's directory.
	assert.Equal(t, filepath.Join(dir, "images/cat.png"), doc.Images[0].URI)
	assert.Equal(t, "a cat", doc.Images[0].Caption)

	// URLs pass through untouched.
	assert.Equal(t, "https://example.com/dog.jpg", doc.Images[1].URI)
	assert.Empty(t, doc.Images[1].Caption)

	// The reference text stays in the body.
	assert.Contains(t, doc.Text, "![a cat](images/cat.png)")
}

func TestParse_TooLarge(t *testing.T) {
	path := writeFile(t, t.TempDir(), "big.txt", "0123456789")

	_, err := NewParser(WithMaxFileBytes(5)).Parse(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrResponseTooLarge)
}

func TestParse_Missing(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
