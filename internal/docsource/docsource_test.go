package docsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("README.MD"))
	assert.True(t, Supported("guide.markdown"))
	assert.True(t, Supported("paper.pdf"))
	assert.False(t, Supported("slides.pptx"))
	assert.False(t, Supported("noext"))
}

func TestExtract_Text(t *testing.T) {
	text, err := Extract("a.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtract_Errors(t *testing.T) {
	_, err := Extract("a.docx", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Extract("a.md", []byte("  \n\t"))
	assert.ErrorIs(t, err, ErrNoText)

	_, err = Extract("a.txt", []byte{0xff, 0xfe, 0xfd})
	assert.Error(t, err)

	_, err = Extract("a.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "pgvector Guide", Title("docs/pg.md", "intro\n# pgvector Guide\n\nbody"))
	assert.Equal(t, "pg", Title("docs/pg.md", "## only subheading"))
	assert.Equal(t, "notes", Title("/tmp/notes.txt", "# not used for txt"))
	assert.Equal(t, "paper", Title("paper.pdf", ""))
}

func TestFromBytes_TitleOverride(t *testing.T) {
	doc, err := FromBytes("x.md", []byte("# Heading\nbody"), "Custom", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "Custom", doc.Title)
	assert.Equal(t, "# Heading\nbody", doc.Content)
	assert.Equal(t, "v", doc.Metadata["k"])
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rag.md")
	require.NoError(t, os.WriteFile(path, []byte("# RAG Overview\nRetrieval-Augmented Generation combines retrieval with generation."), 0o600))

	doc, err := ReadFile(path, "")

	require.NoError(t, err)
	assert.Equal(t, "RAG Overview", doc.Title)
	assert.Contains(t, doc.Content, "Retrieval-Augmented")
	assert.Equal(t, "file:rag.md", doc.Metadata[domain.MetaSource])
}

func TestReadFile_Errors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt"), "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b"), 0o600))
	_, err = ReadFile(path, "")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
