package retrieval

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestRetrieveRanksByOverlap(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "rice.md", "Rice cultivation in flooded paddies requires careful water management during spring planting.")
	writeDoc(t, dir, "cotton.txt", "Cotton thrives in warm climates with long growing seasons.")

	docs := NewRetriever(dir).Retrieve("rice water management", 5)

	require.NotEmpty(t, docs)
	assert.Contains(t, docs[0].Content, "Rice")
	assert.Equal(t, filepath.Join(dir, "rice.md"), docs[0].Metadata["source"])
}

func TestRetrieveRespectsK(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "rice notes one")
	writeDoc(t, dir, "b.txt", "rice notes two")
	writeDoc(t, dir, "c.txt", "rice notes three")

	docs := NewRetriever(dir).Retrieve("rice", 2)
	assert.Len(t, docs, 2)
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	docs := NewRetriever(t.TempDir()).Retrieve("rice", 5)
	assert.Empty(t, docs)
}

func TestRetrieveMissingRoot(t *testing.T) {
	docs := NewRetriever(filepath.Join(t.TempDir(), "missing")).Retrieve("rice", 5)
	assert.Empty(t, docs)
}

func TestRetrieveNoMatches(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "cotton.txt", "Cotton thrives in warm climates.")

	docs := NewRetriever(dir).Retrieve("zucchini", 5)
	assert.Empty(t, docs)
}

func TestRetrieveChunksLargeFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "long.md", strings.Repeat("rice agronomy guidance paragraph. ", 200))

	r := NewRetriever(dir)
	assert.Greater(t, r.Size(), 1)

	docs := r.Retrieve("rice agronomy", 3)
	require.NotEmpty(t, docs)
	// Page metadata identifies the chunk within the file
	assert.Contains(t, docs[0].Metadata, "page")
}

func TestRetrieveSkipsUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "data.csv", "rice,1000")

	assert.Zero(t, NewRetriever(dir).Size())
}
