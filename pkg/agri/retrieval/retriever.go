package retrieval

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"agri-assistant-be/pkg/store"
	"agri-assistant-be/pkg/utils"
)

const (
	chunkSize    = 1200
	chunkOverlap = 150
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// chunk is an indexed snippet of one source file.
type chunk struct {
	content string
	source  string
	page    int
	terms   map[string]int
}

// Retriever answers queries over a local knowledge base of .txt/.md
// files scanned recursively from a docs root. The index is built once
// at construction; an empty or missing corpus yields an empty index,
// never an error.
type Retriever struct {
	chunks []chunk
}

func NewRetriever(docsRoot string) *Retriever {
	r := &Retriever{}
	r.buildIndex(docsRoot)
	return r
}

func (r *Retriever) buildIndex(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for i, part := range utils.SplitText(string(data), chunkSize, chunkOverlap) {
			r.chunks = append(r.chunks, chunk{
				content: part,
				source:  path,
				page:    i,
				terms:   termFrequencies(part),
			})
		}
		return nil
	})
}

// Retrieve returns the k best-scoring chunks for the query as
// documents with source/page metadata. Chunks sharing no terms with
// the query are excluded.
func (r *Retriever) Retrieve(query string, k int) []store.Document {
	if len(r.chunks) == 0 || k <= 0 {
		return []store.Document{}
	}

	queryTerms := termFrequencies(query)

	type scored struct {
		idx   int
		score float64
	}
	var matches []scored
	for i, c := range r.chunks {
		s := overlapScore(queryTerms, c.terms)
		if s > 0 {
			matches = append(matches, scored{i, s})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	docs := make([]store.Document, 0, len(matches))
	for _, m := range matches {
		c := r.chunks[m.idx]
		docs = append(docs, store.Document{
			Content: c.content,
			Score:   m.score,
			Metadata: map[string]interface{}{
				"source": c.source,
				"page":   c.page,
			},
		})
	}
	return docs
}

// Size reports how many chunks are indexed.
func (r *Retriever) Size() int {
	return len(r.chunks)
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 {
			continue
		}
		freq[w]++
	}
	return freq
}

// overlapScore sums matched query-term frequencies in the chunk; longer
// query overlap ranks higher than repeated single-term hits.
func overlapScore(query, doc map[string]int) float64 {
	score := 0.0
	for term := range query {
		if n, ok := doc[term]; ok {
			score += 1.0 + float64(n)*0.1
		}
	}
	return score
}
