package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
)

// Entry is a single badword with its metadata, immutable after load.
type Entry struct {
	Word     string `json:"word" db:"word"`
	Category string `json:"category" db:"category"`
	Language string `json:"language" db:"language"`
	Level    int    `json:"level" db:"level"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%q (%s/%s, level %d)", e.Word, e.Category, e.Language, e.Level)
}

// index is the precomputed similarity search target: one embedding row per
// badword variant with a backreference to the owning badword. Built once,
// read-only for the process lifetime. A new badword requires a full rebuild.
type index struct {
	vectors [][]float32      // aggregate embedding matrix, one row per variant
	owners  []string         // row index -> owning badword key
	entries map[string]Entry // badword key -> metadata
}

// newIndex builds the corpus index: for each badword it generates the variant
// set, embeds all variants in a single batch and records the backreferences.
// The build is all-or-nothing, any invalid entry or embedding failure aborts it.
func newIndex(ctx context.Context, entries []Entry, embedder Embedder, gen *variantGenerator, maxVariants int) (*index, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("badword corpus is empty")
	}

	var invalid *multierror.Error
	byWord := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.Word == "" {
			invalid = multierror.Append(invalid, fmt.Errorf("entry with empty word"))
			continue
		}
		if _, ok := byWord[e.Word]; ok {
			invalid = multierror.Append(invalid, fmt.Errorf("duplicate badword %q", e.Word))
			continue
		}
		byWord[e.Word] = e
	}
	if err := invalid.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid badword corpus: %w", err)
	}

	texts := []string{}
	owners := []string{}
	for _, e := range entries {
		variants := gen.generate(e.Word, maxVariants)
		if len(variants) == 0 {
			variants = []string{e.Word} // canonical form was empty, fall back to the raw word
		}
		for _, v := range variants {
			texts = append(texts, v)
			owners = append(owners, e.Word)
		}
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("can't embed badword variants: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d variants", len(vectors), len(texts))
	}

	return &index{vectors: vectors, owners: owners, entries: byWord}, nil
}

// size returns the number of embedded variant rows.
func (ix *index) size() int { return len(ix.vectors) }

// bestMatch returns the badword owning the highest-scoring row for the given
// embedding and the cosine similarity score. On an exact tie the earliest row
// wins, which badword that is depends on build order only.
func (ix *index) bestMatch(vec []float32) (word string, score float64) {
	best := math.Inf(-1)
	bestIdx := -1
	for i, row := range ix.vectors {
		if s := cosineSimilarity(vec, row); s > best {
			best = s
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return "", 0
	}
	return ix.owners[bestIdx], best
}

// cosineSimilarity calculates the cosine similarity between two embedding vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
